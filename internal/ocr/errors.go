package ocr

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned before any request is attempted when no
// recognition endpoint has been configured.
var ErrNotConfigured = errors.New("ocr endpoint is not configured")

// NetworkError indicates the request could not be sent or no response was
// received: connectivity loss, DNS failure, timeout.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("ocr request failed: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ServerError indicates the endpoint answered with a non-success status.
// The status code lets callers tell client-side rejections (4xx) from
// service failures (5xx).
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("ocr endpoint returned status %d", e.StatusCode)
}

// Temporary reports whether the failure is on the service side and worth
// retrying later.
func (e *ServerError) Temporary() bool {
	return e.StatusCode >= 500
}

// MalformedResponseError indicates the endpoint answered with a success
// status but the body was not the expected structure.
type MalformedResponseError struct {
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed ocr response: %s", e.Reason)
}
