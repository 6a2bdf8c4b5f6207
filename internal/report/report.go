// Package report records completed recognition attempts so the verification
// and report stages have something to show: the recognized text (or why
// there is none), and the user's confirmed version of it.
package report

import "time"

// Attempt statuses.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Attempt is one completed capture attempt as the verification stage sees
// it: recognized text or a classified error, never image data.
type Attempt struct {
	ID           string    `json:"id"`
	Session      string    `json:"session"`
	Status       string    `json:"status"`
	Text         string    `json:"text,omitempty"`
	ErrorKind    string    `json:"error_kind,omitempty"`
	ErrorDetail  string    `json:"error_detail,omitempty"`
	Verified     bool      `json:"verified"`
	VerifiedText string    `json:"verified_text,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
