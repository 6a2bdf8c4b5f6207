package flow

import (
	"errors"

	"receipt-lens/internal/encoding"
	"receipt-lens/internal/ocr"
)

// State is the stage a capture attempt is in. An attempt only ever moves
// forward: Idle → Capturing → Encoding → Requesting → Succeeded|Failed,
// and back to Idle by an explicit reset or a new capture.
type State int

const (
	StateIdle State = iota
	StateCapturing
	StateEncoding
	StateRequesting
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCapturing:
		return "capturing"
	case StateEncoding:
		return "encoding"
	case StateRequesting:
		return "requesting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Terminal reports whether the state ends an attempt.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// InFlight reports whether an attempt is between capture and completion.
// While in flight, new captures are rejected.
func (s State) InFlight() bool {
	return s == StateEncoding || s == StateRequesting
}

// ErrAttemptInFlight is returned by Capture while a previous attempt is
// still encoding or awaiting recognition.
var ErrAttemptInFlight = errors.New("an attempt is already in flight")

// ErrNothingCaptured is returned by Submit when no capture precedes it.
var ErrNothingCaptured = errors.New("no captured image to submit")

// ErrorKind classifies a failed attempt for the verification stage, which
// turns it into user guidance without inspecting error values itself.
type ErrorKind string

const (
	KindNone          ErrorKind = ""
	KindEncoding      ErrorKind = "encoding"
	KindConfiguration ErrorKind = "configuration"
	KindNetwork       ErrorKind = "network"
	KindServer        ErrorKind = "server"
	KindMalformed     ErrorKind = "malformed_response"
	KindUnknown       ErrorKind = "unknown"
)

// Classify maps an attempt error onto its kind.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindNone
	}

	var encodingErr *encoding.EncodingError
	var networkErr *ocr.NetworkError
	var serverErr *ocr.ServerError
	var malformedErr *ocr.MalformedResponseError

	switch {
	case errors.As(err, &encodingErr):
		return KindEncoding
	case errors.Is(err, ocr.ErrNotConfigured):
		return KindConfiguration
	case errors.As(err, &networkErr):
		return KindNetwork
	case errors.As(err, &serverErr):
		return KindServer
	case errors.As(err, &malformedErr):
		return KindMalformed
	}
	return KindUnknown
}
