// Package flow holds the state machine that carries one receipt capture
// from photo to verified text: capture, encode, submit for recognition,
// and hand the outcome to the verification stage. It is decoupled from any
// rendering layer so the transitions can be tested directly.
package flow

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"receipt-lens/internal/encoding"
	"receipt-lens/internal/ocr"
)

// Encoder turns a captured image file into a transport payload.
type Encoder interface {
	Encode(path string) (encoding.Payload, error)
}

// normalizingEncoder is the default: raw encode for formats the backend
// accepts, conversion for HEIC and PDF captures.
type normalizingEncoder struct{}

func (normalizingEncoder) Encode(path string) (encoding.Payload, error) {
	return encoding.EncodeNormalized(path)
}

// Result is the outcome of one completed attempt, exactly one per attempt.
// The verification stage receives the recognized text or a classified
// error, never the image bytes or the payload.
type Result struct {
	Attempt     uint64
	Text        string
	Err         error
	CompletedAt time.Time
}

// Kind returns the classified error kind, KindNone on success.
func (r Result) Kind() ErrorKind {
	return Classify(r.Err)
}

// Listener receives completed attempts. The verification stage (or the
// store backing it) implements this.
type Listener interface {
	AttemptCompleted(res Result)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(res Result)

func (f ListenerFunc) AttemptCompleted(res Result) {
	f(res)
}

// Flow is the capture-to-verification state machine for one client. At most
// one attempt is in flight at a time; the attempt counter is monotonic and
// guards against a response from an abandoned attempt being applied to a
// later one. Safe for concurrent use.
type Flow struct {
	mu       sync.Mutex
	state    State
	attempt  uint64
	path     string
	result   *Result
	enc      Encoder
	rec      ocr.Recognizer
	listener Listener
}

// New creates a Flow that encodes captures with the default normalizing
// encoder and recognizes them with rec.
func New(rec ocr.Recognizer) *Flow {
	return NewWithEncoder(rec, normalizingEncoder{})
}

// NewWithEncoder creates a Flow with a custom encoder, mainly for tests.
func NewWithEncoder(rec ocr.Recognizer, enc Encoder) *Flow {
	return &Flow{
		state: StateIdle,
		enc:   enc,
		rec:   rec,
	}
}

// SetListener registers the consumer of completed attempts.
func (f *Flow) SetListener(l Listener) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listener = l
}

// State returns the current stage.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Attempt returns the current attempt number.
func (f *Flow) Attempt() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempt
}

// Result returns the outcome of the current attempt, if it has completed.
func (f *Flow) Result() (Result, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.result == nil {
		return Result{}, false
	}
	return *f.result, true
}

// Capture starts a new attempt from the image at path. A terminal attempt
// is discarded first; an in-flight attempt rejects the capture with
// ErrAttemptInFlight and must be abandoned explicitly with Reset.
func (f *Flow) Capture(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state.InFlight() {
		return ErrAttemptInFlight
	}
	if f.state.Terminal() {
		f.resetLocked()
	}

	f.attempt++
	f.path = path
	f.state = StateCapturing
	return nil
}

// Submit encodes the captured image and sends it for recognition. Encoding
// happens before Submit returns; recognition completes asynchronously and
// the outcome is delivered through the listener and Result. Submit returns
// an error only for invalid transitions; attempt failures land in the
// Failed state instead.
func (f *Flow) Submit(ctx context.Context) error {
	f.mu.Lock()
	if f.state != StateCapturing {
		f.mu.Unlock()
		return ErrNothingCaptured
	}
	attempt := f.attempt
	path := f.path
	f.state = StateEncoding
	f.mu.Unlock()

	payload, err := f.enc.Encode(path)

	f.mu.Lock()
	if f.attempt != attempt || f.state != StateEncoding {
		// Abandoned while encoding.
		f.mu.Unlock()
		return nil
	}
	if err != nil {
		f.completeLocked(Result{Attempt: attempt, Err: err, CompletedAt: time.Now()})
		return nil
	}
	f.state = StateRequesting
	f.mu.Unlock()

	go f.recognize(ctx, attempt, payload)
	return nil
}

// Reset abandons the current attempt and returns the flow to Idle. A
// response still in flight for the abandoned attempt will be discarded when
// it arrives.
func (f *Flow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetLocked()
}

func (f *Flow) resetLocked() {
	f.state = StateIdle
	f.path = ""
	f.result = nil
}

func (f *Flow) recognize(ctx context.Context, attempt uint64, payload encoding.Payload) {
	text, err := f.rec.Recognize(ctx, payload)

	f.mu.Lock()
	if f.attempt != attempt || f.state != StateRequesting {
		f.mu.Unlock()
		log.Debug().
			Uint64("attempt", attempt).
			Msg("discarding recognition result for abandoned attempt")
		return
	}
	f.completeLocked(Result{
		Attempt:     attempt,
		Text:        text,
		Err:         err,
		CompletedAt: time.Now(),
	})
}

// completeLocked stores the outcome, moves to the terminal state and
// notifies the listener. Called with f.mu held; releases it.
func (f *Flow) completeLocked(res Result) {
	if res.Err != nil {
		f.state = StateFailed
	} else {
		f.state = StateSucceeded
	}
	f.result = &res
	listener := f.listener
	f.mu.Unlock()

	if res.Err != nil {
		log.Debug().
			Uint64("attempt", res.Attempt).
			Str("kind", string(res.Kind())).
			Err(res.Err).
			Msg("attempt failed")
	}
	if listener != nil {
		listener.AttemptCompleted(res)
	}
}
