// Package ocr contains the client-side contract for invoking remote text
// recognition: the Recognizer interface, its implementations, and the error
// taxonomy callers use to decide what to tell the user.
package ocr

import (
	"context"

	"receipt-lens/internal/encoding"
)

// Recognizer extracts the text printed on a receipt image. Implementations
// are stateless and reentrant: every call issues one independent request
// with no caching, deduplication or retries. Retry policy belongs to the
// caller.
type Recognizer interface {
	// Recognize sends one encoded capture and returns the recognized text
	// verbatim, or one of the classified errors from this package.
	Recognize(ctx context.Context, payload encoding.Payload) (string, error)

	// Close releases any resources held by the recognizer.
	Close() error
}
