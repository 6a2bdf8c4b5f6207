package encoding

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// EncodingError indicates that a captured image could not be turned into a
// transport payload. The flow treats it as fatal to the current attempt.
type EncodingError struct {
	Path string
	Err  error
}

func (e *EncodingError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("encoding image: %v", e.Err)
	}
	return fmt.Sprintf("encoding %s: %v", e.Path, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// Payload is a base64-encoded image tagged with its MIME type. It is
// immutable once produced and travels as a data URI on the wire.
type Payload struct {
	MIME string
	Data string // base64, standard encoding
}

// URI returns the payload as a data URI string.
func (p Payload) URI() string {
	return "data:" + p.MIME + ";base64," + p.Data
}

// Decode returns the raw image bytes the payload was built from.
func (p Payload) Decode() ([]byte, error) {
	return base64.StdEncoding.DecodeString(p.Data)
}

// Encode reads the image at path and produces its payload. The file's bytes
// are encoded as-is: decoding the payload yields them back exactly.
func Encode(path string) (Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Payload{}, &EncodingError{Path: path, Err: err}
	}
	if len(data) == 0 {
		return Payload{}, &EncodingError{Path: path, Err: errors.New("file is empty")}
	}
	return EncodeBytes(data, DetectMIME(path, data)), nil
}

// EncodeNormalized reads the image at path, converts it to a format the
// recognition backend can ingest if necessary (HEIC and PDF captures), and
// produces the payload. Formats the backend accepts are encoded unmodified.
func EncodeNormalized(path string) (Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Payload{}, &EncodingError{Path: path, Err: err}
	}
	if len(data) == 0 {
		return Payload{}, &EncodingError{Path: path, Err: errors.New("file is empty")}
	}
	mime := DetectMIME(path, data)
	data, mime, err = Normalize(data, mime)
	if err != nil {
		return Payload{}, &EncodingError{Path: path, Err: err}
	}
	return EncodeBytes(data, mime), nil
}

// EncodeBytes produces a payload from in-memory image data.
func EncodeBytes(data []byte, mime string) Payload {
	return Payload{
		MIME: mime,
		Data: base64.StdEncoding.EncodeToString(data),
	}
}

// DetectMIME determines an image's content type, preferring the file
// extension and falling back to content sniffing. Go's sniffer does not know
// HEIC, so the magic bytes are checked explicitly.
func DetectMIME(path string, data []byte) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".pdf":
		return "application/pdf"
	case ".heic", ".heif":
		return "image/heic"
	}
	if isHEICData(data) {
		return "image/heic"
	}
	return http.DetectContentType(data)
}
