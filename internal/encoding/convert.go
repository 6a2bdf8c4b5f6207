package encoding

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// NeedsNormalize reports whether the recognition backend cannot ingest the
// format directly. JPEG, PNG and GIF go over the wire untouched; HEIC
// (iPhone captures) and PDF receipts are converted first.
func NeedsNormalize(mime string, data []byte) bool {
	mime = strings.ToLower(strings.TrimSpace(mime))
	return mime == "application/pdf" || isHEICMime(mime) || isHEICData(data)
}

// Normalize converts HEIC and PDF captures to PNG and passes every other
// format through unchanged. It returns the (possibly converted) image data
// and its MIME type.
func Normalize(data []byte, mime string) ([]byte, string, error) {
	if !NeedsNormalize(mime, data) {
		return data, mime, nil
	}
	if strings.EqualFold(strings.TrimSpace(mime), "application/pdf") {
		converted, err := renderPDFPage(data)
		if err != nil {
			return nil, "", fmt.Errorf("converting PDF capture: %w", err)
		}
		return converted, "image/png", nil
	}
	converted, err := heicToPNG(data)
	if err != nil {
		return nil, "", fmt.Errorf("converting HEIC capture: %w", err)
	}
	return converted, "image/png", nil
}

// renderPDFPage renders the first page of a PDF receipt as PNG. Receipts are
// almost always single page.
func renderPDFPage(pdfData []byte) ([]byte, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}

	return encodePNG(img)
}

// heicToPNG decodes a HEIC/HEIF image and re-encodes it as PNG.
func heicToPNG(data []byte) ([]byte, error) {
	img, err := heic.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding HEIC image: %w", err)
	}
	return encodePNG(img)
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// isHEICData checks for the HEIC/HEIF ftyp box. The standard library's
// content sniffer does not recognize the format.
func isHEICData(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heif", "mif1", "msf1":
		return true
	}
	return false
}

func isHEICMime(mime string) bool {
	return strings.Contains(mime, "heic") || strings.Contains(mime, "heif")
}
