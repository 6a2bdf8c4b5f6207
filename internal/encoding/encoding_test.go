package encoding

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestEncoding(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Encoding Suite")
}

// minimal valid 1x1 PNG
var pngBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
	0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4,
	0x89, 0x00, 0x00, 0x00, 0x0d, 0x49, 0x44, 0x41,
	0x54, 0x78, 0x9c, 0x62, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00,
	0x00, 0x00, 0x00, 0x49, 0x45, 0x4e, 0x44, 0xae,
	0x42, 0x60, 0x82,
}

var _ = Describe("Encode", func() {
	var (
		dir     string
		path    string
		payload Payload
		err     error
	)

	BeforeEach(func() {
		dir, err = os.MkdirTemp("", "encoding-test")
		Expect(err).NotTo(HaveOccurred())
		path = filepath.Join(dir, "receipt.png")
		Expect(os.WriteFile(path, pngBytes, 0644)).To(Succeed())
	})

	AfterEach(func() {
		os.RemoveAll(dir)
	})

	JustBeforeEach(func() {
		payload, err = Encode(path)
	})

	When("encoding a valid image", func() {
		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should tag the payload with the image's MIME type", func() {
			Expect(payload.MIME).To(Equal("image/png"))
		})

		It("should produce a data URI", func() {
			Expect(payload.URI()).To(HavePrefix("data:image/png;base64,"))
		})

		It("should round-trip the file's bytes exactly", func() {
			decoded, decodeErr := payload.Decode()
			Expect(decodeErr).NotTo(HaveOccurred())
			Expect(decoded).To(Equal(pngBytes))
		})

		It("should be deterministic", func() {
			again, againErr := Encode(path)
			Expect(againErr).NotTo(HaveOccurred())
			Expect(again).To(Equal(payload))
		})
	})

	When("the file does not exist", func() {
		BeforeEach(func() {
			path = filepath.Join(dir, "missing.png")
		})

		It("should return an EncodingError", func() {
			var encErr *EncodingError
			Expect(err).To(HaveOccurred())
			Expect(err).To(BeAssignableToTypeOf(encErr))
		})

		It("should not return a payload", func() {
			Expect(payload).To(Equal(Payload{}))
		})
	})

	When("the file is empty", func() {
		BeforeEach(func() {
			Expect(os.WriteFile(path, nil, 0644)).To(Succeed())
		})

		It("should return an EncodingError", func() {
			var encErr *EncodingError
			Expect(err).To(BeAssignableToTypeOf(encErr))
		})
	})
})

var _ = Describe("EncodeBytes", func() {
	It("should encode the given bytes under the given MIME type", func() {
		payload := EncodeBytes([]byte("hello"), "image/jpeg")
		Expect(payload.MIME).To(Equal("image/jpeg"))
		Expect(payload.Data).To(Equal(base64.StdEncoding.EncodeToString([]byte("hello"))))
	})
})

var _ = Describe("DetectMIME", func() {
	When("the extension is known", func() {
		It("should map jpg to image/jpeg", func() {
			Expect(DetectMIME("IMG_1234.JPG", nil)).To(Equal("image/jpeg"))
		})

		It("should map pdf to application/pdf", func() {
			Expect(DetectMIME("receipt.pdf", nil)).To(Equal("application/pdf"))
		})

		It("should map heic to image/heic", func() {
			Expect(DetectMIME("IMG_1234.heic", nil)).To(Equal("image/heic"))
		})
	})

	When("the extension is missing", func() {
		It("should sniff PNG content", func() {
			Expect(DetectMIME("upload", pngBytes)).To(Equal("image/png"))
		})

		It("should recognize the HEIC ftyp box", func() {
			data := append([]byte{0x00, 0x00, 0x00, 0x18}, []byte("ftypheic")...)
			data = append(data, make([]byte, 8)...)
			Expect(DetectMIME("upload", data)).To(Equal("image/heic"))
		})
	})
})

var _ = Describe("Normalize", func() {
	When("the format is already supported", func() {
		It("should pass PNG data through unchanged", func() {
			data, mime, err := Normalize(pngBytes, "image/png")
			Expect(err).NotTo(HaveOccurred())
			Expect(mime).To(Equal("image/png"))
			Expect(data).To(Equal(pngBytes))
		})

		It("should pass JPEG data through unchanged", func() {
			data, mime, err := Normalize([]byte{0xff, 0xd8, 0xff}, "image/jpeg")
			Expect(err).NotTo(HaveOccurred())
			Expect(mime).To(Equal("image/jpeg"))
			Expect(data).To(Equal([]byte{0xff, 0xd8, 0xff}))
		})
	})

	When("the capture is a PDF", func() {
		It("should report that normalization is needed", func() {
			Expect(NeedsNormalize("application/pdf", nil)).To(BeTrue())
		})
	})

	When("the capture is HEIC", func() {
		It("should report that normalization is needed", func() {
			Expect(NeedsNormalize("image/heic", nil)).To(BeTrue())
		})

		It("should detect HEIC by content when the MIME type lies", func() {
			data := append([]byte{0x00, 0x00, 0x00, 0x18}, []byte("ftypmif1")...)
			data = append(data, make([]byte, 8)...)
			Expect(NeedsNormalize("image/jpeg", data)).To(BeTrue())
		})
	})
})
