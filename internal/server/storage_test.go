package server

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LocalStorage", func() {
	var (
		dir     string
		storage *LocalStorage
	)

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "storage-test")
		Expect(err).NotTo(HaveOccurred())

		storage, err = NewLocalStorage(filepath.Join(dir, "captures"))
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(dir)
	})

	It("should create the storage directory", func() {
		Expect(filepath.Join(dir, "captures")).To(BeADirectory())
	})

	It("should save and resolve a capture", func() {
		name, err := storage.Save("receipt.png", []byte("data"))
		Expect(err).NotTo(HaveOccurred())

		data, err := os.ReadFile(storage.Path(name))
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(Equal([]byte("data")))
	})

	It("should delete a capture", func() {
		name, err := storage.Save("receipt.png", []byte("data"))
		Expect(err).NotTo(HaveOccurred())

		Expect(storage.Delete(name)).To(Succeed())
		Expect(storage.Path(name)).NotTo(BeAnExistingFile())
	})

	It("should fail to delete a missing capture", func() {
		Expect(storage.Delete("missing.png")).NotTo(Succeed())
	})
})

var _ = Describe("sanitizeFilename", func() {
	It("should strip special characters", func() {
		Expect(sanitizeFilename("IMG#2024!@$.jpg")).To(Equal("IMG2024.jpg"))
	})

	It("should collapse whitespace", func() {
		Expect(sanitizeFilename("my    receipt.png")).To(Equal("my receipt.png"))
	})

	It("should lowercase the extension", func() {
		Expect(sanitizeFilename("IMG_1234.HEIC")).To(Equal("IMG_1234.heic"))
	})

	It("should truncate very long names", func() {
		long := ""
		for range 20 {
			long += "abcdefghij"
		}
		name := sanitizeFilename(long + ".jpg")
		Expect(len(name)).To(BeNumerically("<=", 54))
	})

	It("should fall back to a default name", func() {
		Expect(sanitizeFilename("!!!.png")).To(Equal("capture.png"))
	})

	It("should drop directory components", func() {
		Expect(sanitizeFilename("../../etc/passwd")).To(Equal("passwd"))
	})
})
