package report

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("BoltDB", func() {
	var (
		dir string
		db  *BoltDB
	)

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "report-db-test")
		Expect(err).NotTo(HaveOccurred())

		db, err = NewBoltDB(filepath.Join(dir, "attempts.db"))
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		db.Close()
		os.RemoveAll(dir)
	})

	newAttempt := func(id string) *Attempt {
		return &Attempt{
			ID:        id,
			Session:   "session-a",
			Status:    StatusSucceeded,
			Text:      "TOTAL 12.34",
			CreatedAt: time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
			UpdatedAt: time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC),
		}
	}

	It("should round-trip an attempt record", func() {
		Expect(db.SaveAttempt(newAttempt("a1"))).To(Succeed())

		got, err := db.GetAttempt("a1")
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal(newAttempt("a1")))
	})

	It("should overwrite on save with the same ID", func() {
		attempt := newAttempt("a1")
		Expect(db.SaveAttempt(attempt)).To(Succeed())

		attempt.Verified = true
		attempt.VerifiedText = "TOTAL 12.84"
		Expect(db.SaveAttempt(attempt)).To(Succeed())

		got, err := db.GetAttempt("a1")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Verified).To(BeTrue())
		Expect(got.VerifiedText).To(Equal("TOTAL 12.84"))
	})

	It("should fail to get a missing attempt", func() {
		_, err := db.GetAttempt("missing")
		Expect(err).To(HaveOccurred())
	})

	It("should list all saved attempts", func() {
		Expect(db.SaveAttempt(newAttempt("a1"))).To(Succeed())
		Expect(db.SaveAttempt(newAttempt("a2"))).To(Succeed())

		attempts, err := db.ListAttempts()
		Expect(err).NotTo(HaveOccurred())
		Expect(attempts).To(HaveLen(2))
	})

	It("should list nothing from an empty database", func() {
		attempts, err := db.ListAttempts()
		Expect(err).NotTo(HaveOccurred())
		Expect(attempts).To(BeEmpty())
	})

	It("should delete an attempt", func() {
		Expect(db.SaveAttempt(newAttempt("a1"))).To(Succeed())
		Expect(db.DeleteAttempt("a1")).To(Succeed())

		_, err := db.GetAttempt("a1")
		Expect(err).To(HaveOccurred())
	})

	It("should survive reopening", func() {
		Expect(db.SaveAttempt(newAttempt("a1"))).To(Succeed())
		path := filepath.Join(dir, "attempts.db")
		Expect(db.Close()).To(Succeed())

		var err error
		db, err = NewBoltDB(path)
		Expect(err).NotTo(HaveOccurred())

		got, err := db.GetAttempt("a1")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.Text).To(Equal("TOTAL 12.34"))
	})
})
