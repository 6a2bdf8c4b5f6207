package server

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Storage keeps uploaded capture files on disk so the encoder can read them.
// A capture is owned by the attempt that created it and removed on reset.
type Storage interface {
	// Save stores a capture and returns its storage name
	Save(filename string, data []byte) (string, error)

	// Path returns the absolute path for a stored capture
	Path(name string) string

	// Delete removes a stored capture
	Delete(name string) error
}

// LocalStorage implements Storage on the local filesystem.
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates the storage directory if needed.
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	return &LocalStorage{basePath: basePath}, nil
}

// Save stores a capture file.
func (l *LocalStorage) Save(filename string, data []byte) (string, error) {
	name := sanitizeFilename(filename)
	if err := os.WriteFile(filepath.Join(l.basePath, name), data, 0644); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}
	return name, nil
}

// Path returns the absolute path for a stored capture.
func (l *LocalStorage) Path(name string) string {
	return filepath.Join(l.basePath, name)
}

// Delete removes a stored capture.
func (l *LocalStorage) Delete(name string) error {
	if err := os.Remove(filepath.Join(l.basePath, name)); err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	return nil
}

var (
	unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_.]`)
	spaceRuns   = regexp.MustCompile(`\s+`)
)

// sanitizeFilename cleans the long, special-character-laden names phones
// produce, keeping the extension so MIME detection still works.
func sanitizeFilename(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	base = unsafeChars.ReplaceAllString(base, "")
	base = spaceRuns.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	const maxLen = 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}
	if base == "" {
		base = "capture"
	}

	return base + ext
}
