package report

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const attemptBucket = "attempts"

// DB defines the persistence operations the report service needs.
type DB interface {
	// SaveAttempt inserts or updates an attempt record
	SaveAttempt(attempt *Attempt) error

	// GetAttempt retrieves an attempt by ID
	GetAttempt(id string) (*Attempt, error)

	// ListAttempts returns all recorded attempts
	ListAttempts() ([]*Attempt, error)

	// DeleteAttempt removes an attempt record
	DeleteAttempt(id string) error

	// Close closes the database
	Close() error
}

// BoltDB implements DB on a local bbolt file.
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB opens (creating if needed) the attempt database at path.
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(attemptBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// SaveAttempt inserts or updates an attempt record.
func (b *BoltDB) SaveAttempt(attempt *Attempt) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(attemptBucket))
		data, err := json.Marshal(attempt)
		if err != nil {
			return fmt.Errorf("marshaling attempt: %w", err)
		}
		return bucket.Put([]byte(attempt.ID), data)
	})
}

// GetAttempt retrieves an attempt by ID.
func (b *BoltDB) GetAttempt(id string) (*Attempt, error) {
	var attempt *Attempt
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(attemptBucket))
		data := bucket.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("attempt not found: %s", id)
		}
		return json.Unmarshal(data, &attempt)
	})
	if err != nil {
		return nil, err
	}
	return attempt, nil
}

// ListAttempts returns all recorded attempts.
func (b *BoltDB) ListAttempts() ([]*Attempt, error) {
	attempts := make([]*Attempt, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(attemptBucket))
		return bucket.ForEach(func(k, v []byte) error {
			var attempt Attempt
			if err := json.Unmarshal(v, &attempt); err != nil {
				return fmt.Errorf("unmarshaling attempt: %w", err)
			}
			attempts = append(attempts, &attempt)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return attempts, nil
}

// DeleteAttempt removes an attempt record.
func (b *BoltDB) DeleteAttempt(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(attemptBucket)).Delete([]byte(id))
	})
}

// Close closes the database.
func (b *BoltDB) Close() error {
	return b.db.Close()
}
