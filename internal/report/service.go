package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"receipt-lens/internal/flow"
)

// IDGenerator generates unique IDs for attempt records
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service records flow outcomes and tracks user verification of them.
type Service struct {
	db          DB
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a Service with default ID generator and time source.
func NewService(db DB) *Service {
	return &Service{
		db:          db,
		idGenerator: &defaultIDGenerator{},
		timeSource:  &defaultTimeSource{},
	}
}

// NewServiceWithDeps creates a Service with custom dependencies for testing.
func NewServiceWithDeps(db DB, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// Listener returns a flow listener that records outcomes under the given
// session key.
func (s *Service) Listener(session string) flow.Listener {
	return flow.ListenerFunc(func(res flow.Result) {
		if _, err := s.RecordResult(session, res); err != nil {
			log.Error().Err(err).Str("session", session).Msg("failed to record attempt")
		}
	})
}

// RecordResult stores the outcome of a completed attempt.
func (s *Service) RecordResult(session string, res flow.Result) (*Attempt, error) {
	now := s.timeSource.Now()

	attempt := &Attempt{
		ID:        s.idGenerator.Generate(),
		Session:   session,
		Status:    StatusSucceeded,
		Text:      res.Text,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if res.Err != nil {
		attempt.Status = StatusFailed
		attempt.Text = ""
		attempt.ErrorKind = string(res.Kind())
		attempt.ErrorDetail = res.Err.Error()
	}

	if err := s.db.SaveAttempt(attempt); err != nil {
		return nil, fmt.Errorf("saving attempt: %w", err)
	}
	return attempt, nil
}

// Verify marks a successful attempt as confirmed by the user. The text is
// the user's final version, which may correct recognition mistakes; empty
// text keeps the recognized text as-is.
func (s *Service) Verify(id string, text string) (*Attempt, error) {
	attempt, err := s.db.GetAttempt(id)
	if err != nil {
		return nil, fmt.Errorf("getting attempt: %w", err)
	}
	if attempt.Status != StatusSucceeded {
		return nil, fmt.Errorf("attempt %s has no recognized text to verify", id)
	}

	attempt.Verified = true
	attempt.VerifiedText = text
	if text == "" {
		attempt.VerifiedText = attempt.Text
	}
	attempt.UpdatedAt = s.timeSource.Now()

	if err := s.db.SaveAttempt(attempt); err != nil {
		return nil, fmt.Errorf("saving attempt: %w", err)
	}
	return attempt, nil
}

// GetAttempt retrieves one recorded attempt.
func (s *Service) GetAttempt(id string) (*Attempt, error) {
	attempt, err := s.db.GetAttempt(id)
	if err != nil {
		return nil, fmt.Errorf("getting attempt: %w", err)
	}
	return attempt, nil
}

// ListAttempts returns all recorded attempts, newest first.
func (s *Service) ListAttempts() ([]*Attempt, error) {
	attempts, err := s.db.ListAttempts()
	if err != nil {
		return nil, fmt.Errorf("listing attempts: %w", err)
	}
	sort.Slice(attempts, func(i, j int) bool {
		return attempts[i].CreatedAt.After(attempts[j].CreatedAt)
	})
	return attempts, nil
}

// DeleteAttempt removes a recorded attempt.
func (s *Service) DeleteAttempt(id string) error {
	if err := s.db.DeleteAttempt(id); err != nil {
		return fmt.Errorf("deleting attempt: %w", err)
	}
	return nil
}
