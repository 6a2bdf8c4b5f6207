package flow

import "sync"

// Sessions hands out one Flow per client session. Flows are created lazily
// on first use and live for the life of the process.
type Sessions struct {
	mu      sync.Mutex
	flows   map[string]*Flow
	newFlow func(session string) *Flow
}

// NewSessions creates a session registry. The factory is called once per
// session key and may attach a listener bound to that session.
func NewSessions(newFlow func(session string) *Flow) *Sessions {
	return &Sessions{
		flows:   make(map[string]*Flow),
		newFlow: newFlow,
	}
}

// Get returns the flow for a session, creating it if needed.
func (s *Sessions) Get(session string) *Flow {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.flows[session]
	if !ok {
		f = s.newFlow(session)
		s.flows[session] = f
	}
	return f
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.flows)
}
