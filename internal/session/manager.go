package session

import (
	"context"
	"sync"

	"quizlive-service/internal/domain"
)

// Manager is the process-wide table of live sessions, keyed by quiz ID.
// At most one session exists per quiz ID; concurrent creation attempts for
// the same quiz converge on a single instance.
type Manager struct {
	catalog   Catalog
	directory Directory
	clock     Clock
	opts      Options
	sinks     []EventSink

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager wires the manager's read dependencies and the extra event sinks
// (such as the push-only hub) every new session publishes to.
func NewManager(catalog Catalog, directory Directory, clock Clock, opts Options, sinks ...EventSink) *Manager {
	return &Manager{
		catalog:   catalog,
		directory: directory,
		clock:     clock,
		opts:      opts,
		sinks:     sinks,
		sessions:  make(map[string]*Session),
	}
}

// GetOrCreate returns the live session for quizID, constructing a new
// lobby-state session from catalog metadata when none exists. The catalog
// lookup happens outside the table lock; the insert re-checks so racing
// creators share one instance.
func (m *Manager) GetOrCreate(ctx context.Context, quizID string) (*Session, error) {
	m.mu.Lock()
	if session, ok := m.sessions[quizID]; ok {
		m.mu.Unlock()
		return session, nil
	}
	m.mu.Unlock()

	quiz, err := m.catalog.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if session, ok := m.sessions[quizID]; ok {
		return session, nil
	}
	session := newSession(quiz, m.clock, m.directory, m.opts, m.sinks, func() {
		m.Remove(quizID)
	})
	m.sessions[quizID] = session
	return session, nil
}

// Get returns the live session for quizID, if any.
func (m *Manager) Get(quizID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[quizID]
	return session, ok
}

// Remove forgets the session for quizID. Subsequent lookups behave as if no
// session ever existed; removing an unknown ID is a no-op.
func (m *Manager) Remove(quizID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, quizID)
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Lookup is a convenience for callers that require an existing session.
func (m *Manager) Lookup(quizID string) (*Session, error) {
	session, ok := m.Get(quizID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}
