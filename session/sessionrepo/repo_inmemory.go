package sessionrepo

import (
	"sync"

	"github.com/jrsteele09/go-erp-client/session"
)

// InMemoryRepo is a thread-safe in-memory implementation of session.Repo.
// It does not survive a restart; it exists for tests and for environments
// without durable storage.
type InMemoryRepo struct {
	mu        sync.RWMutex
	persisted *session.PersistedSession
}

var _ session.Repo = (*InMemoryRepo)(nil)

// NewInMemoryRepo creates a new in-memory session repository
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{}
}

// Read returns the stored session, or (nil, nil) when none is stored
func (r *InMemoryRepo) Read() (*session.PersistedSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.persisted == nil {
		return nil, nil
	}

	// Return a copy to prevent external modifications
	persisted := *r.persisted
	return &persisted, nil
}

// Write stores or replaces the session
func (r *InMemoryRepo) Write(persisted *session.PersistedSession) error {
	if persisted == nil {
		return errNilSession
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Store a copy to prevent external modifications
	stored := *persisted
	r.persisted = &stored
	return nil
}

// Clear removes the stored session
func (r *InMemoryRepo) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.persisted = nil
	return nil
}
