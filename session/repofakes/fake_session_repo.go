package repofakes

import (
	"sync"

	"github.com/jrsteele09/go-erp-client/session"
)

var _ session.Repo = (*FakeSessionRepo)(nil)

// FakeSessionRepo is a configurable in-memory session.Repo for tests.
// Error fields, when set, are returned by the corresponding method.
type FakeSessionRepo struct {
	lock      sync.Mutex
	persisted *session.PersistedSession

	ReadErr  error
	WriteErr error
	ClearErr error

	ReadCalls  int
	WriteCalls int
	ClearCalls int
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{}
}

// Seed pre-loads a persisted session, as if a previous run had written it.
func (r *FakeSessionRepo) Seed(persisted *session.PersistedSession) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.persisted = persisted
}

func (r *FakeSessionRepo) Read() (*session.PersistedSession, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.ReadCalls++
	if r.ReadErr != nil {
		return nil, r.ReadErr
	}
	if r.persisted == nil {
		return nil, nil
	}
	persisted := *r.persisted
	return &persisted, nil
}

func (r *FakeSessionRepo) Write(persisted *session.PersistedSession) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.WriteCalls++
	if r.WriteErr != nil {
		return r.WriteErr
	}
	stored := *persisted
	r.persisted = &stored
	return nil
}

func (r *FakeSessionRepo) Clear() error {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.ClearCalls++
	if r.ClearErr != nil {
		return r.ClearErr
	}
	r.persisted = nil
	return nil
}

// Stored returns a copy of what is currently persisted, or nil.
func (r *FakeSessionRepo) Stored() *session.PersistedSession {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.persisted == nil {
		return nil
	}
	persisted := *r.persisted
	return &persisted
}
