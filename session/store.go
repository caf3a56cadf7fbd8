package session

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	errs "github.com/jrsteele09/go-erp-client/internal/errors"
)

// Store holds the session singleton: the current Principal, the current
// Credential, and the hydration flag. It is the only writer of session
// state; every other component goes through its methods.
//
// All methods are safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	repo       Repo
	principal  *Principal
	credential *Credential
	hydrated   bool
	loggingIn  bool
}

// NewStore creates a Store backed by the given persistence adapter.
func NewStore(repo Repo) (*Store, error) {
	if repo == nil {
		return nil, errors.New("[NewStore] persistence repo is required")
	}
	return &Store{repo: repo}, nil
}

// Hydrate restores the persisted session, if any, and marks the store
// hydrated. It runs the persistence read at most once: calling Hydrate again
// is a no-op, and the hydrated flag never flips back to false.
//
// A failed or corrupt read is treated as "no session found", not as a fatal
// error - the user simply starts unauthenticated.
func (s *Store) Hydrate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hydrated {
		return nil
	}
	// Whatever the read outcome, hydration completes exactly once.
	defer func() { s.hydrated = true }()

	persisted, err := s.repo.Read()
	if err != nil {
		log.Warn().Err(err).Msg("session hydration read failed, starting unauthenticated")
		return nil
	}
	if persisted == nil {
		return nil
	}
	if !persisted.Credential.Complete() {
		// A partial credential must never have been written; discard it.
		log.Warn().Msg("persisted session has incomplete credential, discarding")
		_ = s.repo.Clear()
		return nil
	}

	principal := persisted.Principal
	credential := persisted.Credential
	s.principal = &principal
	s.credential = &credential
	return nil
}

// Login sets the principal and credential atomically and persists them.
func (s *Store) Login(principal Principal, credential Credential) error {
	if !credential.Complete() {
		return errors.Wrap(errs.ErrIncompleteCredential, "[Store.Login]")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.principal = &principal
	s.credential = &credential

	if err := s.repo.Write(&PersistedSession{Principal: principal, Credential: credential}); err != nil {
		return errors.Wrap(err, "[Store.Login] persisting session")
	}
	return nil
}

// SetCredential replaces only the credential after a successful renewal,
// leaving the principal untouched, and persists the update.
//
// On a store that is no longer authenticated this is a guarded no-op: a
// renewal that completes after logout must not resurrect the session.
func (s *Store) SetCredential(credential Credential) error {
	if !credential.Complete() {
		return errors.Wrap(errs.ErrIncompleteCredential, "[Store.SetCredential]")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.principal == nil || s.credential == nil {
		log.Debug().Msg("ignoring credential update on logged-out store")
		return nil
	}

	s.credential = &credential
	if err := s.repo.Write(&PersistedSession{Principal: *s.principal, Credential: credential}); err != nil {
		return errors.Wrap(err, "[Store.SetCredential] persisting session")
	}
	return nil
}

// SetPrincipal replaces the principal wholesale after an identity refresh
// (e.g. a fresh /auth/me read), keeping the current credential. Like
// SetCredential it is a no-op on a logged-out store.
func (s *Store) SetPrincipal(principal Principal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.principal == nil || s.credential == nil {
		log.Debug().Msg("ignoring principal update on logged-out store")
		return nil
	}

	s.principal = &principal
	if err := s.repo.Write(&PersistedSession{Principal: principal, Credential: *s.credential}); err != nil {
		return errors.Wrap(err, "[Store.SetPrincipal] persisting session")
	}
	return nil
}

// SetLoggingIn flags that a login call is in flight. Guards render their
// placeholder while the flag is set.
func (s *Store) SetLoggingIn(loggingIn bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loggingIn = loggingIn
}

// Logout clears the principal and credential from memory and from the
// persistence adapter. The in-memory state is cleared synchronously: any
// snapshot taken after Logout returns is unauthenticated, even if the
// persistence clear failed.
func (s *Store) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.principal = nil
	s.credential = nil

	if err := s.repo.Clear(); err != nil {
		return errors.Wrap(err, "[Store.Logout] clearing persisted session")
	}
	return nil
}

// Snapshot returns a consistent copy of the session state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := State{Hydrated: s.hydrated, LoggingIn: s.loggingIn}
	if s.principal != nil {
		principal := *s.principal
		st.Principal = &principal
	}
	if s.credential != nil {
		credential := *s.credential
		st.Credential = &credential
	}
	return st
}
