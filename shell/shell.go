package shell

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-erp-client/authapi"
	"github.com/jrsteele09/go-erp-client/busy"
	"github.com/jrsteele09/go-erp-client/client"
	"github.com/jrsteele09/go-erp-client/internal/config"
	errs "github.com/jrsteele09/go-erp-client/internal/errors"
	"github.com/jrsteele09/go-erp-client/renewal"
	"github.com/jrsteele09/go-erp-client/session"
)

// Shell wires the session store, persistence adapter, request pipeline,
// renewal coordinator, and busy signal into the single injectable service
// the UI consumes. It owns the lifecycle: construct once, Hydrate once at
// startup, and inject wherever guards or feature code need it. Tests build
// a fresh Shell per case instead of sharing ambient globals.
type Shell struct {
	cfg   config.Config
	store *session.Store
	busy  *busy.Coordinator
	http  *client.Client
	api   *authapi.Client
}

// Option defines a function type to modify Shell construction.
type Option func(*options)

type options struct {
	busyOptions   []busy.CoordinatorOption
	clientOptions []client.Option
}

// WithBusyChangeFunc registers a callback for blocking-loader transitions.
func WithBusyChangeFunc(fn func(loading bool)) Option {
	return func(o *options) {
		o.busyOptions = append(o.busyOptions, busy.WithChangeFunc(fn))
	}
}

// WithClientOptions forwards options to the request pipeline.
func WithClientOptions(clientOptions ...client.Option) Option {
	return func(o *options) {
		o.clientOptions = append(o.clientOptions, clientOptions...)
	}
}

// New creates a fully wired Shell on top of the given persistence adapter.
func New(cfg config.Config, repo session.Repo, opts ...Option) (*Shell, error) {
	if cfg == nil {
		return nil, errors.New("[shell.New] config is required")
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	store, err := session.NewStore(repo)
	if err != nil {
		return nil, errors.Wrap(err, "[shell.New] creating session store")
	}

	tokens := authapi.NewTokenClient(cfg)
	coordinator, err := renewal.NewCoordinator(store, tokens.Renew)
	if err != nil {
		return nil, errors.Wrap(err, "[shell.New] creating renewal coordinator")
	}

	httpClient, err := client.New(cfg, store, coordinator, o.clientOptions...)
	if err != nil {
		return nil, errors.Wrap(err, "[shell.New] creating request pipeline")
	}

	api, err := authapi.New(httpClient)
	if err != nil {
		return nil, errors.Wrap(err, "[shell.New] creating auth api client")
	}

	return &Shell{
		cfg:   cfg,
		store: store,
		busy:  busy.NewCoordinator(o.busyOptions...),
		http:  httpClient,
		api:   api,
	}, nil
}

// Session is the accessor shape handed to UI consumers.
type Session struct {
	Principal       *session.Principal
	IsAuthenticated bool
	IsLoading       bool
	IsHydrated      bool
}

// Session returns the current session view.
func (s *Shell) Session() Session {
	st := s.store.Snapshot()
	return Session{
		Principal:       st.Principal,
		IsAuthenticated: st.Authenticated(),
		IsLoading:       st.LoggingIn,
		IsHydrated:      st.Hydrated,
	}
}

// Snapshot exposes the raw session state for route guards.
func (s *Shell) Snapshot() session.State {
	return s.store.Snapshot()
}

// Hydrate restores any persisted session. Call once at startup, before the
// first navigation; guards render placeholders until it completes.
func (s *Shell) Hydrate() error {
	if err := s.store.Hydrate(); err != nil {
		return errors.Wrap(err, "[Shell.Hydrate]")
	}
	if s.store.Snapshot().Authenticated() {
		log.Info().Msg("session restored from storage")
	}
	return nil
}

// Login authenticates against the backend and populates the session store.
// The session reads as "logging in" for the duration of the call.
func (s *Shell) Login(ctx context.Context, username, password string) error {
	s.store.SetLoggingIn(true)
	defer s.store.SetLoggingIn(false)

	principal, credential, err := s.api.Login(ctx, username, password)
	if err != nil {
		return errors.Wrap(err, "[Shell.Login]")
	}
	if err := s.store.Login(principal, credential); err != nil {
		return errors.Wrap(err, "[Shell.Login] storing session")
	}

	log.Info().Str("username", principal.Username).Str("role", string(principal.Role)).Msg("logged in")
	return nil
}

// Logout invalidates the backend session best-effort, then clears local
// state synchronously. After Logout returns, Session() reads unauthenticated
// regardless of what the backend said.
func (s *Shell) Logout(ctx context.Context) error {
	s.api.Logout(ctx)
	if err := s.store.Logout(); err != nil {
		return errors.Wrap(err, "[Shell.Logout]")
	}
	log.Info().Msg("logged out")
	return nil
}

// RefreshIdentity re-reads the current principal from the backend and
// replaces it wholesale, keeping the credential.
func (s *Shell) RefreshIdentity(ctx context.Context) error {
	if !s.store.Snapshot().Authenticated() {
		return errors.Wrap(errs.ErrNotAuthenticated, "[Shell.RefreshIdentity]")
	}
	principal, err := s.api.Me(ctx)
	if err != nil {
		return errors.Wrap(err, "[Shell.RefreshIdentity]")
	}
	if err := s.store.SetPrincipal(principal); err != nil {
		return errors.Wrap(err, "[Shell.RefreshIdentity] storing principal")
	}
	return nil
}

// HTTP returns the wrapped client feature code makes resource calls with.
func (s *Shell) HTTP() *client.Client {
	return s.http
}

// StartLoading increments the shared busy counter.
func (s *Shell) StartLoading() {
	s.busy.StartLoading()
}

// StopLoading decrements the shared busy counter.
func (s *Shell) StopLoading() {
	s.busy.StopLoading()
}

// Busy reports whether the blocking loading indicator should be visible.
func (s *Shell) Busy() bool {
	return s.busy.Loading()
}
