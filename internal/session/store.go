package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/storefront-client/internal/gateway"
	"github.com/angelmondragon/storefront-client/internal/observe"
	"github.com/angelmondragon/storefront-client/internal/storage"
	"github.com/angelmondragon/storefront-client/pkg/auth"
	"github.com/angelmondragon/storefront-client/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
	"github.com/angelmondragon/storefront-client/pkg/logger"
	"github.com/angelmondragon/storefront-client/pkg/validate"
	"golang.org/x/sync/singleflight"
)

const defaultExpiryLeeway = 30 * time.Second

// Gateway is the slice of the remote API the session needs.
type Gateway interface {
	Login(ctx context.Context, req gateway.LoginRequest) (*gateway.AuthPayload, error)
	Register(ctx context.Context, req gateway.RegisterRequest) (*gateway.AuthPayload, error)
	Me(ctx context.Context) (*gateway.User, error)
}

// Persister is the durable snapshot writer.
type Persister interface {
	Load(ctx context.Context, key string, out any) (bool, error)
	Save(ctx context.Context, key string, v any)
	Remove(key string)
}

// Snapshot is an immutable view of the session.
type Snapshot struct {
	Revision uint64
	User     *gateway.User
	Token    string
	Status   enums.AuthStatus
}

// IsAuthenticated is derived from token presence.
func (s Snapshot) IsAuthenticated() bool {
	return s.Token != ""
}

// EventKind distinguishes session notifications.
type EventKind string

const (
	EventChanged   EventKind = "changed"
	EventLoggedOut EventKind = "logged_out"
)

// Event is delivered to subscribers after every mutation.
type Event struct {
	Kind     EventKind
	Snapshot Snapshot
}

// persisted is the durable layout: {user, token, isAuthenticated}.
type persisted struct {
	User            *gateway.User `json:"user"`
	Token           string        `json:"token"`
	IsAuthenticated bool          `json:"isAuthenticated"`
}

type Params struct {
	Gateway   Gateway
	Persister Persister
	Logger    *logger.Logger
	// ExpiryLeeway treats tokens expiring within the window as expired.
	ExpiryLeeway time.Duration
	Now          func() time.Time
}

// Store owns the shopper's authentication state.
type Store struct {
	api      Gateway
	persist  Persister
	logg     *logger.Logger
	validate *validate.Validator
	leeway   time.Duration
	now      func() time.Time

	mu       sync.Mutex
	emitMu   sync.Mutex
	user     *gateway.User
	token    string
	status   enums.AuthStatus
	revision uint64
	// generation is bumped by Logout; responses from an older generation are dropped.
	generation uint64
	inflight   bool

	checks singleflight.Group
	hub    observe.Hub[Event]
}

func NewStore(params Params) (*Store, error) {
	if params.Gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "session gateway required")
	}
	if params.Persister == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "session persister required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	leeway := params.ExpiryLeeway
	if leeway <= 0 {
		leeway = defaultExpiryLeeway
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		api:      params.Gateway,
		persist:  params.Persister,
		logg:     logg,
		validate: validate.New(),
		leeway:   leeway,
		now:      now,
		status:   enums.AuthStatusAnonymous,
	}, nil
}

// Hydrate restores the persisted session once at startup. A corrupt record is
// logged and ignored. Hydrated sessions are unconfirmed until CheckAuth.
func (s *Store) Hydrate(ctx context.Context) error {
	var rec persisted
	found, err := s.persist.Load(ctx, storage.KeySession, &rec)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "session.hydrate_failed")
		return nil
	}
	if !found || strings.TrimSpace(rec.Token) == "" {
		return nil
	}

	s.mu.Lock()
	s.user = rec.User
	s.token = rec.Token
	s.status = enums.AuthStatusAuthenticated
	s.commitLocked(EventChanged, false)
	return nil
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) IsAuthenticated() bool {
	return s.Snapshot().IsAuthenticated()
}

func (s *Store) User() *gateway.User {
	return s.Snapshot().User
}

// Token implements gateway.TokenSource.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Subscribe registers fn for every session event. fn runs synchronously in
// mutation order and must not mutate the session.
func (s *Store) Subscribe(fn func(Event)) (unsubscribe func()) {
	return s.hub.Subscribe(fn)
}

type loginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type registerInput struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// Login authenticates with email and password. Invalid input is rejected
// locally with CodeValidation.
func (s *Store) Login(ctx context.Context, email, password string) error {
	in := loginInput{Email: strings.TrimSpace(email), Password: password}
	if err := s.validate.Struct(in).Err(); err != nil {
		return err
	}
	ctx = s.logg.WithComponent(ctx, "session")
	return s.authenticate(ctx, "session.login", func(ctx context.Context) (*gateway.AuthPayload, error) {
		return s.api.Login(ctx, gateway.LoginRequest{Email: in.Email, Password: in.Password})
	})
}

// Register creates an account and signs in. A taken email yields CodeConflict.
func (s *Store) Register(ctx context.Context, name, email, password string) error {
	in := registerInput{Name: strings.TrimSpace(name), Email: strings.TrimSpace(email), Password: password}
	if err := s.validate.Struct(in).Err(); err != nil {
		return err
	}
	ctx = s.logg.WithComponent(ctx, "session")
	return s.authenticate(ctx, "session.register", func(ctx context.Context) (*gateway.AuthPayload, error) {
		return s.api.Register(ctx, gateway.RegisterRequest{Name: in.Name, Email: in.Email, Password: in.Password})
	})
}

func (s *Store) authenticate(ctx context.Context, event string, fn func(context.Context) (*gateway.AuthPayload, error)) error {
	gen, prevStatus, err := s.begin()
	if err != nil {
		return err
	}

	payload, err := fn(ctx)
	if err == nil && (payload == nil || strings.TrimSpace(payload.Token) == "") {
		err = pkgerrors.New(pkgerrors.CodeInternal, "authentication response missing token")
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		s.logg.Info(ctx, event+"_discarded")
		if err != nil {
			return err
		}
		return pkgerrors.New(pkgerrors.CodeStateConflict, "session changed during authentication")
	}
	s.inflight = false
	if err != nil {
		s.status = prevStatus
		s.commitLocked(EventChanged, false)
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), event+"_failed")
		return err
	}

	user := payload.User
	s.user = &user
	s.token = payload.Token
	s.status = enums.AuthStatusAuthenticated
	s.commitLocked(EventChanged, true)
	s.logg.Info(s.logg.WithUserID(ctx, user.ID), event)
	return nil
}

// begin claims the single credential-call slot and moves to Authenticating.
func (s *Store) begin() (uint64, enums.AuthStatus, error) {
	s.mu.Lock()
	if s.inflight {
		s.mu.Unlock()
		return 0, "", pkgerrors.New(pkgerrors.CodeStateConflict, "authentication already in progress")
	}
	s.inflight = true
	prev := s.status
	gen := s.generation
	s.status = enums.AuthStatusAuthenticating
	s.commitLocked(EventChanged, false)
	return gen, prev, nil
}

// Logout clears the session unconditionally. Safe to call at any time,
// including from the gateway's unauthorized interceptor.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	s.generation++
	s.inflight = false
	s.user = nil
	s.token = ""
	s.status = enums.AuthStatusAnonymous
	s.persist.Remove(storage.KeySession)
	s.commitLocked(EventLoggedOut, false)
	s.logg.Info(s.logg.WithComponent(ctx, "session"), "session.logout")
}

// CheckAuth confirms a hydrated token with the remote service. Concurrent
// callers share one request, which outlives a caller that gives up. Any
// failure clears the session.
func (s *Store) CheckAuth(ctx context.Context) error {
	flightCtx := context.WithoutCancel(ctx)
	ch := s.checks.DoChan("check", func() (any, error) {
		return nil, s.checkAuth(flightCtx)
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) checkAuth(ctx context.Context) error {
	ctx = s.logg.WithComponent(ctx, "session")

	s.mu.Lock()
	token := s.token
	s.mu.Unlock()
	if token == "" {
		return nil
	}

	if auth.Expired(token, s.now(), s.leeway) {
		s.Logout(ctx)
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "session expired")
	}

	gen, _, err := s.begin()
	if err != nil {
		return err
	}

	user, err := s.api.Me(ctx)
	if err == nil && user == nil {
		err = pkgerrors.New(pkgerrors.CodeInternal, "empty user response")
	}

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		if err != nil {
			return err
		}
		return pkgerrors.New(pkgerrors.CodeStateConflict, "session changed during check")
	}
	if err != nil {
		s.mu.Unlock()
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "session.check_failed")
		s.Logout(ctx)
		return err
	}
	s.inflight = false
	s.user = user
	s.status = enums.AuthStatusAuthenticated
	s.commitLocked(EventChanged, true)
	return nil
}

func (s *Store) snapshotLocked() Snapshot {
	var user *gateway.User
	if s.user != nil {
		u := *s.user
		user = &u
	}
	return Snapshot{Revision: s.revision, User: user, Token: s.token, Status: s.status}
}

// commitLocked bumps the revision, optionally persists, releases s.mu and
// notifies subscribers in mutation order.
func (s *Store) commitLocked(kind EventKind, save bool) {
	s.revision++
	snap := s.snapshotLocked()
	if save {
		s.persist.Save(context.Background(), storage.KeySession, persisted{
			User:            snap.User,
			Token:           snap.Token,
			IsAuthenticated: snap.IsAuthenticated(),
		})
	}
	s.emitMu.Lock()
	s.mu.Unlock()
	defer s.emitMu.Unlock()
	s.hub.Publish(Event{Kind: kind, Snapshot: snap})
}
