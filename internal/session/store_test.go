package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/angelmondragon/storefront-client/internal/gateway"
	"github.com/angelmondragon/storefront-client/internal/present"
	"github.com/angelmondragon/storefront-client/internal/storage"
	"github.com/angelmondragon/storefront-client/pkg/auth"
	"github.com/angelmondragon/storefront-client/pkg/config"
	"github.com/angelmondragon/storefront-client/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	login    func(ctx context.Context, req gateway.LoginRequest) (*gateway.AuthPayload, error)
	register func(ctx context.Context, req gateway.RegisterRequest) (*gateway.AuthPayload, error)
	me       func(ctx context.Context) (*gateway.User, error)
	calls    atomic.Int32
}

func (f *fakeGateway) Login(ctx context.Context, req gateway.LoginRequest) (*gateway.AuthPayload, error) {
	f.calls.Add(1)
	return f.login(ctx, req)
}

func (f *fakeGateway) Register(ctx context.Context, req gateway.RegisterRequest) (*gateway.AuthPayload, error) {
	f.calls.Add(1)
	return f.register(ctx, req)
}

func (f *fakeGateway) Me(ctx context.Context) (*gateway.User, error) {
	f.calls.Add(1)
	return f.me(ctx)
}

func okPayload(email, token string) *gateway.AuthPayload {
	return &gateway.AuthPayload{
		Token: token,
		User:  gateway.User{ID: gofakeit.UUID(), Email: email, Name: gofakeit.Name(), Role: enums.RoleCustomer},
	}
}

type harness struct {
	store     *Store
	gw        *fakeGateway
	persister *storage.Persister
	backing   *storage.MemoryStore
}

func newHarness(t *testing.T, backing *storage.MemoryStore) *harness {
	t.Helper()
	if backing == nil {
		backing = storage.NewMemoryStore()
	}
	p, err := storage.NewPersister(storage.PersisterParams{Store: backing})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	gw := &fakeGateway{}
	store, err := NewStore(Params{Gateway: gw, Persister: p})
	require.NoError(t, err)
	return &harness{store: store, gw: gw, persister: p, backing: backing}
}

func TestLoginRejectsInvalidInputLocally(t *testing.T) {
	h := newHarness(t, nil)

	err := h.store.Login(context.Background(), "not-an-email", "short")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	details := pkgerrors.As(err).Details().(map[string]string)
	assert.Contains(t, details, "email")
	assert.Contains(t, details, "password")
	assert.Zero(t, h.gw.calls.Load(), "validation errors must not reach the network")
	assert.Equal(t, enums.AuthStatusAnonymous, h.store.Snapshot().Status)
}

func TestLoginSuccessPersistsAndRehydrates(t *testing.T) {
	h := newHarness(t, nil)
	email := gofakeit.Email()
	h.gw.login = func(_ context.Context, req gateway.LoginRequest) (*gateway.AuthPayload, error) {
		assert.Equal(t, email, req.Email)
		return okPayload(email, "tok-1"), nil
	}

	var kinds []enums.AuthStatus
	h.store.Subscribe(func(ev Event) { kinds = append(kinds, ev.Snapshot.Status) })

	require.NoError(t, h.store.Login(context.Background(), email, "password123"))
	snap := h.store.Snapshot()
	assert.True(t, snap.IsAuthenticated())
	assert.Equal(t, enums.AuthStatusAuthenticated, snap.Status)
	assert.Equal(t, "tok-1", h.store.Token())
	assert.Equal(t, email, h.store.User().Email)
	assert.Equal(t, []enums.AuthStatus{enums.AuthStatusAuthenticating, enums.AuthStatusAuthenticated}, kinds)

	require.NoError(t, h.persister.Flush(context.Background()))
	next := newHarness(t, h.backing)
	require.NoError(t, next.store.Hydrate(context.Background()))
	rehydrated := next.store.Snapshot()
	assert.Equal(t, "tok-1", rehydrated.Token)
	assert.Equal(t, snap.User, rehydrated.User)
	assert.True(t, rehydrated.IsAuthenticated())
}

func TestLoginFailureLeavesAnonymous(t *testing.T) {
	h := newHarness(t, nil)
	h.gw.login = func(context.Context, gateway.LoginRequest) (*gateway.AuthPayload, error) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	err := h.store.Login(context.Background(), "ana@example.com", "password123")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
	snap := h.store.Snapshot()
	assert.False(t, snap.IsAuthenticated())
	assert.Nil(t, snap.User)
	assert.Equal(t, enums.AuthStatusAnonymous, snap.Status)

	require.NoError(t, h.persister.Flush(context.Background()))
	_, err = h.backing.Get(context.Background(), storage.KeySession)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLoginMissingTokenIsInternal(t *testing.T) {
	h := newHarness(t, nil)
	h.gw.login = func(context.Context, gateway.LoginRequest) (*gateway.AuthPayload, error) {
		return okPayload("ana@example.com", ""), nil
	}
	err := h.store.Login(context.Background(), "ana@example.com", "password123")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInternal))
	assert.False(t, h.store.IsAuthenticated())
}

func TestRegisterConflictIsDistinct(t *testing.T) {
	h := newHarness(t, nil)
	h.gw.register = func(context.Context, gateway.RegisterRequest) (*gateway.AuthPayload, error) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	}

	err := h.store.Register(context.Background(), "Ana", "ana@example.com", "password123")
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())
	assert.Equal(t, "email already registered", typed.UserMessage())
	assert.False(t, h.store.IsAuthenticated())

	err = h.store.Register(context.Background(), " ", "ana@example.com", "password123")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestOverlappingLoginIsRejected(t *testing.T) {
	h := newHarness(t, nil)
	release := make(chan struct{})
	entered := make(chan struct{})
	h.gw.login = func(context.Context, gateway.LoginRequest) (*gateway.AuthPayload, error) {
		close(entered)
		<-release
		return okPayload("ana@example.com", "tok"), nil
	}

	done := make(chan error, 1)
	go func() { done <- h.store.Login(context.Background(), "ana@example.com", "password123") }()
	<-entered

	err := h.store.Login(context.Background(), "bia@example.com", "password123")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	assert.Equal(t, enums.AuthStatusAuthenticating, h.store.Snapshot().Status)

	close(release)
	require.NoError(t, <-done)
	assert.True(t, h.store.IsAuthenticated())
}

func TestLogoutDuringLoginDiscardsLateResponse(t *testing.T) {
	h := newHarness(t, nil)
	release := make(chan struct{})
	entered := make(chan struct{})
	h.gw.login = func(context.Context, gateway.LoginRequest) (*gateway.AuthPayload, error) {
		close(entered)
		<-release
		return okPayload("ana@example.com", "late-token"), nil
	}

	done := make(chan error, 1)
	go func() { done <- h.store.Login(context.Background(), "ana@example.com", "password123") }()
	<-entered
	h.store.Logout(context.Background())
	close(release)

	err := <-done
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	snap := h.store.Snapshot()
	assert.False(t, snap.IsAuthenticated())
	assert.Equal(t, enums.AuthStatusAnonymous, snap.Status)
}

func TestFailedLoginKeepsErrorWhenSessionClearedMidFlight(t *testing.T) {
	h := newHarness(t, nil)
	h.gw.login = func(ctx context.Context, _ gateway.LoginRequest) (*gateway.AuthPayload, error) {
		h.store.Logout(ctx)
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	err := h.store.Login(context.Background(), "ana@example.com", "password123")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
	assert.Equal(t, enums.AuthStatusAnonymous, h.store.Snapshot().Status)
}

func TestWrongPasswordWhileSignedInKeepsSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req gateway.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		if req.Password != "password123" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"success":false,"message":"invalid credentials","code":"UNAUTHORIZED"}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"data":{"token":"tok-live","user":{"id":"u-1","email":"user@x.com","role":"customer"}}}`))
	}))
	t.Cleanup(srv.Close)

	p, err := storage.NewPersister(storage.PersisterParams{Store: storage.NewMemoryStore()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	nav := present.NewRecorder("/account")
	var st *Store
	gw, err := gateway.NewClient(srv.URL,
		gateway.WithNavigator(nav),
		gateway.WithTokenSource(gateway.TokenSourceFunc(func() string { return st.Token() })),
	)
	require.NoError(t, err)
	st, err = NewStore(Params{Gateway: gw, Persister: p})
	require.NoError(t, err)
	gw.OnUnauthorized(st.Logout)

	ctx := context.Background()
	require.NoError(t, st.Login(ctx, "user@x.com", "password123"))

	err = st.Login(ctx, "user@x.com", "wrongpass")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized), "got %v", err)
	assert.True(t, st.IsAuthenticated())
	assert.Equal(t, "tok-live", st.Token())
	assert.Equal(t, enums.AuthStatusAuthenticated, st.Snapshot().Status)
	assert.Empty(t, nav.Navigations())
}

func TestLogoutInvariants(t *testing.T) {
	h := newHarness(t, nil)
	h.gw.login = func(context.Context, gateway.LoginRequest) (*gateway.AuthPayload, error) {
		return okPayload("ana@example.com", "tok"), nil
	}
	require.NoError(t, h.store.Login(context.Background(), "ana@example.com", "password123"))

	var events []EventKind
	h.store.Subscribe(func(ev Event) { events = append(events, ev.Kind) })
	h.store.Logout(context.Background())

	snap := h.store.Snapshot()
	assert.Nil(t, snap.User)
	assert.Empty(t, snap.Token)
	assert.False(t, snap.IsAuthenticated())
	assert.Equal(t, []EventKind{EventLoggedOut}, events)

	require.NoError(t, h.persister.Flush(context.Background()))
	_, err := h.backing.Get(context.Background(), storage.KeySession)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// idempotent
	h.store.Logout(context.Background())
	assert.False(t, h.store.IsAuthenticated())
}

func seedSession(t *testing.T, token string) *harness {
	t.Helper()
	backing := storage.NewMemoryStore()
	seed := newHarness(t, backing)
	seed.gw.login = func(context.Context, gateway.LoginRequest) (*gateway.AuthPayload, error) {
		return okPayload("ana@example.com", token), nil
	}
	require.NoError(t, seed.store.Login(context.Background(), "ana@example.com", "password123"))
	require.NoError(t, seed.persister.Flush(context.Background()))

	h := newHarness(t, backing)
	require.NoError(t, h.store.Hydrate(context.Background()))
	require.True(t, h.store.IsAuthenticated())
	return h
}

func TestCheckAuthInvalidTokenClearsSession(t *testing.T) {
	h := seedSession(t, "opaque-token")
	h.gw.me = func(context.Context) (*gateway.User, error) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid token")
	}

	err := h.store.CheckAuth(context.Background())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
	snap := h.store.Snapshot()
	assert.Equal(t, enums.AuthStatusAnonymous, snap.Status)
	assert.Nil(t, snap.User)
	assert.Empty(t, snap.Token)
}

func TestCheckAuthConfirmsAndRefreshesUser(t *testing.T) {
	h := seedSession(t, "opaque-token")
	h.gw.me = func(context.Context) (*gateway.User, error) {
		return &gateway.User{ID: "u-1", Email: "ana@example.com", Name: "Ana Updated", Role: enums.RoleCustomer}, nil
	}

	require.NoError(t, h.store.CheckAuth(context.Background()))
	assert.Equal(t, "Ana Updated", h.store.User().Name)
	assert.Equal(t, enums.AuthStatusAuthenticated, h.store.Snapshot().Status)
}

func TestCheckAuthSkipsNetworkForExpiredJWT(t *testing.T) {
	cfg := config.JWTConfig{Secret: "s", Issuer: "test", ExpirationMinutes: 5}
	expired, err := auth.MintAccessToken(cfg, time.Now().Add(-time.Hour), auth.AccessTokenPayload{UserID: "u-1", Role: enums.RoleCustomer})
	require.NoError(t, err)

	h := seedSession(t, expired)
	h.gw.me = func(context.Context) (*gateway.User, error) {
		t.Fatal("expired token must not hit the network")
		return nil, nil
	}
	before := h.gw.calls.Load()

	err = h.store.CheckAuth(context.Background())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
	assert.False(t, h.store.IsAuthenticated())
	assert.Equal(t, before, h.gw.calls.Load())
}

func TestCheckAuthConcurrentCallersShareOneRequest(t *testing.T) {
	h := seedSession(t, "opaque-token")
	release := make(chan struct{})
	var meCalls atomic.Int32
	h.gw.me = func(context.Context) (*gateway.User, error) {
		meCalls.Add(1)
		<-release
		return &gateway.User{ID: "u-1"}, nil
	}

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = h.store.CheckAuth(context.Background())
		}(i)
	}
	require.Eventually(t, func() bool { return meCalls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), meCalls.Load())
	for _, err := range errs {
		assert.NoError(t, err)
	}
}

func TestCheckAuthWithoutTokenIsNoop(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.store.CheckAuth(context.Background()))
	assert.Zero(t, h.gw.calls.Load())
}

func TestHydrateIgnoresCorruptRecord(t *testing.T) {
	backing := storage.NewMemoryStore()
	require.NoError(t, backing.Put(context.Background(), storage.KeySession, []byte("not json")))
	h := newHarness(t, backing)
	require.NoError(t, h.store.Hydrate(context.Background()))
	assert.False(t, h.store.IsAuthenticated())
}

func TestHydrateLegacyLayout(t *testing.T) {
	backing := storage.NewMemoryStore()
	legacy := `{"state":{"user":{"id":"u-1","email":"ana@example.com","name":"Ana","role":"customer"},"token":"legacy","isAuthenticated":true},"version":0}`
	require.NoError(t, backing.Put(context.Background(), storage.KeySession, []byte(legacy)))
	h := newHarness(t, backing)
	require.NoError(t, h.store.Hydrate(context.Background()))
	assert.Equal(t, "legacy", h.store.Token())
	assert.Equal(t, "u-1", h.store.User().ID)
}

func TestNewStoreRequiresDependencies(t *testing.T) {
	_, err := NewStore(Params{})
	assert.Error(t, err)
	_, err = NewStore(Params{Gateway: &fakeGateway{}})
	assert.Error(t, err)
}
