package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-client/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
	"github.com/angelmondragon/storefront-client/pkg/logger"
	pkgredis "github.com/angelmondragon/storefront-client/pkg/redis"
)

func credentialRequest(addr, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	req.RemoteAddr = addr
	return req
}

func okHandler(t *testing.T, wantBody string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, wantBody, string(body), "handler must see the original body")
		w.WriteHeader(http.StatusOK)
	})
}

func TestThrottleForReadsDevServerLimits(t *testing.T) {
	th := ThrottleFor(" Login ", config.DevServerConfig{AuthWindow: time.Minute, AuthIPLimit: 30, AuthEmailLimit: 5})
	assert.Equal(t, Throttle{Route: "login", Window: time.Minute, PerIP: 30, PerEmail: 5}, th)
}

func TestThrottleCountsEmailCaseInsensitively(t *testing.T) {
	store := pkgredis.NewMemory()
	th := Throttle{Route: "login", Window: time.Minute, PerEmail: 2}
	body := `{"email":"Ana@Example.com ","password":"secret123"}`
	handler := th.Middleware(store, logger.Nop())(okHandler(t, body))

	addrs := []string{"10.0.0.1:1000", "10.0.0.2:1000", "10.0.0.3:1000"}
	for i, addr := range addrs {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, credentialRequest(addr, body))
		if i < 2 {
			assert.Equal(t, http.StatusOK, rec.Code, "attempt %d", i)
			continue
		}
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "60", rec.Header().Get("Retry-After"))
		var payload struct {
			Success bool   `json:"success"`
			Code    string `json:"code"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
		assert.False(t, payload.Success)
		assert.Equal(t, string(pkgerrors.CodeRateLimit), payload.Code)
	}

	// the counter lives under the storefront namespace, keyed on a digest
	n, err := store.IncrWithTTL(context.Background(), store.RateLimitKey("login:email:"+emailDigest("ana@example.com")), time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.NotContains(t, store.RateLimitKey("login:email:"+emailDigest("ana@example.com")), "ana@")
}

func TestThrottleLimitsPerAddress(t *testing.T) {
	store := pkgredis.NewMemory()
	th := Throttle{Route: "register", Window: 30 * time.Second, PerIP: 1}
	handler := th.Middleware(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, credentialRequest("5.6.7.8:1234", `{"email":"a@b.co"}`))
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, credentialRequest("5.6.7.8:4321", `{"email":"c@d.co"}`))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, credentialRequest("9.9.9.9:1234", `{"email":"a@b.co"}`))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestThrottleRoutesCountSeparately(t *testing.T) {
	store := pkgredis.NewMemory()
	body := `{"email":"ana@example.com"}`
	login := Throttle{Route: "login", Window: time.Minute, PerEmail: 1}.Middleware(store, nil)(okHandler(t, body))
	register := Throttle{Route: "register", Window: time.Minute, PerEmail: 1}.Middleware(store, nil)(okHandler(t, body))

	for _, h := range []http.Handler{login, register} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, credentialRequest("1.1.1.1:1", body))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestThrottleLeavesMalformedBodyToHandler(t *testing.T) {
	th := Throttle{Route: "login", Window: time.Minute, PerEmail: 1}
	handler := th.Middleware(pkgredis.NewMemory(), nil)(okHandler(t, "not json"))
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, credentialRequest("1.1.1.1:1", "not json"))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestThrottleRejectsOversizedBody(t *testing.T) {
	th := Throttle{Route: "login", Window: time.Minute, PerEmail: 1}
	handler := th.Middleware(pkgredis.NewMemory(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("oversized body reached handler")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, credentialRequest("1.1.1.1:1", `{"email":"`+strings.Repeat("a", maxCredentialBody)+`"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type failingCounter struct{ *pkgredis.Memory }

func (failingCounter) IncrWithTTL(context.Context, string, time.Duration) (int64, error) {
	return 0, errors.New("connection refused")
}

func TestThrottleStoreOutageIsDependencyError(t *testing.T) {
	th := Throttle{Route: "login", Window: time.Minute, PerIP: 5}
	handler := th.Middleware(failingCounter{pkgredis.NewMemory()}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("request admitted without a counter")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, credentialRequest("1.1.1.1:1", `{}`))
	var payload struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, string(pkgerrors.CodeDependency), payload.Code)
}

func TestThrottleDisabledPassesThrough(t *testing.T) {
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	handler := Throttle{Route: "login"}.Middleware(pkgredis.NewMemory(), nil)(next)
	assert.NotNil(t, handler)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, credentialRequest("1.1.1.1:1", `{}`))
	assert.Equal(t, http.StatusOK, rec.Code)
}
