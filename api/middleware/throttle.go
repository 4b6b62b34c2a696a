package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-client/api/responses"
	"github.com/angelmondragon/storefront-client/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
	"github.com/angelmondragon/storefront-client/pkg/logger"
	pkgredis "github.com/angelmondragon/storefront-client/pkg/redis"
)

const maxCredentialBody = 16 << 10

// Throttle caps credential attempts on one auth route, counted per client
// address and per submitted email over a fixed window.
type Throttle struct {
	Route    string
	Window   time.Duration
	PerIP    int
	PerEmail int
}

// ThrottleFor builds the throttle for route from the dev server limits.
func ThrottleFor(route string, cfg config.DevServerConfig) Throttle {
	return Throttle{
		Route:    strings.ToLower(strings.TrimSpace(route)),
		Window:   cfg.AuthWindow,
		PerIP:    cfg.AuthIPLimit,
		PerEmail: cfg.AuthEmailLimit,
	}
}

func (t Throttle) disabled() bool {
	return t.Window <= 0 || (t.PerIP <= 0 && t.PerEmail <= 0)
}

// Middleware enforces the throttle. Client addresses come from r.RemoteAddr,
// so chi's RealIP must run first when the server sits behind a proxy.
func (t Throttle) Middleware(store pkgredis.CounterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if t.disabled() || store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if t.PerIP > 0 {
				if addr := remoteHost(r); addr != "" {
					if !t.admit(w, r, store, logg, "ip", addr, t.PerIP) {
						return
					}
				}
			}

			if t.PerEmail > 0 {
				body, err := io.ReadAll(io.LimitReader(r.Body, maxCredentialBody+1))
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "could not read request body"))
					return
				}
				if len(body) > maxCredentialBody {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "request body too large"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))

				if email := credentialEmail(body); email != "" {
					if !t.admit(w, r, store, logg, "email", emailDigest(email), t.PerEmail) {
						return
					}
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// admit counts one attempt for subject and writes the rejection when the
// window is exhausted.
func (t Throttle) admit(w http.ResponseWriter, r *http.Request, store pkgredis.CounterStore, logg *logger.Logger, scope, subject string, limit int) bool {
	ctx := r.Context()
	key := store.RateLimitKey(t.Route + ":" + scope + ":" + subject)
	attempts, err := store.IncrWithTTL(ctx, key, t.Window)
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "throttle store unavailable"))
		return false
	}
	if attempts <= int64(limit) {
		return true
	}

	if logg != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"route":    t.Route,
			"scope":    scope,
			"attempts": attempts,
			"limit":    limit,
		}), "auth.throttled")
	}
	retryAfter := int((t.Window + time.Second - 1) / time.Second)
	w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
	return false
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}

// credentialEmail reads the email field shared by the login and register
// payloads. Malformed bodies yield "" and are left to the handler.
func credentialEmail(body []byte) string {
	var creds struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &creds); err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(creds.Email))
}

// emailDigest keeps raw addresses out of counter keys.
func emailDigest(email string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailto:"+email)).String()
}
