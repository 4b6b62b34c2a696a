package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-client/api/responses"
	"github.com/angelmondragon/storefront-client/internal/gateway"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
	"github.com/angelmondragon/storefront-client/pkg/logger"
)

// RequestID adopts the id the storefront client minted for the call so both
// sides log the same value. Anything that is not a UUID is replaced.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := uuid.NewString()
			if inbound, err := uuid.Parse(r.Header.Get(gateway.HeaderRequestID)); err == nil {
				reqID = inbound.String()
			}
			w.Header().Set(gateway.HeaderRequestID, reqID)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Recoverer converts a handler panic into an INTERNAL envelope. It sits inside
// Logging so the 500 is counted; http.ErrAbortHandler is passed through.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}

				ctx := r.Context()
				if logg != nil {
					fields := map[string]any{"panic": fmt.Sprint(rec)}
					if rc := chi.RouteContext(ctx); rc != nil && rc.RoutePattern() != "" {
						fields["route"] = rc.RoutePattern()
					}
					logg.Error(logg.WithFields(ctx, fields), "request.panic", fmt.Errorf("panic: %v", rec))
				}
				if sr, ok := w.(*statusRecorder); ok && sr.status != 0 {
					return
				}
				responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeInternal, "unexpected server error"))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
