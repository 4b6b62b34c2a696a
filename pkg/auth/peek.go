package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ExpiresAt reads the exp claim without verifying the signature. Clients hold no
// signing secret, so this is only a hint for skipping doomed network calls; the
// server stays authoritative. ok is false for opaque or exp-less tokens.
func ExpiresAt(token string) (time.Time, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return time.Time{}, false
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// Expired reports whether token's exp falls before now+leeway. Tokens whose
// expiry cannot be read are never considered expired here.
func Expired(token string, now time.Time, leeway time.Duration) bool {
	exp, ok := ExpiresAt(token)
	if !ok {
		return false
	}
	return !exp.After(now.Add(leeway))
}
