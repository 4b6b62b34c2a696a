package validators

import (
	"errors"
	"strings"
)

var ErrMissingToken = errors.New("missing bearer token")

// BearerToken extracts the token from an Authorization header value.
func BearerToken(raw string) (string, error) {
	token := strings.TrimSpace(raw)
	scheme, rest, found := strings.Cut(token, " ")
	switch {
	case found && strings.EqualFold(scheme, "bearer"):
		token = strings.TrimSpace(rest)
	case strings.EqualFold(token, "bearer"):
		token = ""
	}
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}
