package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
)

// envelope is the remote service's uniform response wrapper.
type envelope struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message,omitempty"`
	Error      string          `json:"error,omitempty"`
	Code       string          `json:"code,omitempty"`
	Pagination *Pagination     `json:"pagination,omitempty"`
}

// Result is a decoded envelope: either Value or Err is meaningful.
type Result[T any] struct {
	Value      T
	Message    string
	Pagination *Pagination
	Status     int
	Authorized bool
	Err        *pkgerrors.Error
}

// OK reports whether the call succeeded.
func (r Result[T]) OK() bool {
	return r.Err == nil
}

// Unwrap returns the value or the typed error as a plain error.
func (r Result[T]) Unwrap() (T, error) {
	if r.Err != nil {
		var zero T
		return zero, &StatusError{Status: r.Status, Authorized: r.Authorized, Err: r.Err}
	}
	return r.Value, nil
}

// StatusError is a failed call with the HTTP status it came back with. Status
// is zero when the request never got a response. Authorized is set when the
// request carried a bearer token.
type StatusError struct {
	Status     int
	Authorized bool
	Err        *pkgerrors.Error
}

func (e *StatusError) Error() string { return e.Err.Error() }
func (e *StatusError) Unwrap() error { return e.Err }

// Surfaced reports whether the client's built-in interceptor already showed
// the shopper a notice or redirect for err.
func Surfaced(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	switch {
	case se.Status == 0:
		return se.Err.Code() == pkgerrors.CodeDependency
	case se.Status == http.StatusUnauthorized:
		return se.Authorized
	case se.Status == http.StatusForbidden:
		return true
	}
	return se.Status >= http.StatusInternalServerError
}

func failure[T any](status int, err *pkgerrors.Error) Result[T] {
	return Result[T]{Status: status, Err: err}
}

// errorFromEnvelope classifies a failed response. A recognised code in the
// body wins over the status mapping.
func errorFromEnvelope(status int, env *envelope) *pkgerrors.Error {
	code := pkgerrors.FromStatus(status)
	msg := ""
	var details any
	if env != nil {
		if known, ok := knownCode(env.Code); ok {
			code = known
		} else if status < 400 {
			code = pkgerrors.CodeInternal
		}
		msg = strings.TrimSpace(env.Message)
		if msg == "" {
			msg = strings.TrimSpace(env.Error)
		} else if env.Error != "" && env.Error != msg {
			details = env.Error
		}
	}
	if msg == "" {
		msg = pkgerrors.MetadataFor(code).PublicMessage
	}
	e := pkgerrors.New(code, msg)
	if details != nil {
		e = e.WithDetails(details)
	}
	return e
}

func knownCode(raw string) (pkgerrors.Code, bool) {
	code := pkgerrors.Code(strings.ToUpper(strings.TrimSpace(raw)))
	switch code {
	case pkgerrors.CodeValidation, pkgerrors.CodeUnauthorized, pkgerrors.CodeForbidden,
		pkgerrors.CodeNotFound, pkgerrors.CodeConflict, pkgerrors.CodePrecondition,
		pkgerrors.CodeRateLimit, pkgerrors.CodeInternal, pkgerrors.CodeDependency:
		return code, true
	}
	return "", false
}
