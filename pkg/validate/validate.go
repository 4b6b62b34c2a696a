package validate

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
	"github.com/go-playground/validator/v10"
)

// FieldErrors maps a JSON field name to a human-readable problem.
type FieldErrors map[string]string

// Empty reports whether no field failed.
func (f FieldErrors) Empty() bool {
	return len(f) == 0
}

// Fields returns the failing field names in sorted order.
func (f FieldErrors) Fields() []string {
	out := make([]string, 0, len(f))
	for k := range f {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Err converts the field errors into a validation error, or nil when empty.
func (f FieldErrors) Err() error {
	if f.Empty() {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, f.summary()).WithDetails(map[string]string(f))
}

func (f FieldErrors) summary() string {
	parts := make([]string, 0, len(f))
	for _, field := range f.Fields() {
		parts = append(parts, field+" "+f[field])
	}
	return strings.Join(parts, "; ")
}

// Validator wraps go-playground/validator with JSON field naming.
type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	return &Validator{v: v}
}

// Engine exposes the underlying validator for registering custom rules.
func (val *Validator) Engine() *validator.Validate {
	return val.v
}

// Struct validates s and returns per-field problems. Non-field failures
// (e.g. passing a non-struct) are reported under "_".
func (val *Validator) Struct(s any) FieldErrors {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}
	out := FieldErrors{}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		out["_"] = err.Error()
		return out
	}
	for _, fieldErr := range errs {
		out[fieldErr.Field()] = Message(fieldErr)
	}
	return out
}

// Message renders one rule failure.
func Message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "is required"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "email":
		return "must be a valid email"
	case "oneof":
		return fmt.Sprintf("must be one of %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	}
	return "is invalid"
}
