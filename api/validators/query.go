package validators

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
	"github.com/angelmondragon/storefront-client/pkg/pagination"
)

// PageQuery reads ?page and ?limit into normalized pagination params. Absent
// or zero values fall back to page 1 and defaultLimit. A limit over
// pagination.MaxLimit is rejected rather than silently clamped.
func PageQuery(r *http.Request, defaultLimit int) (pagination.Params, error) {
	q := r.URL.Query()
	page, err := countParam(q, "page")
	if err != nil {
		return pagination.Params{}, err
	}
	limit, err := countParam(q, "limit")
	if err != nil {
		return pagination.Params{}, err
	}
	if limit > pagination.MaxLimit {
		return pagination.Params{}, pkgerrors.New(pkgerrors.CodeValidation, "limit is too large").
			WithDetails(map[string]any{"field": "limit", "max": pagination.MaxLimit})
	}
	return pagination.Normalize(page, limit, defaultLimit), nil
}

func countParam(q url.Values, key string) (int, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, key+" must be a non-negative integer").
			WithDetails(map[string]any{"field": key})
	}
	return value, nil
}
