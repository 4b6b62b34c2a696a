package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront-client/internal/gateway"
	pkgerrors "github.com/angelmondragon/storefront-client/pkg/errors"
	"github.com/angelmondragon/storefront-client/pkg/logger"
	"github.com/angelmondragon/storefront-client/pkg/metrics"
)

func TestRequestIDAdoptsClientUUID(t *testing.T) {
	var seen string
	handler := RequestID(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = w.Header().Get(gateway.HeaderRequestID)
	}))

	minted := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	req.Header.Set(gateway.HeaderRequestID, minted)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if got := resp.Header().Get(gateway.HeaderRequestID); got != minted || seen != minted {
		t.Fatalf("expected client id %q, got %q", minted, got)
	}

	for _, inbound := range []string{"", "req-1", "abc\nlevel=error"} {
		req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
		req.Header.Set(gateway.HeaderRequestID, inbound)
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		got := resp.Header().Get(gateway.HeaderRequestID)
		if _, err := uuid.Parse(got); err != nil || got == inbound {
			t.Fatalf("inbound %q: expected fresh uuid, got %q", inbound, got)
		}
	}
}

func TestRecovererWritesInternalEnvelopeAndCounts500(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewHTTPMetrics(reg, reg)
	handler := Logging(logger.Nop(), m)(Recoverer(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/orders", nil))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
	var payload struct {
		Success bool   `json:"success"`
		Code    string `json:"code"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Success || payload.Code != string(pkgerrors.CodeInternal) {
		t.Fatalf("unexpected envelope %+v", payload)
	}
	if !observedStatus(t, reg, "500") {
		t.Fatal("expected a 500 observation")
	}
}

func TestRecovererKeepsCommittedStatus(t *testing.T) {
	handler := Logging(logger.Nop(), nil)(Recoverer(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		panic("late")
	})))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusAccepted || resp.Body.Len() != 0 {
		t.Fatalf("expected untouched 202, got %d %q", resp.Code, resp.Body.String())
	}
}

func TestRecovererPassesAbortThrough(t *testing.T) {
	handler := Recoverer(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Fatalf("expected ErrAbortHandler, got %v", rec)
		}
	}()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

func observedStatus(t *testing.T, reg *prometheus.Registry, status string) bool {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, fam := range families {
		for _, metric := range fam.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "status" && label.GetValue() == status {
					return true
				}
			}
		}
	}
	return false
}

func TestLoggingRecordsStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewHTTPMetrics(reg, reg)
	handler := Logging(logger.Nop(), m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !observedStatus(t, reg, "418") {
		t.Fatal("expected a 418 observation")
	}
}
