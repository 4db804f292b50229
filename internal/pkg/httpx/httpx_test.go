package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/pkg/errs"
)

func TestStatusOf(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", errs.New(errs.KindValidation, "invalid_quantity", "bad"), http.StatusBadRequest, "invalid_quantity"},
		{"validation not found", errs.New(errs.KindValidation, "address_not_found", "x"), http.StatusNotFound, "address_not_found"},
		{"availability", errs.New(errs.KindAvailability, "insufficient_stock", "x"), http.StatusConflict, "insufficient_stock"},
		{"availability not found", errs.New(errs.KindAvailability, "order_not_found", "x"), http.StatusNotFound, "order_not_found"},
		{"security", errs.New(errs.KindSecurityPolicy, "rate_limited", "x"), http.StatusForbidden, "rejected"},
		{"concurrency", errs.New(errs.KindConcurrency, "tx_conflict", "x"), http.StatusServiceUnavailable, "rejected"},
		{"integrity", errs.New(errs.KindIntegrity, "integrity_violation", "x"), http.StatusInternalServerError, "internal_error"},
		{"plain", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, code := StatusOf(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.code, code)
		})
	}
}

func TestSecurityRejectionsLookTheSame(t *testing.T) {
	render := func(err error) string {
		rec := httptest.NewRecorder()
		WriteError(context.Background(), rec, err)
		return rec.Body.String()
	}
	locked := errs.New(errs.KindSecurityPolicy, "authentication_failed", "invalid credentials")
	limited := errs.New(errs.KindSecurityPolicy, "rate_limited", "too many requests")
	assert.Equal(t, render(locked), render(limited))
}

func TestWriteErrorBody(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(context.Background(), rec, errs.New(errs.KindAvailability, "insufficient_stock", "only 2 left"))

	require.Equal(t, http.StatusConflict, rec.Code)
	var body map[string]ErrorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, ErrorBody{Code: "insufficient_stock", Message: "only 2 left"}, body["error"])
}

func TestRequestIdentity(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "198.51.100.4:5123"
	assert.Equal(t, int64(0), UserID(r))
	assert.Equal(t, "198.51.100.4", ClientIP(r))
	assert.Empty(t, SessionToken(r))

	r.Header.Set(HeaderUserID, "42")
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	r.AddCookie(&http.Cookie{Name: SessionCookie, Value: "abc"})
	assert.Equal(t, int64(42), UserID(r))
	assert.Equal(t, "203.0.113.9", ClientIP(r))
	assert.Equal(t, "abc", SessionToken(r))

	r.Header.Set(HeaderUserID, "-1")
	assert.Equal(t, int64(0), UserID(r))
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var v struct {
		Qty int `json:"quantity"`
	}
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quantity":2,"price":"0.01"}`))
	err := DecodeJSON(r, &v)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedBody)
}
