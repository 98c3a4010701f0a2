package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"byund.io/internal/auth"
	"byund.io/internal/ids"
	"byund.io/internal/merchant"
	"byund.io/internal/money"
	"byund.io/internal/paylink"
)

func TestStatusFor(t *testing.T) {
	_, parseErr := money.ParseDecimalToCents("1.234", money.MaxPaymentLinkCents)
	require.Error(t, parseErr)

	tests := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"missing session", &auth.Failure{Reason: auth.ReasonMissing}, http.StatusUnauthorized, "unauthorized"},
		{"revoked key", &auth.Failure{Reason: auth.ReasonRevoked}, http.StatusUnauthorized, "unauthorized"},
		{"scope", &auth.Failure{Reason: auth.ReasonScopeForbidden}, http.StatusForbidden, "forbidden"},
		{"origin", &auth.OriginError{Origin: "https://x"}, http.StatusForbidden, "origin not allowed"},
		{"credentials", auth.ErrInvalidCredentials, http.StatusUnauthorized, "invalid email or password"},
		{"validation", &paylink.ValidationError{Field: "name", Message: "too long"}, http.StatusBadRequest, "name: too long"},
		{"parse", parseErr, http.StatusBadRequest, parseErr.Error()},
		{"merchant input", fmt.Errorf("%w: bad", merchant.ErrInvalidInput), http.StatusBadRequest, "invalid input: bad"},
		{"environment", merchant.ErrInvalidEnvironment, http.StatusBadRequest, merchant.ErrInvalidEnvironment.Error()},
		{"body", badRequest(errors.New("request body is required")), http.StatusBadRequest, "request body is required"},
		{"link missing", paylink.ErrNotFound, http.StatusNotFound, "not found"},
		{"key missing", auth.ErrNotFound, http.StatusNotFound, "not found"},
		{"inactive", paylink.ErrInactive, http.StatusConflict, "payment link is inactive"},
		{"transition", fmt.Errorf("%w: CANCELED -> CONFIRMED", paylink.ErrInvalidTransition), http.StatusConflict, "payment status cannot change"},
		{"onboarding", merchant.ErrOnboardingIncomplete, http.StatusConflict, "onboarding incomplete"},
		{"email taken", auth.ErrEmailTaken, http.StatusConflict, "email already registered"},
		{"configuration", fmt.Errorf("%w: token unset", paylink.ErrConfiguration), http.StatusInternalServerError, "internal error"},
		{"exhausted", ids.ErrExhausted, http.StatusInternalServerError, "internal error"},
		{"unknown", errors.New("db exploded"), http.StatusInternalServerError, "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, msg := statusFor(tt.err)
			assert.Equal(t, tt.code, code)
			assert.Equal(t, tt.msg, msg)
		})
	}
}

func TestHandleErrorHidesInternalCause(t *testing.T) {
	buf := captureLogs(t)
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleError(w, r, fmt.Errorf("%w: settlement token address is not set", paylink.ErrConfiguration))
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/public/links/abc/payments", nil))
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "settlement")
	assert.Contains(t, buf.String(), "settlement token address is not set")
	assert.True(t, strings.Contains(buf.String(), rr.Header().Get("X-Request-Id")))
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"ok", `{"name":"x"}`, ""},
		{"empty", ``, "request body is required"},
		{"unknown field", `{"nope":1}`, "unknown field"},
		{"trailing", `{"name":"x"}{"name":"y"}`, "unexpected data after JSON body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dst payload
			err := decodeJSON(httptest.NewRecorder(), req, &dst)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "x", dst.Name)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
