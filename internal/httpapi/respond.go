package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"byund.io/internal/audit"
	"byund.io/internal/auth"
	"byund.io/internal/merchant"
	"byund.io/internal/money"
	"byund.io/internal/obs"
	"byund.io/internal/paylink"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

// requestError is a malformed body or parameter, reported verbatim.
type requestError struct{ err error }

func (e *requestError) Error() string { return e.err.Error() }

func badRequest(err error) error { return &requestError{err: err} }

// statusFor maps domain errors onto HTTP status codes and a client-safe message.
func statusFor(err error) (int, string) {
	var (
		verr *paylink.ValidationError
		perr *money.ParseError
		oerr *auth.OriginError
		rerr *requestError
	)
	switch {
	case errors.As(err, &rerr):
		return http.StatusBadRequest, rerr.Error()
	case errors.As(err, &oerr):
		return http.StatusForbidden, "origin not allowed"
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid email or password"
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Error()
	case errors.As(err, &perr):
		return http.StatusBadRequest, perr.Error()
	case errors.Is(err, merchant.ErrInvalidInput),
		errors.Is(err, merchant.ErrInvalidEnvironment),
		errors.Is(err, auth.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, paylink.ErrNotFound),
		errors.Is(err, merchant.ErrNotFound),
		errors.Is(err, auth.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, paylink.ErrInactive):
		return http.StatusConflict, "payment link is inactive"
	case errors.Is(err, paylink.ErrInvalidTransition):
		return http.StatusConflict, "payment status cannot change"
	case errors.Is(err, merchant.ErrOnboardingIncomplete):
		return http.StatusConflict, "onboarding incomplete"
	case errors.Is(err, auth.ErrEmailTaken):
		return http.StatusConflict, "email already registered"
	default:
		// paylink.ErrConfiguration and ids.ErrExhausted land here too.
		return http.StatusInternalServerError, "internal error"
	}
}

// handleError writes the mapped status. Server-side failures are logged with
// the request id; the cause never reaches the client.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := statusFor(err)
	if code >= http.StatusInternalServerError {
		obs.Logger().WithError(err).WithField("request_id", audit.RequestID(r.Context())).
			WithField("path", r.URL.Path).Error("request failed")
	}
	writeError(w, r, code, msg)
}

// splitPath returns the non-empty segments of p after prefix.
func splitPath(p, prefix string) []string {
	rest := strings.Trim(strings.TrimPrefix(p, prefix), "/")
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "/")
}
