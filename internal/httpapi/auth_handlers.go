package httpapi

import (
	"net/http"
	"time"

	"byund.io/internal/audit"
	"byund.io/internal/auth"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type meResponse struct {
	UserID           string    `json:"user_id"`
	Email            string    `json:"email"`
	MerchantID       string    `json:"merchant_id,omitempty"`
	SessionExpiresAt time.Time `json:"session_expires_at"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	sess, err := a.sessions.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		handleError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.register", map[string]any{"user_id": sess.UserID})

	http.SetCookie(w, auth.NewSessionCookie(sess, a.opts.Production))
	writeJSON(w, http.StatusCreated, sessionResponse{UserID: sess.UserID, ExpiresAt: sess.ExpiresAt})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	sess, err := a.sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handleError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{"user_id": sess.UserID})

	http.SetCookie(w, auth.NewSessionCookie(sess, a.opts.Production))
	writeJSON(w, http.StatusOK, sessionResponse{UserID: sess.UserID, ExpiresAt: sess.ExpiresAt})
}

// handleLogout always clears the cookie, even for unknown sessions.
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if err := a.sessions.Logout(r.Context(), a.sessionCookie(r)); err != nil {
		handleError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "auth.logout", nil)

	http.SetCookie(w, auth.ClearSessionCookie(a.opts.Production))
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	id, _ := auth.SessionFromContext(r.Context())
	user, err := a.sessions.User(r.Context(), id.UserID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meResponse{
		UserID:           user.ID,
		Email:            user.Email,
		MerchantID:       id.MerchantID,
		SessionExpiresAt: id.ExpiresAt,
	})
}
