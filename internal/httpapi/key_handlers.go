package httpapi

import (
	"net/http"
	"strings"
	"time"

	"byund.io/internal/audit"
	"byund.io/internal/auth"
	"byund.io/internal/merchant"
)

type issueKeyRequest struct {
	Type        string   `json:"type"`
	Name        string   `json:"name"`
	Scopes      []string `json:"scopes"`
	Environment string   `json:"environment"`
}

// apiKeyView never carries the hash.
type apiKeyView struct {
	ID          string               `json:"id"`
	Environment merchant.Environment `json:"environment"`
	Type        auth.KeyType         `json:"type"`
	Prefix      string               `json:"prefix"`
	Last4       string               `json:"last4"`
	Name        string               `json:"name,omitempty"`
	Status      auth.KeyStatus       `json:"status"`
	Scopes      []string             `json:"scopes"`
	CreatedAt   time.Time            `json:"created_at"`
	RevokedAt   *time.Time           `json:"revoked_at,omitempty"`
}

type issuedKeyResponse struct {
	Key       apiKeyView `json:"key"`
	Plaintext string     `json:"plaintext"`
}

func viewKey(k auth.APIKey) apiKeyView {
	return apiKeyView{
		ID:          k.ID,
		Environment: k.Environment,
		Type:        k.Type,
		Prefix:      k.Prefix,
		Last4:       k.Last4,
		Name:        k.Name,
		Status:      k.Status,
		Scopes:      nonNil(k.Scopes),
		CreatedAt:   k.CreatedAt,
		RevokedAt:   k.RevokedAt,
	}
}

func (a *API) handleAPIKeys(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listKeys(w, r)
	case http.MethodPost:
		a.issueKey(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleAPIKeyResource(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r.URL.Path, "/v1/api-keys/")
	if len(parts) != 2 || parts[1] != "revoke" {
		notFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	m, err := a.currentMerchant(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	key, err := a.keys.Revoke(r.Context(), m.ID, parts[0])
	if err != nil {
		handleError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "api_key.revoke", map[string]any{"api_key_id": key.ID})
	writeJSON(w, http.StatusOK, viewKey(key))
}

// listKeys defaults to the dashboard environment; ?environment= overrides it.
func (a *API) listKeys(w http.ResponseWriter, r *http.Request) {
	m, err := a.currentMerchant(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	env := m.DashboardMode
	if raw := strings.TrimSpace(r.URL.Query().Get("environment")); raw != "" {
		if env, err = merchant.ParseEnvironment(raw); err != nil {
			handleError(w, r, err)
			return
		}
	}
	keys, err := a.keys.List(r.Context(), m.ID, env)
	if err != nil {
		handleError(w, r, err)
		return
	}
	items := make([]apiKeyView, 0, len(keys))
	for _, k := range keys {
		items = append(items, viewKey(k))
	}
	writeJSON(w, http.StatusOK, map[string]any{"environment": env, "items": items})
}

func (a *API) issueKey(w http.ResponseWriter, r *http.Request) {
	var req issueKeyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	m, err := a.currentMerchant(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	env := m.DashboardMode
	if strings.TrimSpace(req.Environment) != "" {
		if env, err = merchant.ParseEnvironment(req.Environment); err != nil {
			handleError(w, r, err)
			return
		}
	}
	issued, err := a.keys.Issue(r.Context(), auth.IssueInput{
		MerchantID:  m.ID,
		Environment: env,
		Type:        auth.KeyType(strings.ToUpper(strings.TrimSpace(req.Type))),
		Name:        req.Name,
		Scopes:      req.Scopes,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "api_key.issue", map[string]any{
		"api_key_id":  issued.Key.ID,
		"environment": string(issued.Key.Environment),
		"type":        string(issued.Key.Type),
	})
	writeJSON(w, http.StatusCreated, issuedKeyResponse{Key: viewKey(issued.Key), Plaintext: issued.Plaintext})
}
