package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"byund.io/internal/audit"
	"byund.io/internal/auth"
	"byund.io/internal/merchant"
	"byund.io/internal/obs"
	"byund.io/internal/paylink"
)

type createLinkRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Mode        string  `json:"mode"`
	Amount      *string `json:"amount"`
}

type updateLinkRequest struct {
	IsActive *bool `json:"is_active"`
}

type listLinksResponse struct {
	Environment merchant.Environment `json:"environment"`
	Items       []paylink.Link       `json:"items"`
}

func (a *API) handlePaymentLinks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listLinks(w, r)
	case http.MethodPost:
		a.createLink(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handlePaymentLinkResource(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r.URL.Path, "/v1/payment-links/")
	if len(parts) != 1 {
		notFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodPatch:
		a.updateLink(w, r, parts[0])
	default:
		methodNotAllowed(w, r, http.MethodPatch)
	}
}

func (a *API) listLinks(w http.ResponseWriter, r *http.Request) {
	m, err := a.currentMerchant(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	items, err := a.links.List(r.Context(), m.ID, m.DashboardMode)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listLinksResponse{Environment: m.DashboardMode, Items: nonNil(items)})
}

func (a *API) createLink(w http.ResponseWriter, r *http.Request) {
	var req createLinkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	m, err := a.currentMerchant(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	link, err := a.links.Create(r.Context(), paylink.CreateLinkInput{
		MerchantID:  m.ID,
		Name:        req.Name,
		Description: req.Description,
		Mode:        paylink.Mode(strings.ToUpper(strings.TrimSpace(req.Mode))),
		AmountInput: req.Amount,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	obs.LinkCreated(string(link.Environment), string(link.Mode))
	_ = audit.LogEvent(r.Context(), "payment_link.create", map[string]any{
		"public_id":   link.PublicID,
		"environment": string(link.Environment),
		"mode":        string(link.Mode),
	})

	w.Header().Set("Location", "/v1/public/links/"+link.PublicID)
	writeJSON(w, http.StatusCreated, link)
}

func (a *API) updateLink(w http.ResponseWriter, r *http.Request, publicID string) {
	var req updateLinkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.IsActive == nil {
		writeError(w, r, http.StatusBadRequest, "is_active is required")
		return
	}
	m, err := a.currentMerchant(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	link, err := a.links.SetActive(r.Context(), m.ID, publicID, m.DashboardMode, *req.IsActive)
	if err != nil {
		handleError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "payment_link.toggle", map[string]any{
		"public_id": link.PublicID,
		"is_active": link.IsActive,
	})
	writeJSON(w, http.StatusOK, link)
}

// --- API key routes ---

func (a *API) handleAPIPaymentLinks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	key, _ := auth.KeyFromContext(r.Context())
	items, err := a.links.List(r.Context(), key.MerchantID, key.Environment)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listLinksResponse{Environment: key.Environment, Items: nonNil(items)})
}

func (a *API) handleAPIPayment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	parts := splitPath(r.URL.Path, "/v1/api/payments/")
	if len(parts) != 1 {
		notFound(w, r)
		return
	}
	key, _ := auth.KeyFromContext(r.Context())
	p, err := a.links.MerchantPayment(r.Context(), key.MerchantID, key.Environment, parts[0])
	if err != nil {
		if errors.Is(err, paylink.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "payment not found")
			return
		}
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
