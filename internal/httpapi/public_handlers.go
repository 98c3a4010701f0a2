package httpapi

import (
	"net/http"

	"byund.io/internal/audit"
	"byund.io/internal/money"
	"byund.io/internal/obs"
	"byund.io/internal/paylink"
)

type createPaymentRequest struct {
	AmountUsdCents *int64 `json:"amount_usd_cents"`
}

type createPaymentResponse struct {
	Payment      paylink.PaymentView `json:"payment"`
	RedirectPath string              `json:"redirect_path"`
}

type limitsResponse struct {
	MaxPaymentLinkCents   int64  `json:"max_payment_link_cents"`
	MaxPaymentCents       int64  `json:"max_payment_cents"`
	MaxPaymentLinkDisplay string `json:"max_payment_link_display"`
	MaxPaymentDisplay     string `json:"max_payment_display"`
}

func (a *API) handleLimits(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, limitsResponse{
		MaxPaymentLinkCents:   money.MaxPaymentLinkCents,
		MaxPaymentCents:       money.MaxPaymentCents,
		MaxPaymentLinkDisplay: money.FormatCents(money.MaxPaymentLinkCents, "USD"),
		MaxPaymentDisplay:     money.FormatCents(money.MaxPaymentCents, "USD"),
	})
}

// handlePublicLink serves /v1/public/links/{publicId}[/payments].
func (a *API) handlePublicLink(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r.URL.Path, "/v1/public/links/")
	switch {
	case len(parts) == 1:
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		view, err := a.links.Checkout(r.Context(), parts[0])
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	case len(parts) == 2 && parts[1] == "payments":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.createPayment(w, r, parts[0])
	default:
		notFound(w, r)
	}
}

func (a *API) createPayment(w http.ResponseWriter, r *http.Request, publicID string) {
	var req createPaymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.AmountUsdCents == nil {
		writeError(w, r, http.StatusBadRequest, "amount_usd_cents is required")
		return
	}
	created, err := a.links.CreatePayment(r.Context(), publicID, *req.AmountUsdCents)
	if err != nil {
		handleError(w, r, err)
		return
	}
	p := created.Payment
	obs.PaymentStatus(string(p.Environment), string(p.Status))
	_ = audit.LogEvent(r.Context(), "payment.create", map[string]any{
		"payment_id":       p.ID,
		"public_id":        publicID,
		"merchant_id":      p.MerchantID,
		"amount_usd_cents": p.AmountUsdCents,
	})

	w.Header().Set("Location", "/v1/public/payments/"+p.ID)
	writeJSON(w, http.StatusCreated, createPaymentResponse{Payment: p.View(), RedirectPath: created.RedirectPath})
}

// handlePublicPayment serves /v1/public/payments/{id}[/cancel|/events].
func (a *API) handlePublicPayment(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r.URL.Path, "/v1/public/payments/")
	switch {
	case len(parts) == 1:
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		p, err := a.links.GetPayment(r.Context(), parts[0])
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p.View())
	case len(parts) == 2 && parts[1] == "cancel":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.cancelPayment(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "events":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.PaymentEvents(w, r, parts[0])
	default:
		notFound(w, r)
	}
}

func (a *API) cancelPayment(w http.ResponseWriter, r *http.Request, id string) {
	p, err := a.links.Transition(r.Context(), id, paylink.StatusCanceled)
	if err != nil {
		handleError(w, r, err)
		return
	}
	obs.PaymentStatus(string(p.Environment), string(p.Status))
	_ = audit.LogEvent(r.Context(), "payment.transition", map[string]any{
		"payment_id": p.ID,
		"status":     string(p.Status),
	})
	writeJSON(w, http.StatusOK, p.View())
}
