package httpapi

import (
	"errors"
	"net/http"

	"byund.io/internal/audit"
	"byund.io/internal/auth"
	"byund.io/internal/merchant"
)

type onboardingResponse struct {
	Step           int                `json:"step"`
	CanCreateLinks bool               `json:"can_create_links"`
	Completed      bool               `json:"completed"`
	Merchant       *merchant.Merchant `json:"merchant"`
}

type profileRequest struct {
	PublicName string `json:"public_name"`
}

type walletRequest struct {
	Address string `json:"address"`
}

type brandingRequest struct {
	BrandBg   string `json:"brand_bg"`
	BrandText string `json:"brand_text"`
}

type modeRequest struct {
	Mode string `json:"mode"`
}

func onboardingView(m *merchant.Merchant) onboardingResponse {
	if m == nil {
		return onboardingResponse{Step: merchant.StepProfile}
	}
	return onboardingResponse{
		Step:           merchant.ComputeInitialStep(*m),
		CanCreateLinks: merchant.CanCreateLinks(*m),
		Completed:      m.OnboardingCompletedAt != nil,
		Merchant:       m,
	}
}

func (a *API) handleOnboarding(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	m, err := a.currentMerchant(r.Context())
	switch {
	case errors.Is(err, merchant.ErrOnboardingIncomplete):
		writeJSON(w, http.StatusOK, onboardingView(nil))
	case err != nil:
		handleError(w, r, err)
	default:
		writeJSON(w, http.StatusOK, onboardingView(&m))
	}
}

func (a *API) handleOnboardingStep(w http.ResponseWriter, r *http.Request) {
	parts := splitPath(r.URL.Path, "/v1/onboarding/")
	if len(parts) != 1 {
		notFound(w, r)
		return
	}
	switch parts[0] {
	case "profile":
		a.onboardingPut(w, r, a.saveProfile)
	case "wallet":
		a.onboardingPut(w, r, a.saveWallet)
	case "branding":
		a.onboardingPut(w, r, a.saveBranding)
	case "complete":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		m, err := a.currentMerchant(r.Context())
		if err != nil {
			handleError(w, r, err)
			return
		}
		m, err = a.merchants.Complete(r.Context(), m.ID)
		if err != nil {
			handleError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "onboarding.complete", map[string]any{"merchant_id": m.ID})
		writeJSON(w, http.StatusOK, onboardingView(&m))
	default:
		notFound(w, r)
	}
}

type onboardingStepFunc func(w http.ResponseWriter, r *http.Request) (merchant.Merchant, string, error)

func (a *API) onboardingPut(w http.ResponseWriter, r *http.Request, step onboardingStepFunc) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	m, event, err := step(w, r)
	if err != nil {
		handleError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), event, map[string]any{
		"merchant_id": m.ID,
		"step":        merchant.ComputeInitialStep(m),
	})
	writeJSON(w, http.StatusOK, onboardingView(&m))
}

func (a *API) saveProfile(w http.ResponseWriter, r *http.Request) (merchant.Merchant, string, error) {
	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return merchant.Merchant{}, "", badRequest(err)
	}
	id, _ := auth.SessionFromContext(r.Context())
	m, err := a.merchants.SaveProfile(r.Context(), id.UserID, req.PublicName)
	return m, "onboarding.profile", err
}

func (a *API) saveWallet(w http.ResponseWriter, r *http.Request) (merchant.Merchant, string, error) {
	var req walletRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return merchant.Merchant{}, "", badRequest(err)
	}
	m, err := a.currentMerchant(r.Context())
	if err != nil {
		return merchant.Merchant{}, "", err
	}
	m, err = a.merchants.SaveWallet(r.Context(), m.ID, req.Address)
	return m, "onboarding.wallet", err
}

func (a *API) saveBranding(w http.ResponseWriter, r *http.Request) (merchant.Merchant, string, error) {
	var req brandingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return merchant.Merchant{}, "", badRequest(err)
	}
	m, err := a.currentMerchant(r.Context())
	if err != nil {
		return merchant.Merchant{}, "", err
	}
	m, err = a.merchants.SaveBranding(r.Context(), m.ID, req.BrandBg, req.BrandText)
	return m, "onboarding.branding", err
}

func (a *API) handleMerchantMode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	var req modeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	env, err := merchant.ParseEnvironment(req.Mode)
	if err != nil {
		handleError(w, r, err)
		return
	}
	m, err := a.currentMerchant(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	m, err = a.merchants.SetDashboardMode(r.Context(), m.ID, env)
	if err != nil {
		handleError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "merchant.mode", map[string]any{
		"merchant_id": m.ID,
		"mode":        string(env),
	})
	writeJSON(w, http.StatusOK, m)
}
