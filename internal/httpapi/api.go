package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"byund.io/internal/auth"
	"byund.io/internal/events"
	"byund.io/internal/merchant"
	"byund.io/internal/obs"
	"byund.io/internal/paylink"
)

const serviceName = "byund-api"

// Pinger is implemented by the stores.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadyProbe checks that the backing store answers.
type ReadyProbe struct {
	DB      Pinger
	Timeout time.Duration
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	if rp.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rp.Timeout)
		defer cancel()
	}
	return rp.DB.Ping(ctx)
}

type readinessChecker interface {
	Check(ctx context.Context) error
}

// Deps are the services the HTTP layer calls into.
type Deps struct {
	Sessions  *auth.Sessions
	Keys      *auth.APIKeys
	Merchants *merchant.Service
	Links     *paylink.Service
	Feed      *events.Feed
	Probe     readinessChecker
}

// Options tune transport behaviour.
type Options struct {
	Version        string
	Production     bool
	AllowedOrigins []string
	RatePerSecond  int
	RateBurst      int

	// TrustedProxies are IPs or CIDRs allowed to set X-Forwarded-For.
	TrustedProxies []string
	// EventsHeartbeat is the SSE keep-alive interval.
	EventsHeartbeat time.Duration
}

// API is the HTTP layer.
type API struct {
	mux       *http.ServeMux
	sessions  *auth.Sessions
	keys      *auth.APIKeys
	merchants *merchant.Service
	links     *paylink.Service
	feed      *events.Feed
	probe     readinessChecker
	proxies   TrustedProxies
	opts      Options
}

// New wires every route.
func New(deps Deps, opts Options) (*API, error) {
	if deps.Sessions == nil || deps.Keys == nil || deps.Merchants == nil || deps.Links == nil {
		return nil, errors.New("httpapi: sessions, keys, merchants and links are required")
	}
	if deps.Probe == nil {
		deps.Probe = ReadyProbe{}
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = 10
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 20
	}
	if opts.EventsHeartbeat <= 0 {
		opts.EventsHeartbeat = 15 * time.Second
	}
	proxies, err := ParseTrustedProxies(opts.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("httpapi: %w", err)
	}
	a := &API{
		mux:       http.NewServeMux(),
		sessions:  deps.Sessions,
		keys:      deps.Keys,
		merchants: deps.Merchants,
		links:     deps.Links,
		feed:      deps.Feed,
		probe:     deps.Probe,
		proxies:   proxies,
		opts:      opts,
	}
	a.routes()
	return a, nil
}

func (a *API) routes() {
	// health/ready/metrics
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.Handle("/metrics", obs.Handler())

	// credential endpoints share one limiter
	credentials := http.NewServeMux()
	credentials.HandleFunc("/v1/auth/register", a.handleRegister)
	credentials.HandleFunc("/v1/auth/login", a.handleLogin)
	limitedCredentials := a.sameOrigin(RateLimit(credentials, a.opts.RateBurst, a.opts.RatePerSecond, a.proxies))
	a.mux.Handle("/v1/auth/register", limitedCredentials)
	a.mux.Handle("/v1/auth/login", limitedCredentials)
	a.mux.Handle("/v1/auth/logout", a.sameOrigin(http.HandlerFunc(a.handleLogout)))
	a.mux.Handle("/v1/auth/me", a.withSession(a.handleMe))

	// dashboard (session cookie)
	a.mux.Handle("/v1/onboarding", a.withSession(a.handleOnboarding))
	a.mux.Handle("/v1/onboarding/", a.withSession(a.handleOnboardingStep))
	a.mux.Handle("/v1/merchant/mode", a.withSession(a.handleMerchantMode))
	a.mux.Handle("/v1/payment-links", a.withSession(a.handlePaymentLinks))
	a.mux.Handle("/v1/payment-links/", a.withSession(a.handlePaymentLinkResource))
	a.mux.Handle("/v1/api-keys", a.withSession(a.handleAPIKeys))
	a.mux.Handle("/v1/api-keys/", a.withSession(a.handleAPIKeyResource))

	// server-to-server (bearer API key)
	a.mux.Handle("/v1/api/payment-links", a.withAPIKey(auth.Constraints{
		RequireScopes: []string{auth.ScopeLinksRead},
	}, a.handleAPIPaymentLinks))
	a.mux.Handle("/v1/api/payments/", a.withAPIKey(auth.Constraints{
		AllowTypes:    []auth.KeyType{auth.KeySecret},
		RequireScopes: []string{auth.ScopePaymentsRead},
	}, a.handleAPIPayment))

	// anonymous checkout
	public := http.NewServeMux()
	public.HandleFunc("/v1/public/limits", a.handleLimits)
	public.HandleFunc("/v1/public/links/", a.handlePublicLink)
	public.HandleFunc("/v1/public/payments/", a.handlePublicPayment)
	public.HandleFunc("/", notFound)
	a.mux.Handle("/v1/public/", RateLimit(public, a.opts.RateBurst, a.opts.RatePerSecond, a.proxies))

	a.mux.HandleFunc("/", notFound)
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusNotFound, "not found")
}

// Handler returns the fully wrapped handler for the server.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = MaxBodyBytes(h, maxBodyBytes)
	h = CORS(h, a.opts.AllowedOrigins)
	h = SecurityHeaders(h)
	h = Recoverer(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- guards ---

// sameOrigin rejects cross-site unsafe requests to cookie endpoints.
func (a *API) sameOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := auth.VerifyOrigin(r, a.opts.AllowedOrigins); err != nil {
			obs.AuthFailure("origin", "ORIGIN_MISMATCH")
			handleError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *API) withSession(next http.HandlerFunc) http.Handler {
	return a.sameOrigin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := a.sessions.Authenticate(r.Context(), a.sessionCookie(r))
		if err != nil {
			a.authFailed(w, r, "session", err)
			return
		}
		next(w, r.WithContext(auth.ContextWithSession(r.Context(), id)))
	}))
}

func (a *API) withAPIKey(c auth.Constraints, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := a.keys.Authenticate(r.Context(), r.Header.Get("Authorization"), c)
		if err != nil {
			a.authFailed(w, r, "api_key", err)
			return
		}
		next(w, r.WithContext(auth.ContextWithKey(r.Context(), id)))
	})
}

func (a *API) authFailed(w http.ResponseWriter, r *http.Request, mechanism string, err error) {
	if reason := auth.ReasonOf(err); reason != "" {
		obs.AuthFailure(mechanism, string(reason))
	}
	handleError(w, r, err)
}

func (a *API) sessionCookie(r *http.Request) string {
	c, err := r.Cookie(auth.SessionCookieName(a.opts.Production))
	if err != nil {
		return ""
	}
	return c.Value
}

// currentMerchant loads the signed-in user's merchant. Users without a
// profile yet get ErrOnboardingIncomplete.
func (a *API) currentMerchant(ctx context.Context) (merchant.Merchant, error) {
	id, ok := auth.SessionFromContext(ctx)
	if !ok {
		return merchant.Merchant{}, auth.ErrUnauthenticated
	}
	if id.MerchantID == "" {
		return merchant.Merchant{}, merchant.ErrOnboardingIncomplete
	}
	return a.merchants.Get(ctx, id.MerchantID)
}

// --- ops ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.opts.Version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.probe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}
