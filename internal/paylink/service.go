package paylink

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"byund.io/internal/events"
	"byund.io/internal/ids"
	"byund.io/internal/merchant"
	"byund.io/internal/money"
)

const (
	DefaultChainID      int64 = 8453
	DefaultCheckoutPath       = "/checkout"

	maxNameLen        = 80
	maxDescriptionLen = 500
)

// Settlement is the token every payment settles in.
type Settlement struct {
	TokenAddress string
	ChainID      int64
}

// Service implements payment link and payment lifecycles.
type Service struct {
	store        Store
	merchants    MerchantReader
	feed         *events.Feed
	settlement   Settlement
	checkoutPath string
	now          func() time.Time
}

// Option configures Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithFeed publishes payment status changes to feed.
func WithFeed(feed *events.Feed) Option {
	return func(s *Service) { s.feed = feed }
}

// WithCheckoutPath sets the path prefix of payment redirects.
func WithCheckoutPath(path string) Option {
	return func(s *Service) {
		if path = strings.TrimRight(strings.TrimSpace(path), "/"); path != "" {
			s.checkoutPath = path
		}
	}
}

// NewService constructs Service. An empty token address is accepted here and
// reported as ErrConfiguration when a payment is attempted.
func NewService(store Store, merchants MerchantReader, settlement Settlement, opts ...Option) (*Service, error) {
	if store == nil || merchants == nil {
		return nil, errors.New("paylink: store and merchant reader are required")
	}
	if settlement.ChainID == 0 {
		settlement.ChainID = DefaultChainID
	}
	s := &Service{
		store:        store,
		merchants:    merchants,
		settlement:   settlement,
		checkoutPath: DefaultCheckoutPath,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateLinkInput is the merchant's request. AmountInput is the raw decimal
// string typed in the dashboard and is ignored for variable links.
type CreateLinkInput struct {
	MerchantID  string
	Name        string
	Description string
	Mode        Mode
	AmountInput *string
}

// Create adds a link in the merchant's current dashboard environment.
func (s *Service) Create(ctx context.Context, in CreateLinkInput) (Link, error) {
	m, err := s.merchants.FindMerchant(ctx, in.MerchantID)
	if err != nil {
		if errors.Is(err, merchant.ErrNotFound) {
			return Link{}, ErrNotFound
		}
		return Link{}, err
	}
	if !merchant.CanCreateLinks(m) {
		return Link{}, merchant.ErrOnboardingIncomplete
	}

	name := strings.TrimSpace(in.Name)
	if name == "" || len([]rune(name)) > maxNameLen {
		return Link{}, invalid("name", fmt.Sprintf("must be 1-%d characters", maxNameLen))
	}
	desc := strings.TrimSpace(in.Description)
	if len([]rune(desc)) > maxDescriptionLen {
		return Link{}, invalid("description", fmt.Sprintf("must be at most %d characters", maxDescriptionLen))
	}

	var fixed *int64
	switch in.Mode {
	case ModeFixed:
		if in.AmountInput == nil {
			return Link{}, invalid("amount", "is required for fixed links")
		}
		cents, err := money.ParseDecimalToCents(*in.AmountInput, money.MaxPaymentLinkCents)
		if err != nil {
			return Link{}, &ValidationError{Field: "amount", Message: err.Error(), Err: err}
		}
		fixed = &cents
	case ModeVariable:
	default:
		return Link{}, invalid("mode", "must be FIXED or VARIABLE")
	}

	now := s.now().UTC()
	for attempt := 0; attempt < ids.DefaultAttempts; attempt++ {
		publicID, err := ids.Unique(ctx, ids.DefaultAttempts, func() (string, error) {
			return ids.PublicID(ids.DefaultPublicIDLength)
		}, s.store.PublicIDExists)
		if err != nil {
			return Link{}, err
		}
		l := Link{
			ID:               ids.New(),
			MerchantID:       m.ID,
			Environment:      m.DashboardMode,
			PublicID:         publicID,
			Name:             name,
			Description:      desc,
			Mode:             in.Mode,
			FixedAmountCents: fixed,
			IsActive:         true,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		err = s.store.CreateLink(ctx, &l)
		if errors.Is(err, ErrDuplicate) {
			continue
		}
		if err != nil {
			return Link{}, err
		}
		return l, nil
	}
	return Link{}, ids.ErrExhausted
}

// SetActive toggles a link addressed by the full (merchant, public id, env) triple.
func (s *Service) SetActive(ctx context.Context, merchantID, publicID string, env merchant.Environment, active bool) (Link, error) {
	if merchantID == "" || publicID == "" || !env.Valid() {
		return Link{}, ErrNotFound
	}
	return s.store.SetLinkActive(ctx, merchantID, publicID, env, active, s.now().UTC())
}

// List returns the merchant's links in env, newest first.
func (s *Service) List(ctx context.Context, merchantID string, env merchant.Environment) ([]Link, error) {
	links, err := s.store.ListLinks(ctx, merchantID, env)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(links, func(i, j int) bool { return links[i].CreatedAt.After(links[j].CreatedAt) })
	return links, nil
}

// Checkout loads the public view of a link, active or not.
func (s *Service) Checkout(ctx context.Context, publicID string) (CheckoutView, error) {
	l, err := s.store.FindLinkByPublicID(ctx, publicID)
	if err != nil {
		return CheckoutView{}, err
	}
	m, err := s.merchants.FindMerchant(ctx, l.MerchantID)
	if err != nil {
		if errors.Is(err, merchant.ErrNotFound) {
			return CheckoutView{}, ErrNotFound
		}
		return CheckoutView{}, err
	}
	return CheckoutView{
		PublicID:         l.PublicID,
		Name:             l.Name,
		Description:      l.Description,
		Mode:             l.Mode,
		FixedAmountCents: l.FixedAmountCents,
		IsActive:         l.IsActive,
		Environment:      l.Environment,
		MerchantName:     m.PublicName,
		BrandBg:          m.BrandBg,
		BrandText:        m.BrandText,
	}, nil
}

// CreatedPayment is returned to the payer after initiation.
type CreatedPayment struct {
	Payment      Payment
	RedirectPath string
}

// CreatePayment starts a payment against an active link.
func (s *Service) CreatePayment(ctx context.Context, publicID string, amountUsdCents int64) (CreatedPayment, error) {
	l, err := s.store.FindLinkByPublicID(ctx, publicID)
	if err != nil {
		return CreatedPayment{}, err
	}
	if !l.IsActive {
		return CreatedPayment{}, ErrInactive
	}
	if err := money.ValidateCents(amountUsdCents, money.MaxPaymentCents); err != nil {
		return CreatedPayment{}, &ValidationError{Field: "amount_usd_cents", Message: err.Error(), Err: err}
	}
	if l.Mode == ModeFixed {
		if l.FixedAmountCents == nil || *l.FixedAmountCents != amountUsdCents {
			return CreatedPayment{}, invalid("amount_usd_cents", "must equal the link's fixed amount")
		}
	}
	if strings.TrimSpace(s.settlement.TokenAddress) == "" {
		return CreatedPayment{}, fmt.Errorf("%w: settlement token address is not set", ErrConfiguration)
	}
	micros, err := money.CentsToMicros(amountUsdCents)
	if err != nil {
		return CreatedPayment{}, &ValidationError{Field: "amount_usd_cents", Message: err.Error(), Err: err}
	}

	// The payment id is the only credential for anonymous status and cancel calls.
	paymentID, err := ids.Unguessable()
	if err != nil {
		return CreatedPayment{}, fmt.Errorf("payment id: %w", err)
	}
	now := s.now().UTC()
	p := Payment{
		ID:               paymentID,
		LinkID:           l.ID,
		MerchantID:       l.MerchantID,
		Environment:      l.Environment,
		Status:           StatusCreated,
		AmountUsdCents:   amountUsdCents,
		AmountUsdcMicros: micros,
		TokenAddress:     s.settlement.TokenAddress,
		ChainID:          s.settlement.ChainID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.CreatePayment(ctx, &p); err != nil {
		return CreatedPayment{}, err
	}
	s.publish(p)
	return CreatedPayment{Payment: p, RedirectPath: s.checkoutPath + "/" + p.ID}, nil
}

// GetPayment loads a payment for status polling.
func (s *Service) GetPayment(ctx context.Context, id string) (Payment, error) {
	return s.store.FindPayment(ctx, id)
}

// MerchantPayment loads a payment only if it belongs to merchantID in env.
func (s *Service) MerchantPayment(ctx context.Context, merchantID string, env merchant.Environment, id string) (Payment, error) {
	p, err := s.store.FindPayment(ctx, id)
	if err != nil {
		return Payment{}, err
	}
	if p.MerchantID != merchantID || p.Environment != env {
		return Payment{}, ErrNotFound
	}
	return p, nil
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusCreated:
		return to == StatusSubmitted || to == StatusFailed || to == StatusCanceled
	case StatusSubmitted:
		return to == StatusConfirmed || to == StatusFailed || to == StatusCanceled
	default:
		return false
	}
}

// Transition moves a payment to a new status atomically.
func (s *Service) Transition(ctx context.Context, id string, to Status) (Payment, error) {
	p, err := s.store.UpdatePayment(ctx, id, func(p *Payment) error {
		if !CanTransition(p.Status, to) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Status, to)
		}
		p.Status = to
		p.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		return Payment{}, err
	}
	s.publish(p)
	return p, nil
}

func (s *Service) publish(p Payment) {
	if s.feed == nil {
		return
	}
	s.feed.Publish(events.StatusEvent{PaymentID: p.ID, Status: string(p.Status), At: p.UpdatedAt})
}
