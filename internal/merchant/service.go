package merchant

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"byund.io/internal/ids"
)

const maxPublicNameLen = 64

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Service implements merchant onboarding and profile settings.
type Service struct {
	store Store
	now   func() time.Time
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

// NewService constructs Service.
func NewService(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("merchant store is required")
	}
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Get loads a merchant by id.
func (s *Service) Get(ctx context.Context, merchantID string) (Merchant, error) {
	return s.store.FindMerchant(ctx, merchantID)
}

// ForUser loads the merchant owned by userID.
func (s *Service) ForUser(ctx context.Context, userID string) (Merchant, error) {
	return s.store.FindMerchantByUser(ctx, userID)
}

// SaveProfile sets the public name, creating the merchant on first call.
func (s *Service) SaveProfile(ctx context.Context, userID, publicName string) (Merchant, error) {
	name := strings.TrimSpace(publicName)
	if n := len([]rune(name)); n < minPublicNameLen || n > maxPublicNameLen {
		return Merchant{}, fmt.Errorf("%w: public name must be between %d and %d characters", ErrInvalidInput, minPublicNameLen, maxPublicNameLen)
	}

	existing, err := s.store.FindMerchantByUser(ctx, userID)
	switch {
	case errors.Is(err, ErrNotFound):
		now := s.now().UTC()
		m := Merchant{
			ID:            ids.New(),
			UserID:        userID,
			PublicName:    name,
			DashboardMode: EnvTest,
			BrandBg:       DefaultBrandBg,
			BrandText:     DefaultBrandText,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		advance(&m, StepWallet)
		if err := s.store.CreateMerchant(ctx, &m); err != nil {
			if !errors.Is(err, ErrAlreadyExists) {
				return Merchant{}, err
			}
			// Lost a race with a concurrent first save; fall through to update.
			existing, err = s.store.FindMerchantByUser(ctx, userID)
			if err != nil {
				return Merchant{}, err
			}
		} else {
			return m, nil
		}
	case err != nil:
		return Merchant{}, err
	}

	return s.store.UpdateMerchant(ctx, existing.ID, func(m *Merchant) error {
		m.PublicName = name
		advance(m, StepWallet)
		m.UpdatedAt = s.now().UTC()
		return nil
	})
}

// SaveWallet stores the EIP-55 form of the settlement wallet.
func (s *Service) SaveWallet(ctx context.Context, merchantID, address string) (Merchant, error) {
	wallet, err := ChecksumAddress(address)
	if err != nil {
		return Merchant{}, err
	}
	return s.store.UpdateMerchant(ctx, merchantID, func(m *Merchant) error {
		if ComputeInitialStep(*m) == StepProfile {
			return fmt.Errorf("%w: set a public name first", ErrOnboardingIncomplete)
		}
		m.SettlementWallet = wallet
		advance(m, StepBranding)
		m.UpdatedAt = s.now().UTC()
		return nil
	})
}

// SaveBranding stores checkout colors.
func (s *Service) SaveBranding(ctx context.Context, merchantID, bg, text string) (Merchant, error) {
	bg, text = strings.TrimSpace(bg), strings.TrimSpace(text)
	if !hexColor.MatchString(bg) || !hexColor.MatchString(text) {
		return Merchant{}, fmt.Errorf("%w: colors must be #RRGGBB", ErrInvalidInput)
	}
	return s.store.UpdateMerchant(ctx, merchantID, func(m *Merchant) error {
		if !CanCreateLinks(*m) {
			return fmt.Errorf("%w: set a public name and wallet first", ErrOnboardingIncomplete)
		}
		m.BrandBg = strings.ToUpper(bg)
		m.BrandText = strings.ToUpper(text)
		advance(m, StepComplete)
		m.UpdatedAt = s.now().UTC()
		return nil
	})
}

// Complete marks onboarding finished. Name and wallet must be present.
func (s *Service) Complete(ctx context.Context, merchantID string) (Merchant, error) {
	return s.store.UpdateMerchant(ctx, merchantID, func(m *Merchant) error {
		if m.OnboardingCompletedAt != nil {
			return nil
		}
		if !CanCreateLinks(*m) {
			return fmt.Errorf("%w: set a public name and wallet first", ErrOnboardingIncomplete)
		}
		now := s.now().UTC()
		m.OnboardingCompletedAt = &now
		advance(m, StepComplete)
		m.UpdatedAt = now
		return nil
	})
}

// SetDashboardMode switches the environment new links are created in.
func (s *Service) SetDashboardMode(ctx context.Context, merchantID string, env Environment) (Merchant, error) {
	if !env.Valid() {
		return Merchant{}, ErrInvalidEnvironment
	}
	return s.store.UpdateMerchant(ctx, merchantID, func(m *Merchant) error {
		m.DashboardMode = env
		m.UpdatedAt = s.now().UTC()
		return nil
	})
}
