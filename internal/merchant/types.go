package merchant

import (
	"errors"
	"strings"
	"time"
)

// Environment partitions links, keys and payments so that sandbox activity
// never mixes with real money.
type Environment string

const (
	EnvTest Environment = "TEST"
	EnvLive Environment = "LIVE"
)

// ParseEnvironment accepts TEST/LIVE in any case.
func ParseEnvironment(s string) (Environment, error) {
	switch Environment(strings.ToUpper(strings.TrimSpace(s))) {
	case EnvTest:
		return EnvTest, nil
	case EnvLive:
		return EnvLive, nil
	default:
		return "", ErrInvalidEnvironment
	}
}

// Valid reports whether e is one of the known environments.
func (e Environment) Valid() bool { return e == EnvTest || e == EnvLive }

// Slug is the lower-case form used inside API key prefixes.
func (e Environment) Slug() string { return strings.ToLower(string(e)) }

const (
	DefaultBrandBg   = "#0B0B0F"
	DefaultBrandText = "#FFFFFF"
)

// Merchant is the business profile attached to a user account.
type Merchant struct {
	ID                    string      `json:"id"`
	UserID                string      `json:"user_id"`
	PublicName            string      `json:"public_name"`
	SettlementWallet      string      `json:"settlement_wallet,omitempty"`
	DashboardMode         Environment `json:"dashboard_mode"`
	BrandBg               string      `json:"brand_bg"`
	BrandText             string      `json:"brand_text"`
	OnboardingStep        int         `json:"onboarding_step"`
	OnboardingCompletedAt *time.Time  `json:"onboarding_completed_at,omitempty"`
	CreatedAt             time.Time   `json:"created_at"`
	UpdatedAt             time.Time   `json:"updated_at"`
}

var (
	ErrNotFound             = errors.New("merchant not found")
	ErrAlreadyExists        = errors.New("merchant already exists")
	ErrInvalidInput         = errors.New("invalid input")
	ErrInvalidEnvironment   = errors.New("environment must be TEST or LIVE")
	ErrOnboardingIncomplete = errors.New("onboarding incomplete")
)
