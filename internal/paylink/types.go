package paylink

import (
	"strings"
	"time"

	"byund.io/internal/merchant"
)

// Mode decides whether the payer or the merchant picks the amount.
type Mode string

const (
	ModeFixed    Mode = "FIXED"
	ModeVariable Mode = "VARIABLE"
)

// Link is a shareable payment page owned by a merchant in one environment.
type Link struct {
	ID               string               `json:"id"`
	MerchantID       string               `json:"merchant_id"`
	Environment      merchant.Environment `json:"environment"`
	PublicID         string               `json:"public_id"`
	Name             string               `json:"name"`
	Description      string               `json:"description,omitempty"`
	Mode             Mode                 `json:"mode"`
	FixedAmountCents *int64               `json:"fixed_amount_cents"`
	IsActive         bool                 `json:"is_active"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

// Status of a payment. CONFIRMED, FAILED and CANCELED are terminal.
type Status string

const (
	StatusCreated   Status = "CREATED"
	StatusSubmitted Status = "SUBMITTED"
	StatusConfirmed Status = "CONFIRMED"
	StatusFailed    Status = "FAILED"
	StatusCanceled  Status = "CANCELED"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusConfirmed || s == StatusFailed || s == StatusCanceled
}

// ParseStatus accepts a status name in any case.
func ParseStatus(s string) (Status, bool) {
	switch st := Status(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusCreated, StatusSubmitted, StatusConfirmed, StatusFailed, StatusCanceled:
		return st, true
	}
	return "", false
}

// Payment is one payer's attempt against a link.
type Payment struct {
	ID               string               `json:"id"`
	LinkID           string               `json:"link_id"`
	MerchantID       string               `json:"merchant_id"`
	Environment      merchant.Environment `json:"environment"`
	Status           Status               `json:"status"`
	AmountUsdCents   int64                `json:"amount_usd_cents"`
	AmountUsdcMicros int64                `json:"amount_usdc_micros"`
	TokenAddress     string               `json:"token_address"`
	ChainID          int64                `json:"chain_id"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

// PaymentView is what an anonymous payer sees for a payment. Owner and link
// ids stay private.
type PaymentView struct {
	ID               string               `json:"id"`
	Environment      merchant.Environment `json:"environment"`
	Status           Status               `json:"status"`
	AmountUsdCents   int64                `json:"amount_usd_cents"`
	AmountUsdcMicros int64                `json:"amount_usdc_micros"`
	TokenAddress     string               `json:"token_address"`
	ChainID          int64                `json:"chain_id"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

// View strips the fields an anonymous caller must not see.
func (p Payment) View() PaymentView {
	return PaymentView{
		ID:               p.ID,
		Environment:      p.Environment,
		Status:           p.Status,
		AmountUsdCents:   p.AmountUsdCents,
		AmountUsdcMicros: p.AmountUsdcMicros,
		TokenAddress:     p.TokenAddress,
		ChainID:          p.ChainID,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

// CheckoutView is what an anonymous payer sees for a link.
type CheckoutView struct {
	PublicID         string               `json:"public_id"`
	Name             string               `json:"name"`
	Description      string               `json:"description,omitempty"`
	Mode             Mode                 `json:"mode"`
	FixedAmountCents *int64               `json:"fixed_amount_cents"`
	IsActive         bool                 `json:"is_active"`
	Environment      merchant.Environment `json:"environment"`
	MerchantName     string               `json:"merchant_name"`
	BrandBg          string               `json:"brand_bg"`
	BrandText        string               `json:"brand_text"`
}
