package paylink

import (
	"context"
	"time"

	"byund.io/internal/merchant"
)

// Store persists links and payments. CreateLink returns ErrDuplicate when the
// public id is already in use; callers treat that as retryable.
type Store interface {
	CreateLink(ctx context.Context, l *Link) error
	PublicIDExists(ctx context.Context, publicID string) (bool, error)
	FindLinkByPublicID(ctx context.Context, publicID string) (Link, error)
	ListLinks(ctx context.Context, merchantID string, env merchant.Environment) ([]Link, error)
	// SetLinkActive updates only the row matching all of merchantID, publicID
	// and env, otherwise it returns ErrNotFound.
	SetLinkActive(ctx context.Context, merchantID, publicID string, env merchant.Environment, active bool, at time.Time) (Link, error)

	CreatePayment(ctx context.Context, p *Payment) error
	FindPayment(ctx context.Context, id string) (Payment, error)
	// UpdatePayment runs fn against a locked row; an error from fn aborts the write.
	UpdatePayment(ctx context.Context, id string, fn func(*Payment) error) (Payment, error)
}

// MerchantReader is the slice of merchant storage links depend on.
type MerchantReader interface {
	FindMerchant(ctx context.Context, id string) (merchant.Merchant, error)
}
