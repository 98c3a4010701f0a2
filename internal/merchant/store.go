package merchant

import "context"

// Store persists merchants. UpdateMerchant must run fn inside a single
// transaction holding a row lock, so concurrent onboarding requests for the
// same merchant cannot lose each other's step updates. Returning an error
// from fn aborts the write.
type Store interface {
	CreateMerchant(ctx context.Context, m *Merchant) error
	FindMerchant(ctx context.Context, id string) (Merchant, error)
	FindMerchantByUser(ctx context.Context, userID string) (Merchant, error)
	UpdateMerchant(ctx context.Context, id string, fn func(*Merchant) error) (Merchant, error)
}
