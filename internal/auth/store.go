package auth

import (
	"context"
	"time"
)

// Store describes persistence operations required by the auth subsystem.
type Store interface {
	Users(ctx context.Context) UserStore
	Sessions(ctx context.Context) SessionStore
	APIKeys(ctx context.Context) APIKeyStore
}

// UserStore manages users. Create returns ErrDuplicate when the email is taken.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
}

// SessionStore manages login sessions.
type SessionStore interface {
	Create(ctx context.Context, s *Session) error
	FindByHash(ctx context.Context, tokenHash string) (*Session, error)
	DeleteByHash(ctx context.Context, tokenHash string) error
	// Replace deletes every session of s.UserID and inserts s in one transaction.
	Replace(ctx context.Context, s *Session) error
}

// APIKeyStore manages API keys. Create returns ErrDuplicate on a key hash collision.
type APIKeyStore interface {
	Create(ctx context.Context, k *APIKey) error
	FindByHash(ctx context.Context, keyHash string) (*APIKey, error)
	ListByMerchant(ctx context.Context, merchantID string) ([]*APIKey, error)
	Revoke(ctx context.Context, merchantID, id string, at time.Time) (*APIKey, error)
}

// MerchantResolver maps a user to the merchant profile they own. It returns
// "" and no error when the user has not created a merchant yet.
type MerchantResolver interface {
	MerchantIDForUser(ctx context.Context, userID string) (string, error)
}
