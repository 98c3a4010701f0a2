package auth

import (
	"time"

	"byund.io/internal/merchant"
)

// User is a dashboard account.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session is a persisted login. Only the sha-256 of the cookie value is stored.
type Session struct {
	TokenHash string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// KeyType distinguishes server-side secret keys from browser-safe publishable keys.
type KeyType string

const (
	KeySecret      KeyType = "SECRET"
	KeyPublishable KeyType = "PUBLISHABLE"
)

// Valid reports whether t is a known key type.
func (t KeyType) Valid() bool { return t == KeySecret || t == KeyPublishable }

// Kind returns the short prefix segment used in key plaintext.
func (t KeyType) Kind() string {
	if t == KeyPublishable {
		return "pk"
	}
	return "sk"
}

// KeyStatus of an API key. Revocation is permanent.
type KeyStatus string

const (
	KeyActive  KeyStatus = "ACTIVE"
	KeyRevoked KeyStatus = "REVOKED"
)

const (
	ScopeLinksRead    = "payment_links:read"
	ScopeLinksWrite   = "payment_links:write"
	ScopePaymentsRead = "payments:read"
)

var knownScopes = map[string]struct{}{
	ScopeLinksRead:    {},
	ScopeLinksWrite:   {},
	ScopePaymentsRead: {},
}

// APIKey is the stored form of an issued key.
type APIKey struct {
	ID          string
	MerchantID  string
	Environment merchant.Environment
	Type        KeyType
	KeyHash     string
	Prefix      string
	Last4       string
	Name        string
	Status      KeyStatus
	Scopes      []string
	CreatedAt   time.Time
	RevokedAt   *time.Time
}

// Active reports whether the key can still authenticate.
func (k APIKey) Active() bool {
	return k.Status == KeyActive && k.RevokedAt == nil
}

// HasScope reports whether the key carries scope.
func (k APIKey) HasScope(scope string) bool {
	for _, s := range k.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}
