package auth

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"byund.io/internal/ids"
	"byund.io/internal/merchant"
)

const maxKeyNameLen = 64

// KeyIdentity is the caller resolved from a valid API key.
type KeyIdentity struct {
	APIKeyID    string
	MerchantID  string
	Environment merchant.Environment
	KeyType     KeyType
	Scopes      []string
}

// Constraints narrow which keys may call an endpoint. Zero values allow everything.
type Constraints struct {
	AllowTypes    []KeyType
	RequireScopes []string
}

// IssuedKey is returned once from Issue; Plaintext is not retrievable later.
type IssuedKey struct {
	Key       APIKey
	Plaintext string
}

// IssueInput describes a key to create.
type IssueInput struct {
	MerchantID  string
	Environment merchant.Environment
	Type        KeyType
	Name        string
	Scopes      []string
}

// APIKeys authenticates bearer keys and manages their lifecycle.
type APIKeys struct {
	store Store
	now   func() time.Time
}

// NewAPIKeys constructs the key service.
func NewAPIKeys(store Store, now func() time.Time) (*APIKeys, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	if now == nil {
		now = time.Now
	}
	return &APIKeys{store: store, now: now}, nil
}

// ParseBearer extracts the token from an Authorization header value.
func ParseBearer(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", fail(ReasonMalformed)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", fail(ReasonMalformed)
	}
	return token, nil
}

// Authenticate validates an Authorization header against stored keys.
// Unknown keys and malformed headers both surface as unauthenticated.
func (a *APIKeys) Authenticate(ctx context.Context, header string, c Constraints) (KeyIdentity, error) {
	token, err := ParseBearer(header)
	if err != nil {
		return KeyIdentity{}, err
	}
	hash := HashToken(token)
	key, err := a.store.APIKeys(ctx).FindByHash(ctx, hash)
	if errors.Is(err, ErrNotFound) {
		return KeyIdentity{}, fail(ReasonNotFound)
	}
	if err != nil {
		return KeyIdentity{}, fmt.Errorf("load api key: %w", err)
	}
	if !subtleCompare(key.KeyHash, hash) {
		return KeyIdentity{}, fail(ReasonNotFound)
	}
	if !key.Active() {
		return KeyIdentity{}, fail(ReasonRevoked)
	}
	if len(c.AllowTypes) > 0 && !containsType(c.AllowTypes, key.Type) {
		return KeyIdentity{}, fail(ReasonTypeForbidden)
	}
	for _, scope := range c.RequireScopes {
		if !key.HasScope(scope) {
			return KeyIdentity{}, fail(ReasonScopeForbidden)
		}
	}
	return KeyIdentity{
		APIKeyID:    key.ID,
		MerchantID:  key.MerchantID,
		Environment: key.Environment,
		KeyType:     key.Type,
		Scopes:      append([]string(nil), key.Scopes...),
	}, nil
}

// Issue creates a key and returns its plaintext exactly once.
func (a *APIKeys) Issue(ctx context.Context, in IssueInput) (IssuedKey, error) {
	if in.MerchantID == "" {
		return IssuedKey{}, fmt.Errorf("%w: merchant is required", ErrInvalidInput)
	}
	if !in.Environment.Valid() {
		return IssuedKey{}, fmt.Errorf("%w: %v", ErrInvalidInput, merchant.ErrInvalidEnvironment)
	}
	if !in.Type.Valid() {
		return IssuedKey{}, fmt.Errorf("%w: key type must be SECRET or PUBLISHABLE", ErrInvalidInput)
	}
	name := strings.TrimSpace(in.Name)
	if len([]rune(name)) > maxKeyNameLen {
		return IssuedKey{}, fmt.Errorf("%w: name must be at most %d characters", ErrInvalidInput, maxKeyNameLen)
	}
	scopes, err := normalizeScopes(in.Type, in.Scopes)
	if err != nil {
		return IssuedKey{}, err
	}

	for attempt := 0; attempt < ids.DefaultAttempts; attempt++ {
		secret, err := ids.NewAPIKeySecret(in.Type.Kind(), in.Environment.Slug())
		if err != nil {
			return IssuedKey{}, err
		}
		key := APIKey{
			ID:          ids.New(),
			MerchantID:  in.MerchantID,
			Environment: in.Environment,
			Type:        in.Type,
			KeyHash:     HashToken(secret.Plaintext),
			Prefix:      secret.Prefix,
			Last4:       secret.Last4,
			Name:        name,
			Status:      KeyActive,
			Scopes:      scopes,
			CreatedAt:   a.now().UTC(),
		}
		err = a.store.APIKeys(ctx).Create(ctx, &key)
		if errors.Is(err, ErrDuplicate) {
			continue
		}
		if err != nil {
			return IssuedKey{}, fmt.Errorf("store api key: %w", err)
		}
		return IssuedKey{Key: key, Plaintext: secret.Plaintext}, nil
	}
	return IssuedKey{}, ids.ErrExhausted
}

// List returns the merchant's keys for env, newest first. Hashes are cleared.
func (a *APIKeys) List(ctx context.Context, merchantID string, env merchant.Environment) ([]APIKey, error) {
	all, err := a.store.APIKeys(ctx).ListByMerchant(ctx, merchantID)
	if err != nil {
		return nil, err
	}
	out := make([]APIKey, 0, len(all))
	for _, k := range all {
		if k.Environment != env {
			continue
		}
		cp := *k
		cp.KeyHash = ""
		out = append(out, cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Revoke permanently disables a key. Keys owned by other merchants report ErrNotFound.
func (a *APIKeys) Revoke(ctx context.Context, merchantID, keyID string) (APIKey, error) {
	key, err := a.store.APIKeys(ctx).Revoke(ctx, merchantID, keyID, a.now().UTC())
	if err != nil {
		return APIKey{}, err
	}
	out := *key
	out.KeyHash = ""
	return out, nil
}

func normalizeScopes(t KeyType, requested []string) ([]string, error) {
	if len(requested) == 0 {
		if t == KeyPublishable {
			return []string{ScopeLinksRead}, nil
		}
		return []string{ScopeLinksRead, ScopeLinksWrite, ScopePaymentsRead}, nil
	}
	seen := make(map[string]struct{}, len(requested))
	out := make([]string, 0, len(requested))
	for _, s := range requested {
		s = strings.TrimSpace(s)
		if _, ok := knownScopes[s]; !ok {
			return nil, fmt.Errorf("%w: unknown scope %q", ErrInvalidInput, s)
		}
		if t == KeyPublishable && s != ScopeLinksRead {
			return nil, fmt.Errorf("%w: publishable keys may only read payment links", ErrInvalidInput)
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out, nil
}

func containsType(list []KeyType, t KeyType) bool {
	for _, v := range list {
		if v == t {
			return true
		}
	}
	return false
}
