// Package memory keeps every store in process memory. It backs the API when
// no database DSN is configured and is used throughout the tests.
package memory

import (
	"context"
	"sync"
	"time"

	"byund.io/internal/auth"
	"byund.io/internal/merchant"
	"byund.io/internal/paylink"
)

var (
	_ auth.Store            = (*Store)(nil)
	_ auth.MerchantResolver = (*Store)(nil)
	_ merchant.Store        = (*Store)(nil)
	_ paylink.Store         = (*Store)(nil)
)

// Store is safe for concurrent use. A single mutex serialises writes, which
// gives the same atomicity the SQL store gets from row locks.
type Store struct {
	mu sync.RWMutex

	users      map[string]auth.User
	userEmails map[string]string

	sessions map[string]auth.Session

	apiKeys    map[string]auth.APIKey
	apiKeyHash map[string]string

	merchants      map[string]merchant.Merchant
	merchantByUser map[string]string

	links        map[string]paylink.Link
	linkByPublic map[string]string

	payments map[string]paylink.Payment
}

// New returns an empty store.
func New() *Store {
	return &Store{
		users:          make(map[string]auth.User),
		userEmails:     make(map[string]string),
		sessions:       make(map[string]auth.Session),
		apiKeys:        make(map[string]auth.APIKey),
		apiKeyHash:     make(map[string]string),
		merchants:      make(map[string]merchant.Merchant),
		merchantByUser: make(map[string]string),
		links:          make(map[string]paylink.Link),
		linkByPublic:   make(map[string]string),
		payments:       make(map[string]paylink.Payment),
	}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }

func (s *Store) Users(context.Context) auth.UserStore       { return userStore{s} }
func (s *Store) Sessions(context.Context) auth.SessionStore { return sessionStore{s} }
func (s *Store) APIKeys(context.Context) auth.APIKeyStore   { return apiKeyStore{s} }

// Users ---------------------------------------------------------------------
type userStore struct{ s *Store }

func (u userStore) Create(_ context.Context, user *auth.User) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if _, ok := u.s.userEmails[user.Email]; ok {
		return auth.ErrDuplicate
	}
	if _, ok := u.s.users[user.ID]; ok {
		return auth.ErrDuplicate
	}
	u.s.users[user.ID] = *user
	u.s.userEmails[user.Email] = user.ID
	return nil
}

func (u userStore) Find(_ context.Context, id string) (*auth.User, error) {
	u.s.mu.RLock()
	defer u.s.mu.RUnlock()
	user, ok := u.s.users[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return &user, nil
}

func (u userStore) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	u.s.mu.RLock()
	id, ok := u.s.userEmails[email]
	u.s.mu.RUnlock()
	if !ok {
		return nil, auth.ErrNotFound
	}
	return u.Find(ctx, id)
}

// Sessions ------------------------------------------------------------------
type sessionStore struct{ s *Store }

func (ss sessionStore) Create(_ context.Context, sess *auth.Session) error {
	ss.s.mu.Lock()
	defer ss.s.mu.Unlock()
	if _, ok := ss.s.sessions[sess.TokenHash]; ok {
		return auth.ErrDuplicate
	}
	ss.s.sessions[sess.TokenHash] = *sess
	return nil
}

func (ss sessionStore) FindByHash(_ context.Context, hash string) (*auth.Session, error) {
	ss.s.mu.RLock()
	defer ss.s.mu.RUnlock()
	sess, ok := ss.s.sessions[hash]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return &sess, nil
}

func (ss sessionStore) DeleteByHash(_ context.Context, hash string) error {
	ss.s.mu.Lock()
	defer ss.s.mu.Unlock()
	if _, ok := ss.s.sessions[hash]; !ok {
		return auth.ErrNotFound
	}
	delete(ss.s.sessions, hash)
	return nil
}

func (ss sessionStore) Replace(_ context.Context, sess *auth.Session) error {
	ss.s.mu.Lock()
	defer ss.s.mu.Unlock()
	for hash, existing := range ss.s.sessions {
		if existing.UserID == sess.UserID {
			delete(ss.s.sessions, hash)
		}
	}
	if _, ok := ss.s.sessions[sess.TokenHash]; ok {
		return auth.ErrDuplicate
	}
	ss.s.sessions[sess.TokenHash] = *sess
	return nil
}

// SessionCount reports how many sessions a user holds.
func (s *Store) SessionCount(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, sess := range s.sessions {
		if sess.UserID == userID {
			n++
		}
	}
	return n
}

// ExpireSessions moves every session of userID to expire at at.
func (s *Store) ExpireSessions(userID string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for hash, sess := range s.sessions {
		if sess.UserID == userID {
			sess.ExpiresAt = at
			s.sessions[hash] = sess
		}
	}
}

// API keys ------------------------------------------------------------------
type apiKeyStore struct{ s *Store }

func (a apiKeyStore) Create(_ context.Context, k *auth.APIKey) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	if _, ok := a.s.apiKeyHash[k.KeyHash]; ok {
		return auth.ErrDuplicate
	}
	stored := *k
	stored.Scopes = append([]string(nil), k.Scopes...)
	a.s.apiKeys[k.ID] = stored
	a.s.apiKeyHash[k.KeyHash] = k.ID
	return nil
}

func (a apiKeyStore) FindByHash(_ context.Context, hash string) (*auth.APIKey, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	id, ok := a.s.apiKeyHash[hash]
	if !ok {
		return nil, auth.ErrNotFound
	}
	k := a.s.apiKeys[id]
	k.Scopes = append([]string(nil), k.Scopes...)
	return &k, nil
}

func (a apiKeyStore) ListByMerchant(_ context.Context, merchantID string) ([]*auth.APIKey, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	var out []*auth.APIKey
	for _, k := range a.s.apiKeys {
		if k.MerchantID != merchantID {
			continue
		}
		cp := k
		cp.Scopes = append([]string(nil), k.Scopes...)
		out = append(out, &cp)
	}
	return out, nil
}

func (a apiKeyStore) Revoke(_ context.Context, merchantID, id string, at time.Time) (*auth.APIKey, error) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	k, ok := a.s.apiKeys[id]
	if !ok || k.MerchantID != merchantID {
		return nil, auth.ErrNotFound
	}
	if k.RevokedAt == nil {
		revokedAt := at
		k.RevokedAt = &revokedAt
	}
	k.Status = auth.KeyRevoked
	a.s.apiKeys[id] = k
	return &k, nil
}
