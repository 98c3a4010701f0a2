package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"byund.io/internal/ids"
)

const (
	DefaultSessionTTL = 14 * 24 * time.Hour

	sessionCookieDev  = "byund_session"
	sessionCookieProd = "__Host-byund_session"
)

// SessionIdentity is the result of a successful cookie check. MerchantID is
// empty for users that have not finished the profile step.
type SessionIdentity struct {
	UserID     string
	MerchantID string
	ExpiresAt  time.Time
}

// IssuedSession carries the plaintext cookie value. It is never persisted.
type IssuedSession struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
}

// Sessions authenticates dashboard users by session cookie.
type Sessions struct {
	store     Store
	merchants MerchantResolver
	now       func() time.Time
	ttl       time.Duration
}

// SessionOption configures Sessions.
type SessionOption func(*Sessions)

// WithClock overrides time source (useful for tests).
func WithClock(fn func() time.Time) SessionOption {
	return func(s *Sessions) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithSessionTTL sets the fixed session lifetime.
func WithSessionTTL(ttl time.Duration) SessionOption {
	return func(s *Sessions) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewSessions constructs the session authenticator.
func NewSessions(store Store, merchants MerchantResolver, opts ...SessionOption) (*Sessions, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	s := &Sessions{store: store, merchants: merchants, now: time.Now, ttl: DefaultSessionTTL}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Authenticate resolves a cookie value to its user. Expired sessions are
// rejected but left in place; Login and Logout evict them.
func (s *Sessions) Authenticate(ctx context.Context, cookieValue string) (SessionIdentity, error) {
	if cookieValue == "" {
		return SessionIdentity{}, fail(ReasonMissing)
	}
	sess, err := s.store.Sessions(ctx).FindByHash(ctx, HashToken(cookieValue))
	if errors.Is(err, ErrNotFound) {
		return SessionIdentity{}, fail(ReasonNotFound)
	}
	if err != nil {
		return SessionIdentity{}, fmt.Errorf("load session: %w", err)
	}
	if !sess.ExpiresAt.After(s.now()) {
		return SessionIdentity{}, fail(ReasonExpired)
	}
	id := SessionIdentity{UserID: sess.UserID, ExpiresAt: sess.ExpiresAt}
	if s.merchants != nil {
		merchantID, err := s.merchants.MerchantIDForUser(ctx, sess.UserID)
		if err != nil {
			return SessionIdentity{}, fmt.Errorf("resolve merchant: %w", err)
		}
		id.MerchantID = merchantID
	}
	return id, nil
}

// Register creates an account and signs it in.
func (s *Sessions) Register(ctx context.Context, email, password string) (IssuedSession, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return IssuedSession{}, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return IssuedSession{}, err
	}
	now := s.now().UTC()
	u := &User{ID: ids.New(), Email: email, PasswordHash: hash, CreatedAt: now, UpdatedAt: now}
	if err := s.store.Users(ctx).Create(ctx, u); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return IssuedSession{}, ErrEmailTaken
		}
		return IssuedSession{}, fmt.Errorf("create user: %w", err)
	}
	return s.rotate(ctx, u.ID)
}

// Login verifies credentials and replaces every existing session of the user
// with a single new one.
func (s *Sessions) Login(ctx context.Context, email, password string) (IssuedSession, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return IssuedSession{}, ErrInvalidCredentials
	}
	u, err := s.store.Users(ctx).FindByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		burnPasswordCheck(password)
		return IssuedSession{}, ErrInvalidCredentials
	}
	if err != nil {
		return IssuedSession{}, fmt.Errorf("load user: %w", err)
	}
	if err := verifyPassword(u.PasswordHash, password); err != nil {
		return IssuedSession{}, ErrInvalidCredentials
	}
	return s.rotate(ctx, u.ID)
}

// Logout deletes the session behind cookieValue. Unknown values are ignored.
func (s *Sessions) Logout(ctx context.Context, cookieValue string) error {
	if cookieValue == "" {
		return nil
	}
	err := s.store.Sessions(ctx).DeleteByHash(ctx, HashToken(cookieValue))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// User loads the account behind an identity.
func (s *Sessions) User(ctx context.Context, userID string) (*User, error) {
	return s.store.Users(ctx).Find(ctx, userID)
}

func (s *Sessions) rotate(ctx context.Context, userID string) (IssuedSession, error) {
	token, err := GenerateToken()
	if err != nil {
		return IssuedSession{}, err
	}
	now := s.now().UTC()
	sess := &Session{
		TokenHash: HashToken(token),
		UserID:    userID,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.store.Sessions(ctx).Replace(ctx, sess); err != nil {
		return IssuedSession{}, fmt.Errorf("store session: %w", err)
	}
	return IssuedSession{Token: token, UserID: userID, ExpiresAt: sess.ExpiresAt}, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || len(email) > 254 {
		return "", fmt.Errorf("%w: a valid email is required", ErrInvalidInput)
	}
	return email, nil
}

// SessionCookieName returns the host-locked name in production.
func SessionCookieName(production bool) string {
	if production {
		return sessionCookieProd
	}
	return sessionCookieDev
}

// NewSessionCookie builds the cookie carrying an issued session.
func NewSessionCookie(sess IssuedSession, production bool) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName(production),
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   production,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearSessionCookie expires the session cookie in the browser.
func ClearSessionCookie(production bool) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName(production),
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   production,
		SameSite: http.SameSiteLaxMode,
	}
}
