package auth_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"byund.io/internal/auth"
	"byund.io/internal/merchant"
	"byund.io/internal/store/memory"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func newSessions(t *testing.T) (*auth.Sessions, *memory.Store, *clock) {
	t.Helper()
	st := memory.New()
	clk := &clock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	s, err := auth.NewSessions(st, st, auth.WithClock(clk.Now), auth.WithSessionTTL(time.Hour))
	require.NoError(t, err)
	return s, st, clk
}

func TestSessionRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newSessions(t)

	issued, err := s.Register(ctx, "Owner@Example.com", "correct horse")
	require.NoError(t, err)

	id, err := s.Authenticate(ctx, issued.Token)
	require.NoError(t, err)
	assert.Equal(t, issued.UserID, id.UserID)
	assert.Empty(t, id.MerchantID)

	_, err = s.Authenticate(ctx, issued.Token+"x")
	assert.Equal(t, auth.ReasonNotFound, auth.ReasonOf(err))

	_, err = s.Authenticate(ctx, "")
	assert.Equal(t, auth.ReasonMissing, auth.ReasonOf(err))
}

func TestSessionExpiry(t *testing.T) {
	ctx := context.Background()
	s, st, clk := newSessions(t)

	issued, err := s.Register(ctx, "owner@example.com", "correct horse")
	require.NoError(t, err)

	clk.t = clk.t.Add(59 * time.Minute)
	_, err = s.Authenticate(ctx, issued.Token)
	require.NoError(t, err)

	// expiresAt <= now fails.
	clk.t = issued.ExpiresAt
	_, err = s.Authenticate(ctx, issued.Token)
	assert.Equal(t, auth.ReasonExpired, auth.ReasonOf(err))
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)

	st.ExpireSessions(issued.UserID, clk.t.Add(-24*time.Hour))
	_, err = s.Authenticate(ctx, issued.Token)
	assert.Equal(t, auth.ReasonExpired, auth.ReasonOf(err))
}

func TestLoginRotatesSessions(t *testing.T) {
	ctx := context.Background()
	s, st, _ := newSessions(t)

	first, err := s.Register(ctx, "owner@example.com", "correct horse")
	require.NoError(t, err)
	second, err := s.Login(ctx, "OWNER@example.com", "correct horse")
	require.NoError(t, err)

	assert.Equal(t, 1, st.SessionCount(first.UserID))
	_, err = s.Authenticate(ctx, first.Token)
	assert.Equal(t, auth.ReasonNotFound, auth.ReasonOf(err))
	_, err = s.Authenticate(ctx, second.Token)
	assert.NoError(t, err)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newSessions(t)
	_, err := s.Register(ctx, "owner@example.com", "correct horse")
	require.NoError(t, err)

	_, err = s.Login(ctx, "owner@example.com", "wrong horse")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	_, err = s.Login(ctx, "nobody@example.com", "correct horse")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	_, err = s.Login(ctx, "not an email", "correct horse")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestLoginUnknownEmailStillComparesPassword(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newSessions(t)
	_, err := s.Register(ctx, "owner@example.com", "correct horse")
	require.NoError(t, err)

	var hashes []string
	restore := auth.SetPasswordVerifier(func(hash, password string) error {
		hashes = append(hashes, hash)
		return auth.VerifyPassword(hash, password)
	})
	t.Cleanup(restore)

	_, err = s.Login(ctx, "nobody@example.com", "correct horse")
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)
	_, err = s.Login(ctx, "owner@example.com", "wrong horse")
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)

	require.Len(t, hashes, 2)
	for _, h := range hashes {
		assert.True(t, strings.HasPrefix(h, "$2a$"), h)
	}
	assert.NotEqual(t, hashes[0], hashes[1])
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newSessions(t)

	_, err := s.Register(ctx, "owner@example.com", "short")
	assert.ErrorIs(t, err, auth.ErrInvalidInput)
	_, err = s.Register(ctx, "nope", "correct horse")
	assert.ErrorIs(t, err, auth.ErrInvalidInput)

	_, err = s.Register(ctx, "owner@example.com", "correct horse")
	require.NoError(t, err)
	_, err = s.Register(ctx, "owner@example.com", "another pass")
	assert.ErrorIs(t, err, auth.ErrEmailTaken)
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newSessions(t)
	issued, err := s.Register(ctx, "owner@example.com", "correct horse")
	require.NoError(t, err)

	require.NoError(t, s.Logout(ctx, issued.Token))
	_, err = s.Authenticate(ctx, issued.Token)
	assert.Equal(t, auth.ReasonNotFound, auth.ReasonOf(err))

	require.NoError(t, s.Logout(ctx, issued.Token))
	require.NoError(t, s.Logout(ctx, ""))
}

func TestAuthenticateResolvesMerchant(t *testing.T) {
	ctx := context.Background()
	s, st, _ := newSessions(t)
	issued, err := s.Register(ctx, "owner@example.com", "correct horse")
	require.NoError(t, err)

	merchants, err := merchant.NewService(st)
	require.NoError(t, err)
	m, err := merchants.SaveProfile(ctx, issued.UserID, "Acme")
	require.NoError(t, err)

	id, err := s.Authenticate(ctx, issued.Token)
	require.NoError(t, err)
	assert.Equal(t, m.ID, id.MerchantID)
}
