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

func newKeys(t *testing.T) *auth.APIKeys {
	t.Helper()
	keys, err := auth.NewAPIKeys(memory.New(), func() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) })
	require.NoError(t, err)
	return keys
}

func issue(t *testing.T, keys *auth.APIKeys, typ auth.KeyType, env merchant.Environment, scopes ...string) auth.IssuedKey {
	t.Helper()
	k, err := keys.Issue(context.Background(), auth.IssueInput{
		MerchantID:  "m1",
		Environment: env,
		Type:        typ,
		Name:        "server",
		Scopes:      scopes,
	})
	require.NoError(t, err)
	return k
}

func TestIssueFormat(t *testing.T) {
	keys := newKeys(t)
	k := issue(t, keys, auth.KeySecret, merchant.EnvLive)

	assert.True(t, strings.HasPrefix(k.Plaintext, "byund_sk_live_"))
	assert.Equal(t, "byund_sk_live", k.Key.Prefix)
	assert.Equal(t, k.Plaintext[len(k.Plaintext)-4:], k.Key.Last4)
	assert.Equal(t, auth.HashToken(k.Plaintext), k.Key.KeyHash)
	assert.ElementsMatch(t, []string{auth.ScopeLinksRead, auth.ScopeLinksWrite, auth.ScopePaymentsRead}, k.Key.Scopes)

	pk := issue(t, keys, auth.KeyPublishable, merchant.EnvTest)
	assert.True(t, strings.HasPrefix(pk.Plaintext, "byund_pk_test_"))
	assert.Equal(t, []string{auth.ScopeLinksRead}, pk.Key.Scopes)
}

func TestIssueRejectsBadScopes(t *testing.T) {
	keys := newKeys(t)
	ctx := context.Background()

	_, err := keys.Issue(ctx, auth.IssueInput{MerchantID: "m1", Environment: merchant.EnvTest, Type: auth.KeySecret, Scopes: []string{"admin"}})
	assert.ErrorIs(t, err, auth.ErrInvalidInput)

	_, err = keys.Issue(ctx, auth.IssueInput{MerchantID: "m1", Environment: merchant.EnvTest, Type: auth.KeyPublishable, Scopes: []string{auth.ScopeLinksWrite}})
	assert.ErrorIs(t, err, auth.ErrInvalidInput)

	_, err = keys.Issue(ctx, auth.IssueInput{MerchantID: "m1", Environment: "DEV", Type: auth.KeySecret})
	assert.ErrorIs(t, err, auth.ErrInvalidInput)
}

func TestAuthenticateKey(t *testing.T) {
	ctx := context.Background()
	keys := newKeys(t)
	sk := issue(t, keys, auth.KeySecret, merchant.EnvLive)
	pk := issue(t, keys, auth.KeyPublishable, merchant.EnvLive)

	id, err := keys.Authenticate(ctx, "Bearer "+sk.Plaintext, auth.Constraints{})
	require.NoError(t, err)
	assert.Equal(t, sk.Key.ID, id.APIKeyID)
	assert.Equal(t, "m1", id.MerchantID)
	assert.Equal(t, merchant.EnvLive, id.Environment)
	assert.Equal(t, auth.KeySecret, id.KeyType)

	_, err = keys.Authenticate(ctx, "Bearer byund_sk_live_unknown", auth.Constraints{})
	assert.Equal(t, auth.ReasonNotFound, auth.ReasonOf(err))

	_, err = keys.Authenticate(ctx, "", auth.Constraints{})
	assert.Equal(t, auth.ReasonMalformed, auth.ReasonOf(err))

	secretOnly := auth.Constraints{AllowTypes: []auth.KeyType{auth.KeySecret}}
	_, err = keys.Authenticate(ctx, "Bearer "+pk.Plaintext, secretOnly)
	assert.Equal(t, auth.ReasonTypeForbidden, auth.ReasonOf(err))
	assert.ErrorIs(t, err, auth.ErrForbidden)

	needsWrite := auth.Constraints{RequireScopes: []string{auth.ScopeLinksWrite}}
	_, err = keys.Authenticate(ctx, "Bearer "+pk.Plaintext, needsWrite)
	assert.Equal(t, auth.ReasonScopeForbidden, auth.ReasonOf(err))

	_, err = keys.Authenticate(ctx, "Bearer "+sk.Plaintext, needsWrite)
	assert.NoError(t, err)
}

func TestRevokedKeyFailsForever(t *testing.T) {
	ctx := context.Background()
	keys := newKeys(t)
	sk := issue(t, keys, auth.KeySecret, merchant.EnvTest)

	_, err := keys.Revoke(ctx, "other-merchant", sk.Key.ID)
	assert.ErrorIs(t, err, auth.ErrNotFound)

	revoked, err := keys.Revoke(ctx, "m1", sk.Key.ID)
	require.NoError(t, err)
	assert.Equal(t, auth.KeyRevoked, revoked.Status)
	require.NotNil(t, revoked.RevokedAt)
	assert.Empty(t, revoked.KeyHash)

	for i := 0; i < 3; i++ {
		_, err = keys.Authenticate(ctx, "Bearer "+sk.Plaintext, auth.Constraints{})
		assert.Equal(t, auth.ReasonRevoked, auth.ReasonOf(err))
	}

	again, err := keys.Revoke(ctx, "m1", sk.Key.ID)
	require.NoError(t, err)
	assert.Equal(t, revoked.RevokedAt, again.RevokedAt)
}

func TestListScopedToEnvironment(t *testing.T) {
	ctx := context.Background()
	keys := newKeys(t)
	issue(t, keys, auth.KeySecret, merchant.EnvTest)
	issue(t, keys, auth.KeyPublishable, merchant.EnvTest)
	issue(t, keys, auth.KeySecret, merchant.EnvLive)

	list, err := keys.List(ctx, "m1", merchant.EnvTest)
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, k := range list {
		assert.Equal(t, merchant.EnvTest, k.Environment)
		assert.Empty(t, k.KeyHash)
	}

	none, err := keys.List(ctx, "m2", merchant.EnvTest)
	require.NoError(t, err)
	assert.Empty(t, none)
}
