package merchant_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"byund.io/internal/merchant"
	"byund.io/internal/store/memory"
)

const wallet = "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"

func newService(t *testing.T) *merchant.Service {
	t.Helper()
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	svc, err := merchant.NewService(memory.New(), merchant.WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	return svc
}

func TestOnboardingFlow(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	m, err := svc.SaveProfile(ctx, "user-1", "  Acme Coffee ")
	require.NoError(t, err)
	assert.Equal(t, "Acme Coffee", m.PublicName)
	assert.Equal(t, merchant.EnvTest, m.DashboardMode)
	assert.Equal(t, merchant.DefaultBrandBg, m.BrandBg)
	assert.Equal(t, merchant.StepWallet, merchant.ComputeInitialStep(m))

	m, err = svc.SaveWallet(ctx, m.ID, wallet)
	require.NoError(t, err)
	assert.Equal(t, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", m.SettlementWallet)
	assert.Equal(t, merchant.StepBranding, merchant.ComputeInitialStep(m))

	m, err = svc.SaveBranding(ctx, m.ID, "#112233", "#fafafa")
	require.NoError(t, err)
	assert.Equal(t, "#FAFAFA", m.BrandText)
	assert.Equal(t, merchant.StepComplete, m.OnboardingStep)

	m, err = svc.Complete(ctx, m.ID)
	require.NoError(t, err)
	require.NotNil(t, m.OnboardingCompletedAt)

	// Renaming later must not move progress backwards.
	m, err = svc.SaveProfile(ctx, "user-1", "Acme Roasters")
	require.NoError(t, err)
	assert.Equal(t, merchant.StepComplete, m.OnboardingStep)

	got, err := svc.ForUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.ID)
}

func TestSaveProfileValidatesName(t *testing.T) {
	svc := newService(t)
	for _, name := range []string{"", "A", strings.Repeat("x", 65)} {
		_, err := svc.SaveProfile(context.Background(), "user-1", name)
		assert.ErrorIs(t, err, merchant.ErrInvalidInput)
	}
}

func TestGatesRequireEarlierSteps(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	m, err := svc.SaveProfile(ctx, "user-1", "Acme")
	require.NoError(t, err)

	_, err = svc.SaveBranding(ctx, m.ID, "#000000", "#FFFFFF")
	assert.ErrorIs(t, err, merchant.ErrOnboardingIncomplete)

	_, err = svc.Complete(ctx, m.ID)
	assert.ErrorIs(t, err, merchant.ErrOnboardingIncomplete)

	_, err = svc.SaveWallet(ctx, m.ID, "0xnothex")
	assert.ErrorIs(t, err, merchant.ErrInvalidInput)

	_, err = svc.SaveBranding(ctx, m.ID, "red", "#FFFFFF")
	assert.ErrorIs(t, err, merchant.ErrInvalidInput)
}

func TestSetDashboardMode(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	m, err := svc.SaveProfile(ctx, "user-1", "Acme")
	require.NoError(t, err)

	m, err = svc.SetDashboardMode(ctx, m.ID, merchant.EnvLive)
	require.NoError(t, err)
	assert.Equal(t, merchant.EnvLive, m.DashboardMode)

	_, err = svc.SetDashboardMode(ctx, m.ID, merchant.Environment("PROD"))
	assert.ErrorIs(t, err, merchant.ErrInvalidEnvironment)

	_, err = svc.SetDashboardMode(ctx, "missing", merchant.EnvLive)
	assert.ErrorIs(t, err, merchant.ErrNotFound)
}

func TestConcurrentStepUpdatesDoNotRegress(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	m, err := svc.SaveProfile(ctx, "user-1", "Acme")
	require.NoError(t, err)
	_, err = svc.SaveWallet(ctx, m.ID, wallet)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = svc.SaveBranding(ctx, m.ID, "#101010", "#EEEEEE")
		}()
		go func() {
			defer wg.Done()
			_, _ = svc.SaveProfile(ctx, "user-1", "Acme")
		}()
	}
	wg.Wait()

	got, err := svc.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, merchant.StepComplete, got.OnboardingStep)
}
