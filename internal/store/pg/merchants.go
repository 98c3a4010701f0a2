package pg

import (
	"context"
	"database/sql"
	"errors"

	"byund.io/internal/merchant"
)

const merchantColumns = `id, user_id, public_name, coalesce(settlement_wallet,''), dashboard_mode, brand_bg, brand_text,
	onboarding_step, onboarding_completed_at, created_at, updated_at`

func (s *Store) CreateMerchant(ctx context.Context, m *merchant.Merchant) error {
	_, err := s.db.ExecContext(ctx, `
		insert into merchants(id, user_id, public_name, settlement_wallet, dashboard_mode, brand_bg, brand_text,
			onboarding_step, onboarding_completed_at, created_at, updated_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, m.ID, m.UserID, m.PublicName, nullIfEmpty(m.SettlementWallet), string(m.DashboardMode), m.BrandBg, m.BrandText,
		m.OnboardingStep, nullTime(m.OnboardingCompletedAt), m.CreatedAt, m.UpdatedAt)
	if isUniqueViolation(err) {
		return merchant.ErrAlreadyExists
	}
	return err
}

func (s *Store) FindMerchant(ctx context.Context, id string) (merchant.Merchant, error) {
	return scanMerchant(s.db.QueryRowContext(ctx, `select `+merchantColumns+` from merchants where id=$1`, id))
}

func (s *Store) FindMerchantByUser(ctx context.Context, userID string) (merchant.Merchant, error) {
	return scanMerchant(s.db.QueryRowContext(ctx, `select `+merchantColumns+` from merchants where user_id=$1`, userID))
}

// UpdateMerchant reads the row with "for update", applies fn and writes the
// result back in the same transaction.
func (s *Store) UpdateMerchant(ctx context.Context, id string, fn func(*merchant.Merchant) error) (merchant.Merchant, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return merchant.Merchant{}, err
	}
	defer func() { _ = tx.Rollback() }()

	m, err := scanMerchant(tx.QueryRowContext(ctx, `select `+merchantColumns+` from merchants where id=$1 for update`, id))
	if err != nil {
		return merchant.Merchant{}, err
	}
	if err := fn(&m); err != nil {
		return merchant.Merchant{}, err
	}
	if _, err := tx.ExecContext(ctx, `
		update merchants
		set public_name=$2, settlement_wallet=$3, dashboard_mode=$4, brand_bg=$5, brand_text=$6,
			onboarding_step=$7, onboarding_completed_at=$8, updated_at=$9
		where id=$1
	`, m.ID, m.PublicName, nullIfEmpty(m.SettlementWallet), string(m.DashboardMode), m.BrandBg, m.BrandText,
		m.OnboardingStep, nullTime(m.OnboardingCompletedAt), m.UpdatedAt); err != nil {
		return merchant.Merchant{}, err
	}
	if err := tx.Commit(); err != nil {
		return merchant.Merchant{}, err
	}
	return m, nil
}

func scanMerchant(row scanner) (merchant.Merchant, error) {
	var (
		m         merchant.Merchant
		mode      string
		completed sql.NullTime
	)
	err := row.Scan(&m.ID, &m.UserID, &m.PublicName, &m.SettlementWallet, &mode, &m.BrandBg, &m.BrandText,
		&m.OnboardingStep, &completed, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return merchant.Merchant{}, merchant.ErrNotFound
	}
	if err != nil {
		return merchant.Merchant{}, err
	}
	m.DashboardMode = merchant.Environment(mode)
	m.OnboardingCompletedAt = timePtr(completed)
	return m, nil
}
