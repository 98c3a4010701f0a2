package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"byund.io/internal/merchant"
	"byund.io/internal/paylink"
)

const linkColumns = `id, merchant_id, environment, public_id, name, coalesce(description,''), mode,
	fixed_amount_cents, is_active, created_at, updated_at`

const paymentColumns = `id, link_id, merchant_id, environment, status, amount_usd_cents, amount_usdc_micros,
	token_address, chain_id, created_at, updated_at`

func (s *Store) CreateLink(ctx context.Context, l *paylink.Link) error {
	var fixed sql.NullInt64
	if l.FixedAmountCents != nil {
		fixed = sql.NullInt64{Int64: *l.FixedAmountCents, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		insert into payment_links(id, merchant_id, environment, public_id, name, description, mode,
			fixed_amount_cents, is_active, created_at, updated_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, l.ID, l.MerchantID, string(l.Environment), l.PublicID, l.Name, nullIfEmpty(l.Description), string(l.Mode),
		fixed, l.IsActive, l.CreatedAt, l.UpdatedAt)
	if isUniqueViolation(err) {
		return paylink.ErrDuplicate
	}
	return err
}

func (s *Store) PublicIDExists(ctx context.Context, publicID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`select exists(select 1 from payment_links where public_id=$1)`, publicID).Scan(&exists)
	return exists, err
}

func (s *Store) FindLinkByPublicID(ctx context.Context, publicID string) (paylink.Link, error) {
	return scanLink(s.db.QueryRowContext(ctx, `select `+linkColumns+` from payment_links where public_id=$1`, publicID))
}

func (s *Store) ListLinks(ctx context.Context, merchantID string, env merchant.Environment) ([]paylink.Link, error) {
	rows, err := s.db.QueryContext(ctx, `
		select `+linkColumns+`
		from payment_links
		where merchant_id=$1 and environment=$2
		order by created_at desc
	`, merchantID, string(env))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := []paylink.Link{}
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, l)
	}
	return res, rows.Err()
}

func (s *Store) SetLinkActive(ctx context.Context, merchantID, publicID string, env merchant.Environment, active bool, at time.Time) (paylink.Link, error) {
	return scanLink(s.db.QueryRowContext(ctx, `
		update payment_links
		set is_active=$4, updated_at=$5
		where merchant_id=$1 and public_id=$2 and environment=$3
		returning `+linkColumns, merchantID, publicID, string(env), active, at))
}

func (s *Store) CreatePayment(ctx context.Context, p *paylink.Payment) error {
	_, err := s.db.ExecContext(ctx, `
		insert into payments(id, link_id, merchant_id, environment, status, amount_usd_cents, amount_usdc_micros,
			token_address, chain_id, created_at, updated_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, p.ID, p.LinkID, p.MerchantID, string(p.Environment), string(p.Status), p.AmountUsdCents, p.AmountUsdcMicros,
		p.TokenAddress, p.ChainID, p.CreatedAt, p.UpdatedAt)
	if isForeignKeyViolation(err) {
		return paylink.ErrNotFound
	}
	return err
}

func (s *Store) FindPayment(ctx context.Context, id string) (paylink.Payment, error) {
	return scanPayment(s.db.QueryRowContext(ctx, `select `+paymentColumns+` from payments where id=$1`, id))
}

func (s *Store) UpdatePayment(ctx context.Context, id string, fn func(*paylink.Payment) error) (paylink.Payment, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return paylink.Payment{}, err
	}
	defer func() { _ = tx.Rollback() }()

	p, err := scanPayment(tx.QueryRowContext(ctx, `select `+paymentColumns+` from payments where id=$1 for update`, id))
	if err != nil {
		return paylink.Payment{}, err
	}
	if err := fn(&p); err != nil {
		return paylink.Payment{}, err
	}
	if _, err := tx.ExecContext(ctx,
		`update payments set status=$2, updated_at=$3 where id=$1`,
		p.ID, string(p.Status), p.UpdatedAt); err != nil {
		return paylink.Payment{}, err
	}
	if err := tx.Commit(); err != nil {
		return paylink.Payment{}, err
	}
	return p, nil
}

func scanLink(row scanner) (paylink.Link, error) {
	var (
		l     paylink.Link
		env   string
		mode  string
		fixed sql.NullInt64
	)
	err := row.Scan(&l.ID, &l.MerchantID, &env, &l.PublicID, &l.Name, &l.Description, &mode,
		&fixed, &l.IsActive, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return paylink.Link{}, paylink.ErrNotFound
	}
	if err != nil {
		return paylink.Link{}, err
	}
	l.Environment = merchant.Environment(env)
	l.Mode = paylink.Mode(mode)
	if fixed.Valid {
		v := fixed.Int64
		l.FixedAmountCents = &v
	}
	return l, nil
}

func scanPayment(row scanner) (paylink.Payment, error) {
	var (
		p      paylink.Payment
		env    string
		status string
	)
	err := row.Scan(&p.ID, &p.LinkID, &p.MerchantID, &env, &status, &p.AmountUsdCents, &p.AmountUsdcMicros,
		&p.TokenAddress, &p.ChainID, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return paylink.Payment{}, paylink.ErrNotFound
	}
	if err != nil {
		return paylink.Payment{}, err
	}
	p.Environment = merchant.Environment(env)
	p.Status = paylink.Status(status)
	return p, nil
}
