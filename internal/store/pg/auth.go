package pg

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"byund.io/internal/auth"
	"byund.io/internal/merchant"
)

func (s *Store) Users(context.Context) auth.UserStore       { return &userStore{db: s.db} }
func (s *Store) Sessions(context.Context) auth.SessionStore { return &sessionStore{db: s.db} }
func (s *Store) APIKeys(context.Context) auth.APIKeyStore   { return &apiKeyStore{db: s.db} }

// MerchantIDForUser implements auth.MerchantResolver.
func (s *Store) MerchantIDForUser(ctx context.Context, userID string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `select id from merchants where user_id=$1`, userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return id, err
}

// User store ---------------------------------------------------------------
type userStore struct{ db *sql.DB }

func (s *userStore) Create(ctx context.Context, u *auth.User) error {
	_, err := s.db.ExecContext(ctx,
		`insert into users(id, email, password_hash, created_at, updated_at) values($1,$2,$3,$4,$5)`,
		u.ID, u.Email, u.PasswordHash, u.CreatedAt, u.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return auth.ErrDuplicate
	}
	return err
}

func (s *userStore) Find(ctx context.Context, id string) (*auth.User, error) {
	return s.scanOne(s.db.QueryRowContext(ctx,
		`select id, email, password_hash, created_at, updated_at from users where id=$1`, id))
}

func (s *userStore) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	return s.scanOne(s.db.QueryRowContext(ctx,
		`select id, email, password_hash, created_at, updated_at from users where email=$1`, email))
}

func (s *userStore) scanOne(row *sql.Row) (*auth.User, error) {
	var u auth.User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Session store ------------------------------------------------------------
type sessionStore struct{ db *sql.DB }

func (s *sessionStore) Create(ctx context.Context, sess *auth.Session) error {
	_, err := s.db.ExecContext(ctx,
		`insert into sessions(token_hash, user_id, expires_at, created_at) values($1,$2,$3,$4)`,
		sess.TokenHash, sess.UserID, sess.ExpiresAt, sess.CreatedAt,
	)
	if isUniqueViolation(err) {
		return auth.ErrDuplicate
	}
	return err
}

func (s *sessionStore) FindByHash(ctx context.Context, hash string) (*auth.Session, error) {
	var sess auth.Session
	err := s.db.QueryRowContext(ctx,
		`select token_hash, user_id, expires_at, created_at from sessions where token_hash=$1`, hash,
	).Scan(&sess.TokenHash, &sess.UserID, &sess.ExpiresAt, &sess.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *sessionStore) DeleteByHash(ctx context.Context, hash string) error {
	res, err := s.db.ExecContext(ctx, `delete from sessions where token_hash=$1`, hash)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return auth.ErrNotFound
	}
	return nil
}

// Replace locks the user row so two concurrent logins serialise; the later
// one wins and exactly one session survives.
func (s *sessionStore) Replace(ctx context.Context, sess *auth.Session) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var dummy int
	if err := tx.QueryRowContext(ctx, `select 1 from users where id=$1 for update`, sess.UserID).Scan(&dummy); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return auth.ErrNotFound
		}
		return err
	}
	if _, err := tx.ExecContext(ctx, `delete from sessions where user_id=$1`, sess.UserID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`insert into sessions(token_hash, user_id, expires_at, created_at) values($1,$2,$3,$4)`,
		sess.TokenHash, sess.UserID, sess.ExpiresAt, sess.CreatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return auth.ErrDuplicate
		}
		return err
	}
	return tx.Commit()
}

// API key store ------------------------------------------------------------
type apiKeyStore struct{ db *sql.DB }

const apiKeyColumns = `id, merchant_id, environment, key_type, key_hash, prefix, last4, coalesce(name,''), status, scopes, created_at, revoked_at`

func (s *apiKeyStore) Create(ctx context.Context, k *auth.APIKey) error {
	_, err := s.db.ExecContext(ctx, `
		insert into api_keys(id, merchant_id, environment, key_type, key_hash, prefix, last4, name, status, scopes, created_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, k.ID, k.MerchantID, string(k.Environment), string(k.Type), k.KeyHash, k.Prefix, k.Last4,
		nullIfEmpty(k.Name), string(k.Status), strings.Join(k.Scopes, " "), k.CreatedAt)
	if isUniqueViolation(err) {
		return auth.ErrDuplicate
	}
	return err
}

func (s *apiKeyStore) FindByHash(ctx context.Context, hash string) (*auth.APIKey, error) {
	k, err := scanAPIKey(s.db.QueryRowContext(ctx, `select `+apiKeyColumns+` from api_keys where key_hash=$1`, hash))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	return k, err
}

func (s *apiKeyStore) ListByMerchant(ctx context.Context, merchantID string) ([]*auth.APIKey, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+apiKeyColumns+` from api_keys where merchant_id=$1 order by created_at desc`, merchantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*auth.APIKey
	for rows.Next() {
		k, err := scanAPIKey(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, k)
	}
	return res, rows.Err()
}

func (s *apiKeyStore) Revoke(ctx context.Context, merchantID, id string, at time.Time) (*auth.APIKey, error) {
	k, err := scanAPIKey(s.db.QueryRowContext(ctx, `
		update api_keys
		set status = 'REVOKED', revoked_at = coalesce(revoked_at, $3)
		where id=$1 and merchant_id=$2
		returning `+apiKeyColumns, id, merchantID, at))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	return k, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAPIKey(row scanner) (*auth.APIKey, error) {
	var (
		k       auth.APIKey
		env     string
		typ     string
		status  string
		scopes  string
		revoked sql.NullTime
	)
	if err := row.Scan(&k.ID, &k.MerchantID, &env, &typ, &k.KeyHash, &k.Prefix, &k.Last4, &k.Name, &status, &scopes, &k.CreatedAt, &revoked); err != nil {
		return nil, err
	}
	k.Environment = merchant.Environment(env)
	k.Type = auth.KeyType(typ)
	k.Status = auth.KeyStatus(status)
	k.Scopes = strings.Fields(scopes)
	k.RevokedAt = timePtr(revoked)
	return &k, nil
}
