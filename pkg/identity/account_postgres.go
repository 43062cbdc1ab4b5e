package identity

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/componenthub/hubauth/pkg/pg"
)

// DB is the subset of *pgxpool.Pool the PostgreSQL store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresAccountStore keeps accounts in the accounts and account_providers
// tables.
type PostgresAccountStore struct {
	db DB
}

func NewPostgresAccountStore(db DB) *PostgresAccountStore {
	return &PostgresAccountStore{db: db}
}

const selectAccount = `SELECT a.id, a.email, a.display_name, a.avatar_url, a.password_hash, a.created_at FROM accounts a`

func (s *PostgresAccountStore) Create(ctx context.Context, acc *Account) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO accounts (id, email, display_name, avatar_url, password_hash, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		acc.ID, NormalizeEmail(acc.Email), acc.DisplayName, acc.AvatarURL, acc.PasswordHash, acc.CreatedAt,
	)
	if pg.IsDuplicateKeyError(err) {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (s *PostgresAccountStore) ByID(ctx context.Context, id string) (*Account, error) {
	return s.one(ctx, selectAccount+` WHERE a.id = $1`, id)
}

func (s *PostgresAccountStore) ByEmail(ctx context.Context, email string) (*Account, error) {
	return s.one(ctx, selectAccount+` WHERE a.email = $1`, NormalizeEmail(email))
}

func (s *PostgresAccountStore) ByProvider(ctx context.Context, provider Provider, providerUserID string) (*Account, error) {
	return s.one(ctx,
		selectAccount+` JOIN account_providers p ON p.account_id = a.id WHERE p.provider = $1 AND p.provider_user_id = $2`,
		string(provider), providerUserID,
	)
}

func (s *PostgresAccountStore) Link(ctx context.Context, accountID string, provider Provider, providerUserID string) error {
	var owner string
	err := s.db.QueryRow(ctx, `
INSERT INTO account_providers (provider, provider_user_id, account_id) VALUES ($1, $2, $3)
ON CONFLICT (provider, provider_user_id) DO UPDATE SET provider = EXCLUDED.provider
RETURNING account_id`,
		string(provider), providerUserID, accountID,
	).Scan(&owner)
	if pg.IsForeignKeyViolationError(err) {
		return ErrAccountNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to link provider: %w", err)
	}
	if owner != accountID {
		return ErrProviderLinked
	}
	return nil
}

func (s *PostgresAccountStore) SetPassword(ctx context.Context, accountID string, hash []byte) error {
	tag, err := s.db.Exec(ctx, `UPDATE accounts SET password_hash = $2 WHERE id = $1`, accountID, hash)
	if err != nil {
		return fmt.Errorf("failed to set password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (s *PostgresAccountStore) one(ctx context.Context, query string, args ...any) (*Account, error) {
	var acc Account
	err := s.db.QueryRow(ctx, query, args...).Scan(
		&acc.ID, &acc.Email, &acc.DisplayName, &acc.AvatarURL, &acc.PasswordHash, &acc.CreatedAt,
	)
	if pg.IsNotFoundError(err) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}
	return &acc, nil
}

var _ AccountStore = (*PostgresAccountStore)(nil)
