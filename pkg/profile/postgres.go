package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/componenthub/hubauth/pkg/roles"
)

// DB is the subset of *pgxpool.Pool the PostgreSQL store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps records in the profiles table.
type PostgresStore struct {
	db DB
}

func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const selectProfile = `SELECT id, name, email, avatar, role, created_at, last_login, updated_at FROM profiles`

func (s *PostgresStore) Get(ctx context.Context, id string) (*Record, error) {
	rec, err := scanRecord(s.db.QueryRow(ctx, selectProfile+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile %q: %w", id, err)
	}
	return rec, nil
}

// Set upserts the record. With merge, NULL parameters keep the stored
// column; without merge they reset it to the column default.
func (s *PostgresStore) Set(ctx context.Context, id string, fields Fields, merge bool) error {
	if id == "" {
		return ErrEmptyID
	}
	query := `
INSERT INTO profiles (id, name, email, avatar, role, created_at, last_login, updated_at)
VALUES ($1, COALESCE($2, ''), COALESCE($3, ''), COALESCE($4, ''), COALESCE($5, 'user'),
        COALESCE($6, now()), COALESCE($7, now()), $8)
ON CONFLICT (id) DO UPDATE SET
    name       = COALESCE($2, profiles.name),
    email      = COALESCE($3, profiles.email),
    avatar     = COALESCE($4, profiles.avatar),
    role       = COALESCE($5, profiles.role),
    created_at = COALESCE($6, profiles.created_at),
    last_login = COALESCE($7, profiles.last_login),
    updated_at = COALESCE($8, profiles.updated_at)`
	if !merge {
		query = `
INSERT INTO profiles (id, name, email, avatar, role, created_at, last_login, updated_at)
VALUES ($1, COALESCE($2, ''), COALESCE($3, ''), COALESCE($4, ''), COALESCE($5, 'user'),
        COALESCE($6, now()), COALESCE($7, now()), $8)
ON CONFLICT (id) DO UPDATE SET
    name       = EXCLUDED.name,
    email      = EXCLUDED.email,
    avatar     = EXCLUDED.avatar,
    role       = EXCLUDED.role,
    created_at = EXCLUDED.created_at,
    last_login = EXCLUDED.last_login,
    updated_at = EXCLUDED.updated_at`
	}

	var role *string
	if fields.Role != nil {
		r := fields.Role.String()
		role = &r
	}
	if _, err := s.db.Exec(ctx, query,
		id, fields.Name, fields.Email, fields.Avatar, role,
		fields.CreatedAt, fields.LastLogin, fields.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to set profile %q: %w", id, err)
	}
	return nil
}

func (s *PostgresStore) CreateIfAbsent(ctx context.Context, rec Record) (bool, error) {
	if rec.ID == "" {
		return false, ErrEmptyID
	}
	tag, err := s.db.Exec(ctx, `
INSERT INTO profiles (id, name, email, avatar, role, created_at, last_login, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO NOTHING`,
		rec.ID, rec.Name, rec.Email, rec.Avatar, rec.Role.String(),
		rec.CreatedAt, rec.LastLogin, nullTime(rec.UpdatedAt),
	)
	if err != nil {
		return false, fmt.Errorf("failed to create profile %q: %w", rec.ID, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.Query(ctx, selectProfile+` ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	return records, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM profiles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count profiles: %w", err)
	}
	return n, nil
}

func scanRecord(row pgx.Row) (*Record, error) {
	var (
		rec       Record
		role      string
		updatedAt *time.Time
	)
	if err := row.Scan(
		&rec.ID, &rec.Name, &rec.Email, &rec.Avatar, &role,
		&rec.CreatedAt, &rec.LastLogin, &updatedAt,
	); err != nil {
		return nil, err
	}
	rec.Role = roles.Role(role)
	if updatedAt != nil {
		rec.UpdatedAt = *updatedAt
	}
	return &rec, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

var _ Store = (*PostgresStore)(nil)
