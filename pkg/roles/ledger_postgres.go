package roles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is the subset of *pgxpool.Pool PostgresLedger needs.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresLedger stores the claim as the single row of bootstrap_admin. The
// row survives deletion of every profile.
type PostgresLedger struct {
	db Execer
}

func NewPostgresLedger(db Execer) *PostgresLedger {
	return &PostgresLedger{db: db}
}

func (l *PostgresLedger) Claim(ctx context.Context, subjectID string) (bool, error) {
	tag, err := l.db.Exec(ctx,
		`INSERT INTO bootstrap_admin (id, subject_id) VALUES (TRUE, $1) ON CONFLICT (id) DO NOTHING`,
		subjectID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to claim bootstrap admin: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

var _ BootstrapLedger = (*PostgresLedger)(nil)
