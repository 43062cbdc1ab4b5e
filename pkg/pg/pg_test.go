package pg_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"testing/fstest"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/componenthub/hubauth/pkg/pg"
)

func TestErrorHelpers(t *testing.T) {
	t.Parallel()

	dup := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	fk := &pgconn.PgError{Code: "23503"}

	assert.True(t, pg.IsDuplicateKeyError(dup))
	assert.False(t, pg.IsDuplicateKeyError(fk))
	assert.True(t, pg.IsForeignKeyViolationError(fk))
	assert.False(t, pg.IsForeignKeyViolationError(errors.New("23503")))
	assert.True(t, pg.IsNotFoundError(fmt.Errorf("get: %w", pgx.ErrNoRows)))
	assert.False(t, pg.IsNotFoundError(nil))
}

func TestConnect_EmptyConnectionString(t *testing.T) {
	t.Parallel()
	_, err := pg.Connect(context.Background(), pg.Config{})
	assert.ErrorIs(t, err, pg.ErrEmptyConnectionString)
}

func TestMigrate_MissingDir(t *testing.T) {
	t.Parallel()
	err := pg.Migrate(context.Background(), nil, fstest.MapFS{}, pg.Config{MigrationsDir: "migrations"}, nil)
	assert.ErrorIs(t, err, pg.ErrMigrationsDirNotFound)
}
