// Package pg connects to PostgreSQL with pgx/v5 and applies the embedded
// goose migrations that back the account and profile stores.
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, db.Migrations, cfg, log); err != nil {
//		return err
//	}
//
// IsDuplicateKeyError, IsForeignKeyViolationError and IsNotFoundError
// classify driver errors for the stores.
package pg
