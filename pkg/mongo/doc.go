// Package mongo connects to MongoDB for the document-backed profile store
// and bootstrap ledger.
//
//	var cfg mongo.Config
//	config.MustLoad(&cfg)
//
//	db, err := mongo.NewWithDatabase(ctx, cfg, "componenthub")
//	if err != nil {
//		return err
//	}
//	defer db.Client().Disconnect(context.Background())
//
//	store, err := profile.NewMongoStore(db, "users")
//
// Healthcheck plugs into httpserver.WithHealthChecks.
package mongo
