// Package redis connects to Redis with go-redis. The shared client backs
// the OAuth state store, persisted sign-ins, the auth throttle and the
// bootstrap ledger.
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	states := identity.NewRedisStateStore(client, cfg.KeyPrefix+"oauth:")
package redis
