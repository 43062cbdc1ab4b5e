// Package ratelimiter implements a token bucket limiter with in-memory and
// Redis storage.
//
// hubauth uses it twice: to throttle failed password sign-ins per email
// address, and as HTTP middleware that caps auth requests per client address.
//
//	store := ratelimiter.NewMemoryStore()
//	defer store.Close()
//
//	bucket, err := ratelimiter.NewBucket(store, ratelimiter.Config{
//		Capacity:       5,
//		RefillRate:     5,
//		RefillInterval: 15 * time.Minute,
//	})
//
//	res, err := bucket.Allow(ctx, "login:ann@example.com")
//	if !res.Allowed() {
//		// retry after res.RetryAfter()
//	}
//
// Status reports the bucket without consuming a token. A Result with zero
// remaining tokens means the next Allow will be rejected.
package ratelimiter
