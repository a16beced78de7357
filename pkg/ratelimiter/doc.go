// Package ratelimiter implements token bucket rate limiting with an
// in-memory store and a Redis store (github.com/redis/go-redis/v9) that
// refills and consumes atomically in a Lua script.
//
//	bucket, _ := ratelimiter.NewBucket(ratelimiter.NewRedisStore(client), cfg)
//	res, err := bucket.Allow(ctx, "otp:"+ip)
//	if err == nil && !res.Allowed() {
//		// too many attempts, retry after res.RetryAfter()
//	}
package ratelimiter
