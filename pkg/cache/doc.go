// Package cache stores catalog API responses in Redis, or in process
// memory when no Redis is configured.
//
// Features:
//
//   - 24h default TTL for successful responses, overridable per Manager
//   - ETag and Last-Modified support for conditional requests
//   - Negative entries that remember failed lookups (600s for 404, 300s otherwise)
//   - Deterministic keys of the form pokemon:<prefix>:<params-json>
//   - Prometheus metrics labelled by backend layer
//
// # Basic Usage
//
//	manager := cache.NewManager(cache.NewRedisBackend(redisClient), cache.DefaultTTL)
//	key := cache.Key{Prefix: "page", Params: map[string]string{"limit": "100", "offset": "0"}}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from the API
//	}
//
// # Conditional Requests
//
//	if cache.ShouldMakeConditionalRequest(entry) {
//		cache.AddConditionalHeaders(req, entry)
//	}
package cache
