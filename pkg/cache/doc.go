// Package cache stores statistics API response bodies in Redis.
//
// Calendar, results and pit-stop payloads for finished races never change, so
// a re-run of the acquisition against the same seasons can be served entirely
// from the cache instead of walking the paginated endpoints again. Purge
// drops the entries of a season that is still being raced.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	manager := cache.NewManager(redisClient, cache.DefaultOptions())
//
//	key := cache.Key{
//		Path:  "/ergast/f1/2021/5/pitstops.json",
//		Query: url.Values{"limit": {"1000"}, "offset": {"0"}},
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from the API, then
//		_ = manager.Put(ctx, key, cache.NewEntry(url, body))
//	}
//
// # Metrics
//
//   - f1_cache_hits_total
//   - f1_cache_misses_total
//   - f1_cache_written_bytes_total
//   - f1_cache_purged_keys_total
//   - f1_cache_errors_total{operation}
package cache
