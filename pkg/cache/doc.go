// Package cache stores HTTP responses of the news source in Redis so repeated
// page requests within the server's Expires window are answered locally or
// revalidated with a conditional request.
//
// Entries live until the Expires header of the response they were built
// from (DefaultTTL when the header is missing). A cached entry with an ETag
// or Last-Modified value is revalidated with If-None-Match or
// If-Modified-Since; a 304 answer extends the entry and serves its body.
//
//	manager := cache.NewManager(redisClient)
//
//	key := cache.Key{Endpoint: "/articles/", Query: req.URL.Query()}
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from the source
//	}
//	if cache.CanRevalidate(entry) {
//		cache.ApplyConditional(req, entry)
//	}
//
// Purge removes every entry under the key prefix. The feed calls it through
// the client on refresh so a refreshed feed never serves a stale first page.
//
// This is an HTTP response cache only; feed state itself is never persisted.
package cache
