// Package pagination adapts an offset/limit news source to the feed.PageFetcher
// contract and provides parallel batch fetching for exports.
//
// Fetcher wraps a Source with argument and response validation and classifies
// failures as transport, malformed response or invariant violation:
//
//	fetcher := pagination.NewFetcher(newsClient)
//	page, err := fetcher.FetchPage(ctx, 0, feed.DefaultPageSize)
//	if errors.Is(err, pagination.ErrMalformedResponse) {
//		// ...
//	}
//
// BatchFetcher fetches a whole collection with a worker pool:
//
//	bf := pagination.NewBatchFetcher(fetcher, pagination.DefaultConfig())
//	articles, err := bf.FetchAll(ctx)
//
// The batch fetcher:
//   - Fetches the first page to learn the total
//   - Spawns a worker pool (default 4 workers)
//   - Distributes the remaining offsets across workers
//   - Merges pages in offset order and drops repeated ids
//   - Returns partial data together with the first worker error
package pagination
