// Package feed implements the incremental article feed controller.
//
// A Controller pulls fixed-size pages from a PageFetcher, merges them into a
// deduplicated ordered list and decides when the collection is exhausted.
// Callers drive it with discrete LoadMore and Refresh calls, usually from a
// scroll signal delivered through a Trigger:
//
//	fetcher := pagination.NewFetcher(newsClient)
//	ctrl, err := feed.NewController(fetcher, feed.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer ctrl.Close()
//
//	// initial mount
//	if _, err := ctrl.LoadMore(ctx); err != nil {
//		// the error is also visible in ctrl.Snapshot().Error
//	}
//
//	for a := range ctrl.Flattened() {
//		fmt.Println(a.Title)
//	}
//
// The controller is safe to call redundantly: a LoadMore or Refresh issued
// while a fetch is in flight, or a LoadMore after the last (short) page, is a
// no-op that reports started == false. At most one fetch is ever in flight,
// so pages are appended in the order their fetches were started.
//
// Pagination is offset based. If the remote collection changes between two
// fetches of the same session, items can be skipped or repeated; repeats are
// filtered by id, skips are not detected.
package feed
