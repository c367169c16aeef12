package pagination

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Sternrassler/astronews/pkg/feed"
	"github.com/rs/zerolog/log"
)

// Config holds batch fetcher configuration
type Config struct {
	// PageSize is the limit used for every page request
	PageSize int
	// MaxConcurrency is the maximum number of parallel requests
	MaxConcurrency int
	// Timeout per page fetch
	Timeout time.Duration
	// MaxArticles caps the export (0 means the whole collection)
	MaxArticles int
}

// DefaultConfig returns conservative defaults for a public news API
func DefaultConfig() Config {
	return Config{
		PageSize:       50,
		MaxConcurrency: 4,
		Timeout:        15 * time.Second,
	}
}

// PageResult represents the result of fetching a single page
type PageResult struct {
	Offset int
	Page   feed.Page
}

// BatchFetcher fetches a whole collection with a worker pool. It is meant for
// one-shot exports; the interactive feed goes through feed.Controller, which
// never has more than one request in flight.
type BatchFetcher struct {
	fetcher feed.PageFetcher
	config  Config
}

// NewBatchFetcher creates a new batch fetcher
func NewBatchFetcher(fetcher feed.PageFetcher, config Config) *BatchFetcher {
	defaults := DefaultConfig()
	if config.PageSize <= 0 {
		config.PageSize = defaults.PageSize
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = defaults.MaxConcurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}

	return &BatchFetcher{
		fetcher: fetcher,
		config:  config,
	}
}

// FetchAll fetches every page of the collection and returns the articles in
// offset order with duplicate ids removed. The first page determines the
// total; the remaining offsets are spread over the worker pool. On a worker
// error the articles fetched so far are returned together with the error.
func (bf *BatchFetcher) FetchAll(ctx context.Context) ([]feed.Article, error) {
	start := time.Now()

	first, err := bf.fetch(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch first page: %w", err)
	}

	total := first.Total
	if bf.config.MaxArticles > 0 && total > bf.config.MaxArticles {
		total = bf.config.MaxArticles
	}

	log.Info().
		Int("total", first.Total).
		Int("limit", total).
		Int("page_size", bf.config.PageSize).
		Msg("Starting parallel export")

	pages := map[int]feed.Page{0: first}

	// Single page optimization
	if len(first.Articles) < bf.config.PageSize || first.NextOffset >= total {
		articles := merge(pages, total)
		log.Info().
			Int("articles", len(articles)).
			Int("pages", 1).
			Dur("duration", time.Since(start)).
			Msg("Export complete (single page)")
		return articles, nil
	}

	var offsets []int
	for off := first.NextOffset; off < total; off += bf.config.PageSize {
		offsets = append(offsets, off)
	}

	// Create channels
	offsetQueue := make(chan int, len(offsets))
	results := make(chan PageResult, len(offsets))
	errors := make(chan error, bf.config.MaxConcurrency)

	for _, off := range offsets {
		offsetQueue <- off
	}
	close(offsetQueue)

	// Start worker pool
	var wg sync.WaitGroup
	for i := 0; i < bf.config.MaxConcurrency; i++ {
		wg.Add(1)
		go bf.worker(ctx, offsetQueue, results, errors, &wg, i)
	}

	// Close results channel when all workers done
	go func() {
		wg.Wait()
		close(results)
		close(errors)
	}()

	fetched := 1
	for result := range results {
		pages[result.Offset] = result.Page
		fetched++

		if fetched%20 == 0 {
			log.Info().
				Int("fetched", fetched).
				Int("pages", len(offsets)+1).
				Msg("Export progress")
		}
	}

	articles := merge(pages, total)

	// Check for errors
	if err, ok := <-errors; ok && err != nil {
		log.Warn().
			Err(err).
			Int("fetched_pages", fetched).
			Int("total_pages", len(offsets)+1).
			Msg("Worker error - returning partial results")
		return articles, fmt.Errorf("worker error (partial data: %d/%d pages): %w", fetched, len(offsets)+1, err)
	}

	log.Info().
		Int("articles", len(articles)).
		Int("pages", fetched).
		Dur("duration", time.Since(start)).
		Msg("Export complete")

	return articles, nil
}

func (bf *BatchFetcher) fetch(ctx context.Context, offset int) (feed.Page, error) {
	pageCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
	defer cancel()
	return bf.fetcher.FetchPage(pageCtx, offset, bf.config.PageSize)
}

// worker processes offsets from the queue
func (bf *BatchFetcher) worker(ctx context.Context, offsetQueue <-chan int, results chan<- PageResult, errors chan<- error, wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	pagesProcessed := 0

	for offset := range offsetQueue {
		// Check context cancellation
		select {
		case <-ctx.Done():
			log.Debug().
				Int("worker_id", workerID).
				Int("pages_processed", pagesProcessed).
				Msg("Worker stopping (context cancelled)")
			select {
			case errors <- ctx.Err():
			default:
			}
			return
		default:
		}

		page, err := bf.fetch(ctx, offset)
		if err != nil {
			log.Warn().
				Err(err).
				Int("worker_id", workerID).
				Int("offset", offset).
				Msg("Page fetch failed")

			// Non-blocking error send
			select {
			case errors <- err:
			default:
			}
			return
		}

		results <- PageResult{Offset: offset, Page: page}
		pagesProcessed++
	}

	if pagesProcessed > 0 {
		log.Debug().
			Int("worker_id", workerID).
			Int("pages_processed", pagesProcessed).
			Msg("Worker completed")
	}
}

// merge concatenates pages in offset order, dropping repeated ids and
// anything past limit.
func merge(pages map[int]feed.Page, limit int) []feed.Article {
	offsets := make([]int, 0, len(pages))
	for off := range pages {
		offsets = append(offsets, off)
	}
	slices.Sort(offsets)

	var seen feed.IdentitySet
	var out []feed.Article
	for _, off := range offsets {
		fresh, _ := seen.Partition(pages[off].Articles)
		out = append(out, fresh...)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
