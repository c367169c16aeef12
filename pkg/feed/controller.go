package feed

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultPageSize is the number of articles requested per page.
const DefaultPageSize = 9

// PageFetcher retrieves one page of the collection. Implementations make a
// single attempt per call; retry policy belongs to the caller.
type PageFetcher interface {
	// FetchPage returns the page starting at offset with at most limit articles.
	// The returned NextOffset must equal offset + len(Articles).
	FetchPage(ctx context.Context, offset, limit int) (Page, error)
}

// PageFetcherFunc adapts a function to the PageFetcher interface.
type PageFetcherFunc func(ctx context.Context, offset, limit int) (Page, error)

// FetchPage calls f.
func (f PageFetcherFunc) FetchPage(ctx context.Context, offset, limit int) (Page, error) {
	return f(ctx, offset, limit)
}

// Invalidator is implemented by fetchers that cache pages. Refresh calls
// Invalidate before requesting offset 0 again.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Config holds controller configuration.
type Config struct {
	// PageSize is the fixed limit passed to every fetch. A page shorter than
	// this ends the feed.
	PageSize int

	// FetchTimeout bounds a single fetch (0 disables the timeout).
	FetchTimeout time.Duration

	// RefreshDelay is an optional pause between invalidating and refetching.
	RefreshDelay time.Duration

	// ScrollToTop is the host's scroll-to-top capability, invoked by
	// Controller.ScrollToTop. May be nil.
	ScrollToTop func()

	// Logger overrides the global zerolog logger.
	Logger *zerolog.Logger
}

// DefaultConfig returns the default controller configuration.
func DefaultConfig() Config {
	return Config{
		PageSize:     DefaultPageSize,
		FetchTimeout: 15 * time.Second,
	}
}

// Snapshot is a read-only view of the controller state for rendering.
type Snapshot struct {
	// Items are the flattened articles. While a refresh is waiting for its
	// first page, Items still holds the previous result set.
	Items []Article

	// IsLoading is true while any fetch is in flight.
	IsLoading bool

	// IsLoadingMore is true while a follow-up page is being fetched.
	IsLoadingMore bool

	// IsRefreshing is true from Refresh until its first page settles.
	IsRefreshing bool

	// Error is the last fetch error message, empty when none.
	Error string

	HasMore bool
	Status  Status

	// Total is the collection size reported by the most recent page.
	Total int

	// ShowScrollToTop mirrors the last scroll position reported by a Trigger.
	ShowScrollToTop bool
}

// Controller owns the feed state: loaded pages, the identity set, the cursor
// and the exhaustion flag. All mutations happen under mu; the lock is never
// held while the fetcher runs.
type Controller struct {
	fetcher PageFetcher
	config  Config
	logger  zerolog.Logger

	mu        sync.Mutex
	pages     []Page
	stale     []Article
	seen      IdentitySet
	cursor    int
	exhausted bool
	status    Status
	lastErr   error
	pastTop   bool
	closed    bool
	cancel    context.CancelFunc
}

// NewController creates a controller in the Idle state with no pages.
func NewController(fetcher PageFetcher, cfg Config) (*Controller, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("page fetcher is required")
	}
	if cfg.PageSize <= 0 {
		return nil, fmt.Errorf("page_size must be > 0 (got %d)", cfg.PageSize)
	}
	if cfg.RefreshDelay < 0 {
		return nil, fmt.Errorf("refresh_delay must be >= 0 (got %s)", cfg.RefreshDelay)
	}

	base := log.Logger
	if cfg.Logger != nil {
		base = *cfg.Logger
	}

	return &Controller{
		fetcher: fetcher,
		config:  cfg,
		logger:  base.With().Str("component", "feed-controller").Logger(),
	}, nil
}

// LoadMore fetches the page at the current cursor and appends it.
//
// It returns started == false without fetching when a fetch is already in
// flight or the feed is exhausted. A failed fetch moves the controller to
// StatusError and leaves loaded pages and the cursor untouched.
func (c *Controller) LoadMore(ctx context.Context) (started bool, err error) {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		c.ignore("load_more", "closed")
		return false, ErrClosed
	case c.status.InFlight():
		c.mu.Unlock()
		c.ignore("load_more", "in_flight")
		return false, nil
	case c.exhausted:
		c.mu.Unlock()
		c.ignore("load_more", "exhausted")
		return false, nil
	}

	status := StatusFetchingMore
	if len(c.pages) == 0 {
		status = StatusFetching
	}
	return c.fetchLocked(ctx, status)
}

// Refresh discards the loaded pages and identity set and restarts at offset
// 0. The previous items stay visible in snapshots until the first new page
// arrives. A Refresh issued while any fetch is in flight is ignored.
func (c *Controller) Refresh(ctx context.Context) (started bool, err error) {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		c.ignore("refresh", "closed")
		return false, ErrClosed
	case c.status.InFlight():
		c.mu.Unlock()
		c.ignore("refresh", "in_flight")
		return false, nil
	}

	if len(c.pages) > 0 {
		c.stale = c.itemsLocked()
	}
	visible := len(c.stale)
	c.pages = nil
	c.seen.Reset()
	c.cursor = 0
	c.exhausted = false
	c.status = StatusRefreshing
	c.lastErr = nil

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.cancel = cancel
	c.mu.Unlock()

	c.logger.Info().
		Int("visible", visible).
		Dur("delay", c.config.RefreshDelay).
		Msg("Refreshing feed")

	if inv, ok := c.fetcher.(Invalidator); ok {
		if err := inv.Invalidate(ctx); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to invalidate cached pages")
		}
	}

	if err := c.wait(ctx, c.config.RefreshDelay); err != nil {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.cancel = nil
		if c.closed {
			return true, ErrClosed
		}
		c.status = StatusError
		c.lastErr = err
		pageFetchesTotal.WithLabelValues(StatusRefreshing.kind(), "error").Inc()
		return true, err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return true, ErrClosed
	}
	return c.fetchLocked(ctx, StatusRefreshing)
}

// wait pauses for d unless ctx ends first.
func (c *Controller) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// fetchLocked runs one fetch at the current cursor. It must be called with
// c.mu held; it releases the lock while the fetcher runs and returns with it
// released.
func (c *Controller) fetchLocked(ctx context.Context, status Status) (bool, error) {
	offset := c.cursor
	limit := c.config.PageSize
	c.status = status
	c.lastErr = nil

	var (
		fetchCtx context.Context
		cancel   context.CancelFunc
	)
	if c.config.FetchTimeout > 0 {
		fetchCtx, cancel = context.WithTimeout(ctx, c.config.FetchTimeout)
	} else {
		fetchCtx, cancel = context.WithCancel(ctx)
	}
	c.cancel = cancel
	c.mu.Unlock()

	c.logger.Debug().
		Str("status", status.String()).
		Int("offset", offset).
		Int("limit", limit).
		Msg("Fetching page")

	start := time.Now()
	page, err := c.fetcher.FetchPage(fetchCtx, offset, limit)
	cancel()
	duration := time.Since(start)
	pageFetchDuration.WithLabelValues(status.kind()).Observe(duration.Seconds())

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancel = nil

	if c.closed {
		return true, ErrClosed
	}

	if err == nil {
		err = checkPage(offset, page)
	}
	if err != nil {
		c.status = StatusError
		c.lastErr = err
		pageFetchesTotal.WithLabelValues(status.kind(), "error").Inc()

		event := c.logger.Warn()
		if errors.Is(err, ErrInvariantViolation) {
			event = c.logger.Error()
		}
		event.Err(err).
			Str("status", status.String()).
			Int("offset", offset).
			Int("pages", len(c.pages)).
			Dur("duration", duration).
			Msg("Page fetch failed")
		return true, err
	}

	c.acceptLocked(offset, page)
	pageFetchesTotal.WithLabelValues(status.kind(), "success").Inc()

	c.logger.Info().
		Str("status", status.String()).
		Int("offset", offset).
		Int("received", len(page.Articles)).
		Int("cursor", c.cursor).
		Int("total", page.Total).
		Bool("exhausted", c.exhausted).
		Dur("duration", duration).
		Msg("Page accepted")

	return true, nil
}

// checkPage rejects pages whose bookkeeping contradicts the request.
func checkPage(offset int, page Page) error {
	if want := offset + len(page.Articles); page.NextOffset != want {
		return fmt.Errorf("%w: next offset %d, want %d (offset %d + %d articles)",
			ErrInvariantViolation, page.NextOffset, want, offset, len(page.Articles))
	}
	if page.Total < 0 {
		return fmt.Errorf("%w: negative total %d", ErrInvariantViolation, page.Total)
	}
	return nil
}

// acceptLocked appends page, advances the cursor and updates exhaustion.
// Articles already in the identity set are dropped and recorded as duplicates.
func (c *Controller) acceptLocked(offset int, page Page) {
	fresh, dups := c.seen.Partition(page.Articles)

	c.pages = append(c.pages, Page{
		Offset:     offset,
		Articles:   fresh,
		NextOffset: page.NextOffset,
		Total:      page.Total,
		Received:   len(page.Articles),
		Duplicates: dups,
	})
	c.stale = nil
	c.cursor = page.NextOffset
	c.exhausted = len(page.Articles) < c.config.PageSize
	c.status = StatusIdle

	if len(dups) > 0 {
		duplicateArticlesTotal.Add(float64(len(dups)))
		c.logger.Warn().
			Int("offset", offset).
			Int("duplicates", len(dups)).
			Msg("Dropped articles already in feed")
	}
}

func (c *Controller) ignore(op, reason string) {
	ignoredTriggersTotal.WithLabelValues(op, reason).Inc()
	c.logger.Debug().Str("op", op).Str("reason", reason).Msg("Trigger ignored")
}

// Flattened returns the loaded articles in fetch order. The sequence is
// taken from the pages loaded at call time and can be ranged over repeatedly.
func (c *Controller) Flattened() iter.Seq[Article] {
	c.mu.Lock()
	pages := c.pages
	c.mu.Unlock()

	return func(yield func(Article) bool) {
		for _, p := range pages {
			for _, a := range p.Articles {
				if !yield(a) {
					return
				}
			}
		}
	}
}

// Items returns the flattened articles as a slice.
func (c *Controller) Items() []Article {
	return slices.Collect(c.Flattened())
}

func (c *Controller) itemsLocked() []Article {
	var n int
	for _, p := range c.pages {
		n += len(p.Articles)
	}
	items := make([]Article, 0, n)
	for _, p := range c.pages {
		items = append(items, p.Articles...)
	}
	return items
}

// HasMore reports whether further pages are believed to exist.
func (c *Controller) HasMore() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.exhausted
}

// Cursor returns the offset the next LoadMore will request.
func (c *Controller) Cursor() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor
}

// Status returns the current fetch state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Err returns the error of the last failed fetch, or nil.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// SeenIDs returns the identity set contents in sorted order.
func (c *Controller) SeenIDs() []Identifier {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seen.IDs()
}

// Pages returns a copy of the loaded pages in fetch order.
func (c *Controller) Pages() []Page {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.pages)
}

// Snapshot returns the current state for rendering.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		IsLoading:       c.status.InFlight(),
		IsLoadingMore:   c.status == StatusFetchingMore,
		IsRefreshing:    c.status == StatusRefreshing,
		HasMore:         !c.exhausted,
		Status:          c.status,
		ShowScrollToTop: c.pastTop,
	}
	if len(c.pages) > 0 {
		snap.Items = c.itemsLocked()
		snap.Total = c.pages[len(c.pages)-1].Total
	} else {
		snap.Items = slices.Clone(c.stale)
	}
	if c.lastErr != nil {
		snap.Error = c.lastErr.Error()
	}
	return snap
}

// SetScrolledPastTop records whether the viewport is scrolled far enough for
// a scroll-to-top affordance.
func (c *Controller) SetScrolledPastTop(past bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pastTop = past
}

// ScrollToTop invokes the configured scroll-to-top capability, if any.
func (c *Controller) ScrollToTop() {
	if c.config.ScrollToTop != nil {
		c.config.ScrollToTop()
	}
}

// Close disposes of the controller. An in-flight fetch is cancelled and its
// result discarded; later LoadMore and Refresh calls return ErrClosed.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	if c.cancel != nil {
		c.cancel()
	}
	c.pages = nil
	c.stale = nil
	c.seen.Reset()
	c.logger.Debug().Msg("Feed controller closed")
	return nil
}
