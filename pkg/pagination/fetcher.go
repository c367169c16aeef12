package pagination

import (
	"context"
	"fmt"

	"github.com/Sternrassler/astronews/pkg/feed"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Batch is the raw result of a single source request.
type Batch struct {
	Articles []feed.Article
	Total    int
}

// Source is the remote collection: it returns up to limit articles starting
// at offset together with the total count it currently knows about.
type Source interface {
	Fetch(ctx context.Context, offset, limit int) (Batch, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, offset, limit int) (Batch, error)

// Fetch calls f.
func (f SourceFunc) Fetch(ctx context.Context, offset, limit int) (Batch, error) {
	return f(ctx, offset, limit)
}

// Fetcher adapts a Source to feed.PageFetcher. It validates arguments and
// responses, derives the next offset and classifies failures. It makes one
// attempt per call.
type Fetcher struct {
	source Source
	logger zerolog.Logger
}

// NewFetcher creates a fetcher for source.
func NewFetcher(source Source) *Fetcher {
	return &Fetcher{
		source: source,
		logger: log.With().Str("component", "page-fetcher").Logger(),
	}
}

// FetchPage implements feed.PageFetcher.
func (f *Fetcher) FetchPage(ctx context.Context, offset, limit int) (feed.Page, error) {
	if offset < 0 || limit <= 0 {
		return feed.Page{}, &FetchError{
			Kind:   KindInvariant,
			Offset: offset,
			Limit:  limit,
			Err:    fmt.Errorf("%w: offset must be >= 0 and limit > 0", feed.ErrInvariantViolation),
		}
	}

	batch, err := f.source.Fetch(ctx, offset, limit)
	if err == nil {
		err = validate(batch, limit)
	}
	if err != nil {
		kind := classify(err)
		f.logger.Debug().
			Err(err).
			Str("kind", string(kind)).
			Int("offset", offset).
			Int("limit", limit).
			Msg("Source fetch failed")
		return feed.Page{}, &FetchError{Kind: kind, Offset: offset, Limit: limit, Err: err}
	}

	return feed.Page{
		Offset:     offset,
		Articles:   batch.Articles,
		NextOffset: offset + len(batch.Articles),
		Total:      batch.Total,
		Received:   len(batch.Articles),
	}, nil
}

// Invalidate forwards to the source when it caches responses.
func (f *Fetcher) Invalidate(ctx context.Context) error {
	if inv, ok := f.source.(feed.Invalidator); ok {
		return inv.Invalidate(ctx)
	}
	return nil
}

// validate checks a batch against the page contract.
func validate(batch Batch, limit int) error {
	if batch.Total < 0 {
		return fmt.Errorf("%w: negative total %d", ErrMalformedResponse, batch.Total)
	}
	if len(batch.Articles) > limit {
		return fmt.Errorf("%w: %d articles for limit %d", ErrMalformedResponse, len(batch.Articles), limit)
	}
	for i, a := range batch.Articles {
		if a.ID == "" {
			return fmt.Errorf("%w: article %d has no id", ErrMalformedResponse, i)
		}
		if a.URL == "" {
			return fmt.Errorf("%w: article %s has no url", ErrMalformedResponse, a.ID)
		}
	}
	return nil
}
