package pagination

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Sternrassler/astronews/pkg/feed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func articles(from, n int) []feed.Article {
	out := make([]feed.Article, 0, n)
	for i := from; i < from+n; i++ {
		out = append(out, feed.Article{
			ID:    feed.Identifier(fmt.Sprintf("a-%03d", i)),
			Title: fmt.Sprintf("Article %d", i),
			URL:   fmt.Sprintf("https://news.example/%d", i),
		})
	}
	return out
}

// sliceSource serves a fixed collection by offset and limit.
func sliceSource(all []feed.Article) SourceFunc {
	return func(_ context.Context, offset, limit int) (Batch, error) {
		if offset >= len(all) {
			return Batch{Total: len(all)}, nil
		}
		end := min(offset+limit, len(all))
		return Batch{Articles: all[offset:end], Total: len(all)}, nil
	}
}

func TestFetcher_FetchPage(t *testing.T) {
	f := NewFetcher(sliceSource(articles(0, 20)))

	page, err := f.FetchPage(context.Background(), 18, 9)
	require.NoError(t, err)

	assert.Equal(t, 18, page.Offset)
	assert.Equal(t, 20, page.NextOffset)
	assert.Equal(t, 20, page.Total)
	assert.Equal(t, 2, page.Received)
	require.Len(t, page.Articles, 2)
	assert.Equal(t, feed.Identifier("a-018"), page.Articles[0].ID)
}

func TestFetcher_PastEnd(t *testing.T) {
	f := NewFetcher(sliceSource(articles(0, 5)))

	page, err := f.FetchPage(context.Background(), 9, 9)
	require.NoError(t, err)
	assert.Empty(t, page.Articles)
	assert.Equal(t, 9, page.NextOffset)
}

func TestFetcher_InvalidArguments(t *testing.T) {
	f := NewFetcher(SourceFunc(func(context.Context, int, int) (Batch, error) {
		t.Fatal("source must not be called")
		return Batch{}, nil
	}))

	tests := []struct {
		name   string
		offset int
		limit  int
	}{
		{"negative offset", -1, 9},
		{"zero limit", 0, 0},
		{"negative limit", 0, -3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.FetchPage(context.Background(), tt.offset, tt.limit)
			require.Error(t, err)

			var fe *FetchError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, KindInvariant, fe.Kind)
			assert.ErrorIs(t, err, feed.ErrInvariantViolation)
		})
	}
}

func TestFetcher_MalformedBatch(t *testing.T) {
	tests := []struct {
		name  string
		batch Batch
	}{
		{"negative total", Batch{Total: -1}},
		{"too many articles", Batch{Articles: articles(0, 10), Total: 10}},
		{"missing id", Batch{Articles: []feed.Article{{URL: "https://x"}}, Total: 1}},
		{"missing url", Batch{Articles: []feed.Article{{ID: "a"}}, Total: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFetcher(SourceFunc(func(context.Context, int, int) (Batch, error) {
				return tt.batch, nil
			}))

			_, err := f.FetchPage(context.Background(), 0, 9)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedResponse)
			assert.NotErrorIs(t, err, ErrTransport)
		})
	}
}

func TestFetcher_ClassifiesSourceErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"plain error", errors.New("connection reset"), KindTransport},
		{"context", context.DeadlineExceeded, KindTransport},
		{"malformed", fmt.Errorf("decode: %w", ErrMalformedResponse), KindMalformed},
		{"invariant", fmt.Errorf("bad: %w", feed.ErrInvariantViolation), KindInvariant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFetcher(SourceFunc(func(context.Context, int, int) (Batch, error) {
				return Batch{}, tt.err
			}))

			_, err := f.FetchPage(context.Background(), 9, 9)

			var fe *FetchError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.want, fe.Kind)
			assert.Equal(t, 9, fe.Offset)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestFetchError_Message(t *testing.T) {
	err := &FetchError{Kind: KindTransport, Offset: 18, Limit: 9, Err: errors.New("timeout")}
	assert.Equal(t, "fetch page (offset 18, limit 9): transport: timeout", err.Error())
}

type invalidatingSource struct {
	SourceFunc
	invalidated int
}

func (s *invalidatingSource) Invalidate(context.Context) error {
	s.invalidated++
	return nil
}

func TestFetcher_Invalidate(t *testing.T) {
	src := &invalidatingSource{SourceFunc: sliceSource(nil)}
	f := NewFetcher(src)

	require.NoError(t, f.Invalidate(context.Background()))
	assert.Equal(t, 1, src.invalidated)

	// Sources without a cache are a no-op.
	plain := NewFetcher(sliceSource(nil))
	assert.NoError(t, plain.Invalidate(context.Background()))
}
