package pagination

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Sternrassler/astronews/pkg/feed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBatchFetcher_Defaults(t *testing.T) {
	bf := NewBatchFetcher(NewFetcher(sliceSource(nil)), Config{})

	assert.Equal(t, DefaultConfig().PageSize, bf.config.PageSize)
	assert.Equal(t, DefaultConfig().MaxConcurrency, bf.config.MaxConcurrency)
	assert.Equal(t, DefaultConfig().Timeout, bf.config.Timeout)
}

func TestBatchFetcher_FetchAll(t *testing.T) {
	tests := []struct {
		name        string
		total       int
		pageSize    int
		concurrency int
	}{
		{"empty", 0, 9, 2},
		{"single short page", 4, 9, 2},
		{"exact pages", 27, 9, 3},
		{"partial last page", 20, 9, 2},
		{"more workers than pages", 12, 5, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			all := articles(0, tt.total)
			bf := NewBatchFetcher(NewFetcher(sliceSource(all)), Config{
				PageSize:       tt.pageSize,
				MaxConcurrency: tt.concurrency,
				Timeout:        time.Second,
			})

			got, err := bf.FetchAll(context.Background())
			require.NoError(t, err)
			require.Len(t, got, tt.total)
			for i, a := range got {
				assert.Equal(t, all[i].ID, a.ID, "position %d", i)
			}
		})
	}
}

func TestBatchFetcher_MaxArticles(t *testing.T) {
	var calls atomic.Int32
	src := sliceSource(articles(0, 100))
	counting := SourceFunc(func(ctx context.Context, offset, limit int) (Batch, error) {
		calls.Add(1)
		return src(ctx, offset, limit)
	})

	bf := NewBatchFetcher(NewFetcher(counting), Config{PageSize: 10, MaxArticles: 25})
	got, err := bf.FetchAll(context.Background())
	require.NoError(t, err)

	assert.Len(t, got, 25)
	assert.Equal(t, feed.Identifier("a-024"), got[24].ID)
	assert.Equal(t, int32(3), calls.Load())
}

func TestBatchFetcher_DropsRepeatedIDs(t *testing.T) {
	// Later pages start three items early, so page boundaries overlap.
	all := articles(0, 30)
	src := SourceFunc(func(_ context.Context, offset, limit int) (Batch, error) {
		start := offset
		if offset > 0 {
			start -= 3
		}
		end := min(start+limit, len(all))
		return Batch{Articles: all[start:end], Total: len(all)}, nil
	})

	bf := NewBatchFetcher(NewFetcher(src), Config{PageSize: 10, MaxConcurrency: 2})
	got, err := bf.FetchAll(context.Background())
	require.NoError(t, err)

	seen := map[feed.Identifier]bool{}
	for _, a := range got {
		assert.False(t, seen[a.ID], "duplicate %s", a.ID)
		seen[a.ID] = true
	}
	// Offsets 0, 10 and 20 cover a-000 through a-026.
	assert.Len(t, got, 27)
}

func TestBatchFetcher_FirstPageError(t *testing.T) {
	src := SourceFunc(func(context.Context, int, int) (Batch, error) {
		return Batch{}, errors.New("unreachable")
	})

	bf := NewBatchFetcher(NewFetcher(src), Config{PageSize: 9})
	got, err := bf.FetchAll(context.Background())

	require.Error(t, err)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, ErrTransport)
}

func TestBatchFetcher_PartialResults(t *testing.T) {
	all := articles(0, 50)
	ok := sliceSource(all)
	src := SourceFunc(func(ctx context.Context, offset, limit int) (Batch, error) {
		if offset == 30 {
			return Batch{}, errors.New("server error")
		}
		return ok(ctx, offset, limit)
	})

	bf := NewBatchFetcher(NewFetcher(src), Config{PageSize: 10, MaxConcurrency: 1})
	got, err := bf.FetchAll(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "partial data")
	assert.ErrorIs(t, err, ErrTransport)
	// The single worker stops at offset 30, so pages 0, 10 and 20 survive.
	assert.Len(t, got, 30)
}

func TestBatchFetcher_RespectsConcurrency(t *testing.T) {
	var (
		mu        sync.Mutex
		active    int
		maxActive int
	)
	all := articles(0, 80)
	ok := sliceSource(all)
	src := SourceFunc(func(ctx context.Context, offset, limit int) (Batch, error) {
		mu.Lock()
		active++
		maxActive = max(maxActive, active)
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		active--
		mu.Unlock()
		return ok(ctx, offset, limit)
	})

	bf := NewBatchFetcher(NewFetcher(src), Config{PageSize: 10, MaxConcurrency: 3})
	got, err := bf.FetchAll(context.Background())
	require.NoError(t, err)

	assert.Len(t, got, 80)
	assert.LessOrEqual(t, maxActive, 3)
}

func TestBatchFetcher_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	all := articles(0, 40)
	ok := sliceSource(all)
	src := SourceFunc(func(c context.Context, offset, limit int) (Batch, error) {
		if offset == 0 {
			cancel()
			return ok(c, offset, limit)
		}
		return Batch{}, c.Err()
	})

	bf := NewBatchFetcher(NewFetcher(src), Config{PageSize: 10, MaxConcurrency: 2})
	got, err := bf.FetchAll(ctx)

	require.Error(t, err)
	assert.Len(t, got, 10)
}
