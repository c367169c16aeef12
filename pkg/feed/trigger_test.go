package feed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLoader struct {
	hasMore bool
	pastTop bool
	loads   int
}

func (l *fakeLoader) LoadMore(context.Context) (bool, error) {
	l.loads++
	return true, nil
}

func (l *fakeLoader) HasMore() bool { return l.hasMore }

func (l *fakeLoader) SetScrolledPastTop(past bool) { l.pastTop = past }

func TestScrollPosition(t *testing.T) {
	tests := []struct {
		name       string
		pos        ScrollPosition
		nearBottom bool
		pastTop    bool
	}{
		{
			name:       "top of long page",
			pos:        ScrollPosition{Offset: 0, ViewportHeight: 800, ContentHeight: 4000},
			nearBottom: false,
			pastTop:    false,
		},
		{
			name:       "just outside bottom threshold",
			pos:        ScrollPosition{Offset: 2899, ViewportHeight: 800, ContentHeight: 4000},
			nearBottom: false,
			pastTop:    true,
		},
		{
			name:       "at bottom threshold",
			pos:        ScrollPosition{Offset: 2900, ViewportHeight: 800, ContentHeight: 4000},
			nearBottom: true,
			pastTop:    true,
		},
		{
			name:       "content shorter than viewport",
			pos:        ScrollPosition{Offset: 0, ViewportHeight: 800, ContentHeight: 300},
			nearBottom: true,
			pastTop:    false,
		},
		{
			name:       "exactly at top threshold",
			pos:        ScrollPosition{Offset: 500, ViewportHeight: 800, ContentHeight: 4000},
			nearBottom: false,
			pastTop:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.nearBottom, tt.pos.NearBottom(DefaultBottomThreshold))
			assert.Equal(t, tt.pastTop, tt.pos.PastTop(DefaultTopThreshold))
		})
	}
}

func TestTrigger_Observe(t *testing.T) {
	loader := &fakeLoader{hasMore: true}
	trigger := NewTrigger(loader, -1, -1)
	ctx := context.Background()

	started, err := trigger.Observe(ctx, ScrollPosition{Offset: 600, ViewportHeight: 800, ContentHeight: 4000})
	require.NoError(t, err)
	assert.False(t, started)
	assert.True(t, loader.pastTop)
	assert.Equal(t, 0, loader.loads)

	started, err = trigger.Observe(ctx, ScrollPosition{Offset: 3000, ViewportHeight: 800, ContentHeight: 4000})
	require.NoError(t, err)
	assert.True(t, started)
	assert.Equal(t, 1, loader.loads)

	loader.hasMore = false
	started, err = trigger.Observe(ctx, ScrollPosition{Offset: 3200, ViewportHeight: 800, ContentHeight: 4000})
	require.NoError(t, err)
	assert.False(t, started)
	assert.Equal(t, 1, loader.loads)

	_, _ = trigger.Observe(ctx, ScrollPosition{Offset: 10, ViewportHeight: 800, ContentHeight: 4000})
	assert.False(t, loader.pastTop)
}

func TestTrigger_DrivesController(t *testing.T) {
	fetcher := newFakeFetcher(12)
	c := newTestController(t, fetcher)
	trigger := NewTrigger(c, 2, 5)
	ctx := context.Background()

	// initial mount: empty content is always near the bottom
	started, err := trigger.Observe(ctx, ScrollPosition{ViewportHeight: 10})
	require.NoError(t, err)
	assert.True(t, started)
	assert.Len(t, c.Items(), 9)

	started, err = trigger.Observe(ctx, ScrollPosition{Offset: 0, ViewportHeight: 10, ContentHeight: 36})
	require.NoError(t, err)
	assert.False(t, started)

	started, err = trigger.Observe(ctx, ScrollPosition{Offset: 26, ViewportHeight: 10, ContentHeight: 36})
	require.NoError(t, err)
	assert.True(t, started)
	assert.Len(t, c.Items(), 12)
	assert.True(t, c.Snapshot().ShowScrollToTop)

	started, err = trigger.Observe(ctx, ScrollPosition{Offset: 38, ViewportHeight: 10, ContentHeight: 48})
	require.NoError(t, err)
	assert.False(t, started, "exhausted feed ignores the trigger")
	assert.Equal(t, 2, fetcher.callCount())
}
