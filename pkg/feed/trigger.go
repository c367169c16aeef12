package feed

import "context"

// Default trigger thresholds, in the same unit as ScrollPosition.
const (
	DefaultBottomThreshold = 300
	DefaultTopThreshold    = 500
)

// ScrollPosition describes the viewport relative to the rendered content.
// The unit (pixels, rows) is up to the host, as long as the thresholds use
// the same one.
type ScrollPosition struct {
	Offset         int
	ViewportHeight int
	ContentHeight  int
}

// NearBottom reports whether the viewport's bottom edge is within threshold
// of the end of the content.
func (p ScrollPosition) NearBottom(threshold int) bool {
	return p.Offset+p.ViewportHeight >= p.ContentHeight-threshold
}

// PastTop reports whether the viewport is scrolled more than threshold away
// from the top.
func (p ScrollPosition) PastTop(threshold int) bool {
	return p.Offset > threshold
}

// Loader is the part of the Controller a Trigger drives.
type Loader interface {
	LoadMore(ctx context.Context) (bool, error)
	HasMore() bool
	SetScrolledPastTop(past bool)
}

// Trigger turns scroll positions into LoadMore calls. It holds no
// subscription of its own; the host calls Observe for every scroll event.
type Trigger struct {
	loader Loader
	bottom int
	top    int
}

// NewTrigger creates a trigger for loader. Negative thresholds select the
// defaults.
func NewTrigger(loader Loader, bottomThreshold, topThreshold int) *Trigger {
	if bottomThreshold < 0 {
		bottomThreshold = DefaultBottomThreshold
	}
	if topThreshold < 0 {
		topThreshold = DefaultTopThreshold
	}
	return &Trigger{
		loader: loader,
		bottom: bottomThreshold,
		top:    topThreshold,
	}
}

// Observe records pos and requests the next page when the viewport is near
// the bottom and more pages exist. It reports whether a fetch was started.
func (t *Trigger) Observe(ctx context.Context, pos ScrollPosition) (bool, error) {
	t.loader.SetScrolledPastTop(pos.PastTop(t.top))

	if !pos.NearBottom(t.bottom) || !t.loader.HasMore() {
		return false, nil
	}
	return t.loader.LoadMore(ctx)
}
