package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/Sternrassler/pokedex-catalog/pkg/pagination"
)

// Viewport describes a scroll container in pixels.
type Viewport struct {
	ScrollTop    float64
	ClientHeight float64
	ScrollHeight float64
}

// DistanceFromBottom is the scrollable distance left below the viewport.
func (v Viewport) DistanceFromBottom() float64 {
	return v.ScrollHeight - (v.ScrollTop + v.ClientHeight)
}

// Bottom is the offset of the viewport's lower edge.
func (v Viewport) Bottom() float64 {
	return v.ScrollTop + v.ClientHeight
}

// OnSentinel loads the next page when the sentinel marker at sentinelTop
// is within the lookahead margin below the viewport.
func (c *Coordinator) OnSentinel(ctx context.Context, sentinelTop float64, v Viewport) pagination.Outcome {
	if sentinelTop > v.Bottom()+c.cfg.SentinelMargin {
		return pagination.OutcomeSkipped
	}
	triggerEvents.WithLabelValues("sentinel").Inc()
	return c.LoadMore(ctx)
}

// ScrollWatcher debounces scroll events and loads the next page once the
// viewport settles close to the bottom.
type ScrollWatcher struct {
	load      func(ctx context.Context) pagination.Outcome
	threshold float64
	debounce  time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
	fired   chan pagination.Outcome
}

// NewScrollWatcher creates a watcher for the coordinator.
func (c *Coordinator) NewScrollWatcher() *ScrollWatcher {
	return &ScrollWatcher{
		load:      c.LoadMore,
		threshold: c.cfg.ScrollThreshold,
		debounce:  c.cfg.ScrollDebounce,
	}
}

// Fired returns a channel receiving the outcome of every triggered load.
// It must be requested before the first OnScroll call to receive events.
func (w *ScrollWatcher) Fired() <-chan pagination.Outcome {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fired == nil {
		w.fired = make(chan pagination.Outcome, 1)
	}
	return w.fired
}

// OnScroll records a scroll position. Only the last position within the
// debounce window is evaluated.
func (w *ScrollWatcher) OnScroll(ctx context.Context, v Viewport) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if v.DistanceFromBottom() >= w.threshold {
			return
		}
		triggerEvents.WithLabelValues("scroll").Inc()
		outcome := w.load(ctx)

		w.mu.Lock()
		fired := w.fired
		w.mu.Unlock()
		if fired != nil {
			select {
			case fired <- outcome:
			default:
			}
		}
	})
}

// Stop cancels any pending check.
func (w *ScrollWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
}
