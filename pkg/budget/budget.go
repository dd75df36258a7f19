// Package budget estimates how many catalog entries a rendering layer can
// keep materialised at once, from coarse device signals.
package budget

import (
	"context"
	"math"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/pokedex-catalog/pkg/logging"
)

// Estimation constants.
const (
	// Baseline applies when no memory signal is available.
	Baseline = 300

	// Floor is the smallest cap ever exposed.
	Floor = 60

	heapFraction   = 0.015
	heapEntryBytes = 35 * 1024
	heapMinCap     = 120
)

// Signals are the device inputs. A zero value means the signal is unavailable.
type Signals struct {
	// DeviceMemoryGB is a coarse device memory reading in gigabytes.
	DeviceMemoryGB float64

	// HeapLimitBytes is the heap size limit of the rendering process.
	HeapLimitBytes int64

	// DevicePixelRatio is the display density. Values below 1 are treated as 1.
	DevicePixelRatio float64
}

// Compute derives the render cap from signals.
func Compute(s Signals) int {
	limit := Baseline

	if s.DeviceMemoryGB > 0 {
		switch {
		case s.DeviceMemoryGB <= 1:
			limit = 150
		case s.DeviceMemoryGB <= 2:
			limit = 220
		case s.DeviceMemoryGB <= 4:
			limit = 300
		default:
			limit = 420
		}
	}

	if s.HeapLimitBytes > 0 {
		byHeap := int(math.Floor(heapFraction * float64(s.HeapLimitBytes) / heapEntryBytes))
		limit = min(limit, max(heapMinCap, byHeap))
	}

	switch {
	case s.DevicePixelRatio >= 3:
		limit = int(math.Floor(float64(limit) * 0.7))
	case s.DevicePixelRatio >= 2:
		limit = int(math.Floor(float64(limit) * 0.85))
	}

	return max(Floor, limit)
}

// SignalProvider supplies the current device signals.
type SignalProvider interface {
	Signals(ctx context.Context) Signals
}

// StaticSignals is a SignalProvider returning fixed values.
type StaticSignals Signals

// Signals implements SignalProvider.
func (s StaticSignals) Signals(context.Context) Signals { return Signals(s) }

// Estimator exposes the current render cap. The zero value is not usable;
// create one with NewEstimator.
type Estimator struct {
	provider SignalProvider
	logger   zerolog.Logger

	mu      sync.Mutex
	current atomic.Int64
}

// NewEstimator creates an estimator and computes the initial cap.
func NewEstimator(ctx context.Context, provider SignalProvider) *Estimator {
	e := &Estimator{
		provider: provider,
		logger:   logging.NewLogger("budget"),
	}
	e.Recompute(ctx)
	return e
}

// Recompute re-reads the signals and updates the cap. Call it whenever
// the viewport or device changes.
func (e *Estimator) Recompute(ctx context.Context) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.provider.Signals(ctx)
	limit := Compute(s)
	if prev := e.current.Swap(int64(limit)); prev != int64(limit) {
		e.logger.Debug().
			Float64("device_memory_gb", s.DeviceMemoryGB).
			Int64("heap_limit_bytes", s.HeapLimitBytes).
			Float64("device_pixel_ratio", s.DevicePixelRatio).
			Int("cap", limit).
			Msg("Render budget updated")
	}
	renderCap.Set(float64(limit))
	return limit
}

// Cap returns the current cap.
func (e *Estimator) Cap() int {
	return int(e.current.Load())
}
