// Package hydrator promotes thin catalog entries to full entries.
//
// The detail cache is append-only for the lifetime of a Hydrator: once an
// entry is stored it is never invalidated. Fetches are single-flight per
// id, and an id whose fetch fails is never retried.
package hydrator

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/Sternrassler/pokedex-catalog/pkg/catalog"
	"github.com/Sternrassler/pokedex-catalog/pkg/logging"
)

// ErrHydrationFailed is returned by Fetch for ids whose earlier fetch failed.
var ErrHydrationFailed = errors.New("hydration previously failed")

// Config holds hydrator configuration.
type Config struct {
	// MaxConcurrency bounds parallel fetches within one Hydrate call.
	MaxConcurrency int

	// EnrichLimit caps how many type-less entries one enrichment pass hydrates.
	EnrichLimit int
}

// DefaultConfig returns the default hydrator configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 10,
		EnrichLimit:    50,
	}
}

// Hydrator is the detail cache.
type Hydrator struct {
	fetcher catalog.EntryFetcher
	cfg     Config
	logger  zerolog.Logger
	sf      singleflight.Group

	mu      sync.RWMutex
	cache   map[int]catalog.Entry
	pending map[int]struct{}
	failed  map[int]struct{}
}

// New creates a hydrator backed by the given fetcher.
func New(fetcher catalog.EntryFetcher, cfg Config) *Hydrator {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = DefaultConfig().MaxConcurrency
	}
	if cfg.EnrichLimit <= 0 {
		cfg.EnrichLimit = DefaultConfig().EnrichLimit
	}
	return &Hydrator{
		fetcher: fetcher,
		cfg:     cfg,
		logger:  logging.NewLogger("hydrator"),
		cache:   make(map[int]catalog.Entry),
		pending: make(map[int]struct{}),
		failed:  make(map[int]struct{}),
	}
}

// Get returns the cached full entry for id.
func (h *Hydrator) Get(id int) (catalog.Entry, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	e, ok := h.cache[id]
	return e, ok
}

// Len returns the number of cached entries.
func (h *Hydrator) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.cache)
}

// IsPending reports whether a fetch for id is in flight.
func (h *Hydrator) IsPending(id int) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.pending[id]
	return ok
}

// Failed reports whether id failed to hydrate.
func (h *Hydrator) Failed(id int) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.failed[id]
	return ok
}

// WithSource returns the cached full entry when e is thin and a cached
// version exists, and e unchanged otherwise.
func (h *Hydrator) WithSource(e catalog.Entry) catalog.Entry {
	if !e.IsThin() {
		return e
	}
	if full, ok := h.Get(e.ID); ok {
		return full
	}
	return e
}

// Enrich applies WithSource to every entry.
func (h *Hydrator) Enrich(entries []catalog.Entry) []catalog.Entry {
	out := make([]catalog.Entry, len(entries))
	for i, e := range entries {
		out[i] = h.WithSource(e)
	}
	return out
}

// Store seeds the cache with an entry that is already full. Thin entries
// are ignored.
func (h *Hydrator) Store(e catalog.Entry) {
	if e.IsThin() {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.cache[e.ID]; !exists {
		h.cache[e.ID] = e
		cachedEntries.Set(float64(len(h.cache)))
	}
}

// Fetch returns the full entry for id, fetching it at most once even under
// concurrent callers.
func (h *Hydrator) Fetch(ctx context.Context, id int) (catalog.Entry, error) {
	h.mu.RLock()
	e, ok := h.cache[id]
	_, failed := h.failed[id]
	h.mu.RUnlock()
	if ok {
		hydrationFetches.WithLabelValues("cached").Inc()
		return e, nil
	}
	if failed {
		return catalog.Entry{}, fmt.Errorf("entry %d: %w", id, ErrHydrationFailed)
	}

	v, err, _ := h.sf.Do(strconv.Itoa(id), func() (interface{}, error) {
		// Double-check after acquiring the flight.
		if e, ok := h.Get(id); ok {
			return e, nil
		}

		entry, err := h.fetcher.FetchEntry(ctx, id)
		if err != nil {
			if ctx.Err() == nil {
				h.mu.Lock()
				h.failed[id] = struct{}{}
				h.mu.Unlock()
				hydrationFetches.WithLabelValues("failed").Inc()
				h.logger.Warn().Err(err).Int("entry_id", id).Msg("Hydration failed, entry stays thin")
			}
			return nil, err
		}

		h.mu.Lock()
		h.cache[id] = entry
		cachedEntries.Set(float64(len(h.cache)))
		h.mu.Unlock()
		hydrationFetches.WithLabelValues("fetched").Inc()
		return entry, nil
	})
	if err != nil {
		return catalog.Entry{}, err
	}
	return v.(catalog.Entry), nil
}

// Hydrate fetches every id that is neither cached, pending nor previously
// failed. It blocks until those fetches complete and returns how many
// entries were stored. Individual failures never surface.
func (h *Hydrator) Hydrate(ctx context.Context, ids []int) int {
	h.mu.Lock()
	todo := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := h.cache[id]; ok {
			continue
		}
		if _, ok := h.pending[id]; ok {
			continue
		}
		if _, ok := h.failed[id]; ok {
			continue
		}
		h.pending[id] = struct{}{}
		todo = append(todo, id)
	}
	h.mu.Unlock()

	if len(todo) == 0 {
		return 0
	}

	h.logger.Debug().Int("count", len(todo)).Msg("Hydrating entries")

	var (
		storedMu sync.Mutex
		stored   int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.cfg.MaxConcurrency)
	for _, id := range todo {
		g.Go(func() error {
			defer func() {
				h.mu.Lock()
				delete(h.pending, id)
				h.mu.Unlock()
			}()
			if _, err := h.Fetch(gctx, id); err == nil {
				storedMu.Lock()
				stored++
				storedMu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return stored
}

// ThinIDs returns the ids of thin entries that have no cached full version.
func (h *Hydrator) ThinIDs(entries []catalog.Entry) []int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var ids []int
	for _, e := range entries {
		if !e.IsThin() {
			continue
		}
		if _, ok := h.cache[e.ID]; ok {
			continue
		}
		ids = append(ids, e.ID)
	}
	return ids
}

// HydrateForSort hydrates thin entries when the sort needs stats.
func (h *Hydrator) HydrateForSort(ctx context.Context, entries []catalog.Entry, spec catalog.SortSpec) int {
	if !spec.RequiresStats() {
		return 0
	}
	ids := h.ThinIDs(entries)
	if len(ids) == 0 {
		return 0
	}
	h.logger.Debug().Str("sort", spec.String()).Int("thin", len(ids)).Msg("Hydrating for stat sort")
	return h.Hydrate(ctx, ids)
}

// HydrateMissingTypes hydrates up to EnrichLimit entries that still lack
// types and have no cached full version.
func (h *Hydrator) HydrateMissingTypes(ctx context.Context, entries []catalog.Entry) int {
	h.mu.RLock()
	ids := make([]int, 0, h.cfg.EnrichLimit)
	for _, e := range entries {
		if len(ids) >= h.cfg.EnrichLimit {
			break
		}
		if e.HasTypes() {
			continue
		}
		if _, ok := h.cache[e.ID]; ok {
			continue
		}
		ids = append(ids, e.ID)
	}
	h.mu.RUnlock()

	if len(ids) == 0 {
		return 0
	}
	return h.Hydrate(ctx, ids)
}
