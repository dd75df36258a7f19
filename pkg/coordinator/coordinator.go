// Package coordinator owns the browsing session: it resolves a fetch
// strategy for every filter change, executes it, falls back to incremental
// paging on failure and produces the sorted working set for display.
//
// A Coordinator holds exactly one Session at a time. Every fetch is tagged
// with the session epoch that issued it; results arriving after the
// criteria changed are dropped.
package coordinator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/pokedex-catalog/pkg/budget"
	"github.com/Sternrassler/pokedex-catalog/pkg/catalog"
	"github.com/Sternrassler/pokedex-catalog/pkg/hydrator"
	"github.com/Sternrassler/pokedex-catalog/pkg/logging"
	"github.com/Sternrassler/pokedex-catalog/pkg/pagination"
	"github.com/Sternrassler/pokedex-catalog/pkg/sorting"
	"github.com/Sternrassler/pokedex-catalog/pkg/strategy"
)

// ErrStale is returned when the criteria changed while a strategy ran.
var ErrStale = errors.New("criteria changed while fetching")

// Config holds coordinator configuration.
type Config struct {
	// ScanBatchSize is the page size used when scanning the whole catalog.
	ScanBatchSize int

	// FallbackTotal substitutes for the total count when it cannot be fetched.
	FallbackTotal int

	Pages    pagination.Config
	Batch    pagination.BatchConfig
	Hydrator hydrator.Config

	// References are the legendary and mythical id sets.
	References catalog.ReferenceSets

	// Signals feeds the render budget estimator.
	Signals budget.SignalProvider

	// SentinelMargin is the lookahead below the viewport at which the
	// sentinel counts as visible, in pixels.
	SentinelMargin float64

	// ScrollThreshold triggers loading when the distance from the bottom
	// of the scroll container falls under it, in pixels.
	ScrollThreshold float64

	// ScrollDebounce delays scroll checks until scrolling settles.
	ScrollDebounce time.Duration
}

// DefaultConfig returns the default coordinator configuration.
func DefaultConfig() Config {
	return Config{
		ScanBatchSize:   50,
		FallbackTotal:   catalog.FallbackTotal,
		Pages:           pagination.DefaultConfig(),
		Batch:           pagination.DefaultBatchConfig(),
		Hydrator:        hydrator.DefaultConfig(),
		References:      catalog.DefaultReferenceSets(),
		Signals:         budget.StaticSignals{DevicePixelRatio: 1},
		SentinelMargin:  400,
		ScrollThreshold: 200,
		ScrollDebounce:  150 * time.Millisecond,
	}
}

// Session is the state of one filter configuration.
type Session struct {
	ID       string
	Epoch    uint64
	Criteria catalog.FilterCriteria

	// Strategy is the resolved strategy; Kind becomes IncrementalAll after a fallback.
	Strategy strategy.Strategy

	// FellBack reports whether an eager strategy failed and paging took over.
	FellBack bool
}

// Incremental reports whether the session is served by the page engine.
func (s Session) Incremental() bool {
	return s.Strategy.Kind == strategy.IncrementalAll
}

// Result is the outcome of applying criteria.
type Result struct {
	Session Session
	Entries []catalog.Entry
	HasMore bool
}

// Coordinator drives the catalog data flow for one browsing client.
type Coordinator struct {
	catalog catalog.Catalog
	cfg     Config
	pages   *pagination.Accumulator
	details *hydrator.Hydrator
	budget  *budget.Estimator
	logger  zerolog.Logger

	mu      sync.Mutex
	session Session
	items   []catalog.Entry
	hasMore bool
	started bool
}

// New creates a coordinator. Call Apply to start the first session.
func New(ctx context.Context, cat catalog.Catalog, cfg Config) *Coordinator {
	def := DefaultConfig()
	if cfg.ScanBatchSize <= 0 {
		cfg.ScanBatchSize = def.ScanBatchSize
	}
	if cfg.FallbackTotal <= 0 {
		cfg.FallbackTotal = def.FallbackTotal
	}
	if cfg.References.Legendary == nil && cfg.References.Mythical == nil {
		cfg.References = def.References
	}
	if cfg.Signals == nil {
		cfg.Signals = def.Signals
	}
	if cfg.SentinelMargin <= 0 {
		cfg.SentinelMargin = def.SentinelMargin
	}
	if cfg.ScrollThreshold <= 0 {
		cfg.ScrollThreshold = def.ScrollThreshold
	}
	if cfg.ScrollDebounce <= 0 {
		cfg.ScrollDebounce = def.ScrollDebounce
	}

	return &Coordinator{
		catalog: cat,
		cfg:     cfg,
		pages:   pagination.NewAccumulator(cat, cfg.Pages),
		details: hydrator.New(cat, cfg.Hydrator),
		budget:  budget.NewEstimator(ctx, cfg.Signals),
		logger:  logging.NewLogger("coordinator"),
	}
}

// Session returns the current session.
func (c *Coordinator) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// HasMore reports whether more data may be loaded for the current session.
func (c *Coordinator) HasMore() bool {
	c.mu.Lock()
	incremental := c.session.Incremental()
	hasMore := c.hasMore
	c.mu.Unlock()
	if incremental {
		return c.pages.HasMore()
	}
	return hasMore
}

// Details exposes the detail cache.
func (c *Coordinator) Details() *hydrator.Hydrator {
	return c.details
}

// PageState returns the incremental page state.
func (c *Coordinator) PageState() pagination.State {
	return c.pages.State()
}

// RenderBudget returns the current render cap.
func (c *Coordinator) RenderBudget() int {
	return c.budget.Cap()
}

// Resize recomputes the render budget.
func (c *Coordinator) Resize(ctx context.Context) int {
	return c.budget.Recompute(ctx)
}

// Apply starts a new session for criteria. searchResults, when non-empty,
// override every other strategy. It returns ErrStale if another Apply
// superseded this one before its data arrived.
func (c *Coordinator) Apply(ctx context.Context, criteria catalog.FilterCriteria, searchResults []catalog.Entry) (Result, error) {
	criteria = criteria.Normalize()
	plan := strategy.Resolve(criteria, len(searchResults) > 0)

	c.mu.Lock()
	wasIncremental := c.started && c.session.Criteria.IsIncremental() && !c.session.FellBack
	c.session = Session{
		ID:       uuid.NewString(),
		Epoch:    c.session.Epoch + 1,
		Criteria: criteria,
		Strategy: plan,
	}
	c.started = true
	c.items = nil
	c.hasMore = plan.HasMore()
	session := c.session
	c.mu.Unlock()

	logger := logging.WithSession(c.logger, session.ID, session.Epoch, string(plan.Kind))
	logger.Info().Str("criteria", criteria.Key()).Msg("Applying filter criteria")

	if !plan.Eager() {
		if !wasIncremental {
			c.pages.Reset()
		}
		strategyRuns.WithLabelValues(string(plan.Kind), "ok").Inc()
		return c.startIncremental(ctx, session)
	}

	start := time.Now()
	entries, err := c.runEager(ctx, plan, searchResults)
	strategyDuration.WithLabelValues(string(plan.Kind)).Observe(time.Since(start).Seconds())

	if !c.isCurrent(session.Epoch) {
		staleDrops.Inc()
		logger.Warn().Msg("Dropping stale strategy result")
		return Result{}, ErrStale
	}

	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		c.mu.Lock()
		if c.session.Epoch != session.Epoch {
			c.mu.Unlock()
			staleDrops.Inc()
			logger.Warn().Err(err).Msg("Dropping stale strategy failure")
			return Result{}, ErrStale
		}
		c.session.Strategy.Kind = strategy.IncrementalAll
		c.session.FellBack = true
		session = c.session
		c.mu.Unlock()

		strategyRuns.WithLabelValues(string(plan.Kind), "fallback").Inc()
		logger.Warn().Err(err).Msg("Strategy failed, falling back to incremental paging")
		return c.startIncremental(ctx, session)
	}
	strategyRuns.WithLabelValues(string(plan.Kind), "ok").Inc()

	if plan.Kind != strategy.SearchOverride {
		entries = catalog.FilterRanges(entries, criteria)
	}
	c.details.HydrateMissingTypes(ctx, entries)

	c.mu.Lock()
	if c.session.Epoch != session.Epoch {
		c.mu.Unlock()
		staleDrops.Inc()
		return Result{}, ErrStale
	}
	c.items = entries
	c.hasMore = false
	c.mu.Unlock()

	logger.Info().Int("count", len(entries)).Msg("Strategy complete")
	return Result{Session: session, Entries: c.view(ctx, session, entries), HasMore: false}, nil
}

// startIncremental serves the session from the page engine, reusing any
// accumulated state and fetching the first page otherwise. A first page
// still in flight from an earlier incremental session is awaited rather
// than fetched twice.
func (c *Coordinator) startIncremental(ctx context.Context, session Session) (Result, error) {
	if !c.isCurrent(session.Epoch) {
		staleDrops.Inc()
		return Result{}, ErrStale
	}
	if c.pages.Len() == 0 && c.pages.LoadMore(ctx) == pagination.OutcomeSkipped {
		if err := c.pages.Wait(ctx); err != nil {
			return Result{}, err
		}
		if c.pages.Len() == 0 {
			c.pages.LoadMore(ctx)
		}
	}
	if !c.isCurrent(session.Epoch) {
		staleDrops.Inc()
		return Result{}, ErrStale
	}
	return c.incrementalResult(ctx, session), nil
}

func (c *Coordinator) incrementalResult(ctx context.Context, session Session) Result {
	return Result{
		Session: session,
		Entries: c.view(ctx, session, c.pages.Items()),
		HasMore: c.pages.HasMore(),
	}
}

// LoadMore appends the next incremental page. It is a no-op outside
// incremental sessions.
func (c *Coordinator) LoadMore(ctx context.Context) pagination.Outcome {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()
	if !session.Incremental() {
		return pagination.OutcomeSkipped
	}

	outcome := c.pages.LoadMore(ctx)
	if !c.isCurrent(session.Epoch) {
		staleDrops.Inc()
		return pagination.OutcomeStale
	}
	return outcome
}

// View returns the current working set, hydrated and sorted.
func (c *Coordinator) View(ctx context.Context) []catalog.Entry {
	c.mu.Lock()
	session := c.session
	items := c.items
	c.mu.Unlock()

	if session.Incremental() {
		items = c.pages.Items()
	}
	return c.view(ctx, session, items)
}

func (c *Coordinator) view(ctx context.Context, session Session, items []catalog.Entry) []catalog.Entry {
	spec := session.Criteria.Sort
	c.details.HydrateForSort(ctx, items, spec)
	return sorting.Sort(c.details.Enrich(items), spec, c.details.WithSource)
}

func (c *Coordinator) isCurrent(epoch uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Epoch == epoch
}
