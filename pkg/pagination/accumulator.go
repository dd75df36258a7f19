package pagination

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/pokedex-catalog/pkg/catalog"
	"github.com/Sternrassler/pokedex-catalog/pkg/logging"
	"github.com/Sternrassler/pokedex-catalog/pkg/retry"
)

// Outcome describes what a LoadMore call did.
type Outcome int

const (
	// OutcomeSkipped means a guard rejected the call and nothing changed.
	OutcomeSkipped Outcome = iota
	// OutcomeAppended means a page (possibly fully deduplicated) was consumed.
	OutcomeAppended
	// OutcomeExhausted means the engine stopped and HasMore is now false.
	OutcomeExhausted
	// OutcomeStale means the session was reset while the fetch was in flight.
	OutcomeStale
	// OutcomeCancelled means the context ended before the page arrived.
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeAppended:
		return "appended"
	case OutcomeExhausted:
		return "exhausted"
	case OutcomeStale:
		return "stale"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// State is the incremental page state.
type State struct {
	Offset          int
	PageSize        int
	HasMore         bool
	IsLoadingMore   bool
	EmptyRetryCount int
	ErrorRetryCount int
	LastLoad        time.Time
}

// Config holds accumulator configuration.
type Config struct {
	// PageSize is the regular page size.
	PageSize int

	// ProbeSize is the size of the enlarged probe issued after repeated empty pages.
	ProbeSize int

	// ProbeOffsetLimit disables the probe at or beyond this offset.
	ProbeOffsetLimit int

	// FallbackTotal is used when the total count cannot be fetched.
	FallbackTotal int

	// Debounce rejects LoadMore calls this soon after the previous one.
	// Zero disables the guard.
	Debounce time.Duration

	// EmptyPolicy governs retries after empty pages.
	EmptyPolicy retry.Policy

	// ErrorPolicy governs retries after failed fetches.
	ErrorPolicy retry.Policy

	// Now and Sleep are injectable for tests.
	Now   func() time.Time
	Sleep retry.Sleeper
}

// DefaultConfig returns the incremental engine policy.
func DefaultConfig() Config {
	return Config{
		PageSize:         catalog.PageSize,
		ProbeSize:        150,
		ProbeOffsetLimit: 1000,
		FallbackTotal:    catalog.FallbackTotal,
		Debounce:         500 * time.Millisecond,
		EmptyPolicy:      retry.EmptyBatch,
		ErrorPolicy:      retry.NetworkError,
		Now:              time.Now,
		Sleep:            retry.Sleep,
	}
}

var (
	errEmptyPage = errors.New("empty page")
	errEndOfData = errors.New("end of data")
	errStalePage = errors.New("stale page")
	errFetchStop = errors.New("page fetch retries exhausted")
)

// Accumulator is the incremental page engine. It owns the working set of
// one incremental session; Reset starts a new session.
type Accumulator struct {
	fetcher catalog.PageFetcher
	cfg     Config
	logger  zerolog.Logger

	mu    sync.Mutex
	state State
	items []catalog.Entry
	seen  map[int]struct{}
	total int
	epoch uint64

	// loading is closed when the in-flight LoadMore returns.
	loading chan struct{}
}

// NewAccumulator creates an accumulator with a fresh session.
func NewAccumulator(fetcher catalog.PageFetcher, cfg Config) *Accumulator {
	def := DefaultConfig()
	if cfg.PageSize <= 0 {
		cfg.PageSize = def.PageSize
	}
	if cfg.ProbeSize <= 0 {
		cfg.ProbeSize = def.ProbeSize
	}
	if cfg.ProbeOffsetLimit <= 0 {
		cfg.ProbeOffsetLimit = def.ProbeOffsetLimit
	}
	if cfg.FallbackTotal <= 0 {
		cfg.FallbackTotal = def.FallbackTotal
	}
	if cfg.EmptyPolicy.Delay == nil {
		cfg.EmptyPolicy = def.EmptyPolicy
	}
	if cfg.ErrorPolicy.Delay == nil {
		cfg.ErrorPolicy = def.ErrorPolicy
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Sleep == nil {
		cfg.Sleep = retry.Sleep
	}

	a := &Accumulator{
		fetcher: fetcher,
		cfg:     cfg,
		logger:  logging.NewLogger("pagination"),
	}
	a.resetLocked()
	return a
}

// Reset discards the working set and starts a new session. A LoadMore
// still in flight for the previous session is discarded when it returns.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resetLocked()
	a.logger.Info().Uint64("epoch", a.epoch).Msg("Incremental session reset")
}

func (a *Accumulator) resetLocked() {
	a.epoch++
	a.state = State{
		PageSize: a.cfg.PageSize,
		HasMore:  true,
	}
	a.items = nil
	a.seen = make(map[int]struct{})
	a.total = 0
	accumulatedEntries.Set(0)
}

// State returns a snapshot of the page state.
func (a *Accumulator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// HasMore reports whether further pages may be fetched.
func (a *Accumulator) HasMore() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.HasMore
}

// Items returns a copy of the accumulated working set in arrival order.
func (a *Accumulator) Items() []catalog.Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]catalog.Entry, len(a.items))
	copy(out, a.items)
	return out
}

// Len returns the number of accumulated entries.
func (a *Accumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.items)
}

// Epoch identifies the current session.
func (a *Accumulator) Epoch() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.epoch
}

// Wait blocks until the LoadMore in flight for the current session, if
// any, has returned.
func (a *Accumulator) Wait(ctx context.Context) error {
	a.mu.Lock()
	loading := a.loading
	inFlight := a.state.IsLoadingMore
	a.mu.Unlock()
	if !inFlight || loading == nil {
		return nil
	}

	select {
	case <-loading:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LoadMore fetches the next page. It is a no-op while a fetch is in flight,
// after the engine is exhausted, or within the debounce window of the
// previous call. Failures are retried internally and never returned.
func (a *Accumulator) LoadMore(ctx context.Context) Outcome {
	a.mu.Lock()
	if a.state.IsLoadingMore || !a.state.HasMore {
		a.mu.Unlock()
		return OutcomeSkipped
	}
	now := a.cfg.Now()
	if !a.state.LastLoad.IsZero() && now.Sub(a.state.LastLoad) < a.cfg.Debounce {
		a.mu.Unlock()
		return OutcomeSkipped
	}
	a.state.IsLoadingMore = true
	a.state.LastLoad = now
	epoch := a.epoch
	loading := make(chan struct{})
	a.loading = loading
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		if a.epoch == epoch {
			a.state.IsLoadingMore = false
		}
		a.mu.Unlock()
		close(loading)
	}()

	outcome := a.load(ctx, epoch)
	pagesLoaded.WithLabelValues(outcome.String()).Inc()
	return outcome
}

func (a *Accumulator) load(ctx context.Context, epoch uint64) Outcome {
	total := a.knownTotal(ctx, epoch)

	var page []catalog.Entry
	err := retry.Do(ctx, a.cfg.EmptyPolicy, func(ctx context.Context) error {
		var err error
		page, err = a.fetchWithRetry(ctx, epoch, a.cfg.PageSize)
		if err != nil {
			return err
		}
		if len(page) > 0 {
			return nil
		}

		a.mu.Lock()
		defer a.mu.Unlock()
		if a.state.Offset < total {
			return errEmptyPage
		}
		return errEndOfData
	},
		retry.RetryIf(func(err error) bool { return errors.Is(err, errEmptyPage) }),
		retry.WithSleeper(a.cfg.Sleep),
		retry.OnRetry(func(n int, delay time.Duration, _ error) {
			a.mu.Lock()
			if a.epoch == epoch {
				a.state.EmptyRetryCount = n
				a.state.Offset += a.cfg.PageSize
			}
			offset := a.state.Offset
			a.mu.Unlock()

			emptyPageRetries.Inc()
			a.logger.Warn().
				Int("attempt", n).
				Int("offset", offset).
				Dur("delay", delay).
				Msg("Empty page, skipping hole and retrying")
		}),
	)

	switch {
	case err == nil:
		return a.appendPage(epoch, page, a.cfg.PageSize, total)
	case errors.Is(err, errStalePage):
		return OutcomeStale
	case errors.Is(err, retry.ErrCancelled), ctx.Err() != nil:
		return OutcomeCancelled
	case errors.Is(err, retry.ErrExhausted) && errors.Is(err, errEmptyPage):
		return a.probe(ctx, epoch, total)
	default:
		return a.stop(epoch, err)
	}
}

// fetchWithRetry fetches one page at the current offset, retrying rejected
// fetches under the error policy.
func (a *Accumulator) fetchWithRetry(ctx context.Context, epoch uint64, size int) ([]catalog.Entry, error) {
	var page []catalog.Entry
	err := retry.Do(ctx, a.cfg.ErrorPolicy, func(ctx context.Context) error {
		a.mu.Lock()
		if a.epoch != epoch {
			a.mu.Unlock()
			return errStalePage
		}
		offset := a.state.Offset
		a.mu.Unlock()

		a.logger.Debug().Int("offset", offset).Int("page_size", size).Msg("Fetching page")
		entries, err := a.fetcher.FetchPage(ctx, size, offset)

		a.mu.Lock()
		stale := a.epoch != epoch
		a.mu.Unlock()
		if stale {
			return errStalePage
		}
		if err != nil {
			return err
		}
		page = entries
		return nil
	},
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, errStalePage) && ctx.Err() == nil
		}),
		retry.WithSleeper(a.cfg.Sleep),
		retry.OnRetry(func(n int, delay time.Duration, err error) {
			a.mu.Lock()
			if a.epoch == epoch {
				a.state.ErrorRetryCount = n
			}
			a.mu.Unlock()

			pageErrorRetries.Inc()
			a.logger.Warn().
				Err(err).
				Int("attempt", n).
				Dur("delay", delay).
				Msg("Page fetch failed, retrying")
		}),
	)
	if err != nil {
		if errors.Is(err, errStalePage) || errors.Is(err, retry.ErrCancelled) || ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", errFetchStop, err)
	}
	return page, nil
}

// probe issues one enlarged fetch at the current offset after repeated
// empty pages.
func (a *Accumulator) probe(ctx context.Context, epoch uint64, total int) Outcome {
	a.mu.Lock()
	if a.epoch != epoch {
		a.mu.Unlock()
		return OutcomeStale
	}
	a.state.EmptyRetryCount = 0
	offset := a.state.Offset
	a.mu.Unlock()

	if offset >= a.cfg.ProbeOffsetLimit {
		return a.stop(epoch, errEmptyPage)
	}

	a.logger.Info().Int("offset", offset).Int("page_size", a.cfg.ProbeSize).Msg("Issuing enlarged probe")
	entries, err := a.fetcher.FetchPage(ctx, a.cfg.ProbeSize, offset)

	a.mu.Lock()
	stale := a.epoch != epoch
	a.mu.Unlock()
	if stale {
		return OutcomeStale
	}
	if err != nil || len(entries) == 0 {
		probeFetches.WithLabelValues("empty").Inc()
		if err == nil {
			err = errEmptyPage
		}
		return a.stop(epoch, err)
	}

	probeFetches.WithLabelValues("hit").Inc()
	return a.appendPage(epoch, entries, a.cfg.ProbeSize, total)
}

// appendPage merges a non-empty page into the working set and advances the offset.
func (a *Accumulator) appendPage(epoch uint64, page []catalog.Entry, advance, total int) Outcome {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.epoch != epoch {
		return OutcomeStale
	}

	a.state.EmptyRetryCount = 0
	a.state.ErrorRetryCount = 0

	added := 0
	for _, e := range page {
		if _, dup := a.seen[e.ID]; dup {
			continue
		}
		a.seen[e.ID] = struct{}{}
		a.items = append(a.items, e)
		added++
	}

	a.state.Offset += advance
	if a.state.Offset >= total {
		a.state.HasMore = false
	}
	accumulatedEntries.Set(float64(len(a.items)))

	a.logger.Info().
		Int("offset", a.state.Offset).
		Int("fetched", len(page)).
		Int("added", added).
		Int("total", len(a.items)).
		Bool("has_more", a.state.HasMore).
		Msg("Page appended")

	return OutcomeAppended
}

func (a *Accumulator) stop(epoch uint64, cause error) Outcome {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.epoch != epoch {
		return OutcomeStale
	}
	a.state.HasMore = false

	if errors.Is(cause, errEndOfData) {
		a.logger.Info().Int("offset", a.state.Offset).Msg("Reached end of catalog")
	} else {
		a.logger.Error().Err(cause).Int("offset", a.state.Offset).Msg("Incremental loading stopped")
	}
	return OutcomeExhausted
}

// knownTotal returns the catalog size, fetching it once per session.
func (a *Accumulator) knownTotal(ctx context.Context, epoch uint64) int {
	a.mu.Lock()
	total := a.total
	a.mu.Unlock()
	if total > 0 {
		return total
	}

	total, err := a.fetcher.FetchTotalCount(ctx)
	if err != nil || total <= 0 {
		a.logger.Warn().Err(err).Int("fallback", a.cfg.FallbackTotal).Msg("Total count unavailable, using fallback")
		total = a.cfg.FallbackTotal
	}

	a.mu.Lock()
	if a.epoch == epoch {
		a.total = total
	}
	a.mu.Unlock()
	return total
}
