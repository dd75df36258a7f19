package pagination

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Sternrassler/pokedex-catalog/pkg/catalog"
)

// BatchConfig holds per-id batch fetch configuration.
type BatchConfig struct {
	// MaxConcurrency is the maximum number of parallel requests.
	MaxConcurrency int

	// Timeout bounds each single fetch. Zero disables the per-fetch timeout.
	Timeout time.Duration
}

// DefaultBatchConfig returns the default batch configuration.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		MaxConcurrency: 10,
		Timeout:        15 * time.Second,
	}
}

// FetchEach fetches every id concurrently and returns the successful
// entries in input order. Ids whose fetch fails are dropped. The only error
// returned is the context's, in which case partial results are discarded.
func FetchEach(ctx context.Context, fetcher catalog.EntryFetcher, ids []int, cfg BatchConfig) ([]catalog.Entry, error) {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = DefaultBatchConfig().MaxConcurrency
	}
	if len(ids) == 0 {
		return nil, nil
	}

	start := time.Now()
	results := make([]catalog.Entry, len(ids))
	ok := make([]bool, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.MaxConcurrency)

	for i, id := range ids {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			fetchCtx := gctx
			if cfg.Timeout > 0 {
				var cancel context.CancelFunc
				fetchCtx, cancel = context.WithTimeout(gctx, cfg.Timeout)
				defer cancel()
			}

			entry, err := fetcher.FetchEntry(fetchCtx, id)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				batchFetchFailures.Inc()
				log.Warn().Err(err).Int("entry_id", id).Msg("Entry fetch failed, dropping from batch")
				return nil
			}
			results[i] = entry
			ok[i] = true
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]catalog.Entry, 0, len(ids))
	for i := range results {
		if ok[i] {
			out = append(out, results[i])
		}
	}

	log.Debug().
		Int("requested", len(ids)).
		Int("fetched", len(out)).
		Dur("duration", time.Since(start)).
		Msg("Batch fetch complete")

	return out, nil
}
