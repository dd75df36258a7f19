package coordinator

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Sternrassler/pokedex-catalog/pkg/catalog"
	"github.com/Sternrassler/pokedex-catalog/pkg/pagination"
	"github.com/Sternrassler/pokedex-catalog/pkg/strategy"
)

// runEager executes a one-shot strategy and returns its full result set.
func (c *Coordinator) runEager(ctx context.Context, plan strategy.Strategy, searchResults []catalog.Entry) ([]catalog.Entry, error) {
	switch plan.Kind {
	case strategy.SearchOverride:
		return searchResults, nil
	case strategy.GenerationScoped:
		return c.fetchGeneration(ctx, plan)
	case strategy.TypeIntersection:
		return c.fetchTypeIntersection(ctx, plan.Types)
	case strategy.LegendaryMythicalScoped:
		return c.fetchLegendaryMythical(ctx, plan.Legendary, plan.Mythical)
	case strategy.RangeOrSortScoped:
		return c.scanAll(ctx)
	default:
		return nil, fmt.Errorf("strategy %q is not eager", plan.Kind)
	}
}

// fetchGeneration fetches one generation and keeps entries matching every
// selected type and the legendary/mythical flags.
func (c *Coordinator) fetchGeneration(ctx context.Context, plan strategy.Strategy) ([]catalog.Entry, error) {
	entries, err := c.catalog.FetchByGeneration(ctx, plan.Generation)
	if err != nil {
		return nil, fmt.Errorf("generation %s: %w", plan.Generation, err)
	}

	out := make([]catalog.Entry, 0, len(entries))
	for _, e := range entries {
		if !catalog.MatchesAllTypes(e, plan.Types) {
			continue
		}
		if !c.cfg.References.Match(e.ID, plan.Legendary, plan.Mythical) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// fetchTypeIntersection fetches every selected type concurrently and keeps
// the ids present in all of them, in the order of the first type's list.
func (c *Coordinator) fetchTypeIntersection(ctx context.Context, types []string) ([]catalog.Entry, error) {
	sets := make([][]catalog.Entry, len(types))

	g, gctx := errgroup.WithContext(ctx)
	for i, tag := range types {
		g.Go(func() error {
			entries, err := c.catalog.FetchByType(gctx, tag)
			if err != nil {
				return fmt.Errorf("type %s: %w", tag, err)
			}
			sets[i] = entries
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return Intersect(sets), nil
}

// Intersect keeps entries whose id occurs in every set. Duplicate ids
// within one set count once. Order and entry data follow the first
// occurrence across the sets.
func Intersect(sets [][]catalog.Entry) []catalog.Entry {
	if len(sets) == 0 {
		return nil
	}

	counts := make(map[int]int)
	first := make(map[int]catalog.Entry)
	var order []int
	for _, set := range sets {
		seen := make(map[int]struct{}, len(set))
		for _, e := range set {
			if _, dup := seen[e.ID]; dup {
				continue
			}
			seen[e.ID] = struct{}{}
			counts[e.ID]++
			if _, ok := first[e.ID]; !ok {
				first[e.ID] = e
				order = append(order, e.ID)
			}
		}
	}

	out := make([]catalog.Entry, 0, len(order))
	for _, id := range order {
		if counts[id] == len(sets) {
			out = append(out, first[id])
		}
	}
	return out
}

// fetchLegendaryMythical discovers every id through the thin list, keeps
// those in the selected reference sets and fetches them in parallel.
// Ids whose fetch fails are dropped.
func (c *Coordinator) fetchLegendaryMythical(ctx context.Context, legendary, mythical bool) ([]catalog.Entry, error) {
	total := c.totalCount(ctx)

	refs, err := c.catalog.FetchThinList(ctx, total, 0)
	if err != nil {
		return nil, fmt.Errorf("thin list: %w", err)
	}

	ids := make([]int, 0, 64)
	for _, ref := range refs {
		if c.cfg.References.Match(ref.ID, legendary, mythical) {
			ids = append(ids, ref.ID)
		}
	}
	c.logger.Debug().Int("discovered", len(refs)).Int("matched", len(ids)).Msg("Reference set filter applied")

	return pagination.FetchEach(ctx, c.catalog, ids, c.cfg.Batch)
}

// scanAll fetches the whole catalog sequentially in fixed-size batches.
func (c *Coordinator) scanAll(ctx context.Context) ([]catalog.Entry, error) {
	total := c.totalCount(ctx)
	size := c.cfg.ScanBatchSize

	seen := make(map[int]struct{}, total)
	out := make([]catalog.Entry, 0, total)
	for offset := 0; offset < total; offset += size {
		page, err := c.catalog.FetchPage(ctx, size, offset)
		if err != nil {
			return nil, fmt.Errorf("scan at offset %d: %w", offset, err)
		}
		if len(page) == 0 {
			break
		}
		for _, e := range page {
			if _, dup := seen[e.ID]; dup {
				continue
			}
			seen[e.ID] = struct{}{}
			out = append(out, e)
		}
	}
	return out, nil
}

// totalCount returns the catalog size, or the fallback when it cannot be fetched.
func (c *Coordinator) totalCount(ctx context.Context) int {
	total, err := c.catalog.FetchTotalCount(ctx)
	if err != nil || total <= 0 {
		c.logger.Warn().Err(err).Int("fallback", c.cfg.FallbackTotal).Msg("Total count unavailable, using fallback")
		return c.cfg.FallbackTotal
	}
	return total
}
