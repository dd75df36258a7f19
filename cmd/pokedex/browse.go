package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/pokedex-catalog/pkg/catalog"
	"github.com/Sternrassler/pokedex-catalog/pkg/config"
	"github.com/Sternrassler/pokedex-catalog/pkg/pagination"
)

func newBrowseCmd(load func(*cobra.Command) (*config.Config, error)) *cobra.Command {
	var (
		p     params
		pages int
		limit int
	)

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Print one filtered, sorted view of the catalog",
		Example: `  pokedex browse
  pokedex browse --generation 1 --types fire
  pokedex browse --legendary --mythical
  pokedex browse --sort total-stats --dir desc --pages 2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load(cmd)
			if err != nil {
				return err
			}
			criteria, err := p.criteria()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, false)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.apply(ctx, criteria)
			if err != nil {
				return err
			}

			for range pages {
				if outcome := a.coord.LoadMore(ctx); outcome != pagination.OutcomeAppended {
					break
				}
			}
			entries := a.coord.View(ctx)

			capacity := limit
			if capacity <= 0 {
				capacity = a.coord.RenderBudget()
			}
			shown := entries[:min(capacity, len(entries))]

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "strategy=%s entries=%d shown=%d has_more=%t\n",
				result.Session.Strategy.Kind, len(entries), len(shown), a.coord.HasMore())
			writeEntries(out, shown)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&p.Generation, "generation", catalog.GenerationAll, "generation 1-9 or all")
	f.StringSliceVar(&p.Types, "types", nil, "types every entry must have (comma separated)")
	f.BoolVar(&p.Legendary, "legendary", false, "only legendary entries")
	f.BoolVar(&p.Mythical, "mythical", false, "only mythical entries")
	f.StringVar(&p.Search, "search", "", "name substring search")
	f.StringVar(&p.Sort, "sort", "id", "sort field (id, name, total-stats, hp, attack, defense, special-attack, special-defense, speed)")
	f.StringVar(&p.Direction, "dir", "asc", "sort direction (asc, desc)")
	f.Float64Var(&p.HeightMin, "height-min", 0, "minimum height in metres")
	f.Float64Var(&p.HeightMax, "height-max", 0, "maximum height in metres (0 = default)")
	f.Float64Var(&p.WeightMin, "weight-min", 0, "minimum weight in kilograms")
	f.Float64Var(&p.WeightMax, "weight-max", 0, "maximum weight in kilograms (0 = default)")
	f.IntVar(&pages, "pages", 0, "additional pages to load in incremental mode")
	f.IntVar(&limit, "limit", 0, "maximum entries to print (0 = render budget)")

	return cmd
}

// writeEntries prints one line per entry.
func writeEntries(w io.Writer, entries []catalog.Entry) {
	for _, e := range entries {
		types := "?"
		if e.HasTypes() {
			types = strings.Join(e.Types, "/")
		}
		fmt.Fprintf(w, "#%04d %-24s %-18s total=%d\n", e.ID, e.Name, types, e.TotalStats())
	}
}
