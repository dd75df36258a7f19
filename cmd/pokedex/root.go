package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/pokedex-catalog/pkg/budget"
	"github.com/Sternrassler/pokedex-catalog/pkg/catalog"
	"github.com/Sternrassler/pokedex-catalog/pkg/client"
	"github.com/Sternrassler/pokedex-catalog/pkg/config"
	"github.com/Sternrassler/pokedex-catalog/pkg/coordinator"
	"github.com/Sternrassler/pokedex-catalog/pkg/logging"
)

// app holds the wired components shared by the subcommands.
type app struct {
	cfg    *config.Config
	client *client.Client
	coord  *coordinator.Coordinator
}

// newApp wires the catalog client and coordinator from configuration.
// Non-interactive callers load pages back to back, so the load debounce
// is disabled for them.
func newApp(ctx context.Context, cfg *config.Config, interactive bool) (*app, error) {
	c, err := client.New(cfg.ClientConfig(cfg.RedisClient()))
	if err != nil {
		return nil, fmt.Errorf("create catalog client: %w", err)
	}

	coordCfg := coordinator.DefaultConfig()
	coordCfg.FallbackTotal = cfg.Catalog.FallbackTotal
	coordCfg.Pages.FallbackTotal = cfg.Catalog.FallbackTotal
	coordCfg.Batch.MaxConcurrency = cfg.Catalog.MaxConcurrency
	coordCfg.Hydrator.MaxConcurrency = cfg.Catalog.MaxConcurrency
	coordCfg.Signals = budget.HostSignals{DevicePixelRatio: cfg.Render.DevicePixelRatio}
	if !interactive {
		coordCfg.Pages.Debounce = 0
	}

	return &app{
		cfg:    cfg,
		client: c,
		coord:  coordinator.New(ctx, c, coordCfg),
	}, nil
}

func (a *app) Close() error {
	return a.client.Close()
}

func newRootCmd() *cobra.Command {
	var (
		configDir string
		logLevel  string
		pretty    bool
	)

	root := &cobra.Command{
		Use:   "pokedex",
		Short: "Browse the Pokémon catalog",
		Long: `pokedex browses a PokeAPI-compatible catalog with filters and sorting.
It loads the catalog incrementally when no filter is set and switches to
targeted fetches for generation, type, legendary and range filters.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&configDir, "config-dir", ".", "directory containing the .env file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&pretty, "pretty", false, "human-readable log output")

	load := func(cmd *cobra.Command) (*config.Config, error) {
		cfg, err := config.LoadConfig(configDir)
		if err != nil {
			return nil, fmt.Errorf("load configuration: %w", err)
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		if pretty {
			cfg.Log.Pretty = true
		}
		logCfg := cfg.LoggingConfig()
		logCfg.Output = cmd.ErrOrStderr()
		logging.Setup(logCfg)
		return cfg, nil
	}

	root.AddCommand(newBrowseCmd(load), newServeCmd(load))
	return root
}

// apply resolves a name search, when one is set, and starts a session.
func (a *app) apply(ctx context.Context, criteria catalog.FilterCriteria) (coordinator.Result, error) {
	var searchResults []catalog.Entry
	if criteria.SearchTerm != "" {
		found, err := a.client.SearchByName(ctx, criteria.SearchTerm, client.DefaultSearchLimit)
		if err != nil {
			return coordinator.Result{}, fmt.Errorf("search: %w", err)
		}
		searchResults = found
	}
	return a.coord.Apply(ctx, criteria, searchResults)
}
