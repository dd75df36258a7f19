package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Sternrassler/pokedex-catalog/pkg/catalog"
	"github.com/Sternrassler/pokedex-catalog/pkg/config"
	"github.com/Sternrassler/pokedex-catalog/pkg/coordinator"
	"github.com/Sternrassler/pokedex-catalog/pkg/hydrator"
	"github.com/Sternrassler/pokedex-catalog/pkg/logging"
	"github.com/Sternrassler/pokedex-catalog/pkg/metrics"
)

func newServeCmd(load func(*cobra.Command) (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the catalog browser over HTTP",
		Long: `Starts an HTTP API driving a single browsing session:

  GET  /health              liveness
  GET  /metrics             Prometheus metrics
  GET  /catalog             apply filters from the query string
  POST /catalog/more        load the next incremental page
  GET  /catalog/entries/:id one entry with full detail`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, true)
			if err != nil {
				return err
			}
			defer a.Close()

			gin.SetMode(gin.ReleaseMode)
			srv := &http.Server{
				Addr:              ":" + strconv.Itoa(cfg.Server.Port),
				Handler:           newRouter(a),
				ReadHeaderTimeout: 10 * time.Second,
			}

			logger := logging.NewLogger("server")
			errCh := make(chan error, 1)
			go func() {
				logger.Info().Str("addr", srv.Addr).Msg("Starting catalog server")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return fmt.Errorf("server failed: %w", err)
			case <-ctx.Done():
			}

			logger.Info().Msg("Shutting down catalog server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

// server exposes one coordinator session over HTTP. Requests that change
// the session are serialized.
type server struct {
	app    *app
	mu     sync.Mutex
	logger zerolog.Logger
}

// catalogResponse is the body of /catalog and /catalog/more.
type catalogResponse struct {
	Session   string          `json:"session"`
	Strategy  string          `json:"strategy"`
	FellBack  bool            `json:"fell_back"`
	Outcome   string          `json:"outcome,omitempty"`
	Total     int             `json:"total"`
	HasMore   bool            `json:"has_more"`
	RenderCap int             `json:"render_cap"`
	Entries   []catalog.Entry `json:"entries"`
}

func newRouter(a *app) *gin.Engine {
	s := &server{app: a, logger: logging.NewLogger("server")}

	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/catalog", s.handleApply)
	router.POST("/catalog/more", s.handleMore)
	router.GET("/catalog/entries/:id", s.handleEntry)

	return router
}

func (s *server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	}
}

func (s *server) handleApply(c *gin.Context) {
	var p params
	if err := c.ShouldBindQuery(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query"})
		return
	}
	criteria, err := p.criteria()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := c.Request.Context()
	result, err := s.app.apply(ctx, criteria)
	if errors.Is(err, coordinator.ErrStale) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		s.logger.Warn().Err(err).Msg("Apply failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, s.response(result.Session, result.Entries, ""))
}

func (s *server) handleMore(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := c.Request.Context()
	outcome := s.app.coord.LoadMore(ctx)
	c.JSON(http.StatusOK, s.response(s.app.coord.Session(), s.app.coord.View(ctx), outcome.String()))
}

func (s *server) handleEntry(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	ctx := c.Request.Context()
	entry, err := s.app.coord.Details().Fetch(ctx, id)
	if errors.Is(err, hydrator.ErrHydrationFailed) {
		// The client negative-caches the original failure.
		entry, err = s.app.client.FetchEntry(ctx, id)
	}
	if errors.Is(err, catalog.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, entry)
}

// response caps entries at the render budget.
func (s *server) response(session coordinator.Session, entries []catalog.Entry, outcome string) catalogResponse {
	renderCap := s.app.coord.RenderBudget()
	shown := entries[:min(renderCap, len(entries))]
	if shown == nil {
		shown = []catalog.Entry{}
	}
	return catalogResponse{
		Session:   session.ID,
		Strategy:  string(session.Strategy.Kind),
		FellBack:  session.FellBack,
		Outcome:   outcome,
		Total:     len(entries),
		HasMore:   s.app.coord.HasMore(),
		RenderCap: renderCap,
		Entries:   shown,
	}
}
