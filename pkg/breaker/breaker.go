package breaker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// ErrOpen is returned by Allow while the circuit is open.
var ErrOpen = errors.New("circuit breaker is open")

var (
	breakerPhase = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pokedex_breaker_state",
		Help: "Circuit breaker phase (0=closed, 1=open, 2=half_open)",
	}, []string{"name"})

	breakerRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pokedex_breaker_rejections_total",
		Help: "Total number of requests rejected by an open circuit",
	}, []string{"name"})

	breakerOpens = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pokedex_breaker_opens_total",
		Help: "Total number of times the circuit opened",
	}, []string{"name"})
)

// Config holds breaker configuration.
type Config struct {
	Name             string
	FailureThreshold int
	RecoveryTimeout  time.Duration

	// Now is the clock; nil selects time.Now.
	Now func() time.Time
}

// DefaultConfig returns the default breaker configuration.
func DefaultConfig() Config {
	return Config{
		Name:             "catalog",
		FailureThreshold: FailureThreshold,
		RecoveryTimeout:  RecoveryTimeout,
		Now:              time.Now,
	}
}

// Breaker gates requests on the failure history kept in a Store. Store
// errors never block requests.
type Breaker struct {
	store  Store
	cfg    Config
	logger zerolog.Logger
}

// New creates a breaker.
func New(store Store, cfg Config, logger zerolog.Logger) *Breaker {
	def := DefaultConfig()
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = def.RecoveryTimeout
	}
	if cfg.Now == nil {
		cfg.Now = def.Now
	}
	return &Breaker{store: store, cfg: cfg, logger: logger.With().Str("breaker", cfg.Name).Logger()}
}

// Phase returns the current circuit phase.
func (b *Breaker) Phase(ctx context.Context) (Phase, error) {
	state, err := b.store.State(ctx)
	if err != nil {
		return Closed, err
	}
	return state.Phase(b.cfg.Now(), b.cfg.FailureThreshold, b.cfg.RecoveryTimeout), nil
}

// Allow returns ErrOpen while the circuit is open. A half-open circuit lets
// requests through; the next result decides whether it closes or reopens.
func (b *Breaker) Allow(ctx context.Context) error {
	state, err := b.store.State(ctx)
	if err != nil {
		b.logger.Warn().Err(err).Msg("Breaker state unavailable, allowing request")
		return nil
	}

	now := b.cfg.Now()
	phase := state.Phase(now, b.cfg.FailureThreshold, b.cfg.RecoveryTimeout)
	breakerPhase.WithLabelValues(b.cfg.Name).Set(float64(phase))

	if phase == Open {
		breakerRejections.WithLabelValues(b.cfg.Name).Inc()
		return fmt.Errorf("%w: retry in %s", ErrOpen, state.RetryAfter(now, b.cfg.RecoveryTimeout).Round(time.Second))
	}
	return nil
}

// RecordFailure counts a failure and opens the circuit once the threshold
// is reached. Failures past the threshold (a failed half-open probe)
// reopen it.
func (b *Breaker) RecordFailure(ctx context.Context) {
	now := b.cfg.Now()
	failures, err := b.store.IncrementFailures(ctx, now)
	if err != nil {
		b.logger.Warn().Err(err).Msg("Failed to record breaker failure")
		return
	}
	if failures < b.cfg.FailureThreshold {
		return
	}

	if err := b.store.Open(ctx, now); err != nil {
		b.logger.Warn().Err(err).Msg("Failed to open breaker")
		return
	}
	breakerOpens.WithLabelValues(b.cfg.Name).Inc()
	breakerPhase.WithLabelValues(b.cfg.Name).Set(float64(Open))
	b.logger.Error().
		Int("failures", failures).
		Dur("recovery", b.cfg.RecoveryTimeout).
		Msg("Circuit opened, rejecting catalog requests")
}

// RecordSuccess closes the circuit.
func (b *Breaker) RecordSuccess(ctx context.Context) {
	state, err := b.store.State(ctx)
	if err != nil {
		b.logger.Warn().Err(err).Msg("Breaker state unavailable")
		return
	}
	if state.Failures == 0 {
		return
	}
	if err := b.store.Reset(ctx); err != nil {
		b.logger.Warn().Err(err).Msg("Failed to reset breaker")
		return
	}
	if !state.OpenedAt.IsZero() {
		b.logger.Info().Msg("Circuit closed")
	}
	breakerPhase.WithLabelValues(b.cfg.Name).Set(float64(Closed))
}
