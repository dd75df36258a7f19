// Package client implements the catalog data source against a
// PokeAPI-shaped REST API, with response caching, a circuit breaker and
// retries by error class.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/Sternrassler/pokedex-catalog/pkg/breaker"
	"github.com/Sternrassler/pokedex-catalog/pkg/cache"
	"github.com/Sternrassler/pokedex-catalog/pkg/catalog"
	"github.com/Sternrassler/pokedex-catalog/pkg/logging"
	"github.com/Sternrassler/pokedex-catalog/pkg/pagination"
	"github.com/Sternrassler/pokedex-catalog/pkg/retry"
)

// Prometheus metrics for catalog API requests.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pokedex_requests_total",
		Help: "Total catalog API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pokedex_request_duration_seconds",
		Help:    "Catalog API request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pokedex_errors_total",
		Help: "Total catalog API errors by class",
	}, []string{"class"})

	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pokedex_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pokedex_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"error_class"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pokedex_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// ErrorClass represents a classification of HTTP errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors other than 429.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 Too Many Requests.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// Config holds the client configuration.
type Config struct {
	// BaseURL is the API root, e.g. https://pokeapi.co/api/v2.
	BaseURL string

	// UserAgent is sent with every request.
	UserAgent string

	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration

	// MaxConcurrency bounds parallel per-entry fetches.
	MaxConcurrency int

	// CacheTTL is the lifetime of successful responses without an Expires header.
	CacheTTL time.Duration

	// Redis backs the response cache and breaker state. Nil keeps both in process.
	Redis *redis.Client

	// MaxRetries per request for retryable error classes.
	MaxRetries int

	// Breaker configures the circuit breaker.
	Breaker breaker.Config

	// Sleep waits between retries. Nil selects retry.Sleep.
	Sleep retry.Sleeper
}

// DefaultConfig returns a default configuration for the public PokeAPI.
func DefaultConfig() Config {
	return Config{
		BaseURL:        "https://pokeapi.co/api/v2",
		UserAgent:      "pokedex-catalog/1.0",
		Timeout:        15 * time.Second,
		MaxConcurrency: 10,
		CacheTTL:       cache.DefaultTTL,
		MaxRetries:     3,
		Breaker:        breaker.DefaultConfig(),
	}
}

// Client is the catalog API client. It implements catalog.Catalog.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	cache      *cache.Manager
	breaker    *breaker.Breaker
	flight     singleflight.Group
	config     Config
	logger     zerolog.Logger
}

var _ catalog.Catalog = (*Client)(nil)

// New creates a new catalog client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	baseURL, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.MaxConcurrency < 1 {
		return nil, fmt.Errorf("max_concurrency must be >= 1 (got %d)", cfg.MaxConcurrency)
	}

	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("max_retries must be >= 0 (got %d)", cfg.MaxRetries)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.Sleep == nil {
		cfg.Sleep = retry.Sleep
	}
	if cfg.Breaker.Name == "" {
		cfg.Breaker.Name = breaker.DefaultConfig().Name
	}

	logger := logging.NewLogger("catalog-client")

	var (
		backend cache.Backend
		store   breaker.Store
	)
	if cfg.Redis != nil {
		backend = cache.NewRedisBackend(cfg.Redis)
		store = breaker.NewRedisStore(cfg.Redis, cfg.Breaker.Name, 0)
	} else {
		backend = cache.NewMemoryBackend()
		store = breaker.NewMemoryStore()
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: baseURL,
		cache:   cache.NewManager(backend, cfg.CacheTTL),
		breaker: breaker.New(store, cfg.Breaker, logger),
		config:  cfg,
		logger:  logger,
	}, nil
}

// Do performs a GET request through the breaker, cache and retry layers.
// Non-2xx responses are returned as *CatalogError; a 404 wraps
// catalog.ErrNotFound. Failed lookups are remembered for a while.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	cacheKey := cache.KeyForURL(req.URL, c.baseURL.Path)
	endpoint := cacheKey.Prefix

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Fresh cache entries, including remembered failures, skip the network.
	if entry, err := c.cache.Get(ctx, cacheKey); err == nil {
		if entry.Negative {
			c.logger.Debug().Str("endpoint", req.URL.Path).Int("status_code", entry.StatusCode).Msg("Negative cache hit")
			return nil, statusError(entry.StatusCode, "cached failure")
		}
		c.logger.Debug().Str("endpoint", req.URL.Path).Dur("ttl", entry.TTL()).Msg("Cache hit")
		requestsTotal.WithLabelValues(endpoint, "cache").Inc()
		return cache.EntryToResponse(entry), nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		c.logger.Warn().Err(err).Str("endpoint", req.URL.Path).Msg("Cache get error")
	}

	if err := c.breaker.Allow(ctx); err != nil {
		requestsTotal.WithLabelValues(endpoint, "breaker_open").Inc()
		return nil, err
	}

	stale, _ := c.cache.GetStale(ctx, cacheKey)
	if cache.ShouldMakeConditionalRequest(stale) {
		cache.AddConditionalHeaders(req, stale)
		cache.ConditionalRequestsSent.Inc()
		c.logger.Debug().
			Str("endpoint", req.URL.Path).
			Str("etag", stale.ETag).
			Msg("Making conditional request")
	}

	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	var (
		resp      *http.Response
		lastClass ErrorClass
	)
	policy := classPolicy(c.config.MaxRetries, retryJitter, &lastClass)

	err := retry.Do(ctx, policy, func(ctx context.Context) error {
		var reqErr error
		resp, reqErr = c.httpClient.Do(req)
		if reqErr != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastClass = ErrorClassNetwork
			errorsTotal.WithLabelValues(string(lastClass)).Inc()
			requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			return &CatalogError{ErrorClass: ErrorClassNetwork, Message: "request failed", Err: reqErr}
		}

		if resp.StatusCode < 400 {
			requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
			return nil
		}

		resp.Body.Close()
		lastClass = classifyStatus(resp.StatusCode)
		errorsTotal.WithLabelValues(string(lastClass)).Inc()
		requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
		c.logger.Warn().
			Str("endpoint", req.URL.Path).
			Int("status_code", resp.StatusCode).
			Str("error_class", string(lastClass)).
			Msg("Catalog request error")
		return statusError(resp.StatusCode, resp.Status)
	},
		retry.RetryIf(retryable),
		retry.WithSleeper(c.config.Sleep),
		retry.OnRetry(func(n int, delay time.Duration, err error) {
			retriesTotal.WithLabelValues(string(lastClass)).Inc()
			retryBackoffSeconds.WithLabelValues(string(lastClass)).Observe(delay.Seconds())
			c.logger.Warn().
				Str("endpoint", req.URL.Path).
				Int("attempt", n).
				Dur("delay", delay).
				Str("error_class", string(lastClass)).
				Msg("Retrying catalog request")
		}),
	)
	if err != nil {
		return nil, c.handleFailure(ctx, cacheKey, lastClass, err)
	}

	c.breaker.RecordSuccess(ctx)

	if resp.StatusCode == http.StatusNotModified {
		resp.Body.Close()
		cache.NotModifiedResponses.Inc()
		c.logger.Debug().Str("endpoint", req.URL.Path).Msg("304 Not Modified - using cache")
		if stale == nil {
			return nil, &CatalogError{StatusCode: http.StatusNotModified, ErrorClass: ErrorClassServer, Message: "304 without cached entry"}
		}
		if err := c.cache.Refresh(ctx, cacheKey, time.Now().Add(c.cache.TTL())); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to refresh cache entry")
		}
		stale.StatusCode = http.StatusOK
		return cache.EntryToResponse(stale), nil
	}

	if resp.StatusCode == http.StatusOK {
		entry, err := cache.ResponseToEntry(resp, c.cache.TTL())
		if err != nil {
			c.logger.Warn().Err(err).Msg("Failed to create cache entry")
		} else if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache response")
		}
	}

	return resp, nil
}

// handleFailure feeds the breaker and the negative cache.
func (c *Client) handleFailure(ctx context.Context, key cache.Key, class ErrorClass, err error) error {
	if ctx.Err() != nil || errors.Is(err, retry.ErrCancelled) {
		return err
	}

	var ce *CatalogError
	if class == ErrorClassClient && errors.As(err, &ce) {
		// A definitive answer from a healthy server.
		c.breaker.RecordSuccess(ctx)
		ttl := cache.NegativeTTL
		if ce.StatusCode == http.StatusNotFound {
			ttl = cache.NotFoundTTL
		}
		if err := c.cache.SetNegative(ctx, key, ce.StatusCode, ttl); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to store negative cache entry")
		}
		return err
	}

	c.breaker.RecordFailure(ctx)
	if errors.Is(err, retry.ErrExhausted) {
		retryExhaustedTotal.WithLabelValues(string(class)).Inc()
		c.logger.Error().
			Err(err).
			Str("error_class", string(class)).
			Int("max_retries", c.config.MaxRetries).
			Msg("Retry attempts exhausted")
	}
	return err
}

// classifyStatus maps an HTTP error status to its class.
func classifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 400 && status < 500:
		return ErrorClassClient
	default:
		return ErrorClassServer
	}
}

// statusError builds the error for a failed status.
func statusError(status int, message string) *CatalogError {
	ce := &CatalogError{
		StatusCode: status,
		ErrorClass: classifyStatus(status),
		Message:    message,
	}
	if status == http.StatusNotFound {
		ce.Err = catalog.ErrNotFound
	}
	return ce
}

// Get performs a GET request for a path below the base URL and returns the
// body. Concurrent identical requests share one round trip.
func (c *Client) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	u := *c.baseURL
	u.Path = c.baseURL.Path + "/" + strings.TrimLeft(path, "/")
	u.RawQuery = query.Encode()
	target := u.String()

	v, err, shared := c.flight.Do(target, func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		resp, err := c.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response body: %w", err)
		}
		return body, nil
	})
	if shared {
		c.logger.Debug().Str("endpoint", path).Msg("Shared in-flight request")
	}
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Close releases resources. The Redis client is owned by the caller.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// Cache returns the response cache.
func (c *Client) Cache() *cache.Manager {
	return c.cache
}

// Breaker returns the circuit breaker.
func (c *Client) Breaker() *breaker.Breaker {
	return c.breaker
}

// batchConfig is the per-id fetch configuration derived from the client's.
func (c *Client) batchConfig() pagination.BatchConfig {
	return pagination.BatchConfig{
		MaxConcurrency: c.config.MaxConcurrency,
		Timeout:        c.config.Timeout,
	}
}
