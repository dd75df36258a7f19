package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// TTLs.
const (
	// DefaultTTL applies to successful responses without an Expires header.
	DefaultTTL = 24 * time.Hour

	// NotFoundTTL remembers 404 responses.
	NotFoundTTL = 600 * time.Second

	// NegativeTTL remembers other non-retryable failures.
	NegativeTTL = 300 * time.Second
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is invalid or corrupted.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Manager stores Entries in a Backend. Successful responses stay in the
// backend for one extra TTL after they expire so they can be revalidated
// with a conditional request.
type Manager struct {
	backend Backend
	ttl     time.Duration
}

// NewManager creates a manager. A non-positive ttl selects DefaultTTL.
func NewManager(backend Backend, ttl time.Duration) *Manager {
	if backend == nil {
		panic("cache backend cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{backend: backend, ttl: ttl}
}

// TTL returns the default lifetime of successful responses.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Layer names the backend.
func (m *Manager) Layer() string {
	return m.backend.Layer()
}

// Get retrieves an entry. Returns ErrCacheMiss if the key doesn't exist or
// the entry is expired.
func (m *Manager) Get(ctx context.Context, key Key) (*Entry, error) {
	layer := m.backend.Layer()

	data, err := m.backend.Get(ctx, key.String())
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			CacheMisses.WithLabelValues(layer).Inc()
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, err
	}

	entry, err := decode(data)
	if err != nil {
		return nil, err
	}

	if entry.IsExpired() {
		CacheMisses.WithLabelValues(layer).Inc()
		return nil, ErrCacheMiss
	}

	if entry.Negative {
		NegativeHits.Inc()
	}
	CacheHits.WithLabelValues(layer).Inc()
	return entry, nil
}

// GetStale retrieves an entry whether or not it has expired. Only entries
// still inside the revalidation window are found.
func (m *Manager) GetStale(ctx context.Context, key Key) (*Entry, error) {
	data, err := m.backend.Get(ctx, key.String())
	if err != nil {
		return nil, err
	}
	return decode(data)
}

func decode(data []byte) (*Entry, error) {
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	return &entry, nil
}

// Set stores an entry until its Expires time.
func (m *Manager) Set(ctx context.Context, key Key, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("cache entry cannot be nil")
	}

	ttl := entry.TTL()
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	if !entry.Negative && (entry.ETag != "" || !entry.LastModified.IsZero()) {
		ttl += m.ttl
	}

	if err := m.backend.Set(ctx, key.String(), data, ttl); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return err
	}

	CacheSize.WithLabelValues(m.backend.Layer()).Add(float64(len(data)))
	return nil
}

// SetNegative remembers a failed lookup with the given status for ttl.
func (m *Manager) SetNegative(ctx context.Context, key Key, statusCode int, ttl time.Duration) error {
	now := time.Now()
	return m.Set(ctx, key, &Entry{
		StatusCode: statusCode,
		Negative:   true,
		Expires:    now.Add(ttl),
		CachedAt:   now,
	})
}

// Delete removes an entry.
func (m *Manager) Delete(ctx context.Context, key Key) error {
	if err := m.backend.Delete(ctx, key.String()); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return err
	}
	return nil
}

// Refresh extends an existing, possibly expired, entry's lifetime. Used
// after a 304 Not Modified.
func (m *Manager) Refresh(ctx context.Context, key Key, newExpires time.Time) error {
	entry, err := m.GetStale(ctx, key)
	if err != nil {
		return err
	}
	entry.Expires = newExpires
	return m.Set(ctx, key, entry)
}
