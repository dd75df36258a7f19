package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/Sternrassler/pokedex-catalog/pkg/catalog"
)

// Operation names used by MemoryCatalog for error injection and call counting.
const (
	OpFetchPage         = "FetchPage"
	OpFetchTotalCount   = "FetchTotalCount"
	OpFetchEntry        = "FetchEntry"
	OpFetchByGeneration = "FetchByGeneration"
	OpFetchByType       = "FetchByType"
	OpFetchThinList     = "FetchThinList"
)

// MemoryCatalog is an in-memory catalog.Catalog with error injection.
type MemoryCatalog struct {
	mu       sync.Mutex
	entries  []catalog.Entry
	byID     map[int]catalog.Entry
	errs     map[string]error
	failIDs  map[int]bool
	calls    map[string]int
	pageLogs []string
	hook     func(ctx context.Context, op string)
}

// NewMemoryCatalog creates a catalog serving entries in the given order.
func NewMemoryCatalog(entries []catalog.Entry) *MemoryCatalog {
	m := &MemoryCatalog{
		entries: entries,
		byID:    make(map[int]catalog.Entry, len(entries)),
		errs:    make(map[string]error),
		failIDs: make(map[int]bool),
		calls:   make(map[string]int),
	}
	for _, e := range entries {
		m.byID[e.ID] = e
	}
	return m
}

// GenerateEntries builds n full entries with ids 1..n. Types cycle through
// a fixed list with every third entry carrying a second type, and stats,
// height and weight vary with the id.
func GenerateEntries(n int) []catalog.Entry {
	primary := []string{"grass", "fire", "water", "electric", "psychic"}
	entries := make([]catalog.Entry, n)
	for i := range entries {
		id := i + 1
		types := []string{primary[i%len(primary)]}
		if id%3 == 0 {
			types = append(types, "flying")
		}
		stats := make([]catalog.Stat, len(catalog.StatChannels))
		for j, ch := range catalog.StatChannels {
			stats[j] = catalog.Stat{Name: ch, BaseStat: 20 + (id*7+j*13)%130}
		}
		entries[i] = catalog.Entry{
			ID:     id,
			Name:   fmt.Sprintf("entry-%04d", id),
			Types:  types,
			Stats:  stats,
			Height: 1 + id%40,
			Weight: 10 + (id*37)%2000,
		}
	}
	return entries
}

// SetError makes every call of op fail with err. A nil err clears it.
func (m *MemoryCatalog) SetError(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.errs, op)
		return
	}
	m.errs[op] = err
}

// FailEntry makes FetchEntry fail for id.
func (m *MemoryCatalog) FailEntry(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failIDs[id] = true
}

// SetHook registers a function run at the start of every call.
func (m *MemoryCatalog) SetHook(hook func(ctx context.Context, op string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hook = hook
}

// CallCount returns how many times op was called.
func (m *MemoryCatalog) CallCount(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// PageCalls returns "limit@offset" for every FetchPage call in order.
func (m *MemoryCatalog) PageCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.pageLogs...)
}

func (m *MemoryCatalog) begin(ctx context.Context, op string) error {
	m.mu.Lock()
	m.calls[op]++
	hook := m.hook
	err := m.errs[op]
	m.mu.Unlock()

	if hook != nil {
		hook(ctx, op)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// FetchPage implements catalog.PageFetcher.
func (m *MemoryCatalog) FetchPage(ctx context.Context, limit, offset int) ([]catalog.Entry, error) {
	m.mu.Lock()
	m.pageLogs = append(m.pageLogs, fmt.Sprintf("%d@%d", limit, offset))
	m.mu.Unlock()

	if err := m.begin(ctx, OpFetchPage); err != nil {
		return nil, err
	}
	return m.slice(limit, offset), nil
}

func (m *MemoryCatalog) slice(limit, offset int) []catalog.Entry {
	if offset >= len(m.entries) || limit <= 0 {
		return nil
	}
	end := min(offset+limit, len(m.entries))
	return append([]catalog.Entry(nil), m.entries[offset:end]...)
}

// FetchTotalCount implements catalog.PageFetcher.
func (m *MemoryCatalog) FetchTotalCount(ctx context.Context) (int, error) {
	if err := m.begin(ctx, OpFetchTotalCount); err != nil {
		return 0, err
	}
	return len(m.entries), nil
}

// FetchEntry implements catalog.EntryFetcher.
func (m *MemoryCatalog) FetchEntry(ctx context.Context, id int) (catalog.Entry, error) {
	if err := m.begin(ctx, OpFetchEntry); err != nil {
		return catalog.Entry{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.byID[id]
	if !ok || m.failIDs[id] {
		return catalog.Entry{}, fmt.Errorf("entry %d: %w", id, catalog.ErrNotFound)
	}
	return e, nil
}

// FetchByGeneration implements catalog.Catalog.
func (m *MemoryCatalog) FetchByGeneration(ctx context.Context, tag string) ([]catalog.Entry, error) {
	if err := m.begin(ctx, OpFetchByGeneration); err != nil {
		return nil, err
	}
	r, err := catalog.GenerationRange(tag)
	if err != nil {
		return nil, err
	}
	var out []catalog.Entry
	for _, e := range m.entries {
		if e.ID >= r.First && e.ID <= r.Last {
			out = append(out, e)
		}
	}
	return out, nil
}

// FetchByType implements catalog.Catalog.
func (m *MemoryCatalog) FetchByType(ctx context.Context, tag string) ([]catalog.Entry, error) {
	if err := m.begin(ctx, OpFetchByType); err != nil {
		return nil, err
	}
	var out []catalog.Entry
	for _, e := range m.entries {
		if e.HasType(tag) {
			out = append(out, e)
		}
	}
	return out, nil
}

// FetchThinList implements catalog.Catalog.
func (m *MemoryCatalog) FetchThinList(ctx context.Context, limit, offset int) ([]catalog.ThinRef, error) {
	if err := m.begin(ctx, OpFetchThinList); err != nil {
		return nil, err
	}
	page := m.slice(limit, offset)
	refs := make([]catalog.ThinRef, len(page))
	for i, e := range page {
		refs[i] = catalog.ThinRef{ID: e.ID, Name: e.Name, Ref: fmt.Sprintf("/pokemon/%d/", e.ID)}
	}
	return refs, nil
}
