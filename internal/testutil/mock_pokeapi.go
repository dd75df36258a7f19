// Package testutil provides test doubles for the catalog: an in-memory
// catalog.Catalog and a mock PokeAPI HTTP server.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Sternrassler/pokedex-catalog/pkg/catalog"
)

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockPokeAPI is a configurable PokeAPI-shaped server for testing. By
// default it serves the list, pokemon and type endpoints from its entries
// and answers If-None-Match with 304 when the ETag matches.
type MockPokeAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	entries  []catalog.Entry
	byID     map[int]catalog.Entry
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount      int
	ConditionalCount  int
	LastRequestHeader http.Header
	pathCounts        map[string]int
}

// NewMockPokeAPI creates a mock server serving entries.
func NewMockPokeAPI(entries []catalog.Entry) *MockPokeAPI {
	mock := &MockPokeAPI{
		entries:    entries,
		byID:       make(map[int]catalog.Entry, len(entries)),
		handlers:   make(map[string]func(w http.ResponseWriter, r *http.Request)),
		pathCounts: make(map[string]int),
	}
	for _, e := range entries {
		mock.byID[e.ID] = e
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.pathCounts[r.URL.Path]++
		mock.LastRequestHeader = r.Header.Clone()
		if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
			mock.ConditionalCount++
		}
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}
		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL, usable as the client base URL.
func (m *MockPokeAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockPokeAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockPokeAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.ConditionalCount = 0
	m.LastRequestHeader = nil
	m.pathCounts = make(map[string]int)
}

// SetHandler sets a custom handler for a specific path.
func (m *MockPokeAPI) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockPokeAPI) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// SetSequence answers successive requests to path with the given
// responses; the last one repeats.
func (m *MockPokeAPI) SetSequence(path string, responses ...MockResponse) {
	var (
		mu    sync.Mutex
		calls int
	)
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		resp := responses[min(calls, len(responses)-1)]
		calls++
		mu.Unlock()

		if resp.StatusCode == 0 {
			m.defaultHandler(w, r)
			return
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockPokeAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetConditionalCount returns the number of conditional requests.
func (m *MockPokeAPI) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ConditionalCount
}

// GetLastRequestHeader returns the headers of the most recent request.
func (m *MockPokeAPI) GetLastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastRequestHeader
}

// GetPathCount returns the number of requests made to path.
func (m *MockPokeAPI) GetPathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pathCounts[path]
}

// PokemonPath returns the detail path for id.
func PokemonPath(id int) string {
	return fmt.Sprintf("/pokemon/%d/", id)
}

// defaultHandler serves PokeAPI-shaped data from the mock's entries.
func (m *MockPokeAPI) defaultHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	etag := fmt.Sprintf(`"%s?%s"`, r.URL.Path, r.URL.RawQuery)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	body, status := m.route(r)
	if status == http.StatusOK {
		w.Header().Set("ETag", etag)
	}
	w.WriteHeader(status)
	if body != nil {
		w.Write(body)
	}
}

func (m *MockPokeAPI) route(r *http.Request) ([]byte, int) {
	segments := strings.Split(strings.Trim(r.URL.Path, "/"), "/")

	switch {
	case len(segments) == 1 && segments[0] == "pokemon":
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		return m.listBody(limit, offset), http.StatusOK

	case len(segments) == 2 && segments[0] == "pokemon":
		id, err := strconv.Atoi(segments[1])
		m.mu.RLock()
		e, ok := m.byID[id]
		m.mu.RUnlock()
		if err != nil || !ok {
			return []byte("Not Found"), http.StatusNotFound
		}
		return m.pokemonBody(e), http.StatusOK

	case len(segments) == 2 && segments[0] == "type":
		return m.typeBody(segments[1]), http.StatusOK

	default:
		return []byte("Not Found"), http.StatusNotFound
	}
}

type namedResource struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

func (m *MockPokeAPI) resourceURL(kind string, id int) string {
	return fmt.Sprintf("%s/%s/%d/", m.server.URL, kind, id)
}

func (m *MockPokeAPI) listBody(limit, offset int) []byte {
	if limit <= 0 {
		limit = 20
	}
	results := []namedResource{}
	for i := offset; i < len(m.entries) && i < offset+limit; i++ {
		e := m.entries[i]
		results = append(results, namedResource{Name: e.Name, URL: m.resourceURL("pokemon", e.ID)})
	}
	body, _ := json.Marshal(map[string]any{
		"count":   len(m.entries),
		"results": results,
	})
	return body
}

func (m *MockPokeAPI) pokemonBody(e catalog.Entry) []byte {
	types := make([]map[string]any, len(e.Types))
	for i, t := range e.Types {
		types[i] = map[string]any{"slot": i + 1, "type": namedResource{Name: t, URL: m.server.URL + "/type/" + t + "/"}}
	}
	stats := make([]map[string]any, len(e.Stats))
	for i, s := range e.Stats {
		stats[i] = map[string]any{"base_stat": s.BaseStat, "effort": 0, "stat": namedResource{Name: s.Name}}
	}
	body, _ := json.Marshal(map[string]any{
		"id":     e.ID,
		"name":   e.Name,
		"height": e.Height,
		"weight": e.Weight,
		"types":  types,
		"stats":  stats,
	})
	return body
}

func (m *MockPokeAPI) typeBody(tag string) []byte {
	members := []map[string]any{}
	for _, e := range m.entries {
		if e.HasType(tag) {
			members = append(members, map[string]any{
				"slot":    1,
				"pokemon": namedResource{Name: e.Name, URL: m.resourceURL("pokemon", e.ID)},
			})
		}
	}
	body, _ := json.Marshal(map[string]any{"name": tag, "pokemon": members})
	return body
}

// NewHealthyResponse creates a 200 OK JSON response with an ETag.
func NewHealthyResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			"ETag":         `"test-etag-123"`,
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{StatusCode: http.StatusTooManyRequests, Body: `{"error": "Rate limit exceeded"}`}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{StatusCode: http.StatusInternalServerError, Body: `{"error": "Internal server error"}`}
}

// NewNotFoundResponse creates a 404 Not Found response.
func NewNotFoundResponse() MockResponse {
	return MockResponse{StatusCode: http.StatusNotFound, Body: "Not Found"}
}

// NewConditionalHandler creates a handler that responds with 304 for conditional requests.
func NewConditionalHandler(etag string, data string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(data))
	}
}
