package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/pokedex-catalog/internal/testutil"
	"github.com/Sternrassler/pokedex-catalog/pkg/catalog"
	"github.com/Sternrassler/pokedex-catalog/pkg/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testConfig points the configuration at mock and keeps all state in
// process.
func testConfig(t *testing.T, mock *testutil.MockPokeAPI) *config.Config {
	t.Helper()
	t.Setenv("CATALOG_BASE_URL", mock.URL())
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("LOG_LEVEL", "error")

	cfg, err := config.LoadConfig(t.TempDir())
	require.NoError(t, err)
	return cfg
}

func setupRouter(t *testing.T, entries int) (*gin.Engine, *testutil.MockPokeAPI) {
	t.Helper()
	mock := testutil.NewMockPokeAPI(testutil.GenerateEntries(entries))
	t.Cleanup(mock.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	a, err := newApp(ctx, testConfig(t, mock), false)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	return newRouter(a), mock
}

func doRequest(router *gin.Engine, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeCatalog(t *testing.T, w *httptest.ResponseRecorder) catalogResponse {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp catalogResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	router, _ := setupRouter(t, 10)

	w := doRequest(router, http.MethodGet, "/health")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	router, _ := setupRouter(t, 10)
	decodeCatalog(t, doRequest(router, http.MethodGet, "/catalog"))

	w := doRequest(router, http.MethodGet, "/metrics")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pokedex_requests_total")
}

func TestCatalog_IncrementalPaging(t *testing.T) {
	router, _ := setupRouter(t, 150)

	first := decodeCatalog(t, doRequest(router, http.MethodGet, "/catalog"))
	assert.Equal(t, "incremental", first.Strategy)
	assert.NotEmpty(t, first.Session)
	assert.Equal(t, catalog.PageSize, first.Total)
	assert.True(t, first.HasMore)
	assert.GreaterOrEqual(t, first.RenderCap, 60)
	assert.Len(t, first.Entries, min(first.RenderCap, first.Total))
	assert.Equal(t, 1, first.Entries[0].ID)

	more := decodeCatalog(t, doRequest(router, http.MethodPost, "/catalog/more"))
	assert.Equal(t, "appended", more.Outcome)
	assert.Equal(t, first.Session, more.Session)
	assert.Equal(t, 150, more.Total)
}

func TestCatalog_TypeFilter(t *testing.T) {
	router, _ := setupRouter(t, 60)

	resp := decodeCatalog(t, doRequest(router, http.MethodGet, "/catalog?types=flying"))

	assert.Equal(t, "type-intersection", resp.Strategy)
	assert.False(t, resp.HasMore)
	assert.Equal(t, 20, resp.Total)
	for _, e := range resp.Entries {
		assert.Contains(t, e.Types, "flying", "entry %d", e.ID)
	}
}

func TestCatalog_SortDescending(t *testing.T) {
	router, _ := setupRouter(t, 30)

	resp := decodeCatalog(t, doRequest(router, http.MethodGet, "/catalog?sort=id&dir=desc"))

	require.NotEmpty(t, resp.Entries)
	assert.Equal(t, "range-or-sort", resp.Strategy)
	assert.Equal(t, 30, resp.Entries[0].ID)
}

func TestCatalog_MoreOutsideIncremental(t *testing.T) {
	router, _ := setupRouter(t, 30)
	decodeCatalog(t, doRequest(router, http.MethodGet, "/catalog?types=fire"))

	resp := decodeCatalog(t, doRequest(router, http.MethodPost, "/catalog/more"))

	assert.Equal(t, "skipped", resp.Outcome)
	assert.False(t, resp.HasMore)
}

func TestCatalog_BadRequest(t *testing.T) {
	router, _ := setupRouter(t, 10)

	tests := []struct {
		name   string
		target string
	}{
		{"unknown sort", "/catalog?sort=colour"},
		{"unknown generation", "/catalog?generation=42"},
		{"inverted range", "/catalog?height_min=5&height_max=1"},
		{"non-numeric range", "/catalog?weight_min=heavy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, http.MethodGet, tt.target)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestEntryDetail(t *testing.T) {
	router, _ := setupRouter(t, 10)

	tests := []struct {
		name   string
		target string
		status int
	}{
		{"found", "/catalog/entries/7", http.StatusOK},
		{"not found", "/catalog/entries/99", http.StatusNotFound},
		{"not found again", "/catalog/entries/99", http.StatusNotFound},
		{"invalid id", "/catalog/entries/abc", http.StatusBadRequest},
		{"zero id", "/catalog/entries/0", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, http.MethodGet, tt.target)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.status != http.StatusOK {
				return
			}
			var e catalog.Entry
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
			assert.Equal(t, 7, e.ID)
			assert.Equal(t, "entry-0007", e.Name)
		})
	}
}
