package cache

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis connects to a local Redis on DB 15 and skips the test
// when none is running.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

// backends returns the backends every manager test runs against.
func backends(t *testing.T) map[string]func(t *testing.T) Backend {
	return map[string]func(t *testing.T) Backend{
		"memory": func(t *testing.T) Backend { return NewMemoryBackend() },
		"redis":  func(t *testing.T) Backend { return NewRedisBackend(setupTestRedis(t)) },
	}
}

func TestNewManager_DefaultTTL(t *testing.T) {
	manager := NewManager(NewMemoryBackend(), 0)
	if manager.TTL() != DefaultTTL {
		t.Errorf("TTL() = %v, want %v", manager.TTL(), DefaultTTL)
	}
	if manager.Layer() != "memory" {
		t.Errorf("Layer() = %q, want memory", manager.Layer())
	}
}

func TestNewManager_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewManager should panic with nil backend")
		}
	}()
	NewManager(nil, time.Minute)
}

func TestNewRedisBackend_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewRedisBackend should panic with nil redis client")
		}
	}()
	NewRedisBackend(nil)
}

func TestManager_SetAndGet(t *testing.T) {
	for name, newBackend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			manager := NewManager(newBackend(t), DefaultTTL)
			ctx := context.Background()

			key := Key{Prefix: "entry", Params: map[string]string{"path": "25"}}
			entry := &Entry{
				Data:       []byte(`{"id":25,"name":"pikachu"}`),
				ETag:       `"abc123"`,
				StatusCode: http.StatusOK,
				Expires:    time.Now().Add(time.Hour),
				CachedAt:   time.Now(),
			}

			if err := manager.Set(ctx, key, entry); err != nil {
				t.Fatalf("Set() error = %v", err)
			}

			got, err := manager.Get(ctx, key)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if string(got.Data) != string(entry.Data) {
				t.Errorf("Data = %s, want %s", got.Data, entry.Data)
			}
			if got.ETag != entry.ETag {
				t.Errorf("ETag = %s, want %s", got.ETag, entry.ETag)
			}
			if got.StatusCode != http.StatusOK {
				t.Errorf("StatusCode = %d, want %d", got.StatusCode, http.StatusOK)
			}
		})
	}
}

func TestManager_Get_CacheMiss(t *testing.T) {
	for name, newBackend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			manager := NewManager(newBackend(t), DefaultTTL)

			_, err := manager.Get(context.Background(), Key{Prefix: "entry", Params: map[string]string{"path": "9999"}})
			if !errors.Is(err, ErrCacheMiss) {
				t.Errorf("Get() error = %v, want ErrCacheMiss", err)
			}
		})
	}
}

func TestManager_Set_ExpiredEntrySkipped(t *testing.T) {
	backend := NewMemoryBackend()
	manager := NewManager(backend, DefaultTTL)

	err := manager.Set(context.Background(), Key{Prefix: "page"}, &Entry{
		Data:    []byte(`{}`),
		Expires: time.Now().Add(-time.Minute),
	})
	if err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if backend.Len() != 0 {
		t.Errorf("backend holds %d items, want 0", backend.Len())
	}
}

func TestManager_Get_ExpiredEntry(t *testing.T) {
	manager := NewManager(NewMemoryBackend(), DefaultTTL)
	ctx := context.Background()
	key := Key{Prefix: "type", Params: map[string]string{"path": "fire"}}

	if err := manager.Set(ctx, key, &Entry{Data: []byte(`{}`), Expires: time.Now().Add(20 * time.Millisecond)}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	time.Sleep(40 * time.Millisecond)

	if _, err := manager.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get() error = %v, want ErrCacheMiss for expired entry", err)
	}
}

func TestManager_SetNegative(t *testing.T) {
	for name, newBackend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			manager := NewManager(newBackend(t), DefaultTTL)
			ctx := context.Background()
			key := Key{Prefix: "entry", Params: map[string]string{"path": "99999"}}

			if err := manager.SetNegative(ctx, key, http.StatusNotFound, NotFoundTTL); err != nil {
				t.Fatalf("SetNegative() error = %v", err)
			}

			got, err := manager.Get(ctx, key)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if !got.Negative {
				t.Error("Negative = false, want true")
			}
			if got.StatusCode != http.StatusNotFound {
				t.Errorf("StatusCode = %d, want %d", got.StatusCode, http.StatusNotFound)
			}
			if ttl := got.TTL(); ttl <= NegativeTTL || ttl > NotFoundTTL {
				t.Errorf("TTL() = %v, want within (%v, %v]", ttl, NegativeTTL, NotFoundTTL)
			}
		})
	}
}

func TestManager_Delete(t *testing.T) {
	for name, newBackend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			manager := NewManager(newBackend(t), DefaultTTL)
			ctx := context.Background()
			key := Key{Prefix: "page", Params: map[string]string{"limit": "100", "offset": "0"}}

			if err := manager.Set(ctx, key, &Entry{Data: []byte(`{}`), Expires: time.Now().Add(time.Hour)}); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			if err := manager.Delete(ctx, key); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if _, err := manager.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
				t.Errorf("Get() after Delete() error = %v, want ErrCacheMiss", err)
			}
		})
	}
}

func TestManager_Refresh(t *testing.T) {
	manager := NewManager(NewMemoryBackend(), DefaultTTL)
	ctx := context.Background()
	key := Key{Prefix: "entry", Params: map[string]string{"path": "1"}}

	if err := manager.Set(ctx, key, &Entry{Data: []byte(`{}`), Expires: time.Now().Add(time.Minute)}); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	newExpires := time.Now().Add(2 * time.Hour)
	if err := manager.Refresh(ctx, key, newExpires); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	got, err := manager.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.TTL() < time.Hour {
		t.Errorf("TTL() = %v, want > 1h after refresh", got.TTL())
	}

	if err := manager.Refresh(ctx, Key{Prefix: "missing"}, newExpires); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Refresh() on missing key error = %v, want ErrCacheMiss", err)
	}
}

func TestManager_Set_NilEntry(t *testing.T) {
	manager := NewManager(NewMemoryBackend(), DefaultTTL)
	if err := manager.Set(context.Background(), Key{Prefix: "page"}, nil); err == nil {
		t.Error("Set() with nil entry should return error")
	}
}

func TestManager_Get_InvalidEntry(t *testing.T) {
	backend := NewMemoryBackend()
	manager := NewManager(backend, DefaultTTL)
	ctx := context.Background()
	key := Key{Prefix: "page"}

	if err := backend.Set(ctx, key.String(), []byte("not json"), time.Minute); err != nil {
		t.Fatalf("backend Set() error = %v", err)
	}
	if _, err := manager.Get(ctx, key); !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("Get() error = %v, want ErrInvalidEntry", err)
	}
}

func TestManager_GetStale(t *testing.T) {
	manager := NewManager(NewMemoryBackend(), time.Hour)
	ctx := context.Background()
	key := Key{Prefix: "pokemon", Params: map[string]string{"path": "7"}}

	err := manager.Set(ctx, key, &Entry{
		Data:       []byte(`{"id":7}`),
		ETag:       `"squirtle"`,
		StatusCode: http.StatusOK,
		Expires:    time.Now().Add(20 * time.Millisecond),
	})
	if err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	time.Sleep(40 * time.Millisecond)

	if _, err := manager.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("Get() error = %v, want ErrCacheMiss", err)
	}

	stale, err := manager.GetStale(ctx, key)
	if err != nil {
		t.Fatalf("GetStale() error = %v", err)
	}
	if stale.ETag != `"squirtle"` {
		t.Errorf("ETag = %s, want \"squirtle\"", stale.ETag)
	}
	if !stale.IsExpired() {
		t.Error("IsExpired() = false, want true")
	}
}
