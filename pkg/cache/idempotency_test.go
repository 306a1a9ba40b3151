package cache

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"raffle/internal/shared/constants"

	"github.com/gin-gonic/gin"
)

func TestMemoryService(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := NewMemoryService().(*memoryService)
	svc.now = func() time.Time { return now }

	ok, err := svc.SetNX(ctx, "k", "v1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected first SetNX to win, got %v (%v)", ok, err)
	}
	if ok, _ := svc.SetNX(ctx, "k", "v2", time.Minute); ok {
		t.Fatalf("expected second SetNX to lose")
	}

	var got string
	if err := svc.Get(ctx, "k", &got); err != nil || got != "v1" {
		t.Fatalf("expected v1, got %q (%v)", got, err)
	}

	now = now.Add(time.Minute)
	if svc.Exists(ctx, "k") {
		t.Fatalf("expected key to expire")
	}
	if err := svc.Get(ctx, "k", &got); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}

	svc.Set(ctx, "forever", 1, 0)
	now = now.Add(1000 * time.Hour)
	if !svc.Exists(ctx, "forever") {
		t.Fatalf("expected key without ttl to persist")
	}
	svc.Delete(ctx, "forever")
	if svc.Exists(ctx, "forever") {
		t.Fatalf("expected key to be deleted")
	}
}

func TestMemoryService_SweepsExpiredOnWrite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := NewMemoryService().(*memoryService)
	svc.now = func() time.Time { return now }

	for i := 0; i < 100; i++ {
		svc.SetNX(ctx, constants.IdempotencyKey("POST", "/process_payment", fmt.Sprintf("attempt-%d", i)), "v", 30*time.Second)
	}
	svc.Set(ctx, "forever", 1, 0)

	now = now.Add(2 * time.Minute)
	svc.SetNX(ctx, "fresh", "v", time.Minute)

	svc.mu.Lock()
	n := len(svc.items)
	svc.mu.Unlock()
	if n != 2 {
		t.Fatalf("expected only fresh and forever to remain, got %d items", n)
	}
}

func newIdempotentEngine(t *testing.T, status int, calls *int32) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := NewIdempotencyStore(NewMemoryService(), time.Hour)
	engine := gin.New()
	engine.POST("/process_payment", IdempotencyMiddleware(store), func(c *gin.Context) {
		n := atomic.AddInt32(calls, 1)
		c.JSON(status, gin.H{"status": "approved", "call": n})
	})
	return engine
}

func post(engine *gin.Engine, key string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/process_payment", strings.NewReader(`{}`))
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	engine.ServeHTTP(w, req)
	return w
}

func TestIdempotencyMiddleware(t *testing.T) {
	t.Run("replays stored response", func(t *testing.T) {
		var calls int32
		engine := newIdempotentEngine(t, http.StatusOK, &calls)

		first := post(engine, "abc")
		second := post(engine, "abc")

		if calls != 1 {
			t.Fatalf("expected handler to run once, ran %d times", calls)
		}
		if second.Code != http.StatusOK || second.Body.String() != first.Body.String() {
			t.Fatalf("expected identical replay, got %d %s vs %s", second.Code, second.Body.String(), first.Body.String())
		}
		if second.Header().Get("Idempotent-Replayed") != "true" {
			t.Fatalf("expected replay header")
		}
		if !strings.HasPrefix(second.Header().Get("Content-Type"), "application/json") {
			t.Fatalf("expected json content type, got %q", second.Header().Get("Content-Type"))
		}
	})

	t.Run("different keys run independently", func(t *testing.T) {
		var calls int32
		engine := newIdempotentEngine(t, http.StatusOK, &calls)
		post(engine, "a")
		post(engine, "b")
		post(engine, "")
		post(engine, "")
		if calls != 4 {
			t.Fatalf("expected 4 handler calls, got %d", calls)
		}
	})

	t.Run("server errors are not stored", func(t *testing.T) {
		var calls int32
		engine := newIdempotentEngine(t, http.StatusBadGateway, &calls)
		post(engine, "retry-me")
		post(engine, "retry-me")
		if calls != 2 {
			t.Fatalf("expected retry after 502 to reach the handler, got %d calls", calls)
		}
	})

	t.Run("in flight key is rejected", func(t *testing.T) {
		gin.SetMode(gin.TestMode)
		store := NewIdempotencyStore(NewMemoryService(), time.Hour)
		if _, started, err := store.Begin(context.Background(), constants.IdempotencyKey(http.MethodPost, "/process_payment", "busy")); err != nil || !started {
			t.Fatalf("expected to claim key, got %v (%v)", started, err)
		}

		engine := gin.New()
		engine.POST("/process_payment", IdempotencyMiddleware(store), func(c *gin.Context) {
			t.Fatalf("handler must not run for an in-flight key")
		})
		if w := post(engine, "busy"); w.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", w.Code)
		}
	})
}
