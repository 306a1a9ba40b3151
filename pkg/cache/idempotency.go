package cache

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"raffle/internal/shared/constants"
	"raffle/internal/shared/utils/response"
	"raffle/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	IdempotencyHeader = "X-Idempotency-Key"

	stateProcessing = "processing"
	stateDone       = "done"
)

// StoredResponse is what a finished request leaves behind for replays
type StoredResponse struct {
	State       string `json:"state"`
	StatusCode  int    `json:"status_code,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

// IdempotencyStore remembers the outcome of requests carrying an idempotency
// key, so a retried checkout replays the first answer instead of reserving
// and charging again.
type IdempotencyStore struct {
	cache Service
	ttl   time.Duration
}

func NewIdempotencyStore(cache Service, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = constants.TTL_IDEMPOTENCY
	}
	return &IdempotencyStore{cache: cache, ttl: ttl}
}

// Begin claims key. When another request already claimed it, the stored
// state is returned and started is false.
func (s *IdempotencyStore) Begin(ctx context.Context, key string) (stored *StoredResponse, started bool, err error) {
	claimed, err := s.cache.SetNX(ctx, key, StoredResponse{State: stateProcessing}, s.ttl)
	if err != nil {
		return nil, false, err
	}
	if claimed {
		return nil, true, nil
	}

	var existing StoredResponse
	if err := s.cache.Get(ctx, key, &existing); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			// expired between the two calls
			return &StoredResponse{State: stateProcessing}, false, nil
		}
		return nil, false, err
	}
	return &existing, false, nil
}

func (s *IdempotencyStore) Complete(ctx context.Context, key string, statusCode int, contentType string, body []byte) error {
	return s.cache.Set(ctx, key, StoredResponse{
		State:       stateDone,
		StatusCode:  statusCode,
		ContentType: contentType,
		Body:        body,
	}, s.ttl)
}

// Abandon forgets key so the client may retry with it
func (s *IdempotencyStore) Abandon(ctx context.Context, key string) error {
	return s.cache.Delete(ctx, key)
}

func (r *StoredResponse) Done() bool {
	return r != nil && r.State == stateDone
}

type bodyRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// IdempotencyMiddleware replays the stored answer for a repeated idempotency
// key. Requests without the header pass through untouched. Server errors are
// not stored, so the client can retry them with the same key.
func IdempotencyMiddleware(store *IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyHeader)
		if key == "" || store == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		scoped := constants.IdempotencyKey(c.Request.Method, c.FullPath(), key)
		log := logger.GetDefault()

		stored, started, err := store.Begin(ctx, scoped)
		if err != nil {
			// fail open; the checkout itself is still consistent
			log.WithError(err).WarnContext(ctx, "Idempotency store unavailable", slog.String("key", key))
			c.Next()
			return
		}

		if !started {
			if stored.Done() {
				c.Header("Idempotent-Replayed", "true")
				c.Data(stored.StatusCode, stored.ContentType, stored.Body)
				c.Abort()
				return
			}
			response.RespondJSON(c, "error", http.StatusConflict, "A request with this idempotency key is still being processed", nil, nil)
			c.Abort()
			return
		}

		rec := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Next()

		// the request may be gone by now; persist with a fresh context
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
		defer cancel()

		if rec.Status() >= http.StatusInternalServerError {
			if err := store.Abandon(saveCtx, scoped); err != nil {
				log.WithError(err).WarnContext(ctx, "Failed to release idempotency key", slog.String("key", key))
			}
			return
		}
		if err := store.Complete(saveCtx, scoped, rec.Status(), rec.Header().Get("Content-Type"), rec.body.Bytes()); err != nil {
			log.WithError(err).WarnContext(ctx, "Failed to store idempotent response", slog.String("key", key))
		}
	}
}
