package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/pkg/web"
)

// IdempotencyKeyHeader is the optional request header enabling replay.
const IdempotencyKeyHeader = "Idempotency-Key"

const (
	idempotencyPrefix = "idempotency:v1:"
	inProgressMarker  = "__in_progress__"
	cacheTimeout      = 2 * time.Second
	// inProgressTTL bounds how long a crashed request blocks its key.
	inProgressTTL = time.Minute
)

// Idempotency errors.
var (
	ErrRequestInProgress = errors.New("duplicate request currently processing")
	ErrIdempotencyStore  = errors.New("idempotency store failure")
)

type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
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

// Idempotency replays the stored response of a request repeated with the same
// Idempotency-Key by the same user. Requests without the header pass through.
// Responses with status 5xx are not stored so the client may retry.
func Idempotency(cache *redis.Client, ttl time.Duration) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		key := gctx.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			gctx.Next()
			return
		}

		l := zerolog.Ctx(gctx.Request.Context())
		cacheKey := idempotencyPrefix + UserID(gctx) + ":" + key

		ctx, cancel := context.WithTimeout(gctx.Request.Context(), cacheTimeout)
		defer cancel()

		reserved, err := cache.SetNX(ctx, cacheKey, inProgressMarker, markerTTL(ttl)).Result()
		if err != nil {
			l.Error().Err(err).Str("key", key).Msg("idempotency reservation failed")
			gctx.AbortWithStatusJSON(http.StatusInternalServerError, web.Error(ErrIdempotencyStore))

			return
		}

		if !reserved {
			replay(gctx, cache, cacheKey)
			return
		}

		recorder := &bodyRecorder{ResponseWriter: gctx.Writer}
		gctx.Writer = recorder

		completed := false

		defer func() {
			if completed {
				return
			}

			// The handler panicked: release the key before recovery runs.
			delCtx, delCancel := context.WithTimeout(context.Background(), cacheTimeout)
			defer delCancel()

			cache.Del(delCtx, cacheKey)
		}()

		gctx.Next()

		completed = true

		persistCtx, persistCancel := context.WithTimeout(context.Background(), cacheTimeout)
		defer persistCancel()

		status := recorder.Status()
		if status >= http.StatusInternalServerError {
			cache.Del(persistCtx, cacheKey)
			return
		}

		payload, err := json.Marshal(storedResponse{
			Status:      status,
			ContentType: recorder.Header().Get("Content-Type"),
			Body:        recorder.body.Bytes(),
		})
		if err == nil {
			err = cache.Set(persistCtx, cacheKey, payload, ttl).Err()
		}

		if err != nil {
			l.Error().Err(err).Str("key", key).Msg("failed to persist idempotent response")
			cache.Del(persistCtx, cacheKey)
		}
	}
}

func markerTTL(ttl time.Duration) time.Duration {
	if ttl > 0 && ttl < inProgressTTL {
		return ttl
	}

	return inProgressTTL
}

func replay(gctx *gin.Context, cache *redis.Client, cacheKey string) {
	l := zerolog.Ctx(gctx.Request.Context())

	ctx, cancel := context.WithTimeout(gctx.Request.Context(), cacheTimeout)
	defer cancel()

	cached, err := cache.Get(ctx, cacheKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		l.Error().Err(err).Msg("idempotency lookup failed")
		gctx.AbortWithStatusJSON(http.StatusInternalServerError, web.Error(ErrIdempotencyStore))

		return
	}

	if errors.Is(err, redis.Nil) || cached == inProgressMarker {
		gctx.AbortWithStatusJSON(http.StatusConflict, web.Error(ErrRequestInProgress))
		return
	}

	var stored storedResponse
	if err := json.Unmarshal([]byte(cached), &stored); err != nil {
		l.Warn().Err(err).Msg("failed to decode stored idempotent response")
		gctx.AbortWithStatusJSON(http.StatusConflict, web.Error(ErrRequestInProgress))

		return
	}

	gctx.Header("Idempotent-Replayed", "true")
	gctx.Data(stored.Status, stored.ContentType, stored.Body)
	gctx.Abort()
}
