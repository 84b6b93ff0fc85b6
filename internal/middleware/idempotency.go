package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"

	"storefront-admin/internal/cache"
	"storefront-admin/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// HeaderIdempotencyKey lets clients retry writes safely
const HeaderIdempotencyKey = "Idempotency-Key"

// IdempotencyStore is satisfied by cache.IdempotencyStore
type IdempotencyStore interface {
	Begin(ctx context.Context, key string) (*cache.StoredResponse, error)
	Complete(ctx context.Context, key string, resp cache.StoredResponse) error
	Release(ctx context.Context, key string) error
}

type bodyRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Idempotency replays the stored response when a request repeats an
// Idempotency-Key. Keys are scoped per user and route. Only 2xx responses
// are kept; anything else frees the key for a retry.
func Idempotency(store IdempotencyStore, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > 255 {
			c.AbortWithStatusJSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Idempotency-Key is too long"))
			return
		}

		scoped := UserID(c) + ":" + c.Request.Method + ":" + c.FullPath() + ":" + key
		ctx := c.Request.Context()

		stored, err := store.Begin(ctx, scoped)
		switch {
		case errors.Is(err, cache.ErrKeyInFlight):
			c.AbortWithStatusJSON(http.StatusConflict, response.Error(http.StatusConflict, err.Error()))
			return
		case err != nil:
			log.WithError(err).Warn("idempotency store unavailable, continuing without it")
			c.Next()
			return
		case stored != nil:
			c.Header("Idempotent-Replayed", "true")
			c.Data(stored.Status, "application/json; charset=utf-8", stored.Body)
			c.Abort()
			return
		}

		rec := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Next()

		status := rec.Status()
		if status >= 200 && status < 300 {
			if err := store.Complete(ctx, scoped, cache.StoredResponse{Status: status, Body: rec.body.Bytes()}); err != nil {
				log.WithError(err).Warn("failed to store idempotent response")
			}
			return
		}
		if err := store.Release(ctx, scoped); err != nil {
			log.WithError(err).Warn("failed to release idempotency key")
		}
	}
}
