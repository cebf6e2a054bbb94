package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"card-trader/cache"
)

const (
	IdempotencyHeader    = "Idempotency-Key"
	IdempotencyHitHeader = "X-Idempotency-Hit"

	responseKeyPrefix = "idempotency:"
	lockKeyPrefix     = "idempotency-lock:"
)

type IdempotencyConfig struct {
	TTL         time.Duration
	LockTimeout time.Duration
}

type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"contentType"`
	Body        []byte `json:"body"`
}

// bodyRecorder copies everything written to the client so it can be replayed.
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

// Idempotency replays the stored response when a request repeats an
// Idempotency-Key the same user already sent. A key still being processed
// gets 409. Only 2xx responses are stored. Must run after RequireAuth.
func Idempotency(store cache.Store, cfg IdempotencyConfig, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyHeader)
		if key == "" {
			c.Next()
			return
		}

		scope := "anonymous"
		if userID, ok := UserID(c); ok {
			scope = userID.Hex()
		}
		scoped := scope + ":" + c.Request.Method + ":" + c.FullPath() + ":" + key
		responseKey := responseKeyPrefix + scoped
		lockKey := lockKeyPrefix + scoped
		entry := log.WithField("idempotencyKey", key)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		if replayed, err := replay(ctx, c, store, responseKey, entry); err != nil {
			entry.WithError(err).Error("Idempotency.Lookup.Error")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		} else if replayed {
			return
		}

		token := []byte(uuid.NewString())
		acquired, err := store.SetNX(ctx, lockKey, token, cfg.LockTimeout)
		if err != nil {
			entry.WithError(err).Error("Idempotency.Lock.Error")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
		if !acquired {
			entry.Info("Idempotency.Concurrent")
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "a request with this idempotency key is currently being processed"})
			return
		}
		defer func() {
			released, err := store.DeleteIfValue(context.Background(), lockKey, token)
			if err != nil {
				entry.WithError(err).Warn("Idempotency.Unlock.Error")
			} else if !released {
				entry.Warn("Idempotency.Unlock.Expired")
			}
		}()

		// the previous holder may have stored its response between our
		// lookup and the lock
		if replayed, err := replay(ctx, c, store, responseKey, entry); err != nil {
			entry.WithError(err).Error("Idempotency.Lookup.Error")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		} else if replayed {
			return
		}

		recorder := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = recorder
		c.Next()

		status := recorder.Status()
		if status < 200 || status >= 300 {
			return
		}
		raw, err := json.Marshal(cachedResponse{
			Status:      status,
			ContentType: recorder.Header().Get("Content-Type"),
			Body:        recorder.body.Bytes(),
		})
		if err == nil {
			err = store.Set(context.Background(), responseKey, raw, cfg.TTL)
		}
		if err != nil {
			entry.WithError(err).Warn("Idempotency.Store.Error")
		}
	}
}

// replay writes the response stored under key, if any, and aborts the chain.
func replay(ctx context.Context, c *gin.Context, store cache.Store, key string, entry logrus.FieldLogger) (bool, error) {
	raw, err := store.Get(ctx, key)
	if errors.Is(err, cache.ErrMiss) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	var cached cachedResponse
	if err := json.Unmarshal(raw, &cached); err != nil {
		entry.Warn("Idempotency.CorruptEntry")
		return false, nil
	}
	entry.Debug("Idempotency.Hit")
	c.Header(IdempotencyHitHeader, "true")
	c.Data(cached.Status, cached.ContentType, cached.Body)
	c.Abort()
	return true, nil
}
