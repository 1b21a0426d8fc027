package middleware

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/logger"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	// HeaderIdempotencyKey is the optional client key on write routes.
	HeaderIdempotencyKey = "Idempotency-Key"
	// HeaderIdempotentReplay marks a response served from the cache.
	HeaderIdempotentReplay = "Idempotent-Replayed"

	maxIdempotencyKeyLen = 255
	idempotencyLockTTL   = time.Minute
)

// bodyRecorder tees the response body so it can be stored for replay.
type bodyRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *bodyRecorder) WriteString(s string) (int, error) {
	r.body.WriteString(s)
	return r.ResponseWriter.WriteString(s)
}

// Idempotency replays the stored response of a request that carried the
// same Idempotency-Key on the same path. Requests without the header pass
// through. A duplicate that arrives while the first is still running gets
// IDEM_001. Responses with status >= 500 are not stored, so the client may
// retry them.
func Idempotency(cache ports.IdempotencyCache, ttl time.Duration, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientKey := c.GetHeader(HeaderIdempotencyKey)
		if clientKey == "" {
			c.Next()
			return
		}
		if len(clientKey) > maxIdempotencyKeyLen {
			response.Abort(c, apperror.ErrInvalidInput("Idempotency-Key is too long"))
			return
		}

		ctx := c.Request.Context()
		l := logger.FromContext(ctx, log)
		key := domain.BuildIdempotencyKey(c.Request.Method, c.Request.URL.Path, clientKey)

		stored, err := cache.Get(ctx, key)
		if err != nil {
			l.Warn().Err(err).Msg("idempotency lookup failed, processing request without replay")
			c.Next()
			return
		}
		if stored != nil {
			replay(c, stored)
			return
		}

		reserved, err := cache.Reserve(ctx, key, idempotencyLockTTL)
		if err != nil {
			l.Warn().Err(err).Msg("idempotency reserve failed, processing request without replay")
			c.Next()
			return
		}
		if !reserved {
			// The first request may have finished between Get and Reserve.
			if stored, err := cache.Get(ctx, key); err == nil && stored != nil {
				replay(c, stored)
				return
			}
			response.Abort(c, apperror.ErrRequestInProgress())
			return
		}

		bgCtx := context.WithoutCancel(ctx)
		defer func() {
			if err := cache.Release(bgCtx, key); err != nil {
				l.Warn().Err(err).Msg("idempotency release failed")
			}
		}()

		rec := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Next()

		status := rec.Status()
		if status >= http.StatusInternalServerError {
			return
		}
		err = cache.Set(bgCtx, key, &domain.StoredResponse{
			Status:      status,
			ContentType: rec.Header().Get("Content-Type"),
			Body:        rec.body.Bytes(),
		}, ttl)
		if err != nil {
			l.Warn().Err(err).Msg("failed to store idempotent response")
		}
	}
}

func replay(c *gin.Context, stored *domain.StoredResponse) {
	c.Header(HeaderIdempotentReplay, "true")
	c.Data(stored.Status, stored.ContentType, stored.Body)
	c.Abort()
}
