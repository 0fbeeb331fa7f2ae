package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"stockflow/internal/core/apperror"
	"stockflow/internal/infrastructure/storage/postgres"
	"stockflow/pkg/logger"
)

const HeaderIdempotencyKey = "X-Idempotency-Key"

const (
	maxIdempotencyBodyBytes = 1 << 20 // 1 MiB
	maxIdempotencyKeyLength = 255
	idempotencyKey          = "idempotency"
)

// IdempotencyStore persists keyed requests and their responses.
type IdempotencyStore interface {
	Acquire(ctx context.Context, claim postgres.IdempotencyClaim) (*postgres.IdempotencyReplay, error)
	Complete(ctx context.Context, companyID, key string, statusCode int, contentType string, response any) error
	Fail(ctx context.Context, companyID, key string, statusCode int, contentType string, response any) error
}

type idempotencyHandle struct {
	store     IdempotencyStore
	companyID string
	key       string
}

// Idempotency middleware replays the stored response of a POST or PATCH
// that carries a known X-Idempotency-Key. It must run after Scope.
func Idempotency(store IdempotencyStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost && c.Request.Method != http.MethodPatch {
			c.Next()
			return
		}

		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLength {
			_ = c.Error(apperror.NewValidation("idempotency key too long").
				WithDetail("max_length", maxIdempotencyKeyLength))
			c.Abort()
			return
		}

		scope, ok := GetScope(c)
		if !ok {
			abortUnauthorized(c, "authentication required")
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxIdempotencyBodyBytes+1))
		if err != nil {
			_ = c.Error(apperror.NewValidation("cannot read request body"))
			c.Abort()
			return
		}
		if len(body) > maxIdempotencyBodyBytes {
			appErr := apperror.NewValidation("request body too large for idempotency")
			appErr.HTTPStatus = http.StatusRequestEntityTooLarge
			_ = c.Error(appErr.WithDetail("max_bytes", maxIdempotencyBodyBytes))
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		claim := postgres.IdempotencyClaim{
			CompanyID:   scope.CompanyID.String(),
			Key:         key,
			UserID:      scope.UserID,
			Operation:   c.Request.Method + " " + c.FullPath() + " " + c.Param("id"),
			Fingerprint: postgres.RequestFingerprint(body),
		}

		replay, err := store.Acquire(c.Request.Context(), claim)
		if err != nil {
			if appErr, ok := apperror.AsAppError(err); ok {
				_ = c.Error(appErr)
			} else {
				_ = c.Error(apperror.NewInternal(err).WithDetail("component", "idempotency"))
			}
			c.Abort()
			return
		}

		if replay != nil {
			logger.Info(c.Request.Context(), "idempotent replay", "key", key, "status", replay.StatusCode)
			c.Header("Idempotent-Replayed", "true")
			if replay.StatusCode == http.StatusNoContent {
				c.Status(http.StatusNoContent)
			} else {
				c.Data(replay.StatusCode, replay.ContentType, replay.Body)
			}
			c.Abort()
			return
		}

		c.Set(idempotencyKey, &idempotencyHandle{store: store, companyID: claim.CompanyID, key: key})
		c.Next()
	}
}

// CompleteIdempotency stores the successful response of a keyed request so
// that retries replay it. Requests without a key are ignored.
func CompleteIdempotency(c *gin.Context, statusCode int, contentType string, response any) {
	h := idempotencyFrom(c)
	if h == nil {
		return
	}
	if err := h.store.Complete(c.Request.Context(), h.companyID, h.key, statusCode, contentType, response); err != nil {
		logger.Warn(c.Request.Context(), "complete idempotency key", "key", h.key, "error", err)
	}
}

func failIdempotency(c *gin.Context, statusCode int, response any) {
	h := idempotencyFrom(c)
	if h == nil {
		return
	}
	if err := h.store.Fail(c.Request.Context(), h.companyID, h.key, statusCode, "application/json", response); err != nil {
		logger.Warn(c.Request.Context(), "fail idempotency key", "key", h.key, "error", err)
	}
}

func idempotencyFrom(c *gin.Context) *idempotencyHandle {
	v, ok := c.Get(idempotencyKey)
	if !ok {
		return nil
	}
	h, _ := v.(*idempotencyHandle)
	return h
}
