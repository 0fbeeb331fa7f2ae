package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stockflow/internal/core/apperror"
	"stockflow/pkg/logger"
)

// ErrorHandler middleware transforms errors into consistent JSON responses.
// Hides internal errors from clients while logging full details.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		// If response already written by handler, do not override it.
		if c.Writer.Written() {
			return
		}

		status, body := render(c, err)

		// Only deterministic rejections are stored for replay; a retry after
		// a 5xx must run again.
		if status < http.StatusInternalServerError {
			failIdempotency(c, status, body)
		}
		c.JSON(status, body)
	}
}

func render(c *gin.Context, err error) (int, gin.H) {
	ctx := c.Request.Context()

	appErr, ok := apperror.AsAppError(err)
	if !ok {
		logger.Error(ctx, "unhandled error", "error", err)
		return http.StatusInternalServerError, gin.H{
			"code":    apperror.CodeInternal,
			"message": "Internal server error",
			"details": map[string]any{"request_id": c.GetString("request_id")},
		}
	}

	if appErr.HTTPStatus >= http.StatusInternalServerError {
		logger.Error(ctx, "request error", "code", appErr.Code, "cause", appErr.Err)
		return appErr.HTTPStatus, gin.H{
			"code":    appErr.Code,
			"message": "Internal server error",
			"details": map[string]any{"request_id": c.GetString("request_id")},
		}
	}

	if appErr.Err != nil {
		logger.Warn(ctx, "request error", "code", appErr.Code, "cause", appErr.Err)
	}
	return appErr.HTTPStatus, gin.H{
		"code":    appErr.Code,
		"message": appErr.Message,
		"details": appErr.Details,
	}
}
