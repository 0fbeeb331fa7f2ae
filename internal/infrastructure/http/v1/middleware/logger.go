package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"stockflow/pkg/logger"
)

// Logger middleware attaches log to the request context, so services
// logging through logger.FromContext use it, and logs each request with
// timing and status.
func Logger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(logger.WithLogger(c.Request.Context(), log))

		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		status := c.Writer.Status()
		kv := []any{
			"method", c.Request.Method,
			"path", path,
			"route", c.FullPath(),
			"query", query,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
		}
		if scope, ok := GetScope(c); ok {
			kv = append(kv, "business_unit_id", scope.BusinessUnitID.String())
		}
		if len(c.Errors) > 0 {
			kv = append(kv, "error", c.Errors.Last().Error())
		}

		l := log.WithContext(c.Request.Context())
		switch {
		case status >= http.StatusInternalServerError:
			l.Errorw("http request", kv...)
		case status >= http.StatusBadRequest:
			l.Warnw("http request", kv...)
		default:
			l.Infow("http request", kv...)
		}
	}
}
