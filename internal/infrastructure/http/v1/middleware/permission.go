// Package middleware provides HTTP middleware for the API.
package middleware

import (
	"github.com/gin-gonic/gin"

	"stockflow/internal/core/apperror"
	appctx "stockflow/internal/core/context"
	"stockflow/internal/core/security"
	"stockflow/pkg/logger"
)

// RequirePermission middleware asks checker whether the caller may perform
// permission. A checker failure is an internal error, never an implicit allow.
func RequirePermission(checker security.PermissionChecker, permission security.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		user := appctx.GetUser(ctx)
		if user == nil {
			abortUnauthorized(c, "authentication required")
			return
		}

		decision, err := checker.Check(ctx, user, permission)
		if err != nil {
			_ = c.Error(apperror.NewInternal(err).WithDetail("component", "permission"))
			c.Abort()
			return
		}

		if !decision.Allowed {
			logger.Info(ctx, "permission denied", "permission", permission, "reason", decision.Reason)
			appErr := apperror.NewForbidden("insufficient permissions").
				WithDetail("required_permission", string(permission))
			if decision.Reason != "" {
				appErr = appErr.WithDetail("reason", decision.Reason)
			}
			_ = c.Error(appErr)
			c.Abort()
			return
		}

		c.Next()
	}
}
