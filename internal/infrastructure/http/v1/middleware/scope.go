package middleware

import (
	"github.com/gin-gonic/gin"

	"stockflow/internal/core/apperror"
	appctx "stockflow/internal/core/context"
	"stockflow/internal/core/id"
	"stockflow/internal/core/tenant"
)

// HeaderBusinessUnit selects one of the caller's business units for the
// request. Without it the unit chosen at sign-in applies.
const HeaderBusinessUnit = "X-Business-Unit-ID"

const scopeKey = "tenant_scope"

// Scope resolves the tenant.Scope of the authenticated caller. It must run
// after Auth.
func Scope() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := appctx.GetUser(c.Request.Context())
		if user == nil {
			abortUnauthorized(c, "authentication required")
			return
		}

		companyID, err := id.Parse(user.CompanyID)
		if err != nil || id.IsNil(companyID) {
			abortUnauthorized(c, "token carries no valid company")
			return
		}

		unit := user.BusinessUnitID
		if requested := c.GetHeader(HeaderBusinessUnit); requested != "" {
			if !user.HasBusinessUnit(requested) {
				_ = c.Error(apperror.NewForbidden("business unit not assigned to user").
					WithDetail("businessUnitId", requested))
				c.Abort()
				return
			}
			unit = requested
		}

		unitID, err := id.Parse(unit)
		if err != nil || id.IsNil(unitID) {
			_ = c.Error(apperror.NewValidation("a business unit is required").
				WithDetail("header", HeaderBusinessUnit))
			c.Abort()
			return
		}

		scope := tenant.Scope{CompanyID: companyID, BusinessUnitID: unitID, UserID: user.UserID}
		c.Set(scopeKey, scope)
		c.Next()
	}
}

// GetScope returns the scope resolved by Scope.
func GetScope(c *gin.Context) (tenant.Scope, bool) {
	v, ok := c.Get(scopeKey)
	if !ok {
		return tenant.Scope{}, false
	}
	scope, ok := v.(tenant.Scope)
	return scope, ok
}
