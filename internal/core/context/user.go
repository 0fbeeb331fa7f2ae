// Package context carries request-scoped identity and tracing values.
package context

import (
	"context"
	"slices"
)

// UserContext is the authenticated caller as asserted by the access token.
type UserContext struct {
	UserID      string
	CompanyID   string
	Email       string
	Roles       []string
	Permissions []string
	IsAdmin     bool

	// BusinessUnitIDs lists the units the caller may act in;
	// BusinessUnitID is the unit selected at sign-in.
	BusinessUnitID  string
	BusinessUnitIDs []string
}

// HasBusinessUnit reports whether the caller may act in unit.
func (u *UserContext) HasBusinessUnit(unit string) bool {
	if u.BusinessUnitID == unit {
		return true
	}
	return slices.Contains(u.BusinessUnitIDs, unit)
}

type userContextKey struct{}

// WithUser adds UserContext to context.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// GetUser returns UserContext from context.
func GetUser(ctx context.Context) *UserContext {
	if v, ok := ctx.Value(userContextKey{}).(*UserContext); ok {
		return v
	}
	return nil
}

// GetUserID returns user ID from context or empty string.
func GetUserID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return ""
}

// GetCompanyID returns company ID from context or empty string.
func GetCompanyID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.CompanyID
	}
	return ""
}
