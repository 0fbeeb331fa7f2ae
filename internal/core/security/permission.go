// Package security provides the permission gate consulted before every
// fulfillment endpoint.
package security

import (
	"context"
	"slices"

	appctx "stockflow/internal/core/context"
)

// Permission is a "resource:action" pair.
type Permission string

const (
	PermStockRequestRead    Permission = "stock_request:read"
	PermStockRequestCreate  Permission = "stock_request:create"
	PermStockRequestSubmit  Permission = "stock_request:submit"
	PermStockRequestApprove Permission = "stock_request:approve"
	PermStockRequestCancel  Permission = "stock_request:cancel"

	PermDeliveryNoteRead     Permission = "delivery_note:read"
	PermDeliveryNoteCreate   Permission = "delivery_note:create"
	PermDeliveryNoteUpdate   Permission = "delivery_note:update"
	PermDeliveryNoteDispatch Permission = "delivery_note:dispatch"
	PermDeliveryNoteReceive  Permission = "delivery_note:receive"
	PermDeliveryNoteVoid     Permission = "delivery_note:void"

	PermPickListRead   Permission = "pick_list:read"
	PermPickListManage Permission = "pick_list:manage"

	PermStockRead Permission = "stock:read"
)

// Decision is the outcome of a permission check. Reason is shown to the
// caller when access is denied.
type Decision struct {
	Allowed bool
	Reason  string
}

// Allow and Deny are the two decision constructors.
func Allow() Decision { return Decision{Allowed: true} }

func Deny(reason string) Decision { return Decision{Reason: reason} }

// PermissionChecker is the external permission gate.
type PermissionChecker interface {
	Check(ctx context.Context, user *appctx.UserContext, perm Permission) (Decision, error)
}

// ClaimsChecker grants what the access token lists: the exact permission,
// the resource wildcard ("delivery_note:*"), or "*". Admins pass.
type ClaimsChecker struct{}

func (ClaimsChecker) Check(_ context.Context, user *appctx.UserContext, perm Permission) (Decision, error) {
	if user == nil {
		return Deny("not authenticated"), nil
	}
	if user.IsAdmin || grants(user.Permissions, perm) {
		return Allow(), nil
	}
	return Deny("permission " + string(perm) + " required"), nil
}

func grants(granted []string, perm Permission) bool {
	resource, _ := perm.split()
	return slices.ContainsFunc(granted, func(g string) bool {
		return g == "*" || g == string(perm) || g == resource+":*"
	})
}

func (p Permission) split() (resource, action string) {
	s := string(p)
	for i := 0; i < len(s); i++ {
		if s[i] == ':' {
			return s[:i], s[i+1:]
		}
	}
	return s, ""
}
