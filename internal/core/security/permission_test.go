package security

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "stockflow/internal/core/context"
)

func TestClaimsChecker(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		user    *appctx.UserContext
		perm    Permission
		allowed bool
	}{
		{"nil user", nil, PermStockRequestRead, false},
		{"exact", &appctx.UserContext{Permissions: []string{"delivery_note:void"}}, PermDeliveryNoteVoid, true},
		{"resource wildcard", &appctx.UserContext{Permissions: []string{"delivery_note:*"}}, PermDeliveryNoteDispatch, true},
		{"other resource", &appctx.UserContext{Permissions: []string{"pick_list:*"}}, PermDeliveryNoteDispatch, false},
		{"global wildcard", &appctx.UserContext{Permissions: []string{"*"}}, PermStockRead, true},
		{"admin", &appctx.UserContext{IsAdmin: true}, PermDeliveryNoteVoid, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ClaimsChecker{}.Check(ctx, tt.user, tt.perm)
			require.NoError(t, err)
			assert.Equal(t, tt.allowed, d.Allowed)
			if !tt.allowed {
				assert.NotEmpty(t, d.Reason)
			}
		})
	}
}

func TestPolicyChecker(t *testing.T) {
	pc, err := NewPolicyChecker(map[string]string{
		"delivery_note:void": `"warehouse_manager" in roles || is_admin`,
	}, nil)
	require.NoError(t, err)

	ctx := context.Background()

	d, err := pc.Check(ctx, &appctx.UserContext{Roles: []string{"warehouse_manager"}}, PermDeliveryNoteVoid)
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = pc.Check(ctx, &appctx.UserContext{Permissions: []string{"delivery_note:*"}}, PermDeliveryNoteVoid)
	require.NoError(t, err)
	assert.False(t, d.Allowed, "rule overrides claims")

	d, err = pc.Check(ctx, &appctx.UserContext{Permissions: []string{"delivery_note:*"}}, PermDeliveryNoteDispatch)
	require.NoError(t, err)
	assert.True(t, d.Allowed, "no rule falls back to claims")
}

func TestPolicyChecker_RejectsNonBoolRule(t *testing.T) {
	_, err := NewPolicyChecker(map[string]string{"stock:read": `size(roles)`}, nil)
	assert.Error(t, err)
}
