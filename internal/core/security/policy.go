package security

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	appctx "stockflow/internal/core/context"
)

// PolicyChecker evaluates per-permission CEL expressions. Each expression
// sees the variables roles, permissions (lists of strings), is_admin (bool)
// and permission (string) and must yield a bool, e.g.
//
//	"delivery_note:void": "'warehouse_manager' in roles || is_admin"
//
// Permissions without an expression fall back to the token claims.
type PolicyChecker struct {
	env      *cel.Env
	fallback PermissionChecker

	mu       sync.RWMutex
	programs map[Permission]cel.Program
}

// NewPolicyChecker compiles rules once; a rule that does not compile to a
// bool expression is a configuration error.
func NewPolicyChecker(rules map[string]string, fallback PermissionChecker) (*PolicyChecker, error) {
	env, err := cel.NewEnv(
		cel.Variable("roles", cel.ListType(cel.StringType)),
		cel.Variable("permissions", cel.ListType(cel.StringType)),
		cel.Variable("is_admin", cel.BoolType),
		cel.Variable("permission", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("create cel env: %w", err)
	}
	if fallback == nil {
		fallback = ClaimsChecker{}
	}

	pc := &PolicyChecker{env: env, fallback: fallback, programs: make(map[Permission]cel.Program, len(rules))}
	for perm, expr := range rules {
		if err := pc.compile(Permission(perm), expr); err != nil {
			return nil, err
		}
	}
	return pc, nil
}

func (p *PolicyChecker) compile(perm Permission, expr string) error {
	ast, iss := p.env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return fmt.Errorf("compile policy %s: %w", perm, iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return fmt.Errorf("policy %s must evaluate to bool, got %s", perm, ast.OutputType())
	}
	prg, err := p.env.Program(ast)
	if err != nil {
		return fmt.Errorf("program policy %s: %w", perm, err)
	}

	p.mu.Lock()
	p.programs[perm] = prg
	p.mu.Unlock()
	return nil
}

// Check implements PermissionChecker.
func (p *PolicyChecker) Check(ctx context.Context, user *appctx.UserContext, perm Permission) (Decision, error) {
	if user == nil {
		return Deny("not authenticated"), nil
	}

	p.mu.RLock()
	prg, ok := p.programs[perm]
	p.mu.RUnlock()
	if !ok {
		return p.fallback.Check(ctx, user, perm)
	}

	out, _, err := prg.ContextEval(ctx, map[string]any{
		"roles":       nonNil(user.Roles),
		"permissions": nonNil(user.Permissions),
		"is_admin":    user.IsAdmin,
		"permission":  string(perm),
	})
	if err != nil {
		return Decision{}, fmt.Errorf("evaluate policy %s: %w", perm, err)
	}
	if allowed, _ := out.Value().(bool); allowed {
		return Allow(), nil
	}
	return Deny("policy for " + string(perm) + " denied access"), nil
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
