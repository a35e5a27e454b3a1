// Package rbac maps roles to permissions and carries the caller's identity
// through request contexts.
package rbac

import (
	"context"
	"strings"

	"github.com/mind-engage/meritscore/internal/apperr"
)

type Checker struct {
	RolePermissions map[string][]string
}

func NewChecker(rp map[string][]string) *Checker {
	if rp == nil {
		rp = RolePermissions
	}
	return &Checker{RolePermissions: rp}
}

func (c *Checker) Has(role, perm string) bool {
	perms, ok := c.RolePermissions[role]
	if !ok {
		return false
	}
	for _, p := range perms {
		if matchPerm(p, perm) {
			return true
		}
	}
	return false
}

func (c *Checker) Any(role string, perms ...string) bool {
	for _, p := range perms {
		if c.Has(role, p) {
			return true
		}
	}
	return false
}

// Ensure returns an authorization error unless a holds perm.
func (c *Checker) Ensure(a Actor, op, perm string) error {
	if a.ID == "" || !c.Has(a.Role, perm) {
		return apperr.Forbidden(op, "role %q lacks %s", a.Role, perm)
	}
	return nil
}

func matchPerm(pattern, perm string) bool {
	if pattern == "*" || pattern == perm {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(perm, strings.TrimSuffix(pattern, "*"))
	}
	return false
}

// Actor is the authenticated caller of a workflow operation.
type Actor struct {
	ID   string
	Role string
}

// ---- identity in context ----

type ctxKey int

const (
	ctxKeyRole ctxKey = iota
	ctxKeySub
)

func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, ctxKeyRole, role)
}

func RoleFromContext(ctx context.Context) string {
	s, _ := ctx.Value(ctxKeyRole).(string)
	return s
}

func WithSubject(ctx context.Context, sub string) context.Context {
	return context.WithValue(ctx, ctxKeySub, sub)
}

func SubjectFromContext(ctx context.Context) string {
	s, _ := ctx.Value(ctxKeySub).(string)
	return s
}

// ActorFromContext assembles the caller from subject and role.
func ActorFromContext(ctx context.Context) Actor {
	return Actor{ID: SubjectFromContext(ctx), Role: RoleFromContext(ctx)}
}
