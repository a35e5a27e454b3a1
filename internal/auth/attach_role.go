package auth

import (
	"net/http"

	"github.com/mind-engage/meritscore/internal/account"
	"github.com/mind-engage/meritscore/internal/apperr"
	"github.com/mind-engage/meritscore/internal/rbac"
)

// AttachRoleFromDB replaces the token's role claim with the stored account
// role, so role changes made by a bulk import apply before the token expires.
// Tokens whose account no longer exists are refused.
func AttachRoleFromDB(accounts *account.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			acc, err := accounts.Get(ctx, rbac.SubjectFromContext(ctx))
			switch {
			case err == nil:
				next.ServeHTTP(w, r.WithContext(rbac.WithRole(ctx, acc.Role)))
			case apperr.IsNotFound(err):
				writeUnauthorized(w, "unknown account")
			default:
				http.Error(w, "account lookup failed", http.StatusInternalServerError)
			}
		})
	}
}
