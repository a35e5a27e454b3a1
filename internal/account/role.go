package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mind-engage/meritscore/internal/apperr"
	"github.com/mind-engage/meritscore/internal/db"
	"github.com/mind-engage/meritscore/internal/rbac"
)

// SetRole changes the role of the account named by id or username.
// Demoting the last admin is refused.
func (s *Store) SetRole(ctx context.Context, target, role string) error {
	const op = "account.SetRole"
	role = strings.ToLower(strings.TrimSpace(role))
	if role != rbac.RoleStudent && role != rbac.RoleTeacher && role != rbac.RoleAdmin {
		return apperr.Validation(op, "invalid role %q", role)
	}
	return db.WithTx(ctx, s.db, nil, func(tx *sql.Tx) error {
		var id, cur string
		err := tx.QueryRowContext(ctx, `SELECT id, role FROM users WHERE id=$1 OR username=$1`, target).Scan(&id, &cur)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound(op, "account %q not found", target)
		}
		if err != nil {
			return fmt.Errorf("account: load role: %w", err)
		}
		if cur == rbac.RoleAdmin && role != rbac.RoleAdmin {
			var admins int
			if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE role=$1`, rbac.RoleAdmin).Scan(&admins); err != nil {
				return fmt.Errorf("account: count admins: %w", err)
			}
			if admins <= 1 {
				return apperr.Conflict(op, "cannot demote the last admin")
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE users SET role=$2 WHERE id=$1`, id, role); err != nil {
			return fmt.Errorf("account: update role: %w", err)
		}
		return nil
	})
}
