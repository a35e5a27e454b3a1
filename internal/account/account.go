// Package account stores student, teacher and admin accounts.
package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/meritscore/internal/apperr"
	"github.com/mind-engage/meritscore/internal/db"
	"github.com/mind-engage/meritscore/internal/rbac"
)

const defaultHashCost = 12

// Account is a user row without its password hash.
type Account struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Name          string `json:"name"`
	Role          string `json:"role"`
	StudentNumber string `json:"student_number,omitempty"`
	ClassName     string `json:"class_name,omitempty"`
	College       string `json:"college,omitempty"`
	Grade         string `json:"grade,omitempty"`
	CreatedAt     int64  `json:"created_at"`
}

// Ref is the short form used in conflict reports.
func (a Account) Ref() apperr.StudentRef {
	return apperr.StudentRef{StudentNumber: a.StudentNumber, Name: a.Name}
}

// Filter narrows student listings. Empty fields match everything.
type Filter struct {
	College   string
	Grade     string
	ClassName string
}

type Store struct {
	db   *sql.DB
	cost int
}

type Option func(*Store)

// WithHashCost overrides the bcrypt cost used for new passwords.
func WithHashCost(cost int) Option { return func(s *Store) { s.cost = cost } }

func NewStore(h *sql.DB, opts ...Option) *Store {
	s := &Store{db: h, cost: defaultHashCost}
	for _, o := range opts {
		o(s)
	}
	return s
}

const accountCols = `id,username,name,role,COALESCE(student_number,''),class_name,college,grade,created_at`

func scanAccount(row interface{ Scan(...any) error }) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Username, &a.Name, &a.Role, &a.StudentNumber, &a.ClassName, &a.College, &a.Grade, &a.CreatedAt)
	return a, err
}

// Get loads an account by id.
func (s *Store) Get(ctx context.Context, id string) (Account, error) {
	return GetOn(ctx, s.db, id)
}

// GetOn loads an account by id through q.
func GetOn(ctx context.Context, q db.Querier, id string) (Account, error) {
	a, err := scanAccount(q.QueryRowContext(ctx, `SELECT `+accountCols+` FROM users WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, apperr.NotFound("account.Get", "account %q not found", id)
	}
	if err != nil {
		return Account{}, fmt.Errorf("account: get: %w", err)
	}
	return a, nil
}

// ResolveStudent finds a student account by student number. ok is false when
// no student holds that number.
func ResolveStudent(ctx context.Context, q db.Querier, number string) (Account, bool, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return Account{}, false, nil
	}
	a, err := scanAccount(q.QueryRowContext(ctx,
		`SELECT `+accountCols+` FROM users WHERE student_number=$1 AND role=$2`, number, rbac.RoleStudent))
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, false, nil
	}
	if err != nil {
		return Account{}, false, fmt.Errorf("account: resolve student: %w", err)
	}
	return a, true, nil
}

// ListStudents returns students ordered by student number.
func (s *Store) ListStudents(ctx context.Context, f Filter) ([]Account, error) {
	q := `SELECT ` + accountCols + ` FROM users WHERE role=$1`
	args := []any{rbac.RoleStudent}
	add := func(col, v string) {
		if v == "" {
			return
		}
		args = append(args, v)
		q += fmt.Sprintf(" AND %s=$%d", col, len(args))
	}
	add("college", f.College)
	add("grade", f.Grade)
	add("class_name", f.ClassName)
	q += ` ORDER BY student_number, id`
	return s.list(ctx, q, args...)
}

// List returns all accounts, optionally by role, ordered by username.
func (s *Store) List(ctx context.Context, role string) ([]Account, error) {
	if role == "" {
		return s.list(ctx, `SELECT `+accountCols+` FROM users ORDER BY username`)
	}
	return s.list(ctx, `SELECT `+accountCols+` FROM users WHERE role=$1 ORDER BY username`, role)
}

// FilterValues returns the distinct non-empty colleges, grades and classes of students.
func (s *Store) FilterValues(ctx context.Context) (colleges, grades, classes []string, err error) {
	distinct := func(col string) ([]string, error) {
		rows, err := s.db.QueryContext(ctx,
			`SELECT DISTINCT `+col+` FROM users WHERE role=$1 AND `+col+`<>'' ORDER BY `+col, rbac.RoleStudent)
		if err != nil {
			return nil, fmt.Errorf("account: distinct %s: %w", col, err)
		}
		defer rows.Close()
		out := []string{}
		for rows.Next() {
			var v string
			if err := rows.Scan(&v); err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, rows.Err()
	}
	if colleges, err = distinct("college"); err != nil {
		return
	}
	if grades, err = distinct("grade"); err != nil {
		return
	}
	classes, err = distinct("class_name")
	return
}

// CountByRole counts accounts holding role.
func (s *Store) CountByRole(ctx context.Context, role string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role=$1`, role).Scan(&n); err != nil {
		return 0, fmt.Errorf("account: count: %w", err)
	}
	return n, nil
}

func (s *Store) list(ctx context.Context, q string, args ...any) ([]Account, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("account: list: %w", err)
	}
	defer rows.Close()
	out := []Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("account: scan: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Authenticate checks username and password and returns the account.
func (s *Store) Authenticate(ctx context.Context, username, password string) (Account, error) {
	const op = "account.Authenticate"
	var hash string
	row := s.db.QueryRowContext(ctx, `SELECT `+accountCols+`,password_hash FROM users WHERE username=$1`, username)
	var a Account
	err := row.Scan(&a.ID, &a.Username, &a.Name, &a.Role, &a.StudentNumber, &a.ClassName, &a.College, &a.Grade, &a.CreatedAt, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, apperr.Forbidden(op, "invalid credentials")
	}
	if err != nil {
		return Account{}, fmt.Errorf("account: authenticate: %w", err)
	}
	if hash == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return Account{}, apperr.Forbidden(op, "invalid credentials")
	}
	return a, nil
}

// ChangePassword replaces the password after checking the old one.
func (s *Store) ChangePassword(ctx context.Context, id, oldPassword, newPassword string) error {
	const op = "account.ChangePassword"
	if newPassword == "" {
		return apperr.Validation(op, "new password required")
	}
	var stored string
	err := s.db.QueryRowContext(ctx, `SELECT password_hash FROM users WHERE id=$1`, id).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound(op, "account %q not found", id)
	}
	if err != nil {
		return fmt.Errorf("account: load hash: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(stored), []byte(oldPassword)) != nil {
		return apperr.Forbidden(op, "incorrect old password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.cost)
	if err != nil {
		return fmt.Errorf("account: hash: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash=$1 WHERE id=$2`, string(hash), id); err != nil {
		return fmt.Errorf("account: update hash: %w", err)
	}
	return nil
}

// Resolve is ResolveStudent on the store's own handle.
func (s *Store) Resolve(ctx context.Context, number string) (Account, bool, error) {
	return ResolveStudent(ctx, s.db, number)
}
