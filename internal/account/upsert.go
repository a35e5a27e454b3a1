package account

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/meritscore/internal/apperr"
	"github.com/mind-engage/meritscore/internal/db"
	"github.com/mind-engage/meritscore/internal/rbac"
)

// Row is one account in a bulk import.
type Row struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Name          string `json:"name"`
	Role          string `json:"role"`
	StudentNumber string `json:"student_number"`
	ClassName     string `json:"class_name"`
	College       string `json:"college"`
	Grade         string `json:"grade"`
	Password      string `json:"password,omitempty"`
}

// ParseCSV reads rows with a header line. username is required; the other
// columns are optional.
func ParseCSV(r io.Reader) ([]Row, error) {
	const op = "account.ParseCSV"
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	hdr, err := cr.Read()
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrValidation, op, "cannot read header", err)
	}
	idx := map[string]int{}
	for i, h := range hdr {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	if _, ok := idx["username"]; !ok {
		return nil, apperr.Validation(op, "missing column: username")
	}
	get := func(rec []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}
	var rows []Row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperr.Wrap(apperr.ErrValidation, op, "bad csv", err)
		}
		rows = append(rows, Row{
			ID:            get(rec, "id"),
			Username:      get(rec, "username"),
			Name:          get(rec, "name"),
			Role:          strings.ToLower(get(rec, "role")),
			StudentNumber: get(rec, "student_number"),
			ClassName:     get(rec, "class_name"),
			College:       get(rec, "college"),
			Grade:         get(rec, "grade"),
			Password:      get(rec, "password"),
		})
	}
	return rows, nil
}

// BulkUpsert inserts new accounts and updates existing ones (matched by id or
// username) in one transaction. New accounts need a password.
func (s *Store) BulkUpsert(ctx context.Context, rows []Row) (inserted, updated int, err error) {
	const op = "account.BulkUpsert"
	err = db.WithTx(ctx, s.db, nil, func(tx *sql.Tx) error {
		now := time.Now().Unix()
		for i, r := range rows {
			if r.Username == "" {
				return apperr.Validation(op, "row %d: username required", i+1)
			}
			if r.Role == "" {
				r.Role = rbac.RoleStudent
			}
			if r.Role != rbac.RoleStudent && r.Role != rbac.RoleTeacher && r.Role != rbac.RoleAdmin {
				return apperr.Validation(op, "row %d: invalid role %q", i+1, r.Role)
			}
			var phash string
			if r.Password != "" {
				b, e := bcrypt.GenerateFromPassword([]byte(r.Password), s.cost)
				if e != nil {
					return fmt.Errorf("account: hash: %w", e)
				}
				phash = string(b)
			}
			var number any
			if r.StudentNumber != "" {
				number = r.StudentNumber
			}

			var existing string
			e := tx.QueryRowContext(ctx, `SELECT id FROM users WHERE id=$1 OR username=$2`, r.ID, r.Username).Scan(&existing)
			switch {
			case e == nil:
				q := `UPDATE users SET username=$1, name=$2, role=$3, student_number=$4, class_name=$5, college=$6, grade=$7 WHERE id=$8`
				args := []any{r.Username, r.Name, r.Role, number, r.ClassName, r.College, r.Grade, existing}
				if phash != "" {
					q = `UPDATE users SET username=$1, name=$2, role=$3, student_number=$4, class_name=$5, college=$6, grade=$7, password_hash=$9 WHERE id=$8`
					args = append(args, phash)
				}
				if _, e := tx.ExecContext(ctx, q, args...); e != nil {
					return s.upsertErr(op, i, e)
				}
				updated++
			case errors.Is(e, sql.ErrNoRows):
				if phash == "" {
					return apperr.Validation(op, "row %d: password required for new user %s", i+1, r.Username)
				}
				if r.ID == "" {
					r.ID = uuid.NewString()
				}
				_, e := tx.ExecContext(ctx,
					`INSERT INTO users (id,username,password_hash,name,role,student_number,class_name,college,grade,created_at)
					 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
					r.ID, r.Username, phash, r.Name, r.Role, number, r.ClassName, r.College, r.Grade, now)
				if e != nil {
					return s.upsertErr(op, i, e)
				}
				inserted++
			default:
				return fmt.Errorf("account: lookup: %w", e)
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return inserted, updated, nil
}

func (s *Store) upsertErr(op string, i int, err error) error {
	if db.IsUniqueViolation(err) {
		return apperr.Wrap(apperr.ErrConflict, op, fmt.Sprintf("row %d: username or student number already taken", i+1), err)
	}
	return fmt.Errorf("account: row %d: %w", i+1, err)
}
