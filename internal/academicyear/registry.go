// Package academicyear keeps the set of scoring periods and the single
// current one.
package academicyear

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mind-engage/meritscore/internal/apperr"
	"github.com/mind-engage/meritscore/internal/db"
)

// Year is one scoring period.
type Year struct {
	Name      string `json:"name"`
	IsCurrent bool   `json:"is_current"`
	CreatedAt int64  `json:"created_at"`
}

// Registry is the SQL-backed academic year registry.
type Registry struct {
	db  *sql.DB
	now func() time.Time
}

func NewRegistry(h *sql.DB) *Registry { return &Registry{db: h, now: time.Now} }

// CurrentYear returns the current year's name; ok is false when none is set.
func (r *Registry) CurrentYear(ctx context.Context) (name string, ok bool, err error) {
	return CurrentYearOn(ctx, r.db)
}

// CurrentYearOn reads the current year through q, so workflows can stay on
// their own transaction.
func CurrentYearOn(ctx context.Context, q db.Querier) (string, bool, error) {
	var name string
	err := q.QueryRowContext(ctx, `SELECT name FROM academic_years WHERE is_current=1 ORDER BY name DESC LIMIT 1`).Scan(&name)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("academicyear: current: %w", err)
	}
	return name, true, nil
}

// ListYears returns every year, newest name first.
func (r *Registry) ListYears(ctx context.Context) ([]Year, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name,is_current,created_at FROM academic_years ORDER BY name DESC`)
	if err != nil {
		return nil, fmt.Errorf("academicyear: list: %w", err)
	}
	defer rows.Close()
	out := []Year{}
	for rows.Next() {
		var y Year
		var cur int
		if err := rows.Scan(&y.Name, &cur, &y.CreatedAt); err != nil {
			return nil, fmt.Errorf("academicyear: scan: %w", err)
		}
		y.IsCurrent = cur == 1
		out = append(out, y)
	}
	return out, rows.Err()
}

// Exists reports whether name is registered.
func (r *Registry) Exists(ctx context.Context, name string) (bool, error) {
	return ExistsOn(ctx, r.db, name)
}

// ExistsOn is Exists through q.
func ExistsOn(ctx context.Context, q db.Querier, name string) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM academic_years WHERE name=$1`, name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("academicyear: exists: %w", err)
	}
	return true, nil
}

// AddYear registers a new year. The first year ever added becomes current.
func (r *Registry) AddYear(ctx context.Context, name string) error {
	const op = "academicyear.AddYear"
	name = strings.TrimSpace(name)
	if name == "" {
		return apperr.Validation(op, "year name required")
	}
	return db.WithTx(ctx, r.db, nil, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM academic_years`).Scan(&n); err != nil {
			return fmt.Errorf("academicyear: count: %w", err)
		}
		cur := 0
		if n == 0 {
			cur = 1
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO academic_years (name,is_current,created_at) VALUES ($1,$2,$3)`,
			name, cur, r.now().Unix())
		if db.IsUniqueViolation(err) {
			return apperr.Conflict(op, "academic year %q already exists", name)
		}
		if err != nil {
			return fmt.Errorf("academicyear: insert: %w", err)
		}
		return nil
	})
}

// SetCurrent marks name as the only current year.
func (r *Registry) SetCurrent(ctx context.Context, name string) error {
	const op = "academicyear.SetCurrent"
	return db.WithTx(ctx, r.db, nil, func(tx *sql.Tx) error {
		var one int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM academic_years WHERE name=$1`, name).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound(op, "academic year %q not found", name)
		}
		if err != nil {
			return fmt.Errorf("academicyear: lookup: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE academic_years SET is_current=0 WHERE is_current<>0`); err != nil {
			return fmt.Errorf("academicyear: clear current: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE academic_years SET is_current=1 WHERE name=$1`, name); err != nil {
			return fmt.Errorf("academicyear: set current: %w", err)
		}
		return nil
	})
}

// DeleteYear removes an unreferenced year.
func (r *Registry) DeleteYear(ctx context.Context, name string) error {
	const op = "academicyear.DeleteYear"
	return db.WithTx(ctx, r.db, nil, func(tx *sql.Tx) error {
		var one int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM academic_years WHERE name=$1`, name).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound(op, "academic year %q not found", name)
		}
		if err != nil {
			return fmt.Errorf("academicyear: lookup: %w", err)
		}
		for _, table := range []string{"applications", "group_applications", "score_records"} {
			var n int
			if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table+` WHERE academic_year=$1`, name).Scan(&n); err != nil {
				return fmt.Errorf("academicyear: count %s: %w", table, err)
			}
			if n > 0 {
				return apperr.Conflict(op, "academic year %q is referenced by %d %s", name, n, strings.ReplaceAll(table, "_", " "))
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM academic_years WHERE name=$1`, name); err != nil {
			return fmt.Errorf("academicyear: delete: %w", err)
		}
		return nil
	})
}

// Resolve returns name when it is registered, or the current year when name
// is empty. The result is empty when name is empty and no year is current.
func Resolve(ctx context.Context, q db.Querier, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		cur, _, err := CurrentYearOn(ctx, q)
		return cur, err
	}
	ok, err := ExistsOn(ctx, q, name)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", apperr.NotFound("academicyear.Resolve", "academic year %q not found", name)
	}
	return name, nil
}
