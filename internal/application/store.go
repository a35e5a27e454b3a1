package application

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mind-engage/meritscore/internal/apperr"
	"github.com/mind-engage/meritscore/internal/db"
)

const appCols = `id,student_id,category_id,description,score,evidence,status,academic_year,
	COALESCE(reviewer_id,''),COALESCE(review_comment,''),created_at,updated_at,COALESCE(reviewed_at,0)`

func scanApp(row interface{ Scan(...any) error }) (Application, error) {
	var a Application
	var st string
	err := row.Scan(&a.ID, &a.StudentID, &a.CategoryID, &a.Description, &a.Score, &a.Evidence, &st,
		&a.AcademicYear, &a.ReviewerID, &a.ReviewComment, &a.CreatedAt, &a.UpdatedAt, &a.ReviewedAt)
	a.Status = Status(st)
	return a, err
}

func load(ctx context.Context, q db.Querier, op, id string) (Application, error) {
	a, err := scanApp(q.QueryRowContext(ctx, `SELECT `+appCols+` FROM applications WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Application{}, apperr.NotFound(op, "application %q not found", id)
	}
	if err != nil {
		return Application{}, fmt.Errorf("application: load: %w", err)
	}
	return a, nil
}

func insert(ctx context.Context, q db.Querier, a Application) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO applications (id,student_id,category_id,description,score,evidence,status,academic_year,created_at,updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		a.ID, a.StudentID, a.CategoryID, a.Description, a.Score, a.Evidence, string(a.Status), a.AcademicYear, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("application: insert: %w", err)
	}
	return nil
}

// update writes a's mutable fields, provided the row still holds prev status.
func update(ctx context.Context, q db.Querier, op string, a Application, prev Status) error {
	var reviewedAt any
	if a.ReviewedAt != 0 {
		reviewedAt = a.ReviewedAt
	}
	res, err := q.ExecContext(ctx,
		`UPDATE applications SET category_id=$1, description=$2, score=$3, evidence=$4, status=$5, academic_year=$6,
		   reviewer_id=$7, review_comment=$8, updated_at=$9, reviewed_at=$10
		 WHERE id=$11 AND status=$12`,
		a.CategoryID, a.Description, a.Score, a.Evidence, string(a.Status), a.AcademicYear,
		nullable(a.ReviewerID), nullable(a.ReviewComment), a.UpdatedAt, reviewedAt, a.ID, string(prev))
	if err != nil {
		return fmt.Errorf("application: update: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.Conflict(op, "application %s changed concurrently", a.ID)
	}
	return nil
}

func list(ctx context.Context, q db.Querier, f ListFilter) ([]Application, error) {
	query := `SELECT ` + appCols + ` FROM applications WHERE 1=1`
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		query += fmt.Sprintf(" AND "+cond, len(args))
	}
	if f.StudentID != "" {
		add("student_id=$%d", f.StudentID)
	}
	if f.Status != "" {
		add("status=$%d", string(f.Status))
	}
	if f.AcademicYear != "" {
		add("academic_year=$%d", f.AcademicYear)
	}
	if f.CategoryID != 0 {
		add("category_id=$%d", f.CategoryID)
	}
	query += ` ORDER BY created_at DESC, id`
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("application: list: %w", err)
	}
	defer rows.Close()
	out := []Application{}
	for rows.Next() {
		a, err := scanApp(rows)
		if err != nil {
			return nil, fmt.Errorf("application: scan: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
