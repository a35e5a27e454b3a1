package ledger

import (
	"context"
	"database/sql"
	"fmt"
)

// Store reads approved records.
type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

const recordCols = `id,student_id,category_id,score,source,description,academic_year,created_at,
	COALESCE(application_id,''),COALESCE(group_application_id,'')`

// ListByStudent returns a student's records, newest first. An empty year lists all years.
func (s *Store) ListByStudent(ctx context.Context, studentID, year string) ([]Record, error) {
	if year == "" {
		return s.query(ctx, `SELECT `+recordCols+` FROM score_records WHERE student_id=$1 ORDER BY created_at DESC, id`, studentID)
	}
	return s.query(ctx, `SELECT `+recordCols+` FROM score_records WHERE student_id=$1 AND academic_year=$2 ORDER BY created_at DESC, id`,
		studentID, year)
}

// ListByYear returns every record of a year. An empty year lists all years.
func (s *Store) ListByYear(ctx context.Context, year string) ([]Record, error) {
	if year == "" {
		return s.query(ctx, `SELECT `+recordCols+` FROM score_records ORDER BY student_id, created_at DESC, id`)
	}
	return s.query(ctx, `SELECT `+recordCols+` FROM score_records WHERE academic_year=$1 ORDER BY student_id, created_at DESC, id`, year)
}

// ListByGroupApplication returns the records created by one batch approval.
func (s *Store) ListByGroupApplication(ctx context.Context, groupID string) ([]Record, error) {
	return s.query(ctx, `SELECT `+recordCols+` FROM score_records WHERE group_application_id=$1 ORDER BY student_id`, groupID)
}

// TotalScore sums every record's raw score.
func (s *Store) TotalScore(ctx context.Context) (int, error) {
	var n sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT SUM(score) FROM score_records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("ledger: sum: %w", err)
	}
	return int(n.Int64), nil
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("ledger: query: %w", err)
	}
	defer rows.Close()
	out := []Record{}
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.StudentID, &r.CategoryID, &r.Score, &r.Source, &r.Description,
			&r.AcademicYear, &r.CreatedAt, &r.ApplicationID, &r.GroupApplicationID); err != nil {
			return nil, fmt.Errorf("ledger: scan: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
