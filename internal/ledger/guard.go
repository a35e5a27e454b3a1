package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/meritscore/internal/apperr"
	"github.com/mind-engage/meritscore/internal/db"
)

// Guard enforces at-most-one record per Triple. Check and Record must run on
// the same transaction as the status change they protect; the unique index
// on score_records catches approvals racing past the check.
type Guard struct {
	now func() time.Time
}

func NewGuard() *Guard { return &Guard{now: time.Now} }

// Check reports whether a record already exists for t.
func (g *Guard) Check(ctx context.Context, q db.Querier, t Triple) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx,
		`SELECT 1 FROM score_records WHERE student_id=$1 AND category_id=$2 AND academic_year=$3`,
		t.StudentID, t.CategoryID, t.AcademicYear).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("ledger: check: %w", err)
	}
	return true, nil
}

// Conflicting returns, in input order, the students that already hold a
// record for the category and year.
func (g *Guard) Conflicting(ctx context.Context, q db.Querier, categoryID int, year string, students []string) ([]string, error) {
	var out []string
	for _, sid := range students {
		hit, err := g.Check(ctx, q, Triple{StudentID: sid, CategoryID: categoryID, AcademicYear: year})
		if err != nil {
			return nil, err
		}
		if hit {
			out = append(out, sid)
		}
	}
	return out, nil
}

// Record inserts recs, assigning ids and timestamps. A unique violation
// surfaces as a conflict error and the caller's transaction must roll back.
func (g *Guard) Record(ctx context.Context, q db.Querier, recs []Record) ([]Record, error) {
	now := g.now().Unix()
	out := make([]Record, 0, len(recs))
	for _, r := range recs {
		if r.ApplicationID != "" && r.GroupApplicationID != "" {
			return nil, errors.New("ledger: record has two origins")
		}
		if r.AcademicYear == "" {
			return nil, apperr.Validation("ledger.Record", "academic year required")
		}
		r.ID = uuid.NewString()
		r.CreatedAt = now
		_, err := q.ExecContext(ctx,
			`INSERT INTO score_records (id,student_id,category_id,score,source,description,academic_year,created_at,application_id,group_application_id)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			r.ID, r.StudentID, r.CategoryID, r.Score, r.Source, r.Description, r.AcademicYear, r.CreatedAt,
			nullable(r.ApplicationID), nullable(r.GroupApplicationID))
		if err != nil {
			if db.IsUniqueViolation(err) {
				return nil, apperr.Wrap(apperr.ErrConflict, "ledger.Record",
					"a score record already exists for this student, category and academic year", err)
			}
			return nil, fmt.Errorf("ledger: insert: %w", err)
		}
		out = append(out, r)
	}
	return out, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
