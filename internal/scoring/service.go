package scoring

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/mind-engage/meritscore/internal/academicyear"
	"github.com/mind-engage/meritscore/internal/account"
	"github.com/mind-engage/meritscore/internal/apperr"
	"github.com/mind-engage/meritscore/internal/ledger"
	"github.com/mind-engage/meritscore/internal/rbac"
)

// Service serves score reports computed on demand from the ledger.
type Service struct {
	db       *sql.DB
	engine   *Engine
	records  *ledger.Store
	accounts *account.Store
	rbac     *rbac.Checker
}

func NewService(h *sql.DB, engine *Engine, records *ledger.Store, accounts *account.Store, checker *rbac.Checker) *Service {
	if checker == nil {
		checker = rbac.NewChecker(nil)
	}
	return &Service{db: h, engine: engine, records: records, accounts: accounts, rbac: checker}
}

// StudentReport is one student's aggregated scores.
type StudentReport struct {
	Student      account.Account `json:"student"`
	AcademicYear string          `json:"academic_year,omitempty"`
	Report
}

// StudentReport aggregates a student's records. An empty year covers all years.
func (s *Service) StudentReport(ctx context.Context, actor rbac.Actor, studentID, year string) (StudentReport, error) {
	const op = "scoring.StudentReport"
	if err := s.canView(actor, op, studentID); err != nil {
		return StudentReport{}, err
	}
	st, err := s.accounts.Get(ctx, studentID)
	if err != nil {
		return StudentReport{}, err
	}
	recs, err := s.records.ListByStudent(ctx, studentID, year)
	if err != nil {
		return StudentReport{}, err
	}
	return StudentReport{Student: st, AcademicYear: year, Report: s.engine.Compute(recs)}, nil
}

func (s *Service) canView(actor rbac.Actor, op, studentID string) error {
	if s.rbac.Has(actor.Role, rbac.PermScoreViewAll) {
		return nil
	}
	if actor.ID != "" && actor.ID == studentID && s.rbac.Has(actor.Role, rbac.PermScoreViewOwn) {
		return nil
	}
	return apperr.Forbidden(op, "scores of %s are not visible to this account", studentID)
}

// StandingsQuery selects the year and student subset. An empty year means
// the current year, or all years when none is current.
type StandingsQuery struct {
	AcademicYear string
	College      string
	Grade        string
	ClassName    string
}

// Standing is one student's line in the standings.
type Standing struct {
	Rank          int            `json:"rank"`
	StudentID     string         `json:"student_id"`
	StudentNumber string         `json:"student_number"`
	Name          string         `json:"name"`
	ClassName     string         `json:"class_name"`
	College       string         `json:"college"`
	Grade         string         `json:"grade"`
	Total         int            `json:"total"`
	Scale35       int            `json:"scale35"`
	Combined      int            `json:"combined"`
	Records       int            `json:"records"`
	Categories    map[string]int `json:"categories"`
}

// Standings ranks every matching student by total, then student number.
func (s *Service) Standings(ctx context.Context, actor rbac.Actor, q StandingsQuery) (year string, out []Standing, err error) {
	const op = "scoring.Standings"
	if err := s.rbac.Ensure(actor, op, rbac.PermScoreViewAll); err != nil {
		return "", nil, err
	}
	year, err = academicyear.Resolve(ctx, s.db, q.AcademicYear)
	if err != nil {
		return "", nil, err
	}
	students, err := s.accounts.ListStudents(ctx, account.Filter{College: q.College, Grade: q.Grade, ClassName: q.ClassName})
	if err != nil {
		return "", nil, err
	}
	recs, err := s.records.ListByYear(ctx, year)
	if err != nil {
		return "", nil, err
	}
	byStudent := map[string][]ledger.Record{}
	for _, r := range recs {
		byStudent[r.StudentID] = append(byStudent[r.StudentID], r)
	}

	out = make([]Standing, 0, len(students))
	for _, st := range students {
		rep := s.engine.Compute(byStudent[st.ID])
		cats := make(map[string]int, len(rep.Categories))
		for _, c := range rep.Categories {
			cats[c.Main] = c.Final
		}
		out = append(out, Standing{
			StudentID:     st.ID,
			StudentNumber: st.StudentNumber,
			Name:          st.Name,
			ClassName:     st.ClassName,
			College:       st.College,
			Grade:         st.Grade,
			Total:         rep.Total,
			Scale35:       rep.Scale35,
			Combined:      rep.Combined,
			Records:       len(rep.Records),
			Categories:    cats,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].StudentNumber < out[j].StudentNumber
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return year, out, nil
}

// Statistics is the reviewer dashboard summary.
type Statistics struct {
	Students                 int    `json:"students"`
	Applications             int    `json:"applications"`
	PendingApplications      int    `json:"pending_applications"`
	GroupApplications        int    `json:"group_applications"`
	PendingGroupApplications int    `json:"pending_group_applications"`
	TotalScore               int    `json:"total_score"`
	CurrentYear              string `json:"current_year,omitempty"`
}

func (s *Service) Statistics(ctx context.Context, actor rbac.Actor) (Statistics, error) {
	const op = "scoring.Statistics"
	if err := s.rbac.Ensure(actor, op, rbac.PermStatistics); err != nil {
		return Statistics{}, err
	}
	var st Statistics
	var err error
	if st.Students, err = s.accounts.CountByRole(ctx, rbac.RoleStudent); err != nil {
		return Statistics{}, err
	}
	counts := func(table string, total, pending *int) error {
		err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*), COALESCE(SUM(CASE WHEN status='pending' THEN 1 ELSE 0 END),0) FROM `+table).Scan(total, pending)
		if err != nil {
			return fmt.Errorf("scoring: count %s: %w", table, err)
		}
		return nil
	}
	if err := counts("applications", &st.Applications, &st.PendingApplications); err != nil {
		return Statistics{}, err
	}
	if err := counts("group_applications", &st.GroupApplications, &st.PendingGroupApplications); err != nil {
		return Statistics{}, err
	}
	if st.TotalScore, err = s.records.TotalScore(ctx); err != nil {
		return Statistics{}, err
	}
	if st.CurrentYear, _, err = academicyear.CurrentYearOn(ctx, s.db); err != nil {
		return Statistics{}, err
	}
	return st, nil
}
