package group

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/meritscore/internal/academicyear"
	"github.com/mind-engage/meritscore/internal/account"
	"github.com/mind-engage/meritscore/internal/apperr"
	"github.com/mind-engage/meritscore/internal/application"
	"github.com/mind-engage/meritscore/internal/audit"
	"github.com/mind-engage/meritscore/internal/category"
	"github.com/mind-engage/meritscore/internal/db"
	"github.com/mind-engage/meritscore/internal/importer"
	"github.com/mind-engage/meritscore/internal/ledger"
	"github.com/mind-engage/meritscore/internal/rbac"
)

type Service struct {
	db       *sql.DB
	cat      *category.Catalog
	guard    *ledger.Guard
	throttle Throttle
	rbac     *rbac.Checker
	log      *slog.Logger
	now      func() time.Time
}

func NewService(h *sql.DB, cat *category.Catalog, guard *ledger.Guard, throttle Throttle, checker *rbac.Checker, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	if checker == nil {
		checker = rbac.NewChecker(nil)
	}
	if throttle == nil {
		throttle = NewSQLThrottle(h, DefaultCooldown)
	}
	return &Service{db: h, cat: cat, guard: guard, throttle: throttle, rbac: checker, log: log.With("component", "group"), now: time.Now}
}

// Submit validates and persists a batch:
//  1. the teacher's submission cooldown
//  2. evidence present
//  3. roster non-empty and free of duplicate student numbers
//  4. rows resolved to student accounts; unresolved rows become soft errors
//  5. at least one row resolved
//
// Any failure leaves nothing persisted.
func (s *Service) Submit(ctx context.Context, actor rbac.Actor, in SubmitInput, rows []importer.Row) (Result, error) {
	const op = "group.Submit"
	if err := s.rbac.Ensure(actor, op, rbac.PermGroupSubmit); err != nil {
		return Result{}, err
	}
	release, err := s.throttle.Acquire(ctx, actor.ID)
	if err != nil {
		return Result{}, err
	}
	res, err := s.submit(ctx, actor, in, rows)
	if err != nil {
		release(ctx)
		return Result{}, err
	}
	s.log.InfoContext(ctx, "group application submitted",
		"group_id", res.Application.ID, "teacher_id", actor.ID, "members", res.Added, "skipped", len(res.Errors))
	return res, nil
}

// CheckCooldown reports whether the actor could submit a batch right now,
// without reserving the slot.
func (s *Service) CheckCooldown(ctx context.Context, actor rbac.Actor) error {
	if err := s.rbac.Ensure(actor, "group.Submit", rbac.PermGroupSubmit); err != nil {
		return err
	}
	return s.throttle.Check(ctx, actor.ID)
}

func (s *Service) submit(ctx context.Context, actor rbac.Actor, in SubmitInput, rows []importer.Row) (Result, error) {
	const op = "group.Submit"
	in.Description = strings.TrimSpace(in.Description)
	if strings.TrimSpace(in.Evidence) == "" {
		return Result{}, apperr.Validation(op, "evidence required")
	}
	if in.CategoryID == 0 || in.Description == "" {
		return Result{}, apperr.Validation(op, "category and description required")
	}
	if !s.cat.IsLeaf(in.CategoryID) {
		return Result{}, apperr.NotFound(op, "category %d not found", in.CategoryID)
	}
	if err := checkRoster(op, rows); err != nil {
		return Result{}, err
	}

	now := s.now().Unix()
	g := GroupApplication{
		ID:          uuid.NewString(),
		TeacherID:   actor.ID,
		CategoryID:  in.CategoryID,
		Description: in.Description,
		Evidence:    in.Evidence,
		Status:      application.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	var res Result
	err := db.WithTx(ctx, s.db, nil, func(tx *sql.Tx) error {
		year, err := academicyear.Resolve(ctx, tx, in.AcademicYear)
		if err != nil {
			return err
		}
		g.AcademicYear = year
		members, soft, err := resolveRows(ctx, tx, rows)
		if err != nil {
			return err
		}
		if len(members) == 0 {
			e := apperr.Validation(op, "no valid members")
			e.Rows = soft
			return e
		}
		if err := insertGroup(ctx, tx, g); err != nil {
			return err
		}
		if err := replaceMembers(ctx, tx, g.ID, members); err != nil {
			return err
		}
		g.MemberCount = len(members)
		res = Result{Application: g, Added: len(members), Errors: soft}
		return audit.Append(ctx, tx, audit.GroupSubmitted, g.ID, actor.ID, map[string]any{
			"category_id": g.CategoryID, "academic_year": g.AcademicYear, "members": len(members), "skipped": soft,
		})
	})
	if err != nil {
		return Result{}, err
	}
	res.Application = s.decorate(res.Application)
	return res, nil
}

// Edit changes a batch that is not approved. A non-nil rows replaces the
// whole member set; unresolved rows are skipped and reported like on submit.
func (s *Service) Edit(ctx context.Context, actor rbac.Actor, id string, in EditInput, rows []importer.Row) (Result, error) {
	const op = "group.Edit"
	if rows != nil {
		if err := checkRoster(op, rows); err != nil {
			return Result{}, err
		}
	}
	var res Result
	err := db.WithTx(ctx, s.db, nil, func(tx *sql.Tx) error {
		g, err := loadGroup(ctx, tx, op, id)
		if err != nil {
			return err
		}
		if g.TeacherID != actor.ID {
			return apperr.Forbidden(op, "only the submitting teacher may edit group application %s", id)
		}
		if g.Status == application.StatusApproved {
			return apperr.Conflict(op, "approved group applications are immutable")
		}
		if in.CategoryID != nil {
			if !s.cat.IsLeaf(*in.CategoryID) {
				return apperr.NotFound(op, "category %d not found", *in.CategoryID)
			}
			g.CategoryID = *in.CategoryID
		}
		if in.Description != nil {
			d := strings.TrimSpace(*in.Description)
			if d == "" {
				return apperr.Validation(op, "description required")
			}
			g.Description = d
		}
		if in.Evidence != nil {
			if strings.TrimSpace(*in.Evidence) == "" {
				return apperr.Validation(op, "evidence required")
			}
			g.Evidence = *in.Evidence
		}
		if in.AcademicYear != nil {
			year, err := academicyear.Resolve(ctx, tx, *in.AcademicYear)
			if err != nil {
				return err
			}
			g.AcademicYear = year
		}
		res.Errors = []string{}
		if rows != nil {
			members, soft, err := resolveRows(ctx, tx, rows)
			if err != nil {
				return err
			}
			if len(members) == 0 {
				e := apperr.Validation(op, "no valid members")
				e.Rows = soft
				return e
			}
			if err := replaceMembers(ctx, tx, g.ID, members); err != nil {
				return err
			}
			g.MemberCount = len(members)
			res.Added = len(members)
			res.Errors = soft
		}
		g.UpdatedAt = s.now().Unix()
		if err := updateGroup(ctx, tx, op, g, g.Status); err != nil {
			return err
		}
		res.Application = g
		return audit.Append(ctx, tx, audit.GroupEdited, g.ID, actor.ID, map[string]any{
			"fields": in, "members_replaced": rows != nil, "skipped": res.Errors,
		})
	})
	if err != nil {
		return Result{}, err
	}
	s.log.InfoContext(ctx, "group application edited", "group_id", id, "members_replaced", rows != nil)
	res.Application = s.decorate(res.Application)
	return res, nil
}

// Withdraw moves a non-approved batch to withdrawn.
func (s *Service) Withdraw(ctx context.Context, actor rbac.Actor, id string) (GroupApplication, error) {
	const op = "group.Withdraw"
	var out GroupApplication
	err := db.WithTx(ctx, s.db, nil, func(tx *sql.Tx) error {
		g, err := loadGroup(ctx, tx, op, id)
		if err != nil {
			return err
		}
		if g.TeacherID != actor.ID {
			return apperr.Forbidden(op, "only the submitting teacher may withdraw group application %s", id)
		}
		if g.Status == application.StatusApproved {
			return apperr.Conflict(op, "approved group applications cannot be withdrawn")
		}
		prev := g.Status
		g.Status = application.StatusWithdrawn
		g.UpdatedAt = s.now().Unix()
		if err := updateGroup(ctx, tx, op, g, prev); err != nil {
			return err
		}
		out = g
		return audit.Append(ctx, tx, audit.GroupWithdrawn, g.ID, actor.ID, map[string]any{"from": prev})
	})
	if err != nil {
		return GroupApplication{}, err
	}
	s.log.InfoContext(ctx, "group application withdrawn", "group_id", id)
	return s.decorate(out), nil
}

// Review applies a decision to the whole batch. Rejection needs a comment.
// Approval checks every member first and, when any member already holds a
// record for the category and year, fails with all conflicting students and
// changes nothing; otherwise one record per member is written together with
// the status change.
func (s *Service) Review(ctx context.Context, actor rbac.Actor, id string, decision application.Decision, comment string) (GroupApplication, error) {
	const op = "group.Review"
	if err := s.rbac.Ensure(actor, op, rbac.PermGroupReview); err != nil {
		return GroupApplication{}, err
	}
	comment = strings.TrimSpace(comment)
	switch decision {
	case application.Approve:
	case application.Reject:
		if comment == "" {
			return GroupApplication{}, apperr.Validation(op, "a comment is required to reject a group application")
		}
	default:
		return GroupApplication{}, apperr.Validation(op, "decision must be approved or rejected")
	}

	var (
		out     GroupApplication
		written int
	)
	err := db.WithTx(ctx, s.db, nil, func(tx *sql.Tx) error {
		g, err := loadGroup(ctx, tx, op, id)
		if err != nil {
			return err
		}
		if !g.Status.Reviewable() {
			return apperr.Conflict(op, "group application is %s and cannot be reviewed", g.Status)
		}
		prev := g.Status
		now := s.now().Unix()
		g.Status = application.Status(decision)
		g.ReviewerID = actor.ID
		g.ReviewComment = comment
		g.ReviewedAt = now
		g.UpdatedAt = now

		if decision == application.Approve {
			if g.AcademicYear == "" {
				return apperr.Validation(op, "academic year required for approval")
			}
			members, err := loadMembers(ctx, tx, g.ID)
			if err != nil {
				return err
			}
			if len(members) == 0 {
				return apperr.Validation(op, "group application has no members")
			}
			var conflicts []apperr.StudentRef
			for _, m := range members {
				hit, err := s.guard.Check(ctx, tx, ledger.Triple{StudentID: m.StudentID, CategoryID: g.CategoryID, AcademicYear: g.AcademicYear})
				if err != nil {
					return err
				}
				if hit {
					conflicts = append(conflicts, apperr.StudentRef{StudentNumber: m.StudentNumber, Name: m.Name})
				}
			}
			if len(conflicts) > 0 {
				e := apperr.Conflict(op, "%d member(s) already hold a score record for this category and academic year", len(conflicts))
				e.Conflicts = conflicts
				return e
			}
			recs := make([]ledger.Record, len(members))
			for i, m := range members {
				recs[i] = ledger.Record{
					StudentID:          m.StudentID,
					CategoryID:         g.CategoryID,
					Score:              m.Score,
					Source:             ledger.SourceGroup,
					Description:        g.Description,
					AcademicYear:       g.AcademicYear,
					GroupApplicationID: g.ID,
				}
			}
			if _, err := s.guard.Record(ctx, tx, recs); err != nil {
				return err
			}
			written = len(recs)
		}
		if err := updateGroup(ctx, tx, op, g, prev); err != nil {
			return err
		}
		out = g
		return audit.Append(ctx, tx, audit.GroupReviewed, g.ID, actor.ID, map[string]any{
			"decision": decision, "comment": comment, "records": written,
		})
	})
	if err != nil {
		if apperr.IsConflict(err) {
			s.log.WarnContext(ctx, "group review refused", "group_id", id, "err", err)
		}
		return GroupApplication{}, err
	}
	s.log.InfoContext(ctx, "group application reviewed", "group_id", id, "status", out.Status, "records", written)
	return s.decorate(out), nil
}

// Get returns a batch with members to reviewers and to the submitting teacher.
func (s *Service) Get(ctx context.Context, actor rbac.Actor, id string) (Detail, error) {
	const op = "group.Get"
	g, err := loadGroup(ctx, s.db, op, id)
	if err != nil {
		return Detail{}, err
	}
	if g.TeacherID != actor.ID && !s.rbac.Has(actor.Role, rbac.PermGroupViewAll) {
		return Detail{}, apperr.Forbidden(op, "group application %s belongs to another teacher", id)
	}
	members, err := loadMembers(ctx, s.db, id)
	if err != nil {
		return Detail{}, err
	}
	return Detail{GroupApplication: s.decorate(g), Members: members}, nil
}

// ListOwn returns the teacher's batches, newest first.
func (s *Service) ListOwn(ctx context.Context, actor rbac.Actor) ([]GroupApplication, error) {
	const op = "group.ListOwn"
	if err := s.rbac.Ensure(actor, op, rbac.PermGroupViewOwn); err != nil {
		return nil, err
	}
	gs, err := listGroups(ctx, s.db, ListFilter{TeacherID: actor.ID})
	if err != nil {
		return nil, err
	}
	return s.decorateAll(gs), nil
}

// ListAll returns batches for reviewers.
func (s *Service) ListAll(ctx context.Context, actor rbac.Actor, f ListFilter) ([]GroupApplication, error) {
	const op = "group.ListAll"
	if err := s.rbac.Ensure(actor, op, rbac.PermGroupViewAll); err != nil {
		return nil, err
	}
	gs, err := listGroups(ctx, s.db, f)
	if err != nil {
		return nil, err
	}
	return s.decorateAll(gs), nil
}

// ListForStudent returns the batches naming the actor, with the actor's score.
func (s *Service) ListForStudent(ctx context.Context, actor rbac.Actor) ([]MemberView, error) {
	const op = "group.ListForStudent"
	if err := s.rbac.Ensure(actor, op, rbac.PermGroupMemberOf); err != nil {
		return nil, err
	}
	vs, err := listForStudent(ctx, s.db, actor.ID)
	if err != nil {
		return nil, err
	}
	for i := range vs {
		vs[i].GroupApplication = s.decorate(vs[i].GroupApplication)
	}
	return vs, nil
}

func (s *Service) decorate(g GroupApplication) GroupApplication {
	if m, l, ok := s.cat.Location(g.CategoryID); ok {
		g.Category = l.Name
		g.MainCategory = m.Name
	}
	return g
}

func (s *Service) decorateAll(gs []GroupApplication) []GroupApplication {
	for i := range gs {
		gs[i] = s.decorate(gs[i])
	}
	return gs
}

// checkRoster rejects empty rosters and rosters naming a student twice.
func checkRoster(op string, rows []importer.Row) error {
	if len(rows) == 0 {
		return apperr.Validation(op, "member roster is empty")
	}
	seen := map[string]bool{}
	var dups []string
	for _, r := range rows {
		id := strings.TrimSpace(r.Identifier)
		if id == "" {
			continue
		}
		if seen[id] && !slices.Contains(dups, id) {
			dups = append(dups, id)
		}
		seen[id] = true
	}
	if len(dups) > 0 {
		e := apperr.Validation(op, "roster lists student numbers more than once: %s", strings.Join(head(dups, 3), ", "))
		e.Rows = dups
		return e
	}
	return nil
}

// resolveRows maps roster rows to members. Rows whose student cannot be found
// or whose score is not an integer are skipped and described in soft.
func resolveRows(ctx context.Context, q db.Querier, rows []importer.Row) (members []memberRow, soft []string, err error) {
	soft = []string{}
	for _, r := range rows {
		id := strings.TrimSpace(r.Identifier)
		if id == "" {
			soft = append(soft, fmt.Sprintf("line %d: student number missing", r.Line))
			continue
		}
		score, perr := r.Score()
		if perr != nil {
			soft = append(soft, fmt.Sprintf("student %s: %v", id, perr))
			continue
		}
		st, ok, err := account.ResolveStudent(ctx, q, id)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			soft = append(soft, fmt.Sprintf("student number not found: %s", id))
			continue
		}
		members = append(members, memberRow{StudentID: st.ID, Score: score})
	}
	return members, soft, nil
}

func head(xs []string, n int) []string {
	if len(xs) > n {
		return xs[:n]
	}
	return xs
}
