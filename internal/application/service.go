package application

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/meritscore/internal/academicyear"
	"github.com/mind-engage/meritscore/internal/account"
	"github.com/mind-engage/meritscore/internal/apperr"
	"github.com/mind-engage/meritscore/internal/audit"
	"github.com/mind-engage/meritscore/internal/category"
	"github.com/mind-engage/meritscore/internal/db"
	"github.com/mind-engage/meritscore/internal/ledger"
	"github.com/mind-engage/meritscore/internal/rbac"
)

type Service struct {
	db    *sql.DB
	cat   *category.Catalog
	guard *ledger.Guard
	rbac  *rbac.Checker
	log   *slog.Logger
	now   func() time.Time
}

func NewService(h *sql.DB, cat *category.Catalog, guard *ledger.Guard, checker *rbac.Checker, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	if checker == nil {
		checker = rbac.NewChecker(nil)
	}
	return &Service{db: h, cat: cat, guard: guard, rbac: checker, log: log.With("component", "application"), now: time.Now}
}

// Submit creates a pending application owned by the actor. Whether the
// category is visible to the actor's role is checked by the caller.
func (s *Service) Submit(ctx context.Context, actor rbac.Actor, in SubmitInput) (Application, error) {
	const op = "application.Submit"
	if err := s.rbac.Ensure(actor, op, rbac.PermApplicationSubmit); err != nil {
		return Application{}, err
	}
	in.Description = strings.TrimSpace(in.Description)
	switch {
	case in.CategoryID == 0:
		return Application{}, apperr.Validation(op, "category required")
	case in.Description == "":
		return Application{}, apperr.Validation(op, "description required")
	case in.Score == nil:
		return Application{}, apperr.Validation(op, "score required")
	case strings.TrimSpace(in.Evidence) == "":
		return Application{}, apperr.Validation(op, "evidence required")
	}
	if !s.cat.IsLeaf(in.CategoryID) {
		return Application{}, apperr.NotFound(op, "category %d not found", in.CategoryID)
	}

	now := s.now().Unix()
	a := Application{
		ID:          uuid.NewString(),
		StudentID:   actor.ID,
		CategoryID:  in.CategoryID,
		Description: in.Description,
		Score:       *in.Score,
		Evidence:    in.Evidence,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := db.WithTx(ctx, s.db, nil, func(tx *sql.Tx) error {
		year, err := academicyear.Resolve(ctx, tx, in.AcademicYear)
		if err != nil {
			return err
		}
		a.AcademicYear = year
		if err := insert(ctx, tx, a); err != nil {
			return err
		}
		return audit.Append(ctx, tx, audit.ApplicationSubmitted, a.ID, actor.ID, map[string]any{
			"category_id": a.CategoryID, "score": a.Score, "academic_year": a.AcademicYear,
		})
	})
	if err != nil {
		return Application{}, err
	}
	s.log.InfoContext(ctx, "application submitted", "application_id", a.ID, "student_id", a.StudentID, "category_id", a.CategoryID)
	return s.decorate(a), nil
}

// Edit changes content while the application is pending or rejected. A
// rejected application stays rejected until it is reviewed again.
func (s *Service) Edit(ctx context.Context, actor rbac.Actor, id string, in EditInput) (Application, error) {
	const op = "application.Edit"
	var out Application
	err := db.WithTx(ctx, s.db, nil, func(tx *sql.Tx) error {
		a, err := load(ctx, tx, op, id)
		if err != nil {
			return err
		}
		if a.StudentID != actor.ID {
			return apperr.Forbidden(op, "only the owner may edit application %s", id)
		}
		if !a.Status.Editable() {
			return apperr.Conflict(op, "application is %s and can no longer be edited", a.Status)
		}
		if in.CategoryID != nil {
			if !s.cat.IsLeaf(*in.CategoryID) {
				return apperr.NotFound(op, "category %d not found", *in.CategoryID)
			}
			a.CategoryID = *in.CategoryID
		}
		if in.Description != nil {
			d := strings.TrimSpace(*in.Description)
			if d == "" {
				return apperr.Validation(op, "description required")
			}
			a.Description = d
		}
		if in.Score != nil {
			a.Score = *in.Score
		}
		if in.Evidence != nil {
			if strings.TrimSpace(*in.Evidence) == "" {
				return apperr.Validation(op, "evidence required")
			}
			a.Evidence = *in.Evidence
		}
		if in.AcademicYear != nil {
			year, err := academicyear.Resolve(ctx, tx, *in.AcademicYear)
			if err != nil {
				return err
			}
			a.AcademicYear = year
		}
		a.UpdatedAt = s.now().Unix()
		if err := update(ctx, tx, op, a, a.Status); err != nil {
			return err
		}
		out = a
		return audit.Append(ctx, tx, audit.ApplicationEdited, a.ID, actor.ID, in)
	})
	if err != nil {
		return Application{}, err
	}
	s.log.InfoContext(ctx, "application edited", "application_id", out.ID, "status", out.Status)
	return s.decorate(out), nil
}

// Withdraw moves a non-approved application to the terminal withdrawn state.
func (s *Service) Withdraw(ctx context.Context, actor rbac.Actor, id string) (Application, error) {
	const op = "application.Withdraw"
	var out Application
	err := db.WithTx(ctx, s.db, nil, func(tx *sql.Tx) error {
		a, err := load(ctx, tx, op, id)
		if err != nil {
			return err
		}
		if a.StudentID != actor.ID {
			return apperr.Forbidden(op, "only the owner may withdraw application %s", id)
		}
		if a.Status == StatusApproved {
			return apperr.Conflict(op, "approved applications cannot be withdrawn")
		}
		prev := a.Status
		a.Status = StatusWithdrawn
		a.UpdatedAt = s.now().Unix()
		if err := update(ctx, tx, op, a, prev); err != nil {
			return err
		}
		out = a
		return audit.Append(ctx, tx, audit.ApplicationWithdrawn, a.ID, actor.ID, map[string]any{"from": prev})
	})
	if err != nil {
		return Application{}, err
	}
	s.log.InfoContext(ctx, "application withdrawn", "application_id", out.ID)
	return s.decorate(out), nil
}

// Review applies a decision. Approval checks the (student, category, year)
// triple and writes the score record in the same transaction as the status
// change; a conflict leaves the application untouched.
func (s *Service) Review(ctx context.Context, actor rbac.Actor, id string, decision Decision, comment string) (Application, error) {
	const op = "application.Review"
	if err := s.rbac.Ensure(actor, op, rbac.PermApplicationReview); err != nil {
		return Application{}, err
	}
	if decision != Approve && decision != Reject {
		return Application{}, apperr.Validation(op, "decision must be approved or rejected")
	}
	var out Application
	err := db.WithTx(ctx, s.db, nil, func(tx *sql.Tx) error {
		a, err := load(ctx, tx, op, id)
		if err != nil {
			return err
		}
		if !a.Status.Reviewable() {
			return apperr.Conflict(op, "application is %s and cannot be reviewed", a.Status)
		}
		prev := a.Status
		now := s.now().Unix()
		a.Status = Status(decision)
		a.ReviewerID = actor.ID
		a.ReviewComment = strings.TrimSpace(comment)
		a.ReviewedAt = now
		a.UpdatedAt = now

		if decision == Approve {
			if a.AcademicYear == "" {
				return apperr.Validation(op, "academic year required for approval")
			}
			t := ledger.Triple{StudentID: a.StudentID, CategoryID: a.CategoryID, AcademicYear: a.AcademicYear}
			hit, err := s.guard.Check(ctx, tx, t)
			if err != nil {
				return err
			}
			if hit {
				e := apperr.Conflict(op, "a score record already exists for this student, category and academic year")
				if st, err := account.GetOn(ctx, tx, a.StudentID); err == nil {
					e.Conflicts = []apperr.StudentRef{st.Ref()}
				}
				return e
			}
			if _, err := s.guard.Record(ctx, tx, []ledger.Record{{
				StudentID:     a.StudentID,
				CategoryID:    a.CategoryID,
				Score:         a.Score,
				Source:        ledger.SourceIndividual,
				Description:   a.Description,
				AcademicYear:  a.AcademicYear,
				ApplicationID: a.ID,
			}}); err != nil {
				return err
			}
		}
		if err := update(ctx, tx, op, a, prev); err != nil {
			return err
		}
		out = a
		return audit.Append(ctx, tx, audit.ApplicationReviewed, a.ID, actor.ID, map[string]any{
			"decision": decision, "comment": a.ReviewComment,
		})
	})
	if err != nil {
		if apperr.IsConflict(err) {
			s.log.WarnContext(ctx, "application review refused", "application_id", id, "err", err)
		}
		return Application{}, err
	}
	s.log.InfoContext(ctx, "application reviewed", "application_id", out.ID, "student_id", out.StudentID, "status", out.Status)
	return s.decorate(out), nil
}

// Get returns one application to its owner or to a reviewer.
func (s *Service) Get(ctx context.Context, actor rbac.Actor, id string) (Application, error) {
	const op = "application.Get"
	a, err := load(ctx, s.db, op, id)
	if err != nil {
		return Application{}, err
	}
	if a.StudentID != actor.ID && !s.rbac.Has(actor.Role, rbac.PermApplicationViewAll) {
		return Application{}, apperr.Forbidden(op, "application %s belongs to another student", id)
	}
	return s.decorate(a), nil
}

// ListOwn returns the actor's applications, newest first. categoryID 0 lists all.
func (s *Service) ListOwn(ctx context.Context, actor rbac.Actor, categoryID int) ([]Application, error) {
	const op = "application.ListOwn"
	if err := s.rbac.Ensure(actor, op, rbac.PermApplicationViewOwn); err != nil {
		return nil, err
	}
	apps, err := list(ctx, s.db, ListFilter{StudentID: actor.ID, CategoryID: categoryID})
	if err != nil {
		return nil, err
	}
	return s.decorateAll(apps), nil
}

// ListAll returns applications for reviewers.
func (s *Service) ListAll(ctx context.Context, actor rbac.Actor, f ListFilter) ([]Application, error) {
	const op = "application.ListAll"
	if err := s.rbac.Ensure(actor, op, rbac.PermApplicationViewAll); err != nil {
		return nil, err
	}
	apps, err := list(ctx, s.db, f)
	if err != nil {
		return nil, err
	}
	return s.decorateAll(apps), nil
}

func (s *Service) decorate(a Application) Application {
	if m, l, ok := s.cat.Location(a.CategoryID); ok {
		a.Category = l.Name
		a.MainCategory = m.Name
	}
	return a
}

func (s *Service) decorateAll(apps []Application) []Application {
	for i := range apps {
		apps[i] = s.decorate(apps[i])
	}
	return apps
}
