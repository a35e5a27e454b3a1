package http

import (
	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/meritscore/internal/academicyear"
	"github.com/mind-engage/meritscore/internal/account"
	"github.com/mind-engage/meritscore/internal/application"
	"github.com/mind-engage/meritscore/internal/audit"
	"github.com/mind-engage/meritscore/internal/category"
	"github.com/mind-engage/meritscore/internal/group"
	"github.com/mind-engage/meritscore/internal/rbac"
	"github.com/mind-engage/meritscore/internal/scoring"
	"github.com/mind-engage/meritscore/internal/storage"
)

// Deps are the services behind the protected API.
type Deps struct {
	Catalog      *category.Catalog
	Accounts     *account.Store
	Years        *academicyear.Registry
	Applications *application.Service
	Groups       *group.Service
	Scores       *scoring.Service
	Evidence     *storage.EvidenceStore
	Events       *audit.EventRepo
}

// Mount registers the protected API on r. The caller installs authentication
// so that rbac subject and role are in the request context.
func Mount(r chi.Router, d Deps) {
	r.With(rbac.Require(rbac.PermCategoryView)).Get("/categories", VisibleCategoriesHandler(d.Catalog))
	r.With(rbac.Require(rbac.PermCategoryViewAll)).Get("/categories/all", AllCategoriesHandler(d.Catalog))
	r.With(rbac.Require(rbac.PermCategoryViewAll)).Get("/categories/teacher-managed", TeacherManagedCategoriesHandler(d.Catalog))

	r.Route("/applications", func(ar chi.Router) {
		ar.With(rbac.Require(rbac.PermApplicationSubmit)).Post("/", SubmitApplicationHandler(d.Applications, d.Catalog, d.Evidence))
		ar.With(rbac.Require(rbac.PermApplicationViewAll)).Get("/", ListApplicationsHandler(d.Applications))
		ar.With(rbac.Require(rbac.PermApplicationViewOwn)).Get("/mine", ListOwnApplicationsHandler(d.Applications))
		ar.With(rbac.RequireAny(rbac.PermApplicationViewOwn, rbac.PermApplicationViewAll)).Get("/{id}", GetApplicationHandler(d.Applications))
		ar.With(rbac.Require(rbac.PermApplicationSubmit)).Patch("/{id}", EditApplicationHandler(d.Applications, d.Catalog, d.Evidence))
		ar.With(rbac.Require(rbac.PermApplicationSubmit)).Post("/{id}/withdraw", WithdrawApplicationHandler(d.Applications))
		ar.With(rbac.Require(rbac.PermApplicationReview)).Post("/{id}/review", ReviewApplicationHandler(d.Applications))
	})

	r.Route("/groups", func(gr chi.Router) {
		gr.With(rbac.Require(rbac.PermGroupSubmit)).Post("/", SubmitGroupHandler(d.Groups, d.Catalog, d.Evidence))
		gr.With(rbac.Require(rbac.PermGroupViewAll)).Get("/", ListGroupsHandler(d.Groups))
		gr.With(rbac.Require(rbac.PermGroupViewOwn)).Get("/mine", ListOwnGroupsHandler(d.Groups))
		gr.With(rbac.Require(rbac.PermGroupMemberOf)).Get("/member", MemberGroupsHandler(d.Groups))
		gr.With(rbac.RequireAny(rbac.PermGroupViewOwn, rbac.PermGroupViewAll)).Get("/{id}", GetGroupHandler(d.Groups))
		gr.With(rbac.Require(rbac.PermGroupSubmit)).Patch("/{id}", EditGroupHandler(d.Groups, d.Catalog, d.Evidence))
		gr.With(rbac.Require(rbac.PermGroupSubmit)).Post("/{id}/withdraw", WithdrawGroupHandler(d.Groups))
		gr.With(rbac.Require(rbac.PermGroupReview)).Post("/{id}/review", ReviewGroupHandler(d.Groups))
	})

	r.With(rbac.Require(rbac.PermEvidenceView)).Route("/evidence", func(er chi.Router) {
		MountEvidence(er, d.Evidence)
	})

	r.Route("/scores", func(sr chi.Router) {
		sr.With(rbac.Require(rbac.PermScoreViewOwn)).Get("/me", StudentReportHandler(d.Scores))
		sr.With(rbac.Require(rbac.PermScoreExport)).Get("/me/export", ExportStudentHandler(d.Scores))
		sr.With(rbac.Require(rbac.PermScoreViewAll)).Get("/students/{studentID}", StudentReportHandler(d.Scores))
		sr.With(rbac.Require(rbac.PermScoreViewAll)).Get("/students/{studentID}/export", ExportStudentHandler(d.Scores))
		sr.With(rbac.Require(rbac.PermScoreViewAll)).Get("/standings", StandingsHandler(d.Scores))
		sr.With(rbac.Require(rbac.PermScoreViewAll)).Get("/standings/export", ExportStandingsHandler(d.Scores))
	})
	r.With(rbac.Require(rbac.PermStatistics)).Get("/statistics", StatisticsHandler(d.Scores))
	r.With(rbac.Require(rbac.PermScoreViewAll)).Get("/students/filters", StudentFiltersHandler(d.Accounts))

	r.Route("/years", func(yr chi.Router) {
		yr.With(rbac.Require(rbac.PermYearView)).Get("/", ListYearsHandler(d.Years))
		yr.With(rbac.Require(rbac.PermYearView)).Get("/current", CurrentYearHandler(d.Years))
		yr.With(rbac.Require(rbac.PermYearManage)).Post("/", AddYearHandler(d.Years))
		yr.With(rbac.Require(rbac.PermYearManage)).Put("/{name}/current", SetCurrentYearHandler(d.Years))
		yr.With(rbac.Require(rbac.PermYearManage)).Delete("/{name}", DeleteYearHandler(d.Years))
	})

	r.With(rbac.Require(rbac.PermUsersBulk)).Post("/users/bulk", BulkUpsertUsersHandler(d.Accounts))
	r.With(rbac.Require(rbac.PermUsersList)).Get("/users", ListUsersHandler(d.Accounts))
	r.With(rbac.Require(rbac.PermUsersBulk)).Put("/users/{userID}/role", UpdateUserRoleHandler(d.Accounts))

	r.With(rbac.Require(rbac.PermAuditView)).Get("/audit", AuditEventsHandler(d.Events))
}
