package rbac

const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

// Permissions.
const (
	PermCategoryView    = "category:view"
	PermCategoryViewAll = "category:view-all"

	PermApplicationSubmit  = "application:submit"
	PermApplicationViewOwn = "application:view-own"
	PermApplicationViewAll = "application:view-all"
	PermApplicationReview  = "application:review"

	PermGroupSubmit    = "group:submit"
	PermGroupViewOwn   = "group:view-own"
	PermGroupMemberOf  = "group:member-view"
	PermGroupViewAll   = "group:view-all"
	PermGroupReview    = "group:review"
	PermEvidenceView   = "evidence:view"
	PermScoreViewOwn   = "score:view-own"
	PermScoreViewAll   = "score:view-all"
	PermScoreExport    = "score:export"
	PermYearView       = "year:view"
	PermYearManage     = "year:manage"
	PermUsersBulk      = "users:bulk_upsert"
	PermUsersList      = "users:list"
	PermChangePassword = "user:change_password"
	PermStatistics     = "stats:view"
	PermAuditView      = "audit:view"
)

// RolePermissions is the default policy. Only admins review.
var RolePermissions = map[string][]string{
	RoleStudent: {
		PermCategoryView,
		PermApplicationSubmit,
		PermApplicationViewOwn,
		PermGroupMemberOf,
		PermEvidenceView,
		PermScoreViewOwn,
		PermScoreExport,
		PermYearView,
		PermChangePassword,
	},
	RoleTeacher: {
		PermCategoryView,
		PermCategoryViewAll,
		PermGroupSubmit,
		PermGroupViewOwn,
		PermEvidenceView,
		PermYearView,
		PermUsersList,
		PermChangePassword,
	},
	RoleAdmin: {
		"*",
	},
}
