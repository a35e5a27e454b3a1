package http

import (
	"net/http"

	"github.com/mind-engage/meritscore/internal/category"
	"github.com/mind-engage/meritscore/internal/rbac"
)

// GET /categories  -> the tree visible to the caller's role
func VisibleCategoriesHandler(cat *category.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, cat.VisibleCategories(rbac.RoleFromContext(r.Context())))
	}
}

// GET /categories/all
func AllCategoriesHandler(cat *category.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, cat.AllCategoriesTagged())
	}
}

// GET /categories/teacher-managed
func TeacherManagedCategoriesHandler(cat *category.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, cat.TeacherManagedCategories())
	}
}
