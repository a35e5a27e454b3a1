package http

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/meritscore/internal/account"
	"github.com/mind-engage/meritscore/internal/rbac"
	"github.com/mind-engage/meritscore/internal/scoring"
)

const xlsxType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// studentParam is the {studentID} path value, defaulting to the caller.
func studentParam(r *http.Request) string {
	if id := chi.URLParam(r, "studentID"); id != "" {
		return id
	}
	return rbac.SubjectFromContext(r.Context())
}

// GET /scores/me?academic_year=   GET /scores/students/{studentID}?academic_year=
func StudentReportHandler(svc *scoring.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rep, err := svc.StudentReport(r.Context(), rbac.ActorFromContext(r.Context()), studentParam(r), r.URL.Query().Get("academic_year"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rep)
	}
}

// GET /scores/me/export   GET /scores/students/{studentID}/export
func ExportStudentHandler(svc *scoring.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := studentParam(r)
		var buf bufferedResponse
		if err := svc.ExportStudentXLSX(r.Context(), rbac.ActorFromContext(r.Context()), id, r.URL.Query().Get("academic_year"), &buf); err != nil {
			writeError(w, r, err)
			return
		}
		buf.send(w, fmt.Sprintf("scores-%s.xlsx", id))
	}
}

func standingsQuery(r *http.Request) scoring.StandingsQuery {
	q := r.URL.Query()
	return scoring.StandingsQuery{
		AcademicYear: q.Get("academic_year"),
		College:      q.Get("college"),
		Grade:        q.Get("grade"),
		ClassName:    q.Get("class_name"),
	}
}

// GET /scores/standings?academic_year=&college=&grade=&class_name=
func StandingsHandler(svc *scoring.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		year, list, err := svc.Standings(r.Context(), rbac.ActorFromContext(r.Context()), standingsQuery(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"academic_year": year, "students": list})
	}
}

// GET /scores/standings/export
func ExportStandingsHandler(svc *scoring.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var buf bufferedResponse
		if err := svc.ExportStandingsXLSX(r.Context(), rbac.ActorFromContext(r.Context()), standingsQuery(r), &buf); err != nil {
			writeError(w, r, err)
			return
		}
		buf.send(w, "standings.xlsx")
	}
}

// GET /statistics
func StatisticsHandler(svc *scoring.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := svc.Statistics(r.Context(), rbac.ActorFromContext(r.Context()))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

// GET /students/filters  -> distinct colleges, grades and classes
func StudentFiltersHandler(accounts *account.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		colleges, grades, classes, err := accounts.FilterValues(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string][]string{"colleges": colleges, "grades": grades, "classes": classes})
	}
}
