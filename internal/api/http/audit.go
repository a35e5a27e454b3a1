package http

import (
	"net/http"

	"github.com/mind-engage/meritscore/internal/audit"
)

// GET /audit?key=&limit=
func AuditEventsHandler(repo *audit.EventRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := queryInt(r, "limit")
		if err != nil {
			writeError(w, r, err)
			return
		}
		evs, err := repo.List(r.Context(), r.URL.Query().Get("key"), limit)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, evs)
	}
}
