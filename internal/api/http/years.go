package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/meritscore/internal/academicyear"
)

// GET /years
func ListYearsHandler(reg *academicyear.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		years, err := reg.ListYears(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, years)
	}
}

// GET /years/current
func CurrentYearHandler(reg *academicyear.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name, ok, err := reg.CurrentYear(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"name": name, "set": ok})
	}
}

// POST /years  { "name": "2024-2025" }
func AddYearHandler(reg *academicyear.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name string `json:"name"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if err := reg.AddYear(r.Context(), req.Name); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}
}

// PUT /years/{name}/current
func SetCurrentYearHandler(reg *academicyear.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := reg.SetCurrent(r.Context(), chi.URLParam(r, "name")); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// DELETE /years/{name}
func DeleteYearHandler(reg *academicyear.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := reg.DeleteYear(r.Context(), chi.URLParam(r, "name")); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
