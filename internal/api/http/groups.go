package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/meritscore/internal/apperr"
	"github.com/mind-engage/meritscore/internal/application"
	"github.com/mind-engage/meritscore/internal/category"
	"github.com/mind-engage/meritscore/internal/group"
	"github.com/mind-engage/meritscore/internal/importer"
	"github.com/mind-engage/meritscore/internal/rbac"
	"github.com/mind-engage/meritscore/internal/storage"
)

// rosterRows parses the "roster" form file (.csv or .xlsx). A missing file yields nil rows.
func rosterRows(r *http.Request) ([]importer.Row, error) {
	f, hdr, err := r.FormFile("roster")
	if err == http.ErrMissingFile {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Validation("http.roster", "bad roster upload: %v", err)
	}
	defer f.Close()
	return importer.Parse(f, hdr.Filename)
}

// POST /groups  multipart: category_id, description, academic_year, evidence (PDF), roster (CSV/XLSX)
func SubmitGroupHandler(svc *group.Service, cat *category.Catalog, ev *storage.EvidenceStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "http.SubmitGroup"
		actor := rbac.ActorFromContext(r.Context())
		if err := r.ParseMultipartForm(maxFormMemory); err != nil {
			writeError(w, r, apperr.Validation(op, "multipart form required"))
			return
		}
		catID, err := formInt(r, "category_id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		if catID == nil {
			writeError(w, r, apperr.Validation(op, "category required"))
			return
		}
		if err := ensureVisible(cat, op, actor, *catID); err != nil {
			writeError(w, r, err)
			return
		}
		rows, err := rosterRows(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if rows == nil {
			writeError(w, r, apperr.Validation(op, "roster file required"))
			return
		}
		if err := svc.CheckCooldown(r.Context(), actor); err != nil {
			writeError(w, r, err)
			return
		}
		ref, _, err := storeEvidence(r, ev)
		if err != nil {
			writeError(w, r, err)
			return
		}
		res, err := svc.Submit(r.Context(), actor, group.SubmitInput{
			CategoryID:   *catID,
			Description:  r.FormValue("description"),
			Evidence:     ref,
			AcademicYear: r.FormValue("academic_year"),
		}, rows)
		if err != nil {
			discardEvidence(r, ev, ref)
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, res)
	}
}

// PATCH /groups/{id}  multipart; a new roster replaces all members
func EditGroupHandler(svc *group.Service, cat *category.Catalog, ev *storage.EvidenceStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "http.EditGroup"
		actor := rbac.ActorFromContext(r.Context())
		var in group.EditInput
		var rows []importer.Row
		var ref string
		if isMultipart(r) {
			if err := r.ParseMultipartForm(maxFormMemory); err != nil {
				writeError(w, r, apperr.Validation(op, "bad multipart form"))
				return
			}
			var err error
			if in.CategoryID, err = formInt(r, "category_id"); err != nil {
				writeError(w, r, err)
				return
			}
			in.Description = formString(r, "description")
			in.AcademicYear = formString(r, "academic_year")
			if rows, err = rosterRows(r); err != nil {
				writeError(w, r, err)
				return
			}
			if in.CategoryID != nil {
				if err := ensureVisible(cat, op, actor, *in.CategoryID); err != nil {
					writeError(w, r, err)
					return
				}
			}
			stored, ok, err := storeEvidence(r, ev)
			if err != nil {
				writeError(w, r, err)
				return
			}
			if ok {
				ref = stored
				in.Evidence = &ref
			}
		} else if err := decodeJSON(r, &in); err != nil {
			writeError(w, r, err)
			return
		} else if in.CategoryID != nil {
			if err := ensureVisible(cat, op, actor, *in.CategoryID); err != nil {
				writeError(w, r, err)
				return
			}
		}
		res, err := svc.Edit(r.Context(), actor, chi.URLParam(r, "id"), in, rows)
		if err != nil {
			discardEvidence(r, ev, ref)
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// POST /groups/{id}/withdraw
func WithdrawGroupHandler(svc *group.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, err := svc.Withdraw(r.Context(), rbac.ActorFromContext(r.Context()), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, g)
	}
}

// POST /groups/{id}/review
func ReviewGroupHandler(svc *group.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req reviewReq
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		g, err := svc.Review(r.Context(), rbac.ActorFromContext(r.Context()), chi.URLParam(r, "id"), req.Decision, req.Comment)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, g)
	}
}

// GET /groups/{id}
func GetGroupHandler(svc *group.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := svc.Get(r.Context(), rbac.ActorFromContext(r.Context()), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

// GET /groups/mine
func ListOwnGroupsHandler(svc *group.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gs, err := svc.ListOwn(r.Context(), rbac.ActorFromContext(r.Context()))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, gs)
	}
}

// GET /groups?status=&academic_year=&teacher_id=
func ListGroupsHandler(svc *group.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		f := group.ListFilter{TeacherID: q.Get("teacher_id"), AcademicYear: q.Get("academic_year")}
		if s := q.Get("status"); s != "" {
			st, ok := application.ParseStatus(s)
			if !ok {
				writeError(w, r, apperr.Validation("http.ListGroups", "unknown status %q", s))
				return
			}
			f.Status = st
		}
		gs, err := svc.ListAll(r.Context(), rbac.ActorFromContext(r.Context()), f)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, gs)
	}
}

// GET /groups/member  -> batches naming the calling student
func MemberGroupsHandler(svc *group.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vs, err := svc.ListForStudent(r.Context(), rbac.ActorFromContext(r.Context()))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, vs)
	}
}
