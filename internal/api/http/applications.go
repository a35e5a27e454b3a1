package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/meritscore/internal/apperr"
	"github.com/mind-engage/meritscore/internal/application"
	"github.com/mind-engage/meritscore/internal/category"
	"github.com/mind-engage/meritscore/internal/rbac"
	"github.com/mind-engage/meritscore/internal/storage"
)

const maxFormMemory = 32 << 20

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// storeEvidence saves the "evidence" form file when present.
func storeEvidence(r *http.Request, ev *storage.EvidenceStore) (ref string, ok bool, err error) {
	f, hdr, err := r.FormFile("evidence")
	if err == http.ErrMissingFile {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperr.Validation("http.evidence", "bad evidence upload: %v", err)
	}
	defer f.Close()
	ref, err = ev.Store(r.Context(), f, hdr.Filename)
	return ref, err == nil, err
}

// discardEvidence drops a document stored for a request that then failed.
func discardEvidence(r *http.Request, ev *storage.EvidenceStore, ref string) {
	if ref == "" {
		return
	}
	if err := ev.Discard(r.Context(), ref); err != nil {
		slog.WarnContext(r.Context(), "evidence cleanup failed", "ref", ref, "err", err)
	}
}

func formInt(r *http.Request, key string) (*int, error) {
	v := strings.TrimSpace(r.FormValue(key))
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, apperr.Validation("http.form", "%s must be an integer", key)
	}
	return &n, nil
}

func formString(r *http.Request, key string) *string {
	if _, ok := r.MultipartForm.Value[key]; !ok {
		return nil
	}
	v := r.FormValue(key)
	return &v
}

func ensureVisible(cat *category.Catalog, op string, actor rbac.Actor, id int) error {
	if !cat.IsVisible(actor.Role, id) {
		return apperr.Forbidden(op, "category %d is not available to %s accounts", id, actor.Role)
	}
	return nil
}

// POST /applications  multipart: category_id, description, score, academic_year, evidence (PDF)
func SubmitApplicationHandler(svc *application.Service, cat *category.Catalog, ev *storage.EvidenceStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "http.SubmitApplication"
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
		score, err := formInt(r, "score")
		if err != nil {
			writeError(w, r, err)
			return
		}
		ref, _, err := storeEvidence(r, ev)
		if err != nil {
			writeError(w, r, err)
			return
		}
		app, err := svc.Submit(r.Context(), actor, application.SubmitInput{
			CategoryID:   *catID,
			Description:  r.FormValue("description"),
			Score:        score,
			Evidence:     ref,
			AcademicYear: r.FormValue("academic_year"),
		})
		if err != nil {
			discardEvidence(r, ev, ref)
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, app)
	}
}

// PATCH /applications/{id}  multipart (optional new evidence) or JSON EditInput
func EditApplicationHandler(svc *application.Service, cat *category.Catalog, ev *storage.EvidenceStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "http.EditApplication"
		actor := rbac.ActorFromContext(r.Context())
		var in application.EditInput
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
			if in.Score, err = formInt(r, "score"); err != nil {
				writeError(w, r, err)
				return
			}
			in.Description = formString(r, "description")
			in.AcademicYear = formString(r, "academic_year")
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
		app, err := svc.Edit(r.Context(), actor, chi.URLParam(r, "id"), in)
		if err != nil {
			discardEvidence(r, ev, ref)
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, app)
	}
}

// POST /applications/{id}/withdraw
func WithdrawApplicationHandler(svc *application.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		app, err := svc.Withdraw(r.Context(), rbac.ActorFromContext(r.Context()), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, app)
	}
}

type reviewReq struct {
	Decision application.Decision `json:"decision"`
	Comment  string               `json:"comment"`
}

// POST /applications/{id}/review  { "decision": "approved|rejected", "comment": "..." }
func ReviewApplicationHandler(svc *application.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req reviewReq
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		app, err := svc.Review(r.Context(), rbac.ActorFromContext(r.Context()), chi.URLParam(r, "id"), req.Decision, req.Comment)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, app)
	}
}

// GET /applications/{id}
func GetApplicationHandler(svc *application.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		app, err := svc.Get(r.Context(), rbac.ActorFromContext(r.Context()), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, app)
	}
}

// GET /applications/mine?category_id=
func ListOwnApplicationsHandler(svc *application.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		catID, err := queryInt(r, "category_id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		apps, err := svc.ListOwn(r.Context(), rbac.ActorFromContext(r.Context()), catID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, apps)
	}
}

// GET /applications?status=&academic_year=&category_id=&student_id=
func ListApplicationsHandler(svc *application.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		f := application.ListFilter{AcademicYear: q.Get("academic_year"), StudentID: q.Get("student_id")}
		if s := q.Get("status"); s != "" {
			st, ok := application.ParseStatus(s)
			if !ok {
				writeError(w, r, apperr.Validation("http.ListApplications", "unknown status %q", s))
				return
			}
			f.Status = st
		}
		var err error
		if f.CategoryID, err = queryInt(r, "category_id"); err != nil {
			writeError(w, r, err)
			return
		}
		apps, err := svc.ListAll(r.Context(), rbac.ActorFromContext(r.Context()), f)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, apps)
	}
}
