package http

import (
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/meritscore/internal/storage"
)

// MountEvidence serves stored documents: GET /evidence/* returns the PDF at
// whatever follows /evidence/, or {"url","name"} when ?link=1. Access is
// decided by the evidence:view permission on the route, not by ownership.
func MountEvidence(r chi.Router, ev *storage.EvidenceStore) {
	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		ref := "evidence/" + strings.TrimPrefix(chi.URLParam(r, "*"), "/")
		if r.URL.Query().Get("link") == "1" {
			u, err := ev.Link(r.Context(), ref)
			if err != nil {
				writeError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"url": u, "name": storage.DisplayName(ref)})
			return
		}
		rc, err := ev.Fetch(r.Context(), ref)
		if err != nil {
			writeError(w, r, err)
			return
		}
		defer rc.Close()
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": storage.DisplayName(ref)}))
		_, _ = io.Copy(w, rc)
	})
}
