package http

import (
	"bufio"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/meritscore/internal/account"
	"github.com/mind-engage/meritscore/internal/apperr"
)

// POST /users/bulk  multipart file= (CSV or JSON) or a raw JSON array body
func BulkUpsertUsersHandler(accounts *account.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "http.BulkUpsertUsers"
		var rows []account.Row
		if isMultipart(r) {
			f, _, err := r.FormFile("file")
			if err != nil {
				writeError(w, r, apperr.Validation(op, "file required"))
				return
			}
			defer f.Close()
			// sniff CSV vs JSON by the first non-space byte
			br := bufio.NewReader(f)
			first, err := firstNonSpace(br)
			if err != nil {
				writeError(w, r, apperr.Validation(op, "empty file"))
				return
			}
			if first == '[' {
				if err := json.NewDecoder(br).Decode(&rows); err != nil {
					writeError(w, r, apperr.Validation(op, "bad json: %v", err))
					return
				}
			} else if rows, err = account.ParseCSV(br); err != nil {
				writeError(w, r, err)
				return
			}
		} else if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
			writeError(w, r, apperr.Validation(op, "expected JSON array or multipart file"))
			return
		}
		if len(rows) == 0 {
			writeJSON(w, http.StatusOK, map[string]int{"inserted": 0, "updated": 0})
			return
		}
		ins, upd, err := accounts.BulkUpsert(r.Context(), rows)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"inserted": ins, "updated": upd})
	}
}

// firstNonSpace peeks past whitespace and a UTF-8 byte order mark.
func firstNonSpace(br *bufio.Reader) (byte, error) {
	for i := 1; ; i++ {
		b, err := br.Peek(i)
		if err != nil {
			return 0, err
		}
		switch c := b[i-1]; c {
		case ' ', '\t', '\r', '\n', 0xEF, 0xBB, 0xBF:
		default:
			return c, nil
		}
	}
}

// GET /users?role=
func ListUsersHandler(accounts *account.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := accounts.List(r.Context(), r.URL.Query().Get("role"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// PUT /users/{userID}/role  { "role": "student|teacher|admin" }
func UpdateUserRoleHandler(accounts *account.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Role string `json:"role"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if err := accounts.SetRole(r.Context(), chi.URLParam(r, "userID"), req.Role); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
