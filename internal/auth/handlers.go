package auth

import (
	"encoding/json"
	"net/http"

	"github.com/mind-engage/meritscore/internal/account"
	"github.com/mind-engage/meritscore/internal/apperr"
	"github.com/mind-engage/meritscore/internal/rbac"
)

type loginResponse struct {
	AccessToken string          `json:"access_token"`
	ExpiresAt   int64           `json:"expires_at"`
	User        account.Account `json:"user"`
}

// POST /auth/login  { "username": "...", "password": "..." }
func LoginHandler(a *AuthService, accounts *account.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		acc, err := accounts.Authenticate(r.Context(), req.Username, req.Password)
		if apperr.IsAuthorization(err) {
			writeUnauthorized(w, "invalid credentials")
			return
		}
		if err != nil {
			http.Error(w, "login failed", http.StatusInternalServerError)
			return
		}
		tok, exp, err := a.IssueJWT(acc.ID, acc.Role)
		if err != nil {
			http.Error(w, "issue token", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(loginResponse{AccessToken: tok, ExpiresAt: exp.Unix(), User: acc})
	}
}

type changePasswordReq struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// POST /auth/password
func ChangePasswordHandler(accounts *account.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := rbac.SubjectFromContext(r.Context())
		if userID == "" {
			writeUnauthorized(w, "unauthorized")
			return
		}
		var req changePasswordReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if err := accounts.ChangePassword(r.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
			status := apperr.HTTPStatus(err)
			msg := err.Error()
			if status == http.StatusInternalServerError {
				msg = "change password failed"
			}
			http.Error(w, msg, status)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
