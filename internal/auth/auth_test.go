package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/meritscore/internal/account"
	"github.com/mind-engage/meritscore/internal/db/dbtest"
	"github.com/mind-engage/meritscore/internal/rbac"
)

func newAccounts(t *testing.T) *account.Store {
	t.Helper()
	st := account.NewStore(dbtest.Open(t), account.WithHashCost(bcrypt.MinCost))
	_, _, err := st.BulkUpsert(context.Background(), []account.Row{
		{ID: "s1", Username: "ann", Name: "Ann", Role: rbac.RoleStudent, StudentNumber: "2024001", Password: "pw1"},
	})
	require.NoError(t, err)
	return st
}

func TestIssueAndParse(t *testing.T) {
	a := NewAuthService("secret", time.Hour)
	tok, exp, err := a.IssueJWT("s1", rbac.RoleStudent)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Minute)

	c, err := a.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "s1", c.Subject)
	assert.Equal(t, rbac.RoleStudent, c.Role)

	_, err = NewAuthService("other", time.Hour).Parse(tok)
	assert.Error(t, err)
}

func TestParseRejectsExpired(t *testing.T) {
	a := NewAuthService("secret", time.Minute)
	a.now = func() time.Time { return time.Now().Add(-time.Hour) }
	tok, _, err := a.IssueJWT("s1", rbac.RoleStudent)
	require.NoError(t, err)

	a.now = time.Now
	_, err = a.Parse(tok)
	assert.Error(t, err)
}

func TestJWTMiddleware(t *testing.T) {
	a := NewAuthService("secret", time.Hour)
	var got rbac.Actor
	h := JWTMiddleware(a)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = rbac.ActorFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	tok, _, err := a.IssueJWT("t1", rbac.RoleTeacher)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, rbac.Actor{ID: "t1", Role: rbac.RoleTeacher}, got)
}

func TestAttachRoleFromDB(t *testing.T) {
	accounts := newAccounts(t)
	var role string
	h := AttachRoleFromDB(accounts)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role = rbac.RoleFromContext(r.Context())
	}))

	ctx := rbac.WithRole(rbac.WithSubject(context.Background(), "s1"), rbac.RoleAdmin)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, rbac.RoleStudent, role, "stored role wins over the claim")

	ctx = rbac.WithSubject(context.Background(), "gone")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginAndChangePassword(t *testing.T) {
	accounts := newAccounts(t)
	a := NewAuthService("secret", time.Hour)
	login := LoginHandler(a, accounts)

	rec := httptest.NewRecorder()
	login(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"ann","password":"nope"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	login(rec, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"ann","password":"pw1"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	var out loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "s1", out.User.ID)
	c, err := a.Parse(out.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, rbac.RoleStudent, c.Role)

	change := ChangePasswordHandler(accounts)
	ctx := rbac.WithSubject(context.Background(), "s1")
	body := func(old, next string) *bytes.Reader {
		b, _ := json.Marshal(changePasswordReq{OldPassword: old, NewPassword: next})
		return bytes.NewReader(b)
	}

	rec = httptest.NewRecorder()
	change(rec, httptest.NewRequest(http.MethodPost, "/auth/password", body("wrong", "pw2")).WithContext(ctx))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	change(rec, httptest.NewRequest(http.MethodPost, "/auth/password", body("pw1", "pw2")).WithContext(ctx))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, err = accounts.Authenticate(context.Background(), "ann", "pw2")
	assert.NoError(t, err)
}
