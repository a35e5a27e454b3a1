package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mind-engage/meritscore/internal/apperr"
)

func TestDefaultPolicy(t *testing.T) {
	c := NewChecker(nil)
	assert.True(t, c.Has(RoleStudent, PermApplicationSubmit))
	assert.False(t, c.Has(RoleStudent, PermApplicationReview))
	assert.True(t, c.Has(RoleTeacher, PermGroupSubmit))
	assert.False(t, c.Has(RoleTeacher, PermGroupReview))
	assert.True(t, c.Has(RoleAdmin, PermGroupReview))
	assert.False(t, c.Has("guest", PermCategoryView))
}

func TestWildcardSuffix(t *testing.T) {
	c := NewChecker(map[string][]string{"auditor": {"score:*"}})
	assert.True(t, c.Has("auditor", PermScoreViewAll))
	assert.False(t, c.Has("auditor", PermYearManage))
}

func TestEnsure(t *testing.T) {
	c := NewChecker(nil)
	assert.NoError(t, c.Ensure(Actor{ID: "a1", Role: RoleAdmin}, "op", PermYearManage))

	err := c.Ensure(Actor{ID: "s1", Role: RoleStudent}, "op", PermYearManage)
	assert.True(t, apperr.IsAuthorization(err))

	err = c.Ensure(Actor{Role: RoleAdmin}, "op", PermYearManage)
	assert.True(t, apperr.IsAuthorization(err), "anonymous actors are refused")
}

func TestActorFromContext(t *testing.T) {
	ctx := WithRole(WithSubject(context.Background(), "u1"), RoleTeacher)
	assert.Equal(t, Actor{ID: "u1", Role: RoleTeacher}, ActorFromContext(ctx))
	assert.Equal(t, Actor{}, ActorFromContext(context.Background()))
}

func TestRequireMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := Require(PermYearManage)(ok)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	h.ServeHTTP(rec, req.WithContext(WithRole(req.Context(), RoleStudent)))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req.WithContext(WithRole(req.Context(), RoleAdmin)))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
