package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindsMatchWithErrorsIs(t *testing.T) {
	err := Conflict("group.Review", "duplicate records")
	wrapped := fmt.Errorf("review: %w", err)

	assert.True(t, IsConflict(wrapped))
	assert.False(t, IsValidation(wrapped))
	assert.Equal(t, http.StatusConflict, HTTPStatus(wrapped))
}

func TestErrorMessageListsConflicts(t *testing.T) {
	err := Conflict("group.Review", "duplicate records")
	err.Conflicts = []StudentRef{{StudentNumber: "S1", Name: "Ann"}, {StudentNumber: "S2", Name: "Bo"}}

	assert.Equal(t, "group.Review: duplicate records [S1 Ann, S2 Bo]", err.Error())
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(ErrValidation, "evidence.Store", "cannot store evidence", cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrValidation)
	got, ok := As(fmt.Errorf("outer: %w", err))
	assert.True(t, ok)
	assert.Equal(t, "evidence.Store", got.Op)
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(Validation("op", "bad %s", "x")))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(Forbidden("op", "no")))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(NotFound("op", "missing")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
	assert.Equal(t, http.StatusOK, HTTPStatus(nil))
}
