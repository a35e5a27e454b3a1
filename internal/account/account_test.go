package account_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mind-engage/meritscore/internal/account"
	"github.com/mind-engage/meritscore/internal/apperr"
	"github.com/mind-engage/meritscore/internal/db/dbtest"
)

const roster = `id,username,name,role,student_number,class_name,college,grade,password
s1,ann,Ann,student,2024001,CS-1,Engineering,2024,pw1
s2,bo,Bo,student,2024002,CS-2,Engineering,2024,pw2
s3,cy,Cy,student,2023001,EE-1,Science,2023,pw3
t1,tess,Tess,teacher,,,,,pw4
`

func newStore(t *testing.T) *account.Store {
	t.Helper()
	st := account.NewStore(dbtest.Open(t), account.WithHashCost(bcrypt.MinCost))
	rows, err := account.ParseCSV(strings.NewReader(roster))
	require.NoError(t, err)
	ins, upd, err := st.BulkUpsert(context.Background(), rows)
	require.NoError(t, err)
	require.Equal(t, 4, ins)
	require.Equal(t, 0, upd)
	return st
}

func TestParseCSVRequiresUsername(t *testing.T) {
	_, err := account.ParseCSV(strings.NewReader("id,name\n1,x\n"))
	assert.True(t, apperr.IsValidation(err))
}

func TestBulkUpsertUpdatesExisting(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	ins, upd, err := st.BulkUpsert(ctx, []account.Row{{ID: "s1", Username: "ann", Name: "Ann Lee", Role: "student", StudentNumber: "2024001", ClassName: "CS-9"}})
	require.NoError(t, err)
	assert.Equal(t, 0, ins)
	assert.Equal(t, 1, upd)

	a, err := st.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Ann Lee", a.Name)
	assert.Equal(t, "CS-9", a.ClassName)

	// password kept when not supplied
	_, err = st.Authenticate(ctx, "ann", "pw1")
	assert.NoError(t, err)
}

func TestBulkUpsertIsAtomic(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()
	_, _, err := st.BulkUpsert(ctx, []account.Row{
		{Username: "new1", Role: "student", StudentNumber: "9", Password: "x"},
		{Username: "new2", Role: "wizard", Password: "x"},
	})
	assert.True(t, apperr.IsValidation(err))

	all, err := st.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	_, _, err = st.BulkUpsert(ctx, []account.Row{{Username: "nopass", Role: "student"}})
	assert.True(t, apperr.IsValidation(err))

	_, _, err = st.BulkUpsert(ctx, []account.Row{{Username: "dup", Role: "student", StudentNumber: "2024001", Password: "x"}})
	assert.True(t, apperr.IsConflict(err), "got %v", err)
}

func TestGet(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	a, err := st.Get(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, "2024002", a.StudentNumber)

	_, err = st.Get(ctx, "missing")
	assert.True(t, apperr.IsNotFound(err))
}

func TestListStudentsFilters(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	all, err := st.ListStudents(ctx, account.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "2023001", all[0].StudentNumber)

	eng, err := st.ListStudents(ctx, account.Filter{College: "Engineering", ClassName: "CS-2"})
	require.NoError(t, err)
	require.Len(t, eng, 1)
	assert.Equal(t, "bo", eng[0].Username)

	colleges, grades, classes, err := st.FilterValues(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Engineering", "Science"}, colleges)
	assert.Equal(t, []string{"2023", "2024"}, grades)
	assert.Equal(t, []string{"CS-1", "CS-2", "EE-1"}, classes)

	n, err := st.CountByRole(ctx, "student")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestAuthenticateAndChangePassword(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	a, err := st.Authenticate(ctx, "tess", "pw4")
	require.NoError(t, err)
	assert.Equal(t, "teacher", a.Role)

	_, err = st.Authenticate(ctx, "tess", "wrong")
	assert.True(t, apperr.IsAuthorization(err))
	_, err = st.Authenticate(ctx, "nobody", "pw4")
	assert.True(t, apperr.IsAuthorization(err))

	assert.True(t, apperr.IsAuthorization(st.ChangePassword(ctx, "t1", "bad", "new")))
	assert.True(t, apperr.IsValidation(st.ChangePassword(ctx, "t1", "pw4", "")))
	require.NoError(t, st.ChangePassword(ctx, "t1", "pw4", "fresh"))

	_, err = st.Authenticate(ctx, "tess", "fresh")
	assert.NoError(t, err)
}

func TestResolveStudent(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	a, ok, err := st.Resolve(ctx, " 2024002 ")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "s2", a.ID)
	assert.Equal(t, apperr.StudentRef{StudentNumber: "2024002", Name: "Bo"}, a.Ref())

	_, ok, err = st.Resolve(ctx, "0000")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = st.Resolve(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetRole(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	require.NoError(t, st.SetRole(ctx, "tess", "admin"))
	a, err := st.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "admin", a.Role)

	err = st.SetRole(ctx, "t1", "student")
	assert.True(t, apperr.IsConflict(err), "last admin")

	assert.True(t, apperr.IsValidation(st.SetRole(ctx, "s1", "janitor")))
	assert.True(t, apperr.IsNotFound(st.SetRole(ctx, "nobody", "teacher")))
}
