package academicyear_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/meritscore/internal/academicyear"
	"github.com/mind-engage/meritscore/internal/apperr"
	"github.com/mind-engage/meritscore/internal/db/dbtest"
	"github.com/mind-engage/meritscore/internal/ledger"
)

func TestAddListAndCurrent(t *testing.T) {
	h := dbtest.Open(t)
	r := academicyear.NewRegistry(h)
	ctx := context.Background()

	_, ok, err := r.CurrentYear(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.AddYear(ctx, "2023-2024"))
	require.NoError(t, r.AddYear(ctx, "2024-2025"))

	cur, ok, err := r.CurrentYear(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2023-2024", cur, "first year added becomes current")

	years, err := r.ListYears(ctx)
	require.NoError(t, err)
	require.Len(t, years, 2)
	assert.Equal(t, "2024-2025", years[0].Name)
	assert.False(t, years[0].IsCurrent)
	assert.True(t, years[1].IsCurrent)
}

func TestAddYearRejectsDuplicateAndBlank(t *testing.T) {
	r := academicyear.NewRegistry(dbtest.Open(t))
	ctx := context.Background()
	require.NoError(t, r.AddYear(ctx, "2024-2025"))

	assert.True(t, apperr.IsConflict(r.AddYear(ctx, "2024-2025")))
	assert.True(t, apperr.IsValidation(r.AddYear(ctx, "  ")))
}

func TestSetCurrentKeepsExactlyOne(t *testing.T) {
	h := dbtest.Open(t)
	r := academicyear.NewRegistry(h)
	ctx := context.Background()
	for _, y := range []string{"a", "b", "c"} {
		require.NoError(t, r.AddYear(ctx, y))
	}
	require.NoError(t, r.SetCurrent(ctx, "c"))
	require.NoError(t, r.SetCurrent(ctx, "b"))

	var n int
	require.NoError(t, h.QueryRow(`SELECT COUNT(*) FROM academic_years WHERE is_current=1`).Scan(&n))
	assert.Equal(t, 1, n)
	cur, _, err := r.CurrentYear(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b", cur)

	assert.True(t, apperr.IsNotFound(r.SetCurrent(ctx, "zzz")))
}

func TestDeleteYearRefusedWhenReferenced(t *testing.T) {
	h := dbtest.Open(t)
	dbtest.SeedUsers(t, h, dbtest.User{ID: "s1", Role: "student", StudentNumber: "1"})
	r := academicyear.NewRegistry(h)
	ctx := context.Background()
	require.NoError(t, r.AddYear(ctx, "used"))
	require.NoError(t, r.AddYear(ctx, "free"))

	_, err := ledger.NewGuard().Record(ctx, h, []ledger.Record{{StudentID: "s1", CategoryID: 44, Score: 1, Source: ledger.SourceIndividual, AcademicYear: "used"}})
	require.NoError(t, err)

	err = r.DeleteYear(ctx, "used")
	assert.True(t, apperr.IsConflict(err), "got %v", err)

	require.NoError(t, r.DeleteYear(ctx, "free"))
	ok, err := r.Exists(ctx, "free")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, apperr.IsNotFound(r.DeleteYear(ctx, "free")))
}

func TestResolve(t *testing.T) {
	h := dbtest.Open(t)
	dbtest.SeedYears(t, h, "2024-2025", "2023-2024")
	ctx := context.Background()

	got, err := academicyear.Resolve(ctx, h, "")
	require.NoError(t, err)
	assert.Equal(t, "2024-2025", got)

	got, err = academicyear.Resolve(ctx, h, "2023-2024")
	require.NoError(t, err)
	assert.Equal(t, "2023-2024", got)

	_, err = academicyear.Resolve(ctx, h, "1999-2000")
	assert.True(t, apperr.IsNotFound(err))

	empty := dbtest.Open(t)
	got, err = academicyear.Resolve(ctx, empty, "")
	require.NoError(t, err)
	assert.Empty(t, got)
}
