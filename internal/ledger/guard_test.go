package ledger_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/meritscore/internal/apperr"
	"github.com/mind-engage/meritscore/internal/db"
	"github.com/mind-engage/meritscore/internal/db/dbtest"
	"github.com/mind-engage/meritscore/internal/ledger"
)

func seed(t *testing.T) *sql.DB {
	h := dbtest.Open(t)
	dbtest.SeedUsers(t, h,
		dbtest.User{ID: "s1", Role: "student", StudentNumber: "2024001", Name: "Ann"},
		dbtest.User{ID: "s2", Role: "student", StudentNumber: "2024002", Name: "Bo"},
	)
	return h
}

func TestGuardCheckAndRecord(t *testing.T) {
	h := seed(t)
	ctx := context.Background()
	g := ledger.NewGuard()

	hit, err := g.Check(ctx, h, ledger.Triple{StudentID: "s1", CategoryID: 44, AcademicYear: "2024-2025"})
	require.NoError(t, err)
	assert.False(t, hit)

	recs, err := g.Record(ctx, h, []ledger.Record{{
		StudentID: "s1", CategoryID: 44, Score: 3, Source: ledger.SourceIndividual,
		AcademicYear: "2024-2025", ApplicationID: "app-1",
	}})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.NotEmpty(t, recs[0].ID)
	assert.NotZero(t, recs[0].CreatedAt)

	hit, err = g.Check(ctx, h, recs[0].Triple())
	require.NoError(t, err)
	assert.True(t, hit)

	// other year and other category are independent
	hit, err = g.Check(ctx, h, ledger.Triple{StudentID: "s1", CategoryID: 44, AcademicYear: "2025-2026"})
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestGuardRecordDuplicateIsConflict(t *testing.T) {
	h := seed(t)
	ctx := context.Background()
	g := ledger.NewGuard()
	rec := ledger.Record{StudentID: "s1", CategoryID: 44, Score: 3, Source: ledger.SourceIndividual, AcademicYear: "2024-2025"}

	_, err := g.Record(ctx, h, []ledger.Record{rec})
	require.NoError(t, err)
	_, err = g.Record(ctx, h, []ledger.Record{rec})
	assert.True(t, apperr.IsConflict(err), "got %v", err)
}

func TestGuardRecordRollsBackWholeBatch(t *testing.T) {
	h := seed(t)
	ctx := context.Background()
	g := ledger.NewGuard()
	_, err := g.Record(ctx, h, []ledger.Record{{StudentID: "s2", CategoryID: 72, Score: 2, Source: ledger.SourceGroup, AcademicYear: "y"}})
	require.NoError(t, err)

	err = db.WithTx(ctx, h, nil, func(tx *sql.Tx) error {
		_, err := g.Record(ctx, tx, []ledger.Record{
			{StudentID: "s1", CategoryID: 72, Score: 2, Source: ledger.SourceGroup, AcademicYear: "y"},
			{StudentID: "s2", CategoryID: 72, Score: 2, Source: ledger.SourceGroup, AcademicYear: "y"},
		})
		return err
	})
	require.Error(t, err)

	recs, err := ledger.NewStore(h).ListByYear(ctx, "y")
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestGuardConflictingKeepsOrder(t *testing.T) {
	h := seed(t)
	ctx := context.Background()
	g := ledger.NewGuard()
	_, err := g.Record(ctx, h, []ledger.Record{
		{StudentID: "s2", CategoryID: 72, Score: 2, Source: ledger.SourceGroup, AcademicYear: "y"},
	})
	require.NoError(t, err)

	got, err := g.Conflicting(ctx, h, 72, "y", []string{"s1", "s2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"s2"}, got)
}

func TestGuardRejectsMissingYear(t *testing.T) {
	h := seed(t)
	_, err := ledger.NewGuard().Record(context.Background(), h, []ledger.Record{{StudentID: "s1", CategoryID: 44, Score: 1}})
	assert.True(t, apperr.IsValidation(err))
}

func TestStoreListByStudent(t *testing.T) {
	h := seed(t)
	ctx := context.Background()
	g := ledger.NewGuard()
	_, err := g.Record(ctx, h, []ledger.Record{
		{StudentID: "s1", CategoryID: 44, Score: 3, Source: ledger.SourceIndividual, AcademicYear: "a"},
		{StudentID: "s1", CategoryID: 44, Score: 2, Source: ledger.SourceIndividual, AcademicYear: "b"},
		{StudentID: "s2", CategoryID: 44, Score: 1, Source: ledger.SourceIndividual, AcademicYear: "a"},
	})
	require.NoError(t, err)

	st := ledger.NewStore(h)
	all, err := st.ListByStudent(ctx, "s1", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	one, err := st.ListByStudent(ctx, "s1", "b")
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, 2, one[0].Score)

	total, err := st.TotalScore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, total)
}
