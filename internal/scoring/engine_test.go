package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/meritscore/internal/category"
	"github.com/mind-engage/meritscore/internal/ledger"
)

func rec(cat, score int) ledger.Record {
	return ledger.Record{StudentID: "s1", CategoryID: cat, Score: score, AcademicYear: "2024-2025"}
}

func find(t *testing.T, rep Report, main string) CategoryScore {
	t.Helper()
	for _, c := range rep.Categories {
		if c.Main == main {
			return c
		}
	}
	t.Fatalf("main %q not in report", main)
	return CategoryScore{}
}

func TestMainCapClampsRawTotal(t *testing.T) {
	e := NewEngine(category.Default())
	rep := e.Compute([]ledger.Record{rec(category.LeafTemporaryPost, 3), rec(category.LeafGovInternship, 2)})

	cs := find(t, rep, category.SocialService)
	assert.Equal(t, 5, cs.Raw)
	assert.Equal(t, 4, cs.Final)
	assert.True(t, cs.IsLimited)
	assert.Equal(t, 4, rep.Total)

	for _, r := range rep.Records {
		assert.Equal(t, 5, r.MainRaw)
		assert.Equal(t, 4, r.MainFinal)
		assert.True(t, r.IsLimited)
		assert.Equal(t, category.SocialService, r.MainCategory)
	}
}

func TestOverrideTakesBestSingleRecord(t *testing.T) {
	e := NewEngine(category.Default())
	rep := e.Compute([]ledger.Record{
		rec(category.LeafStudentUnion, 2), rec(category.LeafClub, 3), rec(category.LeafClassCommittee, 1),
	})
	cs := find(t, rep, category.Appointments)
	assert.True(t, cs.Override)
	assert.Equal(t, 3, cs.Final)
	assert.Equal(t, 6, cs.Raw)

	// lower or equal additions change nothing
	more := e.Compute([]ledger.Record{
		rec(category.LeafStudentUnion, 2), rec(category.LeafClub, 3), rec(category.LeafClassCommittee, 1),
		rec(category.LeafClub, 3), rec(category.LeafStudentUnion, 1),
	})
	assert.Equal(t, 3, find(t, more, category.Appointments).Final)

	// a higher record raises the final up to the cap
	higher := e.Compute([]ledger.Record{rec(category.LeafClub, 3), rec(category.LeafStudentUnion, 9)})
	assert.Equal(t, 4, find(t, higher, category.Appointments).Final)
}

func TestLeafSubCap(t *testing.T) {
	e := NewEngine(category.Default())
	rep := e.Compute([]ledger.Record{
		rec(category.LeafServiceHours, 1), rec(category.LeafServiceHours, 1), rec(category.LeafServiceHours, 1),
		rec(category.LeafTemporaryPost, 1),
	})
	cs := find(t, rep, category.SocialService)
	require.Len(t, cs.Leaves, 2)
	assert.Equal(t, "Service Hours", cs.Leaves[0].Leaf)
	assert.Equal(t, 3, cs.Leaves[0].Raw)
	assert.Equal(t, 1, cs.Leaves[0].Contribution)
	assert.Equal(t, 3, cs.Leaves[0].Records)
	assert.Equal(t, 2, cs.Raw)
	assert.Equal(t, 2, cs.Final)
	assert.False(t, cs.IsLimited)
}

func TestScale35View(t *testing.T) {
	e := NewEngine(category.Default())
	// finals: research 10, awards 5, arts 6, appointments 4, social 4, political 3, collective 3 = 35
	// plus deduction of 2
	recs := []ledger.Record{
		rec(category.LeafPaper, 12),
		rec(category.LeafNationalAward, 5),
		rec(category.LeafArtsContest, 6),
		rec(category.LeafClub, 4),
		rec(category.LeafTemporaryPost, 4),
		rec(category.LeafPoliticalTheory, 3),
		rec(category.LeafCollective, 3),
		rec(category.LeafDeduction, -2),
	}
	rep := e.Compute(recs)
	assert.Equal(t, 35, rep.PositiveSum)
	assert.Equal(t, 2, rep.Deduction)
	assert.Equal(t, 33, rep.Scale35)
	assert.Equal(t, 100, rep.Combined)
	assert.Equal(t, 33, rep.Total)

	ded := find(t, rep, category.Deductions)
	assert.True(t, ded.Deduction)
	assert.Equal(t, -2, ded.Final)
	assert.False(t, ded.IsLimited)
}

func TestScale35ClampsAtTop(t *testing.T) {
	cfg := category.DefaultConfig()
	for i := range cfg.Mains {
		if cfg.Mains[i].Name == category.AcademicResearch {
			cfg.Mains[i].Cap = 40
		}
	}
	cat, err := category.New(cfg)
	require.NoError(t, err)
	rep := NewEngine(cat).Compute([]ledger.Record{rec(category.LeafPaper, 40), rec(category.LeafDeduction, -2)})

	assert.Equal(t, 40, rep.PositiveSum)
	assert.Equal(t, 2, rep.Deduction)
	assert.Equal(t, 35, rep.Scale35)
	assert.Equal(t, 100, rep.Combined)
}

func TestPositiveDeductionRecordsContributeNothing(t *testing.T) {
	e := NewEngine(category.Default())
	rep := e.Compute([]ledger.Record{rec(category.LeafDeduction, 3)})
	cs := find(t, rep, category.Deductions)
	assert.Equal(t, 0, cs.Final)
	assert.True(t, cs.IsLimited)
	assert.Equal(t, 0, rep.Deduction)
	assert.Equal(t, 0, rep.Total)
}

func TestTotalStaysWithinBounds(t *testing.T) {
	cfg := category.DefaultConfig()
	for i := range cfg.Mains {
		if cfg.Mains[i].Cap > 0 {
			cfg.Mains[i].Cap = 1000
		}
	}
	cat, err := category.New(cfg)
	require.NoError(t, err)
	e := NewEngine(cat)

	rep := e.Compute([]ledger.Record{rec(category.LeafPaper, 500), rec(category.LeafNationalAward, 500)})
	assert.Equal(t, 100, rep.Total)

	neg := e.Compute([]ledger.Record{rec(category.LeafDeduction, -50), rec(category.LeafPaper, 1)})
	assert.Equal(t, 0, neg.Total)
	assert.Equal(t, 0, neg.Scale35)
	assert.Equal(t, 70, neg.Combined)
}

func TestUnknownCategoryUsesDefaultCap(t *testing.T) {
	e := NewEngine(category.Default())
	rep := e.Compute([]ledger.Record{rec(999, 120), rec(category.LeafPaper, 2)})
	require.Len(t, rep.Categories, 2)
	assert.Equal(t, category.AcademicResearch, rep.Categories[0].Main)
	unk := rep.Categories[1]
	assert.Equal(t, "category 999", unk.Main)
	assert.Equal(t, 100, unk.Cap)
	assert.Equal(t, 100, unk.Final)
	assert.Equal(t, 100, rep.Total)
}

func TestRecordOriginAndCategoryOrder(t *testing.T) {
	e := NewEngine(category.Default())
	rep := e.Compute([]ledger.Record{
		rec(category.LeafClub, 2),
		rec(category.LeafCompetition, 3),
		rec(category.LeafPaper, 1),
		rec(category.LeafPoliticalTheory, 1),
	})
	require.Len(t, rep.Records, 4)
	assert.Equal(t, category.OriginTeacher, rep.Records[0].Origin)
	assert.Equal(t, category.OriginTeacher, rep.Records[1].Origin)
	assert.Equal(t, category.OriginStudent, rep.Records[2].Origin)
	assert.Equal(t, "Club", rep.Records[0].Category)

	got := []string{}
	for _, c := range rep.Categories {
		got = append(got, c.Main)
	}
	assert.Equal(t, []string{category.PoliticalTheory, category.AcademicResearch, category.Appointments}, got)
	assert.Equal(t, category.OriginTeacher, find(t, rep, category.Appointments).Origin)
	assert.Equal(t, category.OriginStudent, find(t, rep, category.AcademicResearch).Origin)
}

func TestComputeIsDeterministic(t *testing.T) {
	e := NewEngine(category.Default())
	recs := []ledger.Record{
		rec(category.LeafPaper, 4), rec(category.LeafPatent, 3), rec(category.LeafMonograph, 5),
		rec(category.LeafServiceHours, 1), rec(category.LeafServiceHours, 1), rec(category.LeafClub, 2),
		rec(category.LeafCityAward, 2), rec(category.LeafDeduction, -1),
	}
	first := e.Compute(recs)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, e.Compute(recs))
	}
}

func TestEmptyRecordSet(t *testing.T) {
	rep := NewEngine(category.Default()).Compute(nil)
	assert.Empty(t, rep.Categories)
	assert.Empty(t, rep.Records)
	assert.Equal(t, 0, rep.Total)
	assert.Equal(t, 70, rep.Combined)
}
