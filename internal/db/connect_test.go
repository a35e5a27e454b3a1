package db_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/meritscore/internal/db"
	"github.com/mind-engage/meritscore/internal/db/dbtest"
)

func TestParseDriver(t *testing.T) {
	d, err := db.ParseDriver("pgx")
	require.NoError(t, err)
	assert.Equal(t, db.DriverPostgres, d)

	d, err = db.ParseDriver("")
	require.NoError(t, err)
	assert.Equal(t, db.DriverSQLite, d)

	_, err = db.ParseDriver("oracle")
	assert.Error(t, err)
}

func TestScoreRecordTripleIsUnique(t *testing.T) {
	h := dbtest.Open(t)
	dbtest.SeedUsers(t, h, dbtest.User{ID: "u1", Role: "student", StudentNumber: "S1"})

	insert := func(id string) error {
		_, err := h.Exec(`INSERT INTO score_records (id,student_id,category_id,score,source,academic_year,created_at)
			VALUES ($1,'u1',11,2,'individual','2025-2026',0)`, id)
		return err
	}
	require.NoError(t, insert("r1"))
	err := insert("r2")
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err))
	assert.False(t, db.IsUniqueViolation(errors.New("other")))
}

func TestWithTxRollsBackOnError(t *testing.T) {
	h := dbtest.Open(t)
	ctx := context.Background()
	sentinel := errors.New("abort")

	err := db.WithTx(ctx, h, nil, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO academic_years (name,is_current,created_at) VALUES ('2030-2031',0,0)`); err != nil {
			return err
		}
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)

	var n int
	require.NoError(t, h.QueryRow(`SELECT COUNT(*) FROM academic_years`).Scan(&n))
	assert.Zero(t, n)
}

func TestWithTxCommits(t *testing.T) {
	h := dbtest.Open(t)
	ctx := context.Background()

	require.NoError(t, db.WithTx(ctx, h, nil, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO academic_years (name,is_current,created_at) VALUES ('2030-2031',0,0)`)
		return err
	}))

	var n int
	require.NoError(t, h.QueryRow(`SELECT COUNT(*) FROM academic_years`).Scan(&n))
	assert.Equal(t, 1, n)
}
