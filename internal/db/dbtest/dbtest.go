// Package dbtest opens throwaway sqlite databases for package tests.
package dbtest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mind-engage/meritscore/internal/db"
)

// Open returns a migrated sqlite database living in t.TempDir.
func Open(t *testing.T) *sql.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "merit.db") + "?mode=rwc&_pragma=busy_timeout(5000)"
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	h, err := db.Open(ctx, db.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h
}

// User is a minimal account row for seeding.
type User struct {
	ID            string
	Username      string
	Name          string
	Role          string
	StudentNumber string
	ClassName     string
	College       string
	Grade         string
}

// SeedUsers inserts accounts without passwords.
func SeedUsers(t *testing.T, h *sql.DB, users ...User) {
	t.Helper()
	for _, u := range users {
		if u.Username == "" {
			u.Username = u.ID
		}
		var num any
		if u.StudentNumber != "" {
			num = u.StudentNumber
		}
		_, err := h.Exec(`INSERT INTO users (id,username,name,role,student_number,class_name,college,grade,created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			u.ID, u.Username, u.Name, u.Role, num, u.ClassName, u.College, u.Grade, time.Now().Unix())
		require.NoError(t, err)
	}
}

// SeedYears inserts academic years; the first one becomes current.
func SeedYears(t *testing.T, h *sql.DB, names ...string) {
	t.Helper()
	for i, n := range names {
		cur := 0
		if i == 0 {
			cur = 1
		}
		_, err := h.Exec(`INSERT INTO academic_years (name,is_current,created_at) VALUES ($1,$2,$3)`, n, cur, time.Now().Unix())
		require.NoError(t, err)
	}
}
