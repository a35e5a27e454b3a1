package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/mind-engage/meritscore/internal/config"
	"github.com/mind-engage/meritscore/internal/db/dbtest"
)

func TestDispatch(t *testing.T) {
	h := dbtest.Open(t)
	ctx := context.Background()
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "accounts.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(
		"id,username,name,role,student_number,password\ns1,ann,Ann,student,2024001,pw\ns2,bo,Bo,student,2024002,pw\n"), 0o600))

	var out bytes.Buffer
	run := func(cmd string, args ...string) error {
		out.Reset()
		return dispatch(ctx, config.Config{}, h, cmd, args, &out)
	}

	require.NoError(t, run("import-accounts", csvPath))
	assert.Equal(t, "inserted 2, updated 0\n", out.String())

	require.NoError(t, run("years", "add", "2024-2025"))
	require.NoError(t, run("years", "add", "2025-2026"))
	require.NoError(t, run("years", "current", "2025-2026"))
	require.NoError(t, run("years", "list"))
	assert.Equal(t, "* 2025-2026\n  2024-2025\n", out.String())

	require.NoError(t, run("standings"))
	assert.Contains(t, out.String(), "standings for 2025-2026")
	assert.Contains(t, out.String(), "2024001")

	xlsx := filepath.Join(dir, "standings.xlsx")
	require.NoError(t, run("standings", "-year", "2024-2025", "-xlsx", xlsx))
	f, err := excelize.OpenFile(xlsx)
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue("Standings", "B1")
	require.NoError(t, err)
	assert.Equal(t, "2024-2025", v)

	assert.ErrorIs(t, run("years"), errUsage)
	assert.ErrorIs(t, run("bogus"), errUsage)
	assert.Error(t, run("set-role", "ann", "janitor"))
	require.NoError(t, run("set-role", "ann", "teacher"))
}
