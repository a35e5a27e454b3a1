package importer

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/mind-engage/meritscore/internal/apperr"
)

func TestParseCSV(t *testing.T) {
	in := "Student_Number,Name,Class,Score\n2024001,Ann,CS-1,5\n\n2024002 , Bo,CS-1,3.0\n"
	rows, err := Parse(strings.NewReader(in), "members.CSV")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, Row{Line: 2, Identifier: "2024001", Name: "Ann", Value: "5"}, rows[0])
	assert.Equal(t, "2024002", rows[1].Identifier)

	n, err := rows[1].Score()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestParseCSVLegacyHeaders(t *testing.T) {
	in := "学号,姓名,班级,分值\nS1,Ann,1,2\n"
	rows, err := ParseCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "S1", rows[0].Identifier)
}

func TestMissingColumn(t *testing.T) {
	_, err := ParseCSV(strings.NewReader("student_number,name\nS1,Ann\n"))
	assert.True(t, apperr.IsValidation(err))
	assert.Contains(t, err.Error(), "score")
}

func TestUnsupportedFormat(t *testing.T) {
	_, err := Parse(strings.NewReader("x"), "members.xls")
	assert.True(t, apperr.IsValidation(err))
	_, err = Parse(strings.NewReader("x"), "members")
	assert.True(t, apperr.IsValidation(err))
}

func TestCorruptXLSX(t *testing.T) {
	_, err := Parse(strings.NewReader("definitely not a zip"), "members.xlsx")
	assert.True(t, apperr.IsValidation(err))
}

func TestParseXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"student_number", "name", "score"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"S1", "Ann", 5}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"S2", "Bo", 2}))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())

	rows, err := Parse(&buf, "members.xlsx")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Bo", rows[1].Name)
	assert.Equal(t, 3, rows[1].Line)
	n, err := rows[0].Score()
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestScoreRejectsFractions(t *testing.T) {
	_, err := Row{Line: 4, Value: "2.5"}.Score()
	assert.Error(t, err)
	_, err = Row{Line: 4, Value: "abc"}.Score()
	assert.Error(t, err)
	n, err := Row{Value: "-2"}.Score()
	require.NoError(t, err)
	assert.Equal(t, -2, n)
}

func TestScoreRejectsOutOfRange(t *testing.T) {
	for _, v := range []string{"1e30", "99999999999", "-2147483649", "+Inf"} {
		_, err := Row{Line: 7, Value: v}.Score()
		if assert.Error(t, err, v) {
			assert.Contains(t, err.Error(), "line 7")
		}
	}
	n, err := Row{Value: "2147483647"}.Score()
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt32, n)
}
