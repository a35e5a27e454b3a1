// Package importer parses member rosters uploaded with group applications.
// A roster is a CSV or XLSX table with a student number, a name and a score
// column; header names are matched case-insensitively.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mind-engage/meritscore/internal/apperr"
)

const op = "importer.Parse"

// Row is one roster line. Line is 1-based and counts the header.
type Row struct {
	Line       int    `json:"line"`
	Identifier string `json:"student_number"`
	Name       string `json:"name"`
	Value      string `json:"score"`
}

// Score parses Value as a 32-bit integer. Integral decimals such as "5.0" are accepted.
func (r Row) Score() (int, error) {
	v := strings.TrimSpace(r.Value)
	f, err := strconv.ParseFloat(v, 64)
	if n, aerr := strconv.ParseInt(v, 10, 64); aerr == nil {
		f, err = float64(n), nil
	}
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("line %d: score %q is not an integer", r.Line, r.Value)
	}
	if f < math.MinInt32 || f > math.MaxInt32 {
		return 0, fmt.Errorf("line %d: score %q is out of range", r.Line, r.Value)
	}
	return int(f), nil
}

var columns = map[string][]string{
	"identifier": {"student_number", "student number", "student_id", "学号"},
	"name":       {"name", "姓名"},
	"value":      {"score", "value", "分值"},
}

// Parse picks the container format from filename's extension.
func Parse(r io.Reader, filename string) ([]Row, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return ParseCSV(r)
	case ".xlsx", ".xlsm":
		return ParseXLSX(r)
	default:
		return nil, apperr.Validation(op, "unsupported roster format %q, upload CSV or XLSX", filepath.Ext(filename))
	}
}

func ParseCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	var table [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperr.Wrap(apperr.ErrValidation, op, "cannot read CSV roster", err)
		}
		table = append(table, rec)
	}
	return fromTable(table)
}

// ParseXLSX reads the first sheet of a workbook.
func ParseXLSX(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrValidation, op, "cannot open XLSX roster", err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperr.Validation(op, "workbook has no sheets")
	}
	table, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrValidation, op, "cannot read XLSX roster", err)
	}
	return fromTable(table)
}

func fromTable(table [][]string) ([]Row, error) {
	if len(table) == 0 {
		return nil, apperr.Validation(op, "roster is empty")
	}
	idx := map[string]int{}
	for i, h := range table[0] {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		for field, aliases := range columns {
			for _, a := range aliases {
				if h == a {
					if _, seen := idx[field]; !seen {
						idx[field] = i
					}
				}
			}
		}
	}
	for _, field := range []string{"identifier", "name", "value"} {
		if _, ok := idx[field]; !ok {
			return nil, apperr.Validation(op, "roster is missing required column %q", columns[field][0])
		}
	}
	cell := func(rec []string, field string) string {
		i := idx[field]
		if i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}
	rows := []Row{}
	for n, rec := range table[1:] {
		row := Row{Line: n + 2, Identifier: cell(rec, "identifier"), Name: cell(rec, "name"), Value: cell(rec, "value")}
		if row.Identifier == "" && row.Name == "" && row.Value == "" {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}
