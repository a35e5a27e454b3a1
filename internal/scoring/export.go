package scoring

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/mind-engage/meritscore/internal/rbac"
)

// ExportStudentXLSX writes a student's annotated records and category
// summary as a two-sheet workbook.
func (s *Service) ExportStudentXLSX(ctx context.Context, actor rbac.Actor, studentID, year string, w io.Writer) error {
	const op = "scoring.ExportStudentXLSX"
	if !s.rbac.Has(actor.Role, rbac.PermScoreExport) && !s.rbac.Has(actor.Role, rbac.PermScoreViewAll) {
		return s.rbac.Ensure(actor, op, rbac.PermScoreExport)
	}
	rep, err := s.StudentReport(ctx, actor, studentID, year)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()
	const records, summary = "Records", "Summary"
	if err := f.SetSheetName(f.GetSheetName(0), records); err != nil {
		return err
	}
	rows := [][]any{{"Category", "Main category", "Score", "Source", "Description", "Academic year",
		"Main raw", "Main final", "Limited", "Recorded at"}}
	for _, r := range rep.Records {
		rows = append(rows, []any{r.Category, r.MainCategory, r.Score, r.Source, r.Description, r.AcademicYear,
			r.MainRaw, r.MainFinal, yesNo(r.IsLimited), time.Unix(r.CreatedAt, 0).UTC().Format("2006-01-02 15:04")})
	}
	if err := writeRows(f, records, rows); err != nil {
		return err
	}

	if _, err := f.NewSheet(summary); err != nil {
		return err
	}
	sum := [][]any{
		{"Student", rep.Student.Name},
		{"Student number", rep.Student.StudentNumber},
		{"Academic year", orAll(rep.AcademicYear)},
		{},
		{"Main category", "Cap", "Raw", "Final", "Limited"},
	}
	for _, c := range rep.Categories {
		sum = append(sum, []any{c.Main, c.Cap, c.Raw, c.Final, yesNo(c.IsLimited)})
	}
	sum = append(sum, []any{}, []any{"Total", rep.Total}, []any{"35-point", rep.Scale35}, []any{"Combined", rep.Combined})
	if err := writeRows(f, summary, sum); err != nil {
		return err
	}
	return f.Write(w)
}

// ExportStandingsXLSX writes the standings table.
func (s *Service) ExportStandingsXLSX(ctx context.Context, actor rbac.Actor, q StandingsQuery, w io.Writer) error {
	year, list, err := s.Standings(ctx, actor, q)
	if err != nil {
		return err
	}
	f := excelize.NewFile()
	defer f.Close()
	sheet := "Standings"
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return err
	}
	mains := s.engine.cat.Mains()
	header := []any{"Rank", "Student number", "Name", "College", "Grade", "Class"}
	for _, m := range mains {
		header = append(header, m.Name)
	}
	header = append(header, "Total", "35-point", "Combined", "Records")
	rows := [][]any{{"Academic year", orAll(year)}, header}
	for _, st := range list {
		row := []any{st.Rank, st.StudentNumber, st.Name, st.College, st.Grade, st.ClassName}
		for _, m := range mains {
			row = append(row, st.Categories[m.Name])
		}
		row = append(row, st.Total, st.Scale35, st.Combined, st.Records)
		rows = append(rows, row)
	}
	if err := writeRows(f, sheet, rows); err != nil {
		return err
	}
	return f.Write(w)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		r := row
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			return fmt.Errorf("scoring: write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func orAll(year string) string {
	if year == "" {
		return "all"
	}
	return year
}
