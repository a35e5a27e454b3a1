package group

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mind-engage/meritscore/internal/apperr"
	"github.com/mind-engage/meritscore/internal/application"
	"github.com/mind-engage/meritscore/internal/db"
)

const groupCols = `g.id,g.teacher_id,COALESCE(u.name,''),g.category_id,g.description,g.evidence,g.status,g.academic_year,
	COALESCE(g.reviewer_id,''),COALESCE(g.review_comment,''),g.created_at,g.updated_at,COALESCE(g.reviewed_at,0),
	(SELECT COUNT(*) FROM group_members m WHERE m.group_id=g.id)`

const groupFrom = ` FROM group_applications g LEFT JOIN users u ON u.id=g.teacher_id`

func scanGroup(row interface{ Scan(...any) error }, extra ...any) (GroupApplication, error) {
	var g GroupApplication
	var st string
	dest := []any{&g.ID, &g.TeacherID, &g.TeacherName, &g.CategoryID, &g.Description, &g.Evidence, &st, &g.AcademicYear,
		&g.ReviewerID, &g.ReviewComment, &g.CreatedAt, &g.UpdatedAt, &g.ReviewedAt, &g.MemberCount}
	err := row.Scan(append(dest, extra...)...)
	g.Status = application.Status(st)
	return g, err
}

func loadGroup(ctx context.Context, q db.Querier, op, id string) (GroupApplication, error) {
	g, err := scanGroup(q.QueryRowContext(ctx, `SELECT `+groupCols+groupFrom+` WHERE g.id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return GroupApplication{}, apperr.NotFound(op, "group application %q not found", id)
	}
	if err != nil {
		return GroupApplication{}, fmt.Errorf("group: load: %w", err)
	}
	return g, nil
}

func insertGroup(ctx context.Context, q db.Querier, g GroupApplication) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO group_applications (id,teacher_id,category_id,description,evidence,status,academic_year,created_at,updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		g.ID, g.TeacherID, g.CategoryID, g.Description, g.Evidence, string(g.Status), g.AcademicYear, g.CreatedAt, g.UpdatedAt)
	if err != nil {
		return fmt.Errorf("group: insert: %w", err)
	}
	return nil
}

func updateGroup(ctx context.Context, q db.Querier, op string, g GroupApplication, prev application.Status) error {
	var reviewedAt any
	if g.ReviewedAt != 0 {
		reviewedAt = g.ReviewedAt
	}
	res, err := q.ExecContext(ctx,
		`UPDATE group_applications SET category_id=$1, description=$2, evidence=$3, status=$4, academic_year=$5,
		   reviewer_id=$6, review_comment=$7, updated_at=$8, reviewed_at=$9
		 WHERE id=$10 AND status=$11`,
		g.CategoryID, g.Description, g.Evidence, string(g.Status), g.AcademicYear,
		nullable(g.ReviewerID), nullable(g.ReviewComment), g.UpdatedAt, reviewedAt, g.ID, string(prev))
	if err != nil {
		return fmt.Errorf("group: update: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.Conflict(op, "group application %s changed concurrently", g.ID)
	}
	return nil
}

type memberRow struct {
	StudentID string
	Score     int
}

func replaceMembers(ctx context.Context, q db.Querier, groupID string, members []memberRow) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM group_members WHERE group_id=$1`, groupID); err != nil {
		return fmt.Errorf("group: clear members: %w", err)
	}
	for i, m := range members {
		if _, err := q.ExecContext(ctx,
			`INSERT INTO group_members (group_id,student_id,score,position) VALUES ($1,$2,$3,$4)`,
			groupID, m.StudentID, m.Score, i); err != nil {
			return fmt.Errorf("group: insert member: %w", err)
		}
	}
	return nil
}

func loadMembers(ctx context.Context, q db.Querier, groupID string) ([]Member, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT m.student_id, COALESCE(u.student_number,''), COALESCE(u.name,''), COALESCE(u.class_name,''), m.score
		 FROM group_members m LEFT JOIN users u ON u.id=m.student_id
		 WHERE m.group_id=$1 ORDER BY m.position`, groupID)
	if err != nil {
		return nil, fmt.Errorf("group: members: %w", err)
	}
	defer rows.Close()
	out := []Member{}
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.StudentID, &m.StudentNumber, &m.Name, &m.ClassName, &m.Score); err != nil {
			return nil, fmt.Errorf("group: scan member: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func listGroups(ctx context.Context, q db.Querier, f ListFilter) ([]GroupApplication, error) {
	query := `SELECT ` + groupCols + groupFrom + ` WHERE 1=1`
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		query += fmt.Sprintf(" AND "+cond, len(args))
	}
	if f.TeacherID != "" {
		add("g.teacher_id=$%d", f.TeacherID)
	}
	if f.Status != "" {
		add("g.status=$%d", string(f.Status))
	}
	if f.AcademicYear != "" {
		add("g.academic_year=$%d", f.AcademicYear)
	}
	query += ` ORDER BY g.created_at DESC, g.id`
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("group: list: %w", err)
	}
	defer rows.Close()
	out := []GroupApplication{}
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("group: scan: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func listForStudent(ctx context.Context, q db.Querier, studentID string) ([]MemberView, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+groupCols+`, gm.score`+groupFrom+`
		 JOIN group_members gm ON gm.group_id=g.id
		 WHERE gm.student_id=$1 ORDER BY g.created_at DESC, g.id`, studentID)
	if err != nil {
		return nil, fmt.Errorf("group: list for student: %w", err)
	}
	defer rows.Close()
	out := []MemberView{}
	for rows.Next() {
		var v MemberView
		g, err := scanGroup(rows, &v.Score)
		if err != nil {
			return nil, fmt.Errorf("group: scan: %w", err)
		}
		v.GroupApplication = g
		out = append(out, v)
	}
	return out, rows.Err()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
