// Package group implements teacher-submitted batch applications: one leaf
// category and year, many students, each with an individual score. Approval
// is all-or-nothing across the batch.
package group

import (
	"github.com/mind-engage/meritscore/internal/application"
)

type GroupApplication struct {
	ID            string             `json:"id"`
	TeacherID     string             `json:"teacher_id"`
	TeacherName   string             `json:"teacher_name,omitempty"`
	CategoryID    int                `json:"category_id"`
	Description   string             `json:"description"`
	Evidence      string             `json:"evidence"`
	Status        application.Status `json:"status"`
	AcademicYear  string             `json:"academic_year"`
	ReviewerID    string             `json:"reviewer_id,omitempty"`
	ReviewComment string             `json:"review_comment,omitempty"`
	CreatedAt     int64              `json:"created_at"`
	UpdatedAt     int64              `json:"updated_at"`
	ReviewedAt    int64              `json:"reviewed_at,omitempty"`
	MemberCount   int                `json:"member_count"`

	Category     string `json:"category,omitempty"`
	MainCategory string `json:"main_category,omitempty"`
}

// Member is one student in a batch.
type Member struct {
	StudentID     string `json:"student_id"`
	StudentNumber string `json:"student_number"`
	Name          string `json:"name"`
	ClassName     string `json:"class_name"`
	Score         int    `json:"score"`
}

// Detail is a batch with its members in roster order.
type Detail struct {
	GroupApplication
	Members []Member `json:"members"`
}

// MemberView is a batch as seen by one of its students.
type MemberView struct {
	GroupApplication
	Score int `json:"score"`
}

type SubmitInput struct {
	CategoryID   int    `json:"category_id"`
	Description  string `json:"description"`
	Evidence     string `json:"evidence"`
	AcademicYear string `json:"academic_year"`
}

// EditInput changes selected fields; nil leaves a field untouched.
type EditInput struct {
	CategoryID   *int    `json:"category_id,omitempty"`
	Description  *string `json:"description,omitempty"`
	Evidence     *string `json:"evidence,omitempty"`
	AcademicYear *string `json:"academic_year,omitempty"`
}

// Result reports how many roster rows became members and which were skipped.
type Result struct {
	Application GroupApplication `json:"application"`
	Added       int              `json:"added"`
	Errors      []string         `json:"errors"`
}

type ListFilter struct {
	TeacherID    string
	Status       application.Status
	AcademicYear string
}
