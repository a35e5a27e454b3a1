// Package application implements the individual application workflow:
// students submit a claim against one leaf category, reviewers approve or
// reject it, and approval writes exactly one score record.
package application

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusWithdrawn Status = "withdrawn"
)

// Editable reports whether the owner may still change content.
func (s Status) Editable() bool { return s == StatusPending || s == StatusRejected }

// Reviewable reports whether a review decision may be applied.
func (s Status) Reviewable() bool { return s == StatusPending || s == StatusRejected }

// ParseStatus accepts the four workflow states.
func ParseStatus(s string) (Status, bool) {
	switch st := Status(s); st {
	case StatusPending, StatusApproved, StatusRejected, StatusWithdrawn:
		return st, true
	}
	return "", false
}

type Decision string

const (
	Approve Decision = "approved"
	Reject  Decision = "rejected"
)

type Application struct {
	ID            string `json:"id"`
	StudentID     string `json:"student_id"`
	CategoryID    int    `json:"category_id"`
	Description   string `json:"description"`
	Score         int    `json:"score"`
	Evidence      string `json:"evidence"`
	Status        Status `json:"status"`
	AcademicYear  string `json:"academic_year"`
	ReviewerID    string `json:"reviewer_id,omitempty"`
	ReviewComment string `json:"review_comment,omitempty"`
	CreatedAt     int64  `json:"created_at"`
	UpdatedAt     int64  `json:"updated_at"`
	ReviewedAt    int64  `json:"reviewed_at,omitempty"`

	Category     string `json:"category,omitempty"`
	MainCategory string `json:"main_category,omitempty"`
}

// SubmitInput is a new claim. Score is a pointer so a missing value can be told from zero.
type SubmitInput struct {
	CategoryID   int    `json:"category_id"`
	Description  string `json:"description"`
	Score        *int   `json:"score"`
	Evidence     string `json:"evidence"`
	AcademicYear string `json:"academic_year"`
}

// EditInput changes selected fields; nil leaves a field untouched.
type EditInput struct {
	CategoryID   *int    `json:"category_id,omitempty"`
	Description  *string `json:"description,omitempty"`
	Score        *int    `json:"score,omitempty"`
	Evidence     *string `json:"evidence,omitempty"`
	AcademicYear *string `json:"academic_year,omitempty"`
}

// ListFilter narrows reviewer listings.
type ListFilter struct {
	Status       Status
	AcademicYear string
	CategoryID   int
	StudentID    string
}
