// Package ledger stores approved score records and guards the rule that a
// (student, leaf category, academic year) triple holds at most one of them.
package ledger

// Record sources.
const (
	SourceIndividual = "individual application"
	SourceGroup      = "group application"
)

// Record is an approved, immutable score contribution.
// ApplicationID and GroupApplicationID are mutually exclusive.
type Record struct {
	ID                 string `json:"id"`
	StudentID          string `json:"student_id"`
	CategoryID         int    `json:"category_id"`
	Score              int    `json:"score"`
	Source             string `json:"source"`
	Description        string `json:"description"`
	AcademicYear       string `json:"academic_year"`
	CreatedAt          int64  `json:"created_at"`
	ApplicationID      string `json:"application_id,omitempty"`
	GroupApplicationID string `json:"group_application_id,omitempty"`
}

// Triple is the deduplication key.
type Triple struct {
	StudentID    string
	CategoryID   int
	AcademicYear string
}

func (r Record) Triple() Triple {
	return Triple{StudentID: r.StudentID, CategoryID: r.CategoryID, AcademicYear: r.AcademicYear}
}
