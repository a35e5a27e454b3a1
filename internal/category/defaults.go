package category

// Main category names of the default configuration.
const (
	PoliticalTheory      = "Political Theory"
	SocialService        = "Social Service"
	CollectiveActivities = "Collective Activities"
	AcademicResearch     = "Academic Research"
	ArtsAndSports        = "Arts and Sports"
	Awards               = "Awards"
	Appointments         = "Appointments"
	Deductions           = "Deductions"
)

// Leaf ids of the default configuration that tests and seed data refer to.
const (
	LeafPoliticalTheory = 11
	LeafServiceHours    = 21
	LeafTemporaryPost   = 22
	LeafGovInternship   = 23
	LeafSocialPractice  = 24
	LeafCollective      = 31
	LeafCompetition     = 41
	LeafPatent          = 42
	LeafMonograph       = 43
	LeafPaper           = 44
	LeafArtsContest     = 51
	LeafSportsContest   = 52
	LeafCollegeAward    = 61
	LeafUniversityAward = 62
	LeafCityAward       = 63
	LeafProvinceAward   = 64
	LeafNationalAward   = 65
	LeafStudentUnion    = 71
	LeafClub            = 72
	LeafClassCommittee  = 73
	LeafDeduction       = 81
)

func intPtr(v int) *int { return &v }

// DefaultConfig is the stock merit-score category tree.
func DefaultConfig() Config {
	return Config{
		Mains: []Main{
			{ID: 1, Name: PoliticalTheory, Cap: 3, Leaves: []Leaf{
				{ID: LeafPoliticalTheory, Name: "Political Theory", MaxScore: 3},
			}},
			{ID: 2, Name: SocialService, Cap: 4, Leaves: []Leaf{
				{ID: LeafServiceHours, Name: "Service Hours", MaxScore: 1, SubCap: intPtr(1)},
				{ID: LeafTemporaryPost, Name: "Temporary Post", MaxScore: 4},
				{ID: LeafGovInternship, Name: "Government Internship", MaxScore: 4},
				{ID: LeafSocialPractice, Name: "Social Practice", MaxScore: 4},
			}},
			{ID: 3, Name: CollectiveActivities, Cap: 3, Leaves: []Leaf{
				{ID: LeafCollective, Name: "Collective Activities", MaxScore: 3},
			}},
			{ID: 4, Name: AcademicResearch, Cap: 10, Leaves: []Leaf{
				{ID: LeafCompetition, Name: "Competition", MaxScore: 10},
				{ID: LeafPatent, Name: "Patent", MaxScore: 10},
				{ID: LeafMonograph, Name: "Monograph", MaxScore: 10},
				{ID: LeafPaper, Name: "Paper", MaxScore: 10},
			}},
			{ID: 5, Name: ArtsAndSports, Cap: 6, Leaves: []Leaf{
				{ID: LeafArtsContest, Name: "Arts Competition", MaxScore: 6},
				{ID: LeafSportsContest, Name: "Sports Competition", MaxScore: 6},
			}},
			{ID: 6, Name: Awards, Cap: 5, Leaves: []Leaf{
				{ID: LeafCollegeAward, Name: "College Award", MaxScore: 5},
				{ID: LeafUniversityAward, Name: "University Award", MaxScore: 5},
				{ID: LeafCityAward, Name: "City Award", MaxScore: 5},
				{ID: LeafProvinceAward, Name: "Provincial Award", MaxScore: 5},
				{ID: LeafNationalAward, Name: "National Award", MaxScore: 5},
			}},
			{ID: 7, Name: Appointments, Cap: 4, Description: "only the best single appointment counts", Leaves: []Leaf{
				{ID: LeafStudentUnion, Name: "Student Organization", MaxScore: 4},
				{ID: LeafClub, Name: "Club", MaxScore: 4},
				{ID: LeafClassCommittee, Name: "Class Committee", MaxScore: 4},
			}},
			{ID: 8, Name: Deductions, Cap: 0, Leaves: []Leaf{
				{ID: LeafDeduction, Name: "Deduction", MaxScore: 0},
			}},
		},
		Visibility: map[string]map[string][]string{
			"student": {
				PoliticalTheory:  {"Political Theory"},
				AcademicResearch: {"Patent", "Monograph", "Paper"},
				SocialService:    {"Service Hours", "Temporary Post", "Government Internship"},
				Awards:           {"City Award", "Provincial Award", "National Award"},
			},
			"teacher": {
				CollectiveActivities: {"Collective Activities"},
				AcademicResearch:     {"Competition"},
				ArtsAndSports:        {"Arts Competition", "Sports Competition"},
				Appointments:         {"Student Organization", "Club", "Class Committee"},
				Awards:               {"College Award", "University Award"},
				SocialService:        {"Social Practice"},
				Deductions:           {"Deduction"},
			},
		},
		FullAccessRoles: []string{"admin"},
		TeacherRole:     "teacher",
		OverrideMain:    Appointments,
		DeductionMain:   Deductions,
		DefaultCap:      100,
	}
}

// Default builds the stock catalog.
func Default() *Catalog {
	c, err := New(DefaultConfig())
	if err != nil {
		panic(err)
	}
	return c
}
