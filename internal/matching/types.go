// Package matching ranks freelancers against a project's requirements.
//
// Every function in this package is a pure computation over its inputs: no I/O,
// no shared mutable state. The Engine only carries immutable configuration, so a
// single value can be shared by any number of goroutines.
package matching

import "errors"

var (
	ErrMalformedExperience = errors.New("malformed experience entry")
	ErrCandidatePanic      = errors.New("candidate scoring panicked")
)

type ExperienceLevel string

const (
	LevelJunior ExperienceLevel = "junior"
	LevelMid    ExperienceLevel = "mid"
	LevelSenior ExperienceLevel = "senior"
	LevelExpert ExperienceLevel = "expert"
)

var levelOrder = []ExperienceLevel{LevelJunior, LevelMid, LevelSenior, LevelExpert}

func (l ExperienceLevel) index() int {
	for i, lvl := range levelOrder {
		if lvl == l {
			return i
		}
	}
	return -1
}

type Complexity string

const (
	ComplexitySimple      Complexity = "simple"
	ComplexityModerate    Complexity = "moderate"
	ComplexityComplex     Complexity = "complex"
	ComplexityVeryComplex Complexity = "very-complex"
)

type Grade string

const (
	GradeExcellent Grade = "excellent"
	GradeGood      Grade = "good"
	GradePotential Grade = "potential"
	GradeLow       Grade = "low"
)

// Rank orders grades from best to worst; unknown grades sort last.
func (g Grade) Rank() int {
	switch g {
	case GradeExcellent:
		return 0
	case GradeGood:
		return 1
	case GradePotential:
		return 2
	case GradeLow:
		return 3
	default:
		return 4
	}
}

// ExperienceEntry is one position in a freelancer's work history. Dates are
// ISO 8601 (either 2006-01-02 or RFC 3339).
type ExperienceEntry struct {
	Title     string   `json:"title,omitempty"`
	Skills    []string `json:"skills,omitempty"`
	StartDate string   `json:"startDate"`
	EndDate   string   `json:"endDate,omitempty"`
	Current   bool     `json:"current,omitempty"`
}

// Candidate is a freelancer profile as loaded by the caller. Nil pointers mean
// the value is absent from the profile, not zero.
type Candidate struct {
	ID                string            `json:"id"`
	Skills            []string          `json:"skills"`
	Rating            *float64          `json:"rating,omitempty"`
	CompletedProjects int               `json:"completedProjects"`
	SuccessRate       *float64          `json:"successRate,omitempty"`
	Workload          *float64          `json:"currentWorkload,omitempty"`
	AvgResponseHours  *float64          `json:"avgResponseTimeHours,omitempty"`
	HourlyRate        *float64          `json:"hourlyRate,omitempty"`
	Experience        []ExperienceEntry `json:"experience,omitempty"`
}

type BudgetRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// ProjectRequirements holds the matching-relevant fields of a project. Any zero
// field is treated as unconstrained.
type ProjectRequirements struct {
	RequiredSkills   []string        `json:"requiredSkills,omitempty"`
	PreferredSkills  []string        `json:"preferredSkills,omitempty"`
	NiceToHaveSkills []string        `json:"niceToHaveSkills,omitempty"`
	ExperienceLevel  ExperienceLevel `json:"experienceLevel,omitempty"`
	Budget           *BudgetRange    `json:"budget,omitempty"`
	TimelineDays     int             `json:"timelineDays,omitempty"`
	Complexity       Complexity      `json:"complexity,omitempty"`
	TeamSize         int             `json:"teamSize,omitempty"`
}

type SkillGapAnalysis struct {
	Strong                []string           `json:"strong"`
	Missing               []string           `json:"missing"`
	LearningOpportunities []string           `json:"learningOpportunities"`
	ProficiencyYears      map[string]float64 `json:"proficiencyYears,omitempty"`
}

type MatchResult struct {
	CandidateID         string           `json:"candidateId"`
	ProjectID           string           `json:"projectId"`
	MatchScore          float64          `json:"matchScore"`
	MatchGrade          Grade            `json:"matchGrade"`
	SkillGap            SkillGapAnalysis `json:"skillGapAnalysis"`
	SkillScore          float64          `json:"skillScore"`
	ExperienceScore     float64          `json:"experienceScore"`
	ProjectSuccessScore float64          `json:"projectSuccessScore"`
	CulturalFitScore    float64          `json:"culturalFitScore"`
	LearningPotential   float64          `json:"learningPotential"`
	Confidence          float64          `json:"confidence"`
	RiskFactors         []string         `json:"riskFactors"`
	RecommendedActions  []string         `json:"recommendedActions"`

	completedProjects int
}

// CandidateFailure records a candidate that was dropped from a batch.
type CandidateFailure struct {
	CandidateID string `json:"candidateId"`
	Position    int    `json:"position"`
	Reason      string `json:"reason"`
	Err         error  `json:"-"`
}

// Report is the full outcome of ranking one candidate pool.
type Report struct {
	ProjectID       string             `json:"projectId"`
	Results         []MatchResult      `json:"results"`
	Failures        []CandidateFailure `json:"failures,omitempty"`
	PoolSize        int                `json:"poolSize"`
	Evaluated       int                `json:"evaluated"`
	Skipped         int                `json:"skipped"`
	Capped          bool               `json:"capped"`
	Partial         bool               `json:"partial"`
	AverageScore    float64            `json:"averageScore"`
	GradeCounts     map[Grade]int      `json:"gradeCounts"`
	Recommendations []string           `json:"recommendations"`
}
