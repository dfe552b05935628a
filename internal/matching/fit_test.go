package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreFit(t *testing.T) {
	p := DefaultPolicy().Fit

	tests := []struct {
		name string
		c    Candidate
		req  ProjectRequirements
		want float64
	}{
		{"no signals keeps the baseline", Candidate{}, ProjectRequirements{}, 70},
		{"low workload", Candidate{Workload: ptr(20)}, ProjectRequirements{}, 85},
		{"moderate workload", Candidate{Workload: ptr(60)}, ProjectRequirements{}, 70},
		{"high workload", Candidate{Workload: ptr(95)}, ProjectRequirements{}, 45},
		{"fast responder", Candidate{AvgResponseHours: ptr(1)}, ProjectRequirements{}, 75},
		{"slow responder", Candidate{AvgResponseHours: ptr(30)}, ProjectRequirements{}, 55},
		{"slow responder on a team", Candidate{AvgResponseHours: ptr(30)}, ProjectRequirements{TeamSize: 3}, 50},
		{
			"rate within the daily budget",
			Candidate{HourlyRate: ptr(50)},
			ProjectRequirements{Budget: &BudgetRange{Min: 1000, Max: 6000}, TimelineDays: 10},
			75,
		},
		{
			"rate over the daily budget",
			Candidate{HourlyRate: ptr(100)},
			ProjectRequirements{Budget: &BudgetRange{Min: 1000, Max: 6000}, TimelineDays: 10},
			60,
		},
		{
			"budget without a timeline is ignored",
			Candidate{HourlyRate: ptr(500)},
			ProjectRequirements{Budget: &BudgetRange{Min: 1000, Max: 5000}},
			70,
		},
		{
			"busy candidate on a tight complex project",
			Candidate{Workload: ptr(80)},
			ProjectRequirements{Complexity: ComplexityComplex, TimelineDays: 7},
			60,
		},
		{
			"tight simple project carries no pressure",
			Candidate{Workload: ptr(80)},
			ProjectRequirements{Complexity: ComplexitySimple, TimelineDays: 7},
			70,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ScoreFit(tt.c, tt.req, p), 0.001)
		})
	}
}

func TestScoreFit_Clamped(t *testing.T) {
	p := DefaultPolicy().Fit
	p.HighWorkloadPenalty = 200
	assert.Equal(t, 0.0, ScoreFit(Candidate{Workload: ptr(99)}, ProjectRequirements{}, p))

	p = DefaultPolicy().Fit
	p.LowWorkloadBonus = 200
	assert.Equal(t, 100.0, ScoreFit(Candidate{Workload: ptr(0)}, ProjectRequirements{}, p))
}

func TestDetectRisks_OrderedByImpact(t *testing.T) {
	p := DefaultPolicy()
	req := ProjectRequirements{
		RequiredSkills: []string{"Go", "Kafka"},
		Complexity:     ComplexityVeryComplex,
		Budget:         &BudgetRange{Max: 2000},
		TimelineDays:   10,
	}
	c := Candidate{
		Skills:            []string{"PHP"},
		SuccessRate:       ptr(40),
		CompletedProjects: 12,
		Rating:            ptr(3.1),
		Workload:          ptr(95),
		HourlyRate:        ptr(80),
	}
	skills := MatchSkills(c.Skills, req, p)

	risks := DetectRisks(c, req, skills, 1, p)

	require.Len(t, risks, 6)
	assert.Contains(t, risks[0], "required skills")
	assert.Contains(t, risks[1], "success rate")
	assert.Contains(t, risks[2], "client rating")
	assert.Contains(t, risks[3], "workload")
	assert.Contains(t, risks[4], "budget")
	assert.Contains(t, risks[5], "Junior")
}

func TestDetectRisks_Thresholds(t *testing.T) {
	p := DefaultPolicy()
	req := ProjectRequirements{RequiredSkills: []string{"Go", "Kafka"}}

	tests := []struct {
		name string
		c    Candidate
		want int
	}{
		{"half coverage is not a risk", Candidate{Skills: []string{"Go"}}, 0},
		{"low success rate on few projects is ignored", Candidate{Skills: []string{"Go"}, SuccessRate: ptr(30), CompletedProjects: 4}, 0},
		{"rating at the threshold is fine", Candidate{Skills: []string{"Go"}, Rating: ptr(3.5)}, 0},
		{"workload just under the threshold", Candidate{Skills: []string{"Go"}, Workload: ptr(89.9)}, 0},
		{"workload at the threshold", Candidate{Skills: []string{"Go"}, Workload: ptr(90)}, 1},
		{"missing data raises nothing", Candidate{Skills: []string{"Go", "Kafka"}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			skills := MatchSkills(tt.c.Skills, req, p)
			assert.Len(t, DetectRisks(tt.c, req, skills, 6, p), tt.want)
		})
	}
}
