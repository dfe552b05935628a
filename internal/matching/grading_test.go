package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompose(t *testing.T) {
	p := DefaultPolicy()

	t.Run("weighted composite rounded to two decimals", func(t *testing.T) {
		c := Compose(SubScores{Skill: 100, Experience: 100, ProjectSuccess: 95.7326, CulturalFit: 85},
			Signals{Skills: true, Experience: true, Rating: true, SuccessRate: true}, p)

		assert.Equal(t, 96.68, c.Score)
		assert.Equal(t, 0.0, c.LearningPotential)
		assert.Equal(t, 100.0, c.Confidence)
	})

	t.Run("learning potential grows with the skill gap", func(t *testing.T) {
		c := Compose(SubScores{Skill: 40, ProjectSuccess: 90}, Signals{}, p)
		assert.Equal(t, 81.0, c.LearningPotential)
		assert.Equal(t, 0.0, c.Confidence)
	})

	t.Run("learning potential is capped", func(t *testing.T) {
		c := Compose(SubScores{Skill: 0, ProjectSuccess: 100}, Signals{}, p)
		assert.Equal(t, 100.0, c.LearningPotential)
	})

	t.Run("confidence counts each signal", func(t *testing.T) {
		assert.Equal(t, 25.0, Compose(SubScores{}, Signals{Skills: true}, p).Confidence)
		assert.Equal(t, 50.0, Compose(SubScores{}, Signals{Rating: true, SuccessRate: true}, p).Confidence)
	})
}

func TestSignalsFor(t *testing.T) {
	p := DefaultPolicy()
	spans := []ExperienceSpan{{Years: 1}}

	req := ProjectRequirements{RequiredSkills: []string{"Go"}, PreferredSkills: []string{"Docker"}}
	c := Candidate{Skills: []string{"Docker"}, SuccessRate: ptr(90)}
	sig := SignalsFor(c, MatchSkills(c.Skills, req, p), nil)
	assert.False(t, sig.Skills, "preferred-only overlap is not skill evidence when skills are required")
	assert.True(t, sig.SuccessRate)

	req = ProjectRequirements{PreferredSkills: []string{"Docker"}}
	sig = SignalsFor(c, MatchSkills(c.Skills, req, p), spans)
	assert.True(t, sig.Skills)
	assert.True(t, sig.Experience)

	sig = SignalsFor(c, MatchSkills(c.Skills, ProjectRequirements{}, p), nil)
	assert.True(t, sig.Skills, "any listed skill counts when the project names none")
}

func TestGradeFor(t *testing.T) {
	g := DefaultPolicy().Grades
	tests := []struct {
		score, learning float64
		want            Grade
	}{
		{100, 0, GradeExcellent},
		{85, 0, GradeExcellent},
		{84.99, 100, GradeGood},
		{70, 0, GradeGood},
		{69.99, 70, GradePotential},
		{50, 100, GradePotential},
		{69.99, 69.99, GradeLow},
		{49.99, 100, GradeLow},
		{0, 0, GradeLow},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GradeFor(tt.score, tt.learning, g), "score=%v learning=%v", tt.score, tt.learning)
	}
}

func TestRecommendActions(t *testing.T) {
	p := DefaultPolicy()
	req := ProjectRequirements{
		RequiredSkills:   []string{"Go", "Kafka"},
		PreferredSkills:  []string{"Docker"},
		NiceToHaveSkills: []string{"Rust"},
	}
	c := Candidate{Skills: []string{"Go"}, Workload: ptr(95)}
	skills := MatchSkills(c.Skills, req, p)
	sig := SignalsFor(c, skills, nil)

	actions := RecommendActions(c, skills, sig, GradePotential, p)

	require.GreaterOrEqual(t, len(actions), 6)
	assert.Equal(t, "Close the gap in Kafka (required skill)", actions[0])
	assert.Equal(t, "Close the gap in Docker (preferred skill)", actions[1])
	assert.Contains(t, actions[2], "availability")
	assert.Contains(t, actions[3], "no rating")
	assert.Contains(t, actions[4], "work history")
	assert.Contains(t, actions[5], "stretch hire")
	assert.Equal(t, "Growth areas to discuss: Rust", actions[len(actions)-1])
}

func TestRecommendActions_CompleteProfile(t *testing.T) {
	p := DefaultPolicy()
	req := ProjectRequirements{RequiredSkills: []string{"Go"}}
	c := Candidate{Skills: []string{"Go"}, Rating: ptr(4.9), SuccessRate: ptr(98)}
	skills := MatchSkills(c.Skills, req, p)
	sig := SignalsFor(c, skills, []ExperienceSpan{{Years: 6}})

	assert.Equal(t, []string{"Invite to submit a proposal"}, RecommendActions(c, skills, sig, GradeExcellent, p))
}

func TestBatchRecommendations(t *testing.T) {
	p := DefaultPolicy()
	req := ProjectRequirements{RequiredSkills: []string{"Go", "Kafka"}, PreferredSkills: []string{"Docker"}}

	t.Run("empty batch", func(t *testing.T) {
		recs := BatchRecommendations(nil, req, p)
		require.Len(t, recs, 1)
		assert.Contains(t, recs[0], "widen the candidate pool")
	})

	t.Run("weak batch", func(t *testing.T) {
		results := []MatchResult{
			{MatchScore: 40, MatchGrade: GradeLow, SkillGap: SkillGapAnalysis{Missing: []string{"Kafka", "Docker"}}},
			{MatchScore: 30, MatchGrade: GradeLow, SkillGap: SkillGapAnalysis{Missing: []string{"Go", "Kafka", "Docker"}}},
			{MatchScore: 72, MatchGrade: GradeGood, SkillGap: SkillGapAnalysis{Missing: []string{"Kafka"}}},
		}

		recs := BatchRecommendations(results, req, p)

		require.Len(t, recs, 4)
		assert.Contains(t, recs[0], "No excellent matches")
		assert.Contains(t, recs[1], "Average match score is low")
		assert.Contains(t, recs[2], "Most candidates lack Kafka (3 of 3)")
		assert.Contains(t, recs[3], "Most candidates lack Docker (2 of 3)")
	})

	t.Run("strong batch", func(t *testing.T) {
		results := []MatchResult{
			{MatchScore: 92, MatchGrade: GradeExcellent},
			{MatchScore: 75, MatchGrade: GradeGood},
		}
		assert.Empty(t, BatchRecommendations(results, req, p))
	})
}
