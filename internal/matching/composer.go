package matching

import "math"

// SubScores are the four component scores, each in [0, 100].
type SubScores struct {
	Skill          float64
	Experience     float64
	ProjectSuccess float64
	CulturalFit    float64
}

// Signals records which evidence was present on the candidate profile.
type Signals struct {
	Skills      bool
	Experience  bool
	Rating      bool
	SuccessRate bool
}

// Composite is the composer's output.
type Composite struct {
	Score             float64
	LearningPotential float64
	Confidence        float64
}

// Compose combines sub-scores into the weighted composite, derives learning
// potential and rates confidence by the evidence present.
func Compose(s SubScores, sig Signals, p Policy) Composite {
	w := p.Composite
	score := s.Skill*w.Skill +
		s.ProjectSuccess*w.ProjectSuccess +
		s.CulturalFit*w.CulturalFit +
		s.Experience*w.Experience

	learning := s.ProjectSuccess * (1 - s.Skill/100) * p.LearningMultiplier

	var confidence float64
	for _, present := range []bool{sig.Skills, sig.Experience, sig.Rating, sig.SuccessRate} {
		if present {
			confidence += p.ConfidencePerSignal
		}
	}

	return Composite{
		Score:             round2(clamp(score, 0, 100)),
		LearningPotential: round2(clamp(learning, 0, 100)),
		Confidence:        clamp(confidence, 0, 100),
	}
}

// SignalsFor derives the confidence signals for a candidate. Listed skills only
// count as evidence when they overlap the project's skills: the required tier
// when it is set, otherwise any tier.
func SignalsFor(c Candidate, skills SkillMatch, spans []ExperienceSpan) Signals {
	hasSkills := len(normalizeSet(c.Skills)) > 0
	switch {
	case skills.RequiredTotal > 0:
		hasSkills = hasSkills && skills.RequiredMatched > 0
	case skills.HasTiers:
		hasSkills = hasSkills && skills.Overlap > 0
	}
	return Signals{
		Skills:      hasSkills,
		Experience:  len(spans) > 0,
		Rating:      c.Rating != nil,
		SuccessRate: c.SuccessRate != nil,
	}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
