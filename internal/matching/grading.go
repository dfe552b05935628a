package matching

import (
	"fmt"
	"sort"
	"strings"
)

// GradeFor classifies a composite score. The potential grade also requires
// high learning potential; otherwise the score falls through to low.
func GradeFor(score, learning float64, g GradeThresholds) Grade {
	switch {
	case score >= g.Excellent:
		return GradeExcellent
	case score >= g.Good:
		return GradeGood
	case score >= g.Potential && learning >= g.LearningGate:
		return GradePotential
	default:
		return GradeLow
	}
}

// RecommendActions lists next steps for one candidate, most impactful first:
// missing skills in demand order, then availability, then profile gaps.
func RecommendActions(c Candidate, skills SkillMatch, sig Signals, grade Grade, p Policy) []string {
	actions := []string{}

	for _, s := range skills.Missing {
		tier, _ := skills.MissingTier(s)
		actions = append(actions, fmt.Sprintf("Close the gap in %s (%s skill)", s, tier))
	}

	if c.Workload != nil && *c.Workload >= p.Risk.HighWorkload {
		actions = append(actions, "Confirm availability before engaging: current workload is high")
	}
	if !sig.Rating {
		actions = append(actions, "Request client references or a paid trial task: no rating on record")
	}
	if !sig.Experience {
		actions = append(actions, "Ask the freelancer to add dated work history to their profile")
	}

	switch grade {
	case GradeExcellent:
		actions = append(actions, "Invite to submit a proposal")
	case GradePotential:
		actions = append(actions, "Consider as a stretch hire: strong track record offsets the skill gap")
	}

	if len(skills.LearningOpportunities) > 0 && grade != GradeLow {
		actions = append(actions, "Growth areas to discuss: "+strings.Join(skills.LearningOpportunities, ", "))
	}
	return actions
}

// BatchRecommendations summarises every evaluated candidate of a batch, not
// only the ones kept after the limit.
func BatchRecommendations(evaluated []MatchResult, req ProjectRequirements, p Policy) []string {
	recs := []string{}
	if len(evaluated) == 0 {
		return append(recs, "No candidates could be evaluated; widen the candidate pool")
	}

	var total float64
	excellent := 0
	missing := make(map[string]int)
	for _, r := range evaluated {
		total += r.MatchScore
		if r.MatchGrade == GradeExcellent {
			excellent++
		}
		for _, s := range r.SkillGap.Missing {
			missing[normalizeSkill(s)]++
		}
	}
	avg := total / float64(len(evaluated))

	if excellent == 0 {
		recs = append(recs, "No excellent matches found; consider relaxing required skills or widening the search")
	}
	if avg < p.Grades.Potential {
		recs = append(recs, fmt.Sprintf("Average match score is low (%.1f); review the skill list and budget", avg))
	}

	// Skills missing from more than half the pool, most common first, ties in
	// requirement order.
	var scarce []requirement
	for _, r := range flattenRequirements(req) {
		if r.tier == TierNiceToHave {
			continue
		}
		if missing[r.key]*2 > len(evaluated) {
			scarce = append(scarce, r)
		}
	}
	sort.SliceStable(scarce, func(i, j int) bool {
		return missing[scarce[i].key] > missing[scarce[j].key]
	})
	for _, r := range scarce {
		recs = append(recs, fmt.Sprintf("Most candidates lack %s (%d of %d); consider training or relaxing it",
			r.name, missing[r.key], len(evaluated)))
	}
	return recs
}
