package matching

import "fmt"

// ScoreFit estimates availability and working-style alignment. It starts from
// the baseline and applies adjustments for workload, responsiveness, rate
// against the daily budget, timeline pressure on complex work and team
// collaboration. Missing inputs contribute nothing.
func ScoreFit(c Candidate, req ProjectRequirements, p FitPolicy) float64 {
	score := p.Baseline

	if c.Workload != nil {
		switch w := *c.Workload; {
		case w < p.LowWorkload:
			score += p.LowWorkloadBonus
		case w >= p.HighWorkload:
			score -= p.HighWorkloadPenalty
		}
	}

	slow := false
	if c.AvgResponseHours != nil {
		switch h := *c.AvgResponseHours; {
		case h <= p.FastResponseHours:
			score += p.FastResponseBonus
		case h >= p.SlowResponseHours:
			score -= p.SlowResponsePenalty
			slow = true
		}
	}
	if slow && req.TeamSize > 1 {
		score -= p.TeamSlowResponsePenalty
	}

	if over, ok := overBudget(c, req, p); ok {
		if over {
			score -= p.OverBudgetPenalty
		} else {
			score += p.WithinBudgetBonus
		}
	}

	if timelinePressure(c, req, p) {
		score -= p.TimelinePressurePenalty
	}

	return clamp(score, 0, 100)
}

// overBudget compares the candidate's daily cost with the project's daily
// budget. ok is false when either side is unknown.
func overBudget(c Candidate, req ProjectRequirements, p FitPolicy) (over, ok bool) {
	if c.HourlyRate == nil || req.Budget == nil || req.Budget.Max <= 0 || req.TimelineDays <= 0 || p.HoursPerDay <= 0 {
		return false, false
	}
	daily := *c.HourlyRate * p.HoursPerDay
	budget := req.Budget.Max / float64(req.TimelineDays)
	return daily > budget, true
}

func timelinePressure(c Candidate, req ProjectRequirements, p FitPolicy) bool {
	if req.TimelineDays <= 0 || req.TimelineDays >= p.ComplexTimelineDays {
		return false
	}
	if req.Complexity != ComplexityComplex && req.Complexity != ComplexityVeryComplex {
		return false
	}
	return c.Workload != nil && *c.Workload >= p.TimelinePressureWorkload
}

// DetectRisks lists advisory concerns ordered by impact. It never changes a
// score.
func DetectRisks(c Candidate, req ProjectRequirements, skills SkillMatch, years float64, p Policy) []string {
	risks := []string{}

	if skills.RequiredTotal > 0 {
		if cov := skills.RequiredCoverage(); cov < p.Risk.MinRequiredCoveragePct {
			risks = append(risks, fmt.Sprintf("Covers only %d of %d required skills (%.0f%%)",
				skills.RequiredMatched, skills.RequiredTotal, cov))
		}
	}
	if c.SuccessRate != nil && *c.SuccessRate < p.Risk.LowSuccessRate && c.CompletedProjects >= p.Risk.MinProjectsForSuccess {
		risks = append(risks, fmt.Sprintf("Low project success rate (%.0f%%) across %d completed projects",
			*c.SuccessRate, c.CompletedProjects))
	}
	if c.Rating != nil && *c.Rating < p.Risk.LowRating {
		risks = append(risks, fmt.Sprintf("Below-average client rating (%.1f/5)", *c.Rating))
	}
	if c.Workload != nil && *c.Workload >= p.Risk.HighWorkload {
		risks = append(risks, fmt.Sprintf("High current workload (%.0f%%) may delay delivery", *c.Workload))
	}
	if over, ok := overBudget(c, req, p.Fit); ok && over {
		risks = append(risks, fmt.Sprintf("Hourly rate (%.2f) exceeds the project's daily budget", *c.HourlyRate))
	}
	if req.Complexity == ComplexityVeryComplex && LevelForYears(years, p.Experience) == LevelJunior {
		risks = append(risks, "Junior experience level for a very complex project")
	}
	return risks
}
