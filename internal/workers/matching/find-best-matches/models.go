package findbestmatches

import "talent-match-workers/internal/matching"

type Input struct {
	ProjectID    string                        `json:"projectId"`
	Limit        int                           `json:"limit,omitempty"`
	CandidateIDs []string                      `json:"candidateIds,omitempty"`
	Requirements *matching.ProjectRequirements `json:"requirements,omitempty"`
}

type Output struct {
	Matches         []matching.MatchResult `json:"matches"`
	Recommendations []string               `json:"recommendations"`
	Evaluated       int                    `json:"evaluated"`
	Skipped         int                    `json:"skipped"`
	Partial         bool                   `json:"partial"`
	AverageScore    float64                `json:"averageScore"`
	Cached          bool                   `json:"cached"`
}
