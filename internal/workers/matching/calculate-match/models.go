package calculatematch

import "talent-match-workers/internal/matching"

type Input struct {
	ProjectID    string                        `json:"projectId"`
	FreelancerID string                        `json:"freelancerId,omitempty"`
	Candidate    *matching.Candidate           `json:"candidate,omitempty"`
	Requirements *matching.ProjectRequirements `json:"requirements,omitempty"`
}

type Output struct {
	Match  *matching.MatchResult `json:"match"`
	Cached bool                  `json:"cached"`
}
