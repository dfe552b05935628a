package notifytopmatches

import (
	"time"

	"talent-match-workers/internal/matching"
)

type Input struct {
	ProjectID    string         `json:"projectId"`
	ProjectTitle string         `json:"projectTitle"`
	Matches      []MatchSummary `json:"matches"`
	MinGrade     matching.Grade `json:"minGrade,omitempty"`
}

// MatchSummary is the slice of a MatchResult the notification needs.
type MatchSummary struct {
	FreelancerID string         `json:"freelancerId"`
	MatchScore   float64        `json:"matchScore"`
	MatchGrade   matching.Grade `json:"matchGrade"`
}

const (
	StatusSent     = "sent"
	StatusPartial  = "partial"
	StatusNone     = "none"
	StatusDisabled = "disabled"
)

type Output struct {
	NotificationID string    `json:"notificationId"`
	Notified       int       `json:"notified"`
	Skipped        int       `json:"skipped"`
	Failed         int       `json:"failed"`
	Status         string    `json:"status"`
	SentAt         time.Time `json:"sentAt"`
}
