package matching

import (
	"fmt"
	"math"
	"strings"
	"time"
)

const daysPerYear = 365.25

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02", "2006-01"}

// ExperienceSpan is one experience entry resolved against a reference time.
type ExperienceSpan struct {
	Years  float64
	Skills []string
}

// ResolveExperience converts entries into spans. Entries without a start date
// are ignored; a date that cannot be parsed is an error. An entry with no end
// date, or flagged current, runs until now. Negative spans count as zero.
func ResolveExperience(entries []ExperienceEntry, now time.Time) ([]ExperienceSpan, error) {
	spans := make([]ExperienceSpan, 0, len(entries))
	for i, e := range entries {
		if strings.TrimSpace(e.StartDate) == "" {
			continue
		}
		start, err := parseDate(e.StartDate)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d start date %q", ErrMalformedExperience, i, e.StartDate)
		}

		end := now
		if !e.Current && strings.TrimSpace(e.EndDate) != "" {
			end, err = parseDate(e.EndDate)
			if err != nil {
				return nil, fmt.Errorf("%w: entry %d end date %q", ErrMalformedExperience, i, e.EndDate)
			}
		}

		years := end.Sub(start).Hours() / 24 / daysPerYear
		if years < 0 || math.IsNaN(years) {
			years = 0
		}
		spans = append(spans, ExperienceSpan{Years: years, Skills: e.Skills})
	}
	return spans, nil
}

func TotalYears(spans []ExperienceSpan) float64 {
	var total float64
	for _, s := range spans {
		total += s.Years
	}
	return total
}

// LevelForYears maps total years to a seniority bucket.
func LevelForYears(years float64, p ExperiencePolicy) ExperienceLevel {
	switch {
	case years >= p.ExpertYears:
		return LevelExpert
	case years >= p.SeniorYears:
		return LevelSenior
	case years >= p.MidYears:
		return LevelMid
	default:
		return LevelJunior
	}
}

// ScoreExperience returns 100 when the candidate's bucket equals the target
// level and loses StepPenalty per bucket of distance. An unknown or empty
// target is unconstrained.
func ScoreExperience(years float64, target ExperienceLevel, p ExperiencePolicy) float64 {
	want := target.index()
	if want < 0 {
		return 100
	}
	have := LevelForYears(years, p).index()
	distance := math.Abs(float64(have - want))
	return clamp(100-distance*p.StepPenalty, 0, 100)
}

// ScoreTrackRecord blends success rate, client rating and a saturating volume
// bonus. When one of success rate or rating is missing its weight is dropped
// and the rest renormalized; when both are missing the neutral score is used.
func ScoreTrackRecord(c Candidate, p TrackRecordPolicy) float64 {
	if c.SuccessRate == nil && c.Rating == nil {
		return p.NeutralScore
	}

	var sum, weights float64
	if c.SuccessRate != nil {
		sum += clamp(*c.SuccessRate, 0, 100) * p.SuccessWeight
		weights += p.SuccessWeight
	}
	if c.Rating != nil {
		sum += clamp(*c.Rating, 0, 5) / 5 * 100 * p.RatingWeight
		weights += p.RatingWeight
	}
	sum += volumeBonus(c.CompletedProjects, p.VolumeSaturation) * p.VolumeWeight
	weights += p.VolumeWeight

	if weights <= 0 {
		return p.NeutralScore
	}
	return clamp(sum/weights, 0, 100)
}

func volumeBonus(completed int, saturation float64) float64 {
	if completed <= 0 || saturation <= 0 {
		return 0
	}
	return 100 * (1 - math.Exp(-float64(completed)/saturation))
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
