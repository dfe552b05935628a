package matching

import (
	"math"
	"strings"
)

type Tier int

const (
	TierRequired Tier = iota
	TierPreferred
	TierNiceToHave
)

func (t Tier) String() string {
	switch t {
	case TierRequired:
		return "required"
	case TierPreferred:
		return "preferred"
	default:
		return "nice-to-have"
	}
}

// SkillMatch is the outcome of comparing a candidate's skills to the three
// requirement tiers.
type SkillMatch struct {
	Score float64
	// Strong lists matched required and preferred skills in requirement order.
	Strong []string
	// Missing lists unmatched required skills followed by unmatched preferred
	// skills, each in requirement order.
	Missing []string
	// LearningOpportunities lists unmatched nice-to-have skills.
	LearningOpportunities []string

	RequiredTotal   int
	RequiredMatched int
	// Overlap counts requirement skills of any tier the candidate matched.
	Overlap int
	// HasTiers is false when required, preferred and nice-to-have are all empty.
	HasTiers bool

	missingTiers map[string]Tier
}

// RequiredCoverage is the percentage of required skills matched, or 100 when
// no skills are required.
func (m SkillMatch) RequiredCoverage() float64 {
	if m.RequiredTotal == 0 {
		return 100
	}
	return float64(m.RequiredMatched) / float64(m.RequiredTotal) * 100
}

// MissingTier reports which tier a missing skill came from.
func (m SkillMatch) MissingTier(skill string) (Tier, bool) {
	t, ok := m.missingTiers[normalizeSkill(skill)]
	return t, ok
}

type requirement struct {
	name string
	key  string
	tier Tier
}

// MatchSkills scores candidate skills against the requirement tiers. Names are
// compared case-insensitively and match when either contains the other. A skill
// listed in several tiers counts once, in its highest tier. A candidate who
// matches none of the required skills scores 0 whatever else they match.
func MatchSkills(skills []string, req ProjectRequirements, p Policy) SkillMatch {
	reqs := flattenRequirements(req)
	have := normalizeSet(skills)

	m := SkillMatch{
		Strong:                []string{},
		Missing:               []string{},
		LearningOpportunities: []string{},
		HasTiers:              len(reqs) > 0,
		missingTiers:          make(map[string]Tier),
	}

	var possible, earned float64
	rankedTiers := 0
	for _, r := range reqs {
		w := tierWeight(r.tier, p.Tiers)
		possible += w
		if r.tier != TierNiceToHave {
			rankedTiers++
		}
		if r.tier == TierRequired {
			m.RequiredTotal++
		}

		if !hasSkill(have, r.key) {
			switch r.tier {
			case TierNiceToHave:
				m.LearningOpportunities = append(m.LearningOpportunities, r.name)
			default:
				m.Missing = append(m.Missing, r.name)
				m.missingTiers[r.key] = r.tier
			}
			continue
		}

		earned += w
		m.Overlap++
		if r.tier == TierRequired {
			m.RequiredMatched++
		}
		if r.tier != TierNiceToHave {
			m.Strong = append(m.Strong, r.name)
		}
	}

	switch {
	case rankedTiers == 0:
		m.Score = 100
	case m.RequiredTotal > 0 && m.RequiredMatched == 0:
		m.Score = 0
	case possible > 0:
		m.Score = clamp(earned/possible*100, 0, 100)
	}
	return m
}

// SkillProficiency sums experience years per strong skill, using entries whose
// skill tags match the skill name.
func SkillProficiency(strong []string, spans []ExperienceSpan) map[string]float64 {
	if len(strong) == 0 || len(spans) == 0 {
		return nil
	}
	out := make(map[string]float64)
	for _, skill := range strong {
		key := normalizeSkill(skill)
		var years float64
		for _, s := range spans {
			for _, tag := range s.Skills {
				if skillMatches(normalizeSkill(tag), key) {
					years += s.Years
					break
				}
			}
		}
		if years > 0 {
			out[skill] = math.Round(years*10) / 10
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func flattenRequirements(req ProjectRequirements) []requirement {
	seen := make(map[string]struct{})
	var out []requirement
	add := func(names []string, t Tier) {
		for _, name := range names {
			key := normalizeSkill(name)
			if key == "" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, requirement{name: strings.TrimSpace(name), key: key, tier: t})
		}
	}
	add(req.RequiredSkills, TierRequired)
	add(req.PreferredSkills, TierPreferred)
	add(req.NiceToHaveSkills, TierNiceToHave)
	return out
}

func tierWeight(t Tier, w TierWeights) float64 {
	switch t {
	case TierRequired:
		return w.Required
	case TierPreferred:
		return w.Preferred
	default:
		return w.NiceToHave
	}
}

func normalizeSkill(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func normalizeSet(skills []string) []string {
	seen := make(map[string]struct{}, len(skills))
	out := make([]string, 0, len(skills))
	for _, s := range skills {
		key := normalizeSkill(s)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

func hasSkill(have []string, key string) bool {
	for _, h := range have {
		if skillMatches(h, key) {
			return true
		}
	}
	return false
}

// skillMatches compares normalized names. Single-character names only match
// exactly, otherwise "c" would match almost every skill.
func skillMatches(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	if len(a) < 2 || len(b) < 2 {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
