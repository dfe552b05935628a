package matching

import "fmt"

// Policy carries every weight and cut point used by the engine. It is loaded
// from the "matching" configuration section, seeded key by key from
// DefaultPolicy, so a zero read from configuration is an explicit zero.
type Policy struct {
	Tiers       TierWeights       `mapstructure:"tier_weights"`
	Composite   CompositeWeights  `mapstructure:"composite_weights"`
	Grades      GradeThresholds   `mapstructure:"grades"`
	Experience  ExperiencePolicy  `mapstructure:"experience"`
	TrackRecord TrackRecordPolicy `mapstructure:"track_record"`
	Fit         FitPolicy         `mapstructure:"fit"`
	Risk        RiskPolicy        `mapstructure:"risk"`

	LearningMultiplier  float64 `mapstructure:"learning_multiplier"`
	ConfidencePerSignal float64 `mapstructure:"confidence_per_signal"`

	// Concurrency caps the worker pool used by Rank.
	Concurrency int `mapstructure:"concurrency"`
	// MaxCandidates is a hard cap on the pool; only the first MaxCandidates
	// candidates are evaluated. Zero disables the cap.
	MaxCandidates int `mapstructure:"max_candidates"`
}

type TierWeights struct {
	Required   float64 `mapstructure:"required"`
	Preferred  float64 `mapstructure:"preferred"`
	NiceToHave float64 `mapstructure:"nice_to_have"`
}

type CompositeWeights struct {
	Skill          float64 `mapstructure:"skill"`
	ProjectSuccess float64 `mapstructure:"project_success"`
	CulturalFit    float64 `mapstructure:"cultural_fit"`
	Experience     float64 `mapstructure:"experience"`
}

type GradeThresholds struct {
	Excellent    float64 `mapstructure:"excellent"`
	Good         float64 `mapstructure:"good"`
	Potential    float64 `mapstructure:"potential"`
	LearningGate float64 `mapstructure:"learning_gate"`
}

type ExperiencePolicy struct {
	MidYears    float64 `mapstructure:"mid_years"`
	SeniorYears float64 `mapstructure:"senior_years"`
	ExpertYears float64 `mapstructure:"expert_years"`
	StepPenalty float64 `mapstructure:"step_penalty"`
}

type TrackRecordPolicy struct {
	SuccessWeight    float64 `mapstructure:"success_weight"`
	RatingWeight     float64 `mapstructure:"rating_weight"`
	VolumeWeight     float64 `mapstructure:"volume_weight"`
	VolumeSaturation float64 `mapstructure:"volume_saturation"`
	NeutralScore     float64 `mapstructure:"neutral_score"`
}

type FitPolicy struct {
	Baseline                 float64 `mapstructure:"baseline"`
	LowWorkload              float64 `mapstructure:"low_workload"`
	LowWorkloadBonus         float64 `mapstructure:"low_workload_bonus"`
	HighWorkload             float64 `mapstructure:"high_workload"`
	HighWorkloadPenalty      float64 `mapstructure:"high_workload_penalty"`
	FastResponseHours        float64 `mapstructure:"fast_response_hours"`
	FastResponseBonus        float64 `mapstructure:"fast_response_bonus"`
	SlowResponseHours        float64 `mapstructure:"slow_response_hours"`
	SlowResponsePenalty      float64 `mapstructure:"slow_response_penalty"`
	TeamSlowResponsePenalty  float64 `mapstructure:"team_slow_response_penalty"`
	HoursPerDay              float64 `mapstructure:"hours_per_day"`
	WithinBudgetBonus        float64 `mapstructure:"within_budget_bonus"`
	OverBudgetPenalty        float64 `mapstructure:"over_budget_penalty"`
	ComplexTimelineDays      int     `mapstructure:"complex_timeline_days"`
	TimelinePressureWorkload float64 `mapstructure:"timeline_pressure_workload"`
	TimelinePressurePenalty  float64 `mapstructure:"timeline_pressure_penalty"`
}

type RiskPolicy struct {
	HighWorkload           float64 `mapstructure:"high_workload"`
	LowRating              float64 `mapstructure:"low_rating"`
	LowSuccessRate         float64 `mapstructure:"low_success_rate"`
	MinProjectsForSuccess  int     `mapstructure:"min_projects_for_success"`
	MinRequiredCoveragePct float64 `mapstructure:"min_required_coverage_pct"`
}

func DefaultPolicy() Policy {
	return Policy{
		Tiers: TierWeights{Required: 3, Preferred: 2, NiceToHave: 1},
		Composite: CompositeWeights{
			Skill:          0.50,
			ProjectSuccess: 0.25,
			CulturalFit:    0.15,
			Experience:     0.10,
		},
		Grades: GradeThresholds{Excellent: 85, Good: 70, Potential: 50, LearningGate: 70},
		Experience: ExperiencePolicy{
			MidYears:    2,
			SeniorYears: 5,
			ExpertYears: 10,
			StepPenalty: 25,
		},
		TrackRecord: TrackRecordPolicy{
			SuccessWeight:    0.6,
			RatingWeight:     0.3,
			VolumeWeight:     0.1,
			VolumeSaturation: 8,
			NeutralScore:     50,
		},
		Fit: FitPolicy{
			Baseline:                 70,
			LowWorkload:              50,
			LowWorkloadBonus:         15,
			HighWorkload:             90,
			HighWorkloadPenalty:      25,
			FastResponseHours:        2,
			FastResponseBonus:        5,
			SlowResponseHours:        24,
			SlowResponsePenalty:      15,
			TeamSlowResponsePenalty:  5,
			HoursPerDay:              8,
			WithinBudgetBonus:        5,
			OverBudgetPenalty:        10,
			ComplexTimelineDays:      14,
			TimelinePressureWorkload: 70,
			TimelinePressurePenalty:  10,
		},
		Risk: RiskPolicy{
			HighWorkload:           90,
			LowRating:              3.5,
			LowSuccessRate:         50,
			MinProjectsForSuccess:  5,
			MinRequiredCoveragePct: 50,
		},
		LearningMultiplier:  1.5,
		ConfidencePerSignal: 25,
		Concurrency:         16,
	}
}

// WithDefaults returns a copy of p where every zero field is replaced by the
// DefaultPolicy value, so a partial policy only overrides the fields it sets.
// A weight cannot be switched off through WithDefaults; build the policy from
// DefaultPolicy and pass it with WithExactPolicy for that.
func (p Policy) WithDefaults() Policy {
	d := DefaultPolicy()

	p.Tiers.Required = orDefault(p.Tiers.Required, d.Tiers.Required)
	p.Tiers.Preferred = orDefault(p.Tiers.Preferred, d.Tiers.Preferred)
	p.Tiers.NiceToHave = orDefault(p.Tiers.NiceToHave, d.Tiers.NiceToHave)

	p.Composite.Skill = orDefault(p.Composite.Skill, d.Composite.Skill)
	p.Composite.ProjectSuccess = orDefault(p.Composite.ProjectSuccess, d.Composite.ProjectSuccess)
	p.Composite.CulturalFit = orDefault(p.Composite.CulturalFit, d.Composite.CulturalFit)
	p.Composite.Experience = orDefault(p.Composite.Experience, d.Composite.Experience)

	p.Grades.Excellent = orDefault(p.Grades.Excellent, d.Grades.Excellent)
	p.Grades.Good = orDefault(p.Grades.Good, d.Grades.Good)
	p.Grades.Potential = orDefault(p.Grades.Potential, d.Grades.Potential)
	p.Grades.LearningGate = orDefault(p.Grades.LearningGate, d.Grades.LearningGate)

	p.Experience.MidYears = orDefault(p.Experience.MidYears, d.Experience.MidYears)
	p.Experience.SeniorYears = orDefault(p.Experience.SeniorYears, d.Experience.SeniorYears)
	p.Experience.ExpertYears = orDefault(p.Experience.ExpertYears, d.Experience.ExpertYears)
	p.Experience.StepPenalty = orDefault(p.Experience.StepPenalty, d.Experience.StepPenalty)

	p.TrackRecord.SuccessWeight = orDefault(p.TrackRecord.SuccessWeight, d.TrackRecord.SuccessWeight)
	p.TrackRecord.RatingWeight = orDefault(p.TrackRecord.RatingWeight, d.TrackRecord.RatingWeight)
	p.TrackRecord.VolumeWeight = orDefault(p.TrackRecord.VolumeWeight, d.TrackRecord.VolumeWeight)
	p.TrackRecord.VolumeSaturation = orDefault(p.TrackRecord.VolumeSaturation, d.TrackRecord.VolumeSaturation)
	p.TrackRecord.NeutralScore = orDefault(p.TrackRecord.NeutralScore, d.TrackRecord.NeutralScore)

	f, df := &p.Fit, d.Fit
	f.Baseline = orDefault(f.Baseline, df.Baseline)
	f.LowWorkload = orDefault(f.LowWorkload, df.LowWorkload)
	f.LowWorkloadBonus = orDefault(f.LowWorkloadBonus, df.LowWorkloadBonus)
	f.HighWorkload = orDefault(f.HighWorkload, df.HighWorkload)
	f.HighWorkloadPenalty = orDefault(f.HighWorkloadPenalty, df.HighWorkloadPenalty)
	f.FastResponseHours = orDefault(f.FastResponseHours, df.FastResponseHours)
	f.FastResponseBonus = orDefault(f.FastResponseBonus, df.FastResponseBonus)
	f.SlowResponseHours = orDefault(f.SlowResponseHours, df.SlowResponseHours)
	f.SlowResponsePenalty = orDefault(f.SlowResponsePenalty, df.SlowResponsePenalty)
	f.TeamSlowResponsePenalty = orDefault(f.TeamSlowResponsePenalty, df.TeamSlowResponsePenalty)
	f.HoursPerDay = orDefault(f.HoursPerDay, df.HoursPerDay)
	f.WithinBudgetBonus = orDefault(f.WithinBudgetBonus, df.WithinBudgetBonus)
	f.OverBudgetPenalty = orDefault(f.OverBudgetPenalty, df.OverBudgetPenalty)
	f.ComplexTimelineDays = orDefaultInt(f.ComplexTimelineDays, df.ComplexTimelineDays)
	f.TimelinePressureWorkload = orDefault(f.TimelinePressureWorkload, df.TimelinePressureWorkload)
	f.TimelinePressurePenalty = orDefault(f.TimelinePressurePenalty, df.TimelinePressurePenalty)

	r, dr := &p.Risk, d.Risk
	r.HighWorkload = orDefault(r.HighWorkload, dr.HighWorkload)
	r.LowRating = orDefault(r.LowRating, dr.LowRating)
	r.LowSuccessRate = orDefault(r.LowSuccessRate, dr.LowSuccessRate)
	r.MinProjectsForSuccess = orDefaultInt(r.MinProjectsForSuccess, dr.MinProjectsForSuccess)
	r.MinRequiredCoveragePct = orDefault(r.MinRequiredCoveragePct, dr.MinRequiredCoveragePct)

	p.LearningMultiplier = orDefault(p.LearningMultiplier, d.LearningMultiplier)
	p.ConfidencePerSignal = orDefault(p.ConfidencePerSignal, d.ConfidencePerSignal)
	if p.Concurrency <= 0 {
		p.Concurrency = d.Concurrency
	}
	if p.MaxCandidates < 0 {
		p.MaxCandidates = 0
	}
	return p
}

// Validate rejects weightings and thresholds that would misorder tiers or grades.
func (p Policy) Validate() error {
	if p.Tiers.Required < p.Tiers.Preferred || p.Tiers.Preferred < p.Tiers.NiceToHave {
		return fmt.Errorf("tier weights must be non-increasing: required=%v preferred=%v nice_to_have=%v",
			p.Tiers.Required, p.Tiers.Preferred, p.Tiers.NiceToHave)
	}
	c := p.Composite
	if c.Skill < 0 || c.ProjectSuccess < 0 || c.CulturalFit < 0 || c.Experience < 0 {
		return fmt.Errorf("composite weights must be non-negative")
	}
	if !(p.Grades.Excellent > p.Grades.Good && p.Grades.Good > p.Grades.Potential) {
		return fmt.Errorf("grade thresholds must be strictly decreasing: excellent=%v good=%v potential=%v",
			p.Grades.Excellent, p.Grades.Good, p.Grades.Potential)
	}
	e := p.Experience
	if !(e.MidYears < e.SeniorYears && e.SeniorYears < e.ExpertYears) {
		return fmt.Errorf("experience buckets must be increasing: mid=%v senior=%v expert=%v",
			e.MidYears, e.SeniorYears, e.ExpertYears)
	}
	if p.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive")
	}
	return nil
}

func orDefault(v, d float64) float64 {
	if v == 0 {
		return d
	}
	return v
}

func orDefaultInt(v, d int) int {
	if v == 0 {
		return d
	}
	return v
}
