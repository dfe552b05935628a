package matching

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"talent-match-workers/internal/common/logger"
)

// Engine evaluates candidates against project requirements. It holds only
// immutable configuration and is safe for concurrent use.
type Engine struct {
	policy Policy
	log    logger.Logger
	now    func() time.Time
	score  scoreFunc
}

type scoreFunc func(c Candidate, projectID string, req ProjectRequirements, now time.Time) (MatchResult, error)

type Option func(*Engine)

// WithPolicy overrides the fields p sets; zero fields keep their defaults.
func WithPolicy(p Policy) Option {
	return func(e *Engine) { e.policy = p.WithDefaults() }
}

// WithExactPolicy uses p as given, zero fields included. Use it for a policy
// that is already complete, such as one decoded by the config loader.
func WithExactPolicy(p Policy) Option {
	return func(e *Engine) {
		if p.Concurrency <= 0 {
			p.Concurrency = DefaultPolicy().Concurrency
		}
		e.policy = p
	}
}

func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithClock fixes the reference time used for ongoing experience entries.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		policy: DefaultPolicy(),
		log:    logger.NewNoOpLogger(),
		now:    time.Now,
	}
	e.score = e.evaluate
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Policy() Policy { return e.policy }

// CalculateMatch scores one candidate. The only error is a malformed date in
// the candidate's experience; missing fields degrade to defaults instead.
func (e *Engine) CalculateMatch(c Candidate, projectID string, req ProjectRequirements) (*MatchResult, error) {
	r, err := e.evaluate(c, projectID, req, e.now())
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// FindBestMatches ranks the pool and returns at most limit results, best first.
// A candidate that fails to score is skipped.
func (e *Engine) FindBestMatches(ctx context.Context, projectID string, req ProjectRequirements, candidates []Candidate, limit int) []MatchResult {
	return e.Rank(ctx, projectID, req, candidates, limit).Results
}

type outcome struct {
	pos    int
	result MatchResult
	err    error
}

// Rank evaluates the pool on a bounded worker pool and returns the ranked
// report. Evaluation stops early when ctx is done; candidates not reached are
// counted as skipped and the report is marked partial.
func (e *Engine) Rank(ctx context.Context, projectID string, req ProjectRequirements, candidates []Candidate, limit int) *Report {
	report := &Report{
		ProjectID:       projectID,
		Results:         []MatchResult{},
		PoolSize:        len(candidates),
		GradeCounts:     map[Grade]int{},
		Recommendations: []string{},
	}
	if len(candidates) == 0 || limit <= 0 {
		return report
	}

	pool := candidates
	if hardCap := e.policy.MaxCandidates; hardCap > 0 && len(pool) > hardCap {
		pool = pool[:hardCap]
		report.Capped = true
		report.Skipped += len(candidates) - hardCap
	}

	start := time.Now()
	now := e.now()
	outcomes := e.evaluatePool(ctx, projectID, req, pool, now)

	evaluated := make([]MatchResult, 0, len(outcomes))
	for _, o := range outcomes {
		switch {
		case o.err == nil:
			evaluated = append(evaluated, o.result)
		case errors.Is(o.err, context.Canceled) || errors.Is(o.err, context.DeadlineExceeded):
			report.Skipped++
			report.Partial = true
		default:
			report.Skipped++
			report.Failures = append(report.Failures, CandidateFailure{
				CandidateID: pool[o.pos].ID,
				Position:    o.pos,
				Reason:      o.err.Error(),
				Err:         o.err,
			})
			e.log.Warn("candidate skipped", map[string]interface{}{
				"projectId":   projectID,
				"candidateId": pool[o.pos].ID,
				"error":       o.err.Error(),
			})
		}
	}
	report.Evaluated = len(evaluated)

	var total float64
	for _, r := range evaluated {
		total += r.MatchScore
		report.GradeCounts[r.MatchGrade]++
	}
	if len(evaluated) > 0 {
		report.AverageScore = round2(total / float64(len(evaluated)))
	}
	report.Recommendations = BatchRecommendations(evaluated, req, e.policy)

	sortResults(evaluated)
	if len(evaluated) > limit {
		evaluated = evaluated[:limit]
	}
	report.Results = evaluated

	e.log.Debug("candidate pool ranked", map[string]interface{}{
		"projectId": projectID,
		"poolSize":  report.PoolSize,
		"evaluated": report.Evaluated,
		"skipped":   report.Skipped,
		"partial":   report.Partial,
		"duration":  time.Since(start).String(),
	})
	return report
}

// evaluatePool fans the pool out to min(len(pool), Concurrency) workers and
// returns one outcome per candidate, in pool order.
func (e *Engine) evaluatePool(ctx context.Context, projectID string, req ProjectRequirements, pool []Candidate, now time.Time) []outcome {
	workers := e.policy.Concurrency
	if workers <= 0 {
		workers = 1
	}
	if workers > len(pool) {
		workers = len(pool)
	}

	jobs := make(chan int, len(pool))
	for i := range pool {
		jobs <- i
	}
	close(jobs)

	results := make(chan outcome, len(pool))
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for pos := range jobs {
				if err := ctx.Err(); err != nil {
					results <- outcome{pos: pos, err: err}
					continue
				}
				r, err := e.evaluateSafely(pool[pos], projectID, req, now)
				results <- outcome{pos: pos, result: r, err: err}
			}
		}()
	}
	wg.Wait()
	close(results)

	out := make([]outcome, 0, len(pool))
	for o := range results {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].pos < out[j].pos })
	return out
}

func (e *Engine) evaluateSafely(c Candidate, projectID string, req ProjectRequirements, now time.Time) (r MatchResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: %v", ErrCandidatePanic, rec)
		}
	}()
	return e.score(c, projectID, req, now)
}

func (e *Engine) evaluate(c Candidate, projectID string, req ProjectRequirements, now time.Time) (MatchResult, error) {
	p := e.policy

	spans, err := ResolveExperience(c.Experience, now)
	if err != nil {
		return MatchResult{}, fmt.Errorf("candidate %s: %w", c.ID, err)
	}
	years := TotalYears(spans)

	skills := MatchSkills(c.Skills, req, p)
	sub := SubScores{
		Skill:          skills.Score,
		Experience:     ScoreExperience(years, req.ExperienceLevel, p.Experience),
		ProjectSuccess: ScoreTrackRecord(c, p.TrackRecord),
		CulturalFit:    ScoreFit(c, req, p.Fit),
	}
	sig := SignalsFor(c, skills, spans)
	comp := Compose(sub, sig, p)
	grade := GradeFor(comp.Score, comp.LearningPotential, p.Grades)

	return MatchResult{
		CandidateID: c.ID,
		ProjectID:   projectID,
		MatchScore:  comp.Score,
		MatchGrade:  grade,
		SkillGap: SkillGapAnalysis{
			Strong:                skills.Strong,
			Missing:               skills.Missing,
			LearningOpportunities: skills.LearningOpportunities,
			ProficiencyYears:      SkillProficiency(skills.Strong, spans),
		},
		SkillScore:          round2(sub.Skill),
		ExperienceScore:     round2(sub.Experience),
		ProjectSuccessScore: round2(sub.ProjectSuccess),
		CulturalFitScore:    round2(sub.CulturalFit),
		LearningPotential:   comp.LearningPotential,
		Confidence:          comp.Confidence,
		RiskFactors:         DetectRisks(c, req, skills, years, p),
		RecommendedActions:  RecommendActions(c, skills, sig, grade, p),
		completedProjects:   c.CompletedProjects,
	}, nil
}

// sortResults orders by score, then confidence, then completed projects, all
// descending, and finally by candidate ID ascending.
func sortResults(rs []MatchResult) {
	sort.SliceStable(rs, func(i, j int) bool {
		a, b := rs[i], rs[j]
		if a.MatchScore != b.MatchScore {
			return a.MatchScore > b.MatchScore
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.completedProjects != b.completedProjects {
			return a.completedProjects > b.completedProjects
		}
		return a.CandidateID < b.CandidateID
	})
}
