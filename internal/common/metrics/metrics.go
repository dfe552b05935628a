package metrics

import (
	"time"

	"talent-match-workers/internal/matching"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	CandidatesScored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "match_candidates_scored_total",
			Help: "Candidates scored, by resulting grade",
		},
		[]string{"grade"},
	)

	CandidatesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "match_candidates_skipped_total",
			Help: "Candidates left out of a ranking, by reason",
		},
		[]string{"reason"},
	)

	MatchScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "match_score",
			Help:    "Distribution of composite match scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	RankingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "match_ranking_duration_seconds",
			Help:    "Time spent ranking one candidate pool",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		},
	)

	PartialRankings = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "match_partial_rankings_total",
			Help: "Rankings cut short by the job deadline",
		},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "match_cache_lookups_total",
			Help: "Match result cache lookups, by outcome",
		},
		[]string{"result"},
	)
)

// ObserveMatch records one scored candidate.
func ObserveMatch(r matching.MatchResult) {
	CandidatesScored.WithLabelValues(string(r.MatchGrade)).Inc()
	MatchScore.Observe(r.MatchScore)
}

// ObserveReport records the outcome of one ranking run. Grades are taken from
// the report's histogram so candidates cut by the limit are still counted.
func ObserveReport(r *matching.Report, elapsed time.Duration) {
	RankingDuration.Observe(elapsed.Seconds())
	for grade, n := range r.GradeCounts {
		CandidatesScored.WithLabelValues(string(grade)).Add(float64(n))
	}
	for _, res := range r.Results {
		MatchScore.Observe(res.MatchScore)
	}

	failed := len(r.Failures)
	if failed > 0 {
		CandidatesSkipped.WithLabelValues("scoring_failed").Add(float64(failed))
	}
	if rest := r.Skipped - failed; rest > 0 {
		reason := "capped"
		if r.Partial {
			reason = "deadline"
		}
		CandidatesSkipped.WithLabelValues(reason).Add(float64(rest))
	}
	if r.Partial {
		PartialRankings.Inc()
	}
}

// ObserveJob records a finished job.
func ObserveJob(taskType string, started time.Time, errorCode string) {
	WorkerJobDuration.WithLabelValues(taskType).Observe(time.Since(started).Seconds())
	if errorCode != "" {
		WorkerJobsFailed.WithLabelValues(taskType, errorCode).Inc()
		return
	}
	WorkerJobsCompleted.WithLabelValues(taskType).Inc()
}
