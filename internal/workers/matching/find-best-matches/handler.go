package findbestmatches

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"talent-match-workers/internal/common/camunda"
	"talent-match-workers/internal/common/errors"
	"talent-match-workers/internal/common/logger"
	"talent-match-workers/internal/common/metrics"
	"talent-match-workers/internal/common/observability"
	"talent-match-workers/internal/common/validation"
	"talent-match-workers/internal/matching"
	"talent-match-workers/internal/repository"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.opentelemetry.io/otel/attribute"
)

const TaskType = "find-best-matches"

type Store interface {
	LoadProject(ctx context.Context, projectID string) (*repository.Project, error)
	LoadCandidates(ctx context.Context, ids []string, limit int) ([]matching.Candidate, error)
}

type Search interface {
	SearchBySkills(ctx context.Context, req matching.ProjectRequirements, size int) ([]string, error)
}

type Cache interface {
	GetRanking(ctx context.Context, projectID string, limit int) (*repository.Ranking, bool, error)
	SetRanking(ctx context.Context, projectID string, limit int, r *repository.Ranking) error
}

type HandlerOptions struct {
	Config        *Config
	Engine        *matching.Engine
	Store         Store
	Search        Search
	Cache         Cache
	Validator     *validation.Validator
	Observability *observability.Observability
	Logger        logger.Logger
}

type Handler struct {
	config     *Config
	engine     *matching.Engine
	store      Store
	search     Search
	cache      Cache
	validator  *validation.Validator
	obs        *observability.Observability
	errHandler *errors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Engine == nil || opts.Store == nil || opts.Validator == nil {
		return nil, fmt.Errorf("%s requires an engine, a store and a validator", TaskType)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})

	return &Handler{
		config:     cfg,
		engine:     opts.Engine,
		store:      opts.Store,
		search:     opts.Search,
		cache:      opts.Cache,
		validator:  opts.Validator,
		obs:        opts.Observability,
		errHandler: errors.NewErrorHandler(log),
		logger:     log,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	started := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	budget := h.config.rankingBudget(camunda.JobDeadline(job, h.config.Timeout, started))
	ctx, cancel := context.WithTimeout(context.Background(), budget)
	defer cancel()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
		"budget":             budget.String(),
	})

	ctx, span := h.obs.StartSpan(ctx, TaskType,
		attribute.Int64("jobKey", job.GetKey()),
		attribute.Int64("processInstanceKey", job.GetProcessInstanceKey()),
	)
	output, err := h.process(ctx, job)
	observability.EndSpan(span, err)
	if err != nil {
		h.errHandler.HandleJobError(context.Background(), client, job, err)
		h.record(started, string(errors.Normalize(err).Code))
		return
	}

	completeCtx, completeCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer completeCancel()
	if err := camunda.CompleteJob(completeCtx, client, job, output); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err,
		})
		h.record(started, string(errors.Normalize(err).Code))
		return
	}
	h.record(started, "")
}

func (h *Handler) process(ctx context.Context, job entities.Job) (*Output, error) {
	input, err := h.parseInput(job)
	if err != nil {
		return nil, err
	}
	return h.Execute(ctx, input)
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, errors.NewInvalidMatchInputError(fmt.Sprintf("parse job variables: %v", err))
	}
	if res := h.validator.Validate(TaskType, variables); !res.Valid {
		return nil, errors.NewInvalidMatchInputError(strings.Join(res.GetErrorMessages(), "; "))
	}

	var input Input
	if err := json.Unmarshal([]byte(job.GetVariables()), &input); err != nil {
		return nil, errors.NewInvalidMatchInputError(fmt.Sprintf("decode job variables: %v", err))
	}
	if input.Limit == 0 {
		input.Limit = DefaultLimit
	}
	return &input, nil
}

// Execute ranks the candidate pool for a project. A ranking cut short by
// ctx is returned with Partial set rather than as an error.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input.ProjectID == "" {
		return nil, errors.NewInvalidMatchInputError("projectId is required")
	}
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	cacheable := h.cache != nil && h.config.CacheResults && input.Requirements == nil && len(input.CandidateIDs) == 0
	if cacheable {
		cached, ok, err := h.cache.GetRanking(ctx, input.ProjectID, limit)
		if err != nil {
			h.logger.Warn("ranking cache lookup failed", map[string]interface{}{"error": err})
		}
		if ok {
			return &Output{
				Matches:         cached.Matches,
				Recommendations: cached.Recommendations,
				Evaluated:       cached.Evaluated,
				Skipped:         cached.Skipped,
				AverageScore:    cached.AverageScore,
				Cached:          true,
			}, nil
		}
	}

	req, err := h.requirements(ctx, input)
	if err != nil {
		return nil, err
	}
	candidates, err := h.candidatePool(ctx, input, *req)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	report := h.engine.Rank(ctx, input.ProjectID, *req, candidates, limit)
	metrics.ObserveReport(report, time.Since(started))
	h.obs.RecordPoolSize(context.Background(), report.PoolSize, report.Partial)

	h.logger.Info("ranking finished", map[string]interface{}{
		"projectId": input.ProjectID,
		"poolSize":  report.PoolSize,
		"evaluated": report.Evaluated,
		"skipped":   report.Skipped,
		"partial":   report.Partial,
		"returned":  len(report.Results),
	})

	output := &Output{
		Matches:         report.Results,
		Recommendations: report.Recommendations,
		Evaluated:       report.Evaluated,
		Skipped:         report.Skipped,
		Partial:         report.Partial,
		AverageScore:    report.AverageScore,
	}

	if cacheable && !report.Partial {
		ranking := &repository.Ranking{
			Matches:         output.Matches,
			Recommendations: output.Recommendations,
			Evaluated:       output.Evaluated,
			Skipped:         output.Skipped,
			AverageScore:    output.AverageScore,
		}
		if err := h.cache.SetRanking(context.Background(), input.ProjectID, limit, ranking); err != nil {
			h.logger.Warn("failed to cache ranking", map[string]interface{}{"error": err})
		}
	}
	return output, nil
}

func (h *Handler) requirements(ctx context.Context, input *Input) (*matching.ProjectRequirements, error) {
	if input.Requirements != nil {
		return input.Requirements, nil
	}
	project, err := h.store.LoadProject(ctx, input.ProjectID)
	if err != nil {
		return nil, err
	}
	return &project.Requirements, nil
}

// candidatePool resolves the freelancers to rank: the ids given in the job,
// else the search prefilter, else every active freelancer up to the cap.
func (h *Handler) candidatePool(ctx context.Context, input *Input, req matching.ProjectRequirements) ([]matching.Candidate, error) {
	ids := input.CandidateIDs
	if len(ids) == 0 && h.search != nil && h.config.UseSearch {
		found, err := h.search.SearchBySkills(ctx, req, h.config.MaxCandidates)
		switch {
		case err != nil:
			h.logger.Warn("candidate search unavailable, falling back to the full pool", map[string]interface{}{
				"projectId": input.ProjectID,
				"error":     err,
			})
		case found != nil && len(found) == 0:
			return nil, nil
		default:
			ids = found
		}
	}
	if len(ids) > h.config.MaxCandidates {
		ids = ids[:h.config.MaxCandidates]
	}
	return h.store.LoadCandidates(ctx, ids, h.config.MaxCandidates)
}

func (h *Handler) record(started time.Time, errorCode string) {
	metrics.ObserveJob(TaskType, started, errorCode)
	status := "success"
	if errorCode != "" {
		status = "error"
	}
	h.obs.RecordJobProcessed(context.Background(), TaskType, status)
	h.obs.RecordJobDuration(context.Background(), TaskType, time.Since(started), status)
}
