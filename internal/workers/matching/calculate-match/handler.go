package calculatematch

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

const TaskType = "calculate-match"

// Store loads the project and freelancer a match is computed for.
type Store interface {
	LoadProject(ctx context.Context, projectID string) (*repository.Project, error)
	LoadCandidate(ctx context.Context, freelancerID string) (*matching.Candidate, error)
}

type Cache interface {
	GetMatch(ctx context.Context, projectID, freelancerID string) (*matching.MatchResult, bool, error)
	SetMatch(ctx context.Context, r *matching.MatchResult) error
}

type HandlerOptions struct {
	Config        *Config
	Engine        *matching.Engine
	Store         Store
	Cache         Cache
	Validator     *validation.Validator
	Observability *observability.Observability
	Logger        logger.Logger
}

type Handler struct {
	config     *Config
	engine     *matching.Engine
	store      Store
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

	ctx, cancel := context.WithTimeout(context.Background(), camunda.JobDeadline(job, h.config.Timeout, started))
	defer cancel()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
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
	return &input, nil
}

// Execute scores one freelancer. Results are cached only when both the
// project and the freelancer were loaded from the store, since inline inputs
// may differ from what is stored under the same ids.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input.ProjectID == "" {
		return nil, errors.NewInvalidMatchInputError("projectId is required")
	}
	if input.Candidate == nil && input.FreelancerID == "" {
		return nil, errors.NewInvalidMatchInputError("either freelancerId or candidate is required")
	}

	cacheable := h.cache != nil && h.config.CacheResults && input.Candidate == nil && input.Requirements == nil
	if cacheable {
		cached, ok, err := h.cache.GetMatch(ctx, input.ProjectID, input.FreelancerID)
		if err != nil {
			h.logger.Warn("match cache lookup failed", map[string]interface{}{"error": err})
		}
		if ok {
			return &Output{Match: cached, Cached: true}, nil
		}
	}

	req, err := h.requirements(ctx, input)
	if err != nil {
		return nil, err
	}
	candidate, err := h.candidate(ctx, input)
	if err != nil {
		return nil, err
	}

	result, err := h.engine.CalculateMatch(*candidate, input.ProjectID, *req)
	if err != nil {
		return nil, errors.NewCandidateScoringFailedError(candidate.ID, err)
	}
	metrics.ObserveMatch(*result)

	h.logger.Info("match calculated", map[string]interface{}{
		"projectId":    input.ProjectID,
		"freelancerId": candidate.ID,
		"score":        result.MatchScore,
		"grade":        result.MatchGrade,
		"confidence":   result.Confidence,
	})

	if cacheable {
		if err := h.cache.SetMatch(ctx, result); err != nil {
			h.logger.Warn("failed to cache match", map[string]interface{}{"error": err})
		}
	}
	return &Output{Match: result}, nil
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

func (h *Handler) candidate(ctx context.Context, input *Input) (*matching.Candidate, error) {
	if input.Candidate != nil {
		return input.Candidate, nil
	}
	return h.store.LoadCandidate(ctx, input.FreelancerID)
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
