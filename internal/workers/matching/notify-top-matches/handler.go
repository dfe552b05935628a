package notifytopmatches

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	htmlstd "html"
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
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const TaskType = "notify-top-matches"

type ContactStore interface {
	LoadContact(ctx context.Context, freelancerID string) (*repository.Contact, error)
}

type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, text, html string) (string, error)
}

type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) (string, error)
}

type HandlerOptions struct {
	Config        *Config
	Contacts      ContactStore
	Email         EmailSender
	SMS           SMSSender
	Validator     *validation.Validator
	Observability *observability.Observability
	Logger        logger.Logger
	Clock         func() time.Time
}

type Handler struct {
	config     *Config
	contacts   ContactStore
	email      EmailSender
	sms        SMSSender
	validator  *validation.Validator
	obs        *observability.Observability
	errHandler *errors.ErrorHandler
	logger     logger.Logger
	now        func() time.Time
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Contacts == nil || opts.Validator == nil {
		return nil, fmt.Errorf("%s requires a contact store and a validator", TaskType)
	}
	if cfg.EmailEnabled && opts.Email == nil {
		return nil, fmt.Errorf("%s: email is enabled but no sender is configured", TaskType)
	}
	if cfg.SMSEnabled && opts.SMS == nil {
		return nil, fmt.Errorf("%s: sms is enabled but no sender is configured", TaskType)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})

	now := opts.Clock
	if now == nil {
		now = time.Now
	}

	return &Handler{
		config:     cfg,
		contacts:   opts.Contacts,
		email:      opts.Email,
		sms:        opts.SMS,
		validator:  opts.Validator,
		obs:        opts.Observability,
		errHandler: errors.NewErrorHandler(log),
		logger:     log,
		now:        now,
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
	if input.MinGrade == "" {
		input.MinGrade = matching.GradeGood
	}
	return &input, nil
}

// delivery is the outcome of notifying one freelancer.
type delivery int

const (
	deliverySkipped delivery = iota
	deliverySent
	deliveryFailed
)

// Execute notifies every freelancer graded at or above MinGrade. A job where
// every attempted delivery failed is returned as a retryable error.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input.ProjectID == "" {
		return nil, errors.NewInvalidMatchInputError("projectId is required")
	}
	minGrade := input.MinGrade
	if minGrade == "" {
		minGrade = matching.GradeGood
	}

	out := &Output{
		NotificationID: uuid.New().String(),
		SentAt:         h.now().UTC(),
	}
	if !h.config.EmailEnabled && !h.config.SMSEnabled {
		out.Skipped = len(input.Matches)
		out.Status = StatusDisabled
		return out, nil
	}

	var lastErr error
	for _, m := range input.Matches {
		if m.MatchGrade.Rank() > minGrade.Rank() {
			out.Skipped++
			continue
		}
		result, err := h.notify(ctx, input, m)
		switch result {
		case deliverySent:
			out.Notified++
		case deliveryFailed:
			out.Failed++
			lastErr = err
		default:
			out.Skipped++
		}
	}

	switch {
	case out.Notified > 0 && out.Failed == 0:
		out.Status = StatusSent
	case out.Notified > 0:
		out.Status = StatusPartial
	case out.Failed > 0:
		return nil, lastErr
	default:
		out.Status = StatusNone
	}

	h.logger.Info("match notifications processed", map[string]interface{}{
		"projectId":      input.ProjectID,
		"notificationId": out.NotificationID,
		"notified":       out.Notified,
		"skipped":        out.Skipped,
		"failed":         out.Failed,
		"status":         out.Status,
	})
	return out, nil
}

// notify delivers to one freelancer on every channel it qualifies for. One
// successful channel counts the freelancer as notified.
func (h *Handler) notify(ctx context.Context, input *Input, m MatchSummary) (delivery, error) {
	contact, err := h.contacts.LoadContact(ctx, m.FreelancerID)
	if err != nil {
		var stdErr *errors.StandardError
		if stderrors.As(err, &stdErr) && stdErr.Code == errors.ErrCodeCandidateNotFound {
			h.logger.Debug("freelancer inactive, not notified", map[string]interface{}{"freelancerId": m.FreelancerID})
			return deliverySkipped, nil
		}
		h.logger.Warn("failed to load contact", map[string]interface{}{
			"freelancerId": m.FreelancerID,
			"error":        err,
		})
		return deliveryFailed, err
	}

	attempted, sent := 0, 0
	var lastErr error

	if h.config.EmailEnabled && validation.ValidateEmail(contact.Email) {
		attempted++
		subject, text, html := emailContent(input, m, contact, h.config.PortalURL)
		if _, err := h.email.SendEmail(ctx, contact.Email, subject, text, html); err != nil {
			lastErr = errors.NewNotificationSendFailedError("email", err)
			h.logger.Warn("email notification failed", map[string]interface{}{
				"freelancerId": m.FreelancerID,
				"error":        err,
			})
		} else {
			sent++
		}
	}

	if h.config.SMSEnabled && m.MatchGrade == matching.GradeExcellent && validation.ValidatePhone(contact.Phone) {
		attempted++
		if _, err := h.sms.SendSMS(ctx, contact.Phone, smsContent(input, m)); err != nil {
			lastErr = errors.NewNotificationSendFailedError("sms", err)
			h.logger.Warn("sms notification failed", map[string]interface{}{
				"freelancerId": m.FreelancerID,
				"error":        err,
			})
		} else {
			sent++
		}
	}

	switch {
	case sent > 0:
		return deliverySent, nil
	case attempted > 0:
		return deliveryFailed, lastErr
	default:
		h.logger.Debug("no usable contact channel", map[string]interface{}{"freelancerId": m.FreelancerID})
		return deliverySkipped, nil
	}
}

func emailContent(input *Input, m MatchSummary, c *repository.Contact, portalURL string) (subject, text, html string) {
	title := projectTitle(input)
	subject = fmt.Sprintf("New project match: %s", title)

	name := c.Name
	if name == "" {
		name = "there"
	}
	link := ""
	if portalURL != "" {
		link = fmt.Sprintf("%s/projects/%s", strings.TrimRight(portalURL, "/"), input.ProjectID)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", name)
	fmt.Fprintf(&b, "Your profile is a %s match (%.0f/100) for the project \"%s\".\n", m.MatchGrade, m.MatchScore, title)
	if link != "" {
		fmt.Fprintf(&b, "\nView the project: %s\n", link)
		html = fmt.Sprintf(`<p>Hi %s,</p><p>Your profile is a <strong>%s</strong> match (%.0f/100) for <a href="%s">%s</a>.</p>`,
			htmlstd.EscapeString(name), m.MatchGrade, m.MatchScore, htmlstd.EscapeString(link), htmlstd.EscapeString(title))
	}
	return subject, b.String(), html
}

func smsContent(input *Input, m MatchSummary) string {
	return fmt.Sprintf("You're an excellent match (%.0f/100) for \"%s\". Check your inbox for details.", m.MatchScore, projectTitle(input))
}

func projectTitle(input *Input) string {
	if input.ProjectTitle != "" {
		return input.ProjectTitle
	}
	return input.ProjectID
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
