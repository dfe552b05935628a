package camunda

import (
	"context"
	"fmt"
	"time"

	"talent-match-workers/internal/common/config"
	"talent-match-workers/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

// Register opens a job worker for taskType. It returns nil when the worker is
// disabled in config.
func Register(client zbc.Client, taskType string, wcfg config.WorkerConfig, handler JobHandler, log logger.Logger) worker.JobWorker {
	if !wcfg.Enabled {
		log.Info("worker disabled", map[string]interface{}{"taskType": taskType})
		return nil
	}

	jobWorker := client.NewJobWorker().
		JobType(taskType).
		Handler(handler.Handle).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(time.Duration(wcfg.Timeout) * time.Millisecond).
		Name(fmt.Sprintf("%s-worker", taskType)).
		Open()

	log.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": wcfg.MaxJobsActive,
		"timeoutMs":     wcfg.Timeout,
	})
	return jobWorker
}

// CompleteJob sends the complete command, retrying transient gateway errors.
func CompleteJob(ctx context.Context, client worker.JobClient, job entities.Job, variables interface{}) error {
	return ExecuteWithRetry(ctx, DefaultRetryConfig, "complete job", func(ctx context.Context) error {
		cmd, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromObject(variables)
		if err != nil {
			return fmt.Errorf("build complete command: %w", err)
		}
		_, err = cmd.Send(ctx)
		return err
	})
}

// JobDeadline returns the time budget for a job: the worker timeout, cut
// short by the broker deadline when that is sooner.
func JobDeadline(job entities.Job, timeout time.Duration, now time.Time) time.Duration {
	if d := job.GetDeadline(); d > 0 {
		remaining := time.UnixMilli(d).Sub(now)
		if remaining > 0 && (timeout <= 0 || remaining < timeout) {
			return remaining
		}
	}
	return timeout
}
