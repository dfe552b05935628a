package camunda

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"talent-match-workers/internal/common/config"
	"talent-match-workers/internal/common/errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastRetry = &RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

func TestExecuteWithRetry_RecoversFromTransientError(t *testing.T) {
	calls := 0
	err := ExecuteWithRetry(context.Background(), fastRetry, "complete job", func(context.Context) error {
		calls++
		if calls == 1 {
			return stderrors.New("rpc error: code = Unavailable desc = connection refused")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestExecuteWithRetry_MapsErrors(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCalls int
		wantCode  errors.ErrorCode
	}{
		{"unavailable exhausts retries", stderrors.New("code = Unavailable"), 3, errors.ErrCodeExternalService},
		{"deadline maps to timeout", stderrors.New("context deadline exceeded"), 3, errors.ErrCodeTimeout},
		{"not found is not retried", stderrors.New("code = NotFound desc = job not found"), 1, errors.ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := ExecuteWithRetry(context.Background(), fastRetry, "complete job", func(context.Context) error {
				calls++
				return tt.err
			})

			require.Error(t, err)
			assert.Equal(t, tt.wantCalls, calls)
			assert.Equal(t, tt.wantCode, errors.Normalize(err).Code)
			assert.Contains(t, err.Error(), "complete job")
		})
	}
}

func TestExecuteWithRetry_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	slow := &RetryConfig{MaxRetries: 5, BaseDelay: time.Hour, MaxDelay: time.Hour}

	err := ExecuteWithRetry(ctx, slow, "complete job", func(context.Context) error {
		cancel()
		return stderrors.New("connection reset by peer")
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestConfigFrom(t *testing.T) {
	cc := ConfigFrom(config.CamundaConfig{BrokerAddress: "zeebe:26500", Plaintext: true, Timeout: 2000})

	assert.Equal(t, "zeebe:26500", cc.GatewayAddress)
	assert.True(t, cc.UsePlaintextConnection)
	assert.Equal(t, 2*time.Second, cc.ConnectionTimeout)
	assert.Equal(t, 30*time.Second, cc.RequestTimeout)
	assert.Same(t, DefaultRetryConfig, cc.RetryConfig)
}

func TestJobDeadline(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	job := func(deadline int64) entities.Job {
		return entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 1, Deadline: deadline}}
	}

	assert.Equal(t, 30*time.Second, JobDeadline(job(0), 30*time.Second, now))
	assert.Equal(t, 5*time.Second, JobDeadline(job(now.Add(5*time.Second).UnixMilli()), 30*time.Second, now))
	assert.Equal(t, 30*time.Second, JobDeadline(job(now.Add(time.Minute).UnixMilli()), 30*time.Second, now))
	assert.Equal(t, 30*time.Second, JobDeadline(job(now.Add(-time.Second).UnixMilli()), 30*time.Second, now))
}
