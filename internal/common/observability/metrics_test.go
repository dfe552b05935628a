package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestObservability_RecordsJobs(t *testing.T) {
	reader := metric.NewManualReader()
	o, err := NewWithReader("talent-match-test", reader)
	require.NoError(t, err)

	ctx := context.Background()
	o.RecordJobProcessed(ctx, "find-best-matches", "success")
	o.RecordJobProcessed(ctx, "find-best-matches", "success")
	o.RecordJobDuration(ctx, "find-best-matches", 120*time.Millisecond, "success")
	o.RecordPoolSize(ctx, 42, false)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	names := map[string]metricdata.Metrics{}
	for _, m := range rm.ScopeMetrics[0].Metrics {
		names[m.Name] = m
	}
	require.Contains(t, names, "jobs.processed")
	require.Contains(t, names, "jobs.duration")
	require.Contains(t, names, "matching.pool_size")

	sum, ok := names["jobs.processed"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(2), sum.DataPoints[0].Value)

	require.NoError(t, o.Shutdown(ctx))
}

func TestObservability_ZeroValueIsSafe(t *testing.T) {
	var o *Observability
	assert.NotPanics(t, func() {
		o.RecordJobProcessed(context.Background(), "calculate-match", "error")
		o.RecordJobDuration(context.Background(), "calculate-match", time.Second, "error")
		_ = o.Shutdown(context.Background())
	})
}
