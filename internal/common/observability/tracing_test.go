package observability

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStartSpan_RecordsJobSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	o := &Observability{}
	o.enableTracing("talent-match-test", sdktrace.WithSpanProcessor(recorder))

	_, span := o.StartSpan(context.Background(), "find-best-matches", attribute.String("projectId", "p-1"))
	EndSpan(span, nil)
	_, span = o.StartSpan(context.Background(), "calculate-match")
	EndSpan(span, fmt.Errorf("project p-2 not found"))

	ended := recorder.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, "find-best-matches", ended[0].Name())
	assert.Contains(t, ended[0].Attributes(), attribute.String("projectId", "p-1"))
	assert.Equal(t, codes.Unset, ended[0].Status().Code)
	assert.Equal(t, codes.Error, ended[1].Status().Code)
	assert.Equal(t, "project p-2 not found", ended[1].Status().Description)

	require.NoError(t, o.Shutdown(context.Background()))
}

func TestStartSpan_DisabledTracingIsNoop(t *testing.T) {
	var o *Observability
	ctx := context.Background()

	got, span := o.StartSpan(ctx, "calculate-match")
	assert.Equal(t, ctx, got)
	assert.False(t, span.IsRecording())
	assert.NotPanics(t, func() { EndSpan(span, fmt.Errorf("ignored")) })
}
