package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funnel-workers/internal/common/config"
)

func TestNew_TracingWithoutExporter(t *testing.T) {
	o, err := New(config.ObservabilityConfig{ServiceName: "funnel-test", TracingEnabled: true, SampleRatio: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = o.Shutdown(context.Background()) })

	ctx, span := o.StartSpan(context.Background(), "state.apply", "conversationId", "conv_1")
	defer span.End()

	assert.True(t, span.SpanContext().IsValid())
	assert.True(t, span.IsRecording())
	assert.NotNil(t, ctx)

	o.RecordMessageApplied(ctx, "new_project_sales", "slot_filling")
	o.RecordQuestionAsked(ctx, "caller_name")
	o.RecordJobProcessed(ctx, "build-conversation-state", "completed")
}

func TestNewNoop(t *testing.T) {
	o := NewNoop()
	_, span := o.StartSpan(context.Background(), "noop", "odd")
	assert.False(t, span.IsRecording())

	o.RecordMessageApplied(context.Background(), "x", "y")
	assert.NoError(t, o.Shutdown(context.Background()))
}
