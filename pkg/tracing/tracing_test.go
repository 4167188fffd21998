package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartSpan_WithoutTracer(t *testing.T) {
	SetTracer(nil)

	ctx, span := StartSpan(context.Background(), "test")
	defer span.End()

	assert.Nil(t, GetActiveSpan(ctx))
	assert.Empty(t, GetTraceID(ctx))
	assert.Empty(t, Headers(ctx))

	Fail(span, errors.New("boom"), "no-op span accepts failures")
}

func TestInit_LoggingExporter(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	shutdown, err := Init(context.Background(), Config{ServiceName: "reed-test"}, logger)
	require.NoError(t, err)
	defer func() {
		SetTracer(nil)
		_ = shutdown(context.Background())
	}()

	ctx, span := StartSpan(context.Background(), "importer.Runner.Process", AttrJobID.String("job-1"))
	defer span.End()

	assert.Len(t, GetTraceID(ctx), 32)
	assert.Len(t, GetSpanID(ctx), 16)
	assert.Contains(t, Headers(ctx)["traceparent"], GetTraceID(ctx))
}
