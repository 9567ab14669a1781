package otel

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coffeeshop/pkg/logger"
)

func TestAddSpanProducesTraceID(t *testing.T) {
	tp, shutdown, err := InitTracing(logger.Nop(), Config{ServiceName: "coffeeshop-test", Probability: 1.0})
	require.NoError(t, err)
	defer shutdown(context.Background())

	ctx := InjectTracing(context.Background(), tp.Tracer("test"))
	assert.Empty(t, GetTraceID(ctx))

	ctx, span := AddSpan(ctx, "unit")
	defer span.End()
	assert.Len(t, GetTraceID(ctx), 32)

	_, child := AddSpan(ctx, "child")
	defer child.End()
	assert.Equal(t, span.SpanContext().TraceID(), child.SpanContext().TraceID())
}

func TestStdoutExporterWritesSpans(t *testing.T) {
	var buf bytes.Buffer
	tp, shutdown, err := InitTracing(logger.Nop(), Config{
		ServiceName: "coffeeshop-test",
		Exporter:    "stdout",
		Probability: 1.0,
		Writer:      &buf,
	})
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(context.Background(), "exported")
	span.End()
	require.NoError(t, shutdown(context.Background()))

	assert.Contains(t, buf.String(), `"Name": "exported"`)
}
