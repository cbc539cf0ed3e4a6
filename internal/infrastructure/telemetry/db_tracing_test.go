package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"gorm.io/gorm"
)

func statementSpan(t *testing.T, started time.Time, table string, err error) sdktrace.ReadOnlySpan {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, span := tp.Tracer("test").Start(context.Background(), "gorm.Query")
	ctx = context.WithValue(ctx, queryStartKey{}, started)
	tx := &gorm.DB{
		Config:    &gorm.Config{},
		Statement: &gorm.Statement{Context: ctx, Table: table},
		Error:     err,
	}
	markSlowQuery(tx, 50*time.Millisecond)
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	return ended[0]
}

func spanAttr(span sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestMarkSlowQuery_RecordsStatementError(t *testing.T) {
	span := statementSpan(t, time.Now(), "batches", errors.New("relation \"batches\" does not exist"))

	assert.Equal(t, codes.Error, span.Status().Code)
	assert.Contains(t, span.Status().Description, "does not exist")
	require.Len(t, span.Events(), 1)
	assert.Equal(t, "exception", span.Events()[0].Name)

	table, ok := spanAttr(span, "db.sql.table")
	require.True(t, ok)
	assert.Equal(t, "batches", table.AsString())
	_, slow := spanAttr(span, "db.slow_query")
	assert.False(t, slow)
}

func TestMarkSlowQuery_IgnoresRecordNotFound(t *testing.T) {
	span := statementSpan(t, time.Now(), "movements", gorm.ErrRecordNotFound)

	assert.Equal(t, codes.Unset, span.Status().Code)
	assert.Empty(t, span.Events())
}

func TestMarkSlowQuery_FlagsSlowStatement(t *testing.T) {
	span := statementSpan(t, time.Now().Add(-time.Second), "batches", nil)

	slow, ok := spanAttr(span, "db.slow_query")
	require.True(t, ok)
	assert.True(t, slow.AsBool())
	ms, ok := spanAttr(span, "db.query_duration_ms")
	require.True(t, ok)
	assert.GreaterOrEqual(t, ms.AsInt64(), int64(1000))
	assert.Equal(t, codes.Unset, span.Status().Code)
}
