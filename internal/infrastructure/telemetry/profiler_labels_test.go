package telemetry

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeLabels(t *testing.T) {
	long := strings.Repeat("x", MaxLabelValueLength+10)

	pairs := sanitizeLabels(map[string]string{
		"Route-Name": "/ledger/allocations",
		"lot_id":     "0192",
		"empty":      "",
		"operation":  long,
	})

	assert.Equal(t, []string{
		"operation", long[:MaxLabelValueLength],
		"route_name", "/ledger/allocations",
	}, pairs)
	assert.Nil(t, sanitizeLabels(nil))
}

func TestSanitizeLabels_SortedAfterNormalizing(t *testing.T) {
	labels := map[string]string{
		"Zone":      "plant-2",
		"method":    "POST",
		"Batch-ID":  "0193",
		"ACTOR":     "line-2",
		"operation": OperationAllocate,
	}
	want := []string{
		"actor", "line-2",
		"method", "POST",
		"operation", OperationAllocate,
		"zone", "plant-2",
	}
	for i := 0; i < 20; i++ {
		assert.Equal(t, want, sanitizeLabels(labels))
	}
}

func TestOperationLabels(t *testing.T) {
	labels := OperationLabels(OperationAudit, map[string]string{"trigger": "cron"})
	assert.Equal(t, map[string]string{"operation": "ledger.audit", "trigger": "cron"}, labels)
}

func TestHTTPRequestLabels(t *testing.T) {
	assert.Equal(t, map[string]string{"route": "/health", "method": "GET"}, HTTPRequestLabels("/health", "GET"))
	assert.Empty(t, HTTPRequestLabels("", ""))
}

func TestWithProfilingLabels_RunsFn(t *testing.T) {
	called := false
	WithProfilingLabels(context.Background(), nil, func(context.Context) { called = true })
	assert.True(t, called)

	called = false
	WithProfilingLabels(context.Background(), OperationLabels(OperationAllocate, nil), func(context.Context) { called = true })
	assert.True(t, called)
}
