package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/taskd/internal/activation"
	"github.com/fyrsmithlabs/taskd/internal/telemetry"
)

func TestMetrics_RecordInvocation(t *testing.T) {
	tel := telemetry.NewTestTelemetry()
	m := NewMetrics(tel.Meter(instrumentationName), zap.NewNop())
	ctx := context.Background()

	m.RecordInvocation(ctx, "work_on", 100*time.Millisecond, "")
	m.RecordInvocation(ctx, "work_on", 50*time.Millisecond, "task_not_found")
	m.RecordInvocation(ctx, "get_execution_state", 5*time.Millisecond, "")

	total, ok := tel.SumValue(t, "taskd.mcp.tool.invocations_total", attribute.String("tool", "work_on"))
	require.True(t, ok)
	assert.Equal(t, int64(2), total)

	errs, ok := tel.SumValue(t, "taskd.mcp.tool.errors_total",
		attribute.String("tool", "work_on"), attribute.String("reason", "task_not_found"))
	require.True(t, ok)
	assert.Equal(t, int64(1), errs)

	var histogramCount uint64
	for _, sm := range tel.Collect(t).ScopeMetrics {
		for _, metric := range sm.Metrics {
			if metric.Name != "taskd.mcp.tool.duration_seconds" {
				continue
			}
			hist, ok := metric.Data.(metricdata.Histogram[float64])
			require.True(t, ok)
			for _, dp := range hist.DataPoints {
				histogramCount += dp.Count
			}
		}
	}
	assert.Equal(t, uint64(3), histogramCount)
}

func TestMetrics_ActiveRequests(t *testing.T) {
	tel := telemetry.NewTestTelemetry()
	m := NewMetrics(tel.Meter(instrumentationName), nil)
	ctx := context.Background()

	m.IncrementActive(ctx, "work_on")
	m.IncrementActive(ctx, "work_on")
	m.DecrementActive(ctx, "work_on")

	active, ok := tel.SumValue(t, "taskd.mcp.tool.active_requests", attribute.String("tool", "work_on"))
	require.True(t, ok)
	assert.Equal(t, int64(1), active)
}

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"nil error", nil, ""},
		{"validation error", &activation.ValidationError{Code: activation.CodeInvalidType}, "invalid_type"},
		{"wrapped validation error", fmt.Errorf("call: %w", &activation.ValidationError{Code: activation.CodeTaskNotFound}), "task_not_found"},
		{"deadline", fmt.Errorf("git status: %w", context.DeadlineExceeded), "timeout"},
		{"canceled", context.Canceled, "canceled"},
		{"generic error", errors.New("disk full"), "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, categorizeError(tt.err))
		})
	}
}
