package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "mcpd", cfg.ServiceName)
	assert.Equal(t, "dev", cfg.ServiceVersion)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestInitDisabled(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.Enabled = false

	shutdown, err := Init(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	// Should be able to call shutdown without error
	err = shutdown(ctx)
	assert.NoError(t, err)

	// Should not be enabled
	assert.False(t, IsEnabled())
}

func TestTracerReturnsNoOp(t *testing.T) {
	// Reset state
	tracer = nil
	enabled = false

	// Without initialization, should return no-op tracer
	tr := Tracer()
	require.NotNil(t, tr)
}

func TestStartSpan(t *testing.T) {
	ctx := context.Background()

	// Even without initialization, StartSpan should work (no-op)
	newCtx, span := StartSpan(ctx, "test.operation")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)

	// Should be able to end the span
	span.End()
}

func TestSpanFromContext(t *testing.T) {
	ctx := context.Background()

	// Should return a span even without active span
	span := SpanFromContext(ctx)
	require.NotNil(t, span)
}

func TestAddEvent(t *testing.T) {
	ctx := context.Background()

	// Should not panic with no active span
	require.NotPanics(t, func() {
		AddEvent(ctx, "test.event")
	})
}

func TestRecordError(t *testing.T) {
	ctx := context.Background()

	// Should not panic with nil error
	require.NotPanics(t, func() {
		RecordError(ctx, nil)
	})

	// Should not panic with error
	require.NotPanics(t, func() {
		RecordError(ctx, errors.New("test error"))
	})
}

func TestSetStatus(t *testing.T) {
	ctx := context.Background()

	// Should not panic
	require.NotPanics(t, func() {
		SetStatus(ctx, codes.Ok, "success")
	})

	require.NotPanics(t, func() {
		SetStatus(ctx, codes.Error, "failed")
	})
}

func TestSetAttributes(t *testing.T) {
	ctx := context.Background()

	// Should not panic
	require.NotPanics(t, func() {
		SetAttributes(ctx, Partition("domU-web"))
	})
}

func TestTraceID(t *testing.T) {
	ctx := context.Background()

	// Without active span, should return empty string
	traceID := TraceID(ctx)
	assert.Equal(t, "", traceID)
}

func TestSpanID(t *testing.T) {
	ctx := context.Background()

	// Without active span, should return empty string
	spanID := SpanID(ctx)
	assert.Equal(t, "", spanID)
}

func TestAttributeHelpers(t *testing.T) {
	t.Run("RuleID", func(t *testing.T) {
		attr := RuleID(42)
		assert.Equal(t, AttrRuleID, string(attr.Key))
		assert.Equal(t, int64(42), attr.Value.AsInt64())
	})

	t.Run("RuleResult", func(t *testing.T) {
		attr := RuleResult(true)
		assert.Equal(t, AttrRuleResult, string(attr.Key))
		assert.True(t, attr.Value.AsBool())
	})

	t.Run("State", func(t *testing.T) {
		attr := State(3)
		assert.Equal(t, AttrState, string(attr.Key))
		assert.Equal(t, int64(3), attr.Value.AsInt64())
	})

	t.Run("FlightLeg", func(t *testing.T) {
		attr := FlightLeg(2)
		assert.Equal(t, AttrFlightLeg, string(attr.Key))
		assert.Equal(t, int64(2), attr.Value.AsInt64())
	})

	t.Run("OpMode", func(t *testing.T) {
		attr := OpMode(1)
		assert.Equal(t, AttrOpMode, string(attr.Key))
		assert.Equal(t, int64(1), attr.Value.AsInt64())
	})

	t.Run("Partition", func(t *testing.T) {
		attr := Partition("domU-web")
		assert.Equal(t, AttrPartition, string(attr.Key))
		assert.Equal(t, "domU-web", attr.Value.AsString())
	})

	t.Run("ScheduleID", func(t *testing.T) {
		attr := ScheduleID(7)
		assert.Equal(t, AttrScheduleID, string(attr.Key))
		assert.Equal(t, int64(7), attr.Value.AsInt64())
	})

	t.Run("ParamID", func(t *testing.T) {
		attr := ParamID(12)
		assert.Equal(t, AttrParamID, string(attr.Key))
		assert.Equal(t, int64(12), attr.Value.AsInt64())
	})

	t.Run("ParamValue", func(t *testing.T) {
		attr := ParamValue(3.14)
		assert.Equal(t, AttrParamValue, string(attr.Key))
		assert.Equal(t, 3.14, attr.Value.AsFloat64())
	})

	t.Run("ActionKind", func(t *testing.T) {
		attr := ActionKind("set_op_mode")
		assert.Equal(t, AttrActionKind, string(attr.Key))
		assert.Equal(t, "set_op_mode", attr.Value.AsString())
	})

	t.Run("HVCommand", func(t *testing.T) {
		attr := HVCommand("create")
		assert.Equal(t, AttrHVCommand, string(attr.Key))
		assert.Equal(t, "create", attr.Value.AsString())
	})

	t.Run("HVState", func(t *testing.T) {
		attr := HVState("running")
		assert.Equal(t, AttrHVState, string(attr.Key))
		assert.Equal(t, "running", attr.Value.AsString())
	})

	t.Run("TelemetryTarget", func(t *testing.T) {
		attr := TelemetryTarget("vms-primary")
		assert.Equal(t, AttrTelemetryTarget, string(attr.Key))
		assert.Equal(t, "vms-primary", attr.Value.AsString())
	})
}

func TestStartRuleSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartRuleSpan(ctx, 42)
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	newCtx2, span2 := StartRuleSpan(ctx, 7, RuleResult(true))
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()
}

func TestStartActionSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartActionSpan(ctx, "set_flight_leg")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	newCtx2, span2 := StartActionSpan(ctx, "trigger_reconciliation", Partition("domU-web"))
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()
}

func TestStartPartitionSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartPartitionSpan(ctx, "domU-web")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()

	newCtx2, span2 := StartPartitionSpan(ctx, "domU-db", PartitionState("reset"))
	require.NotNil(t, newCtx2)
	require.NotNil(t, span2)
	span2.End()
}

func TestStartHypervisorSpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartHypervisorSpan(ctx, "create", "domU-web")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()
}

func TestStartTelemetrySpan(t *testing.T) {
	ctx := context.Background()

	newCtx, span := StartTelemetrySpan(ctx, "vms-primary")
	require.NotNil(t, newCtx)
	require.NotNil(t, span)
	span.End()
}
