package logger

import (
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements for log aggregation and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Operation scope (rule tick, partition transition, reconciliation sweep)
	// ========================================================================
	KeyOperation = "operation" // "rule_tick", "partition_transition", "reconcile", etc.
	KeyRuleID    = "rule_id"   // Rule ID, when the operation is rule-scoped
	KeyPartition = "partition" // Partition name, when the operation is partition-scoped
	KeyState     = "state"     // MCP state active when the operation started

	// ========================================================================
	// Domain entities
	// ========================================================================
	KeyParamID    = "param_id"    // Parameter ID
	KeyActionType = "action_type" // Action kind dispatched from a rule
	KeyFlightLeg  = "flight_leg"  // Active flight leg
	KeyOpMode     = "op_mode"     // Active operational mode
	KeyHVState    = "hv_state"    // Hypervisor-reported VM state
	KeySchedule   = "schedule"    // Schedule ID

	// ========================================================================
	// Operation metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyErrorCode  = "error_code"  // Numeric error code
	KeySource     = "source"      // Data source: mct, paramstore, telemetry, hypervisor
	KeyAttempt    = "attempt"     // Retry attempt number
	KeyMaxRetries = "max_retries" // Maximum retry attempts
)

// ============================================================================
// Field constructors for type safety
// ============================================================================

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// Operation returns a slog.Attr for the operation kind
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// RuleID returns a slog.Attr for a rule ID
func RuleID(id uint32) slog.Attr {
	return slog.Any(KeyRuleID, id)
}

// Partition returns a slog.Attr for a partition name
func Partition(name string) slog.Attr {
	return slog.String(KeyPartition, name)
}

// State returns a slog.Attr for an MCP state ID
func State(id uint32) slog.Attr {
	return slog.Any(KeyState, id)
}

// ParamID returns a slog.Attr for a parameter ID
func ParamID(id uint32) slog.Attr {
	return slog.Any(KeyParamID, id)
}

// ActionType returns a slog.Attr for an action kind
func ActionType(kind string) slog.Attr {
	return slog.String(KeyActionType, kind)
}

// FlightLeg returns a slog.Attr for the active flight leg
func FlightLeg(id uint32) slog.Attr {
	return slog.Any(KeyFlightLeg, id)
}

// OpMode returns a slog.Attr for the active operational mode
func OpMode(id uint32) slog.Attr {
	return slog.Any(KeyOpMode, id)
}

// HVState returns a slog.Attr for a hypervisor-reported VM state
func HVState(state string) slog.Attr {
	return slog.String(KeyHVState, state)
}

// Schedule returns a slog.Attr for a schedule ID
func Schedule(id uint32) slog.Attr {
	return slog.Any(KeySchedule, id)
}

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorCode returns a slog.Attr for numeric error code
func ErrorCode(code int) slog.Attr {
	return slog.Int(KeyErrorCode, code)
}

// Source returns a slog.Attr for data source
func Source(src string) slog.Attr {
	return slog.String(KeySource, src)
}

// Attempt returns a slog.Attr for retry attempt number
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}

// MaxRetries returns a slog.Attr for maximum retry attempts
func MaxRetries(n int) slog.Attr {
	return slog.Int(KeyMaxRetries, n)
}
