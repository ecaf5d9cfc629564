package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds operation-scoped logging context. It travels with a rule
// tick, an action dispatch, or a partition transition so every log line
// emitted during that operation carries the same correlation fields.
type LogContext struct {
	TraceID   string    // OpenTelemetry trace ID
	SpanID    string    // OpenTelemetry span ID
	Operation string    // "rule_tick", "partition_transition", "reconcile", etc.
	RuleID    uint32    // Rule ID, when the operation is rule-scoped
	Partition string    // Partition name, when the operation is partition-scoped
	State     uint32    // MCP state active when the operation started
	StartTime time.Time // For duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext for the given operation.
func NewLogContext(operation string) *LogContext {
	return &LogContext{
		Operation: operation,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		TraceID:   lc.TraceID,
		SpanID:    lc.SpanID,
		Operation: lc.Operation,
		RuleID:    lc.RuleID,
		Partition: lc.Partition,
		State:     lc.State,
		StartTime: lc.StartTime,
	}
}

// WithRule returns a copy scoped to a specific rule.
func (lc *LogContext) WithRule(ruleID uint32) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.RuleID = ruleID
	}
	return clone
}

// WithPartition returns a copy scoped to a specific partition.
func (lc *LogContext) WithPartition(name string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Partition = name
	}
	return clone
}

// WithState returns a copy with the active MCP state recorded.
func (lc *LogContext) WithState(state uint32) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.State = state
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
