package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for MCP operations.
const (
	// ========================================================================
	// Rule evaluation attributes
	// ========================================================================
	AttrRuleID     = "mcp.rule.id"
	AttrRuleResult = "mcp.rule.result"

	// ========================================================================
	// State machine attributes
	// ========================================================================
	AttrState     = "mcp.state"
	AttrFlightLeg = "mcp.flight_leg"
	AttrOpMode    = "mcp.op_mode"

	// ========================================================================
	// Partition attributes
	// ========================================================================
	AttrPartition      = "mcp.partition.name"
	AttrPartitionState = "mcp.partition.state"
	AttrScheduleID     = "mcp.schedule.id"

	// ========================================================================
	// Parameter & action attributes
	// ========================================================================
	AttrParamID    = "mcp.param.id"
	AttrParamValue = "mcp.param.value"
	AttrActionKind = "mcp.action.kind"

	// ========================================================================
	// Hypervisor attributes
	// ========================================================================
	AttrHVCommand = "hypervisor.command"
	AttrHVDomain  = "hypervisor.domain"
	AttrHVState   = "hypervisor.vm_state"

	// ========================================================================
	// Telemetry collaborator attributes
	// ========================================================================
	AttrTelemetryTarget = "telemetry.target"
	AttrSessionID       = "telemetry.session_id"
)

// Span names for MCP operations.
const (
	SpanRuleTick            = "mcp.rule_tick"
	SpanRuleEval            = "mcp.rule_eval"
	SpanActionDispatch      = "mcp.action_dispatch"
	SpanStateTransition     = "mcp.state_transition"
	SpanPartitionTransition = "mcp.partition_transition"
	SpanPartitionReconcile  = "mcp.partition_reconcile"
	SpanScheduleActivate    = "mcp.schedule_activate"
	SpanHypervisorCall      = "hypervisor.call"
	SpanTelemetryPush       = "telemetry.push"
	SpanMCTQuery            = "mct.query"
	SpanPublicationUpdate   = "publication.update"
)

// RuleID returns an attribute for a rule ID.
func RuleID(id uint32) attribute.KeyValue {
	return attribute.Int64(AttrRuleID, int64(id))
}

// RuleResult returns an attribute for whether a rule's condition matched.
func RuleResult(matched bool) attribute.KeyValue {
	return attribute.Bool(AttrRuleResult, matched)
}

// State returns an attribute for the active MCP state.
func State(id uint32) attribute.KeyValue {
	return attribute.Int64(AttrState, int64(id))
}

// FlightLeg returns an attribute for the active flight leg.
func FlightLeg(id uint32) attribute.KeyValue {
	return attribute.Int64(AttrFlightLeg, int64(id))
}

// OpMode returns an attribute for the active operational mode.
func OpMode(id uint32) attribute.KeyValue {
	return attribute.Int64(AttrOpMode, int64(id))
}

// Partition returns an attribute for a partition name.
func Partition(name string) attribute.KeyValue {
	return attribute.String(AttrPartition, name)
}

// PartitionState returns an attribute for a partition's internal state.
func PartitionState(state string) attribute.KeyValue {
	return attribute.String(AttrPartitionState, state)
}

// ScheduleID returns an attribute for a schedule ID.
func ScheduleID(id uint32) attribute.KeyValue {
	return attribute.Int64(AttrScheduleID, int64(id))
}

// ParamID returns an attribute for a parameter ID.
func ParamID(id uint32) attribute.KeyValue {
	return attribute.Int64(AttrParamID, int64(id))
}

// ParamValue returns an attribute for a parameter value.
func ParamValue(v float64) attribute.KeyValue {
	return attribute.Float64(AttrParamValue, v)
}

// ActionKind returns an attribute for an action kind dispatched from a rule.
func ActionKind(kind string) attribute.KeyValue {
	return attribute.String(AttrActionKind, kind)
}

// HVCommand returns an attribute for a hypervisor command name.
func HVCommand(name string) attribute.KeyValue {
	return attribute.String(AttrHVCommand, name)
}

// HVDomain returns an attribute for a hypervisor domain/partition name.
func HVDomain(name string) attribute.KeyValue {
	return attribute.String(AttrHVDomain, name)
}

// HVState returns an attribute for a hypervisor-reported VM state.
func HVState(state string) attribute.KeyValue {
	return attribute.String(AttrHVState, state)
}

// TelemetryTarget returns an attribute for the telemetry collaborator endpoint.
func TelemetryTarget(target string) attribute.KeyValue {
	return attribute.String(AttrTelemetryTarget, target)
}

// SessionID returns an attribute for the telemetry session identifier.
func SessionID(id string) attribute.KeyValue {
	return attribute.String(AttrSessionID, id)
}

// StartRuleSpan starts a span for a single rule evaluation.
func StartRuleSpan(ctx context.Context, ruleID uint32, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{RuleID(ruleID)}, attrs...)
	return StartSpan(ctx, SpanRuleEval, trace.WithAttributes(allAttrs...))
}

// StartActionSpan starts a span for dispatching a single action.
func StartActionSpan(ctx context.Context, kind string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{ActionKind(kind)}, attrs...)
	return StartSpan(ctx, SpanActionDispatch, trace.WithAttributes(allAttrs...))
}

// StartPartitionSpan starts a span for a partition state transition.
func StartPartitionSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{Partition(name)}, attrs...)
	return StartSpan(ctx, SpanPartitionTransition, trace.WithAttributes(allAttrs...))
}

// StartHypervisorSpan starts a span for a call into the hypervisor collaborator.
func StartHypervisorSpan(ctx context.Context, command, domain string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{HVCommand(command), HVDomain(domain)}, attrs...)
	return StartSpan(ctx, SpanHypervisorCall, trace.WithAttributes(allAttrs...))
}

// StartTelemetrySpan starts a span for pushing data to the telemetry collaborator.
func StartTelemetrySpan(ctx context.Context, target string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{TelemetryTarget(target)}, attrs...)
	return StartSpan(ctx, SpanTelemetryPush, trace.WithAttributes(allAttrs...))
}

// StartMCTSpan starts a span for a query against the mission control table store.
func StartMCTSpan(ctx context.Context, query string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := append([]attribute.KeyValue{attribute.String("mct.query_name", query)}, attrs...)
	return StartSpan(ctx, SpanMCTQuery, trace.WithAttributes(allAttrs...))
}
