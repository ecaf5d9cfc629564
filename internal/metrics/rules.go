package metrics

import "time"

// RuleMetrics provides observability for the rule evaluation engine.
//
// Implementations collect metrics about rule ticks, condition evaluation,
// and action dispatch. This interface is optional - pass nil to disable
// metrics collection with zero overhead.
//
// Example usage:
//
//	// With metrics enabled
//	m := prometheus.NewRuleMetrics()
//	engine := rules.New(compiled, params, target, m)
//
//	// Without metrics (pass nil for zero overhead)
//	engine := rules.New(compiled, params, target, nil)
type RuleMetrics interface {
	// RecordTick records a completed rule evaluation: whether the condition
	// matched and how long evaluation took.
	RecordTick(ruleID uint32, matched bool, duration time.Duration)

	// RecordActionDispatch records an action dispatched as a result of a
	// rule's condition matching.
	RecordActionDispatch(ruleID uint32, actionKind string, err error)

	// SetArmedRules updates the current count of armed (ticking) rules.
	SetArmedRules(count int)

	// RecordTimerStart records a rule's timer being armed.
	RecordTimerStart(ruleID uint32)

	// RecordTimerStop records a rule's timer being disarmed.
	RecordTimerStop(ruleID uint32)

	// RecordOverrun records a rule tick that fired before the previous
	// evaluation of the same rule completed.
	RecordOverrun(ruleID uint32)
}
