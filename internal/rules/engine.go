// Package rules implements the rule engine (C5): a per-rule periodic
// timer that evaluates a compiled equation and dispatches its result as
// an action, armed and disarmed by the state machine's set-difference
// protocol.
package rules

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/flightos/mcpd/internal/action"
	"github.com/flightos/mcpd/internal/expr"
	"github.com/flightos/mcpd/internal/logger"
	"github.com/flightos/mcpd/internal/metrics"
)

// Rule is a compiled, ready-to-arm rule, built once at MCT load time.
type Rule struct {
	ID       uint32
	Name     string
	Period   time.Duration
	Equation expr.Expr
	Action   action.Action
}

type runner struct {
	rule       Rule
	cancel     context.CancelFunc
	done       chan struct{}
	evaluating atomic.Bool
}

// Engine owns the full set of compiled rules and tracks which are
// currently armed. Arming runs a goroutine per rule reading its own
// time.Ticker, so ticks for distinct rules run concurrently, matching
// spec.md §4.5's "thread per expiration" model. m may be nil to disable
// metrics collection entirely.
type Engine struct {
	mu      sync.Mutex
	rules   map[uint32]Rule
	running map[uint32]*runner

	params  expr.ParamReader
	target  action.Target
	metrics metrics.RuleMetrics
}

// New builds an Engine over the given compiled rule set. None are armed
// initially, matching spec.md §4.5's "timers are not armed at creation".
func New(rules []Rule, params expr.ParamReader, target action.Target, m metrics.RuleMetrics) *Engine {
	byID := make(map[uint32]Rule, len(rules))
	for _, r := range rules {
		byID[r.ID] = r
	}
	return &Engine{
		rules:   byID,
		running: make(map[uint32]*runner),
		params:  params,
		target:  target,
		metrics: m,
	}
}

// Start arms the given rule ids, a no-op for ids already armed or
// unknown to the engine.
func (e *Engine) Start(ruleIDs []uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, id := range ruleIDs {
		if _, armed := e.running[id]; armed {
			continue
		}
		rule, ok := e.rules[id]
		if !ok {
			continue
		}

		ctx, cancel := context.WithCancel(context.Background())
		run := &runner{rule: rule, cancel: cancel, done: make(chan struct{})}
		e.running[id] = run

		go e.tickLoop(ctx, run)
		e.recordTimerStart(id)
	}
	e.recordArmedCount()
}

// Stop disarms the given rule ids, a no-op for ids already disarmed.
func (e *Engine) Stop(ruleIDs []uint32) {
	e.mu.Lock()
	toStop := make([]*runner, 0, len(ruleIDs))
	for _, id := range ruleIDs {
		if run, armed := e.running[id]; armed {
			delete(e.running, id)
			toStop = append(toStop, run)
		}
	}
	e.recordArmedCount()
	e.mu.Unlock()

	for _, run := range toStop {
		run.cancel()
		<-run.done
		e.recordTimerStop(run.rule.ID)
	}
}

// StopAll disarms every currently armed rule, used on shutdown and
// before a reload rebuilds the rule set.
func (e *Engine) StopAll() {
	e.mu.Lock()
	ids := make([]uint32, 0, len(e.running))
	for id := range e.running {
		ids = append(ids, id)
	}
	e.mu.Unlock()

	e.Stop(ids)
}

// ArmedCount reports how many rules are currently armed.
func (e *Engine) ArmedCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.running)
}

func (e *Engine) recordArmedCount() {
	if e.metrics != nil {
		e.metrics.SetArmedRules(len(e.running))
	}
}

func (e *Engine) recordTimerStart(ruleID uint32) {
	if e.metrics != nil {
		e.metrics.RecordTimerStart(ruleID)
	}
}

func (e *Engine) recordTimerStop(ruleID uint32) {
	if e.metrics != nil {
		e.metrics.RecordTimerStop(ruleID)
	}
}

func (e *Engine) tickLoop(ctx context.Context, run *runner) {
	defer close(run.done)

	ticker := time.NewTicker(run.rule.Period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.tick(run)
		}
	}
}

// tick evaluates a rule's compiled equation and dispatches its result.
// Evaluation and dispatch happen without holding the engine's mutex:
// shared state (the publication region, the partition controller) owns
// its own guard, per spec.md §4.5's note that same-rule tick overlap is
// tolerable because shared state is independently mutex-guarded.
func (e *Engine) tick(run *runner) {
	if !run.evaluating.CompareAndSwap(false, true) {
		if e.metrics != nil {
			e.metrics.RecordOverrun(run.rule.ID)
		}
		logger.Warn("rule tick overrun: previous evaluation still running", "rule_id", run.rule.ID, "rule_name", run.rule.Name)
	}
	defer run.evaluating.Store(false)

	rule := run.rule
	start := time.Now()

	result := expr.Eval(rule.Equation, e.params)
	matched := result != 0
	if e.metrics != nil {
		e.metrics.RecordTick(rule.ID, matched, time.Since(start))
	}

	if !matched {
		return
	}

	err := action.Dispatch(e.target, rule.Action, result)
	if err != nil {
		logger.Error("rule action dispatch failed", "rule_id", rule.ID, "rule_name", rule.Name, "error", err)
	}
	if e.metrics != nil {
		e.metrics.RecordActionDispatch(rule.ID, actionKind(rule.Action), err)
	}
}

func actionKind(a action.Action) string {
	switch a.(type) {
	case action.SetFlightLeg:
		return "set_flight_leg"
	case action.SetOpMode:
		return "set_op_mode"
	case action.SetMCPState:
		return "set_mcp_state"
	case action.ResetPartition:
		return "reset_partition"
	case action.PausePartition:
		return "pause_partition"
	case action.UnpausePartition:
		return "unpause_partition"
	case action.LogMessage:
		return "log_message"
	case action.SetParam:
		return "set_param"
	case action.TriggerReconciliation:
		return "trigger_reconciliation"
	default:
		return "unknown"
	}
}
