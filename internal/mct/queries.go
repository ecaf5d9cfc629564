package mct

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/flightos/mcpd/internal/metrics"
	"github.com/google/uuid"
)

// preparedQuery wraps a *sql.Stmt with the mutex the contract in
// SPEC_FULL.md §4.3 requires: reset -> bind -> step(*) happens under the
// lock, never interleaved across goroutines. generation records which
// Queries build produced it, so a caller that squirreled away a
// *preparedQuery across a reload can detect staleness instead of driving
// a statement against a closed *sql.DB.
type preparedQuery struct {
	mu         sync.Mutex
	stmt       *sql.Stmt
	generation uuid.UUID
}

func (q *preparedQuery) queryContext(currentGeneration uuid.UUID, args ...any) (*sql.Rows, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.generation != currentGeneration {
		return nil, fmt.Errorf("mct: query used against stale generation")
	}
	return q.stmt.Query(args...)
}

func (q *preparedQuery) close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stmt == nil {
		return nil
	}
	return q.stmt.Close()
}

// Queries is the full set of prepared statements the supervisor's core
// drives against a Snapshot. It is rebuilt wholesale on every reload;
// callers must fetch a fresh *Queries after Reload rather than reusing
// one across it.
type Queries struct {
	db       *sql.DB
	snapshot *Snapshot
	metrics  metrics.MCTMetrics

	countRules            *preparedQuery
	iterateRules          *preparedQuery
	countParams           *preparedQuery
	iterateParams         *preparedQuery
	countPartitions       *preparedQuery
	iteratePartitions     *preparedQuery
	stateByLegMode        *preparedQuery
	stateByID             *preparedQuery
	scheduleTimeslice     *preparedQuery
	allocationsBySchedule *preparedQuery
	rulesInState          *preparedQuery
	ruleByID              *preparedQuery
	paramValid            *preparedQuery
}

const (
	sqlCountRules   = `SELECT COUNT(*) FROM "ruleTable"`
	sqlIterateRules = `SELECT id, name, period_seconds, equation, action, option FROM "ruleTable"`

	sqlCountParams   = `SELECT COUNT(*) FROM "paramTable"`
	sqlIterateParams = `SELECT id, name, type, port FROM "paramTable"`

	sqlCountPartitions   = `SELECT COUNT(*) FROM "partitionTable"`
	sqlIteratePartitions = `SELECT id, name FROM "partitionTable"`

	sqlStateByLegMode = `SELECT id FROM "stateTable" WHERE leg = ? AND mode = ?`
	sqlStateByID      = `SELECT schedule_ref, leg, mode FROM "stateTable" WHERE id = ?`

	sqlScheduleTimeslice = `SELECT timeslice FROM "scheduleTable" WHERE id = ?`

	sqlAllocationsBySchedule = `SELECT partition_id, weight, cpucap FROM "schedulePartitionAllocation" WHERE schedule_id = ?`

	sqlRulesInState = `SELECT rule_id FROM "stateRuleLink" WHERE state_id = ?`

	sqlRuleByID = `SELECT name, equation FROM "ruleTable" WHERE id = ?`

	sqlParamValid = `SELECT 1 FROM "paramTable" WHERE id = ?`
)

// Prepare builds the full prepared-query surface against snapshot. Call
// again after every Reload. m may be nil to disable metrics collection.
func Prepare(snapshot *Snapshot, m metrics.MCTMetrics) (*Queries, error) {
	sqlDB, err := snapshot.db.DB()
	if err != nil {
		return nil, fmt.Errorf("mct: acquire sql.DB: %w", err)
	}

	q := &Queries{db: sqlDB, snapshot: snapshot, metrics: m}

	specs := []struct {
		dst **preparedQuery
		sql string
	}{
		{&q.countRules, sqlCountRules},
		{&q.iterateRules, sqlIterateRules},
		{&q.countParams, sqlCountParams},
		{&q.iterateParams, sqlIterateParams},
		{&q.countPartitions, sqlCountPartitions},
		{&q.iteratePartitions, sqlIteratePartitions},
		{&q.stateByLegMode, sqlStateByLegMode},
		{&q.stateByID, sqlStateByID},
		{&q.scheduleTimeslice, sqlScheduleTimeslice},
		{&q.allocationsBySchedule, sqlAllocationsBySchedule},
		{&q.rulesInState, sqlRulesInState},
		{&q.ruleByID, sqlRuleByID},
		{&q.paramValid, sqlParamValid},
	}

	for _, s := range specs {
		stmt, err := sqlDB.Prepare(s.sql)
		if err != nil {
			q.Close()
			return nil, fmt.Errorf("mct: prepare query: %w", err)
		}
		*s.dst = &preparedQuery{stmt: stmt, generation: snapshot.generation}
	}

	return q, nil
}

// Close tears down every prepared statement. Safe to call on a partially
// built Queries.
func (q *Queries) Close() error {
	all := []*preparedQuery{
		q.countRules, q.iterateRules, q.countParams, q.iterateParams,
		q.countPartitions, q.iteratePartitions, q.stateByLegMode, q.stateByID,
		q.scheduleTimeslice, q.allocationsBySchedule, q.rulesInState,
		q.ruleByID, q.paramValid,
	}
	var firstErr error
	for _, pq := range all {
		if pq == nil {
			continue
		}
		if err := pq.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// RuleRow is one row of the rule table, as consumed by the rule engine
// (C5) to build its compiled-equation/timer set at load and reload time.
type RuleRow struct {
	ID            uint32
	Name          string
	PeriodSeconds float64
	Equation      string
	Action        uint32
	Option        string
}

// recordQuery reports a completed query to the configured MCTMetrics, a
// no-op when none was supplied to Prepare.
func (q *Queries) recordQuery(name string, start time.Time, err error) {
	if q.metrics != nil {
		q.metrics.RecordQuery(name, time.Since(start), err)
	}
}

// CountRules returns the number of declared rules.
func (q *Queries) CountRules() (int, error) {
	var n int
	row := q.db.QueryRow(sqlCountRules)
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("mct: count rules: %w", err)
	}
	return n, nil
}

// IterateRules returns every declared rule.
func (q *Queries) IterateRules() (out []RuleRow, err error) {
	start := time.Now()
	defer func() { q.recordQuery("iterate_rules", start, err) }()

	rows, err := q.iterateRules.queryContext(q.snapshot.Generation())
	if err != nil {
		return nil, fmt.Errorf("mct: iterate rules: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r RuleRow
		if err := rows.Scan(&r.ID, &r.Name, &r.PeriodSeconds, &r.Equation, &r.Action, &r.Option); err != nil {
			return nil, fmt.Errorf("mct: scan rule: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ParamRow is one row of the parameter table.
type ParamRow struct {
	ID   uint32
	Name string
	Type string
	Port string
}

// CountParams returns the number of declared parameters.
func (q *Queries) CountParams() (int, error) {
	var n int
	row := q.db.QueryRow(sqlCountParams)
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("mct: count params: %w", err)
	}
	return n, nil
}

// IterateParams returns every declared parameter.
func (q *Queries) IterateParams() (out []ParamRow, err error) {
	start := time.Now()
	defer func() { q.recordQuery("iterate_params", start, err) }()

	rows, err := q.iterateParams.queryContext(q.snapshot.Generation())
	if err != nil {
		return nil, fmt.Errorf("mct: iterate params: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p ParamRow
		if err := rows.Scan(&p.ID, &p.Name, &p.Type, &p.Port); err != nil {
			return nil, fmt.Errorf("mct: scan param: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// PartitionRow is one row of the partition table.
type PartitionRow struct {
	ID   uint32
	Name string
}

// CountPartitions returns the number of declared partitions.
func (q *Queries) CountPartitions() (int, error) {
	var n int
	row := q.db.QueryRow(sqlCountPartitions)
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("mct: count partitions: %w", err)
	}
	return n, nil
}

// IteratePartitions returns every declared partition.
func (q *Queries) IteratePartitions() (out []PartitionRow, err error) {
	start := time.Now()
	defer func() { q.recordQuery("iterate_partitions", start, err) }()

	rows, err := q.iteratePartitions.queryContext(q.snapshot.Generation())
	if err != nil {
		return nil, fmt.Errorf("mct: iterate partitions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p PartitionRow
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, fmt.Errorf("mct: scan partition: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// StateByLegMode resolves the (leg, mode) coordinate to a state id. ok is
// false when no state is declared for that coordinate, which the state
// machine (C6) treats as a rejected transition.
func (q *Queries) StateByLegMode(leg, mode uint32) (id uint32, ok bool, err error) {
	start := time.Now()
	defer func() { q.recordQuery("state_by_leg_mode", start, err) }()

	rows, err := q.stateByLegMode.queryContext(q.snapshot.Generation(), leg, mode)
	if err != nil {
		return 0, false, fmt.Errorf("mct: state by leg/mode: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return 0, false, rows.Err()
	}
	if err := rows.Scan(&id); err != nil {
		return 0, false, fmt.Errorf("mct: scan state id: %w", err)
	}
	return id, true, rows.Err()
}

// StateDetail holds the (schedule, leg, mode) triple for a state id.
type StateDetail struct {
	ScheduleID uint32
	Leg        uint32
	Mode       uint32
}

// StateByID resolves a state id to its (schedule, leg, mode) triple. The
// synthetic HALTED id (0) is handled by the caller without a query.
func (q *Queries) StateByID(id uint32) (StateDetail, bool, error) {
	rows, err := q.stateByID.queryContext(q.snapshot.Generation(), id)
	if err != nil {
		return StateDetail{}, false, fmt.Errorf("mct: state by id: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return StateDetail{}, false, rows.Err()
	}
	var d StateDetail
	if err := rows.Scan(&d.ScheduleID, &d.Leg, &d.Mode); err != nil {
		return StateDetail{}, false, fmt.Errorf("mct: scan state detail: %w", err)
	}
	return d, true, rows.Err()
}

// ScheduleTimeslice returns the timeslice for a schedule id.
func (q *Queries) ScheduleTimeslice(scheduleID uint32) (uint32, bool, error) {
	rows, err := q.scheduleTimeslice.queryContext(q.snapshot.Generation(), scheduleID)
	if err != nil {
		return 0, false, fmt.Errorf("mct: schedule timeslice: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return 0, false, rows.Err()
	}
	var t uint32
	if err := rows.Scan(&t); err != nil {
		return 0, false, fmt.Errorf("mct: scan timeslice: %w", err)
	}
	return t, true, rows.Err()
}

// AllocationRow is one (partition, weight, cap) row for a schedule.
type AllocationRow struct {
	PartitionID uint32
	Weight      uint32
	CPUCap      uint32
}

// AllocationsBySchedule returns every partition allocation under a
// schedule, for the partition controller (C7) to apply when activating
// that schedule.
func (q *Queries) AllocationsBySchedule(scheduleID uint32) ([]AllocationRow, error) {
	rows, err := q.allocationsBySchedule.queryContext(q.snapshot.Generation(), scheduleID)
	if err != nil {
		return nil, fmt.Errorf("mct: allocations by schedule: %w", err)
	}
	defer rows.Close()

	var out []AllocationRow
	for rows.Next() {
		var a AllocationRow
		if err := rows.Scan(&a.PartitionID, &a.Weight, &a.CPUCap); err != nil {
			return nil, fmt.Errorf("mct: scan allocation: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// RulesInState returns the set of rule ids armed while stateID is
// current.
func (q *Queries) RulesInState(stateID uint32) (map[uint32]struct{}, error) {
	rows, err := q.rulesInState.queryContext(q.snapshot.Generation(), stateID)
	if err != nil {
		return nil, fmt.Errorf("mct: rules in state: %w", err)
	}
	defer rows.Close()

	set := make(map[uint32]struct{})
	for rows.Next() {
		var ruleID uint32
		if err := rows.Scan(&ruleID); err != nil {
			return nil, fmt.Errorf("mct: scan rule id: %w", err)
		}
		set[ruleID] = struct{}{}
	}
	return set, rows.Err()
}

// RuleSetDifference returns the rule ids armed in fromState but not in
// toState (to stop) and armed in toState but not in fromState (to
// start) — the exact set-difference the state machine (C6) needs on
// every transition.
func (q *Queries) RuleSetDifference(fromState, toState uint32) (toStop, toStart []uint32, err error) {
	from, err := q.RulesInState(fromState)
	if err != nil {
		return nil, nil, err
	}
	to, err := q.RulesInState(toState)
	if err != nil {
		return nil, nil, err
	}

	for id := range from {
		if _, ok := to[id]; !ok {
			toStop = append(toStop, id)
		}
	}
	for id := range to {
		if _, ok := from[id]; !ok {
			toStart = append(toStart, id)
		}
	}
	return toStop, toStart, nil
}

// RuleIntrospection is the (name, equation) pair returned for a rule id,
// used by introspection tooling (cmd/mcpctl).
type RuleIntrospection struct {
	Name     string
	Equation string
}

// RuleByID returns a rule's name and equation text for introspection.
func (q *Queries) RuleByID(ruleID uint32) (RuleIntrospection, bool, error) {
	rows, err := q.ruleByID.queryContext(q.snapshot.Generation(), ruleID)
	if err != nil {
		return RuleIntrospection{}, false, fmt.Errorf("mct: rule by id: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return RuleIntrospection{}, false, rows.Err()
	}
	var r RuleIntrospection
	if err := rows.Scan(&r.Name, &r.Equation); err != nil {
		return RuleIntrospection{}, false, fmt.Errorf("mct: scan rule introspection: %w", err)
	}
	return r, true, rows.Err()
}

// ParamValid reports whether paramID names a declared parameter.
func (q *Queries) ParamValid(paramID uint32) (bool, error) {
	rows, err := q.paramValid.queryContext(q.snapshot.Generation(), paramID)
	if err != nil {
		return false, fmt.Errorf("mct: param valid: %w", err)
	}
	defer rows.Close()
	return rows.Next(), rows.Err()
}
