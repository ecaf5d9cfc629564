// Package statemachine implements the state machine (C6): the single
// source of truth for which MCT state is current, and the transition
// protocol that arms/disarms rules and reprograms partition schedules
// when it changes.
package statemachine

import (
	"errors"
	"fmt"
	"sync"

	"github.com/flightos/mcpd/internal/logger"
	"github.com/flightos/mcpd/internal/mct"
	"github.com/flightos/mcpd/internal/publication"
)

var (
	// ErrInvalidState is returned by SetState for an id that is neither
	// HaltedStateID nor a row in the state table.
	ErrInvalidState = errors.New("statemachine: invalid state id")
	// ErrInvalidLeg is returned by SetFlightLeg when no state exists for
	// (leg, current mode).
	ErrInvalidLeg = errors.New("statemachine: no state for flight leg at current op mode")
	// ErrInvalidMode is returned by SetOpMode when no state exists for
	// (current leg, mode).
	ErrInvalidMode = errors.New("statemachine: no state for op mode at current flight leg")
)

// StateLookup is the subset of the MCT query layer the state machine
// needs to resolve state coordinates.
type StateLookup interface {
	StateByID(id uint32) (mct.StateDetail, bool, error)
	StateByLegMode(leg, mode uint32) (id uint32, ok bool, err error)
	RuleSetDifference(fromState, toState uint32) (toStop, toStart []uint32, err error)
}

// RuleArmer is the subset of the rule engine the state machine drives.
type RuleArmer interface {
	Start(ruleIDs []uint32)
	Stop(ruleIDs []uint32)
}

// PartitionScheduler is the subset of the partition controller the state
// machine drives; scheduleID 0 means "no schedule".
type PartitionScheduler interface {
	SetSchedule(scheduleID uint32) error
}

// StateMachine tracks the current (state, leg, mode) coordinate and
// performs the transition protocol of spec.md §4.6.
type StateMachine struct {
	mu sync.Mutex

	current uint32
	leg     uint32
	mode    uint32

	queries    StateLookup
	region     *publication.Region
	rules      RuleArmer
	partitions PartitionScheduler
}

// New builds a StateMachine starting in HALTED, matching process
// startup before any state is explicitly set.
func New(queries StateLookup, region *publication.Region, rules RuleArmer, partitions PartitionScheduler) *StateMachine {
	return &StateMachine{
		current:    mct.HaltedStateID,
		queries:    queries,
		region:     region,
		rules:      rules,
		partitions: partitions,
	}
}

// GetState returns the current state id.
func (sm *StateMachine) GetState() uint32 {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.current
}

// GetFlightLeg returns the current flight leg.
func (sm *StateMachine) GetFlightLeg() uint32 {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.leg
}

// GetOpMode returns the current operating mode.
func (sm *StateMachine) GetOpMode() uint32 {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.mode
}

// SetState runs the transition protocol of spec.md §4.6. Errors from
// step 6 (partition scheduling) are logged and returned but do not roll
// back the published state: step 4 (the publication write) is the
// commit point, so a partial transition still leaves the supervisor in
// a posture that can receive the next command.
func (sm *StateMachine) SetState(newState uint32) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	var newLeg, newMode, newSchedule uint32
	if newState != mct.HaltedStateID {
		detail, ok, err := sm.queries.StateByID(newState)
		if err != nil {
			return fmt.Errorf("statemachine: resolve state %d: %w", newState, err)
		}
		if !ok {
			return ErrInvalidState
		}
		newLeg, newMode, newSchedule = detail.Leg, detail.Mode, detail.ScheduleID
	}

	oldState := sm.current

	toStop, toStart, err := sm.queries.RuleSetDifference(oldState, newState)
	if err != nil {
		return fmt.Errorf("statemachine: compute rule set difference: %w", err)
	}

	if oldState != mct.HaltedStateID {
		sm.rules.Stop(toStop)
	}

	if err := sm.region.SetState(newState, newMode, newLeg); err != nil {
		return fmt.Errorf("statemachine: publish state: %w", err)
	}
	sm.current, sm.leg, sm.mode = newState, newLeg, newMode

	if newState != mct.HaltedStateID {
		sm.rules.Start(toStart)
	}

	if err := sm.partitions.SetSchedule(newSchedule); err != nil {
		logger.Error("partition schedule transition failed after state commit",
			"state_id", newState, "schedule_id", newSchedule, "error", err)
		return fmt.Errorf("statemachine: set schedule: %w", err)
	}

	return nil
}

// SetMCPState is SetState under the name the action dispatcher's Target
// interface expects (action code 3).
func (sm *StateMachine) SetMCPState(state uint32) error {
	return sm.SetState(state)
}

// SetFlightLeg resolves (leg, current mode) to a state and transitions
// to it, matching spec.md §4.6.
func (sm *StateMachine) SetFlightLeg(leg uint32) error {
	sm.mu.Lock()
	mode := sm.mode
	sm.mu.Unlock()

	id, ok, err := sm.queries.StateByLegMode(leg, mode)
	if err != nil {
		return fmt.Errorf("statemachine: resolve flight leg %d: %w", leg, err)
	}
	if !ok {
		return ErrInvalidLeg
	}
	return sm.SetState(id)
}

// SetOpMode resolves (current leg, mode) to a state and transitions to
// it, matching spec.md §4.6.
func (sm *StateMachine) SetOpMode(mode uint32) error {
	sm.mu.Lock()
	leg := sm.leg
	sm.mu.Unlock()

	id, ok, err := sm.queries.StateByLegMode(leg, mode)
	if err != nil {
		return fmt.Errorf("statemachine: resolve op mode %d: %w", mode, err)
	}
	if !ok {
		return ErrInvalidMode
	}
	return sm.SetState(id)
}
