package action

import "fmt"

// Target is implemented by the collaborators an Action is dispatched
// against: the state machine (C6), the partition controller (C7), the
// parameter store (C2), and the supervisor's own logger. A single
// concrete type (the supervisor's core) typically implements all of
// these by delegating to its owned components.
type Target interface {
	SetFlightLeg(leg uint32) error
	SetOpMode(mode uint32) error
	SetMCPState(state uint32) error
	ResetPartition(partitionID uint32) error
	PausePartition(partitionID uint32) error
	UnpausePartition(partitionID uint32) error
	LogMessage(text string)
	SetParam(paramID uint32, value float64) error
	TriggerReconciliation() error
}

// Dispatch performs a, against target. value is the evaluating rule's
// result and is only consulted by SetParam; every other action ignores
// it, matching spec.md §4.4's "uses value" annotation on code 8 alone.
func Dispatch(target Target, a Action, value float64) error {
	switch act := a.(type) {
	case SetFlightLeg:
		return target.SetFlightLeg(act.Leg)
	case SetOpMode:
		return target.SetOpMode(act.Mode)
	case SetMCPState:
		return target.SetMCPState(act.State)
	case ResetPartition:
		return target.ResetPartition(act.PartitionID)
	case PausePartition:
		return target.PausePartition(act.PartitionID)
	case UnpausePartition:
		return target.UnpausePartition(act.PartitionID)
	case LogMessage:
		target.LogMessage(act.Text)
		return nil
	case SetParam:
		return target.SetParam(act.ParamID, value)
	case TriggerReconciliation:
		return target.TriggerReconciliation()
	default:
		return fmt.Errorf("action: dispatch of unhandled action type %T", act)
	}
}
