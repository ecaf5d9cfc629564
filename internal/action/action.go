// Package action implements the action dispatcher (C4): the nine
// actions a rule or a manual operator request can trigger, parsed into a
// sum type once at load time rather than re-parsed from text on every
// tick.
package action

import (
	"fmt"
	"strconv"
)

// Code is the stored action code (spec.md §4.4, table 1-9).
type Code uint32

const (
	CodeSetFlightLeg          Code = 1
	CodeSetOpMode             Code = 2
	CodeSetMCPState           Code = 3
	CodeResetPartition        Code = 4
	CodePausePartition        Code = 5
	CodeUnpausePartition      Code = 6
	CodeLogMessage            Code = 7
	CodeSetParam              Code = 8
	CodeTriggerReconciliation Code = 9
)

// Action is a parsed, ready-to-dispatch action. Exactly one concrete
// type implements it per code.
type Action interface {
	isAction()
}

// SetFlightLeg sets the current flight leg.
type SetFlightLeg struct{ Leg uint32 }

// SetOpMode sets the current operating mode.
type SetOpMode struct{ Mode uint32 }

// SetMCPState sets the current MCP state directly, bypassing the
// (leg, mode) resolution path.
type SetMCPState struct{ State uint32 }

// ResetPartition requests the named partition be reset.
type ResetPartition struct{ PartitionID uint32 }

// PausePartition requests the named partition be paused.
type PausePartition struct{ PartitionID uint32 }

// UnpausePartition requests the named partition be unpaused.
type UnpausePartition struct{ PartitionID uint32 }

// LogMessage logs arg_text at INFO.
type LogMessage struct{ Text string }

// SetParam writes a rule's evaluated result into a parameter.
type SetParam struct{ ParamID uint32 }

// TriggerReconciliation requests an out-of-cycle partition
// reconciliation sweep; its argument is ignored.
type TriggerReconciliation struct{}

func (SetFlightLeg) isAction()          {}
func (SetOpMode) isAction()             {}
func (SetMCPState) isAction()           {}
func (ResetPartition) isAction()        {}
func (PausePartition) isAction()        {}
func (UnpausePartition) isAction()      {}
func (LogMessage) isAction()            {}
func (SetParam) isAction()              {}
func (TriggerReconciliation) isAction() {}

// Parse builds an Action from a stored (code, arg_text) pair. arg_text
// is parsed as an unsigned integer except for CodeLogMessage, where it
// is the literal message. Called once per rule row at MCT load time.
func Parse(code Code, argText string) (Action, error) {
	switch code {
	case CodeSetFlightLeg:
		leg, err := parseArgUint(argText)
		if err != nil {
			return nil, err
		}
		return SetFlightLeg{Leg: leg}, nil
	case CodeSetOpMode:
		mode, err := parseArgUint(argText)
		if err != nil {
			return nil, err
		}
		return SetOpMode{Mode: mode}, nil
	case CodeSetMCPState:
		state, err := parseArgUint(argText)
		if err != nil {
			return nil, err
		}
		return SetMCPState{State: state}, nil
	case CodeResetPartition:
		id, err := parseArgUint(argText)
		if err != nil {
			return nil, err
		}
		return ResetPartition{PartitionID: id}, nil
	case CodePausePartition:
		id, err := parseArgUint(argText)
		if err != nil {
			return nil, err
		}
		return PausePartition{PartitionID: id}, nil
	case CodeUnpausePartition:
		id, err := parseArgUint(argText)
		if err != nil {
			return nil, err
		}
		return UnpausePartition{PartitionID: id}, nil
	case CodeLogMessage:
		return LogMessage{Text: argText}, nil
	case CodeSetParam:
		id, err := parseArgUint(argText)
		if err != nil {
			return nil, err
		}
		return SetParam{ParamID: id}, nil
	case CodeTriggerReconciliation:
		return TriggerReconciliation{}, nil
	default:
		return nil, fmt.Errorf("action: unknown code %d", code)
	}
}

func parseArgUint(argText string) (uint32, error) {
	v, err := strconv.ParseUint(argText, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("action: invalid argument %q: %w", argText, err)
	}
	return uint32(v), nil
}
