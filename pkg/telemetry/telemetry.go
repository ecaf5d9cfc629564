// Package telemetry declares the collaborator the partition controller
// (C7) pushes observed VM state changes to, matching the original's
// vms_set_vm_state calls into its VMS database connection. Telemetry
// calls are best-effort: spec.md §5 requires failures never abort
// reconciliation.
package telemetry

import "context"

// VMState is the published state of a guest, mirroring spec.md §4.7's
// HV-observation-to-published-state mapping.
type VMState int

const (
	VMStateUnknown VMState = iota
	VMStateStarted
	VMStatePaused
	VMStateError
)

func (s VMState) String() string {
	switch s {
	case VMStateStarted:
		return "started"
	case VMStatePaused:
		return "paused"
	case VMStateError:
		return "error"
	default:
		return "unknown"
	}
}

// Telemetry pushes partition state changes to an external observer.
// Implementations must tolerate being called at reconciliation
// frequency (a few times a second at most) and must treat every failure
// as non-fatal to the caller.
type Telemetry interface {
	// Connect establishes the connection, retrying internally per the
	// implementation's configured backoff. Failure to connect must not
	// abort supervisor startup (spec.md §5): callers log the error and
	// continue, since reconciliation calls are best-effort anyway.
	Connect(ctx context.Context) error
	// Close releases the connection.
	Close() error
	// SetVMState reports partition name's new published state.
	SetVMState(ctx context.Context, name string, state VMState) error
	// Status forwards a log message, matching the original's mcp_log
	// redirecting every line to vms_status_update once VMS is connected.
	// Best-effort: a failure here must never block or fail the log call
	// that triggered it.
	Status(ctx context.Context, text string) error
}
