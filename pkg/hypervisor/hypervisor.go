// Package hypervisor declares the control surface the partition
// controller (C7) drives: the set of operations the mcp.c/mcpDomCtrl.c
// original shelled out to a "xl" CLI for. The default implementation,
// xlexec, launches that CLI as a subprocess; other implementations could
// talk to a hypervisor's API directly.
package hypervisor

import "context"

// DomainState is a guest's state as observed by the hypervisor,
// mirroring xen_interface.h's XenDomState_t.
type DomainState int

const (
	DomainUnknown DomainState = iota
	DomainDying
	DomainShutdown
	DomainPaused
	DomainBlocked
	DomainRunning
)

func (s DomainState) String() string {
	switch s {
	case DomainDying:
		return "dying"
	case DomainShutdown:
		return "shutdown"
	case DomainPaused:
		return "paused"
	case DomainBlocked:
		return "blocked"
	case DomainRunning:
		return "running"
	default:
		return "unknown"
	}
}

// DomainInfo is one entry of a List() enumeration.
type DomainInfo struct {
	Name  string
	ID    int
	State DomainState
}

// Hypervisor is the control surface a partition controller drives to
// create, destroy, and reschedule guest domains. Every mutating method
// blocks until the underlying operation completes (there is no
// asynchronous variant), matching the original's fork+waitpid model.
type Hypervisor interface {
	// Open acquires whatever handle the implementation needs (an xl
	// toolstack connection, a libvirt connection, ...). Must be called
	// before any other method.
	Open(ctx context.Context) error
	// Close releases the handle acquired by Open.
	Close() error

	// Create brings a domain up from its on-disk configuration,
	// created paused. configPath is implementation-defined (for
	// xlexec, a path to an xl domain config file).
	Create(ctx context.Context, name string, configPath string) error
	// Destroy tears a domain down unconditionally.
	Destroy(ctx context.Context, name string) error
	// Pause suspends a running domain.
	Pause(ctx context.Context, name string) error
	// Unpause resumes a paused domain.
	Unpause(ctx context.Context, name string) error
	// Reboot restarts a domain in place.
	Reboot(ctx context.Context, name string) error

	// SetSchedTimeslice sets the scheduler's global timeslice, in
	// milliseconds. A scheduler-wide parameter, so it only needs
	// setting once per schedule change.
	SetSchedTimeslice(ctx context.Context, millis uint32) error
	// SetSchedWeightCap sets a domain's scheduler weight and CPU cap.
	SetSchedWeightCap(ctx context.Context, name string, weight, cpuCap uint32) error

	// List enumerates every domain the hypervisor currently knows
	// about, for the partition controller's reconciliation sweep.
	List(ctx context.Context) ([]DomainInfo, error)
}
