package metrics

import "time"

// HypervisorMetrics provides observability for calls into the hypervisor
// collaborator (create, pause, unpause, reset, destroy, status).
//
// This interface is optional - pass nil to disable metrics collection with
// zero overhead.
type HypervisorMetrics interface {
	// RecordCommand records a completed hypervisor command invocation.
	RecordCommand(command, domain string, duration time.Duration, err error)

	// RecordStatusPoll records a status poll against a domain during
	// reconciliation, along with the VM state it returned.
	RecordStatusPoll(domain, vmState string, duration time.Duration, err error)

	// SetCommandQueueDepth updates the gauge tracking commands queued
	// but not yet dispatched to the toolstack.
	SetCommandQueueDepth(count int)
}
