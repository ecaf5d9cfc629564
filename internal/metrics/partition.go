package metrics

import "time"

// PartitionMetrics provides observability for partition lifecycle state
// machines: transitions, reconciliation sweeps, and schedule activation.
//
// This interface is optional - pass nil to disable metrics collection with
// zero overhead.
type PartitionMetrics interface {
	// RecordTransition records a partition moving from one internal state
	// to another (e.g. "off" -> "on").
	RecordTransition(partition string, from, to string)

	// RecordTransitionRejected records an illegal transition attempt that
	// the partition state machine refused.
	RecordTransitionRejected(partition string, from, to string)

	// SetPartitionState updates the gauge tracking a partition's current
	// state, one time series per known state value.
	SetPartitionState(partition string, state string)

	// RecordReconciliation records one reconciliation sweep outcome for a
	// partition: whether the hypervisor-reported state matched the expected
	// state, and how long the sweep took.
	RecordReconciliation(partition string, drifted bool, duration time.Duration)

	// RecordScheduleActivation records a schedule being activated for a
	// partition, which may trigger a deferred transition.
	RecordScheduleActivation(partition string, scheduleID uint32)
}
