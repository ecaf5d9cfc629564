package prometheus

import (
	"time"

	"github.com/flightos/mcpd/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// partitionMetrics is the Prometheus implementation of metrics.PartitionMetrics.
type partitionMetrics struct {
	transitions      *prometheus.CounterVec
	transitionsBad   *prometheus.CounterVec
	state            *prometheus.GaugeVec
	reconciliations  *prometheus.CounterVec
	reconcileDrift   *prometheus.CounterVec
	reconcileLatency *prometheus.HistogramVec
	scheduleActivate *prometheus.CounterVec
}

// NewPartitionMetrics creates a new Prometheus-backed PartitionMetrics instance.
//
// Returns nil if metrics are not enabled (metrics.InitRegistry not called).
func NewPartitionMetrics() metrics.PartitionMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &partitionMetrics{
		transitions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpd_partition_transitions_total",
				Help: "Total number of partition state transitions",
			},
			[]string{"partition", "from", "to"},
		),
		transitionsBad: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpd_partition_transitions_rejected_total",
				Help: "Total number of illegal partition transitions refused by the state machine",
			},
			[]string{"partition", "from", "to"},
		),
		state: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mcpd_partition_state",
				Help: "Current partition state (1 for the active state, 0 otherwise) per partition and state name",
			},
			[]string{"partition", "state"},
		),
		reconciliations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpd_partition_reconciliations_total",
				Help: "Total number of reconciliation sweeps performed per partition",
			},
			[]string{"partition"},
		),
		reconcileDrift: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpd_partition_reconcile_drift_total",
				Help: "Total number of reconciliation sweeps that found hypervisor state diverged from expected state",
			},
			[]string{"partition"},
		),
		reconcileLatency: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "mcpd_partition_reconcile_duration_milliseconds",
				Help: "Duration of a reconciliation sweep for a single partition",
				Buckets: []float64{
					1, 5, 10, 50, 100, 500, 1000, 5000,
				},
			},
			[]string{"partition"},
		),
		scheduleActivate: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpd_partition_schedule_activations_total",
				Help: "Total number of schedule activations applied to a partition",
			},
			[]string{"partition", "schedule_id"},
		),
	}
}

func (m *partitionMetrics) RecordTransition(partition string, from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(partition, from, to).Inc()
	m.state.WithLabelValues(partition, from).Set(0)
	m.state.WithLabelValues(partition, to).Set(1)
}

func (m *partitionMetrics) RecordTransitionRejected(partition string, from, to string) {
	if m == nil {
		return
	}
	m.transitionsBad.WithLabelValues(partition, from, to).Inc()
}

func (m *partitionMetrics) SetPartitionState(partition string, state string) {
	if m == nil {
		return
	}
	m.state.WithLabelValues(partition, state).Set(1)
}

func (m *partitionMetrics) RecordReconciliation(partition string, drifted bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.reconciliations.WithLabelValues(partition).Inc()
	if drifted {
		m.reconcileDrift.WithLabelValues(partition).Inc()
	}
	m.reconcileLatency.WithLabelValues(partition).Observe(duration.Seconds() * 1000)
}

func (m *partitionMetrics) RecordScheduleActivation(partition string, scheduleID uint32) {
	if m == nil {
		return
	}
	m.scheduleActivate.WithLabelValues(partition, uint32Label(scheduleID)).Inc()
}
