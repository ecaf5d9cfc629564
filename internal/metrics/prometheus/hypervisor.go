package prometheus

import (
	"time"

	"github.com/flightos/mcpd/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// hypervisorMetrics is the Prometheus implementation of metrics.HypervisorMetrics.
type hypervisorMetrics struct {
	commands      *prometheus.CounterVec
	commandTime   *prometheus.HistogramVec
	statusPolls   *prometheus.CounterVec
	statusLatency *prometheus.HistogramVec
	queueDepth    prometheus.Gauge
}

// NewHypervisorMetrics creates a new Prometheus-backed HypervisorMetrics instance.
//
// Returns nil if metrics are not enabled (metrics.InitRegistry not called).
func NewHypervisorMetrics() metrics.HypervisorMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &hypervisorMetrics{
		commands: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpd_hypervisor_commands_total",
				Help: "Total number of hypervisor toolstack commands issued",
			},
			[]string{"command", "domain", "status"},
		),
		commandTime: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "mcpd_hypervisor_command_duration_milliseconds",
				Help: "Duration of a hypervisor toolstack command invocation",
				Buckets: []float64{
					10, 50, 100, 500, 1000, 5000, 10000, 30000,
				},
			},
			[]string{"command"},
		),
		statusPolls: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpd_hypervisor_status_polls_total",
				Help: "Total number of domain status polls issued during reconciliation",
			},
			[]string{"domain", "vm_state", "status"},
		),
		statusLatency: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "mcpd_hypervisor_status_poll_duration_milliseconds",
				Help: "Duration of a domain status poll",
				Buckets: []float64{
					1, 5, 10, 50, 100, 500, 1000,
				},
			},
			[]string{"domain"},
		),
		queueDepth: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "mcpd_hypervisor_command_queue_depth",
				Help: "Current number of hypervisor commands queued but not yet dispatched",
			},
		),
	}
}

func (m *hypervisorMetrics) RecordCommand(command, domain string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(command, domain, statusLabel(err)).Inc()
	m.commandTime.WithLabelValues(command).Observe(duration.Seconds() * 1000)
}

func (m *hypervisorMetrics) RecordStatusPoll(domain, vmState string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.statusPolls.WithLabelValues(domain, vmState, statusLabel(err)).Inc()
	m.statusLatency.WithLabelValues(domain).Observe(duration.Seconds() * 1000)
}

func (m *hypervisorMetrics) SetCommandQueueDepth(count int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(count))
}
