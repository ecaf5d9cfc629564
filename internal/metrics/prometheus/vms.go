package prometheus

import (
	"time"

	"github.com/flightos/mcpd/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// vmsMetrics is the Prometheus implementation of metrics.VMSMetrics.
type vmsMetrics struct {
	connectAttempts *prometheus.CounterVec
	connectLatency  prometheus.Histogram
	connected       prometheus.Gauge
	pushes          *prometheus.CounterVec
	pushLatency     *prometheus.HistogramVec
	sessionIncr     prometheus.Counter
}

// NewVMSMetrics creates a new Prometheus-backed VMSMetrics instance.
//
// Returns nil if metrics are not enabled (metrics.InitRegistry not called).
func NewVMSMetrics() metrics.VMSMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &vmsMetrics{
		connectAttempts: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpd_vms_connect_attempts_total",
				Help: "Total number of connection attempts to the VMS telemetry collaborator",
			},
			[]string{"status"},
		),
		connectLatency: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mcpd_vms_connect_duration_milliseconds",
				Help:    "Duration of a VMS connection attempt",
				Buckets: []float64{10, 50, 100, 500, 1000, 5000},
			},
		),
		connected: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "mcpd_vms_connected",
				Help: "Whether the VMS telemetry connection is currently established (1) or not (0)",
			},
		),
		pushes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpd_vms_pushes_total",
				Help: "Total number of telemetry pushes sent to the VMS",
			},
			[]string{"kind", "status"},
		),
		pushLatency: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mcpd_vms_push_duration_milliseconds",
				Help:    "Duration of a single telemetry push to the VMS",
				Buckets: []float64{1, 5, 10, 50, 100, 500, 1000},
			},
			[]string{"kind"},
		),
		sessionIncr: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "mcpd_vms_session_increments_total",
				Help: "Total number of session counter increments sent to the VMS",
			},
		),
	}
}

func (m *vmsMetrics) RecordConnectAttempt(success bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.connectAttempts.WithLabelValues(boolLabel(success)).Inc()
	m.connectLatency.Observe(duration.Seconds() * 1000)
}

func (m *vmsMetrics) SetConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.connected.Set(1)
	} else {
		m.connected.Set(0)
	}
}

func (m *vmsMetrics) RecordPush(kind string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	m.pushes.WithLabelValues(kind, statusLabel(err)).Inc()
	m.pushLatency.WithLabelValues(kind).Observe(duration.Seconds() * 1000)
}

func (m *vmsMetrics) RecordSessionIncrement(sessionID string) {
	if m == nil {
		return
	}
	m.sessionIncr.Inc()
}
