package prometheus

import (
	"time"

	"github.com/flightos/mcpd/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// mctMetrics is the Prometheus implementation of metrics.MCTMetrics.
type mctMetrics struct {
	queries        *prometheus.CounterVec
	queryLatency   *prometheus.HistogramVec
	reloads        *prometheus.CounterVec
	reloadLatency  prometheus.Histogram
	reloadRuleRows prometheus.Gauge
	reloadPartRows prometheus.Gauge
	openConns      prometheus.Gauge
}

// NewMCTMetrics creates a new Prometheus-backed MCTMetrics instance.
//
// Returns nil if metrics are not enabled (metrics.InitRegistry not called).
func NewMCTMetrics() metrics.MCTMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &mctMetrics{
		queries: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpd_mct_queries_total",
				Help: "Total number of queries issued against the mission control table store",
			},
			[]string{"query", "status"},
		),
		queryLatency: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mcpd_mct_query_duration_milliseconds",
				Help:    "Duration of a single MCT query",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 50, 100, 500},
			},
			[]string{"query"},
		),
		reloads: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpd_mct_reloads_total",
				Help: "Total number of full MCT reloads",
			},
			[]string{"status"},
		),
		reloadLatency: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mcpd_mct_reload_duration_milliseconds",
				Help:    "Duration of a full MCT reload",
				Buckets: []float64{1, 10, 50, 100, 500, 1000, 5000},
			},
		),
		reloadRuleRows: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "mcpd_mct_reload_rule_count",
				Help: "Number of rule rows loaded by the most recent MCT reload",
			},
		),
		reloadPartRows: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "mcpd_mct_reload_partition_count",
				Help: "Number of partition rows loaded by the most recent MCT reload",
			},
		),
		openConns: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "mcpd_mct_open_connections",
				Help: "Current number of open connections to a postgres-backed MCT",
			},
		),
	}
}

func (m *mctMetrics) RecordQuery(query string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(query, statusLabel(err)).Inc()
	m.queryLatency.WithLabelValues(query).Observe(duration.Seconds() * 1000)
}

func (m *mctMetrics) RecordReload(duration time.Duration, ruleCount, partitionCount int, err error) {
	if m == nil {
		return
	}
	m.reloads.WithLabelValues(statusLabel(err)).Inc()
	m.reloadLatency.Observe(duration.Seconds() * 1000)
	if err == nil {
		m.reloadRuleRows.Set(float64(ruleCount))
		m.reloadPartRows.Set(float64(partitionCount))
	}
}

func (m *mctMetrics) SetOpenConnections(count int) {
	if m == nil {
		return
	}
	m.openConns.Set(float64(count))
}
