package prometheus

import (
	"time"

	"github.com/flightos/mcpd/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ruleMetrics is the Prometheus implementation of metrics.RuleMetrics.
type ruleMetrics struct {
	ticks        *prometheus.CounterVec
	tickDuration *prometheus.HistogramVec
	actions      *prometheus.CounterVec
	armedRules   prometheus.Gauge
	timerStarts  *prometheus.CounterVec
	timerStops   *prometheus.CounterVec
	overruns     *prometheus.CounterVec
}

// NewRuleMetrics creates a new Prometheus-backed RuleMetrics instance.
//
// Returns nil if metrics are not enabled (metrics.InitRegistry not called).
func NewRuleMetrics() metrics.RuleMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &ruleMetrics{
		ticks: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpd_rule_ticks_total",
				Help: "Total number of rule condition evaluations by rule and outcome",
			},
			[]string{"rule_id", "matched"},
		),
		tickDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "mcpd_rule_tick_duration_milliseconds",
				Help: "Duration of a single rule condition evaluation",
				Buckets: []float64{
					0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50, 100,
				},
			},
			[]string{"rule_id"},
		),
		actions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpd_rule_actions_dispatched_total",
				Help: "Total number of actions dispatched from matched rules",
			},
			[]string{"rule_id", "action_kind", "status"},
		),
		armedRules: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "mcpd_rule_armed_count",
				Help: "Current number of armed (ticking) rules",
			},
		),
		timerStarts: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpd_rule_timer_starts_total",
				Help: "Total number of times a rule's timer was armed",
			},
			[]string{"rule_id"},
		),
		timerStops: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpd_rule_timer_stops_total",
				Help: "Total number of times a rule's timer was disarmed",
			},
			[]string{"rule_id"},
		),
		overruns: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpd_rule_tick_overruns_total",
				Help: "Total number of rule ticks that fired before the prior evaluation completed",
			},
			[]string{"rule_id"},
		),
	}
}

func ruleIDLabel(ruleID uint32) string {
	return uint32Label(ruleID)
}

func (m *ruleMetrics) RecordTick(ruleID uint32, matched bool, duration time.Duration) {
	if m == nil {
		return
	}
	id := ruleIDLabel(ruleID)
	m.ticks.WithLabelValues(id, boolLabel(matched)).Inc()
	m.tickDuration.WithLabelValues(id).Observe(duration.Seconds() * 1000)
}

func (m *ruleMetrics) RecordActionDispatch(ruleID uint32, actionKind string, err error) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(ruleIDLabel(ruleID), actionKind, statusLabel(err)).Inc()
}

func (m *ruleMetrics) SetArmedRules(count int) {
	if m == nil {
		return
	}
	m.armedRules.Set(float64(count))
}

func (m *ruleMetrics) RecordTimerStart(ruleID uint32) {
	if m == nil {
		return
	}
	m.timerStarts.WithLabelValues(ruleIDLabel(ruleID)).Inc()
}

func (m *ruleMetrics) RecordTimerStop(ruleID uint32) {
	if m == nil {
		return
	}
	m.timerStops.WithLabelValues(ruleIDLabel(ruleID)).Inc()
}

func (m *ruleMetrics) RecordOverrun(ruleID uint32) {
	if m == nil {
		return
	}
	m.overruns.WithLabelValues(ruleIDLabel(ruleID)).Inc()
}
