package prometheus

import (
	"errors"
	"testing"
	"time"

	"github.com/flightos/mcpd/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRuleMetrics_DisabledReturnsNil(t *testing.T) {
	metrics.Reset()
	defer metrics.Reset()

	m := NewRuleMetrics()
	assert.Nil(t, m)
}

func TestRuleMetrics_RecordTick(t *testing.T) {
	metrics.Reset()
	defer metrics.Reset()
	metrics.InitRegistry()

	m := NewRuleMetrics()
	require.NotNil(t, m)

	m.RecordTick(42, true, 5*time.Millisecond)

	rm := m.(*ruleMetrics)
	count := testutil.ToFloat64(rm.ticks.WithLabelValues("42", "true"))
	assert.Equal(t, float64(1), count)
}

func TestRuleMetrics_NilReceiverIsSafe(t *testing.T) {
	var m *ruleMetrics

	assert.NotPanics(t, func() {
		m.RecordTick(1, true, time.Millisecond)
		m.RecordActionDispatch(1, "set_op_mode", errors.New("boom"))
		m.SetArmedRules(3)
		m.RecordTimerStart(1)
		m.RecordTimerStop(1)
		m.RecordOverrun(1)
	})
}

func TestRuleMetrics_RecordActionDispatch_StatusLabel(t *testing.T) {
	metrics.Reset()
	defer metrics.Reset()
	metrics.InitRegistry()

	m := NewRuleMetrics().(*ruleMetrics)

	m.RecordActionDispatch(7, "pause_partition", nil)
	m.RecordActionDispatch(7, "pause_partition", errors.New("xl call failed"))

	okCount := testutil.ToFloat64(m.actions.WithLabelValues("7", "pause_partition", "ok"))
	errCount := testutil.ToFloat64(m.actions.WithLabelValues("7", "pause_partition", "error"))
	assert.Equal(t, float64(1), okCount)
	assert.Equal(t, float64(1), errCount)
}
