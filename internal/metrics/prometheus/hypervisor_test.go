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

func TestHypervisorMetrics_RecordCommand(t *testing.T) {
	metrics.Reset()
	defer metrics.Reset()
	metrics.InitRegistry()

	m := NewHypervisorMetrics()
	require.NotNil(t, m)

	m.RecordCommand("create", "domU-web", 200*time.Millisecond, nil)
	m.RecordCommand("create", "domU-web", 200*time.Millisecond, errors.New("xl: domain already exists"))

	hm := m.(*hypervisorMetrics)
	assert.Equal(t, float64(1), testutil.ToFloat64(hm.commands.WithLabelValues("create", "domU-web", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(hm.commands.WithLabelValues("create", "domU-web", "error")))
}

func TestHypervisorMetrics_RecordStatusPoll(t *testing.T) {
	metrics.Reset()
	defer metrics.Reset()
	metrics.InitRegistry()

	hm := NewHypervisorMetrics().(*hypervisorMetrics)
	hm.RecordStatusPoll("domU-web", "running", 5*time.Millisecond, nil)

	assert.Equal(t, float64(1), testutil.ToFloat64(hm.statusPolls.WithLabelValues("domU-web", "running", "ok")))
}

func TestHypervisorMetrics_NilReceiverIsSafe(t *testing.T) {
	var m *hypervisorMetrics

	assert.NotPanics(t, func() {
		m.RecordCommand("create", "domU-web", time.Millisecond, nil)
		m.RecordStatusPoll("domU-web", "running", time.Millisecond, nil)
		m.SetCommandQueueDepth(2)
	})
}
