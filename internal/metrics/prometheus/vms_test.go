package prometheus

import (
	"testing"
	"time"

	"github.com/flightos/mcpd/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVMSMetrics_RecordConnectAttempt(t *testing.T) {
	metrics.Reset()
	defer metrics.Reset()
	metrics.InitRegistry()

	m := NewVMSMetrics()
	require.NotNil(t, m)

	m.RecordConnectAttempt(true, 50*time.Millisecond)
	m.SetConnected(true)

	vm := m.(*vmsMetrics)
	assert.Equal(t, float64(1), testutil.ToFloat64(vm.connectAttempts.WithLabelValues("true")))
	assert.Equal(t, float64(1), testutil.ToFloat64(vm.connected))
}

func TestVMSMetrics_RecordPush(t *testing.T) {
	metrics.Reset()
	defer metrics.Reset()
	metrics.InitRegistry()

	vm := NewVMSMetrics().(*vmsMetrics)
	vm.RecordPush("status_update", nil, time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(vm.pushes.WithLabelValues("status_update", "ok")))
}

func TestVMSMetrics_NilReceiverIsSafe(t *testing.T) {
	var m *vmsMetrics

	assert.NotPanics(t, func() {
		m.RecordConnectAttempt(false, time.Millisecond)
		m.SetConnected(false)
		m.RecordPush("param_update", nil, time.Millisecond)
		m.RecordSessionIncrement("sess-1")
	})
}
