// Package metrics defines the observability surface for the MCP supervisor:
// per-domain metrics interfaces (rule evaluation, partition transitions,
// hypervisor calls, VMS telemetry pushes, MCT queries) plus the Prometheus
// registry that backs them.
//
// Every interface here is optional. Passing nil disables collection with
// zero overhead. A nil interface value has no methods to call, so callers
// check for nil before recording; the implementations also tolerate a nil
// pointer receiver.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	mu       sync.Mutex
	registry *prometheus.Registry
	enabled  bool
)

// InitRegistry creates the process-wide Prometheus registry and enables
// metrics collection. Must be called before any NewXMetrics constructor in
// this package's prometheus subpackage, or those constructors return nil.
func InitRegistry() *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()

	registry = prometheus.NewRegistry()
	enabled = true
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// GetRegistry returns the process-wide registry, creating a disabled
// placeholder if InitRegistry was never called. Prometheus implementation
// constructors should check IsEnabled before calling this.
func GetRegistry() *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()

	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	return registry
}

// Handler returns the HTTP handler that serves the registry in the
// Prometheus exposition format, for mounting on the metrics server.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// Reset tears down the registry. Used by tests to isolate metric state
// across cases that each call InitRegistry.
func Reset() {
	mu.Lock()
	defer mu.Unlock()

	registry = nil
	enabled = false
}
