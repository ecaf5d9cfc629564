// Package prometheus provides the Prometheus-backed implementations of the
// interfaces declared in internal/metrics. Each constructor returns a nil
// interface when metrics.IsEnabled reports false, so callers check for nil
// before recording; every method here also tolerates a nil pointer receiver.
package prometheus

import "strconv"

func uint32Label(id uint32) string {
	return strconv.FormatUint(uint64(id), 10)
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
