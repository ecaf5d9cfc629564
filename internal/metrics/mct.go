package metrics

import "time"

// MCTMetrics provides observability for queries against the mission control
// table persistence layer.
//
// This interface is optional - pass nil to disable metrics collection with
// zero overhead.
type MCTMetrics interface {
	// RecordQuery records a completed query against the MCT store.
	RecordQuery(query string, duration time.Duration, err error)

	// RecordReload records a full MCT reload (triggered by SIGHUP or an
	// explicit operator request), including how many rows of each kind
	// were loaded.
	RecordReload(duration time.Duration, ruleCount, partitionCount int, err error)

	// SetOpenConnections updates the gauge tracking open connections to a
	// postgres-backed MCT. Unused for the sqlite driver.
	SetOpenConnections(count int)
}
