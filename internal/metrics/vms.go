package metrics

import "time"

// VMSMetrics provides observability for the optional telemetry collaborator
// connection (the VMS: vehicle/vessel management station).
//
// This interface is optional - pass nil to disable metrics collection with
// zero overhead.
type VMSMetrics interface {
	// RecordConnectAttempt records a connection attempt to the VMS,
	// successful or not.
	RecordConnectAttempt(success bool, duration time.Duration)

	// SetConnected updates the gauge tracking whether the VMS connection
	// is currently established.
	SetConnected(connected bool)

	// RecordPush records a single telemetry push (status, parameter, or
	// state update) sent to the VMS.
	RecordPush(kind string, err error, duration time.Duration)

	// RecordSessionIncrement records a session counter increment sent to
	// the VMS at the start of a new MCP run.
	RecordSessionIncrement(sessionID string)
}
