package health

import "time"

// HealthCheckTimeout bounds every individual probe within a collection
const HealthCheckTimeout = 10 * time.Second

// ErrorLogLookback is the window inspected for recent error-level log entries
const ErrorLogLookback = 5 * time.Minute

// SignalKind identifies one independent raw fact about a service
type SignalKind string

const (
	SignalActiveState    SignalKind = "active_state"
	SignalPortReachable  SignalKind = "port_reachable"
	SignalProcessPresent SignalKind = "process_present"
	SignalNoRecentErrors SignalKind = "no_recent_errors"
)

// HealthSignal is one collected fact, produced fresh each cycle and never persisted
type HealthSignal struct {
	Kind    SignalKind
	Present bool
}

// signalWeights are the fixed per-signal score contributions. They sum to 100.
var signalWeights = map[SignalKind]int{
	SignalActiveState:    40,
	SignalPortReachable:  30,
	SignalProcessPresent: 20,
	SignalNoRecentErrors: 10,
}

// SignalWeight returns the score contribution of a signal kind, 0 for unknown kinds
func SignalWeight(kind SignalKind) int {
	return signalWeights[kind]
}
