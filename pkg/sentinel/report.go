package sentinel

import (
	"time"

	"github.com/heartportal/fleet-sentinel/pkg/health"
)

// ServiceReport is the per-service outcome of one monitoring pass. Every
// service of the fleet appears in every pass report, even when all of its
// probes failed: probes degrade to negative signals, they are never omitted.
type ServiceReport struct {
	ServiceName    string                `json:"service_name"`
	Signals        map[string]bool       `json:"signals"`
	Score          int                   `json:"score"`
	Classification health.Classification `json:"classification"`

	// Remediation fields are set only for unhealthy observations
	RemediationOutcome string `json:"remediation_outcome,omitempty"`
	RemediationAttempt int    `json:"remediation_attempt,omitempty"`
	AlertEmitted       bool   `json:"alert_emitted,omitempty"`

	// Error carries an unexpected per-service evaluation failure; the rest of
	// the pass is unaffected
	Error string `json:"error,omitempty"`
}

// PassReport summarizes one full evaluation pass over the fleet
type PassReport struct {
	StartedAt time.Time       `json:"started_at"`
	Duration  time.Duration   `json:"duration"`
	Services  []ServiceReport `json:"services"`
	Aborted   bool            `json:"aborted,omitempty"`
}

func signalMap(signals []health.HealthSignal) map[string]bool {
	result := make(map[string]bool, len(signals))
	for _, signal := range signals {
		result[string(signal.Kind)] = signal.Present
	}
	return result
}
