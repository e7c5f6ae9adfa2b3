package health

// Classification is the tri-state health category derived from a score
type Classification string

const (
	ClassificationHealthy   Classification = "healthy"
	ClassificationDegraded  Classification = "degraded"
	ClassificationUnhealthy Classification = "unhealthy"
)

// Classification thresholds, uniform across the fleet
const (
	healthyThreshold  = 70
	degradedThreshold = 40
)

// HealthScore is the weighted composite of one service's signals for one cycle
type HealthScore struct {
	ServiceName    string
	Value          int
	Classification Classification
}

// Score combines independent signals into a 0-100 composite. Pure function:
// no I/O, deterministic over the signal booleans, order-insensitive.
func Score(serviceName string, signals []HealthSignal) HealthScore {
	value := 0
	for _, signal := range signals {
		if signal.Present {
			value += SignalWeight(signal.Kind)
		}
	}

	return HealthScore{
		ServiceName:    serviceName,
		Value:          value,
		Classification: Classify(value),
	}
}

// Classify maps a score value to its health category
func Classify(value int) Classification {
	switch {
	case value >= healthyThreshold:
		return ClassificationHealthy
	case value >= degradedThreshold:
		return ClassificationDegraded
	default:
		return ClassificationUnhealthy
	}
}
