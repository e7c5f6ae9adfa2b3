package remediation

import (
	"context"
	"sync"
	"time"

	"github.com/heartportal/fleet-sentinel/pkg/alerting"
	"github.com/heartportal/fleet-sentinel/pkg/fleet"
	"github.com/heartportal/fleet-sentinel/pkg/logging"
	"github.com/heartportal/fleet-sentinel/pkg/probes"
)

const (
	// MaxRestartAttempts bounds automatic restarts per service per window
	MaxRestartAttempts = 3

	// RestartWindow is the sliding window over which attempts are counted
	RestartWindow = 300 * time.Second

	// ExhaustionReason is the alert reason emitted when the attempt budget is spent
	ExhaustionReason = "exceeded maximum restart attempts"
)

// Outcome describes what the controller did for one unhealthy observation
type Outcome string

const (
	// OutcomeRestarted means a restart was attempted and succeeded
	OutcomeRestarted Outcome = "restarted"

	// OutcomeRestartFailed means a restart was attempted and failed; the
	// attempt stays counted and the next unhealthy cycle may retry
	OutcomeRestartFailed Outcome = "restart_failed"

	// OutcomeExhausted means the attempt budget for the current window is
	// spent; no restart was attempted
	OutcomeExhausted Outcome = "exhausted"

	// OutcomeSkipped means the service is excluded from automatic remediation
	OutcomeSkipped Outcome = "skipped"
)

// Decision reports the controller's transition for one observation
type Decision struct {
	Outcome      Outcome
	Attempt      int
	AlertEmitted bool
	Err          error
}

// RecordState is a read-only snapshot of one service's attempt record
type RecordState struct {
	WindowStart  time.Time `json:"window_start"`
	AttemptCount int       `json:"attempt_count"`
	Exhausted    bool      `json:"exhausted"`
}

// attemptRecord tracks restart attempts for one service inside a sliding
// window. Records are keyed by service name and locked individually so
// parallel evaluation of different services never contends, while two
// concurrent observations of the same service cannot double-increment.
type attemptRecord struct {
	mutex        sync.Mutex
	windowStart  time.Time
	attemptCount int
}

// Controller is the backoff state machine bounding automatic remediation.
// Per service: Clean (no attempts) -> Attempting (attempts within window) ->
// Exhausted (budget spent) -> Clean again on window expiry or confirmed recovery.
type Controller struct {
	serviceManager probes.ServiceManager
	alerts         alerting.Sink
	maxAttempts    int
	window         time.Duration
	now            func() time.Time
	logger         logging.Logger

	mutex   sync.Mutex
	records map[string]*attemptRecord
}

// NewController creates a backoff controller with the default policy constants
func NewController(serviceManager probes.ServiceManager, alerts alerting.Sink, logger logging.Logger) *Controller {
	return &Controller{
		serviceManager: serviceManager,
		alerts:         alerts,
		maxAttempts:    MaxRestartAttempts,
		window:         RestartWindow,
		now:            time.Now,
		logger:         logger,
		records:        make(map[string]*attemptRecord),
	}
}

// ObserveUnhealthy runs one transition of the state machine for an unhealthy
// observation of the service and performs the restart when the policy allows it.
func (c *Controller) ObserveUnhealthy(ctx context.Context, service fleet.ServiceDescriptor) Decision {
	if !service.AutoRemediate {
		c.logger.Infof("Automatic remediation disabled, service: %s, skipping restart", service.Name)
		return Decision{Outcome: OutcomeSkipped}
	}

	record := c.record(service.Name)
	record.mutex.Lock()
	defer record.mutex.Unlock()

	now := c.now()

	// Expired window starts fresh, even out of a previously exhausted state
	if record.attemptCount > 0 && now.Sub(record.windowStart) > c.window {
		c.logger.Infof("Restart window expired, service: %s, previous attempts: %d", service.Name, record.attemptCount)
		record.attemptCount = 0
	}

	if record.attemptCount == 0 {
		record.windowStart = now
	}
	record.attemptCount++

	if record.attemptCount > c.maxAttempts {
		alertEmitted := false
		if record.attemptCount == c.maxAttempts+1 {
			// First observation past the budget: hand off to a human
			alert := alerting.NewAlertRecord(now, service.Name, ExhaustionReason)
			if err := c.alerts.Emit(alert); err != nil {
				c.logger.Errorf("Failed to emit exhaustion alert, service: %s, error: %v", service.Name, err)
			} else {
				alertEmitted = true
			}
		}
		c.logger.Errorf("Restart attempts exhausted, service: %s, attempts: %d, window_start: %v",
			service.Name, record.attemptCount-1, record.windowStart)
		return Decision{Outcome: OutcomeExhausted, Attempt: record.attemptCount, AlertEmitted: alertEmitted}
	}

	attempt := record.attemptCount
	c.logger.Warnf("Attempting restart, service: %s, attempt: %d/%d", service.Name, attempt, c.maxAttempts)

	if err := c.serviceManager.RestartService(ctx, service.Name); err != nil {
		c.logger.Errorf("Restart failed, service: %s, attempt: %d, error: %v", service.Name, attempt, err)
		return Decision{Outcome: OutcomeRestartFailed, Attempt: attempt, Err: err}
	}

	// Successful remediation returns the service to Clean
	record.attemptCount = 0
	record.windowStart = time.Time{}
	c.logger.Infof("Restart succeeded, service: %s, attempt: %d", service.Name, attempt)
	return Decision{Outcome: OutcomeRestarted, Attempt: attempt}
}

// ObserveHealthy clears the service's attempt record on a confirmed-healthy
// observation. Returns true when a non-empty record was cleared.
func (c *Controller) ObserveHealthy(serviceName string) bool {
	c.mutex.Lock()
	record, exists := c.records[serviceName]
	c.mutex.Unlock()

	if !exists {
		return false
	}

	record.mutex.Lock()
	defer record.mutex.Unlock()

	if record.attemptCount == 0 {
		return false
	}

	c.logger.Infof("Service recovered, clearing attempt record, service: %s, previous attempts: %d",
		serviceName, record.attemptCount)
	record.attemptCount = 0
	record.windowStart = time.Time{}
	return true
}

// State returns a snapshot of the service's attempt record
func (c *Controller) State(serviceName string) RecordState {
	c.mutex.Lock()
	record, exists := c.records[serviceName]
	c.mutex.Unlock()

	if !exists {
		return RecordState{}
	}

	record.mutex.Lock()
	defer record.mutex.Unlock()

	return RecordState{
		WindowStart:  record.windowStart,
		AttemptCount: record.attemptCount,
		Exhausted:    record.attemptCount > c.maxAttempts,
	}
}

// record returns the attempt record for the service, creating it lazily
func (c *Controller) record(serviceName string) *attemptRecord {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	record, exists := c.records[serviceName]
	if !exists {
		record = &attemptRecord{}
		c.records[serviceName] = record
	}
	return record
}
