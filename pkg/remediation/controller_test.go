package remediation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/heartportal/fleet-sentinel/pkg/alerting"
	"github.com/heartportal/fleet-sentinel/pkg/errors"
	"github.com/heartportal/fleet-sentinel/pkg/fleet"
)

// ControllerTestLogger is a no-op logger for controller tests
type ControllerTestLogger struct{}

func (l *ControllerTestLogger) Debugf(format string, args ...interface{}) {}
func (l *ControllerTestLogger) Infof(format string, args ...interface{})  {}
func (l *ControllerTestLogger) Warnf(format string, args ...interface{})  {}
func (l *ControllerTestLogger) Errorf(format string, args ...interface{}) {}

// MockServiceManager mocks the service manager capability
type MockServiceManager struct {
	mock.Mock
}

func (m *MockServiceManager) IsServiceActive(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

func (m *MockServiceManager) RestartService(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

func remediableService() fleet.ServiceDescriptor {
	return fleet.ServiceDescriptor{
		Name:          "api-manager",
		Ports:         []int{5000},
		AutoRemediate: true,
	}
}

// testController returns a controller with a fake clock the test can advance
func testController(manager *MockServiceManager, sink alerting.Sink) (*Controller, *time.Time) {
	controller := NewController(manager, sink, &ControllerTestLogger{})
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	controller.now = func() time.Time { return now }
	return controller, &now
}

func TestObserveUnhealthy_RestartSucceedsAndClearsRecord(t *testing.T) {
	manager := &MockServiceManager{}
	manager.On("RestartService", mock.Anything, "api-manager").Return(nil).Once()

	controller, _ := testController(manager, alerting.NewMemorySink())

	decision := controller.ObserveUnhealthy(context.Background(), remediableService())

	assert.Equal(t, OutcomeRestarted, decision.Outcome)
	assert.Equal(t, 1, decision.Attempt)
	assert.Equal(t, 0, controller.State("api-manager").AttemptCount)
	manager.AssertExpectations(t)
}

func TestObserveUnhealthy_FailedRestartKeepsRecord(t *testing.T) {
	manager := &MockServiceManager{}
	manager.On("RestartService", mock.Anything, "api-manager").
		Return(errors.NewRemediationError("restart command exited non-zero", nil))

	sink := alerting.NewMemorySink()
	controller, _ := testController(manager, sink)

	decision := controller.ObserveUnhealthy(context.Background(), remediableService())

	assert.Equal(t, OutcomeRestartFailed, decision.Outcome)
	assert.Equal(t, 1, decision.Attempt)
	assert.Error(t, decision.Err)
	assert.Equal(t, 1, controller.State("api-manager").AttemptCount)
	assert.Empty(t, sink.Records(), "restart failure must not alert yet")
}

func TestObserveUnhealthy_ExhaustionAfterMaxAttempts(t *testing.T) {
	manager := &MockServiceManager{}
	manager.On("RestartService", mock.Anything, "api-manager").
		Return(errors.NewRemediationError("restart failed", nil)).Times(MaxRestartAttempts)

	sink := alerting.NewMemorySink()
	controller, _ := testController(manager, sink)

	// Three failed attempts within the window
	for i := 1; i <= MaxRestartAttempts; i++ {
		decision := controller.ObserveUnhealthy(context.Background(), remediableService())
		assert.Equal(t, OutcomeRestartFailed, decision.Outcome)
		assert.Equal(t, i, decision.Attempt)
	}
	assert.Empty(t, sink.Records())

	// Fourth observation: no restart, exactly one alert
	decision := controller.ObserveUnhealthy(context.Background(), remediableService())
	assert.Equal(t, OutcomeExhausted, decision.Outcome)
	assert.True(t, decision.AlertEmitted)

	records := sink.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "api-manager", records[0].ServiceName)
	assert.Equal(t, ExhaustionReason, records[0].Reason)
	assert.True(t, controller.State("api-manager").Exhausted)

	// Fifth observation in the same window: still no restart, no second alert
	decision = controller.ObserveUnhealthy(context.Background(), remediableService())
	assert.Equal(t, OutcomeExhausted, decision.Outcome)
	assert.False(t, decision.AlertEmitted)
	assert.Len(t, sink.Records(), 1)

	manager.AssertNumberOfCalls(t, "RestartService", MaxRestartAttempts)
}

func TestObserveUnhealthy_WindowExpiryResetsCount(t *testing.T) {
	manager := &MockServiceManager{}
	manager.On("RestartService", mock.Anything, "api-manager").
		Return(errors.NewRemediationError("restart failed", nil))

	controller, now := testController(manager, alerting.NewMemorySink())

	// Exhaust the budget
	for i := 0; i <= MaxRestartAttempts; i++ {
		controller.ObserveUnhealthy(context.Background(), remediableService())
	}
	assert.True(t, controller.State("api-manager").Exhausted)

	// An observation past the window starts a fresh record, even from Exhausted
	*now = now.Add(RestartWindow + time.Second)
	decision := controller.ObserveUnhealthy(context.Background(), remediableService())

	assert.Equal(t, OutcomeRestartFailed, decision.Outcome)
	assert.Equal(t, 1, decision.Attempt)
	assert.False(t, controller.State("api-manager").Exhausted)
}

func TestObserveHealthy_RecoveryClearsRecord(t *testing.T) {
	manager := &MockServiceManager{}
	manager.On("RestartService", mock.Anything, "api-manager").
		Return(errors.NewRemediationError("restart failed", nil))

	controller, _ := testController(manager, alerting.NewMemorySink())

	controller.ObserveUnhealthy(context.Background(), remediableService())
	controller.ObserveUnhealthy(context.Background(), remediableService())
	assert.Equal(t, 2, controller.State("api-manager").AttemptCount)

	cleared := controller.ObserveHealthy("api-manager")
	assert.True(t, cleared)
	assert.Equal(t, 0, controller.State("api-manager").AttemptCount)

	// Counting starts over after recovery
	decision := controller.ObserveUnhealthy(context.Background(), remediableService())
	assert.Equal(t, 1, decision.Attempt)
}

func TestObserveHealthy_NoRecordIsNoop(t *testing.T) {
	controller, _ := testController(&MockServiceManager{}, alerting.NewMemorySink())

	assert.False(t, controller.ObserveHealthy("never-seen"))
}

func TestObserveUnhealthy_SkipsExcludedService(t *testing.T) {
	manager := &MockServiceManager{}
	sink := alerting.NewMemorySink()
	controller, _ := testController(manager, sink)

	proxy := fleet.ServiceDescriptor{
		Name:          "nginx",
		Ports:         []int{80, 443},
		AutoRemediate: false,
	}

	decision := controller.ObserveUnhealthy(context.Background(), proxy)

	assert.Equal(t, OutcomeSkipped, decision.Outcome)
	assert.Empty(t, sink.Records())
	manager.AssertNotCalled(t, "RestartService", mock.Anything, mock.Anything)
}

func TestObserveUnhealthy_RecordsAreIndependentPerService(t *testing.T) {
	manager := &MockServiceManager{}
	manager.On("RestartService", mock.Anything, mock.Anything).
		Return(errors.NewRemediationError("restart failed", nil))

	controller, _ := testController(manager, alerting.NewMemorySink())

	first := fleet.ServiceDescriptor{Name: "main-app", Ports: []int{3000}, AutoRemediate: true}
	second := fleet.ServiceDescriptor{Name: "blog-manager", Ports: []int{5002}, AutoRemediate: true}

	controller.ObserveUnhealthy(context.Background(), first)
	controller.ObserveUnhealthy(context.Background(), first)
	controller.ObserveUnhealthy(context.Background(), second)

	assert.Equal(t, 2, controller.State("main-app").AttemptCount)
	assert.Equal(t, 1, controller.State("blog-manager").AttemptCount)
}

func TestObserveUnhealthy_SuccessfulRestartResetsWindow(t *testing.T) {
	manager := &MockServiceManager{}
	manager.On("RestartService", mock.Anything, "api-manager").
		Return(errors.NewRemediationError("restart failed", nil)).Twice()
	manager.On("RestartService", mock.Anything, "api-manager").Return(nil).Once()
	manager.On("RestartService", mock.Anything, "api-manager").
		Return(errors.NewRemediationError("restart failed", nil))

	controller, _ := testController(manager, alerting.NewMemorySink())

	controller.ObserveUnhealthy(context.Background(), remediableService())
	controller.ObserveUnhealthy(context.Background(), remediableService())
	decision := controller.ObserveUnhealthy(context.Background(), remediableService())
	require.Equal(t, OutcomeRestarted, decision.Outcome)

	// After remediation success the budget is whole again
	decision = controller.ObserveUnhealthy(context.Background(), remediableService())
	assert.Equal(t, 1, decision.Attempt)
}
