package health

import (
	"context"
	"sync"
	"time"

	"github.com/heartportal/fleet-sentinel/pkg/fleet"
	"github.com/heartportal/fleet-sentinel/pkg/logging"
	"github.com/heartportal/fleet-sentinel/pkg/probes"
)

// Collector gathers the independent raw facts about one service. A probe that
// errors or times out degrades to a negative signal instead of failing the
// collection; the one exception is the log probe, where an unavailable log
// source counts as "no recent errors" to avoid false positives from broken
// logging rather than a broken service.
type Collector struct {
	capabilities probes.Capabilities
	probeTimeout time.Duration
	logger       logging.Logger
}

// NewCollector creates a signal collector over the given capabilities
func NewCollector(capabilities probes.Capabilities, probeTimeout time.Duration, logger logging.Logger) *Collector {
	if probeTimeout <= 0 {
		probeTimeout = HealthCheckTimeout
	}
	return &Collector{
		capabilities: capabilities,
		probeTimeout: probeTimeout,
		logger:       logger,
	}
}

// Collect produces all four signals for the service. Probes run concurrently,
// each bounded by the collector's probe timeout. The returned set always
// contains one signal per kind.
func (c *Collector) Collect(ctx context.Context, service fleet.ServiceDescriptor) []HealthSignal {
	signals := make([]HealthSignal, 4)

	var wg sync.WaitGroup
	wg.Add(4)

	go func() {
		defer wg.Done()
		signals[0] = HealthSignal{Kind: SignalActiveState, Present: c.probeActiveState(ctx, service)}
	}()
	go func() {
		defer wg.Done()
		signals[1] = HealthSignal{Kind: SignalPortReachable, Present: c.probePortReachable(ctx, service)}
	}()
	go func() {
		defer wg.Done()
		signals[2] = HealthSignal{Kind: SignalProcessPresent, Present: c.probeProcessPresent(ctx, service)}
	}()
	go func() {
		defer wg.Done()
		signals[3] = HealthSignal{Kind: SignalNoRecentErrors, Present: c.probeNoRecentErrors(ctx, service)}
	}()

	wg.Wait()
	return signals
}

func (c *Collector) probeActiveState(ctx context.Context, service fleet.ServiceDescriptor) bool {
	probeCtx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	active, err := c.capabilities.ServiceManager.IsServiceActive(probeCtx, service.Name)
	if err != nil {
		c.logger.Debugf("Active-state probe failed, service: %s, error: %v", service.Name, err)
		return false
	}
	return active
}

func (c *Collector) probePortReachable(ctx context.Context, service fleet.ServiceDescriptor) bool {
	port := service.PrimaryPort()
	if port == 0 {
		return false
	}

	host := service.Host
	if host == "" {
		host = "localhost"
	}

	probeCtx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	return c.capabilities.PortDialer.PortReachable(probeCtx, host, port, c.probeTimeout)
}

func (c *Collector) probeProcessPresent(ctx context.Context, service fleet.ServiceDescriptor) bool {
	probeCtx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	present, err := c.capabilities.ProcessFinder.ProcessPresent(probeCtx, service.Name)
	if err != nil {
		c.logger.Debugf("Process probe failed, service: %s, error: %v", service.Name, err)
		return false
	}
	return present
}

func (c *Collector) probeNoRecentErrors(ctx context.Context, service fleet.ServiceDescriptor) bool {
	probeCtx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	hasErrors, err := c.capabilities.LogQuerier.RecentErrorLogs(probeCtx, service.Name, ErrorLogLookback)
	if err != nil {
		// Unavailable log source counts as healthy, not as an error signal
		c.logger.Debugf("Log probe failed, service: %s, error: %v", service.Name, err)
		return true
	}
	return !hasErrors
}
