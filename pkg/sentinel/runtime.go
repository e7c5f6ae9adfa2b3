package sentinel

import (
	"context"
	"os"

	"github.com/heartportal/fleet-sentinel/pkg/alerting"
	"github.com/heartportal/fleet-sentinel/pkg/certwatch"
	"github.com/heartportal/fleet-sentinel/pkg/errors"
	"github.com/heartportal/fleet-sentinel/pkg/executor"
	"github.com/heartportal/fleet-sentinel/pkg/fleet"
	"github.com/heartportal/fleet-sentinel/pkg/health"
	"github.com/heartportal/fleet-sentinel/pkg/logging"
	"github.com/heartportal/fleet-sentinel/pkg/metrics"
	"github.com/heartportal/fleet-sentinel/pkg/probes/system"
	"github.com/heartportal/fleet-sentinel/pkg/remediation"
	"github.com/heartportal/fleet-sentinel/pkg/runfile"
)

// Runtime wires configuration into a runnable monitor with its collaborators
type Runtime struct {
	Config  *Config
	Monitor *Monitor
	Metrics *metrics.Metrics

	// RecentAlerts retains emitted alerts in memory for the status API; the
	// durable copy goes to the alert log file
	RecentAlerts *alerting.MemorySink

	runFile *runfile.RunFile
	logger  logging.Logger
}

// NewRuntime assembles a runtime from validated configuration
func NewRuntime(config *Config, logger logging.Logger) (*Runtime, error) {
	if err := ValidateConfig(config); err != nil {
		return nil, err
	}

	var commandExecutor executor.CommandExecutor
	if config.Sentinel.Remote.Host != "" {
		logger.Infof("Using remote execution, host: %s", config.Sentinel.Remote.Host)
		commandExecutor = executor.NewRemoteExecutor(config.Sentinel.Remote.Host, config.Sentinel.Remote.User, logger)
	} else {
		commandExecutor = executor.NewLocalExecutor(logger)
	}

	capabilities := system.Capabilities(commandExecutor, logger)

	recentAlerts := alerting.NewMemorySink()
	logSink := alerting.NewLogSink(config.Sentinel.AlertLogPath, logger)
	alertSink := alerting.NewCooldownSink(
		alerting.NewMultiSink(logSink, recentAlerts),
		config.Sentinel.AlertCooldown,
		logger,
	)

	controller := remediation.NewController(capabilities.ServiceManager, alertSink, logger)
	collector := health.NewCollector(capabilities, config.Sentinel.ProbeTimeout, logger)

	var certWatcher *certwatch.Watcher
	if config.Sentinel.Domain != "" {
		certWatcher = certwatch.NewWatcher(system.NewTLSExpirer(config.Sentinel.ProbeTimeout), logger)
	}

	services := make([]fleet.ServiceDescriptor, 0, len(config.Services))
	for _, serviceConfig := range config.Services {
		services = append(services, serviceConfig.Descriptor())
	}

	sentinelMetrics := metrics.New()

	monitor := NewMonitor(
		MonitorOptions{
			Services:             services,
			Interval:             config.Sentinel.MonitoringInterval,
			Domain:               config.Sentinel.Domain,
			CertCheckEveryPasses: config.Sentinel.CertCheckEveryPasses,
		},
		collector,
		controller,
		certWatcher,
		sentinelMetrics,
		logger,
	)

	return &Runtime{
		Config:       config,
		Monitor:      monitor,
		Metrics:      sentinelMetrics,
		RecentAlerts: recentAlerts,
		runFile:      runfile.NewRunFile(config.Sentinel.RunFilePath, logger),
		logger:       logger,
	}, nil
}

// Run claims the liveness token and drives the monitor loop until the context
// is cancelled. A second live instance fails here before touching any state.
func (r *Runtime) Run(ctx context.Context) error {
	if err := r.runFile.Acquire(os.Getpid()); err != nil {
		if errors.IsConflictError(err) {
			return err
		}
		return errors.NewIOError("failed to acquire run file", err)
	}
	defer func() {
		if err := r.runFile.Release(); err != nil {
			r.logger.Errorf("Failed to release run file, error: %v", err)
		}
	}()

	return r.Monitor.Run(ctx)
}
