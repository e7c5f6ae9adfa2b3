package sentinel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/heartportal/fleet-sentinel/pkg/certwatch"
	"github.com/heartportal/fleet-sentinel/pkg/errors"
	"github.com/heartportal/fleet-sentinel/pkg/fleet"
	"github.com/heartportal/fleet-sentinel/pkg/health"
	"github.com/heartportal/fleet-sentinel/pkg/logging"
	"github.com/heartportal/fleet-sentinel/pkg/metrics"
	"github.com/heartportal/fleet-sentinel/pkg/remediation"
)

// MonitorOptions configures the monitoring loop
type MonitorOptions struct {
	Services []fleet.ServiceDescriptor

	// Interval between evaluation passes
	Interval time.Duration

	// Domain to watch for certificate expiry; empty disables the watcher
	Domain string

	// CertCheckEveryPasses spaces certificate checks out to every Nth pass
	CertCheckEveryPasses int
}

// Monitor drives one evaluation cycle over all services at a fixed interval:
// Collector -> Scorer -> Classifier -> Backoff Controller per service, plus an
// independent certificate check. One full pass completes (or is abandoned on
// cancellation) before the next interval sleep begins; passes never overlap.
type Monitor struct {
	options    MonitorOptions
	collector  *health.Collector
	controller *remediation.Controller
	certWatch  *certwatch.Watcher
	metrics    *metrics.Metrics
	logger     logging.Logger

	mutex       sync.Mutex
	passCount   int
	lastReport  *PassReport
	lastCert    *certwatch.CertificateStatus
	lastCertErr error
}

// NewMonitor assembles the monitoring loop from its collaborators
func NewMonitor(
	options MonitorOptions,
	collector *health.Collector,
	controller *remediation.Controller,
	certWatch *certwatch.Watcher,
	m *metrics.Metrics,
	logger logging.Logger,
) *Monitor {
	if options.Interval <= 0 {
		options.Interval = DefaultMonitoringInterval
	}
	if options.CertCheckEveryPasses <= 0 {
		options.CertCheckEveryPasses = DefaultCertCheckEveryPasses
	}
	return &Monitor{
		options:    options,
		collector:  collector,
		controller: controller,
		certWatch:  certWatch,
		metrics:    m,
		logger:     logger,
	}
}

// Run executes passes until the context is cancelled. The first pass starts
// immediately rather than after one interval.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Infof("Monitor loop starting, services: %d, interval: %v", len(m.options.Services), m.options.Interval)

	ticker := time.NewTicker(m.options.Interval)
	defer ticker.Stop()

	m.RunPass(ctx)

	for {
		select {
		case <-ticker.C:
			m.RunPass(ctx)
		case <-ctx.Done():
			m.logger.Infof("Monitor loop stopping: %v", ctx.Err())
			return nil
		}
	}
}

// RunPass evaluates every service once. Per-service evaluation is independent
// and runs in parallel; no ordering between services is guaranteed. An error
// in one service never aborts the others.
func (m *Monitor) RunPass(ctx context.Context) PassReport {
	started := time.Now()

	reports := make([]ServiceReport, len(m.options.Services))

	var wg sync.WaitGroup
	for i, service := range m.options.Services {
		wg.Add(1)
		go func(i int, service fleet.ServiceDescriptor) {
			defer wg.Done()
			reports[i] = m.evaluateService(ctx, service)
		}(i, service)
	}
	wg.Wait()

	report := PassReport{
		StartedAt: started,
		Duration:  time.Since(started),
		Services:  reports,
		Aborted:   ctx.Err() != nil,
	}

	m.recordPass(report)
	m.logger.Infof("Pass complete, duration: %v, services: %d, aborted: %t",
		report.Duration, len(report.Services), report.Aborted)
	for _, serviceReport := range report.Services {
		m.logger.Infof("Service status, service: %s, score: %d, classification: %s, remediation: %s",
			serviceReport.ServiceName, serviceReport.Score, serviceReport.Classification,
			defaultString(serviceReport.RemediationOutcome, "none"))
	}

	if m.certWatch != nil && m.options.Domain != "" && !report.Aborted {
		m.maybeCheckCertificate(ctx)
	}

	return report
}

// evaluateService runs the strict per-service pipeline using signals collected
// in this same pass. A panic in one evaluation is contained here.
func (m *Monitor) evaluateService(ctx context.Context, service fleet.ServiceDescriptor) (report ServiceReport) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Errorf("Service evaluation panicked, service: %s, panic: %v", service.Name, r)
			report = ServiceReport{
				ServiceName:    service.Name,
				Signals:        map[string]bool{},
				Classification: health.ClassificationUnhealthy,
				Error:          errors.NewInternalError(fmt.Sprintf("evaluation panicked: %v", r), nil).Error(),
			}
		}
	}()

	signals := m.collector.Collect(ctx, service)
	score := health.Score(service.Name, signals)

	report = ServiceReport{
		ServiceName:    service.Name,
		Signals:        signalMap(signals),
		Score:          score.Value,
		Classification: score.Classification,
	}

	if m.metrics != nil {
		m.metrics.ServiceHealthScore.WithLabelValues(service.Name).Set(float64(score.Value))
	}

	switch score.Classification {
	case health.ClassificationHealthy:
		m.controller.ObserveHealthy(service.Name)

	case health.ClassificationUnhealthy:
		if ctx.Err() != nil {
			// Abandoned pass: do not start a remediation transition we might
			// not be able to finish counting
			report.Error = errors.NewCancelledError("pass cancelled before remediation", ctx.Err()).Error()
			return report
		}

		decision := m.controller.ObserveUnhealthy(ctx, service)
		report.RemediationOutcome = string(decision.Outcome)
		report.RemediationAttempt = decision.Attempt
		report.AlertEmitted = decision.AlertEmitted

		if m.metrics != nil {
			switch decision.Outcome {
			case remediation.OutcomeRestarted, remediation.OutcomeRestartFailed:
				m.metrics.RestartAttempts.WithLabelValues(service.Name, string(decision.Outcome)).Inc()
			}
			if decision.AlertEmitted {
				m.metrics.AlertsTotal.WithLabelValues(service.Name).Inc()
			}
		}
	}

	return report
}

func (m *Monitor) maybeCheckCertificate(ctx context.Context) {
	m.mutex.Lock()
	due := (m.passCount-1)%m.options.CertCheckEveryPasses == 0
	m.mutex.Unlock()

	if !due {
		return
	}

	status, err := m.certWatch.CheckCertificate(ctx, m.options.Domain)

	m.mutex.Lock()
	defer m.mutex.Unlock()
	if err != nil {
		m.lastCertErr = err
		m.logger.Errorf("Certificate check failed, domain: %s, error: %v", m.options.Domain, err)
		return
	}
	m.lastCert = &status
	m.lastCertErr = nil

	if m.metrics != nil {
		m.metrics.CertDaysRemaining.WithLabelValues(status.Domain).Set(float64(status.DaysRemaining))
	}
}

func (m *Monitor) recordPass(report PassReport) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.passCount++
	m.lastReport = &report

	if m.metrics != nil {
		m.metrics.PassesTotal.Inc()
		m.metrics.PassDuration.Observe(report.Duration.Seconds())
	}
}

// LastReport returns the most recent pass report, nil before the first pass
func (m *Monitor) LastReport() *PassReport {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.lastReport
}

// LastCertificate returns the most recent certificate status and check error
func (m *Monitor) LastCertificate() (*certwatch.CertificateStatus, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.lastCert, m.lastCertErr
}

// PassCount returns how many passes have completed
func (m *Monitor) PassCount() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.passCount
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
