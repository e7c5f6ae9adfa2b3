package probes

import (
	"context"
	"time"
)

// Capabilities the monitoring core requires from its environment. The core only
// consumes these interfaces; production implementations live in probes/system,
// tests inject mocks.

// ServiceManager queries and controls named services via the host's service manager
type ServiceManager interface {
	// IsServiceActive reports whether the service manager considers the named
	// service active
	IsServiceActive(ctx context.Context, name string) (bool, error)

	// RestartService restarts the named service
	RestartService(ctx context.Context, name string) error
}

// PortDialer checks TCP reachability of a service port
type PortDialer interface {
	PortReachable(ctx context.Context, host string, port int, timeout time.Duration) bool
}

// ProcessFinder checks for a running process matching the service identity
type ProcessFinder interface {
	ProcessPresent(ctx context.Context, name string) (bool, error)
}

// LogQuerier inspects recent service logs for error-level entries
type LogQuerier interface {
	// RecentErrorLogs reports whether at least one error-level entry was logged
	// for the named service within the given lookback window
	RecentErrorLogs(ctx context.Context, name string, since time.Duration) (bool, error)
}

// CertificateExpirer resolves the expiry time of a domain's served certificate
type CertificateExpirer interface {
	CertificateExpiry(ctx context.Context, domain string) (time.Time, error)
}

// Capabilities bundles all collaborator interfaces consumed by the monitor core
type Capabilities struct {
	ServiceManager ServiceManager
	PortDialer     PortDialer
	ProcessFinder  ProcessFinder
	LogQuerier     LogQuerier
}
