package system

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/heartportal/fleet-sentinel/pkg/errors"
	"github.com/heartportal/fleet-sentinel/pkg/executor"
	"github.com/heartportal/fleet-sentinel/pkg/logging"
	"github.com/heartportal/fleet-sentinel/pkg/probes"
)

// Default collaborator implementations for Linux hosts: systemd for service
// state and restarts, pgrep for process presence, journald for recent errors.
// Everything that shells out goes through a CommandExecutor so the same
// probes work locally or over ssh.

// SystemdManager implements probes.ServiceManager over systemctl
type SystemdManager struct {
	exec   executor.CommandExecutor
	logger logging.Logger
}

func NewSystemdManager(exec executor.CommandExecutor, logger logging.Logger) *SystemdManager {
	return &SystemdManager{exec: exec, logger: logger}
}

func (m *SystemdManager) IsServiceActive(ctx context.Context, name string) (bool, error) {
	result, err := m.exec.Run(ctx, "systemctl", "is-active", name)
	if err != nil {
		return false, errors.NewProbeError("active-state query failed", err).WithContext("service", name)
	}

	// is-active exits non-zero for every state except "active"
	return result.ExitCode == 0 && strings.TrimSpace(result.Stdout) == "active", nil
}

func (m *SystemdManager) RestartService(ctx context.Context, name string) error {
	m.logger.Infof("Restarting service via systemctl, service: %s", name)

	result, err := m.exec.Run(ctx, "systemctl", "restart", name)
	if err != nil {
		return errors.NewRemediationError("restart command failed", err).WithContext("service", name)
	}
	if result.ExitCode != 0 {
		return errors.NewRemediationError("restart command exited non-zero", nil).
			WithContext("service", name).
			WithContext("exit_code", result.ExitCode).
			WithContext("stderr", strings.TrimSpace(result.Stderr))
	}
	return nil
}

// TCPDialer implements probes.PortDialer with a plain TCP dial
type TCPDialer struct{}

func NewTCPDialer() *TCPDialer {
	return &TCPDialer{}
}

func (d *TCPDialer) PortReachable(ctx context.Context, host string, port int, timeout time.Duration) bool {
	dialer := net.Dialer{Timeout: timeout}
	address := net.JoinHostPort(host, strconv.Itoa(port))

	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// PgrepFinder implements probes.ProcessFinder over pgrep
type PgrepFinder struct {
	exec executor.CommandExecutor
}

func NewPgrepFinder(exec executor.CommandExecutor) *PgrepFinder {
	return &PgrepFinder{exec: exec}
}

func (f *PgrepFinder) ProcessPresent(ctx context.Context, name string) (bool, error) {
	result, err := f.exec.Run(ctx, "pgrep", "-f", name)
	if err != nil {
		return false, errors.NewProbeError("process query failed", err).WithContext("service", name)
	}

	switch result.ExitCode {
	case 0:
		return true, nil
	case 1:
		// No matching process
		return false, nil
	default:
		return false, errors.NewProbeError("pgrep exited with unexpected code", nil).
			WithContext("service", name).
			WithContext("exit_code", result.ExitCode)
	}
}

// JournalQuerier implements probes.LogQuerier over journalctl
type JournalQuerier struct {
	exec executor.CommandExecutor
}

func NewJournalQuerier(exec executor.CommandExecutor) *JournalQuerier {
	return &JournalQuerier{exec: exec}
}

func (q *JournalQuerier) RecentErrorLogs(ctx context.Context, name string, since time.Duration) (bool, error) {
	sinceArg := fmt.Sprintf("-%dmin", int(since.Minutes()))

	result, err := q.exec.Run(ctx, "journalctl", "-u", name, "-p", "err", "--since", sinceArg, "--no-pager", "-q")
	if err != nil {
		return false, errors.NewProbeError("journal query failed", err).WithContext("service", name)
	}
	if result.ExitCode != 0 {
		return false, errors.NewProbeError("journalctl exited non-zero", nil).
			WithContext("service", name).
			WithContext("exit_code", result.ExitCode)
	}

	return strings.TrimSpace(result.Stdout) != "", nil
}

// Capabilities assembles the default collaborator set over one executor
func Capabilities(exec executor.CommandExecutor, logger logging.Logger) probes.Capabilities {
	return probes.Capabilities{
		ServiceManager: NewSystemdManager(exec, logger),
		PortDialer:     NewTCPDialer(),
		ProcessFinder:  NewPgrepFinder(exec),
		LogQuerier:     NewJournalQuerier(exec),
	}
}
