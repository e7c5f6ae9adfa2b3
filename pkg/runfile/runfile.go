package runfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/heartportal/fleet-sentinel/pkg/errors"
	"github.com/heartportal/fleet-sentinel/pkg/logging"
)

// DefaultAppName names the run file when no explicit path is configured
const DefaultAppName = "fleet-sentinel"

// RunFile is the monitor's liveness token: a PID file that lets a second
// instance detect an already-running monitor and refuse to start, preventing
// double remediation of the same fleet.
type RunFile struct {
	path   string
	logger logging.Logger
}

// NewRunFile creates a run file manager. An empty path selects the
// OS-appropriate default location.
func NewRunFile(path string, logger logging.Logger) *RunFile {
	if path == "" {
		path = DefaultPath()
	}
	return &RunFile{
		path:   path,
		logger: logger,
	}
}

// DefaultPath returns the default run file location: /run when writable by
// convention for daemons, the temp directory otherwise
func DefaultPath() string {
	if info, err := os.Stat("/run"); err == nil && info.IsDir() {
		return filepath.Join("/run", DefaultAppName+".pid")
	}
	return filepath.Join(os.TempDir(), DefaultAppName+".pid")
}

// Path returns the run file location
func (r *RunFile) Path() string {
	return r.path
}

// Acquire claims the liveness token for the given PID. A run file left behind
// by a dead process is reclaimed; a live owner makes acquisition fail with a
// conflict error.
func (r *RunFile) Acquire(pid int) error {
	if content, err := os.ReadFile(r.path); err == nil {
		ownerPID, parseErr := strconv.Atoi(strings.TrimSpace(string(content)))
		if parseErr == nil && ownerPID > 0 && processAlive(ownerPID) {
			return errors.NewConflictError("monitor already running", nil).
				WithContext("run_file", r.path).
				WithContext("owner_pid", ownerPID)
		}

		r.logger.Warnf("Reclaiming stale run file, path: %s, stale_content: %s",
			r.path, strings.TrimSpace(string(content)))
		if removeErr := os.Remove(r.path); removeErr != nil {
			return errors.NewIOError("failed to remove stale run file", removeErr).WithContext("run_file", r.path)
		}
	} else if !os.IsNotExist(err) {
		return errors.NewIOError("failed to read run file", err).WithContext("run_file", r.path)
	}

	if err := ensureDirectory(r.path); err != nil {
		return err
	}

	// O_EXCL closes the race between two instances starting at once
	file, err := os.OpenFile(r.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return errors.NewConflictError("monitor already running", err).WithContext("run_file", r.path)
		}
		return errors.NewIOError("failed to create run file", err).WithContext("run_file", r.path)
	}
	defer file.Close()

	if _, err := fmt.Fprintf(file, "%d\n", pid); err != nil {
		return errors.NewIOError("failed to write run file", err).WithContext("run_file", r.path)
	}

	r.logger.Infof("Run file acquired, path: %s, pid: %d", r.path, pid)
	return nil
}

// Release removes the liveness token. Missing file is not an error: shutdown
// must be idempotent.
func (r *RunFile) Release() error {
	if err := os.Remove(r.path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.NewIOError("failed to remove run file", err).WithContext("run_file", r.path)
	}

	r.logger.Infof("Run file released, path: %s", r.path)
	return nil
}

func ensureDirectory(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.NewIOError("failed to create run file directory", err).WithContext("directory", dir)
	}
	return nil
}

// processAlive reports whether a process with the given PID exists
func processAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = process.Signal(syscall.Signal(0))
	return err == nil || err == syscall.EPERM
}
