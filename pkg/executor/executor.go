package executor

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/heartportal/fleet-sentinel/pkg/errors"
	"github.com/heartportal/fleet-sentinel/pkg/logging"
)

// Result carries the outcome of one command execution
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// CommandExecutor runs a command either on the local host or on a remote one.
// The monitoring core never cares which; the same probes work over both.
type CommandExecutor interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// LocalExecutor runs commands on the local host
type LocalExecutor struct {
	logger logging.Logger
}

// NewLocalExecutor creates a local command executor
func NewLocalExecutor(logger logging.Logger) *LocalExecutor {
	return &LocalExecutor{logger: logger}
}

func (e *LocalExecutor) Run(ctx context.Context, name string, args ...string) (Result, error) {
	if ctx == nil {
		return Result{}, errors.NewValidationError("context cannot be nil", nil)
	}

	e.logger.Debugf("Executing command, name: %s, args: %v", name, args)

	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		// Deadline expiry kills the process, which also surfaces as an
		// ExitError; check the context first so a timeout is not mistaken
		// for a command-level failure
		if ctx.Err() == context.DeadlineExceeded {
			return result, errors.NewTimeoutError("command timed out", err).WithContext("command", name)
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			// Non-zero exit is a result, not an execution failure
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, errors.NewInternalError("command execution failed", err).WithContext("command", name)
	}

	return result, nil
}

// RemoteExecutor runs commands on a remote host over ssh, mirroring the shape
// of the local executor so probes can be pointed at either. BatchMode keeps a
// broken key setup from hanging on a password prompt.
type RemoteExecutor struct {
	host   string
	user   string
	local  *LocalExecutor
	logger logging.Logger
}

// NewRemoteExecutor creates an ssh-backed command executor for the given host
func NewRemoteExecutor(host, user string, logger logging.Logger) *RemoteExecutor {
	return &RemoteExecutor{
		host:   host,
		user:   user,
		local:  NewLocalExecutor(logger),
		logger: logger,
	}
}

func (e *RemoteExecutor) Run(ctx context.Context, name string, args ...string) (Result, error) {
	target := e.host
	if e.user != "" {
		target = e.user + "@" + e.host
	}

	remoteCommand := name
	if len(args) > 0 {
		remoteCommand += " " + strings.Join(args, " ")
	}

	e.logger.Debugf("Executing remote command, target: %s, command: %s", target, remoteCommand)

	sshArgs := []string{"-o", "BatchMode=yes", "-o", "ConnectTimeout=10", target, remoteCommand}
	result, err := e.local.Run(ctx, "ssh", sshArgs...)
	if err != nil {
		return result, errors.NewNetworkError("remote command execution failed", err).WithContext("host", e.host).WithContext("command", name)
	}

	// ssh exit code 255 means the transport failed, not the remote command
	if result.ExitCode == 255 {
		return result, errors.NewNetworkError("ssh connection failed", nil).WithContext("host", e.host).WithContext("stderr", result.Stderr)
	}

	return result, nil
}
