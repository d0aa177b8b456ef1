// Package daemonctl orchestrates daemon process lifecycle on behalf of the
// CLI: launching a detached daemon, waiting for its socket, and stopping it
// with a force-kill backstop.
package daemonctl

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"bingpaper/internal/ipc"
)

// ErrDaemonNotRunning indicates daemon IPC is unavailable.
var ErrDaemonNotRunning = errors.New("daemon not running")

// LaunchOptions controls daemon process launch behavior.
type LaunchOptions struct {
	ConfigPath string
	LogLevel   string
}

// StartState names the outcome of a start request.
type StartState string

const (
	StartStateStarted        StartState = "started"
	StartStateAlreadyRunning StartState = "already_running"
)

// StartResult captures daemon start orchestration state.
type StartResult struct {
	State    StartState
	Launched bool
	PID      int
}

// StopResult captures daemon stop outcome.
type StopResult struct {
	ForcedKill bool
	PID        int
}

// Launch starts a detached daemon process via the CLI's own executable.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return fmt.Errorf("resolve executable: executable path is empty")
	}

	args := []string{"daemon", "run"}
	if cfg := strings.TrimSpace(opts.ConfigPath); cfg != "" {
		args = append(args, "--config", cfg)
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		args = append(args, "--log-level", level)
	}

	proc := exec.Command(executablePath, args...)
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

// WaitForClient waits for IPC socket availability and returns a connected
// client.
func WaitForClient(socketPath string, timeout time.Duration) (*ipc.Client, error) {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		client, err := ipc.Dial(socketPath)
		if err == nil {
			return client, nil
		}
		lastErr = err
		time.Sleep(200 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for daemon")
	}
	return nil, fmt.Errorf("daemon failed to start: %w", lastErr)
}

// EnsureStarted launches the daemon when its socket is unreachable and waits
// for it to come up.
func EnsureStarted(socketPath, executablePath string, opts LaunchOptions, waitTimeout time.Duration) (StartResult, error) {
	client, err := ipc.Dial(socketPath)
	if err == nil {
		defer client.Close()
		result := StartResult{State: StartStateAlreadyRunning}
		if status, statusErr := client.Status(); statusErr == nil {
			result.PID = status.PID
		}
		return result, nil
	}

	if launchErr := Launch(executablePath, opts); launchErr != nil {
		return StartResult{}, launchErr
	}
	client, err = WaitForClient(socketPath, waitTimeout)
	if err != nil {
		return StartResult{}, err
	}
	defer client.Close()

	result := StartResult{State: StartStateStarted, Launched: true}
	if status, statusErr := client.Status(); statusErr == nil {
		result.PID = status.PID
	}
	return result, nil
}

// WaitForShutdown waits for daemon IPC to disappear.
func WaitForShutdown(socketPath string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		client, err := ipc.Dial(socketPath)
		if err != nil {
			return nil
		}
		_ = client.Close()
		time.Sleep(200 * time.Millisecond)
	}
	return fmt.Errorf("daemon did not stop within %s", timeout)
}

// StopAndTerminate requests daemon shutdown over IPC and force-kills the
// process if it is still alive after gracePeriod.
func StopAndTerminate(socketPath string, gracePeriod time.Duration) (StopResult, error) {
	client, err := ipc.Dial(socketPath)
	if err != nil {
		if isDaemonUnavailable(err) {
			return StopResult{}, ErrDaemonNotRunning
		}
		return StopResult{}, err
	}

	pid := 0
	if status, statusErr := client.Status(); statusErr == nil {
		pid = status.PID
	}
	_, stopErr := client.Stop()
	_ = client.Close()
	if stopErr != nil {
		return StopResult{}, stopErr
	}

	result := StopResult{PID: pid}
	if WaitForShutdown(socketPath, gracePeriod) == nil {
		return result, nil
	}

	if pid <= 0 || pid == os.Getpid() {
		return result, fmt.Errorf("daemon still running and pid unknown")
	}
	proc, findErr := os.FindProcess(pid)
	if findErr != nil {
		return result, fmt.Errorf("locate daemon process %d: %w", pid, findErr)
	}
	if killErr := proc.Kill(); killErr != nil {
		return result, fmt.Errorf("kill daemon process %d: %w", pid, killErr)
	}
	_ = os.Remove(socketPath)
	result.ForcedKill = true
	return result, nil
}

// ProcessInfo reports whether daemon IPC is reachable and the daemon PID
// when available.
func ProcessInfo(socketPath string) (bool, int, error) {
	client, err := ipc.Dial(socketPath)
	if err != nil {
		if isDaemonUnavailable(err) {
			return false, 0, nil
		}
		return false, 0, err
	}
	defer client.Close()
	status, statusErr := client.Status()
	if statusErr != nil {
		return true, 0, statusErr
	}
	return true, status.PID, nil
}

func isDaemonUnavailable(err error) bool {
	return os.IsNotExist(err) ||
		errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, syscall.ENOENT) ||
		errors.Is(err, syscall.ECONNREFUSED)
}
