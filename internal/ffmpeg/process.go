package ffmpeg

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// Controller abstracts starting, querying, and terminating broadcast
// processes, so the live session service can be tested with a fake.
//
// Note: OS process ids are reused. A stale pid recorded for a long-dead
// process could in theory collide with an unrelated process started later;
// liveness checks carry that caveat.
type Controller interface {
	// Start spawns a process detached from the caller's session and
	// returns its pid. The process is not awaited; it runs until it exits
	// or is terminated.
	Start(ctx context.Context, binary string, args []string) (int, error)

	// IsAlive reports whether a process with the given pid is running.
	// Never errors for a pid that no longer exists; that is simply false.
	IsAlive(pid int) bool

	// Terminate stops the process. Graceful termination requests
	// cooperative shutdown and waits up to the grace period before
	// force-killing. Terminating an already-dead process is a no-op.
	Terminate(pid int, graceful bool) error
}

// Default supervision timings.
const (
	DefaultGracePeriod  = 2 * time.Second
	defaultPollInterval = 100 * time.Millisecond
)

// OSController is the real Controller backed by the operating system.
type OSController struct {
	gracePeriod  time.Duration
	pollInterval time.Duration
	logger       *slog.Logger
}

// NewOSController creates a Controller that spawns real OS processes.
func NewOSController() *OSController {
	return &OSController{
		gracePeriod:  DefaultGracePeriod,
		pollInterval: defaultPollInterval,
		logger:       slog.Default(),
	}
}

// WithGracePeriod sets how long a graceful terminate waits before force-killing.
func (c *OSController) WithGracePeriod(d time.Duration) *OSController {
	if d > 0 {
		c.gracePeriod = d
	}
	return c
}

// WithLogger sets a custom logger.
func (c *OSController) WithLogger(logger *slog.Logger) *OSController {
	c.logger = logger
	return c
}

// Start spawns the process in its own session/process group so it survives
// a restart of the server that launched it. The child is reaped in a
// background goroutine to avoid zombies.
func (c *OSController) Start(ctx context.Context, binary string, args []string) (int, error) {
	// Deliberately not exec.CommandContext: the broadcast must outlive the
	// request that spawned it.
	cmd := exec.Command(binary, args...)
	detach(cmd)

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("spawning %s: %w", binary, err)
	}

	pid := cmd.Process.Pid
	c.logger.Info("broadcast process started",
		slog.Int("pid", pid),
		slog.String("binary", binary),
	)

	go func() {
		err := cmd.Wait()
		c.logger.Info("broadcast process exited",
			slog.Int("pid", pid),
			slog.Any("error", err),
		)
	}()

	return pid, nil
}

// IsAlive reports whether a process with the given pid is currently running.
func (c *OSController) IsAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return false
	}
	running, err := proc.IsRunning()
	return err == nil && running
}

// Terminate stops the process with the given pid. Errors from signaling a
// process that already exited are swallowed; the contract is best-effort
// stop within bounded time, idempotent if already dead.
func (c *OSController) Terminate(pid int, graceful bool) error {
	if !c.IsAlive(pid) {
		return nil
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		// Windows returns an error for nonexistent pids; already gone.
		return nil
	}

	if !graceful {
		return c.kill(proc, pid)
	}

	if err := requestStop(proc); err != nil {
		// Lost the race with the process exiting on its own.
		c.logger.Debug("graceful stop signal failed",
			slog.Int("pid", pid),
			slog.Any("error", err),
		)
		return nil
	}

	deadline := time.Now().Add(c.gracePeriod)
	for time.Now().Before(deadline) {
		if !c.IsAlive(pid) {
			return nil
		}
		time.Sleep(c.pollInterval)
	}

	c.logger.Warn("process did not stop within grace period, force-killing",
		slog.Int("pid", pid),
		slog.Duration("grace_period", c.gracePeriod),
	)
	return c.kill(proc, pid)
}

func (c *OSController) kill(proc *os.Process, pid int) error {
	if err := proc.Kill(); err != nil {
		if !c.IsAlive(pid) {
			return nil
		}
		return fmt.Errorf("killing process %d: %w", pid, err)
	}
	return nil
}
