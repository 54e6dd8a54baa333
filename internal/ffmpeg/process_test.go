//go:build !windows

package ffmpeg

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSControllerStartAndTerminate(t *testing.T) {
	c := NewOSController().WithGracePeriod(time.Second)

	pid, err := c.Start(context.Background(), "/bin/sleep", []string{"60"})
	require.NoError(t, err)
	require.Greater(t, pid, 0)

	assert.True(t, c.IsAlive(pid))

	require.NoError(t, c.Terminate(pid, true))

	// The reaper goroutine needs a moment to collect the exit status.
	assert.Eventually(t, func() bool {
		return !c.IsAlive(pid)
	}, 3*time.Second, 50*time.Millisecond)
}

func TestOSControllerStartUnknownBinary(t *testing.T) {
	c := NewOSController()

	_, err := c.Start(context.Background(), "/nonexistent/binary", nil)
	require.Error(t, err)
}

func TestOSControllerIsAliveSelf(t *testing.T) {
	c := NewOSController()
	assert.True(t, c.IsAlive(os.Getpid()))
}

func TestOSControllerIsAliveNonexistent(t *testing.T) {
	c := NewOSController()

	// Spawn and force-kill a short-lived process, then probe its pid.
	pid, err := c.Start(context.Background(), "/bin/sleep", []string{"60"})
	require.NoError(t, err)
	require.NoError(t, c.Terminate(pid, false))

	assert.Eventually(t, func() bool {
		return !c.IsAlive(pid)
	}, 3*time.Second, 50*time.Millisecond)

	assert.False(t, c.IsAlive(0))
	assert.False(t, c.IsAlive(-1))
}

func TestOSControllerTerminateDeadIsNoop(t *testing.T) {
	c := NewOSController()

	pid, err := c.Start(context.Background(), "/bin/sleep", []string{"0.01"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return !c.IsAlive(pid)
	}, 3*time.Second, 50*time.Millisecond)

	// Terminating an already-dead process is a success, not an error.
	assert.NoError(t, c.Terminate(pid, true))
	assert.NoError(t, c.Terminate(pid, false))
}
