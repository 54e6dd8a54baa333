//go:build !windows

package ffmpeg

import (
	"os"
	"os/exec"
	"syscall"
)

// detach places the child in its own session so it is not tied to the
// server's controlling terminal or process group. Stopping the server does
// not stop in-flight broadcasts.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}

// requestStop asks the process to shut down cooperatively.
func requestStop(proc *os.Process) error {
	return proc.Signal(syscall.SIGTERM)
}
