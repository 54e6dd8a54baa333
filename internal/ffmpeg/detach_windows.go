//go:build windows

package ffmpeg

import (
	"os"
	"os/exec"
	"syscall"
)

// detach places the child in its own process group so it is not torn down
// with the server's console.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}

// requestStop terminates the process. Windows has no SIGTERM equivalent
// for arbitrary processes, so cooperative shutdown degrades to handle-based
// termination.
func requestStop(proc *os.Process) error {
	return proc.Kill()
}
