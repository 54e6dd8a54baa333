// Package ffmpeg wraps the external ffmpeg binary: locating it, building
// broadcast command lines, and supervising spawned broadcast processes.
package ffmpeg

import (
	"fmt"
	"os"
	"os/exec"
)

// EnvBinaryPath is the environment variable consulted when locating ffmpeg.
const EnvBinaryPath = "LIVEMANAGER_FFMPEG_PATH"

// FindBinary searches for the ffmpeg executable.
// Search order:
//  1. The explicit configured path, if non-empty.
//  2. The LIVEMANAGER_FFMPEG_PATH environment variable.
//  3. ./ffmpeg (current directory, useful for development).
//  4. ffmpeg on PATH (via exec.LookPath).
//
// Each candidate is verified to exist and be executable before being returned.
func FindBinary(configured string) (string, error) {
	if configured != "" {
		if isExecutable(configured) {
			return configured, nil
		}
		return "", fmt.Errorf("configured ffmpeg binary %s is not executable", configured)
	}

	if envPath := os.Getenv(EnvBinaryPath); envPath != "" {
		if isExecutable(envPath) {
			return envPath, nil
		}
	}

	if isExecutable("./ffmpeg") {
		return "./ffmpeg", nil
	}

	if path, err := exec.LookPath("ffmpeg"); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("ffmpeg binary not found")
}

// isExecutable checks if a file exists and is executable by the current user.
func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	return info.Mode()&0111 != 0
}
