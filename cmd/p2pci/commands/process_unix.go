//go:build unix

package commands

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// processAlive reports whether pid names a running process.
func processAlive(pid int) bool {
	err := unix.Kill(pid, 0)
	return err == nil || err == unix.EPERM
}

// terminate asks pid to shut down gracefully.
func terminate(pid int) error {
	return unix.Kill(pid, unix.SIGTERM)
}

// detach starts cmd in its own session so it outlives the terminal.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
