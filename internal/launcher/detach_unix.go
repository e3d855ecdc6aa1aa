//go:build !windows

package launcher

import (
	"os/exec"
	"syscall"
)

// detach puts the child in its own session so it outlives this process.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
