//go:build !windows

package session

import (
	"errors"
	"syscall"
)

func terminateProcess(pid int) error {
	err := syscall.Kill(pid, syscall.SIGTERM)
	if errors.Is(err, syscall.ESRCH) {
		return ErrProcessGone
	}
	return err
}
