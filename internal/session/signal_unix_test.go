//go:build !windows

package session

import (
	"errors"
	"os/exec"
	"testing"
)

func TestTerminateProcessExitedPID(t *testing.T) {
	cmd := exec.Command("true")
	if err := cmd.Run(); err != nil {
		t.Skipf("true not available: %v", err)
	}
	if err := terminateProcess(cmd.Process.Pid); !errors.Is(err, ErrProcessGone) {
		t.Errorf("Expected ErrProcessGone for a reaped pid, got %v", err)
	}
}
