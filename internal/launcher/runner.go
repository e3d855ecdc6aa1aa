// Package launcher starts ssh in external terminal windows or in embedded
// pseudo-terminals.
package launcher

import (
	"context"
	"fmt"
	"log"
	"os/exec"
)

// Runner abstracts process creation so launch paths can be tested.
type Runner interface {
	// Run executes a command to completion and returns its combined output.
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
	// Start launches a detached command and returns its pid without waiting.
	Start(name string, args ...string) (int, error)
	// LookPath resolves a program in PATH.
	LookPath(name string) (string, error)
}

// ExecRunner runs real processes.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

func (ExecRunner) Start(name string, args ...string) (int, error) {
	cmd := exec.Command(name, args...)
	detach(cmd)
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start %s: %w", name, err)
	}
	pid := cmd.Process.Pid
	go func() {
		if err := cmd.Wait(); err != nil {
			log.Printf("[Launcher] %s (pid %d) exited: %v", name, pid, err)
		}
	}()
	return pid, nil
}

func (ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}
