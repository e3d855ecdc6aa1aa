package launcher

import (
	"context"
	"fmt"
	"log"

	"github.com/mynenikoteshwarrao/ssh-organizer-desktop/internal/config"
	"github.com/mynenikoteshwarrao/ssh-organizer-desktop/internal/logutil"
	"github.com/mynenikoteshwarrao/ssh-organizer-desktop/internal/sshcmd"
)

// External launches ssh in a new terminal window.
type External struct {
	builder   *sshcmd.Builder
	terminal  Terminal
	sshBinary string
}

// NewExternal creates an external launcher.
func NewExternal(builder *sshcmd.Builder, terminal Terminal, sshBinary string) *External {
	if sshBinary == "" {
		sshBinary = "ssh"
	}
	return &External{builder: builder, terminal: terminal, sshBinary: sshBinary}
}

// Launch builds the ssh command for p and opens it. It returns once the
// window process has started; the pid is that of the launching process.
// Build failures are returned unchanged as *sshcmd.BuildError.
func (e *External) Launch(ctx context.Context, p config.ConnectionProfile) (int, error) {
	args, err := e.builder.Build(p, sshcmd.ModeExternal)
	if err != nil {
		return 0, err
	}
	command := sshcmd.CommandLine(e.sshBinary, args)
	title := fmt.Sprintf("%s:%d - %s", p.Target(), p.Port, p.Name)

	log.Printf("[Launcher] Opening %s for %s: %s", e.terminal.Name(), logutil.SanitizeForLog(p.Name), logutil.SanitizeForLog(command))
	pid, err := e.terminal.Open(ctx, title, command)
	if err != nil {
		return 0, &LaunchError{ProfileID: p.ID, Via: e.terminal.Name(), Err: err}
	}
	log.Printf("[Launcher] %s started with pid %d", e.terminal.Name(), pid)
	return pid, nil
}
