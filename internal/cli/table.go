package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"
	"github.com/mynenikoteshwarrao/ssh-organizer-desktop/internal/config"
	"github.com/mynenikoteshwarrao/ssh-organizer-desktop/internal/session"
)

var (
	headerStyle = lipgloss.NewStyle().Padding(0, 1).Bold(true).Foreground(lipgloss.Color("170"))
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func renderTable(headers []string, rows [][]string) string {
	return ltable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row < 0 {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...).
		Render()
}

// RenderProfiles writes a table of profiles. Secrets are never part of it.
func RenderProfiles(w io.Writer, profiles []config.ConnectionProfile) error {
	if len(profiles) == 0 {
		_, err := fmt.Fprintln(w, helpStyle.Render("No connections saved."))
		return err
	}
	rows := make([][]string, 0, len(profiles))
	for _, p := range profiles {
		rows = append(rows, []string{
			p.ID, p.Name, p.Target(), strconv.Itoa(p.Port), string(p.AuthType), strings.Join(p.Tags, ","),
		})
	}
	_, err := fmt.Fprintln(w, renderTable([]string{"ID", "NAME", "TARGET", "PORT", "AUTH", "TAGS"}, rows))
	return err
}

// RenderSessions writes a table of tracked sessions.
func RenderSessions(w io.Writer, sessions []session.ActiveSession) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, helpStyle.Render("No active connections."))
		return err
	}
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, []string{
			s.ID, s.ProfileName, s.Username + "@" + s.Hostname, string(s.Kind), string(s.Status),
			strconv.Itoa(s.TerminalPID), s.StartTime.Format("15:04:05"),
		})
	}
	_, err := fmt.Fprintln(w, renderTable([]string{"ID", "NAME", "TARGET", "KIND", "STATUS", "PID", "STARTED"}, rows))
	return err
}
