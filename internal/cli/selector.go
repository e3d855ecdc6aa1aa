package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mynenikoteshwarrao/ssh-organizer-desktop/internal/config"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("170"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("170")).Bold(true)
	normalStyle   = lipgloss.NewStyle()
	filterStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const maxVisible = 10

type selectorKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Quit   key.Binding
}

func (k selectorKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Select, k.Quit}
}

func (k selectorKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var selectorKeys = selectorKeyMap{
	Up:     key.NewBinding(key.WithKeys("up", "ctrl+p"), key.WithHelp("↑", "up")),
	Down:   key.NewBinding(key.WithKeys("down", "ctrl+n"), key.WithHelp("↓", "down")),
	Select: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
	Quit:   key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "quit")),
}

// SelectorModel is a filterable profile picker.
type SelectorModel struct {
	profiles        []config.ConnectionProfile
	filteredIndices []int
	cursor          int
	filter          string
	choice          *config.ConnectionProfile
	quitting        bool
	help            help.Model
	width           int
}

func NewSelector(profiles []config.ConnectionProfile) *SelectorModel {
	m := &SelectorModel{
		profiles: profiles,
		help:     help.New(),
		width:    80,
	}
	m.updateFilter()
	return m
}

func (m *SelectorModel) Init() tea.Cmd {
	return nil
}

func (m *SelectorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, selectorKeys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, selectorKeys.Select):
			if m.cursor < len(m.filteredIndices) {
				m.choice = &m.profiles[m.filteredIndices[m.cursor]]
			}
			return m, tea.Quit

		case key.Matches(msg, selectorKeys.Up):
			if m.cursor > 0 {
				m.cursor--
			}

		case key.Matches(msg, selectorKeys.Down):
			if m.cursor < len(m.filteredIndices)-1 {
				m.cursor++
			}

		case msg.Type == tea.KeyBackspace || msg.Type == tea.KeyDelete:
			if len(m.filter) > 0 {
				r := []rune(m.filter)
				m.filter = string(r[:len(r)-1])
				m.updateFilter()
			}

		case msg.Type == tea.KeySpace:
			m.filter += " "
			m.updateFilter()

		case msg.Type == tea.KeyRunes:
			m.filter += string(msg.Runes)
			m.updateFilter()
		}
	}

	return m, nil
}

func (m *SelectorModel) updateFilter() {
	m.cursor = 0
	m.filteredIndices = m.filteredIndices[:0]
	needle := strings.ToLower(strings.TrimSpace(m.filter))
	for i, p := range m.profiles {
		if needle == "" || matchesProfile(p, needle) {
			m.filteredIndices = append(m.filteredIndices, i)
		}
	}
}

func matchesProfile(p config.ConnectionProfile, needle string) bool {
	fields := append([]string{p.Name, p.Hostname, p.Username}, p.Tags...)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

func (m *SelectorModel) View() string {
	if m.choice != nil || m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("SSH Connections"))
	b.WriteString("\n\n")

	if m.filter != "" {
		b.WriteString(filterStyle.Render("Filter: " + m.filter))
	} else {
		b.WriteString(helpStyle.Render("Type to filter..."))
	}
	b.WriteString("\n\n")

	start := 0
	if m.cursor >= maxVisible {
		start = m.cursor - maxVisible + 1
	}
	end := min(start+maxVisible, len(m.filteredIndices))

	if len(m.filteredIndices) == 0 {
		b.WriteString(helpStyle.Render("No matches found"))
		b.WriteString("\n")
	} else {
		for i := start; i < end; i++ {
			p := m.profiles[m.filteredIndices[i]]
			line := fmt.Sprintf("%s (%s:%d)", p.Name, p.Target(), p.Port)
			if i == m.cursor {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString(normalStyle.Render("  " + line))
			}
			b.WriteString("\n")
		}
		if len(m.filteredIndices) > maxVisible {
			b.WriteString("\n")
			b.WriteString(helpStyle.Render(fmt.Sprintf("Showing %d-%d of %d connections",
				start+1, end, len(m.filteredIndices))))
		}
	}

	b.WriteString("\n\n")
	b.WriteString(m.help.View(selectorKeys))
	return b.String()
}

// Choice is the selected profile, or nil when the picker was cancelled.
func (m *SelectorModel) Choice() *config.ConnectionProfile {
	return m.choice
}

// Pick runs the selector full screen and returns the chosen profile.
func Pick(profiles []config.ConnectionProfile) (*config.ConnectionProfile, error) {
	model := NewSelector(profiles)
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return nil, fmt.Errorf("selector failed: %w", err)
	}
	return model.Choice(), nil
}
