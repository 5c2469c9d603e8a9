package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	statsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// maxHistory bounds the transcript kept on screen.
const maxHistory = 50

type interactiveModel struct {
	s       *session
	input   textinput.Model
	history []transcript
	recall  []string
	stats   string
	cursor  int
	busy    bool
}

type transcript struct {
	err error
	cmd string
	out string
}

type statsMsg string

type execMsg struct {
	err   error
	cmd   string
	out   string
	stats string
}

func newInteractiveModel(s *session) *interactiveModel {
	ti := textinput.New()
	ti.Prompt = promptStyle.Render("> ")
	ti.Placeholder = "help"
	ti.Width = 60
	ti.Focus()
	return &interactiveModel{s: s, input: ti}
}

func (m *interactiveModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.refresh)
}

func (m *interactiveModel) refresh() tea.Msg {
	stats, _ := m.s.exec("stats")
	return statsMsg(stats)
}

func (m *interactiveModel) exec(line string) tea.Cmd {
	return func() tea.Msg {
		out, err := m.s.exec(line)
		stats, _ := m.s.exec("stats")
		return execMsg{cmd: line, out: out, err: err, stats: stats}
	}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit

		case "enter":
			line := strings.TrimSpace(m.input.Value())
			if m.busy || line == "" {
				return m, nil
			}
			if line == "quit" || line == "exit" {
				return m, tea.Quit
			}
			m.recall = append(m.recall, line)
			m.cursor = len(m.recall)
			m.input.SetValue("")
			m.busy = true
			return m, m.exec(line)

		case "up":
			if m.cursor > 0 {
				m.cursor--
				m.input.SetValue(m.recall[m.cursor])
				m.input.CursorEnd()
			}
			return m, nil

		case "down":
			if m.cursor < len(m.recall)-1 {
				m.cursor++
				m.input.SetValue(m.recall[m.cursor])
				m.input.CursorEnd()
			} else {
				m.cursor = len(m.recall)
				m.input.SetValue("")
			}
			return m, nil
		}

	case statsMsg:
		m.stats = string(msg)
		return m, nil

	case execMsg:
		m.busy = false
		m.stats = msg.stats
		m.history = append(m.history, transcript{cmd: msg.cmd, out: msg.out, err: msg.err})
		if len(m.history) > maxHistory {
			m.history = m.history[len(m.history)-maxHistory:]
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("R Heap"))
	b.WriteString(" ")
	b.WriteString(statsStyle.Render(m.stats))
	b.WriteString("\n\n")

	for _, t := range m.history {
		b.WriteString(promptStyle.Render("> " + t.cmd))
		b.WriteString("\n")
		if t.out != "" {
			b.WriteString(resultStyle.Render(t.out))
			b.WriteString("\n")
		}
		if t.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", t.err)))
			b.WriteString("\n")
		}
	}
	if len(m.history) > 0 {
		b.WriteString("\n")
	}

	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	if m.busy {
		b.WriteString(helpStyle.Render("running..."))
	} else {
		b.WriteString(helpStyle.Render("enter run • ↑/↓ history • help commands • esc quit"))
	}

	return b.String()
}

func runInteractive(s *session) error {
	p := tea.NewProgram(newInteractiveModel(s), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
