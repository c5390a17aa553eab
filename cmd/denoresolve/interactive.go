package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	specStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const historyLimit = 10

type interactiveModel struct {
	err     error
	session resolverSession
	root    string
	history []record
	inputs  []textinput.Model
	focus   int
}

type sessionMsg struct {
	err     error
	session resolverSession
	root    string
}

type resolvedMsg struct {
	rec record
}

func newInteractiveModel(referrer string) *interactiveModel {
	spec := textinput.New()
	spec.Prompt = "specifier: "
	spec.Placeholder = "@std/path"
	spec.Width = 60
	spec.Focus()

	ref := textinput.New()
	ref.Prompt = "referrer:  "
	ref.Width = 60
	ref.SetValue(referrer)

	return &interactiveModel{inputs: []textinput.Model{spec, ref}}
}

func (m *interactiveModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.open)
}

func (m *interactiveModel) open() tea.Msg {
	t, err := resolveTarget()
	if err != nil {
		return sessionMsg{err: err}
	}
	s, err := openSession(context.Background(), t)
	if err != nil {
		return sessionMsg{err: err}
	}
	return sessionMsg{session: s, root: t.cwd}
}

func (m *interactiveModel) resolve() tea.Msg {
	spec := strings.TrimSpace(m.inputs[0].Value())
	ref := strings.TrimSpace(m.inputs[1].Value())
	return resolvedMsg{rec: resolveOne(m.session, spec, ref)}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			if m.session != nil {
				m.session.Close()
			}
			return m, tea.Quit

		case "tab", "shift+tab":
			m.inputs[m.focus].Blur()
			m.focus = (m.focus + 1) % len(m.inputs)
			m.inputs[m.focus].Focus()
			return m, nil

		case "enter":
			if m.session == nil || strings.TrimSpace(m.inputs[0].Value()) == "" {
				return m, nil
			}
			return m, m.resolve
		}

	case sessionMsg:
		m.err = msg.err
		m.session = msg.session
		m.root = msg.root
		return m, nil

	case resolvedMsg:
		m.history = append([]record{msg.rec}, m.history...)
		if len(m.history) > historyLimit {
			m.history = m.history[:historyLimit]
		}
		m.inputs[0].SetValue("")
		return m, nil
	}

	var cmds []tea.Cmd
	for i := range m.inputs {
		var cmd tea.Cmd
		m.inputs[i], cmd = m.inputs[i].Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m *interactiveModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress esc to quit.", m.err))
	}
	if m.session == nil {
		return "Discovering workspace..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("denoresolve"))
	b.WriteString(" ")
	b.WriteString(dimStyle.Render(m.root))
	b.WriteString("\n\n")
	for _, input := range m.inputs {
		b.WriteString(input.View())
		b.WriteString("\n")
	}
	b.WriteString("\n")
	for _, r := range m.history {
		b.WriteString(specStyle.Render(r.Specifier))
		b.WriteString(" ")
		if r.Error != "" {
			b.WriteString(errorStyle.Render("error: " + r.Error))
		} else {
			b.WriteString(resultStyle.Render("-> " + r.Resolved))
			if r.MediaType != "" {
				b.WriteString(" ")
				b.WriteString(dimStyle.Render("(" + r.MediaType + ")"))
			}
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter resolve • tab switch field • esc quit"))
	return b.String()
}

func newInteractiveCmd() *cobra.Command {
	var referrer string

	cmd := &cobra.Command{
		Use:   "interactive",
		Short: "Resolve specifiers in a terminal UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
				return fmt.Errorf("interactive mode requires a terminal")
			}
			if referrer == "" {
				t, err := resolveTarget()
				if err != nil {
					return err
				}
				referrer = t.defaultReferrer()
			}
			p := tea.NewProgram(newInteractiveModel(referrer), tea.WithAltScreen())
			_, err := p.Run()
			return err
		},
	}
	cmd.Flags().StringVar(&referrer, "referrer", "", "Initial referrer URL (default: the working directory)")
	return cmd
}
