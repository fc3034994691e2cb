package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/wippyai/value-witness/witness"
)

var helpStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#666666"))

var interactiveCmd = &cobra.Command{
	Use:     "interactive",
	Aliases: []string{"i"},
	Short:   "Explore layouts in a terminal UI",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		md, err := metadataFlag(cmd)
		if err != nil {
			return err
		}
		return runInteractive(md)
	},
}

type modelState int

const (
	stateInput modelState = iota
	stateShowResult
)

type interactiveModel struct {
	err     error
	md      witness.Metadata
	report  *report
	history []string
	input   textinput.Model
	histIdx int
	state   modelState
}

type analyzedMsg struct {
	err    error
	report *report
}

func newInteractiveModel(md witness.Metadata) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "a(0:c, 3:e<1>(N))"
	ti.Prompt = "layout: "
	ti.Width = 60
	ti.Focus()
	return &interactiveModel{md: md, input: ti, state: stateInput}
}

func (m *interactiveModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *interactiveModel) analyze(src string) tea.Cmd {
	return func() tea.Msg {
		prog, err := readLayout(src)
		if err != nil {
			return analyzedMsg{err: err}
		}
		r, err := analyze(prog, m.md)
		return analyzedMsg{err: err, report: r}
	}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "esc":
			if m.state == stateShowResult {
				m.state = stateInput
				m.report = nil
				m.err = nil
				return m, nil
			}
			return m, tea.Quit

		case "enter":
			switch m.state {
			case stateInput:
				src := strings.TrimSpace(m.input.Value())
				if src == "" {
					return m, nil
				}
				m.history = append(m.history, src)
				m.histIdx = len(m.history)
				return m, m.analyze(src)
			case stateShowResult:
				m.state = stateInput
				m.report = nil
				m.err = nil
				return m, nil
			}

		case "up":
			if m.state == stateInput && m.histIdx > 0 {
				m.histIdx--
				m.input.SetValue(m.history[m.histIdx])
				m.input.CursorEnd()
			}
			return m, nil

		case "down":
			if m.state == stateInput && m.histIdx < len(m.history)-1 {
				m.histIdx++
				m.input.SetValue(m.history[m.histIdx])
				m.input.CursorEnd()
			}
			return m, nil
		}

	case analyzedMsg:
		m.report = msg.report
		m.err = msg.err
		m.state = stateShowResult
		return m, nil
	}

	if m.state == stateInput {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Value Witness"))
	b.WriteString("\n\n")

	switch m.state {
	case stateInput:
		b.WriteString(m.input.View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter analyze • ↑/↓ history • esc quit"))

	case stateShowResult:
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(renderReport(m.report, true))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • esc back • ctrl+c quit"))
	}

	return b.String()
}

func runInteractive(md witness.Metadata) error {
	p := tea.NewProgram(newInteractiveModel(md), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
