package main

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	filterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// Lines taken by the title and the help footer.
const chromeHeight = 4

type modelState int

const (
	stateBrowse modelState = iota
	stateFilter
)

// browserModel shows a rendered table in a scrollable viewport. The table is
// re-rendered whenever the name filter changes.
type browserModel struct {
	title    string
	render   func(filter string) string
	viewport viewport.Model
	filter   textinput.Model
	state    modelState
	ready    bool
}

func newBrowserModel(title string, render func(filter string) string) *browserModel {
	ti := textinput.New()
	ti.Prompt = "/"
	ti.Placeholder = "name or type"
	ti.Width = 40

	return &browserModel{
		title:    title,
		render:   render,
		viewport: viewport.New(80, 20),
		filter:   ti,
		state:    stateBrowse,
	}
}

func browse(title string, render func(filter string) string) error {
	_, err := tea.NewProgram(newBrowserModel(title, render), tea.WithAltScreen()).Run()
	return err
}

func (m *browserModel) Init() tea.Cmd {
	m.refresh()
	return nil
}

func (m *browserModel) refresh() {
	content := m.render(m.filter.Value())
	if strings.TrimSpace(content) == "" {
		content = errorStyle.Render("no entries match " + m.filter.Value())
	}
	m.viewport.SetContent(content)
	m.viewport.GotoTop()
}

func (m *browserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-chromeHeight, 1)
		if !m.ready {
			m.ready = true
			m.refresh()
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.state == stateFilter {
			switch msg.String() {
			case "esc":
				m.filter.Reset()
				m.filter.Blur()
				m.state = stateBrowse
				m.refresh()
				return m, nil
			case "enter":
				m.filter.Blur()
				m.state = stateBrowse
				return m, nil
			}
			before := m.filter.Value()
			var cmd tea.Cmd
			m.filter, cmd = m.filter.Update(msg)
			if m.filter.Value() != before {
				m.refresh()
			}
			return m, cmd
		}

		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "/":
			m.state = stateFilter
			return m, m.filter.Focus()
		case "esc":
			if m.filter.Value() != "" {
				m.filter.Reset()
				m.refresh()
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *browserModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Storage Layout"))
	b.WriteString(" ")
	b.WriteString(m.title)
	b.WriteString("\n\n")

	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	switch {
	case m.state == stateFilter:
		b.WriteString(m.filter.View())
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter apply • esc clear"))
	case m.filter.Value() != "":
		b.WriteString(filterStyle.Render("filter: " + m.filter.Value()))
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ scroll • / filter • esc clear • q quit"))
	default:
		b.WriteString(helpStyle.Render("↑/↓ scroll • / filter • q quit"))
	}

	return b.String()
}
