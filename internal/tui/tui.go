// Package tui implements the terminal dashboard for the sentinel service.
package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"adaplio-sentinel/internal/tui/api"
	"adaplio-sentinel/internal/tui/scenes"
	"adaplio-sentinel/internal/tui/styles"
)

// Scene identifies which view is active
type Scene int

const (
	SceneOverview Scene = iota
	SceneAlerts
)

var sceneNames = map[Scene]string{
	SceneOverview: "overview",
	SceneAlerts:   "alerts",
}

// Model is the root TUI model
type Model struct {
	scene    Scene
	overview *scenes.OverviewScene
	alerts   *scenes.AlertsScene
	width    int
	height   int
}

// NewModel creates the root model with all scenes
func NewModel(client *api.Client) Model {
	return Model{
		scene:    SceneOverview,
		overview: scenes.NewOverviewScene(client),
		alerts:   scenes.NewAlertsScene(client),
	}
}

// Init starts the active scene and its tick loop
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.overview.Init(), m.alerts.Init(), m.overview.TickCmd(), m.alerts.TickCmd())
}

// Update handles messages and routes them to the active scene
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		var cmds []tea.Cmd
		var cmd tea.Cmd
		m.overview, cmd = m.overview.Update(msg)
		cmds = append(cmds, cmd)
		m.alerts, cmd = m.alerts.Update(msg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "1":
			m.scene = SceneOverview
			return m, nil
		case "2":
			m.scene = SceneAlerts
			return m, nil
		case "tab":
			if m.scene == SceneOverview {
				m.scene = SceneAlerts
			} else {
				m.scene = SceneOverview
			}
			return m, nil
		}
		// All other keys go to the active scene
		return m.updateActive(msg)

	case scenes.TickMsg:
		// Route the tick to its scene and schedule that scene's next
		// tick; both scenes keep polling so switching shows fresh data
		var cmds []tea.Cmd
		var cmd tea.Cmd
		switch msg.Scene {
		case "overview":
			m.overview, cmd = m.overview.Update(msg)
			cmds = append(cmds, cmd, m.overview.TickCmd())
		case "alerts":
			m.alerts, cmd = m.alerts.Update(msg)
			cmds = append(cmds, cmd, m.alerts.TickCmd())
		}
		return m, tea.Batch(cmds...)
	}

	// Data messages go to both scenes; each ignores what it does not own
	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.overview, cmd = m.overview.Update(msg)
	cmds = append(cmds, cmd)
	m.alerts, cmd = m.alerts.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) updateActive(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.scene {
	case SceneOverview:
		m.overview, cmd = m.overview.Update(msg)
	case SceneAlerts:
		m.alerts, cmd = m.alerts.Update(msg)
	}
	return m, cmd
}

// View renders the tab bar and the active scene
func (m Model) View() string {
	tabs := make([]string, 0, 2)
	for _, s := range []Scene{SceneOverview, SceneAlerts} {
		label := fmt.Sprintf(" %d %s ", int(s)+1, sceneNames[s])
		if s == m.scene {
			tabs = append(tabs, styles.TabActive.Render(label))
		} else {
			tabs = append(tabs, styles.TabInactive.Render(label))
		}
	}

	var body string
	switch m.scene {
	case SceneOverview:
		body = m.overview.View()
	case SceneAlerts:
		body = m.alerts.View()
	}

	help := styles.Help.Render("  1/2/tab: switch view • q: quit")

	return lipgloss.JoinVertical(lipgloss.Left,
		"",
		"  "+lipgloss.JoinHorizontal(lipgloss.Top, tabs...),
		"",
		body,
		help,
	)
}

// Run starts the dashboard against the given service address
func Run(baseURL, apiKey string) error {
	client := api.NewClient(baseURL, apiKey)
	p := tea.NewProgram(NewModel(client), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run dashboard: %w", err)
	}
	return nil
}
