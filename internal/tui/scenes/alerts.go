// Package scenes provides TUI scenes for the sentinel dashboard
package scenes

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"adaplio-sentinel/internal/tui/api"
	"adaplio-sentinel/internal/tui/styles"
)

// TickMsg is sent on each refresh tick - exported for use by the parent model
type TickMsg struct {
	Scene string
	Time  time.Time
}

// AlertsScene displays the active alert feed
type AlertsScene struct {
	client     *api.Client
	data       *api.AlertsData
	err        error
	width      int
	height     int
	lastUpdate time.Time
	loading    bool
	sweeping   bool
}

// alertsMsg carries updated alert data
type alertsMsg struct {
	data *api.AlertsData
	err  error
}

// sweepDoneMsg signals an on-demand sweep finished
type sweepDoneMsg struct {
	err error
}

// NewAlertsScene creates a new alerts scene
func NewAlertsScene(client *api.Client) *AlertsScene {
	return &AlertsScene{client: client, loading: true}
}

// Init fetches initial data
func (a *AlertsScene) Init() tea.Cmd {
	return a.fetchAlerts()
}

func (a *AlertsScene) fetchAlerts() tea.Cmd {
	return func() tea.Msg {
		data, err := a.client.GetAlerts()
		return alertsMsg{data: data, err: err}
	}
}

// runSweep triggers a threat sweep then refreshes
func (a *AlertsScene) runSweep() tea.Cmd {
	return func() tea.Msg {
		err := a.client.RunSweep()
		return sweepDoneMsg{err: err}
	}
}

// TickCmd returns the refresh command for this scene
func (a *AlertsScene) TickCmd() tea.Cmd {
	return tea.Tick(3*time.Second, func(t time.Time) tea.Msg {
		return TickMsg{Scene: "alerts", Time: t}
	})
}

// Update handles messages for the alerts scene
func (a *AlertsScene) Update(msg tea.Msg) (*AlertsScene, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "s" && !a.sweeping {
			a.sweeping = true
			return a, a.runSweep()
		}
		return a, nil

	case alertsMsg:
		a.loading = false
		a.data = msg.data
		a.err = msg.err
		a.lastUpdate = time.Now()
		return a, nil

	case sweepDoneMsg:
		a.sweeping = false
		if msg.err != nil {
			a.err = msg.err
			return a, nil
		}
		return a, a.fetchAlerts()

	case TickMsg:
		if msg.Scene == "alerts" {
			return a, a.fetchAlerts()
		}
		return a, nil
	}

	return a, nil
}

// View renders the alerts scene
func (a *AlertsScene) View() string {
	var b strings.Builder

	b.WriteString(styles.Title.Render("  Active Security Alerts"))
	b.WriteString("\n\n")

	if a.loading {
		b.WriteString(styles.Muted.Render("  Loading..."))
		return b.String()
	}

	if a.err != nil {
		b.WriteString(styles.StatusError.Render(fmt.Sprintf("  Error: %v", a.err)))
		b.WriteString("\n\n")
	}

	if a.data == nil || a.data.Count == 0 {
		b.WriteString(styles.StatusOK.Render("  ● No active alerts"))
		b.WriteString("\n")
	} else {
		b.WriteString(fmt.Sprintf("  %s  %s  %s\n\n",
			styles.StatusError.Render(fmt.Sprintf("critical: %d", a.data.CriticalCount)),
			styles.StatusWarning.Render(fmt.Sprintf("high: %d", a.data.HighCount)),
			styles.Muted.Render(fmt.Sprintf("total: %d", a.data.Count)),
		))

		b.WriteString(styles.TableHeader.Render(fmt.Sprintf("  %-10s %-30s %-8s %s", "SEVERITY", "TYPE", "AGE", "MESSAGE")))
		b.WriteString("\n")

		for _, al := range a.data.Alerts {
			sev := styles.ForSeverity(al.Severity).Render(fmt.Sprintf("%-10s", al.Severity))
			age := formatAge(time.Since(al.Timestamp))
			msg := al.Message
			if a.width > 60 && len(msg) > a.width-54 {
				msg = msg[:a.width-57] + "..."
			}
			marker := " "
			if al.Resolved {
				marker = "✓"
			}
			b.WriteString(fmt.Sprintf("  %s %-30s %-8s %s%s\n", sev, al.Type, age, marker, msg))
		}
	}

	if a.sweeping {
		b.WriteString("\n")
		b.WriteString(styles.Muted.Render("  Running threat sweep..."))
	}

	if !a.lastUpdate.IsZero() {
		b.WriteString("\n")
		b.WriteString(styles.Muted.Render(fmt.Sprintf("  Last updated: %s", a.lastUpdate.Format("15:04:05"))))
	}

	b.WriteString("\n")
	b.WriteString(styles.Help.Render("  s: run sweep"))

	return b.String()
}

func formatAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
