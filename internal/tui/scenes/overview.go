package scenes

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"adaplio-sentinel/internal/tui/api"
	"adaplio-sentinel/internal/tui/styles"
)

// OverviewScene displays the metrics rollup and service health
type OverviewScene struct {
	client     *api.Client
	metrics    *api.Metrics
	health     *api.Health
	err        error
	width      int
	height     int
	lastUpdate time.Time
	loading    bool
}

// overviewMsg carries updated metrics and health
type overviewMsg struct {
	metrics *api.Metrics
	health  *api.Health
	err     error
}

// NewOverviewScene creates a new overview scene
func NewOverviewScene(client *api.Client) *OverviewScene {
	return &OverviewScene{client: client, loading: true}
}

// Init fetches initial data
func (o *OverviewScene) Init() tea.Cmd {
	return o.fetch()
}

func (o *OverviewScene) fetch() tea.Cmd {
	return func() tea.Msg {
		metrics, err := o.client.GetMetrics(24)
		if err != nil {
			return overviewMsg{err: err}
		}
		health, err := o.client.GetHealth()
		return overviewMsg{metrics: metrics, health: health, err: err}
	}
}

// TickCmd returns the refresh command for this scene
func (o *OverviewScene) TickCmd() tea.Cmd {
	return tea.Tick(5*time.Second, func(t time.Time) tea.Msg {
		return TickMsg{Scene: "overview", Time: t}
	})
}

// Update handles messages for the overview scene
func (o *OverviewScene) Update(msg tea.Msg) (*OverviewScene, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		o.width = msg.Width
		o.height = msg.Height
		return o, nil

	case overviewMsg:
		o.loading = false
		o.metrics = msg.metrics
		o.health = msg.health
		o.err = msg.err
		o.lastUpdate = time.Now()
		return o, nil

	case TickMsg:
		if msg.Scene == "overview" {
			return o, o.fetch()
		}
		return o, nil
	}

	return o, nil
}

// View renders the overview scene
func (o *OverviewScene) View() string {
	var b strings.Builder

	b.WriteString(styles.Title.Render("  Security Overview (24h)"))
	b.WriteString("\n\n")

	if o.loading {
		b.WriteString(styles.Muted.Render("  Loading..."))
		return b.String()
	}

	if o.err != nil {
		b.WriteString(styles.StatusError.Render(fmt.Sprintf("  Error: %v", o.err)))
		return b.String()
	}

	if o.health != nil {
		status := styles.StatusOK.Render("● HEALTHY")
		if o.health.Status != "ok" {
			status = styles.StatusError.Render("● UNHEALTHY")
		}
		b.WriteString(fmt.Sprintf("  Status: %s   Uptime: %s\n\n", status, formatUptime(o.health.UptimeSeconds)))
	}

	if o.metrics != nil {
		cards := []string{
			o.renderCard("Events", fmt.Sprintf("%d", o.metrics.TotalEvents)),
			o.renderCard("Failed Auth", fmt.Sprintf("%d", o.metrics.FailedAuthAttempts)),
			o.renderCard("Rate Limited", fmt.Sprintf("%d", o.metrics.RateLimitViolations)),
			o.renderCard("Unique IPs", fmt.Sprintf("%d", o.metrics.UniqueIPAddresses)),
			o.renderCard("Unique Users", fmt.Sprintf("%d", o.metrics.UniqueUsers)),
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cards...))
		b.WriteString("\n\n")

		if len(o.metrics.TopIPAddresses) > 0 {
			b.WriteString(styles.Subtitle.Render("  Top source addresses"))
			b.WriteString("\n")
			for _, ip := range o.metrics.TopIPAddresses {
				b.WriteString(fmt.Sprintf("  %-40s %d\n", ip.IPAddress, ip.Count))
			}
		}
	}

	if !o.lastUpdate.IsZero() {
		b.WriteString("\n")
		b.WriteString(styles.Muted.Render(fmt.Sprintf("  Last updated: %s", o.lastUpdate.Format("15:04:05"))))
	}

	return b.String()
}

func (o *OverviewScene) renderCard(label, value string) string {
	card := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.MutedColor).
		Padding(0, 2).
		Width(16).
		Align(lipgloss.Center)

	return card.Render(fmt.Sprintf("%s\n%s",
		lipgloss.NewStyle().Bold(true).Render(value),
		styles.Muted.Render(label)))
}

func formatUptime(seconds int) string {
	d := time.Duration(seconds) * time.Second
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
