package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/EarthLinkNetwork/ai-quality-guardian-sub000/internal/core"
	"github.com/EarthLinkNetwork/ai-quality-guardian-sub000/pkg/models"
)

// Dashboard panel indices.
const (
	panelQueue = iota
	panelAttention
	panelAlerts
	panelCount
)

type dashboardModel struct {
	activePanel int
	width       int
	height      int

	// Data.
	statusCounts map[string]int
	attention    []attentionRow
	alerts       []alertSnapshot
	metricsData  *metricsSnapshot

	// State.
	loading bool
	err     error
}

// attentionRow is a task the operator should look at: stale RUNNING work
// or a clarification waiting for a reply.
type attentionRow struct {
	taskID  string
	status  string
	detail  string
	attempt int
}

type metricsSnapshot struct {
	enqueued  int
	completed int
	failed    int
	recovered int
	timeouts  int
}

type alertSnapshot struct {
	severity string
	message  string
	time     string
}

// dataLoadedMsg carries loaded data back to the model.
type dataLoadedMsg struct {
	statusCounts map[string]int
	attention    []attentionRow
	alerts       []alertSnapshot
	metrics      *metricsSnapshot
	err          error
}

// Style definitions.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2)

	activePanelStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				Padding(1, 2)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			MarginBottom(1)

	statusQueuedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	statusRunningStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	statusCompleteStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	statusErrorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	statusAwaitingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("141"))
	statusCancelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	severityHigh   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	severityMedium = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	severityLow    = lipgloss.NewStyle().Foreground(lipgloss.Color("69"))

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newDashboardModel() dashboardModel {
	return dashboardModel{
		activePanel:  panelQueue,
		loading:      true,
		statusCounts: make(map[string]int),
	}
}

func (m dashboardModel) Init() tea.Cmd {
	return loadDashboardData
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.activePanel = (m.activePanel + 1) % panelCount
			return m, nil
		case "shift+tab":
			m.activePanel = (m.activePanel - 1 + panelCount) % panelCount
			return m, nil
		case "r":
			m.loading = true
			return m, loadDashboardData
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case dataLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.statusCounts = msg.statusCounts
		m.attention = msg.attention
		m.alerts = msg.alerts
		m.metricsData = msg.metrics
		m.err = nil
		return m, nil
	}

	return m, nil
}

func (m dashboardModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := titleStyle.Render(fmt.Sprintf(" AQG Queue Dashboard [%s] ", Namespace))
	help := helpStyle.Render("tab: switch panel | r: refresh | q: quit")

	if m.loading {
		return fmt.Sprintf("%s\n\n  Loading data...\n\n%s", title, help)
	}

	if m.err != nil {
		return fmt.Sprintf("%s\n\n  Error: %s\n\n%s", title, m.err, help)
	}

	queuePanel := m.renderQueuePanel()
	attentionPanel := m.renderAttentionPanel()
	alertsPanel := m.renderAlertsPanel()

	availableWidth := m.width - 2

	var body string
	if availableWidth > 120 {
		colWidth := availableWidth / 3
		queuePanel = m.applyPanelStyle(panelQueue, queuePanel, colWidth-4)
		attentionPanel = m.applyPanelStyle(panelAttention, attentionPanel, colWidth-4)
		alertsPanel = m.applyPanelStyle(panelAlerts, alertsPanel, colWidth-4)
		body = lipgloss.JoinHorizontal(lipgloss.Top, queuePanel, attentionPanel, alertsPanel)
	} else {
		panelWidth := availableWidth - 4
		if panelWidth < 20 {
			panelWidth = 20
		}
		queuePanel = m.applyPanelStyle(panelQueue, queuePanel, panelWidth)
		attentionPanel = m.applyPanelStyle(panelAttention, attentionPanel, panelWidth)
		alertsPanel = m.applyPanelStyle(panelAlerts, alertsPanel, panelWidth)
		body = lipgloss.JoinVertical(lipgloss.Left, queuePanel, attentionPanel, alertsPanel)
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, body, help)
}

func (m dashboardModel) applyPanelStyle(panel int, content string, width int) string {
	style := panelStyle
	if m.activePanel == panel {
		style = activePanelStyle
	}
	return style.Width(width).Render(content)
}

func (m dashboardModel) renderQueuePanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Queue"))
	b.WriteString("\n")

	if len(m.statusCounts) == 0 {
		b.WriteString("  No tasks found.")
		return b.String()
	}

	// Display in lifecycle order.
	order := []string{"QUEUED", "RUNNING", "AWAITING_RESPONSE", "COMPLETE", "ERROR", "CANCELLED"}
	for _, status := range order {
		count, ok := m.statusCounts[status]
		if !ok || count == 0 {
			continue
		}
		label := fmt.Sprintf("  %-18s %d", status, count)
		b.WriteString(styleForStatus(status).Render(label))
		b.WriteString("\n")
	}

	total := 0
	for _, c := range m.statusCounts {
		total += c
	}
	b.WriteString(fmt.Sprintf("\n  Total: %d", total))

	if m.metricsData != nil {
		md := m.metricsData
		b.WriteString(fmt.Sprintf("\n\n  7d: %d enqueued, %d completed, %d failed",
			md.enqueued, md.completed, md.failed))
		b.WriteString(fmt.Sprintf("\n      %d recovered, %d timeouts", md.recovered, md.timeouts))
	}

	return b.String()
}

func (m dashboardModel) renderAttentionPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Needs Attention"))
	b.WriteString("\n")

	if len(m.attention) == 0 {
		b.WriteString("  Nothing stuck.")
		return b.String()
	}

	for _, row := range m.attention {
		st := styleForStatus(row.status).Render(fmt.Sprintf("[%s]", row.status))
		b.WriteString(fmt.Sprintf("  %s %s (attempt %d)\n      %s\n",
			st, row.taskID, row.attempt, row.detail))
	}

	return b.String()
}

func (m dashboardModel) renderAlertsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Alerts"))
	b.WriteString("\n")

	if len(m.alerts) == 0 {
		b.WriteString("  No active alerts.")
		return b.String()
	}

	for _, a := range m.alerts {
		sev := styleForSeverity(a.severity).Render(fmt.Sprintf("[%s]", strings.ToUpper(a.severity)))
		b.WriteString(fmt.Sprintf("  %s %s\n", sev, a.message))
	}

	b.WriteString(fmt.Sprintf("\n  Total: %d alert(s)", len(m.alerts)))

	return b.String()
}

func styleForStatus(status string) lipgloss.Style {
	switch status {
	case "QUEUED":
		return statusQueuedStyle
	case "RUNNING":
		return statusRunningStyle
	case "COMPLETE":
		return statusCompleteStyle
	case "ERROR":
		return statusErrorStyle
	case "AWAITING_RESPONSE":
		return statusAwaitingStyle
	case "CANCELLED":
		return statusCancelStyle
	default:
		return lipgloss.NewStyle()
	}
}

func styleForSeverity(severity string) lipgloss.Style {
	switch strings.ToLower(severity) {
	case "high":
		return severityHigh
	case "medium":
		return severityMedium
	case "low":
		return severityLow
	default:
		return lipgloss.NewStyle()
	}
}

func loadDashboardData() tea.Msg {
	result := dataLoadedMsg{
		statusCounts: make(map[string]int),
	}

	now := time.Now().UTC()

	if Queue != nil {
		tasks, err := Queue.GetAllTasks()
		if err != nil {
			result.err = fmt.Errorf("loading tasks: %w", err)
			return result
		}
		for _, t := range tasks {
			result.statusCounts[string(t.Status)]++
			if !core.ShouldShowResumeUI(&t, now, ResumePolicy.StaleThreshold) {
				continue
			}
			row := attentionRow{
				taskID:  t.TaskID,
				status:  string(t.Status),
				attempt: t.Attempt,
			}
			switch t.Status {
			case models.StatusAwaitingResponse:
				row.detail = truncate(t.Clarification, 60)
			case models.StatusRunning:
				last, _ := t.LastProgress()
				row.detail = fmt.Sprintf("no progress for %s", now.Sub(last).Round(time.Second))
			}
			result.attention = append(result.attention, row)
		}
		sort.Slice(result.attention, func(i, j int) bool {
			return result.attention[i].taskID < result.attention[j].taskID
		})
	}

	if MetricsCalc != nil {
		since := now.AddDate(0, 0, -7)
		metrics, err := MetricsCalc.Calculate(since)
		if err != nil {
			result.err = fmt.Errorf("loading metrics: %w", err)
			return result
		}
		result.metrics = &metricsSnapshot{
			enqueued:  metrics.TasksEnqueued,
			completed: metrics.TasksCompleted,
			failed:    metrics.TasksFailed,
			recovered: metrics.TasksRecovered,
			timeouts:  metrics.TimeoutsFired,
		}
	}

	if AlertEngine != nil {
		alerts, err := AlertEngine.Evaluate()
		if err != nil {
			result.err = fmt.Errorf("loading alerts: %w", err)
			return result
		}
		result.alerts = make([]alertSnapshot, 0, len(alerts))

		// High first, then medium, then low.
		sort.Slice(alerts, func(i, j int) bool {
			return severityRank(string(alerts[i].Severity)) < severityRank(string(alerts[j].Severity))
		})

		for _, a := range alerts {
			result.alerts = append(result.alerts, alertSnapshot{
				severity: string(a.Severity),
				message:  a.Message,
				time:     a.TriggeredAt.Format("2006-01-02 15:04 UTC"),
			})
		}
	}

	return result
}

func severityRank(s string) int {
	switch s {
	case "high":
		return 0
	case "medium":
		return 1
	case "low":
		return 2
	default:
		return 3
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive TUI dashboard for the task queue",
	Long: `Launch an interactive terminal dashboard showing queue status
counts, tasks that need operator attention, and active alerts.

Navigate between panels with Tab, refresh with r, quit with q.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Queue == nil {
			return fmt.Errorf("queue store not initialized")
		}
		p := tea.NewProgram(newDashboardModel(), tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}
