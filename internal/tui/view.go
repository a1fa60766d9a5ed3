package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/fnpulse/fnpulse/internal/metrics"
	"github.com/fnpulse/fnpulse/internal/store"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("81"))

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57"))

	statusHealthy  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	statusDegraded = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	statusCritical = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)

	activePaneStyle = paneStyle.
			BorderForeground(lipgloss.Color("81"))

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			Padding(0, 1).
			Width(26)

	selectedCardStyle = cardStyle.
				BorderForeground(lipgloss.Color("81"))

	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// View renders the TUI.
func (a App) View() string {
	if a.width == 0 || a.height == 0 {
		return "loading..."
	}

	statusBarH := 1
	logPaneH := max(a.height/3, 6)
	cardsH := a.height - logPaneH - statusBarH - 4

	cards := a.renderCards(a.width - 4)
	cardsPane := a.paneBox(PaneCards, " Cards ", cards, a.width-4, cardsH)

	logs := a.renderLogs(a.width-4, logPaneH)
	logPane := a.paneBox(PaneLogs, a.logTitle(), logs, a.width-4, logPaneH)

	statusBar := a.renderStatusBar()

	return lipgloss.JoinVertical(lipgloss.Left, cardsPane, logPane, statusBar)
}

func (a App) paneBox(pane Pane, title, content string, w, h int) string {
	style := paneStyle
	if a.activePane == pane {
		style = activePaneStyle
	}
	return style.Width(w).Height(h).Render(
		titleStyle.Render(title) + "\n" + content,
	)
}

func (a App) renderCards(w int) string {
	results := a.sortedResults()
	if len(results) == 0 {
		return dimStyle.Render("waiting for first refresh...")
	}

	perRow := max(w/28, 1)
	var rows []string
	for i := 0; i < len(results); i += perRow {
		end := min(i+perRow, len(results))
		boxes := make([]string, 0, end-i)
		for j := i; j < end; j++ {
			boxes = append(boxes, a.renderCard(results[j], j == a.selectedIdx))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (a App) renderCard(r store.CardResult, selected bool) string {
	style := cardStyle
	if selected && a.activePane == PaneCards {
		style = selectedCardStyle
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(truncate(r.Name, 22)) + "\n")
	fmt.Fprintf(&b, "%s %s\n", colorStatus(r.Status), formatValue(r.Value, r.Unit))

	if len(r.Detail) > 0 {
		keys := make([]string, 0, len(r.Detail))
		for k := range r.Detail {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s %.4g", k, r.Detail[k]))
		}
		b.WriteString(dimStyle.Render(truncate(strings.Join(parts, "  "), 22)) + "\n")
	}

	if r.Error != nil {
		b.WriteString(statusCritical.Render(truncate(*r.Error, 22)) + "\n")
	}

	b.WriteString(dimStyle.Render(relativeTime(r.CheckedAt)))
	return style.Render(b.String())
}

func (a App) renderLogs(w, h int) string {
	if err := a.logs.Err(); err != nil {
		return statusCritical.Render(truncate("stream error: "+err.Error(), w))
	}
	if len(a.logLines) == 0 {
		return dimStyle.Render("no executions yet")
	}

	visible := min(len(a.logLines), h-1)
	var b strings.Builder
	for _, entry := range a.logLines[:visible] {
		ts := time.UnixMilli(entry.StartedAtMs).Format("15:04:05")
		outcome := statusHealthy.Render("ok")
		if entry.Outcome != "success" {
			outcome = statusCritical.Render("fail")
		}
		line := fmt.Sprintf("%s %s %-9s %-24s %6.0fms",
			ts, outcome, entry.Kind, truncate(entry.UDF, 24), entry.DurationMs)
		b.WriteString(truncate(line, w) + "\n")
	}
	return b.String()
}

func (a App) logTitle() string {
	title := " Executions "
	if s := metrics.Summarize(a.logLines); s.Total > 0 {
		title = fmt.Sprintf(" Executions (%d, %d failed) ", s.Total, s.Failures)
	}
	if a.udfFilter != "" {
		title += dimStyle.Render("["+a.udfFilter+"]") + " "
	}
	if a.logPaused {
		title += dimStyle.Render("[PAUSED]") + " "
	}
	return title
}

func (a App) renderStatusBar() string {
	left := a.statusMsg
	if left == "" {
		stats := a.logs.Stats()
		left = fmt.Sprintf("polls:%d idle:%d", stats.Polls, stats.ConsecutiveIdle)
	}

	right := "j/k:nav tab:pane /:filter u:unfilter space:pause q:quit"
	if a.mode == ModeFilter {
		right = "enter:apply esc:cancel  " + a.filter.View()
	}

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return helpStyle.Render(left + strings.Repeat(" ", gap) + right)
}

func colorStatus(status string) string {
	switch status {
	case "healthy":
		return statusHealthy.Render("●")
	case "degraded":
		return statusDegraded.Render("●")
	case "critical":
		return statusCritical.Render("●")
	default:
		return dimStyle.Render("○")
	}
}

func formatValue(v float64, unit string) string {
	switch unit {
	case "percent":
		return fmt.Sprintf("%.1f%%", v)
	case "ms":
		return fmt.Sprintf("%.0fms", v)
	case "req/s":
		return fmt.Sprintf("%.2f req/s", v)
	default:
		return fmt.Sprintf("%.4g %s", v, unit)
	}
}

func relativeTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := time.Since(t)
	switch {
	case d < time.Second:
		return "just now"
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	default:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
