package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// View renders the entire TUI
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	width := (m.width - 4) / 2
	left := lipgloss.JoinVertical(lipgloss.Left,
		m.renderRunPanel(width),
		m.renderFilesPanel(width),
	)
	right := m.renderLogsPanel(width)

	sections := []string{
		headerStyle.Render("BOOKMARKS TO MARKDOWN EXPORTER"),
		lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right),
	}
	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, helpStyle.Render(m.footer()))
	}

	return baseStyle.Width(m.width).Height(m.height).Render(
		lipgloss.JoinVertical(lipgloss.Left, sections...),
	)
}

func (m *Model) footer() string {
	if m.finished {
		return "Press q to exit, ? for help"
	}
	return "Press q to stop the export, ? for help"
}

// renderRunPanel shows the phase and the collector counters
func (m *Model) renderRunPanel(width int) string {
	title := titleStyle.Render(" EXPORT ")

	status := m.spinner.View() + " " + statsValueStyle.Render(m.phase)
	switch {
	case m.finished && m.err != nil:
		status = errorStyle.Render("✗ " + m.phase)
	case m.finished:
		status = successStyle.Render("✓ " + m.phase)
	}

	p := m.collected
	lines := []string{
		status,
		stat("Elapsed:", formatDuration(time.Since(m.startTime))),
		stat("Iterations:", fmt.Sprintf("%d", p.Iteration)),
		stat("Bookmarks:", fmt.Sprintf("%d (+%d last scroll)", p.Unique, p.New)),
		stat("Checkpoints:", fmt.Sprintf("%d", p.Checkpoints)),
		"",
		statsLabelStyle.Render("End of timeline"),
		m.bar.ViewAs(ratio(p.NoProgress, m.scrollRetries)),
		"",
		statsLabelStyle.Render("Written"),
		m.bar.ViewAs(ratio(m.postsWritten, p.Unique)),
	}
	if p.NoProgress > 0 && !m.finished {
		lines = append(lines, warningStyle.Render(
			fmt.Sprintf("No new posts for %d of %d scrolls", p.NoProgress, m.scrollRetries)))
	}

	if s := m.summary; s != nil {
		lines = append(lines, "",
			stat("Duplicates:", fmt.Sprintf("%d", s.Duplicates)),
			stat("Images:", fmt.Sprintf("%d saved, %d failed", s.ImagesSaved, s.ImagesFailed)),
			stat("Output:", s.OutputDir),
		)
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(lines, "\n")),
	)
}

// renderFilesPanel lists the most recently written files
func (m *Model) renderFilesPanel(width int) string {
	title := titleStyle.Render(" FILES ")

	if len(m.files) == 0 {
		content := lipgloss.NewStyle().Foreground(dimWhite).Render("Nothing written yet")
		return panelStyle.Width(width).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, content),
		)
	}

	items := []string{successStyle.Render(fmt.Sprintf("✓ %d files, %d posts", len(m.files), m.postsWritten))}
	start := len(m.files) - 5
	if start < 0 {
		start = 0
	}
	for _, f := range m.files[start:] {
		items = append(items, fileStyle.Render(fmt.Sprintf("%s (%d)", f.Name, f.Posts)))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(items, "\n")),
	)
}

// renderLogsPanel renders the logs panel
func (m *Model) renderLogsPanel(width int) string {
	title := titleStyle.Render(" LOGS ")

	start := len(m.logMessages) - 15
	if start < 0 {
		start = 0
	}

	var logs []string
	for _, log := range m.logMessages[start:] {
		timestamp := logTimestampStyle.Render(log.Time.Format("15:04:05"))
		level := lipgloss.NewStyle().Foreground(log.Color).Bold(true).Render(fmt.Sprintf("[%-7s]", log.Level))
		logs = append(logs, fmt.Sprintf("%s %s %s", timestamp, level, logMessageStyle.Render(truncate(log.Message, width-25))))
	}

	content := strings.Join(logs, "\n")
	if content == "" {
		content = lipgloss.NewStyle().Foreground(dimWhite).Render("No logs yet...")
	}

	logsHeight := m.height - 8
	if logsHeight < 5 {
		logsHeight = 5
	}

	return panelStyle.Width(width).Height(logsHeight).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, content),
	)
}

// renderHelp renders the help panel
func (m *Model) renderHelp() string {
	help := `
  Keys:
    q/Q      - Stop the export and quit
    ctrl+l   - Clear the logs panel
    ?        - Toggle this help

  Bars:
    End of timeline - scrolls without new posts before collection stops
    Written         - collected posts already saved to markdown
`
	return panelStyle.Width(m.width).Render(help)
}

func stat(label, value string) string {
	return fmt.Sprintf("%s %s", statsLabelStyle.Render(label), statsValueStyle.Render(value))
}

// truncate shortens s to max runes, marking the cut
func truncate(s string, max int) string {
	r := []rune(s)
	if max < 4 || len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

// formatDuration formats a duration as mm:ss or hh:mm:ss
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "00:00"
	}

	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
