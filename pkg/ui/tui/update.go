package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"bmexport/pkg/collector"
	"bmexport/pkg/ui"
)

// PhaseMsg is sent when the run enters a new stage
type PhaseMsg string

// ProgressMsg carries the collector state after one iteration
type ProgressMsg collector.Progress

// FileWrittenMsg is sent after a markdown file is written
type FileWrittenMsg struct {
	Name  string
	Posts int
}

// LogMsg is sent to add a log line
type LogMsg struct {
	Level   string
	Message string
}

// DoneMsg is sent once the run has returned
type DoneMsg struct {
	Summary *ui.Summary
	Err     error
}

// TickMsg is sent periodically to refresh elapsed time
type TickMsg time.Time

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		return m, tickCmd()

	case PhaseMsg:
		m.SetPhase(string(msg))
		m.AddLogMessage("INFO", "Phase: "+string(msg))
		return m, nil

	case ProgressMsg:
		m.UpdateProgress(collector.Progress(msg))
		return m, nil

	case FileWrittenMsg:
		m.AddFile(msg.Name, msg.Posts)
		m.AddLogMessage("SUCCESS", "Wrote "+msg.Name)
		return m, nil

	case LogMsg:
		m.AddLogMessage(msg.Level, msg.Message)
		return m, nil

	case DoneMsg:
		m.Finish(msg.Summary, msg.Err)
		if msg.Err != nil {
			m.AddLogMessage("ERROR", "Export failed: "+msg.Err.Error())
		} else {
			m.AddLogMessage("SUCCESS", "Export complete")
		}
		return m, nil
	}

	return m, nil
}

// handleKeyPress handles keyboard input
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		if !m.finished && m.cancel != nil {
			m.cancel()
		}
		return m, tea.Quit

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "ctrl+l":
		m.ClearLogs()
		return m, nil
	}

	return m, nil
}

// tickCmd returns a command that sends a tick message
func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
