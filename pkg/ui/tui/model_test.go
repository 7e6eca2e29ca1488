package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bmexport/pkg/collector"
	"bmexport/pkg/config"
	"bmexport/pkg/logger"
	"bmexport/pkg/ui"
)

func TestModelFollowsRun(t *testing.T) {
	m := NewModel(4, nil)

	m.Update(PhaseMsg("collect"))
	assert.Equal(t, "collect", m.phase)

	m.Update(ProgressMsg(collector.Progress{Iteration: 3, Unique: 10, New: 2, NoProgress: 1}))
	assert.Equal(t, 10, m.collected.Unique)
	assert.InDelta(t, 0.25, m.Settled(), 1e-9)
	assert.Zero(t, m.Written())

	m.Update(PhaseMsg("export"))
	m.Update(FileWrittenMsg{Name: "bookmarks_001_2024-01-03_to_2024-01-02.md", Posts: 4})
	require.Len(t, m.files, 1)
	assert.Equal(t, 4, m.postsWritten)
	assert.InDelta(t, 0.4, m.Written(), 1e-9)

	summary := &ui.Summary{Posts: 10, ImagesSaved: 3}
	m.Update(DoneMsg{Summary: summary})
	assert.True(t, m.finished)
	assert.Equal(t, "done", m.phase)
	assert.Same(t, summary, m.summary)

	var levels []string
	for _, l := range m.logMessages {
		levels = append(levels, l.Level)
	}
	assert.Equal(t, []string{"INFO", "INFO", "SUCCESS", "SUCCESS"}, levels)
}

func TestModelFailedRun(t *testing.T) {
	m := NewModel(4, nil)
	m.Update(DoneMsg{Err: errors.New("login timed out")})

	assert.Equal(t, "failed", m.phase)
	require.NotEmpty(t, m.logMessages)
	last := m.logMessages[len(m.logMessages)-1]
	assert.Equal(t, "ERROR", last.Level)
	assert.Equal(t, "Export failed: login timed out", last.Message)
}

func TestQuitCancelsUnfinishedRun(t *testing.T) {
	cancelled := 0
	m := NewModel(4, func() { cancelled++ })

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Equal(t, 1, cancelled)

	m.Update(DoneMsg{})
	m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.Equal(t, 1, cancelled, "a finished run is not cancelled again")
}

func TestKeys(t *testing.T) {
	m := NewModel(4, nil)
	m.AddLogMessage("INFO", "one")
	m.AddLogMessage("WARN", "two")

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("?")})
	assert.True(t, m.showHelp)

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	assert.Empty(t, m.logMessages)
}

func TestLogMessagesAreCapped(t *testing.T) {
	m := NewModel(4, nil)
	for i := 0; i < m.maxLogMessages+10; i++ {
		m.AddLogMessage("DEBUG", "line")
	}
	assert.Len(t, m.logMessages, m.maxLogMessages)
}

func TestView(t *testing.T) {
	m := NewModel(2, nil)
	assert.Equal(t, "Initializing...", m.View())

	m.Update(tea.WindowSizeMsg{Width: 140, Height: 40})
	m.Update(ProgressMsg(collector.Progress{Iteration: 1, Unique: 3}))
	m.Update(FileWrittenMsg{Name: "bookmarks_001_2024-01-03_to_2024-01-01.md", Posts: 3})

	view := m.View()
	assert.Contains(t, view, "EXPORT")
	assert.Contains(t, view, "bookmarks_001_2024-01-03_to_2024-01-01.md (3)")
	assert.Contains(t, view, "Press q to stop the export")

	m.Update(DoneMsg{Summary: &ui.Summary{OutputDir: "out"}})
	assert.Contains(t, m.View(), "Press q to exit")
}

func TestParseLogLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want LogMsg
	}{
		{
			name: "plain event",
			line: `{"level":"info","message":"Saved posts","file":"a.md"}`,
			want: LogMsg{Level: "INFO", Message: "Saved posts"},
		},
		{
			name: "event with error",
			line: `{"level":"warn","error":"status 404","message":"Image download failed"}`,
			want: LogMsg{Level: "WARN", Message: "Image download failed: status 404"},
		},
		{
			name: "not json",
			line: "raw output\n",
			want: LogMsg{Level: "INFO", Message: "raw output"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLine([]byte(tt.line)))
		})
	}
}

func TestLogWriterFeedsPanel(t *testing.T) {
	var got []tea.Msg
	w := &logWriter{send: func(msg tea.Msg) { got = append(got, msg) }}

	log, err := logger.NewWithWriter(&config.LoggingConfig{Level: "info"}, w)
	require.NoError(t, err)
	log.WithError(errors.New("disk full")).Error("Checkpoint failed")
	log.Debug("filtered out")

	require.Len(t, got, 1)
	assert.Equal(t, LogMsg{Level: "ERROR", Message: "Checkpoint failed: disk full"}, got[0])
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "00:42", formatDuration(42e9))
	assert.Equal(t, "01:01:01", formatDuration(3661e9))
}
