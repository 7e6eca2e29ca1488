// Package tui is a full-screen progress view for an export run, driven by
// bubbletea.
package tui

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"bmexport/pkg/collector"
	"bmexport/pkg/ui"
)

// TUI represents the terminal user interface
type TUI struct {
	program *tea.Program
	model   *Model
}

// New creates a TUI for a run that gives up after scrollRetries scrolls
// without new posts. Quitting before the run finishes calls cancel.
func New(scrollRetries int, cancel context.CancelFunc, opts ...tea.ProgramOption) *TUI {
	model := NewModel(scrollRetries, cancel)
	opts = append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)

	return &TUI{
		program: tea.NewProgram(model, opts...),
		model:   model,
	}
}

// Start runs the TUI until the user quits
func (t *TUI) Start() error {
	_, err := t.program.Run()
	return err
}

// Stop stops the TUI gracefully
func (t *TUI) Stop() {
	t.program.Quit()
}

// Send sends a message to the TUI. It is a no-op once the TUI has exited.
func (t *TUI) Send(msg tea.Msg) {
	if t.program != nil {
		t.program.Send(msg)
	}
}

// Phase reports the stage the run has reached
func (t *TUI) Phase(name string) {
	t.Send(PhaseMsg(name))
}

// Progress reports the collector state after an iteration
func (t *TUI) Progress(p collector.Progress) {
	t.Send(ProgressMsg(p))
}

// FileWritten reports a written markdown file
func (t *TUI) FileWritten(name string, posts int) {
	t.Send(FileWrittenMsg{Name: name, Posts: posts})
}

// Finish reports the outcome of the run. summary is nil when the run failed.
func (t *TUI) Finish(summary *ui.Summary, err error) {
	t.Send(DoneMsg{Summary: summary, Err: err})
}

// LogWriter returns a writer that turns JSON log lines into entries of the
// logs panel
func (t *TUI) LogWriter() io.Writer {
	return &logWriter{send: t.Send}
}

// logWriter receives one JSON encoded event per Write
type logWriter struct {
	send func(tea.Msg)
}

func (w *logWriter) Write(p []byte) (int, error) {
	w.send(parseLogLine(p))
	return len(p), nil
}

// parseLogLine converts a log event into a LogMsg. Lines that are not JSON
// are shown verbatim.
func parseLogLine(p []byte) LogMsg {
	var event struct {
		Level   string `json:"level"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	line := strings.TrimSpace(string(p))
	if err := json.Unmarshal(p, &event); err != nil {
		return LogMsg{Level: "INFO", Message: line}
	}

	msg := LogMsg{Level: strings.ToUpper(event.Level), Message: event.Message}
	if msg.Level == "" {
		msg.Level = "INFO"
	}
	if event.Error != "" {
		msg.Message += ": " + event.Error
	}
	return msg
}
