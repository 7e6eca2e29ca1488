package tui

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"bmexport/pkg/collector"
	"bmexport/pkg/ui"
)

// FileEntry is one written markdown file
type FileEntry struct {
	Name  string
	Posts int
}

// Model is the progress view of one export run
type Model struct {
	// UI components
	spinner spinner.Model
	bar     progress.Model

	// Run state
	phase        string
	collected    collector.Progress
	files        []FileEntry
	postsWritten int
	summary      *ui.Summary
	err          error
	finished     bool
	startTime    time.Time

	// Settings the bars are measured against
	scrollRetries int

	// cancel stops the run when the user quits early
	cancel context.CancelFunc

	// UI state
	width          int
	height         int
	showHelp       bool
	logMessages    []LogMessage
	maxLogMessages int

	mu sync.RWMutex
}

// LogMessage is a log line shown in the logs panel
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// NewModel creates the view. scrollRetries is the no-progress limit that ends
// collection; cancel may be nil.
func NewModel(scrollRetries int, cancel context.CancelFunc) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(neonCyan)

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 40

	return &Model{
		spinner:        s,
		bar:            bar,
		phase:          "starting",
		scrollRetries:  scrollRetries,
		cancel:         cancel,
		startTime:      time.Now(),
		maxLogMessages: 50,
	}
}

// Init starts the spinner and the elapsed clock
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

// SetPhase records the stage the run has reached
func (m *Model) SetPhase(phase string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.phase = phase
}

// UpdateProgress records the collector state after an iteration
func (m *Model) UpdateProgress(p collector.Progress) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collected = p
}

// AddFile records a written markdown file
func (m *Model) AddFile(name string, posts int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files = append(m.files, FileEntry{Name: name, Posts: posts})
	m.postsWritten += posts
}

// Finish records the outcome of the run
func (m *Model) Finish(summary *ui.Summary, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished = true
	m.summary = summary
	m.err = err
	if err == nil {
		m.phase = "done"
	} else {
		m.phase = "failed"
	}
}

// AddLogMessage adds a log line, keeping only the most recent ones
func (m *Model) AddLogMessage(level, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logMessages = append(m.logMessages, LogMessage{
		Time:    time.Now(),
		Level:   level,
		Message: message,
		Color:   levelColor(level),
	})
	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}

// ClearLogs empties the logs panel
func (m *Model) ClearLogs() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logMessages = nil
}

// Settled is how close collection is to giving up on new posts, from 0 to 1
func (m *Model) Settled() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return ratio(m.collected.NoProgress, m.scrollRetries)
}

// Written is the share of collected posts already written to files
func (m *Model) Written() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return ratio(m.postsWritten, m.collected.Unique)
}

func ratio(n, total int) float64 {
	if total <= 0 {
		return 0
	}
	r := float64(n) / float64(total)
	if r > 1 {
		return 1
	}
	return r
}
