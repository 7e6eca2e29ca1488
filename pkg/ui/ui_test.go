package ui

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recordingSender struct {
	titles []string
	err    error
}

func (r *recordingSender) Send(title, message string) error {
	r.titles = append(r.titles, title)
	return r.err
}

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetNoColor(true)
	t.Cleanup(func() {
		SetOutput(nil)
		SetQuietMode(false)
		SetNoColor(false)
	})
	return &buf
}

func TestNotifierMirrorsToDesktop(t *testing.T) {
	buf := capture(t)
	sender := &recordingSender{err: errors.New("no notification daemon")}
	n := NewNotifierWithSender(sender, true)

	n.SendNotification("Login required", "log in")
	n.SendSuccess("Export complete", "3 bookmarks")

	assert.Equal(t, []string{"Login required", "Export complete"}, sender.titles)
	assert.Contains(t, buf.String(), "Login required: log in")
	assert.Contains(t, buf.String(), "Export complete: 3 bookmarks")
}

func TestNotifierDisabled(t *testing.T) {
	capture(t)
	sender := &recordingSender{}
	n := NewNotifierWithSender(sender, false)

	n.SendError("Export failed", "boom")
	assert.Empty(t, sender.titles)
}

func TestQuietModeKeepsErrors(t *testing.T) {
	buf := capture(t)
	SetQuietMode(true)
	n := NewNotifierWithSender(nil, true)

	PrintLogo()
	PrintInfo("Output directory", "out")
	n.SendSuccess("Export complete", "done")
	n.SendError("Export failed", "boom")

	assert.NotContains(t, buf.String(), "out")
	assert.NotContains(t, buf.String(), "done")
	assert.Contains(t, buf.String(), "Export failed: boom")
}

func TestPrintSummary(t *testing.T) {
	buf := capture(t)

	PrintSummary(Summary{
		Posts:       3,
		Files:       []string{"bookmarks_001_2024-01-03_to_2024-01-02.md", "bookmarks_002_2024-01-01_to_2024-01-01.md"},
		OutputDir:   "twitter_bookmarks",
		Iterations:  4,
		Duplicates:  1,
		ImagesSaved: 2,
		Elapsed:     1500 * time.Millisecond,
	})

	out := buf.String()
	assert.Contains(t, out, "Bookmarks: 3")
	assert.Contains(t, out, "Files: 2 in twitter_bookmarks")
	assert.Contains(t, out, "bookmarks_002_2024-01-01_to_2024-01-01.md")
	assert.Contains(t, out, "Scroll iterations: 4 (1 duplicates skipped)")
	assert.Contains(t, out, "Images: 2 saved, 0 failed")
	assert.NotContains(t, out, "Checkpoints")
	assert.Contains(t, out, "Elapsed: 2s")
}
