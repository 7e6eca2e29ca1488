package ui

import (
	"fmt"
	"time"
)

// Summary is what the CLI reports once an export finishes
type Summary struct {
	Posts        int
	Files        []string
	OutputDir    string
	Iterations   int
	Duplicates   int
	Checkpoints  int
	ImagesSaved  int
	ImagesFailed int
	Elapsed      time.Duration
}

// PrintSummary prints the totals of a finished export
func PrintSummary(s Summary) {
	if quiet {
		return
	}

	fmt.Fprintf(out, "\n%s\n", Green("[EXPORT COMPLETE]"))
	PrintInfo("Bookmarks", fmt.Sprintf("%d", s.Posts))
	PrintInfo("Files", fmt.Sprintf("%d in %s", len(s.Files), s.OutputDir))
	for _, f := range s.Files {
		fmt.Fprintf(out, "  %s\n", Dim(f))
	}
	PrintInfo("Scroll iterations", fmt.Sprintf("%d (%d duplicates skipped)", s.Iterations, s.Duplicates))
	if s.Checkpoints > 0 {
		PrintInfo("Checkpoints", fmt.Sprintf("%d", s.Checkpoints))
	}
	if s.ImagesSaved > 0 || s.ImagesFailed > 0 {
		PrintInfo("Images", fmt.Sprintf("%d saved, %d failed", s.ImagesSaved, s.ImagesFailed))
	}
	PrintInfo("Elapsed", s.Elapsed.Round(time.Second).String())
}
