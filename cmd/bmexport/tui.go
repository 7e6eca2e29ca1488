package main

import (
	"context"
	"io"

	"bmexport/internal/runner"
	"bmexport/pkg/config"
	"bmexport/pkg/logger"
	"bmexport/pkg/ui"
	"bmexport/pkg/ui/tui"
)

// runFunc performs one export with the given logger and observer
type runFunc func(ctx context.Context, log logger.Logger, obs runner.Observer) (*runner.Result, error)

// runInTUI drives run behind the full-screen progress view. Log lines go to
// the logs panel and the terminal printer is muted until the view closes.
func runInTUI(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, run runFunc) (*runner.Result, error) {
	view := tui.New(cfg.ScrollRetries, cancel)

	log, err := logger.NewWithOutput(&cfg.Logging, view.LogWriter())
	if err != nil {
		return nil, err
	}

	ui.SetOutput(io.Discard)
	defer ui.SetOutput(nil)

	type outcome struct {
		result *runner.Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := run(ctx, log, view)
		if err != nil {
			view.Finish(nil, err)
		} else {
			summary := summaryOf(result)
			view.Finish(&summary, nil)
		}
		done <- outcome{result, err}
	}()

	if err := view.Start(); err != nil {
		cancel()
		<-done
		return nil, err
	}

	// the view is gone, stop a run the user walked away from
	cancel()
	out := <-done
	return out.result, out.err
}
