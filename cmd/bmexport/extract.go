package main

import (
	"context"

	"github.com/spf13/cobra"

	"bmexport/internal/runner"
	"bmexport/pkg/logger"
	"bmexport/pkg/page/snapshot"
	"bmexport/pkg/ui"
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract <page.html>...",
	Short: "Export bookmarks from saved timeline pages",
	Long: `Run the export over HTML files saved from the bookmarks timeline instead of a
live browser. Each file is treated as the timeline after one more scroll, in
the order given, so overlapping saves are de-duplicated like a live run.`,
	Example: `  # Export two saved renders of the timeline
  bmexport extract bookmarks-1.html bookmarks-2.html --output ./out`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory for markdown files")
	extractCmd.Flags().IntVar(&postsPerFile, "posts-per-file", 0, "number of posts per markdown file")
	extractCmd.Flags().BoolVar(&downloadImages, "download-images", false, "download images next to the markdown files")
	extractCmd.Flags().BoolVar(&noImages, "no-images", false, "leave images out of the export")
	extractCmd.Flags().BoolVar(&useTUI, "tui", false, "show a full-screen progress view")
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	notifier := ui.NewNotifier(notifications)

	ctx, cancel := signalContext()
	defer cancel()

	p, err := snapshot.Open(args)
	if err != nil {
		ui.PrintError("Failed to read saved pages", err.Error())
		return err
	}

	// saved pages need no settle time after a scroll
	cfg.ScrollDelayMs = 0

	var result *runner.Result
	if useTUI {
		result, err = runInTUI(ctx, cancel, cfg, func(ctx context.Context, log logger.Logger, obs runner.Observer) (*runner.Result, error) {
			return runner.Run(ctx, p, cfg, log, runner.WithObserver(obs))
		})
	} else {
		result, err = runner.Run(ctx, p, cfg, log)
	}
	if err != nil {
		notifier.SendError("Export failed", err.Error())
		return err
	}

	reportResult(notifier, result)
	return nil
}
