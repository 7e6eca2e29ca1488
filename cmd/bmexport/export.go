package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"bmexport/internal/runner"
	"bmexport/pkg/config"
	"bmexport/pkg/logger"
	"bmexport/pkg/page/chrome"
	"bmexport/pkg/ui"
)

var (
	// Export command flags
	outputDir      string
	postsPerFile   int
	headless       bool
	profileDir     string
	downloadImages bool
	noImages       bool
	scrollRetries  int
	scrollDelay    int
	useTUI         bool
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export bookmarks from a live browser session",
	Long: `Open a browser, wait for you to log in, then scroll through the bookmarks
timeline and write every post to markdown.

The login is manual: a browser window opens on the login page and the export
starts as soon as the logged-in navigation appears. Use --profile to keep the
session between runs.`,
	Example: `  # Export with default settings
  bmexport export

  # Write 50 posts per file into ./out and store images next to them
  bmexport export --output ./out --posts-per-file 50 --download-images

  # Reuse a browser profile so the login survives restarts
  bmexport export --profile ~/.bmexport/profile

  # Follow the run in a full-screen progress view
  bmexport export --tui`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory for markdown files")
	exportCmd.Flags().IntVar(&postsPerFile, "posts-per-file", 0, "number of posts per markdown file")
	exportCmd.Flags().BoolVar(&headless, "headless", false, "run the browser without a window")
	exportCmd.Flags().StringVar(&profileDir, "profile", "", "browser profile directory to keep the login")
	exportCmd.Flags().BoolVar(&downloadImages, "download-images", false, "download images next to the markdown files")
	exportCmd.Flags().BoolVar(&noImages, "no-images", false, "leave images out of the export")
	exportCmd.Flags().IntVar(&scrollRetries, "scroll-retries", 0, "scrolls without progress before stopping")
	exportCmd.Flags().IntVar(&scrollDelay, "scroll-delay", -1, "milliseconds to wait after each scroll")
	exportCmd.Flags().BoolVar(&useTUI, "tui", false, "show a full-screen progress view")
}

// collectFlags builds the flags map config.Load understands from the flags the
// user actually set
func collectFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	set := func(name string, value interface{}) {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			flags[name] = value
		}
	}

	set("output", outputDir)
	set("posts-per-file", postsPerFile)
	set("headless", headless)
	set("profile", profileDir)
	set("download-images", downloadImages)
	set("no-images", noImages)
	set("scroll-retries", scrollRetries)
	set("scroll-delay", scrollDelay)
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	return flags
}

// setup loads the configuration and initializes the global logger
func setup(cmd *cobra.Command) (*config.Config, logger.Logger, error) {
	cfg, notices := config.Load(configFile, collectFlags(cmd))

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()
	log.WithField("version", version).Info("Bookmark exporter starting")

	logNotices(log, notices)
	return cfg, log, nil
}

// logNotices reports configuration remarks. Rejected values warn, adjustments
// are informational.
func logNotices(log logger.Logger, notices []config.Notice) {
	for _, n := range notices {
		if n.Err != nil {
			log.WithError(n.Err).Warn(n.Message)
		} else {
			log.Info(n.Message)
		}
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	notifier := ui.NewNotifier(notifications)

	ctx, cancel := signalContext()
	defer cancel()

	ui.PrintInfo("Output directory", cfg.OutputDir)
	ui.PrintHighlight("[LAUNCHING BROWSER]")

	browser, err := chrome.Launch(ctx, chrome.Options{
		Headless:   cfg.Headless,
		ProfileDir: cfg.BrowserProfile,
	})
	if err != nil {
		notifier.SendError("Browser failed to start", err.Error())
		return err
	}

	notifier.SendNotification("Login required",
		fmt.Sprintf("Log in to X in the browser window, waiting up to %s", cfg.LoginTimeout))

	var result *runner.Result
	if useTUI {
		result, err = runInTUI(ctx, cancel, cfg, func(ctx context.Context, log logger.Logger, obs runner.Observer) (*runner.Result, error) {
			return runner.Run(ctx, browser, cfg, log, runner.WithSession(), runner.WithObserver(obs))
		})
	} else {
		result, err = runner.Run(ctx, browser, cfg, log, runner.WithSession())
	}
	if err != nil {
		notifier.SendError("Export failed", err.Error())
		return err
	}

	reportResult(notifier, result)
	return nil
}

func summaryOf(result *runner.Result) ui.Summary {
	return ui.Summary{
		Posts:        result.Posts,
		Files:        result.Files,
		OutputDir:    result.OutputDir,
		Iterations:   result.Collected.Iterations,
		Duplicates:   result.Collected.DuplicatesSkipped,
		Checkpoints:  result.Collected.Checkpoints,
		ImagesSaved:  result.Images.ImagesSaved,
		ImagesFailed: result.Images.ImagesFailed,
		Elapsed:      result.Elapsed,
	}
}

func reportResult(notifier *ui.Notifier, result *runner.Result) {
	ui.PrintSummary(summaryOf(result))
	notifier.SendSuccess("Export complete",
		fmt.Sprintf("%d bookmarks written to %d files", result.Posts, len(result.Files)))
}
