package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"bmexport/pkg/config"
	"bmexport/pkg/ui"
)

const defaultConfigPath = ".bmexport.yaml"

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage bmexport configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (BMEXPORT_*), also read from a .env file
  - Configuration file (config.json or .bmexport.yaml)
  - Default values (lowest priority)`,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create a configuration file holding every option at its default value.

The file is created as '.bmexport.yaml' in the current directory unless a
different path is given with --config. An existing file is never overwritten.`,
	RunE: runConfigInit,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShow,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Load the configuration from every source and report values that were
rejected and reset to their defaults.`,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = defaultConfigPath
	}

	if _, err := os.Stat(configPath); err == nil {
		ui.PrintError("Configuration file already exists", configPath)
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", configPath)
		return fmt.Errorf("%s already exists", configPath)
	}

	if err := config.DefaultConfig().Save(configPath); err != nil {
		ui.PrintError("Failed to create configuration file", err.Error())
		return err
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Edit the configuration file")
	fmt.Println("2. Run 'bmexport config validate' to check it")
	fmt.Println("3. Start the export with 'bmexport export'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, _ := config.Load(configFile, nil)

	data, err := yaml.Marshal(cfg)
	if err != nil {
		ui.PrintError("Failed to format configuration", err.Error())
		return err
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, notices := config.Load(configFile, nil)

	var problems []string
	for _, n := range notices {
		switch {
		case n.Err != nil:
			problems = append(problems, fmt.Sprintf("%s: %v", n.Message, n.Err))
		case strings.HasPrefix(n.Message, "invalid "):
			problems = append(problems, n.Message)
		default:
			ui.PrintInfo("Config", n.Message)
		}
	}

	if len(problems) > 0 {
		ui.PrintWarning("Configuration has problems:")
		for _, p := range problems {
			fmt.Printf("  - %s\n", p)
		}
		return fmt.Errorf("%d configuration problems", len(problems))
	}

	ui.PrintSuccess("Configuration is valid")

	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  Output directory: %s\n", cfg.OutputDir)
	fmt.Printf("  Posts per file: %d\n", cfg.PostsPerFile)
	fmt.Printf("  Images: included=%t, downloaded=%t\n", cfg.IncludeImages, cfg.DownloadImagesLocally)
	fmt.Printf("  Scroll: %d retries, %s delay\n", cfg.ScrollRetries, cfg.ScrollDelay())
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
	return nil
}
