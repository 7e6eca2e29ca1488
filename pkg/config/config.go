package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "BMEXPORT_"

// Config holds all configuration options for the bookmark exporter
type Config struct {
	// Output settings
	OutputDir             string `yaml:"output_dir" json:"output_dir"`
	PostsPerFile          int    `yaml:"posts_per_file" json:"posts_per_file"`
	IncludeImages         bool   `yaml:"include_images" json:"include_images"`
	DownloadImagesLocally bool   `yaml:"download_images_locally" json:"download_images_locally"`

	// Legacy name for posts_per_file, read from older config.json files
	TweetsPerFile int `yaml:"tweets_per_file,omitempty" json:"tweets_per_file,omitempty"`

	// Browser settings
	Headless       bool          `yaml:"headless" json:"headless"`
	BrowserProfile string        `yaml:"browser_profile" json:"browser_profile"`
	BaseURL        string        `yaml:"base_url" json:"base_url"`
	LoginTimeout   time.Duration `yaml:"login_timeout" json:"login_timeout"`

	// Collection settings
	ScrollRetries   int `yaml:"scroll_retries" json:"scroll_retries"`
	ScrollDelayMs   int `yaml:"scroll_delay_ms" json:"scroll_delay_ms"`
	CheckpointEvery int `yaml:"checkpoint_every" json:"checkpoint_every"`
	MaxQuoteDepth   int `yaml:"max_quote_depth" json:"max_quote_depth"`

	// Image download pacing, 0 disables the limit
	ImageFetchesPerMinute int `yaml:"image_fetches_per_minute" json:"image_fetches_per_minute"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// Notice is a non-fatal remark produced while loading configuration.
// The caller decides how to surface it.
type Notice struct {
	Message string
	Err     error
}

// DefaultConfig returns a Config instance with the exporter defaults
func DefaultConfig() *Config {
	return &Config{
		OutputDir:             "twitter_bookmarks",
		PostsPerFile:          100,
		IncludeImages:         true,
		DownloadImagesLocally: false,
		Headless:              false,
		BrowserProfile:        "",
		BaseURL:               "https://x.com",
		LoginTimeout:          5 * time.Minute,
		ScrollRetries:         3,
		ScrollDelayMs:         2000,
		CheckpointEvery:       500,
		MaxQuoteDepth:         1,
		ImageFetchesPerMinute: 0,
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// ScrollDelay returns the settle delay as a duration
func (c *Config) ScrollDelay() time.Duration {
	return time.Duration(c.ScrollDelayMs) * time.Millisecond
}

// LoadFromFile loads configuration from a YAML or JSON file
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// JSON documents are valid YAML, so config.json files decode here too
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if c.TweetsPerFile > 0 {
		c.PostsPerFile = c.TweetsPerFile
		c.TweetsPerFile = 0
	}

	return nil
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() []Notice {
	var notices []Notice

	if v := os.Getenv(envPrefix + "OUTPUT_DIR"); v != "" {
		c.OutputDir = v
	}
	if v := os.Getenv(envPrefix + "BROWSER_PROFILE"); v != "" {
		c.BrowserProfile = v
	}
	if v := os.Getenv(envPrefix + "BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(envPrefix + "LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}

	ints := map[string]*int{
		"POSTS_PER_FILE":           &c.PostsPerFile,
		"SCROLL_RETRIES":           &c.ScrollRetries,
		"SCROLL_DELAY_MS":          &c.ScrollDelayMs,
		"CHECKPOINT_EVERY":         &c.CheckpointEvery,
		"MAX_QUOTE_DEPTH":          &c.MaxQuoteDepth,
		"IMAGE_FETCHES_PER_MINUTE": &c.ImageFetchesPerMinute,
	}
	for name, dst := range ints {
		raw := os.Getenv(envPrefix + name)
		if raw == "" {
			continue
		}
		val, err := strconv.Atoi(raw)
		if err != nil {
			notices = append(notices, Notice{Message: "ignoring invalid " + envPrefix + name, Err: err})
			continue
		}
		*dst = val
	}

	bools := map[string]*bool{
		"INCLUDE_IMAGES":          &c.IncludeImages,
		"DOWNLOAD_IMAGES_LOCALLY": &c.DownloadImagesLocally,
		"HEADLESS":                &c.Headless,
	}
	for name, dst := range bools {
		raw := os.Getenv(envPrefix + name)
		if raw == "" {
			continue
		}
		val, err := strconv.ParseBool(raw)
		if err != nil {
			notices = append(notices, Notice{Message: "ignoring invalid " + envPrefix + name, Err: err})
			continue
		}
		*dst = val
	}

	if raw := os.Getenv(envPrefix + "LOGIN_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			notices = append(notices, Notice{Message: "ignoring invalid " + envPrefix + "LOGIN_TIMEOUT", Err: err})
		} else {
			c.LoginTimeout = d
		}
	}

	return notices
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["output"].(string); ok && v != "" {
		c.OutputDir = v
	}
	if v, ok := flags["posts-per-file"].(int); ok && v > 0 {
		c.PostsPerFile = v
	}
	if v, ok := flags["headless"].(bool); ok {
		c.Headless = v
	}
	if v, ok := flags["profile"].(string); ok && v != "" {
		c.BrowserProfile = v
	}
	if v, ok := flags["download-images"].(bool); ok {
		c.DownloadImagesLocally = v
	}
	if v, ok := flags["no-images"].(bool); ok && v {
		c.IncludeImages = false
	}
	if v, ok := flags["scroll-retries"].(int); ok && v > 0 {
		c.ScrollRetries = v
	}
	if v, ok := flags["scroll-delay"].(int); ok && v >= 0 {
		c.ScrollDelayMs = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Sanitize resets out-of-range values to their defaults and reports each reset.
func (c *Config) Sanitize() []Notice {
	def := DefaultConfig()
	var notices []Notice

	reset := func(field string) {
		notices = append(notices, Notice{Message: fmt.Sprintf("invalid %s, using default", field)})
	}

	if strings.TrimSpace(c.OutputDir) == "" {
		c.OutputDir = def.OutputDir
		reset("output_dir")
	}
	if c.PostsPerFile <= 0 {
		c.PostsPerFile = def.PostsPerFile
		reset("posts_per_file")
	}
	if c.ScrollRetries <= 0 {
		c.ScrollRetries = def.ScrollRetries
		reset("scroll_retries")
	}
	if c.ScrollDelayMs < 0 {
		c.ScrollDelayMs = def.ScrollDelayMs
		reset("scroll_delay_ms")
	}
	if c.CheckpointEvery < 0 {
		c.CheckpointEvery = def.CheckpointEvery
		reset("checkpoint_every")
	}
	if c.MaxQuoteDepth < 0 {
		c.MaxQuoteDepth = def.MaxQuoteDepth
		reset("max_quote_depth")
	}
	if c.ImageFetchesPerMinute < 0 {
		c.ImageFetchesPerMinute = def.ImageFetchesPerMinute
		reset("image_fetches_per_minute")
	}
	if c.LoginTimeout <= 0 {
		c.LoginTimeout = def.LoginTimeout
		reset("login_timeout")
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		c.BaseURL = def.BaseURL
		reset("base_url")
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		c.Logging.Level = def.Logging.Level
		reset("logging.level")
	}

	return notices
}

const fileHeader = `# Bookmark exporter configuration
#
# Every option can also be set with an environment variable prefixed with
# BMEXPORT_, for example BMEXPORT_OUTPUT_DIR or BMEXPORT_HEADLESS.
# login_timeout takes a duration such as 5m; image_fetches_per_minute and
# checkpoint_every take 0 to disable them.

`

// Save writes the configuration as YAML under a short header
func (c *Config) Save(path string) error {
	body, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	data := append([]byte(fileHeader), body...)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// findConfigFile searches for a config file in the working directory
func findConfigFile() string {
	locations := []string{
		"config.json",
		"config.yaml",
		".bmexport.yaml",
		".bmexport.yml",
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Load builds the configuration from all sources.
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
//
// Load never fails. A missing or malformed config file leaves every option at its
// default and is reported as a Notice.
func Load(configPath string, flags map[string]interface{}) (*Config, []Notice) {
	_ = godotenv.Load(".env")

	var notices []Notice
	cfg := DefaultConfig()

	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath == "" {
		notices = append(notices, Notice{Message: "no config file found, using default settings"})
	} else if err := cfg.LoadFromFile(configPath); err != nil {
		cfg = DefaultConfig()
		notices = append(notices, Notice{Message: "could not load " + configPath + ", using default settings", Err: err})
	} else {
		notices = append(notices, Notice{Message: "loaded configuration from " + configPath})
	}

	notices = append(notices, cfg.LoadFromEnv()...)
	cfg.MergeCommandLineFlags(flags)
	notices = append(notices, cfg.Sanitize()...)

	return cfg, notices
}
