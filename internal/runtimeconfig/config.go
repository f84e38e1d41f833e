package runtimeconfig

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrSourceDirRequired = errors.New("article config: source directory is required")
var ErrDestinationDirRequired = errors.New("article config: destination directory is required")
var ErrIncludesDirRequired = errors.New("article config: includes directory is required")
var ErrRenderFormatInvalid = errors.New("article config: render format is invalid")
var ErrRenderTimeoutInvalid = errors.New("article config: render timeout must be zero or positive")
var ErrBuildWorkersInvalid = errors.New("article config: build workers must be zero or positive")
var ErrIndexDriverUnknown = errors.New("article config: index driver is invalid")
var ErrIndexDSNRequired = errors.New("article config: index dsn is required for database drivers")
var ErrLoggingProviderRequired = errors.New("article config: logging provider is required")
var ErrLoggingProviderUnknown = errors.New("article config: logging provider is invalid")
var ErrLoggingLevelInvalid = errors.New("article config: logging level is invalid")
var ErrLoggingFormatInvalid = errors.New("article config: logging format is invalid")

// Config aggregates the site layout and pipeline toggles. It decodes from a
// Jekyll-style _config.yml; unknown keys are ignored.
type Config struct {
	Source      string          `yaml:"source"`
	Destination string          `yaml:"destination"`
	Site        map[string]any  `yaml:"site"`
	Markdown    MarkdownConfig  `yaml:"markdown"`
	Includes    IncludesConfig  `yaml:"includes"`
	Layouts     LayoutsConfig   `yaml:"layouts"`
	Highlight   HighlightConfig `yaml:"highlight"`
	Render      RenderConfig    `yaml:"render"`
	Build       BuildConfig     `yaml:"build"`
	Index       IndexConfig     `yaml:"index"`
	Logging     LoggingConfig   `yaml:"logging"`
}

// MarkdownConfig captures goldmark behaviour toggles.
type MarkdownConfig struct {
	Extensions []string `yaml:"extensions"`
	HardWraps  bool     `yaml:"hard_wraps"`
	SafeMode   bool     `yaml:"safe_mode"`
}

// IncludesConfig controls partial discovery and resolution.
type IncludesConfig struct {
	Dir         string `yaml:"dir"`
	BraceSyntax bool   `yaml:"brace_syntax"`
	BuiltIns    bool   `yaml:"builtins"`
	Sanitize    bool   `yaml:"sanitize"`
}

// LayoutsConfig points at the layout templates.
type LayoutsConfig struct {
	Dir string `yaml:"dir"`
}

// HighlightConfig configures the chroma highlighter used by the code partial.
type HighlightConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Style       string `yaml:"style"`
	Classes     bool   `yaml:"classes"`
	LineNumbers bool   `yaml:"line_numbers"`

	// Stylesheet is the output path of the generated CSS when Classes is set.
	Stylesheet string `yaml:"stylesheet"`
}

// RenderConfig captures output format defaults.
type RenderConfig struct {
	Format             string        `yaml:"format"`
	IncludeFrontMatter bool          `yaml:"include_front_matter"`
	Timeout            time.Duration `yaml:"timeout"`
}

// BuildConfig captures site build behaviour.
type BuildConfig struct {
	Workers     int  `yaml:"workers"`
	Incremental bool `yaml:"incremental"`
	DryRun      bool `yaml:"dry_run"`
}

// IndexConfig selects the incremental build index backend.
type IndexConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// LoggingConfig controls logger provider selection.
type LoggingConfig struct {
	Provider  string   `yaml:"provider"`
	Level     string   `yaml:"level"`
	Format    string   `yaml:"format"`
	AddSource bool     `yaml:"add_source"`
	Focus     []string `yaml:"focus"`
}

// DefaultConfig returns defaults matching the Jekyll directory conventions.
func DefaultConfig() Config {
	return Config{
		Source:      ".",
		Destination: "_site",
		Site:        map[string]any{},
		Markdown: MarkdownConfig{
			Extensions: []string{"gfm", "typographer"},
		},
		Includes: IncludesConfig{
			Dir:         "_includes",
			BraceSyntax: true,
			BuiltIns:    true,
		},
		Layouts: LayoutsConfig{
			Dir: "_layouts",
		},
		Highlight: HighlightConfig{
			Enabled:    true,
			Style:      "github",
			Classes:    true,
			Stylesheet: "assets/highlight.css",
		},
		Render: RenderConfig{
			Format: "html",
		},
		Build: BuildConfig{
			Workers:     0,
			Incremental: false,
		},
		Index: IndexConfig{
			Driver: "json",
		},
		Logging: LoggingConfig{
			Provider: "console",
			Level:    "info",
		},
	}
}

// LoadFile decodes a YAML configuration file over DefaultConfig and validates
// the result.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("article config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("article config: decode %s: %w", path, err)
	}
	if cfg.Site == nil {
		cfg.Site = map[string]any{}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate performs high-level consistency checks.
func (cfg Config) Validate() error {
	if strings.TrimSpace(cfg.Source) == "" {
		return ErrSourceDirRequired
	}
	if strings.TrimSpace(cfg.Destination) == "" && !cfg.Build.DryRun {
		return ErrDestinationDirRequired
	}
	if strings.TrimSpace(cfg.Includes.Dir) == "" {
		return ErrIncludesDirRequired
	}
	if format := NormalizeFormat(cfg.Render.Format); !isSupportedRenderFormat(format) {
		return fmt.Errorf("%w: %s", ErrRenderFormatInvalid, cfg.Render.Format)
	}
	if cfg.Render.Timeout < 0 {
		return ErrRenderTimeoutInvalid
	}
	if cfg.Build.Workers < 0 {
		return ErrBuildWorkersInvalid
	}

	driver := NormalizeDriver(cfg.Index.Driver)
	switch driver {
	case "json":
	case "sqlite", "postgres":
		if strings.TrimSpace(cfg.Index.DSN) == "" {
			return fmt.Errorf("%w: %s", ErrIndexDSNRequired, driver)
		}
	default:
		return fmt.Errorf("%w: %s", ErrIndexDriverUnknown, driver)
	}

	provider := normalizeProvider(cfg.Logging.Provider)
	if provider == "" {
		return ErrLoggingProviderRequired
	}
	if !isSupportedProvider(provider) {
		return fmt.Errorf("%w: %s", ErrLoggingProviderUnknown, provider)
	}
	if level := strings.TrimSpace(cfg.Logging.Level); level != "" && !isSupportedLevel(level) {
		return fmt.Errorf("%w: %s", ErrLoggingLevelInvalid, level)
	}
	if provider == "gologger" {
		if format := strings.TrimSpace(cfg.Logging.Format); format != "" && !isSupportedFormat(format) {
			return fmt.Errorf("%w: %s", ErrLoggingFormatInvalid, format)
		}
	}
	return nil
}

// NormalizeFormat lower-cases the render format, defaulting to html.
func NormalizeFormat(format string) string {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		return "html"
	}
	return format
}

// NormalizeDriver lower-cases the index driver, defaulting to json.
func NormalizeDriver(driver string) string {
	driver = strings.ToLower(strings.TrimSpace(driver))
	switch driver {
	case "":
		return "json"
	case "sqlite3":
		return "sqlite"
	case "postgresql", "pg":
		return "postgres"
	default:
		return driver
	}
}

func isSupportedRenderFormat(format string) bool {
	switch format {
	case "html", "markdown":
		return true
	default:
		return false
	}
}

func normalizeProvider(provider string) string {
	return strings.ToLower(strings.TrimSpace(provider))
}

func isSupportedProvider(provider string) bool {
	switch provider {
	case "console", "gologger":
		return true
	default:
		return false
	}
}

func isSupportedLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal":
		return true
	default:
		return false
	}
}

func isSupportedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json", "console", "pretty":
		return true
	default:
		return false
	}
}
