// Package cli implements the cobra commands behind the article binary.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	article "github.com/goliatone/go-article"
)

// Version is injected by the main package.
var Version = "dev"

const defaultConfigFile = "_config.yml"

// ModuleBuilder constructs the article module for a command run.
type ModuleBuilder func(cfg article.Config) (*article.Module, error)

// Options customises the root command.
type Options struct {
	Build  ModuleBuilder
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

type globalFlags struct {
	config      string
	source      string
	destination string
	format      string
	workers     int
	dryRun      bool
	logLevel    string
	logFormat   string
}

// NewRootCommand returns the article command tree.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.Build == nil {
		opts.Build = func(cfg article.Config) (*article.Module, error) {
			return article.New(cfg)
		}
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}

	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "article",
		Short:         "Render Markdown articles with includes, captures and layouts",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
	}
	if opts.Stdout != nil {
		root.SetOut(opts.Stdout)
	}
	if opts.Stderr != nil {
		root.SetErr(opts.Stderr)
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.config, "config", "c", "", "Path to _config.yml (defaults to ./_config.yml when present)")
	pf.StringVarP(&flags.source, "source", "s", "", "Source directory")
	pf.StringVarP(&flags.destination, "destination", "d", "", "Destination directory")
	pf.StringVarP(&flags.format, "format", "f", "", "Output format: html or markdown")
	pf.IntVarP(&flags.workers, "workers", "w", 0, "Concurrent renders during a build (0 uses every CPU)")
	pf.BoolVar(&flags.dryRun, "dry-run", false, "Render without writing outputs")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&flags.logFormat, "log-format", "", "Log format for the gologger provider: console or json")

	env := &environment{flags: flags, opts: opts}
	root.AddCommand(newRenderCommand(env))
	root.AddCommand(newBuildCommand(env))
	return root
}

// Execute runs the command tree and returns the process exit code.
func Execute(ctx context.Context, root *cobra.Command) int {
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(root.ErrOrStderr(), "Error: %s\n", describe(err))
		return 1
	}
	return 0
}

// describe appends the innermost cause when the outer message hides it, as
// categorised command errors do.
func describe(err error) string {
	message := err.Error()
	cause := err
	for next := errors.Unwrap(cause); next != nil; next = errors.Unwrap(cause) {
		cause = next
	}
	if detail := cause.Error(); !strings.Contains(message, detail) {
		return message + ": " + detail
	}
	return message
}

type environment struct {
	flags *globalFlags
	opts  Options
}

// module resolves the configuration for cmd and builds the module.
func (e *environment) module(cmd *cobra.Command) (*article.Module, error) {
	cfg, err := e.config(cmd)
	if err != nil {
		return nil, err
	}
	module, err := e.opts.Build(cfg)
	if err != nil {
		return nil, fmt.Errorf("initialise article module: %w", err)
	}
	return module, nil
}

func (e *environment) config(cmd *cobra.Command) (article.Config, error) {
	cfg := article.DefaultConfig()
	path := strings.TrimSpace(e.flags.config)
	explicit := path != ""
	if !explicit {
		path = defaultConfigFile
		if source := strings.TrimSpace(e.flags.source); source != "" {
			path = source + string(os.PathSeparator) + defaultConfigFile
		}
	}
	if _, err := os.Stat(path); err == nil {
		loaded, err := article.LoadConfig(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	} else if explicit {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}

	changed := cmd.Flags().Changed
	if changed("source") {
		cfg.Source = e.flags.source
	}
	if changed("destination") {
		cfg.Destination = e.flags.destination
	}
	if changed("format") {
		cfg.Render.Format = e.flags.format
	}
	if changed("workers") {
		cfg.Build.Workers = e.flags.workers
	}
	if changed("dry-run") {
		cfg.Build.DryRun = e.flags.dryRun
	}
	if changed("log-level") {
		cfg.Logging.Level = e.flags.logLevel
	}
	if changed("log-format") {
		cfg.Logging.Format = e.flags.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

var errNoModule = errors.New("article module builder returned nil")
