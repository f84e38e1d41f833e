package gologger

import (
	"context"
	"fmt"
	"maps"
	"strings"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-article/internal/logging"
	"github.com/goliatone/go-article/pkg/interfaces"
)

// Config mirrors runtimeconfig.LoggingConfig for the go-logger backend.
type Config struct {
	Level     string
	Format    string
	AddSource bool
	Focus     []string
}

var formats = map[string]func() glog.Option{
	"":        glog.WithLoggerTypeJSON,
	"json":    glog.WithLoggerTypeJSON,
	"console": glog.WithLoggerTypeConsole,
	"pretty":  glog.WithLoggerTypePretty,
}

var levels = map[string]string{
	"trace":   glog.Trace,
	"debug":   glog.Debug,
	"info":    glog.Info,
	"warn":    glog.Warn,
	"warning": glog.Warn,
	"error":   glog.Error,
	"fatal":   glog.Fatal,
}

// Provider hands out go-logger children named after article modules
// (article.includes, article.site, ...).
type Provider struct {
	root *glog.BaseLogger
}

// NewProvider builds the root go-logger. JSON output is the default.
func NewProvider(cfg Config) (*Provider, error) {
	format, ok := formats[strings.ToLower(strings.TrimSpace(cfg.Format))]
	if !ok {
		return nil, fmt.Errorf("logging: unsupported go-logger format %q", cfg.Format)
	}
	options := []glog.Option{format()}
	if level, ok := levels[strings.ToLower(strings.TrimSpace(cfg.Level))]; ok {
		options = append(options, glog.WithLevel(level))
	}
	if cfg.AddSource {
		options = append(options, glog.WithAddSource(true))
	}

	root := glog.NewLogger(options...)
	var focus []string
	for _, name := range cfg.Focus {
		if name = strings.TrimSpace(name); name != "" {
			focus = append(focus, name)
		}
	}
	if len(focus) > 0 {
		root.Focus(focus...)
	}
	return &Provider{root: root}, nil
}

func (p *Provider) GetLogger(name string) interfaces.Logger {
	if p == nil {
		return logging.NoOp()
	}
	if name = strings.TrimSpace(name); name == "" {
		return wrap(p.root)
	}
	return wrap(p.root.GetLogger(name))
}

func wrap(inner glog.Logger) interfaces.Logger {
	if inner == nil {
		return logging.NoOp()
	}
	return &adapter{inner: inner}
}

type adapter struct {
	inner glog.Logger
}

func (l *adapter) Trace(msg string, args ...any) { l.inner.Trace(msg, args...) }
func (l *adapter) Debug(msg string, args ...any) { l.inner.Debug(msg, args...) }
func (l *adapter) Info(msg string, args ...any)  { l.inner.Info(msg, args...) }
func (l *adapter) Warn(msg string, args ...any)  { l.inner.Warn(msg, args...) }
func (l *adapter) Error(msg string, args ...any) { l.inner.Error(msg, args...) }
func (l *adapter) Fatal(msg string, args ...any) { l.inner.Fatal(msg, args...) }

// WithFields is a no-op when the go-logger backend cannot carry fields.
func (l *adapter) WithFields(fields map[string]any) interfaces.Logger {
	if len(fields) == 0 {
		return l
	}
	if with, ok := l.inner.(glog.FieldsLogger); ok {
		return wrap(with.WithFields(maps.Clone(fields)))
	}
	return l
}

// WithContext propagates ctx and lifts fields set with logging.ContextWithFields
// (build_id and friends) onto the child logger.
func (l *adapter) WithContext(ctx context.Context) interfaces.Logger {
	if ctx == nil {
		return l
	}
	child := &adapter{inner: l.inner.WithContext(ctx)}
	if fields := logging.ContextFields(ctx); len(fields) > 0 {
		return child.WithFields(fields)
	}
	return child
}
