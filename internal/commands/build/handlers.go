package buildcmd

import (
	"context"
	"errors"

	command "github.com/goliatone/go-command"

	"github.com/goliatone/go-article/internal/commands"
	"github.com/goliatone/go-article/internal/logging"
	"github.com/goliatone/go-article/internal/site"
	"github.com/goliatone/go-article/pkg/interfaces"
)

const buildOperation = "site.build"

var _ command.Commander[BuildSiteCommand] = (*BuildSiteHandler)(nil)

// SiteBuilder is the site surface the handler drives.
type SiteBuilder interface {
	BuildSite(ctx context.Context, opts site.BuildOptions) (*site.BuildResult, error)
}

// Reporter receives the build result, including partial results of failed builds.
type Reporter func(result *site.BuildResult)

// BuildSiteHandler runs a site build via the shared command handler.
type BuildSiteHandler struct {
	inner *commands.Handler[BuildSiteCommand]
}

// NewBuildSiteHandler creates a handler bound to builder.
func NewBuildSiteHandler(builder SiteBuilder, logger interfaces.Logger, report Reporter, opts ...commands.HandlerOption[BuildSiteCommand]) *BuildSiteHandler {
	baseLogger := logging.OrNoOp(logger)

	exec := func(ctx context.Context, msg BuildSiteCommand) error {
		if builder == nil {
			return errors.New("build command: builder is nil")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		result, err := builder.BuildSite(ctx, site.BuildOptions{
			DryRun: msg.DryRun,
			Force:  msg.Force,
			Paths:  msg.Paths,
		})
		if result != nil {
			logging.WithFields(baseLogger, map[string]any{
				"built_count":   result.Built,
				"skipped_count": result.Skipped,
				"failed_count":  result.Failed,
				"dry_run":       result.DryRun,
				"duration_ms":   result.Duration.Milliseconds(),
			}).Info("site.command.build.completed")
			if report != nil {
				report(result)
			}
		}
		return err
	}

	handlerOpts := []commands.HandlerOption[BuildSiteCommand]{
		commands.WithLogger[BuildSiteCommand](baseLogger),
		commands.WithOperation[BuildSiteCommand](buildOperation),
		// Builds are bounded per document; the whole run has no deadline.
		commands.WithTimeout[BuildSiteCommand](0),
		commands.WithMessageFields(func(msg BuildSiteCommand) map[string]any {
			fields := map[string]any{}
			if msg.DryRun {
				fields["dry_run"] = true
			}
			if msg.Force {
				fields["force"] = true
			}
			if len(msg.Paths) > 0 {
				fields["paths"] = len(msg.Paths)
			}
			return fields
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[BuildSiteCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &BuildSiteHandler{
		inner: commands.NewHandler(exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[BuildSiteCommand].
func (h *BuildSiteHandler) Execute(ctx context.Context, msg BuildSiteCommand) error {
	return h.inner.Execute(ctx, msg)
}

// CronRegistrar matches the function signature used by go-command registries.
type CronRegistrar func(command.HandlerConfig, any) error

// RegisterBuildCommands builds the site handler and registers it with reg
// when one is supplied.
func RegisterBuildCommands(reg commands.CommandRegistry, builder SiteBuilder, provider interfaces.LoggerProvider, report Reporter, opts ...commands.HandlerOption[BuildSiteCommand]) (*BuildSiteHandler, error) {
	if builder == nil {
		return nil, errors.New("build command registration: builder is nil")
	}
	handler := NewBuildSiteHandler(builder, commands.CommandLogger(provider, "site"), report, opts...)
	if reg != nil {
		if err := reg.RegisterCommand(handler); err != nil {
			return nil, err
		}
	}
	return handler, nil
}

// RegisterBuildCron schedules periodic rebuilds through a cron registrar. The
// handler runs with a background context.
func RegisterBuildCron(reg CronRegistrar, handler *BuildSiteHandler, cfg command.HandlerConfig, msg BuildSiteCommand) error {
	if reg == nil || handler == nil {
		return nil
	}
	return reg(cfg, func() error {
		return handler.Execute(context.Background(), msg)
	})
}
