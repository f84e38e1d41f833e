package rendercmd

import (
	"context"
	"errors"
	"io"

	command "github.com/goliatone/go-command"

	"github.com/goliatone/go-article/internal/commands"
	"github.com/goliatone/go-article/internal/logging"
	"github.com/goliatone/go-article/pkg/interfaces"
)

const renderOperation = "render.document"

var _ command.Commander[RenderDocumentCommand] = (*RenderDocumentHandler)(nil)

// DocumentRenderer is the pipeline surface the handler drives.
type DocumentRenderer interface {
	RenderFile(ctx context.Context, path string) (*interfaces.Output, error)
	RenderSource(ctx context.Context, path string, source []byte) (*interfaces.Output, error)
}

// RenderDocumentHandler renders a single document via the shared command handler.
type RenderDocumentHandler struct {
	inner *commands.Handler[RenderDocumentCommand]
}

// NewRenderDocumentHandler creates a handler bound to renderer.
func NewRenderDocumentHandler(renderer DocumentRenderer, logger interfaces.Logger, opts ...commands.HandlerOption[RenderDocumentCommand]) *RenderDocumentHandler {
	baseLogger := logging.OrNoOp(logger)

	exec := func(ctx context.Context, msg RenderDocumentCommand) error {
		if renderer == nil {
			return errors.New("render command: renderer is nil")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var (
			output *interfaces.Output
			err    error
		)
		if msg.Source != "" {
			output, err = renderer.RenderSource(ctx, msg.Path, []byte(msg.Source))
		} else {
			output, err = renderer.RenderFile(ctx, msg.Path)
		}
		if err != nil {
			return err
		}

		if msg.Output != nil {
			if _, err := io.WriteString(msg.Output, output.Content); err != nil {
				return err
			}
		}
		logging.WithFields(baseLogger, map[string]any{
			"path":    msg.Path,
			"format":  string(output.Format),
			"layouts": output.Layouts,
			"bytes":   len(output.Content),
		}).Info("render.command.document.completed")
		return nil
	}

	handlerOpts := []commands.HandlerOption[RenderDocumentCommand]{
		commands.WithLogger[RenderDocumentCommand](baseLogger),
		commands.WithOperation[RenderDocumentCommand](renderOperation),
		commands.WithMessageFields(func(msg RenderDocumentCommand) map[string]any {
			fields := map[string]any{"path": msg.Path}
			if msg.Source != "" {
				fields["inline_source"] = true
			}
			return fields
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[RenderDocumentCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &RenderDocumentHandler{
		inner: commands.NewHandler(exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[RenderDocumentCommand].
func (h *RenderDocumentHandler) Execute(ctx context.Context, msg RenderDocumentCommand) error {
	return h.inner.Execute(ctx, msg)
}

// RegisterRenderCommands builds the render handler and registers it with reg
// when one is supplied.
func RegisterRenderCommands(reg commands.CommandRegistry, renderer DocumentRenderer, provider interfaces.LoggerProvider, opts ...commands.HandlerOption[RenderDocumentCommand]) (*RenderDocumentHandler, error) {
	if renderer == nil {
		return nil, errors.New("render command registration: renderer is nil")
	}
	handler := NewRenderDocumentHandler(renderer, commands.CommandLogger(provider, "render"), opts...)
	if reg != nil {
		if err := reg.RegisterCommand(handler); err != nil {
			return nil, err
		}
	}
	return handler, nil
}
