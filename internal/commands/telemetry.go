package commands

import (
	"context"
	"errors"
	"time"

	command "github.com/goliatone/go-command"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-article/internal/logging"
	"github.com/goliatone/go-article/pkg/interfaces"
)

// TelemetryStatus captures the result category for command execution.
type TelemetryStatus string

const (
	TelemetryStatusSuccess      TelemetryStatus = "success"
	TelemetryStatusFailed       TelemetryStatus = "failed"
	TelemetryStatusContextError TelemetryStatus = "context_error"
)

// TelemetryInfo describes a command execution outcome provided to telemetry callbacks.
type TelemetryInfo struct {
	Command   string
	Operation string
	Fields    map[string]any
	Duration  time.Duration
	Error     error
	Status    TelemetryStatus
	Logger    interfaces.Logger
}

// TextCode returns the go-errors text code attached to the outcome error.
func (info TelemetryInfo) TextCode() string {
	var categorized *goerrors.Error
	if errors.As(info.Error, &categorized) {
		return categorized.TextCode
	}
	return ""
}

// Telemetry is an optional callback invoked after command execution.
type Telemetry[T command.Message] func(ctx context.Context, msg T, info TelemetryInfo)

// DefaultTelemetry logs command outcomes with the supplied logger. Failures
// carry the error text code so pipeline error kinds can be filtered.
func DefaultTelemetry[T command.Message](logger interfaces.Logger) Telemetry[T] {
	logger = logging.OrNoOp(logger)
	return func(_ context.Context, _ T, info TelemetryInfo) {
		entry := logger
		if info.Fields != nil {
			entry = logging.WithFields(entry, info.Fields)
		}
		args := []any{"duration_ms", info.Duration.Milliseconds()}
		if code := info.TextCode(); code != "" {
			args = append(args, "text_code", code)
		}
		switch info.Status {
		case TelemetryStatusSuccess:
			entry.Info("command.execute.success", args...)
		case TelemetryStatusContextError:
			entry.Error("command.execute.context_error", append(args, "error", info.Error)...)
		default:
			entry.Error("command.execute.failed", append(args, "error", info.Error)...)
		}
	}
}
