package console

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-article/internal/logging"
	"github.com/goliatone/go-article/pkg/interfaces"
)

// Level orders console severities.
type Level uint8

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var levelNames = [...]string{"TRACE", "DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

// String renders the severity label used in console output.
func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return levelNames[LevelInfo]
}

// ParseLevel maps a logging.level value onto a Level. Unknown names
// resolve to LevelInfo with ok=false.
func ParseLevel(name string) (Level, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	switch name {
	case "":
		return LevelInfo, true
	case "WARNING":
		return LevelWarn, true
	}
	for i, label := range levelNames {
		if label == name {
			return Level(i), true
		}
	}
	return LevelInfo, false
}

// Options configures the console logger provider.
type Options struct {
	Writer   io.Writer
	TimeFunc func() time.Time
	MinLevel *Level
}

type provider struct {
	writer   io.Writer
	clock    func() time.Time
	minLevel Level
	mu       *sync.Mutex
}

// NewProvider constructs a console-backed logger provider. Entries go to
// stderr with a minimum severity of DEBUG unless Options say otherwise, so
// rendered output on stdout stays clean.
func NewProvider(opts Options) interfaces.LoggerProvider {
	p := &provider{
		writer:   opts.Writer,
		clock:    opts.TimeFunc,
		minLevel: LevelDebug,
		mu:       &sync.Mutex{},
	}
	if p.writer == nil {
		p.writer = os.Stderr
	}
	if p.clock == nil {
		p.clock = time.Now
	}
	if opts.MinLevel != nil {
		p.minLevel = *opts.MinLevel
	}
	return p
}

func (p *provider) GetLogger(name string) interfaces.Logger {
	return &consoleLogger{
		provider: p,
		fields: map[string]any{
			"logger": name,
		},
	}
}

type consoleLogger struct {
	provider *provider
	fields   map[string]any
	ctx      context.Context
}

var (
	_ interfaces.Logger       = (*consoleLogger)(nil)
	_ interfaces.FieldsLogger = (*consoleLogger)(nil)
)

func (l *consoleLogger) Trace(msg string, args ...any) { l.log(LevelTrace, msg, args...) }
func (l *consoleLogger) Debug(msg string, args ...any) { l.log(LevelDebug, msg, args...) }
func (l *consoleLogger) Info(msg string, args ...any)  { l.log(LevelInfo, msg, args...) }
func (l *consoleLogger) Warn(msg string, args ...any)  { l.log(LevelWarn, msg, args...) }
func (l *consoleLogger) Error(msg string, args ...any) { l.log(LevelError, msg, args...) }
func (l *consoleLogger) Fatal(msg string, args ...any) { l.log(LevelFatal, msg, args...) }

func (l *consoleLogger) WithFields(fields map[string]any) interfaces.Logger {
	if len(fields) == 0 {
		return l
	}
	merged := maps.Clone(l.fields)
	if merged == nil {
		merged = make(map[string]any, len(fields))
	}
	maps.Copy(merged, fields)
	return &consoleLogger{provider: l.provider, fields: merged, ctx: l.ctx}
}

func (l *consoleLogger) WithContext(ctx context.Context) interfaces.Logger {
	return &consoleLogger{provider: l.provider, fields: l.fields, ctx: ctx}
}

func (l *consoleLogger) log(level Level, msg string, args ...any) {
	p := l.provider
	if p == nil || level < p.minLevel {
		return
	}

	fields := make(map[string]any, len(l.fields)+len(args)/2+1)
	maps.Copy(fields, l.fields)
	maps.Copy(fields, logging.ContextFields(l.ctx))
	maps.Copy(fields, argsToFields(args))

	line := formatEntry(p.clock().UTC(), level, msg, fields)

	p.mu.Lock()
	defer p.mu.Unlock()
	// Write failures are dropped; logging never fails a render.
	_, _ = io.WriteString(p.writer, line)
}

// argsToFields pairs variadic args into key/value fields. A dangling final
// value becomes a positional field.
func argsToFields(args []any) map[string]any {
	if len(args) == 0 {
		return nil
	}
	fields := make(map[string]any, len(args)/2+1)
	for i := 0; i < len(args); i += 2 {
		if i == len(args)-1 {
			fields[fieldKey(i/2)] = args[i]
			break
		}
		key, ok := args[i].(string)
		if !ok || key == "" {
			fields[fieldKey(i/2)] = args[i+1]
			continue
		}
		fields[key] = args[i+1]
	}
	return fields
}

func fieldKey(position int) string {
	return fmt.Sprintf("field_%d", position)
}

// formatEntry renders "<ts> <LEVEL> <msg> k=v..." with keys sorted.
func formatEntry(ts time.Time, level Level, msg string, fields map[string]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s", ts.Format(time.RFC3339Nano), level, msg)
	for _, key := range slices.Sorted(maps.Keys(fields)) {
		fmt.Fprintf(&b, " %s=%s", key, formatValue(fields[key]))
	}
	b.WriteByte('\n')
	return b.String()
}

func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return quoteIfNeeded(v)
	case time.Time:
		return quoteIfNeeded(v.UTC().Format(time.RFC3339Nano))
	case time.Duration:
		return v.String()
	case error:
		return quoteIfNeeded(v.Error())
	case fmt.Stringer:
		return quoteIfNeeded(v.String())
	case bool:
		return strconv.FormatBool(v)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return quoteIfNeeded(fmt.Sprint(v))
	}
}

func quoteIfNeeded(value string) string {
	if value == "" {
		return `""`
	}
	for _, r := range value {
		if r <= 0x20 || r == '=' || r == '"' {
			return strconv.Quote(value)
		}
	}
	return value
}
