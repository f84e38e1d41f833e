package di_test

import (
	"context"
	"maps"
	"sync"

	"github.com/goliatone/go-article/internal/logging"
	"github.com/goliatone/go-article/pkg/interfaces"
)

// recordingProvider collects entries from every module logger. Site builds log
// from worker goroutines, so access is serialised.
type recordingProvider struct {
	mu      sync.Mutex
	entries []recordedEntry
}

type recordedEntry struct {
	level  string
	msg    string
	fields map[string]any
}

func newRecordingProvider() *recordingProvider {
	return &recordingProvider{}
}

func (p *recordingProvider) GetLogger(name string) interfaces.Logger {
	return &recordingLogger{provider: p, fields: map[string]any{"logger": name}}
}

func (p *recordingProvider) find(msg string) *recordedEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.entries {
		if p.entries[i].msg == msg {
			entry := p.entries[i]
			return &entry
		}
	}
	return nil
}

type recordingLogger struct {
	provider *recordingProvider
	fields   map[string]any
}

var _ interfaces.Logger = (*recordingLogger)(nil)

func (l *recordingLogger) Trace(msg string, args ...any) { l.log("TRACE", msg, args) }
func (l *recordingLogger) Debug(msg string, args ...any) { l.log("DEBUG", msg, args) }
func (l *recordingLogger) Info(msg string, args ...any)  { l.log("INFO", msg, args) }
func (l *recordingLogger) Warn(msg string, args ...any)  { l.log("WARN", msg, args) }
func (l *recordingLogger) Error(msg string, args ...any) { l.log("ERROR", msg, args) }
func (l *recordingLogger) Fatal(msg string, args ...any) { l.log("FATAL", msg, args) }

func (l *recordingLogger) WithFields(fields map[string]any) interfaces.Logger {
	merged := maps.Clone(l.fields)
	maps.Copy(merged, fields)
	return &recordingLogger{provider: l.provider, fields: merged}
}

// WithContext lifts build_id and other context fields like the real providers.
func (l *recordingLogger) WithContext(ctx context.Context) interfaces.Logger {
	return l.WithFields(logging.ContextFields(ctx))
}

func (l *recordingLogger) log(level, msg string, args []any) {
	fields := maps.Clone(l.fields)
	for i := 0; i+1 < len(args); i += 2 {
		if key, ok := args[i].(string); ok && key != "" {
			fields[key] = args[i+1]
		}
	}
	l.provider.mu.Lock()
	defer l.provider.mu.Unlock()
	l.provider.entries = append(l.provider.entries, recordedEntry{level: level, msg: msg, fields: fields})
}
