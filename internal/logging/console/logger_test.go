package console_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-article/internal/logging"
	"github.com/goliatone/go-article/internal/logging/console"
	"github.com/goliatone/go-article/pkg/interfaces"
)

func TestConsoleLogger_WritesStructuredEntry(t *testing.T) {
	var buf bytes.Buffer
	now := time.Date(2024, 3, 14, 15, 9, 26, 535897000, time.UTC)

	minLevel := console.LevelDebug
	provider := console.NewProvider(console.Options{
		Writer:   &buf,
		TimeFunc: func() time.Time { return now },
		MinLevel: &minLevel,
	})

	logger := provider.GetLogger("article.includes")
	logger = logger.(interfaces.FieldsLogger).WithFields(map[string]any{"module": "article.includes"})
	ctx := logging.ContextWithFields(context.Background(), map[string]any{
		"build_id": "b-1",
	})
	logger = logger.WithContext(ctx)

	logger.Info("includes.resolve.completed",
		"document", "_posts/2024-01-02-nodes.md",
		"duration", 1500*time.Microsecond,
	)

	got := strings.TrimSpace(buf.String())
	want := "2024-03-14T15:09:26.535897Z INFO includes.resolve.completed build_id=b-1 document=_posts/2024-01-02-nodes.md duration=1.5ms logger=article.includes module=article.includes"
	if got != want {
		t.Fatalf("unexpected log entry\nwant: %s\ngot:  %s", want, got)
	}
}

func TestConsoleLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	minLevel := console.LevelInfo
	provider := console.NewProvider(console.Options{
		Writer:   &buf,
		TimeFunc: time.Now,
		MinLevel: &minLevel,
	})

	logger := provider.GetLogger("article.test")
	logger.Debug("ignored.debug", "foo", "bar")
	logger.Info("included.info", "foo", "bar")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected single log line, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "included.info") {
		t.Fatalf("expected info log to be written, got %s", lines[0])
	}
}

func TestConsoleLogger_DanglingArgBecomesPositionalField(t *testing.T) {
	var buf bytes.Buffer
	provider := console.NewProvider(console.Options{Writer: &buf})

	provider.GetLogger("article.test").Warn("odd.args", "key", "value", "orphan")

	if !strings.Contains(buf.String(), "field_1=orphan") {
		t.Fatalf("expected dangling argument to be kept, got %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	if level, ok := console.ParseLevel("WARNING"); !ok || level != console.LevelWarn {
		t.Fatalf("expected warn level, got %v %v", level, ok)
	}
	if _, ok := console.ParseLevel("loud"); ok {
		t.Fatalf("expected unknown level to be rejected")
	}
}
