package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	article "github.com/goliatone/go-article"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
	return root
}

func run(t *testing.T, stdin string, args ...string) (string, string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCommand(Options{
		Stdin:  strings.NewReader(stdin),
		Stdout: &stdout,
		Stderr: &stderr,
	})
	root.SetArgs(args)
	code := Execute(context.Background(), root)
	return stdout.String(), stderr.String(), code
}

func TestRenderCommandPrintsDocument(t *testing.T) {
	source := writeTree(t, map[string]string{
		"_includes/greet.html": "<p>Hello {{ include.name }}</p>",
		"post.md":              "---\ntitle: Post\n---\n{% include greet name=\"Ada\" %}\n",
	})

	stdout, stderr, code := run(t, "", "render", "post.md", "--source", source, "--log-level", "error")
	if code != 0 {
		t.Fatalf("expected success, got %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "<p>Hello Ada</p>") {
		t.Fatalf("unexpected output %q", stdout)
	}
}

func TestRenderCommandReadsStdin(t *testing.T) {
	source := writeTree(t, nil)

	stdout, stderr, code := run(t, "---\ntitle: X\n---\nbody {% include note body=\"hi\" %}\n",
		"render", "-", "--source", source, "--format", "markdown", "--log-level", "error")
	if code != 0 {
		t.Fatalf("expected success, got %d: %s", code, stderr)
	}
	if strings.Contains(stdout, "{%") || !strings.Contains(stdout, "hi") || strings.Contains(stdout, "title:") {
		t.Fatalf("unexpected markdown output %q", stdout)
	}
}

func TestRenderCommandReportsUndefinedPartial(t *testing.T) {
	source := writeTree(t, map[string]string{"a.md": "{% include foo %}\n"})

	_, stderr, code := run(t, "", "render", "a.md", "--source", source, "--log-level", "error")
	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
	if !strings.Contains(stderr, `"foo"`) {
		t.Fatalf("expected the partial name in %q", stderr)
	}
}

func TestBuildCommandWritesSite(t *testing.T) {
	source := writeTree(t, map[string]string{
		"index.md":        "# Home\n",
		"broken.md":       "{% capture open %}\n",
		"_drafts/skip.md": "# Draft\n",
	})
	destination := filepath.Join(t.TempDir(), "site")

	stdout, _, code := run(t, "", "build", "--source", source, "--destination", destination, "--workers", "2", "--log-level", "error")
	if code != 1 {
		t.Fatalf("expected the broken document to fail the build, got %d", code)
	}
	if !strings.Contains(stdout, "1 built, 0 skipped, 1 failed") {
		t.Fatalf("unexpected summary %q", stdout)
	}
	if !strings.Contains(stdout, "failed   broken.md") {
		t.Fatalf("expected broken.md diagnostic in %q", stdout)
	}
	if _, err := os.Stat(filepath.Join(destination, "index.html")); err != nil {
		t.Fatalf("expected index.html: %v", err)
	}
	if _, err := os.Stat(filepath.Join(destination, "_drafts")); !os.IsNotExist(err) {
		t.Fatalf("expected underscore directories to be skipped, got %v", err)
	}
}

func TestBuildCommandDryRun(t *testing.T) {
	source := writeTree(t, map[string]string{"index.md": "# Home\n"})
	destination := filepath.Join(t.TempDir(), "site")

	stdout, stderr, code := run(t, "", "build", "--source", source, "--destination", destination, "--dry-run", "--log-level", "error")
	if code != 0 {
		t.Fatalf("expected success, got %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "(dry run)") {
		t.Fatalf("expected dry run summary, got %q", stdout)
	}
	if _, err := os.Stat(destination); !os.IsNotExist(err) {
		t.Fatalf("expected no destination, got %v", err)
	}
}

func TestConfigFileAndFlagPrecedence(t *testing.T) {
	source := writeTree(t, map[string]string{
		"_config.yml": "render:\n  format: markdown\nbuild:\n  workers: 3\n",
	})
	var captured article.Config
	root := NewRootCommand(Options{
		Build: func(cfg article.Config) (*article.Module, error) {
			captured = cfg
			return article.New(cfg)
		},
		Stdin:  strings.NewReader("x"),
		Stdout: &bytes.Buffer{},
		Stderr: &bytes.Buffer{},
	})
	root.SetArgs([]string{"render", "-", "--source", source, "--workers", "5", "--log-level", "error"})
	if code := Execute(context.Background(), root); code != 0 {
		t.Fatalf("expected success, got %d", code)
	}
	if captured.Render.Format != "markdown" {
		t.Fatalf("expected format from _config.yml, got %q", captured.Render.Format)
	}
	if captured.Build.Workers != 5 {
		t.Fatalf("expected --workers to win, got %d", captured.Build.Workers)
	}
	if captured.Source != source {
		t.Fatalf("expected --source to win, got %q", captured.Source)
	}
}

func TestMissingExplicitConfigFails(t *testing.T) {
	_, stderr, code := run(t, "", "build", "--config", filepath.Join(t.TempDir(), "nope.yml"))
	if code != 1 || !strings.Contains(stderr, "nope.yml") {
		t.Fatalf("expected missing config error, got %d %q", code, stderr)
	}
}
