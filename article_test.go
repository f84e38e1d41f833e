package article_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	goerrors "github.com/goliatone/go-errors"

	article "github.com/goliatone/go-article"
)

func newModule(t *testing.T, fsys fstest.MapFS, mutate func(*article.Config)) *article.Module {
	t.Helper()
	cfg := article.DefaultConfig()
	cfg.Destination = t.TempDir()
	cfg.Highlight.Enabled = false
	if mutate != nil {
		mutate(&cfg)
	}
	module, err := article.New(cfg, article.WithFS(fsys))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return module
}

func TestRenderSourceResolvesEveryMarker(t *testing.T) {
	module := newModule(t, fstest.MapFS{}, nil)
	source := []byte("---\ntitle: X\n---\n" +
		"{% capture snippet %}\nfmt.Println(\"hi\")\n{% endcapture %}\n" +
		"{% include code code=snippet lang=\"go\" %}\n\n" +
		"{{ include note body=\"careful\" }}\n")

	output, err := module.RenderSource(context.Background(), "post.md", source)
	if err != nil {
		t.Fatalf("RenderSource: %v", err)
	}
	for _, marker := range []string{"{%", "%}", "{{", "}}"} {
		if strings.Contains(output.Content, marker) {
			t.Fatalf("expected no %q left in %q", marker, output.Content)
		}
	}
	if !strings.Contains(output.Content, "careful") || !strings.Contains(output.Content, "partial--code") {
		t.Fatalf("expected resolved partials, got %q", output.Content)
	}
	if output.Path != "post.md" || output.Format != article.OutputHTML {
		t.Fatalf("unexpected output metadata %+v", output)
	}
}

func TestRenderSourceParsesFrontMatterAndBody(t *testing.T) {
	module := newModule(t, fstest.MapFS{}, func(cfg *article.Config) {
		cfg.Render.Format = "markdown"
	})

	doc, err := module.ParseDocument("a.md", []byte("---\ntitle: X\n---\nbody"))
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	if doc.FrontMatter.Values["title"] != "X" || len(doc.FrontMatter.Values) != 1 {
		t.Fatalf("unexpected front matter %v", doc.FrontMatter.Values)
	}

	output, err := module.RenderSource(context.Background(), "a.md", []byte("---\ntitle: X\n---\nbody"))
	if err != nil {
		t.Fatalf("RenderSource: %v", err)
	}
	if strings.TrimSpace(output.Content) != "body" {
		t.Fatalf("expected plain body, got %q", output.Content)
	}
}

func TestRenderSourceUndefinedPartial(t *testing.T) {
	module := newModule(t, fstest.MapFS{}, nil)

	for _, source := range []string{"{% include foo %}", "{{ include foo }}"} {
		_, err := module.RenderSource(context.Background(), "a.md", []byte(source))
		var resolution *article.ResolutionError
		if !errors.As(err, &resolution) || resolution.Partial != "foo" {
			t.Fatalf("%q: expected resolution error naming foo, got %v", source, err)
		}
		if !errors.Is(err, article.ErrResolution) {
			t.Fatalf("%q: expected ErrResolution, got %v", source, err)
		}
		categorized := article.Categorize(err)
		var wrapped *goerrors.Error
		if !errors.As(categorized, &wrapped) || wrapped.TextCode != article.TextCodePartialNotFound {
			t.Fatalf("expected %s text code, got %v", article.TextCodePartialNotFound, categorized)
		}
	}
}

func TestRenderSourceUnclosedCapture(t *testing.T) {
	module := newModule(t, fstest.MapFS{}, nil)

	_, err := module.RenderSource(context.Background(), "a.md", []byte("{% capture x %}\nno end\n"))
	var parseErr *article.ParseError
	if !errors.As(err, &parseErr) || parseErr.Name != "x" {
		t.Fatalf("expected parse error naming x, got %v", err)
	}
}

func TestRenderSourceMissingParameter(t *testing.T) {
	module := newModule(t, fstest.MapFS{}, nil)

	_, err := module.RenderSource(context.Background(), "a.md", []byte("{% include image alt=\"x\" %}"))
	var missing *article.MissingParameterError
	if !errors.As(err, &missing) || missing.Partial != "image" || missing.Parameter != "src" {
		t.Fatalf("expected missing src on image, got %v", err)
	}
}

func TestRenderFileUsesLayouts(t *testing.T) {
	fsys := fstest.MapFS{
		"_layouts/default.html": {Data: []byte("<html>{{ content }}</html>")},
		"notes/a.md":            {Data: []byte("---\nlayout: default\n---\n# Hi\n")},
	}
	module := newModule(t, fsys, nil)

	output, err := module.RenderFile(context.Background(), "notes/a.md")
	if err != nil {
		t.Fatalf("RenderFile: %v", err)
	}
	if !strings.HasPrefix(output.Content, "<html>") || !strings.Contains(output.Content, "<h1") {
		t.Fatalf("unexpected layout output %q", output.Content)
	}
	if got := module.Layouts(); len(got) != 1 || got[0] != "default" {
		t.Fatalf("unexpected layouts %v", got)
	}
}

func TestBuildSiteKeepsRenderingAfterFailure(t *testing.T) {
	fsys := fstest.MapFS{
		"good.md": {Data: []byte("{% include note body=\"ok\" %}\n")},
		"bad.md":  {Data: []byte("{% include missing %}\n")},
	}
	module := newModule(t, fsys, nil)

	result, err := module.BuildSite(context.Background(), article.BuildOptions{})
	if !errors.Is(err, article.ErrResolution) {
		t.Fatalf("expected joined resolution error, got %v", err)
	}
	if result == nil || result.Built != 1 || result.Failed != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	content, readErr := os.ReadFile(filepath.Join(module.Config().Destination, "good.html"))
	if readErr != nil || !strings.Contains(string(content), "ok") {
		t.Fatalf("expected good.html to be written, got %q, %v", content, readErr)
	}
}

func TestBuildSiteHonoursConfiguredDryRun(t *testing.T) {
	fsys := fstest.MapFS{"index.md": {Data: []byte("hello\n")}}
	module := newModule(t, fsys, func(cfg *article.Config) {
		cfg.Build.DryRun = true
	})

	result, err := module.BuildSite(context.Background(), article.BuildOptions{})
	if err != nil {
		t.Fatalf("BuildSite: %v", err)
	}
	if !result.DryRun || result.Built != 1 {
		t.Fatalf("unexpected dry run result %+v", result)
	}
	entries, _ := os.ReadDir(module.Config().Destination)
	if len(entries) != 0 {
		t.Fatalf("expected dry run to leave destination empty, got %d entries", len(entries))
	}
}

func TestPartialsListsBuiltIns(t *testing.T) {
	module := newModule(t, fstest.MapFS{}, nil)
	names := map[string]bool{}
	for _, def := range module.Partials() {
		names[def.Name] = true
	}
	for _, want := range []string{"image", "code", "note"} {
		if !names[want] {
			t.Fatalf("expected built-in %q in %v", want, names)
		}
	}
}
