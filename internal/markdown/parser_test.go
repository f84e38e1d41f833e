package markdown

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-article/internal/pipelineerr"
	"github.com/goliatone/go-article/pkg/interfaces"
)

func TestParseFrontMatter(t *testing.T) {
	fm, body, err := ParseFrontMatter([]byte("---\ntitle: X\n---\nbody"))
	if err != nil {
		t.Fatalf("ParseFrontMatter: %v", err)
	}

	if fm.Format != interfaces.FrontMatterYAML {
		t.Fatalf("expected yaml format, got %q", fm.Format)
	}
	if !reflect.DeepEqual(fm.Values, map[string]any{"title": "X"}) {
		t.Fatalf("unexpected front matter %#v", fm.Values)
	}
	if string(body) != "body" {
		t.Fatalf("expected body %q, got %q", "body", string(body))
	}
}

func TestParseFrontMatterWithoutBlock(t *testing.T) {
	source := []byte("# Heading\n\ntitle: not metadata\n")

	fm, body, err := ParseFrontMatter(source)
	if err != nil {
		t.Fatalf("ParseFrontMatter: %v", err)
	}
	if fm.Len() != 0 || fm.Format != interfaces.FrontMatterNone {
		t.Fatalf("expected empty front matter, got %#v", fm)
	}
	if string(body) != string(source) {
		t.Fatalf("expected entire source as body, got %q", string(body))
	}
}

func TestParseFrontMatterUnclosed(t *testing.T) {
	_, _, err := ParseFrontMatter([]byte("---\ntitle: X\nbody without a closing delimiter\n"))
	if !errors.Is(err, pipelineerr.ErrParse) {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestParseFrontMatterRejectsNestedMappings(t *testing.T) {
	_, _, err := ParseFrontMatter([]byte("---\nauthor:\n  name: Ada\n---\nbody"))
	var parseErr *pipelineerr.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
	if !strings.Contains(parseErr.Error(), "author") {
		t.Fatalf("expected offending key in message, got %q", parseErr.Error())
	}
}

func TestParseFrontMatterTOML(t *testing.T) {
	fm, body, err := ParseFrontMatter([]byte("+++\ntitle = \"Nodes\"\nweight = 3\n+++\ntext\n"))
	if err != nil {
		t.Fatalf("ParseFrontMatter: %v", err)
	}
	if fm.Format != interfaces.FrontMatterTOML {
		t.Fatalf("expected toml format, got %q", fm.Format)
	}
	if fm.Values["title"] != "Nodes" || fm.Values["weight"] != 3 {
		t.Fatalf("unexpected values %#v", fm.Values)
	}
	if string(body) != "text\n" {
		t.Fatalf("unexpected body %q", string(body))
	}
}

func TestParseFrontMatterEmptyBlock(t *testing.T) {
	fm, body, err := ParseFrontMatter([]byte("---\n---\nhello"))
	if err != nil {
		t.Fatalf("ParseFrontMatter: %v", err)
	}
	if fm.Len() != 0 || string(body) != "hello" {
		t.Fatalf("unexpected result %#v %q", fm, string(body))
	}
}

func TestParseFrontMatterRejectsIntegerOverflow(t *testing.T) {
	_, _, err := ParseFrontMatter([]byte("---\nbig: 18446744073709551615\n---\nb"))
	var parseErr *pipelineerr.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
	if !strings.Contains(parseErr.Error(), "big") {
		t.Fatalf("expected offending key in message, got %q", parseErr.Error())
	}

	fm, _, err := ParseFrontMatter([]byte("---\nmax: 9223372036854775807\n---\nb"))
	if err != nil {
		t.Fatalf("ParseFrontMatter: %v", err)
	}
	encoded, err := SerializeFrontMatter(fm)
	if err != nil {
		t.Fatalf("SerializeFrontMatter: %v", err)
	}
	if !strings.Contains(string(encoded), "max: 9223372036854775807") {
		t.Fatalf("expected max int64 to survive, got %q", encoded)
	}
}

func TestParseFrontMatterRejectsDocumentEndMarker(t *testing.T) {
	_, _, err := ParseFrontMatter([]byte("---\ntitle: X\n...\nbody\n---\nmore"))
	var parseErr *pipelineerr.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
	if parseErr.Line != 3 {
		t.Fatalf("expected marker on line 3, got %d", parseErr.Line)
	}
}

func TestParseFrontMatterDecodesOnlyTheBlock(t *testing.T) {
	fm, body, err := ParseFrontMatter([]byte("---\ntitle: X\n---\n---\nnot: metadata\n---\n"))
	if err != nil {
		t.Fatalf("ParseFrontMatter: %v", err)
	}
	if !reflect.DeepEqual(fm.Values, map[string]any{"title": "X"}) {
		t.Fatalf("unexpected front matter %#v", fm.Values)
	}
	if string(body) != "---\nnot: metadata\n---\n" {
		t.Fatalf("unexpected body %q", string(body))
	}
}

func TestFrontMatterRoundTrip(t *testing.T) {
	source := []byte(`---
title: "Scene graph: nodes"
weight: 7
ratio: 2.0
published: true
date: "2024-01-02"
zip: "01234"
answer: "yes"
tags:
  - rendering
  - graphs
---
body
`)
	fm, _, err := ParseFrontMatter(source)
	if err != nil {
		t.Fatalf("ParseFrontMatter: %v", err)
	}

	encoded, err := SerializeFrontMatter(fm)
	if err != nil {
		t.Fatalf("SerializeFrontMatter: %v", err)
	}

	again, body, err := ParseFrontMatter(append(encoded, []byte("body\n")...))
	if err != nil {
		t.Fatalf("re-parse: %v\n%s", err, encoded)
	}
	if !reflect.DeepEqual(fm.Values, again.Values) {
		t.Fatalf("round trip mismatch\nbefore: %#v\nafter:  %#v\nyaml:\n%s", fm.Values, again.Values, encoded)
	}
	if string(body) != "body\n" {
		t.Fatalf("unexpected body after round trip %q", string(body))
	}
}

func TestSerializeEmptyFrontMatter(t *testing.T) {
	encoded, err := SerializeFrontMatter(interfaces.FrontMatter{})
	if err != nil || len(encoded) != 0 {
		t.Fatalf("expected empty output, got %q %v", encoded, err)
	}
}

type lineScanner struct{}

func (lineScanner) Scan(body string) ([]interfaces.Segment, map[string]*interfaces.CaptureBlock, error) {
	if strings.Contains(body, "BROKEN") {
		return nil, nil, &pipelineerr.ParseError{Name: "broken", Line: 2, Reason: "capture opened but never closed"}
	}
	return []interfaces.Segment{{Kind: interfaces.SegmentText, Text: body, Line: 1}}, map[string]*interfaces.CaptureBlock{}, nil
}

func TestBuildDocument(t *testing.T) {
	modified := time.Now().UTC()
	source := []byte("---\ntitle: Nodes\n---\nhello\n")

	doc, err := BuildDocument("_posts/2024-01-02-nodes.md", source, modified, lineScanner{})
	if err != nil {
		t.Fatalf("BuildDocument: %v", err)
	}

	if doc.Path != "_posts/2024-01-02-nodes.md" {
		t.Fatalf("expected Path to be set, got %q", doc.Path)
	}
	if doc.ID == uuid.Nil {
		t.Fatalf("expected deterministic id")
	}
	if len(doc.Checksum) != 32 {
		t.Fatalf("expected sha256 checksum, got %d bytes", len(doc.Checksum))
	}
	if !doc.LastModified.Equal(modified) {
		t.Fatalf("expected LastModified to equal the provided timestamp")
	}
	if len(doc.Segments) != 1 || doc.Segments[0].Line != 4 {
		t.Fatalf("expected body segment to start on line 4, got %#v", doc.Segments)
	}
}

func TestBuildDocumentStampsPathAndLine(t *testing.T) {
	_, err := BuildDocument("post.md", []byte("---\ntitle: A\n---\nx\nBROKEN\n"), time.Time{}, lineScanner{})

	var parseErr *pipelineerr.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
	if parseErr.Path != "post.md" || parseErr.Line != 5 {
		t.Fatalf("expected post.md:5, got %s:%d", parseErr.Path, parseErr.Line)
	}
}

func TestLoaderDiscoverSkipsUnderscoreDirectories(t *testing.T) {
	fsys := fstest.MapFS{
		"index.md":                    {Data: []byte("home")},
		"about.html":                  {Data: []byte("about")},
		"notes.txt":                   {Data: []byte("ignored")},
		"_posts/2024-01-02-nodes.md":  {Data: []byte("post")},
		"_includes/image.html":        {Data: []byte("partial")},
		"_layouts/default.html":       {Data: []byte("layout")},
		".git/HEAD.md":                {Data: []byte("hidden")},
		"guides/_draft.md":            {Data: []byte("hidden")},
		"guides/scene/graph.markdown": {Data: []byte("nested")},
	}

	loader := NewLoader(fsys, LoaderConfig{})
	paths, err := loader.Discover(context.Background(), ".")
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}

	want := []string{"_posts/2024-01-02-nodes.md", "about.html", "guides/scene/graph.markdown", "index.md"}
	if !reflect.DeepEqual(paths, want) {
		t.Fatalf("unexpected paths\nwant: %v\ngot:  %v", want, paths)
	}
}

func TestLoaderLoadFile(t *testing.T) {
	fsys := fstest.MapFS{
		"guides/intro.md": {Data: []byte("---\ntitle: Intro\n---\nWelcome\n"), ModTime: time.Unix(1700000000, 0)},
	}

	loader := NewLoader(fsys, LoaderConfig{Scanner: lineScanner{}})
	result, err := loader.LoadFile(context.Background(), "./guides/intro.md")
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if result.Document.Path != "guides/intro.md" {
		t.Fatalf("expected normalised path, got %q", result.Document.Path)
	}
	if result.Document.FrontMatter.String("title") != "Intro" {
		t.Fatalf("expected title, got %#v", result.Document.FrontMatter.Values)
	}
	if string(result.Source) != "---\ntitle: Intro\n---\nWelcome\n" {
		t.Fatalf("expected raw source to be kept")
	}
}

func TestGoldmarkParser_Parse(t *testing.T) {
	parser := NewGoldmarkParser(interfaces.ParseOptions{})

	html, err := parser.Parse([]byte("# Heading\n\nHello **world**"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	got := string(html)
	if !strings.Contains(got, "<h1") || !strings.Contains(got, "Heading</h1>") {
		t.Fatalf("expected rendered HTML to include <h1>Heading</h1>, got %q", got)
	}
	if !strings.Contains(got, "<strong>world</strong>") {
		t.Fatalf("expected rendered HTML to include <strong>, got %q", got)
	}
}

func TestGoldmarkParser_ParseWithOptions(t *testing.T) {
	parser := NewGoldmarkParser(interfaces.ParseOptions{})

	html, err := parser.ParseWithOptions([]byte("line one\nline two"), interfaces.ParseOptions{
		HardWraps: true,
	})
	if err != nil {
		t.Fatalf("ParseWithOptions: %v", err)
	}

	if !strings.Contains(string(html), "line one<br>") {
		t.Fatalf("expected hard wraps in HTML output, got %q", string(html))
	}
}

func TestGoldmarkParser_PassesRawHTMLUnlessSafe(t *testing.T) {
	parser := NewGoldmarkParser(interfaces.ParseOptions{})
	source := []byte("<figure class=\"image\">x</figure>\n")

	html, err := parser.Parse(source)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !strings.Contains(string(html), "<figure class=\"image\">") {
		t.Fatalf("expected raw HTML to pass through, got %q", string(html))
	}

	safe, err := parser.ParseWithOptions(source, interfaces.ParseOptions{SafeMode: true})
	if err != nil {
		t.Fatalf("ParseWithOptions: %v", err)
	}
	if strings.Contains(string(safe), "<figure") {
		t.Fatalf("expected raw HTML to be omitted in safe mode, got %q", string(safe))
	}
}

func TestGoldmarkParser_ReusesEngines(t *testing.T) {
	parser := NewGoldmarkParser(interfaces.ParseOptions{Extensions: []string{"GFM", "gfm", "unknown"}})

	first := parser.engine(interfaces.ParseOptions{Extensions: []string{"gfm"}})
	second := parser.engine(interfaces.ParseOptions{Extensions: []string{" gfm ", "nope"}})
	if first != second {
		t.Fatal("expected equivalent options to share one engine")
	}
	if parser.engine(interfaces.ParseOptions{Extensions: []string{"gfm"}, SafeMode: true}) == first {
		t.Fatal("expected safe mode to build a separate engine")
	}

	html, err := parser.Parse([]byte("term\n: definition\n\nnote[^1]\n\n[^1]: footnote\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if strings.Contains(string(html), "<dl>") {
		t.Fatalf("expected configured extensions to replace the article defaults, got %q", html)
	}
}

func TestExtensionNamesDefaultsToArticleSet(t *testing.T) {
	got := extensionNames(nil)
	if strings.Join(got, ",") != "gfm,footnote,definition" {
		t.Fatalf("unexpected default extensions %v", got)
	}
}
