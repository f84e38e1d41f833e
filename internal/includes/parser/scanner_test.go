package parser

import (
	"errors"
	"strings"
	"testing"

	"github.com/goliatone/go-article/internal/pipelineerr"
	"github.com/goliatone/go-article/pkg/interfaces"
)

func TestScannerSplitsSegments(t *testing.T) {
	body := "Intro\n{% capture setup lang=\"cpp\" caption=\"Scene setup\" %}\n  Node* root = new Node();\n{% endcapture %}\n{% include code.html code=setup %}\nOutro\n"

	segments, captures, err := NewScanner().Scan(body)
	if err != nil {
		t.Fatalf("Scan() unexpected error: %v", err)
	}

	kinds := make([]interfaces.SegmentKind, 0, len(segments))
	for _, segment := range segments {
		kinds = append(kinds, segment.Kind)
	}
	want := []interfaces.SegmentKind{
		interfaces.SegmentText,
		interfaces.SegmentCapture,
		interfaces.SegmentText,
		interfaces.SegmentInclude,
		interfaces.SegmentText,
	}
	if len(kinds) != len(want) {
		t.Fatalf("expected kinds %v, got %v", want, kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("segment %d: expected %s, got %s", i, want[i], kinds[i])
		}
	}

	block := captures["setup"]
	if block == nil {
		t.Fatalf("expected capture setup, got %v", captures)
	}
	if block.Payload != "\n  Node* root = new Node();\n" {
		t.Fatalf("expected verbatim payload, got %q", block.Payload)
	}
	if block.Lang != "cpp" || block.Caption != "Scene setup" || block.Line != 2 {
		t.Fatalf("unexpected capture attributes %+v", block)
	}

	ref := segments[3].Include
	if ref.Name != "code" || ref.Line != 5 {
		t.Fatalf("unexpected include %+v", ref)
	}
	if len(ref.Params) != 1 || ref.Params[0].Name != "code" || ref.Params[0].Capture != "setup" {
		t.Fatalf("expected capture reference param, got %+v", ref.Params)
	}
}

func TestScannerKeepsMarkupInsideCaptureVerbatim(t *testing.T) {
	body := "{% capture snippet %}{% include image src=a.png %}{{include note body=x}}{% capture inner %}{% endcapture %}"

	segments, captures, err := NewScanner().Scan(body)
	if err != nil {
		t.Fatalf("Scan() unexpected error: %v", err)
	}
	if len(segments) != 1 || segments[0].Kind != interfaces.SegmentCapture {
		t.Fatalf("expected a single capture segment, got %+v", segments)
	}
	payload := captures["snippet"].Payload
	if payload != "{% include image src=a.png %}{{include note body=x}}{% capture inner %}" {
		t.Fatalf("expected untouched payload, got %q", payload)
	}
}

func TestScannerUnclosedCaptureNamesBlock(t *testing.T) {
	_, _, err := NewScanner().Scan("line one\n{% capture setup %}\nint x = 0;\n")

	var parseErr *pipelineerr.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
	if parseErr.Name != "setup" || parseErr.Line != 2 {
		t.Fatalf("expected capture setup at line 2, got %q line %d", parseErr.Name, parseErr.Line)
	}
	if !strings.Contains(parseErr.Error(), `"setup"`) {
		t.Fatalf("expected message to name the capture, got %q", parseErr.Error())
	}
}

func TestScannerRejectsStrayEndTags(t *testing.T) {
	for _, body := range []string{"text {% endcapture %}", "text {% endraw %}"} {
		if _, _, err := NewScanner().Scan(body); !errors.Is(err, pipelineerr.ErrParse) {
			t.Fatalf("expected parse error for %q, got %v", body, err)
		}
	}
}

func TestScannerRejectsDuplicateCapture(t *testing.T) {
	body := "{% capture a %}1{% endcapture %}{% capture a %}2{% endcapture %}"
	if _, _, err := NewScanner().Scan(body); !errors.Is(err, pipelineerr.ErrParse) {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestScannerRawBlock(t *testing.T) {
	segments, _, err := NewScanner().Scan("A {% raw %}{% include image %} {{include x}}{% endraw %} B")
	if err != nil {
		t.Fatalf("Scan() unexpected error: %v", err)
	}
	if len(segments) != 1 || segments[0].Kind != interfaces.SegmentText {
		t.Fatalf("expected raw content merged into one text segment, got %+v", segments)
	}
	if segments[0].Text != "A {% include image %} {{include x}} B" {
		t.Fatalf("unexpected text %q", segments[0].Text)
	}

	if _, _, err := NewScanner().Scan("{% raw %}never closed"); !errors.Is(err, pipelineerr.ErrParse) {
		t.Fatalf("expected parse error for unclosed raw, got %v", err)
	}
}

func TestScannerLeavesUnknownTagsAsText(t *testing.T) {
	segments, _, err := NewScanner().Scan("{% if page.draft %}draft{% endif %}")
	if err != nil {
		t.Fatalf("Scan() unexpected error: %v", err)
	}
	if len(segments) != 1 || segments[0].Text != "{% if page.draft %}draft{% endif %}" {
		t.Fatalf("expected literal text, got %+v", segments)
	}
}

func TestScannerIncludeParams(t *testing.T) {
	body := `{% include figure.html "hero.png" alt='A "scene"' title=page.title width=640 note=undefined %}`

	segments, _, err := NewScanner().Scan(body)
	if err != nil {
		t.Fatalf("Scan() unexpected error: %v", err)
	}
	ref := segments[0].Include
	if ref.Name != "figure" {
		t.Fatalf("expected extension to be stripped, got %q", ref.Name)
	}
	if ref.Raw != body {
		t.Fatalf("expected raw marker text, got %q", ref.Raw)
	}

	params := ref.Params
	if len(params) != 5 {
		t.Fatalf("expected 5 params, got %+v", params)
	}
	if !params[0].Positional || params[0].Value != "hero.png" {
		t.Fatalf("expected positional literal, got %+v", params[0])
	}
	if params[1].Name != "alt" || params[1].Value != `A "scene"` {
		t.Fatalf("expected single-quoted value, got %+v", params[1])
	}
	if params[2].PageKey != "title" {
		t.Fatalf("expected front matter reference, got %+v", params[2])
	}
	if params[3].Value != "640" {
		t.Fatalf("expected literal width, got %+v", params[3])
	}
	if params[4].Capture != "" || params[4].Value != "undefined" {
		t.Fatalf("expected unknown identifier to stay literal, got %+v", params[4])
	}
}

func TestScannerRejectsIncludeWithoutName(t *testing.T) {
	if _, _, err := NewScanner().Scan("{% include %}"); !errors.Is(err, pipelineerr.ErrParse) {
		t.Fatalf("expected parse error, got %v", err)
	}
	if _, _, err := NewScanner().Scan(`{% include note body="open %}`); !errors.Is(err, pipelineerr.ErrParse) {
		t.Fatalf("expected parse error for unterminated quote, got %v", err)
	}
}

func TestScannerBraceSyntax(t *testing.T) {
	segments, _, err := NewScanner().Scan("before {{include foo param=bar}} after")
	if err != nil {
		t.Fatalf("Scan() unexpected error: %v", err)
	}
	if len(segments) != 3 || segments[1].Kind != interfaces.SegmentInclude {
		t.Fatalf("expected include segment, got %+v", segments)
	}
	ref := segments[1].Include
	if ref.Name != "foo" || len(ref.Params) != 1 || ref.Params[0].Name != "param" || ref.Params[0].Value != "bar" {
		t.Fatalf("unexpected include %+v", ref)
	}

	segments, _, err = NewScanner(WithBraceSyntax(false)).Scan("before {{include foo param=bar}} after")
	if err != nil {
		t.Fatalf("Scan() unexpected error: %v", err)
	}
	if len(segments) != 1 || segments[0].Kind != interfaces.SegmentText {
		t.Fatalf("expected brace marker to stay literal when disabled, got %+v", segments)
	}
}

func TestBracePreprocessorIgnoresPlaceholders(t *testing.T) {
	input := "{{ include.src }} and {{include image src=a.png}}"
	got := NewBracePreprocessor().Process(input)
	want := "{{ include.src }} and {% include image src=a.png %}"
	if got != want {
		t.Fatalf("Process() mismatch\n got: %q\nwant: %q", got, want)
	}
}
