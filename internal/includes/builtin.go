package includes

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/goliatone/go-article/pkg/interfaces"
)

// SourceBuiltIn marks definitions shipped with the package.
const SourceBuiltIn = "builtin"

// BuiltInDefinitions returns the core partial catalogue.
func BuiltInDefinitions() []interfaces.PartialDefinition {
	return []interfaces.PartialDefinition{
		imageDefinition(),
		codeDefinition(),
		noteDefinition(),
	}
}

var imageTemplate = template.Must(template.New("image").Parse(
	`<figure class="partial partial--image">` +
		`<img src="{{ .src }}" alt="{{ .alt }}"{{ if gt .width 0 }} width="{{ .width }}"{{ end }} loading="lazy">` +
		`{{ if .caption }}<figcaption>{{ .caption }}</figcaption>{{ end }}` +
		`</figure>`))

func imageDefinition() interfaces.PartialDefinition {
	sanitizer := NewSanitizer()
	return interfaces.PartialDefinition{
		Name:        "image",
		Description: "Image figure with optional caption",
		Source:      SourceBuiltIn,
		Params: []interfaces.PartialParam{
			{
				Name:     "src",
				Type:     interfaces.PartialParamString,
				Required: true,
				Validate: sanitizer.URLValidator(),
			},
			{
				Name:    "alt",
				Type:    interfaces.PartialParamString,
				Default: "",
			},
			{
				Name: "caption",
				Type: interfaces.PartialParamString,
			},
			{
				Name:    "width",
				Type:    interfaces.PartialParamInt,
				Default: 0,
			},
		},
		Handler: func(_ interfaces.PartialContext, params map[string]any) (string, error) {
			return executeTemplate(imageTemplate, withDefaults(params, map[string]any{"caption": ""}))
		},
	}
}

var codeCaptionTemplate = template.Must(template.New("code-caption").Parse(
	`<div class="partial partial--code-caption" data-lang="{{ .lang }}">{{ .caption }}</div>`))

var codeFallbackTemplate = template.Must(template.New("code").Parse(
	`<pre class="partial partial--code" data-lang="{{ .lang }}"><code>{{ .code }}</code></pre>`))

func codeDefinition() interfaces.PartialDefinition {
	return interfaces.PartialDefinition{
		Name:        "code",
		Description: "Syntax highlighted code block",
		Source:      SourceBuiltIn,
		Params: []interfaces.PartialParam{
			{
				Name:     "code",
				Type:     interfaces.PartialParamString,
				Required: true,
			},
			{
				Name:    "lang",
				Type:    interfaces.PartialParamString,
				Default: "text",
			},
			{
				Name: "caption",
				Type: interfaces.PartialParamString,
			},
			{
				Name:    "line_numbers",
				Type:    interfaces.PartialParamBool,
				Default: false,
			},
		},
		Handler: renderCode,
	}
}

// renderCode emits an optional caption block followed by a <pre> block. The
// two are separated by a blank line so Markdown treats the <pre> as its own
// raw HTML block.
func renderCode(ctx interfaces.PartialContext, params map[string]any) (string, error) {
	code, _ := params["code"].(string)
	lang, _ := params["lang"].(string)
	caption, _ := params["caption"].(string)
	lineNumbers, _ := params["line_numbers"].(bool)

	var body string
	if ctx.Highlighter != nil {
		highlighted, err := ctx.Highlighter.Highlight(code, lang, interfaces.HighlightOptions{LineNumbers: lineNumbers})
		if err != nil {
			return "", err
		}
		body = strings.TrimRight(highlighted, "\n")
	} else {
		rendered, err := executeTemplate(codeFallbackTemplate, map[string]any{"code": code, "lang": lang})
		if err != nil {
			return "", err
		}
		body = rendered
	}

	if strings.TrimSpace(caption) == "" {
		return body, nil
	}
	head, err := executeTemplate(codeCaptionTemplate, map[string]any{"caption": caption, "lang": lang})
	if err != nil {
		return "", err
	}
	return head + "\n\n" + body, nil
}

var noteTemplate = template.Must(template.New("note").Parse(
	`<div class="partial partial--note partial--note-{{ .type }}">` +
		`{{ if .title }}<p class="partial__title">{{ .title }}</p>{{ end }}` +
		`<p>{{ .body }}</p>` +
		`</div>`))

func noteDefinition() interfaces.PartialDefinition {
	validateType := func(value any) error {
		str, ok := value.(string)
		if !ok {
			return fmt.Errorf("note type must be string")
		}
		switch str {
		case "info", "tip", "warning", "danger":
			return nil
		default:
			return fmt.Errorf("note type %q not supported", str)
		}
	}

	return interfaces.PartialDefinition{
		Name:        "note",
		Description: "Displays contextual callouts",
		Source:      SourceBuiltIn,
		Params: []interfaces.PartialParam{
			{
				Name:     "body",
				Type:     interfaces.PartialParamString,
				Required: true,
			},
			{
				Name:     "type",
				Type:     interfaces.PartialParamString,
				Default:  "info",
				Validate: validateType,
			},
			{
				Name: "title",
				Type: interfaces.PartialParamString,
			},
		},
		Handler: func(_ interfaces.PartialContext, params map[string]any) (string, error) {
			return executeTemplate(noteTemplate, withDefaults(params, map[string]any{"title": ""}))
		},
	}
}

func executeTemplate(tmpl *template.Template, data map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func withDefaults(params map[string]any, defaults map[string]any) map[string]any {
	out := make(map[string]any, len(params)+len(defaults))
	for key, value := range defaults {
		out[key] = value
	}
	for key, value := range params {
		out[key] = value
	}
	return out
}
