package parser

import (
	"regexp"
	"strings"
)

var braceTokenPattern = regexp.MustCompile(`(?s)\{%-?\s*(capture|endcapture|raw|endraw)\b.*?-?%\}|\{\{\s*include\s+(.*?)\s*\}\}`)

// BracePreprocessor converts `{{include name key=value}}` markers into the
// `{% include name key=value %}` tag form. Capture payloads and raw blocks are
// left untouched.
type BracePreprocessor struct{}

// NewBracePreprocessor constructs a preprocessor.
func NewBracePreprocessor() *BracePreprocessor {
	return &BracePreprocessor{}
}

// Process rewrites brace markers found outside verbatim blocks.
func (p *BracePreprocessor) Process(content string) string {
	if !strings.Contains(content, "{{") {
		return content
	}

	matches := braceTokenPattern.FindAllStringSubmatchIndex(content, -1)
	if len(matches) == 0 {
		return content
	}

	var (
		builder  strings.Builder
		last     int
		awaiting string
	)
	builder.Grow(len(content))

	for _, m := range matches {
		if m[2] >= 0 {
			tag := content[m[2]:m[3]]
			switch {
			case awaiting == "" && (tag == tagCapture || tag == tagRaw):
				awaiting = "end" + tag
			case awaiting == tag:
				awaiting = ""
			}
			continue
		}
		if awaiting != "" {
			continue
		}

		builder.WriteString(content[last:m[0]])
		builder.WriteString("{% include ")
		builder.WriteString(content[m[4]:m[5]])
		builder.WriteString(" %}")
		last = m[1]
	}
	builder.WriteString(content[last:])
	return builder.String()
}
