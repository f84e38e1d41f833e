package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/goliatone/go-article/internal/pipelineerr"
	"github.com/goliatone/go-article/pkg/interfaces"
)

const (
	tagCapture    = "capture"
	tagEndCapture = "endcapture"
	tagRaw        = "raw"
	tagEndRaw     = "endraw"
	tagInclude    = "include"
)

var (
	tagPattern        = regexp.MustCompile(`(?s)\{%-?\s*([A-Za-z_][A-Za-z0-9_]*)(.*?)-?%\}`)
	endCapturePattern = regexp.MustCompile(`\{%-?\s*endcapture\s*-?%\}`)
	endRawPattern     = regexp.MustCompile(`\{%-?\s*endraw\s*-?%\}`)
)

// partialExtensions are stripped from include names so `image.html` and
// `image` address the same partial.
var partialExtensions = []string{".html", ".md", ".liquid"}

// Scanner splits a document body into ordered segments. Capture payloads and
// raw blocks are taken verbatim; unknown tags stay in the surrounding text.
type Scanner struct {
	preprocessor *BracePreprocessor
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithBraceSyntax enables rewriting of `{{include name ...}}` markers.
func WithBraceSyntax(enabled bool) Option {
	return func(s *Scanner) {
		if enabled {
			s.preprocessor = NewBracePreprocessor()
		} else {
			s.preprocessor = nil
		}
	}
}

// NewScanner creates a scanner. Brace syntax is enabled by default.
func NewScanner(opts ...Option) *Scanner {
	s := &Scanner{preprocessor: NewBracePreprocessor()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Scan returns the body's segments and the capture table keyed by name.
// Line numbers are 1-based and relative to body.
func (s *Scanner) Scan(body string) ([]interfaces.Segment, map[string]*interfaces.CaptureBlock, error) {
	if s != nil && s.preprocessor != nil {
		body = s.preprocessor.Process(body)
	}

	state := &scanState{
		body:     body,
		captures: map[string]*interfaces.CaptureBlock{},
	}

	pos := 0
	for pos < len(body) {
		loc := tagPattern.FindStringSubmatchIndex(body[pos:])
		if loc == nil {
			state.appendText(pos, body[pos:])
			break
		}

		start, end := pos+loc[0], pos+loc[1]
		name := body[pos+loc[2] : pos+loc[3]]
		args := strings.TrimSpace(body[pos+loc[4] : pos+loc[5]])

		switch name {
		case tagCapture:
			state.appendText(pos, body[pos:start])
			next, err := state.capture(start, end, args)
			if err != nil {
				return nil, nil, err
			}
			pos = next
		case tagRaw:
			state.appendText(pos, body[pos:start])
			next, err := state.raw(start, end)
			if err != nil {
				return nil, nil, err
			}
			pos = next
		case tagInclude:
			state.appendText(pos, body[pos:start])
			if err := state.include(start, end, args); err != nil {
				return nil, nil, err
			}
			pos = end
		case tagEndCapture, tagEndRaw:
			return nil, nil, &pipelineerr.ParseError{
				Line:   state.lineAt(start),
				Reason: fmt.Sprintf("%s without a matching opening tag", name),
			}
		default:
			state.appendText(pos, body[pos:end])
			pos = end
		}
	}

	return state.segments, state.captures, nil
}

type scanState struct {
	body     string
	segments []interfaces.Segment
	captures map[string]*interfaces.CaptureBlock
}

func (s *scanState) lineAt(offset int) int {
	return strings.Count(s.body[:offset], "\n") + 1
}

// appendText adds literal text, merging with a preceding text segment.
func (s *scanState) appendText(offset int, text string) {
	if text == "" {
		return
	}
	if n := len(s.segments); n > 0 && s.segments[n-1].Kind == interfaces.SegmentText {
		s.segments[n-1].Text += text
		return
	}
	s.segments = append(s.segments, interfaces.Segment{
		Kind: interfaces.SegmentText,
		Text: text,
		Line: s.lineAt(offset),
	})
}

func (s *scanState) capture(start, end int, args string) (int, error) {
	line := s.lineAt(start)
	tokens, err := tokenize(args)
	if err != nil {
		return 0, &pipelineerr.ParseError{Line: line, Reason: "invalid capture arguments", Err: err}
	}
	if len(tokens) == 0 || tokens[0].hasKey || tokens[0].value == "" {
		return 0, &pipelineerr.ParseError{Line: line, Reason: "capture requires a name"}
	}

	block := &interfaces.CaptureBlock{Name: tokens[0].value, Line: line}
	for _, tok := range tokens[1:] {
		switch tok.key {
		case "lang":
			block.Lang = tok.value
		case "caption":
			block.Caption = tok.value
		}
	}

	closing := endCapturePattern.FindStringIndex(s.body[end:])
	if closing == nil {
		return 0, &pipelineerr.ParseError{
			Name:   block.Name,
			Line:   line,
			Reason: "capture opened but never closed",
		}
	}
	if _, exists := s.captures[block.Name]; exists {
		return 0, &pipelineerr.ParseError{
			Name:   block.Name,
			Line:   line,
			Reason: "capture name already defined",
		}
	}

	block.Payload = s.body[end : end+closing[0]]
	s.captures[block.Name] = block
	s.segments = append(s.segments, interfaces.Segment{
		Kind:    interfaces.SegmentCapture,
		Capture: block,
		Line:    line,
	})
	return end + closing[1], nil
}

func (s *scanState) raw(start, end int) (int, error) {
	closing := endRawPattern.FindStringIndex(s.body[end:])
	if closing == nil {
		return 0, &pipelineerr.ParseError{
			Name:   tagRaw,
			Line:   s.lineAt(start),
			Reason: "raw block opened but never closed",
		}
	}
	s.appendText(end, s.body[end:end+closing[0]])
	return end + closing[1], nil
}

func (s *scanState) include(start, end int, args string) error {
	line := s.lineAt(start)
	tokens, err := tokenize(args)
	if err != nil {
		return &pipelineerr.ParseError{Line: line, Reason: "invalid include arguments", Err: err}
	}
	if len(tokens) == 0 || tokens[0].hasKey || tokens[0].value == "" {
		return &pipelineerr.ParseError{Line: line, Reason: "include requires a partial name"}
	}

	ref := &interfaces.IncludeRef{
		Name:   PartialName(tokens[0].value),
		Params: includeParams(tokens[1:], s.captures),
		Line:   line,
		Raw:    s.body[start:end],
	}
	s.segments = append(s.segments, interfaces.Segment{
		Kind:    interfaces.SegmentInclude,
		Include: ref,
		Line:    line,
	})
	return nil
}

// PartialName normalises an include target to its registry key.
func PartialName(name string) string {
	name = strings.TrimSpace(name)
	lower := strings.ToLower(name)
	for _, ext := range partialExtensions {
		if strings.HasSuffix(lower, ext) {
			return name[:len(name)-len(ext)]
		}
	}
	return name
}
