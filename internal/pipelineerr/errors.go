// Package pipelineerr defines the error kinds raised by the article pipeline.
// Every kind is fatal to the document being processed and never to its
// siblings in a batch.
package pipelineerr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrParse matches malformed front matter and unclosed capture or raw blocks.
	ErrParse = errors.New("article: parse error")
	// ErrResolution matches inclusion markers naming an unknown partial.
	ErrResolution = errors.New("article: resolution error")
	// ErrMissingParameter matches partials invoked without a required parameter.
	ErrMissingParameter = errors.New("article: missing parameter")
	// ErrRender matches unresolved markers or layouts reaching the final render.
	ErrRender = errors.New("article: render error")
)

// ParseError reports a syntactic failure while reading a document.
type ParseError struct {
	Path string
	// Name is the declared capture or block name when the failure concerns one.
	Name   string
	Line   int
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	var builder strings.Builder
	builder.WriteString("parse error")
	writeLocation(&builder, e.Path, e.Line)
	if e.Name != "" {
		fmt.Fprintf(&builder, " in %q", e.Name)
	}
	if e.Reason != "" {
		builder.WriteString(": ")
		builder.WriteString(e.Reason)
	}
	if e.Err != nil {
		builder.WriteString(": ")
		builder.WriteString(e.Err.Error())
	}
	return builder.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// ResolutionError reports an inclusion marker naming a partial that is not
// registered. A non-empty Reason marks a registered partial whose invocation
// was rejected: bad parameter values, schema or sanitizer failures, or a
// capture that cannot be consumed.
type ResolutionError struct {
	Path    string
	Partial string
	Line    int
	Reason  string
}

func (e *ResolutionError) Error() string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "resolution error: partial %q", e.Partial)
	writeLocation(&builder, e.Path, e.Line)
	reason := e.Reason
	if reason == "" {
		reason = "not found"
	}
	builder.WriteString(": ")
	builder.WriteString(reason)
	return builder.String()
}

func (e *ResolutionError) Is(target error) bool { return target == ErrResolution }

// MissingParameterError reports a partial parameter that was neither supplied
// nor defaulted.
type MissingParameterError struct {
	Path      string
	Partial   string
	Parameter string
	Line      int
}

func (e *MissingParameterError) Error() string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "missing parameter %q for partial %q", e.Parameter, e.Partial)
	writeLocation(&builder, e.Path, e.Line)
	return builder.String()
}

func (e *MissingParameterError) Is(target error) bool { return target == ErrMissingParameter }

// RenderError reports a failure composing the final output.
type RenderError struct {
	Path   string
	Reason string
	Err    error
}

func (e *RenderError) Error() string {
	var builder strings.Builder
	builder.WriteString("render error")
	writeLocation(&builder, e.Path, 0)
	if e.Reason != "" {
		builder.WriteString(": ")
		builder.WriteString(e.Reason)
	}
	if e.Err != nil {
		builder.WriteString(": ")
		builder.WriteString(e.Err.Error())
	}
	return builder.String()
}

func (e *RenderError) Unwrap() error { return e.Err }

func (e *RenderError) Is(target error) bool { return target == ErrRender }

func writeLocation(builder *strings.Builder, path string, line int) {
	if path == "" && line <= 0 {
		return
	}
	builder.WriteString(" at ")
	if path != "" {
		builder.WriteString(path)
	}
	if line > 0 {
		if path != "" {
			builder.WriteByte(':')
		} else {
			builder.WriteString("line ")
		}
		fmt.Fprintf(builder, "%d", line)
	}
}

// WithPath stamps the document path onto a pipeline error that does not carry
// one yet. Other errors are returned unchanged.
func WithPath(err error, path string) error {
	if err == nil || path == "" {
		return err
	}
	var parseErr *ParseError
	if errors.As(err, &parseErr) && parseErr.Path == "" {
		parseErr.Path = path
	}
	var resolutionErr *ResolutionError
	if errors.As(err, &resolutionErr) && resolutionErr.Path == "" {
		resolutionErr.Path = path
	}
	var missingErr *MissingParameterError
	if errors.As(err, &missingErr) && missingErr.Path == "" {
		missingErr.Path = path
	}
	var renderErr *RenderError
	if errors.As(err, &renderErr) && renderErr.Path == "" {
		renderErr.Path = path
	}
	return err
}
