package pipelineerr

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestErrorsMatchSentinels(t *testing.T) {
	cases := []struct {
		err      error
		sentinel error
	}{
		{&ParseError{Name: "setup"}, ErrParse},
		{&ResolutionError{Partial: "foo"}, ErrResolution},
		{&MissingParameterError{Partial: "image", Parameter: "src"}, ErrMissingParameter},
		{&RenderError{Reason: "unresolved include"}, ErrRender},
	}

	for _, tc := range cases {
		wrapped := fmt.Errorf("document: %w", tc.err)
		if !errors.Is(wrapped, tc.sentinel) {
			t.Fatalf("expected %T to match %v", tc.err, tc.sentinel)
		}
	}
}

func TestResolutionErrorNamesPartial(t *testing.T) {
	err := &ResolutionError{Partial: "foo", Path: "post.md", Line: 3}
	got := err.Error()
	if !strings.Contains(got, `"foo"`) || !strings.Contains(got, "post.md:3") {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestParseErrorNamesCapture(t *testing.T) {
	err := &ParseError{Name: "setup", Line: 7, Reason: "capture opened but never closed"}
	if !strings.Contains(err.Error(), `"setup"`) {
		t.Fatalf("expected capture name in message, got %q", err.Error())
	}
}

func TestWithPathFillsMissingPath(t *testing.T) {
	err := WithPath(fmt.Errorf("wrap: %w", &MissingParameterError{Partial: "code", Parameter: "code"}), "a.md")
	var missing *MissingParameterError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingParameterError, got %v", err)
	}
	if missing.Path != "a.md" {
		t.Fatalf("expected path to be stamped, got %q", missing.Path)
	}
}

func TestCategorizeAssignsCategories(t *testing.T) {
	err := Categorize(&ParseError{Name: "setup"})
	if !goerrors.IsCategory(err, goerrors.CategoryValidation) {
		t.Fatalf("expected validation category, got %v", err)
	}
	if !errors.Is(err, ErrParse) {
		t.Fatalf("expected categorised error to keep ErrParse chain")
	}

	err = Categorize(&ResolutionError{Partial: "foo"})
	if !goerrors.IsCategory(err, goerrors.CategoryNotFound) {
		t.Fatalf("expected not found category, got %v", err)
	}

	err = Categorize(&ResolutionError{Partial: "code", Reason: `capture "snippet" already consumed`})
	if !goerrors.IsCategory(err, goerrors.CategoryValidation) {
		t.Fatalf("expected rejected invocation to be a validation error, got %v", err)
	}
	var wrapped *goerrors.Error
	if !errors.As(err, &wrapped) || wrapped.TextCode != TextCodePartialInvalid {
		t.Fatalf("expected %s, got %v", TextCodePartialInvalid, err)
	}
	if !errors.Is(err, ErrResolution) {
		t.Fatalf("expected categorised error to keep ErrResolution chain")
	}

	plain := errors.New("boom")
	if Categorize(plain) != plain {
		t.Fatalf("expected unrelated errors to pass through")
	}
}
