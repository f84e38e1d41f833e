package pipelineerr

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeParse            = "ARTICLE_PARSE_FAILED"
	TextCodePartialNotFound  = "ARTICLE_PARTIAL_NOT_FOUND"
	TextCodePartialInvalid   = "ARTICLE_PARTIAL_INVALID"
	TextCodeParameterMissing = "ARTICLE_PARAMETER_MISSING"
	TextCodeRender           = "ARTICLE_RENDER_FAILED"
)

// Categorize wraps pipeline errors with go-errors categories and text codes so
// command and CLI boundaries can report them uniformly. Errors that are already
// wrapped, or are not pipeline errors, pass through untouched.
func Categorize(err error) error {
	if err == nil || goerrors.IsWrapped(err) {
		return err
	}

	var missingErr *MissingParameterError
	if errors.As(err, &missingErr) {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "partial parameter missing").
			WithTextCode(TextCodeParameterMissing)
	}

	var resolutionErr *ResolutionError
	if errors.As(err, &resolutionErr) && resolutionErr.Reason != "" {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "partial invocation rejected").
			WithTextCode(TextCodePartialInvalid)
	}
	if errors.As(err, &resolutionErr) {
		return goerrors.Wrap(err, goerrors.CategoryNotFound, "partial could not be resolved").
			WithTextCode(TextCodePartialNotFound)
	}

	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "document could not be parsed").
			WithTextCode(TextCodeParse)
	}

	var renderErr *RenderError
	if errors.As(err, &renderErr) {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "document could not be rendered").
			WithTextCode(TextCodeRender)
	}

	return err
}
