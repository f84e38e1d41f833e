package article

import "github.com/goliatone/go-article/internal/pipelineerr"

var (
	ErrParse            = pipelineerr.ErrParse
	ErrResolution       = pipelineerr.ErrResolution
	ErrMissingParameter = pipelineerr.ErrMissingParameter
	ErrRender           = pipelineerr.ErrRender
)

type (
	ParseError            = pipelineerr.ParseError
	ResolutionError       = pipelineerr.ResolutionError
	MissingParameterError = pipelineerr.MissingParameterError
	RenderError           = pipelineerr.RenderError
)

const (
	TextCodeParse            = pipelineerr.TextCodeParse
	TextCodePartialNotFound  = pipelineerr.TextCodePartialNotFound
	TextCodePartialInvalid   = pipelineerr.TextCodePartialInvalid
	TextCodeParameterMissing = pipelineerr.TextCodeParameterMissing
	TextCodeRender           = pipelineerr.TextCodeRender
)

// Categorize wraps pipeline errors with go-errors categories and text codes.
func Categorize(err error) error {
	return pipelineerr.Categorize(err)
}
