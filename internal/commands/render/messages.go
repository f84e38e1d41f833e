package rendercmd

import (
	"io"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const renderDocumentMessageType = "article.render.document"

// RenderDocumentCommand renders one document through the article pipeline.
type RenderDocumentCommand struct {
	// Path names the document. It is read from the source tree unless Source is set.
	Path string `json:"path"`
	// Source, when non-empty, is rendered as the content of Path.
	Source string `json:"source,omitempty"`
	// Output receives the rendered text.
	Output io.Writer `json:"-"`
}

// Type implements command.Message.
func (RenderDocumentCommand) Type() string { return renderDocumentMessageType }

// Validate ensures a document path is present.
func (cmd RenderDocumentCommand) Validate() error {
	return validation.ValidateStruct(&cmd,
		validation.Field(&cmd.Path, validation.Required, validation.By(func(value any) error {
			path, _ := value.(string)
			if strings.TrimSpace(path) == "" {
				return validation.NewError("article.render.document.path_required", "path is required")
			}
			if strings.ContainsRune(path, 0) {
				return validation.NewError("article.render.document.path_invalid", "path contains a NUL byte")
			}
			return nil
		})),
	)
}
