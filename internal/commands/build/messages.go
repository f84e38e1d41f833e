package buildcmd

import (
	"path"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const buildSiteMessageType = "article.site.build"

// BuildSiteCommand renders the configured source tree into the destination.
type BuildSiteCommand struct {
	// DryRun renders every document without writing outputs.
	DryRun bool `json:"dry_run,omitempty"`
	// Force ignores the incremental build index.
	Force bool `json:"force,omitempty"`
	// Paths limits the build to these source-relative documents.
	Paths []string `json:"paths,omitempty"`
}

// Type implements command.Message.
func (BuildSiteCommand) Type() string { return buildSiteMessageType }

// Validate ensures every listed path stays inside the source tree.
func (cmd BuildSiteCommand) Validate() error {
	return validation.ValidateStruct(&cmd,
		validation.Field(&cmd.Paths, validation.Each(validation.Required, validation.By(func(value any) error {
			p, _ := value.(string)
			p = strings.TrimSpace(p)
			if p == "" {
				return validation.NewError("article.site.build.path_required", "path is required")
			}
			clean := path.Clean(p)
			if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
				return validation.NewError("article.site.build.path_outside_source", "path must be relative to the source directory")
			}
			return nil
		}))),
	)
}
