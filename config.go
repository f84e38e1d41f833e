package article

import "github.com/goliatone/go-article/internal/runtimeconfig"

var (
	ErrSourceDirRequired       = runtimeconfig.ErrSourceDirRequired
	ErrDestinationDirRequired  = runtimeconfig.ErrDestinationDirRequired
	ErrIncludesDirRequired     = runtimeconfig.ErrIncludesDirRequired
	ErrRenderFormatInvalid     = runtimeconfig.ErrRenderFormatInvalid
	ErrRenderTimeoutInvalid    = runtimeconfig.ErrRenderTimeoutInvalid
	ErrBuildWorkersInvalid     = runtimeconfig.ErrBuildWorkersInvalid
	ErrIndexDriverUnknown      = runtimeconfig.ErrIndexDriverUnknown
	ErrIndexDSNRequired        = runtimeconfig.ErrIndexDSNRequired
	ErrLoggingProviderRequired = runtimeconfig.ErrLoggingProviderRequired
	ErrLoggingProviderUnknown  = runtimeconfig.ErrLoggingProviderUnknown
	ErrLoggingLevelInvalid     = runtimeconfig.ErrLoggingLevelInvalid
	ErrLoggingFormatInvalid    = runtimeconfig.ErrLoggingFormatInvalid
)

type (
	Config          = runtimeconfig.Config
	MarkdownConfig  = runtimeconfig.MarkdownConfig
	IncludesConfig  = runtimeconfig.IncludesConfig
	LayoutsConfig   = runtimeconfig.LayoutsConfig
	HighlightConfig = runtimeconfig.HighlightConfig
	RenderConfig    = runtimeconfig.RenderConfig
	BuildConfig     = runtimeconfig.BuildConfig
	IndexConfig     = runtimeconfig.IndexConfig
	LoggingConfig   = runtimeconfig.LoggingConfig
)

func DefaultConfig() Config {
	return runtimeconfig.DefaultConfig()
}

// LoadConfig decodes a _config.yml file over DefaultConfig.
func LoadConfig(path string) (Config, error) {
	return runtimeconfig.LoadFile(path)
}
