package interfaces

// MarkdownParser converts Markdown bodies into HTML once includes have been
// spliced in.
type MarkdownParser interface {
	// Parse converts Markdown into HTML using the parser's default settings.
	Parse(markdown []byte) ([]byte, error)
	// ParseWithOptions converts Markdown into HTML using the supplied overrides.
	ParseWithOptions(markdown []byte, opts ParseOptions) ([]byte, error)
}

// ParseOptions customises Markdown conversion, keeping option names readable
// for configuration unmarshalling and CLI flags.
type ParseOptions struct {
	Extensions []string
	HardWraps  bool
	SafeMode   bool
}
