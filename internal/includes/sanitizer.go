package includes

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-article/pkg/interfaces"
)

// Sanitizer is a conservative output filter: it rejects inline script tags
// and URLs with schemes outside an allow list.
type Sanitizer struct {
	allowedSchemes map[string]struct{}
}

// NewSanitizer returns a sanitizer allowing relative, http, https and mailto URLs.
func NewSanitizer() *Sanitizer {
	return &Sanitizer{
		allowedSchemes: map[string]struct{}{
			"http":   {},
			"https":  {},
			"mailto": {},
			"":       {},
		},
	}
}

// Sanitize rejects obvious script injections while preserving safe markup.
func (s *Sanitizer) Sanitize(html string) (string, error) {
	lower := strings.ToLower(html)
	if strings.Contains(lower, "<script") {
		return "", fmt.Errorf("includes: script tags are not allowed")
	}
	if strings.Contains(lower, "javascript:") {
		return "", fmt.Errorf("includes: javascript urls are not allowed")
	}
	return html, nil
}

// ValidateURL ensures the URL has an allowed scheme.
func (s *Sanitizer) ValidateURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return err
	}

	if _, ok := s.allowedSchemes[strings.ToLower(parsed.Scheme)]; !ok {
		return fmt.Errorf("includes: url scheme %q not permitted", parsed.Scheme)
	}
	return nil
}

// URLValidator adapts ValidateURL to a parameter validator.
func (s *Sanitizer) URLValidator() interfaces.PartialValidator {
	return func(value any) error {
		str, _ := value.(string)
		return s.ValidateURL(str)
	}
}

var _ interfaces.PartialSanitizer = (*Sanitizer)(nil)
