package site

import (
	"path"
	"regexp"
	"strings"

	"github.com/goliatone/go-slug"

	"github.com/goliatone/go-article/pkg/interfaces"
)

const postsDir = "_posts"

var datedName = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})-(.+)$`)

// OutputPath maps a source document to its path under the destination
// directory. A `permalink` front matter key wins; dated post names become
// YYYY/MM/DD/slug; every other file keeps its directory and gets a slugged
// base name.
func OutputPath(doc *interfaces.Document, format interfaces.OutputFormat) string {
	ext := ".html"
	if format == interfaces.OutputMarkdown {
		ext = ".md"
	}

	if permalink := strings.TrimSpace(doc.FrontMatter.String("permalink")); permalink != "" {
		return permalinkPath(permalink, ext)
	}

	dir, file := path.Split(path.Clean(doc.Path))
	base := strings.TrimSuffix(file, path.Ext(file))

	var segments []string
	for _, segment := range strings.Split(strings.Trim(dir, "/"), "/") {
		if segment == "" || segment == "." || segment == postsDir {
			continue
		}
		segments = append(segments, segment)
	}

	if match := datedName.FindStringSubmatch(base); match != nil {
		segments = append(segments, match[1], match[2], match[3])
		base = match[4]
	}
	segments = append(segments, slugify(base)+ext)
	return path.Join(segments...)
}

func permalinkPath(permalink, ext string) string {
	clean := strings.TrimPrefix(path.Clean("/"+permalink), "/")
	if clean == "" {
		return "index" + ext
	}
	if strings.HasSuffix(permalink, "/") || path.Ext(clean) == "" {
		return path.Join(clean, "index"+ext)
	}
	return clean
}

func slugify(name string) string {
	if name == "index" {
		return name
	}
	normalized, err := slug.Normalize(name)
	if err != nil || normalized == "" {
		return name
	}
	return normalized
}
