package markdown

import (
	"crypto/sha256"
	"errors"
	"time"

	"github.com/goliatone/go-article/internal/identity"
	"github.com/goliatone/go-article/internal/pipelineerr"
	"github.com/goliatone/go-article/pkg/interfaces"
)

// BodyScanner splits a document body into ordered segments and its capture
// table.
type BodyScanner interface {
	Scan(body string) ([]interfaces.Segment, map[string]*interfaces.CaptureBlock, error)
}

// BuildDocument parses source into an immutable interfaces.Document. Segment
// lines are reported relative to the whole file, front matter included.
func BuildDocument(path string, source []byte, modified time.Time, scanner BodyScanner) (*interfaces.Document, error) {
	fm, body, err := ParseFrontMatter(source)
	if err != nil {
		return nil, pipelineerr.WithPath(err, path)
	}

	doc := &interfaces.Document{
		ID:           identity.DocumentUUID(path),
		Path:         path,
		FrontMatter:  fm,
		LastModified: modified,
	}
	sum := sha256.Sum256(source)
	doc.Checksum = sum[:]

	if scanner == nil {
		if len(body) > 0 {
			doc.Segments = []interfaces.Segment{{Kind: interfaces.SegmentText, Text: string(body), Line: 1}}
		}
		doc.Captures = map[string]*interfaces.CaptureBlock{}
		return doc, nil
	}

	segments, captures, err := scanner.Scan(string(body))
	if err != nil {
		return nil, pipelineerr.WithPath(shiftLines(err, bodyOffset(source, body)), path)
	}
	offset := bodyOffset(source, body)
	for i := range segments {
		segments[i].Line += offset
		if segments[i].Include != nil {
			segments[i].Include.Line += offset
		}
	}
	for _, capture := range captures {
		capture.Line += offset
	}
	doc.Segments = segments
	doc.Captures = captures
	return doc, nil
}

// bodyOffset counts the lines consumed by the front matter block.
func bodyOffset(source, body []byte) int {
	consumed := len(source) - len(body)
	if consumed <= 0 {
		return 0
	}
	lines := 0
	for _, b := range source[:consumed] {
		if b == '\n' {
			lines++
		}
	}
	return lines
}

func shiftLines(err error, offset int) error {
	if offset == 0 {
		return err
	}
	var parseErr *pipelineerr.ParseError
	if errors.As(err, &parseErr) && parseErr.Line > 0 {
		parseErr.Line += offset
	}
	return err
}
