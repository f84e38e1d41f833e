// Package markdown reads content files: it splits front matter from the body,
// builds immutable documents, discovers sources on disk, and converts Markdown
// bodies to HTML with goldmark.
package markdown
