// Package render turns resolved documents into HTML or Markdown output and
// wraps HTML output in the layout chain named by front matter.
package render
