package parser

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-article/pkg/interfaces"
)

const pagePrefix = "page."

type token struct {
	key    string
	value  string
	quoted bool
	hasKey bool
}

// tokenize splits tag arguments on whitespace, keeping quoted spans intact.
// Both `key=value` and `key="quoted value"` forms are recognised.
func tokenize(raw string) ([]token, error) {
	var (
		tokens []token
		i      int
	)
	for i < len(raw) {
		for i < len(raw) && isSpace(raw[i]) {
			i++
		}
		if i >= len(raw) {
			break
		}

		var tok token
		start := i
		for i < len(raw) && !isSpace(raw[i]) && raw[i] != '=' && !isQuote(raw[i]) {
			i++
		}
		word := raw[start:i]

		if i < len(raw) && raw[i] == '=' {
			if word == "" {
				return nil, fmt.Errorf("argument at offset %d has no name", start)
			}
			tok.key = word
			tok.hasKey = true
			i++
			start = i
			word = ""
		}

		if i < len(raw) && isQuote(raw[i]) && word == "" {
			quote := raw[i]
			end := strings.IndexByte(raw[i+1:], quote)
			if end < 0 {
				return nil, fmt.Errorf("unterminated quote at offset %d", i)
			}
			tok.value = raw[i+1 : i+1+end]
			tok.quoted = true
			i += end + 2
		} else {
			for i < len(raw) && !isSpace(raw[i]) {
				i++
			}
			tok.value = raw[start:i]
		}

		tokens = append(tokens, tok)
	}
	return tokens, nil
}

// includeParams classifies tokens into include parameters. Bare identifiers
// naming a capture seen earlier in the document become capture references.
func includeParams(tokens []token, captures map[string]*interfaces.CaptureBlock) []interfaces.IncludeParam {
	params := make([]interfaces.IncludeParam, 0, len(tokens))
	for _, tok := range tokens {
		param := interfaces.IncludeParam{
			Name:       tok.key,
			Positional: !tok.hasKey,
		}
		switch {
		case tok.quoted:
			param.Value = tok.value
		case strings.HasPrefix(tok.value, pagePrefix) && len(tok.value) > len(pagePrefix):
			param.PageKey = strings.TrimPrefix(tok.value, pagePrefix)
		case isIdentifier(tok.value) && captures[tok.value] != nil:
			param.Capture = tok.value
		default:
			param.Value = tok.value
		}
		params = append(params, param)
	}
	return params
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func isQuote(b byte) bool {
	return b == '"' || b == '\''
}

func isIdentifier(value string) bool {
	if value == "" {
		return false
	}
	for i := 0; i < len(value); i++ {
		c := value[i]
		switch {
		case c == '_' || c == '-':
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
