package analysis

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"skillmatch/internal/errors"
)

// parseStringList parses a flat list literal of quoted strings, for example
// ["Go", 'SQL',]. Strings may use single or double quotes and backslash
// escapes; a trailing comma is allowed. Numbers, identifiers, nested lists and
// any other syntax are rejected. The input is never evaluated.
func parseStringList(src string) ([]string, error) {
	p := &listParser{src: src}
	items, err := p.parse()
	if err != nil {
		return nil, errors.NewParseError(errors.ErrCodeMalformedList,
			fmt.Sprintf("invalid list literal at offset %d: %v", p.pos, err), nil)
	}
	return items, nil
}

type listParser struct {
	src string
	pos int
}

func (p *listParser) parse() ([]string, error) {
	p.skipSpace()
	if !p.consume('[') {
		return nil, fmt.Errorf("expected '['")
	}

	items := []string{}
	for {
		p.skipSpace()
		if p.consume(']') {
			break
		}
		s, err := p.quoted()
		if err != nil {
			return nil, err
		}
		items = append(items, s)

		p.skipSpace()
		if p.consume(',') {
			continue
		}
		if p.consume(']') {
			break
		}
		return nil, fmt.Errorf("expected ',' or ']'")
	}

	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, fmt.Errorf("unexpected trailing input")
	}
	return items, nil
}

func (p *listParser) quoted() (string, error) {
	if p.pos >= len(p.src) {
		return "", fmt.Errorf("unexpected end of input")
	}
	quote := p.src[p.pos]
	if quote != '"' && quote != '\'' {
		return "", fmt.Errorf("expected quoted string")
	}
	p.pos++

	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == quote:
			p.pos++
			return b.String(), nil
		case c == '\n':
			return "", fmt.Errorf("newline in string")
		case c == '\\':
			if p.pos+1 >= len(p.src) {
				return "", fmt.Errorf("unterminated escape")
			}
			b.WriteString(unescape(p.src[p.pos+1]))
			p.pos += 2
		default:
			r, size := utf8.DecodeRuneInString(p.src[p.pos:])
			b.WriteRune(r)
			p.pos += size
		}
	}
	return "", fmt.Errorf("unterminated string")
}

// unescape maps the character after a backslash. Unknown escapes keep the
// backslash.
func unescape(c byte) string {
	switch c {
	case 'n':
		return "\n"
	case 't':
		return "\t"
	case 'r':
		return "\r"
	case '\\', '\'', '"':
		return string(c)
	default:
		return "\\" + string(c)
	}
}

func (p *listParser) consume(c byte) bool {
	if p.pos < len(p.src) && p.src[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *listParser) skipSpace() {
	for p.pos < len(p.src) {
		r, size := utf8.DecodeRuneInString(p.src[p.pos:])
		if !unicode.IsSpace(r) {
			return
		}
		p.pos += size
	}
}
