package translate

import (
	"errors"
	"fmt"
	"strings"
)

var errBadArrayLiteral = errors.New("malformed array literal")

// EncodeArrayLiteral renders values in the relational array literal form
// {"a","b"}. Every element is quoted; quotes and backslashes are escaped.
func EncodeArrayLiteral(values []string) string {
	var b strings.Builder
	b.WriteByte('{')
	for i, v := range values {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		for _, r := range v {
			if r == '"' || r == '\\' {
				b.WriteByte('\\')
			}
			b.WriteRune(r)
		}
		b.WriteByte('"')
	}
	b.WriteByte('}')
	return b.String()
}

// DecodeArrayLiteral parses a one-dimensional array literal. Elements may be
// quoted or bare; bare NULL elements are dropped. The result is never nil.
func DecodeArrayLiteral(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '{' || s[len(s)-1] != '}' {
		return nil, fmt.Errorf("%w: %q", errBadArrayLiteral, s)
	}
	body := []rune(s[1 : len(s)-1])
	out := []string{}

	i := 0
	for i < len(body) {
		for i < len(body) && body[i] == ' ' {
			i++
		}
		if i >= len(body) {
			break
		}
		var (
			elem   strings.Builder
			quoted bool
		)
		if body[i] == '"' {
			quoted = true
			i++
			closed := false
			for i < len(body) {
				r := body[i]
				if r == '\\' && i+1 < len(body) {
					elem.WriteRune(body[i+1])
					i += 2
					continue
				}
				if r == '"' {
					closed = true
					i++
					break
				}
				elem.WriteRune(r)
				i++
			}
			if !closed {
				return nil, fmt.Errorf("%w: unterminated quote in %q", errBadArrayLiteral, s)
			}
		} else {
			for i < len(body) && body[i] != ',' {
				elem.WriteRune(body[i])
				i++
			}
		}
		for i < len(body) && body[i] == ' ' {
			i++
		}
		if i < len(body) {
			if body[i] != ',' {
				return nil, fmt.Errorf("%w: %q", errBadArrayLiteral, s)
			}
			i++
		}

		v := elem.String()
		if !quoted {
			v = strings.TrimSpace(v)
			if strings.EqualFold(v, "NULL") {
				continue
			}
		}
		out = append(out, v)
	}
	return out, nil
}
