// Package template expands <<tag>> placeholders in mock response templates.
package template

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	// tagPattern matches placeholders like <<firstname>>
	tagPattern = regexp.MustCompile(`<<([A-Za-z_][A-Za-z0-9_]*)>>`)
	// tagPrefix matches a placeholder at the start of the input
	tagPrefix = regexp.MustCompile(`^<<([A-Za-z_][A-Za-z0-9_]*)>>`)
)

// Expander replaces tags with generated values
type Expander struct {
	registry *Registry
}

// NewExpander creates an expander backed by registry
func NewExpander(registry *Registry) *Expander {
	return &Expander{registry: registry}
}

// Registry returns the tag table in use
func (e *Expander) Registry() *Registry {
	return e.registry
}

// Expand replaces every known tag in a JSON template. A tag that makes up a
// whole string literal is replaced by the JSON encoding of its value, so
// numbers and booleans lose their quotes. Tags inside longer strings are
// replaced by the escaped text of the value. A whole-literal tag used as an
// object key always stays a string. Bare tags outside strings are replaced by
// the JSON encoding of the value. Unknown tags are kept as is.
func (e *Expander) Expand(template string) string {
	if !strings.Contains(template, "<<") {
		return template
	}

	var out bytes.Buffer
	out.Grow(len(template))

	inString := false
	strStart := -1

	for i := 0; i < len(template); i++ {
		c := template[i]

		if c == '<' && strings.HasPrefix(template[i:], "<<") {
			if name, end, ok := e.matchTag(template, i); ok {
				value := e.generate(name)

				switch {
				case inString && strStart == i-1 && end < len(template) && template[end] == '"':
					// the tag is the whole literal: drop the opening quote
					// already written and skip the closing one
					out.Truncate(out.Len() - 1)
					if isKey(template, end+1) {
						out.WriteString(encode(plain(value)))
					} else {
						out.WriteString(encode(value))
					}
					inString = false
					i = end
				case inString:
					out.WriteString(inline(value))
					i = end - 1
				default:
					out.WriteString(encode(value))
					i = end - 1
				}
				continue
			}
		}

		out.WriteByte(c)

		switch {
		case inString && c == '\\' && i+1 < len(template):
			i++
			out.WriteByte(template[i])
		case c == '"':
			inString = !inString
			if inString {
				strStart = i
			}
		}
	}

	return out.String()
}

// ExpandText replaces known tags in plain text with the text of their values
func (e *Expander) ExpandText(text string) string {
	return tagPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := match[2 : len(match)-2]
		if _, ok := e.registry.Lookup(name); !ok {
			return match
		}
		return plain(e.generate(name))
	})
}

// ExpandHeaders expands tags in every header value
func (e *Expander) ExpandHeaders(headers map[string]string) map[string]string {
	result := make(map[string]string, len(headers))
	for key, value := range headers {
		result[key] = e.ExpandText(value)
	}
	return result
}

// isKey reports whether the string literal closed just before i is an object key
func isKey(template string, i int) bool {
	for ; i < len(template); i++ {
		switch template[i] {
		case ' ', '\t', '\n', '\r':
			continue
		case ':':
			return true
		default:
			return false
		}
	}
	return false
}

// matchTag reports the tag name starting at i and the index just past ">>"
func (e *Expander) matchTag(template string, i int) (string, int, bool) {
	loc := tagPrefix.FindStringSubmatchIndex(template[i:])
	if loc == nil {
		return "", 0, false
	}

	name := template[i+loc[2] : i+loc[3]]
	if _, ok := e.registry.Lookup(name); !ok {
		return "", 0, false
	}
	return name, i + loc[1], true
}

func (e *Expander) generate(name string) interface{} {
	gen, _ := e.registry.Lookup(name)
	return gen()
}

// encode returns the JSON encoding of v without HTML escaping
func encode(v interface{}) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return encode(fmt.Sprint(v))
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// inline returns v as text escaped for use inside a JSON string literal
func inline(v interface{}) string {
	quoted := encode(plain(v))
	return quoted[1 : len(quoted)-1]
}

// plain returns strings as is and the JSON text of any other value
func plain(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return encode(v)
}
