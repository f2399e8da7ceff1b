// Package payload wraps a parsed JSON request body for field lookups.
package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	// ErrInvalidJSON is returned for bodies that are not valid JSON
	ErrInvalidJSON = errors.New("request body is not valid JSON")
	// ErrNotObject is returned for valid JSON bodies that are not objects
	ErrNotObject = errors.New("request body is not a JSON object")
)

// Body is a JSON object request body. The zero value is an empty object.
type Body struct {
	raw []byte
}

// Parse validates raw as a JSON object. An empty body is treated as {}.
func Parse(raw []byte) (Body, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Body{}, nil
	}
	if !gjson.ValidBytes(trimmed) {
		return Body{}, ErrInvalidJSON
	}
	if !gjson.ParseBytes(trimmed).IsObject() {
		return Body{}, ErrNotObject
	}
	return Body{raw: trimmed}, nil
}

// FromValue encodes an already decoded JSON value as a Body
func FromValue(v interface{}) (Body, error) {
	if v == nil {
		return Body{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return Body{}, err
	}
	return Parse(data)
}

// Raw returns the JSON text of the body
func (b Body) Raw() []byte {
	if len(b.raw) == 0 {
		return []byte("{}")
	}
	return b.raw
}

// Field looks up a field by gjson path. A plain name is a top-level key.
func (b Body) Field(path string) Field {
	if len(b.raw) == 0 {
		return Field{}
	}
	return Field{res: gjson.GetBytes(b.raw, path)}
}

// Keys returns the top-level keys in document order
func (b Body) Keys() []string {
	if len(b.raw) == 0 {
		return nil
	}

	var keys []string
	gjson.ParseBytes(b.raw).ForEach(func(key, _ gjson.Result) bool {
		keys = append(keys, key.String())
		return true
	})
	return keys
}

// Field is the value found at a path, possibly absent
type Field struct {
	res gjson.Result
}

// Exists reports whether the key is present (null counts as present)
func (f Field) Exists() bool {
	return f.res.Exists()
}

// IsNull reports whether the field holds JSON null
func (f Field) IsNull() bool {
	return f.res.Exists() && f.res.Type == gjson.Null
}

// IsString reports whether the field holds a JSON string
func (f Field) IsString() bool {
	return f.res.Type == gjson.String
}

// IsNumber reports whether the field holds a JSON number
func (f Field) IsNumber() bool {
	return f.res.Type == gjson.Number
}

// Present reports whether the field exists, is not null and is not ""
func (f Field) Present() bool {
	if !f.res.Exists() || f.res.Type == gjson.Null {
		return false
	}
	return !(f.res.Type == gjson.String && f.res.Str == "")
}

// Str returns the string content of a string field, or "" otherwise
func (f Field) Str() string {
	if f.res.Type != gjson.String {
		return ""
	}
	return f.res.Str
}

// Num returns the number held by a numeric field
func (f Field) Num() float64 {
	return f.res.Num
}

// Text returns the string content of a string field and the raw JSON
// text of any other value
func (f Field) Text() string {
	if f.res.Type == gjson.String {
		return f.res.Str
	}
	return f.res.Raw
}

// Number coerces the field to a number. Numbers convert as is, strings are
// trimmed and parsed with "" meaning 0, booleans convert to 1 and 0 and
// null to 0. Objects, arrays and absent fields do not convert.
func (f Field) Number() (float64, bool) {
	if !f.res.Exists() {
		return 0, false
	}

	switch f.res.Type {
	case gjson.Number:
		return f.res.Num, true
	case gjson.String:
		return ParseNumber(f.res.Str)
	case gjson.True:
		return 1, true
	case gjson.False, gjson.Null:
		return 0, true
	default:
		return 0, false
	}
}

// ParseNumber converts text to a number using the same rules as
// Field.Number for strings
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) {
		return 0, false
	}
	return n, true
}
