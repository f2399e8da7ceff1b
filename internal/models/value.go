package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ValueKind identifies which variant a Value holds
type ValueKind int

// Supported value kinds
const (
	ValueAbsent ValueKind = iota
	ValueString
	ValueNumber
)

// Value is the literal carried by validation rules and conditions.
// It is either absent, a string, or a number.
type Value struct {
	Kind ValueKind
	Str  string
	Num  float64
}

// StringValue returns a string Value
func StringValue(s string) Value {
	return Value{Kind: ValueString, Str: s}
}

// NumberValue returns a numeric Value
func NumberValue(n float64) Value {
	return Value{Kind: ValueNumber, Num: n}
}

// IsAbsent reports whether no literal was configured
func (v Value) IsAbsent() bool {
	return v.Kind == ValueAbsent
}

// IsZero lets yaml omitempty drop absent values
func (v Value) IsZero() bool {
	return v.IsAbsent()
}

// Number returns the numeric form of the value. Strings are parsed; an
// empty or unparsable string, or an absent value, reports false.
func (v Value) Number() (float64, bool) {
	switch v.Kind {
	case ValueNumber:
		return v.Num, true
	case ValueString:
		n, err := strconv.ParseFloat(v.Str, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// String renders the value as text; absent values render as ""
func (v Value) String() string {
	switch v.Kind {
	case ValueString:
		return v.Str
	case ValueNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	default:
		return ""
	}
}

// MarshalJSON implements json.Marshaler
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case ValueString:
		return json.Marshal(v.Str)
	case ValueNumber:
		return json.Marshal(v.Num)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Value{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StringValue(s)
		return nil
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("value must be a string or a number: %s", data)
		}
		*v = NumberValue(n)
		return nil
	}
}

// MarshalYAML implements yaml.Marshaler
func (v Value) MarshalYAML() (interface{}, error) {
	switch v.Kind {
	case ValueString:
		return v.Str, nil
	case ValueNumber:
		return v.Num, nil
	default:
		return nil, nil
	}
}

// UnmarshalYAML implements yaml.Unmarshaler
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: value must be a scalar", node.Line)
	}

	switch node.ShortTag() {
	case "!!null":
		*v = Value{}
	case "!!int", "!!float":
		n, err := strconv.ParseFloat(node.Value, 64)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		*v = NumberValue(n)
	default:
		*v = StringValue(node.Value)
	}
	return nil
}
