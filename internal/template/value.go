package template

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ValueKind tags the dynamic type held by a Value.
type ValueKind int

const (
	KindString ValueKind = iota
	KindInt
	KindFloat
)

// Value is an option label or a recognised value. It serializes as a bare
// JSON string or number.
type Value struct {
	Kind  ValueKind
	Str   string
	Int   int
	Float float64
}

// StringValue wraps s.
func StringValue(s string) *Value { return &Value{Kind: KindString, Str: s} }

// IntValue wraps i.
func IntValue(i int) *Value { return &Value{Kind: KindInt, Int: i} }

// FloatValue wraps f.
func FloatValue(f float64) *Value { return &Value{Kind: KindFloat, Float: f} }

func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.Itoa(v.Int)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'f', -1, 64)
	default:
		return v.Str
	}
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindInt:
		return json.Marshal(v.Int)
	case KindFloat:
		return json.Marshal(v.Float)
	default:
		return json.Marshal(v.Str)
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Value{Kind: KindString, Str: s}
		return nil
	}
	return v.parseNumber(string(data))
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("value must be a scalar, got kind %d", node.Kind)
	}
	if node.Tag == "!!int" || node.Tag == "!!float" {
		return v.parseNumber(node.Value)
	}
	*v = Value{Kind: KindString, Str: node.Value}
	return nil
}

func (v *Value) parseNumber(s string) error {
	if i, err := strconv.Atoi(s); err == nil {
		*v = Value{Kind: KindInt, Int: i}
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid value %q", s)
	}
	*v = Value{Kind: KindFloat, Float: f}
	return nil
}
