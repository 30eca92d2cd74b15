package model

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"strconv"
)

// Kind enumerates the value kinds a Metadata entry may hold.
type Kind uint8

const (
	KindString Kind = iota + 1
	KindNumber
	KindBool
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindMap:
		return "map"
	default:
		return "invalid"
	}
}

// ErrUnsupportedValue is returned when metadata contains arrays, nulls or other
// kinds outside string, number, boolean and nested mapping.
var ErrUnsupportedValue = errors.New("unsupported metadata value")

// Value is a single metadata value. The zero Value is invalid.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	m    Metadata
}

func String(s string) Value { return Value{kind: KindString, str: s} }
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }
func Map(m Metadata) Value { return Value{kind: KindMap, m: m} }
func (v Value) Kind() Kind { return v.kind }
func (v Value) Str() string { return v.str }
func (v Value) Num() float64 { return v.num }
func (v Value) Truth() bool { return v.b }
func (v Value) Nested() Metadata { return v.m }

// Equal reports deep equality of two values.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	case KindMap:
		return v.m.Equal(o.m)
	}
	return true
}

func (v Value) clone() Value {
	if v.kind == KindMap {
		v.m = v.m.Clone()
	}
	return v
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	case KindMap:
		return json.Marshal(v.m)
	default:
		return nil, ErrUnsupportedValue
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	out, err := fromRaw(raw, "")
	if err != nil {
		return err
	}
	*v = out
	return nil
}

func fromRaw(raw any, path string) (Value, error) {
	switch t := raw.(type) {
	case string:
		return String(t), nil
	case json.Number:
		f, err := strconv.ParseFloat(t.String(), 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w at %q: %v", ErrUnsupportedValue, path, err)
		}
		return Number(f), nil
	case bool:
		return Bool(t), nil
	case map[string]any:
		m := make(Metadata, len(t))
		for k, inner := range t {
			p := k
			if path != "" {
				p = path + "." + k
			}
			val, err := fromRaw(inner, p)
			if err != nil {
				return Value{}, err
			}
			m[k] = val
		}
		return Map(m), nil
	case nil:
		return Value{}, fmt.Errorf("%w at %q: null", ErrUnsupportedValue, path)
	default:
		return Value{}, fmt.Errorf("%w at %q: %T", ErrUnsupportedValue, path, raw)
	}
}

// Metadata is the open, typed key-value container attached to a document.
type Metadata map[string]Value

// ParseMetadata decodes a JSON object into Metadata. Empty input yields an empty container.
func ParseMetadata(data []byte) (Metadata, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Metadata{}, nil
	}
	var v Value
	if err := v.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	if v.kind != KindMap {
		return nil, fmt.Errorf("%w: metadata must be a JSON object", ErrUnsupportedValue)
	}
	return v.m, nil
}

// Validate checks that every value, recursively, is of an accepted kind.
func (m Metadata) Validate() error {
	for k, v := range m {
		switch v.kind {
		case KindString, KindNumber, KindBool:
		case KindMap:
			if err := v.m.Validate(); err != nil {
				return fmt.Errorf("%s.%w", k, err)
			}
		default:
			return fmt.Errorf("%w at %q", ErrUnsupportedValue, k)
		}
	}
	return nil
}

// Equal treats nil and empty containers as equal.
func (m Metadata) Equal(o Metadata) bool {
	if len(m) != len(o) {
		return false
	}
	for k, v := range m {
		ov, ok := o[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	out := maps.Clone(m)
	for k, v := range out {
		out[k] = v.clone()
	}
	return out
}

func (m Metadata) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]Value(m))
}

func (m *Metadata) UnmarshalJSON(data []byte) error {
	parsed, err := ParseMetadata(data)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Value implements driver.Valuer so Metadata can be written to a jsonb column.
func (m Metadata) Value() (driver.Value, error) {
	b, err := m.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner for jsonb columns.
func (m *Metadata) Scan(src any) error {
	switch t := src.(type) {
	case nil:
		*m = Metadata{}
		return nil
	case []byte:
		return m.UnmarshalJSON(t)
	case string:
		return m.UnmarshalJSON([]byte(t))
	default:
		return fmt.Errorf("scan metadata: unsupported source %T", src)
	}
}
