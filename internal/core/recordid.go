package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// IDShape tells which wire representation a RecordID arrived in.
type IDShape int

const (
	// ShapeUnknown covers every JSON value that is neither a string nor an
	// object with a usable ID member, including the zero RecordID.
	ShapeUnknown IDShape = iota
	ShapeString
	ShapeObject
)

func (s IDShape) String() string {
	switch s {
	case ShapeString:
		return "string"
	case ShapeObject:
		return "object"
	default:
		return "unknown"
	}
}

// RecordID is a server record identifier whose JSON shape varies between
// backends: a plain string, an object such as {"Table":"transaction","ID":"x"},
// or something else entirely. The shape is classified once, at decode time.
type RecordID struct {
	shape IDShape
	key   string
	raw   json.RawMessage
}

// StringID builds a RecordID that arrived as a JSON string.
func StringID(s string) RecordID {
	raw, _ := json.Marshal(s)
	return RecordID{shape: ShapeString, key: s, raw: raw}
}

// ObjectID builds a RecordID of the form {"ID": id}.
func ObjectID(id string) RecordID {
	raw, _ := json.Marshal(map[string]string{"ID": id})
	return RecordID{shape: ShapeObject, key: id, raw: raw}
}

// ParseRecordID classifies raw JSON. It never fails: undecodable input is
// kept as unknown with its compacted text as key.
func ParseRecordID(raw []byte) RecordID {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return RecordID{shape: ShapeUnknown, key: "null", raw: json.RawMessage("null")}
	}
	kept := append(json.RawMessage(nil), raw...)

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		var buf bytes.Buffer
		if json.Compact(&buf, raw) == nil {
			return RecordID{shape: ShapeUnknown, key: buf.String(), raw: kept}
		}
		return RecordID{shape: ShapeUnknown, key: string(raw), raw: kept}
	}
	id := fromValue(v)
	id.raw = kept
	return id
}

// NormalizeValue applies the RecordID mapping to an already decoded value,
// e.g. from map[string]any or a foreign struct with an ID field.
func NormalizeValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case RecordID:
		return x.Normalize()
	case *RecordID:
		if x == nil {
			return "null"
		}
		return x.Normalize()
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return ParseRecordID(b).Normalize()
}

func fromValue(v any) RecordID {
	switch x := v.(type) {
	case string:
		return RecordID{shape: ShapeString, key: x}
	case map[string]any:
		if inner, ok := x["ID"]; ok && truthy(inner) {
			if s, ok := inner.(string); ok {
				return RecordID{shape: ShapeObject, key: s}
			}
			return RecordID{shape: ShapeObject, key: canonical(inner)}
		}
	}
	return RecordID{shape: ShapeUnknown, key: canonical(v)}
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case json.Number:
		f, err := x.Float64()
		return err != nil || f != 0
	default:
		return true
	}
}

// canonical renders v as compact JSON with sorted object keys.
func canonical(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprintf("%v", v)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// Normalize reduces the identifier to the single string used as list key and
// as the delete path segment. It is total; applying StringID to its result and
// normalizing again yields the same string.
func (r RecordID) Normalize() string {
	if r.shape == ShapeUnknown && r.key == "" && r.raw == nil {
		return "null"
	}
	return r.key
}

// String is Normalize.
func (r RecordID) String() string {
	return r.Normalize()
}

// Shape reports the wire shape the identifier arrived in.
func (r RecordID) Shape() IDShape {
	return r.shape
}

// IsZero reports whether no identifier was decoded.
func (r RecordID) IsZero() bool {
	return r.raw == nil && r.key == ""
}

// MarshalJSON reproduces the identifier in its original shape.
func (r RecordID) MarshalJSON() ([]byte, error) {
	if r.raw != nil && json.Valid(r.raw) {
		return r.raw, nil
	}
	switch r.shape {
	case ShapeString:
		return json.Marshal(r.key)
	case ShapeObject:
		return json.Marshal(map[string]string{"ID": r.key})
	}
	if r.key == "" {
		return []byte("null"), nil
	}
	if json.Valid([]byte(r.key)) {
		return []byte(r.key), nil
	}
	return json.Marshal(r.key)
}

func (r *RecordID) UnmarshalJSON(b []byte) error {
	*r = ParseRecordID(b)
	return nil
}
