// Package wire implements the binary request/response envelope ("galactic
// buffer") used by every HTTP endpoint: one version byte, one field-count
// byte, a length prefix, then typed fields. v1 uses 2-byte length
// prefixes for strings and list counts; v2 uses 4-byte prefixes and adds
// an opaque bytes type. The decoder dispatches on the version byte.
package wire

import (
	"encoding/binary"
	"fmt"
)

// Type tags, shared by both versions.
const (
	TypeInt    byte = 0x01
	TypeString byte = 0x02
	TypeList   byte = 0x03
	TypeObject byte = 0x04
	TypeBytes  byte = 0x05 // v2 only
)

// Version identifies the wire format in use.
type Version byte

const (
	V1 Version = 0x01
	V2 Version = 0x02
)

// Value is the generic decoded/encodable value the codec boundary deals
// in. Exactly one of the typed fields is meaningful, selected by Type.
type Value struct {
	Type   byte
	Int    int64
	Str    string
	Bytes  []byte
	List   []Value
	Object Object
}

// Object is an ordered set of named fields (insertion order is preserved
// for encode-stability; decode reconstructs this order from the wire).
type Object struct {
	names  []string
	values map[string]Value
}

// NewObject returns an empty Object ready for Set calls.
func NewObject() *Object {
	return &Object{values: map[string]Value{}}
}

// Set adds or replaces a field, preserving first-insertion order.
func (o *Object) Set(name string, v Value) *Object {
	if _, ok := o.values[name]; !ok {
		o.names = append(o.names, name)
	}
	if o.values == nil {
		o.values = map[string]Value{}
	}
	o.values[name] = v
	return o
}

// Get returns the field named name, if present.
func (o Object) Get(name string) (Value, bool) {
	v, ok := o.values[name]
	return v, ok
}

// Names returns field names in encounter order.
func (o Object) Names() []string { return o.names }

// Int builds a TYPE_INT value.
func Int(v int64) Value { return Value{Type: TypeInt, Int: v} }

// Str builds a TYPE_STRING value.
func Str(v string) Value { return Value{Type: TypeString, Str: v} }

// BytesVal builds a TYPE_BYTES value (v2 only).
func BytesVal(v []byte) Value { return Value{Type: TypeBytes, Bytes: v} }

// ObjVal builds a TYPE_OBJECT value.
func ObjVal(o *Object) Value { return Value{Type: TypeObject, Object: *o} }

// IntList builds a TYPE_LIST of TYPE_INT.
func IntList(vs []int64) Value {
	list := make([]Value, len(vs))
	for i, v := range vs {
		list[i] = Int(v)
	}
	return Value{Type: TypeList, List: list}
}

// StrList builds a TYPE_LIST of TYPE_STRING.
func StrList(vs []string) Value {
	list := make([]Value, len(vs))
	for i, v := range vs {
		list[i] = Str(v)
	}
	return Value{Type: TypeList, List: list}
}

// ObjList builds a TYPE_LIST of TYPE_OBJECT.
func ObjList(vs []*Object) Value {
	list := make([]Value, len(vs))
	for i, v := range vs {
		list[i] = ObjVal(v)
	}
	return Value{Type: TypeList, List: list}
}

func encodeInt(v int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(v))
	return buf
}

func decodeInt(data []byte, offset int) (int64, int, error) {
	if offset+8 > len(data) {
		return 0, offset, fmt.Errorf("wire: truncated int")
	}
	return int64(binary.BigEndian.Uint64(data[offset : offset+8])), offset + 8, nil
}
