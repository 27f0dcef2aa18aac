// Package webauthncbor implements the subset of CBOR (RFC 8949) needed to read
// WebAuthn attestation objects and COSE keys. Decoded items are represented by a
// single tagged union, Value, so callers switch on Kind instead of probing types.
package webauthncbor

import "math"

// Kind identifies which field of a Value is populated.
type Kind uint8

const (
	KindUnsigned Kind = iota
	KindNegative
	KindBytes
	KindText
	KindArray
	KindMap
	KindTag
	KindBool
	KindNull
	KindUndefined
	KindFloat
	KindSimple
)

var kindNames = map[Kind]string{
	KindUnsigned:  "unsigned",
	KindNegative:  "negative",
	KindBytes:     "bytes",
	KindText:      "text",
	KindArray:     "array",
	KindMap:       "map",
	KindTag:       "tag",
	KindBool:      "bool",
	KindNull:      "null",
	KindUndefined: "undefined",
	KindFloat:     "float",
	KindSimple:    "simple",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "invalid"
}

// Value is one decoded CBOR data item.
type Value struct {
	Kind Kind

	// Uint holds the raw argument for KindUnsigned, the encoded n of a
	// KindNegative item (whose value is -1-n), the tag number for KindTag and
	// the simple value number for KindSimple.
	Uint   uint64
	Bytes  []byte
	Text   string
	Array  []Value
	Map    []Entry
	Tagged *Value
	Bool   bool
	Float  float64
}

// Entry is a single key/value pair of a CBOR map. Map entries keep their
// encoded order.
type Entry struct {
	Key   Value
	Value Value
}

// Int returns the value of an integer item as int64. ok is false for
// non-integers and for integers outside the int64 range.
func (v Value) Int() (n int64, ok bool) {
	switch v.Kind {
	case KindUnsigned:
		if v.Uint > math.MaxInt64 {
			return 0, false
		}
		return int64(v.Uint), true
	case KindNegative:
		if v.Uint > math.MaxInt64 {
			return 0, false
		}
		return -1 - int64(v.Uint), true
	default:
		return 0, false
	}
}

// IsInt reports whether v is an unsigned or negative integer.
func (v Value) IsInt() bool {
	return v.Kind == KindUnsigned || v.Kind == KindNegative
}

// Get looks up an integer key in a map item.
func (v Value) Get(key int64) (Value, bool) {
	if v.Kind != KindMap {
		return Value{}, false
	}
	for _, e := range v.Map {
		if n, ok := e.Key.Int(); ok && n == key {
			return e.Value, true
		}
	}
	return Value{}, false
}

// GetText looks up a text key in a map item.
func (v Value) GetText(key string) (Value, bool) {
	if v.Kind != KindMap {
		return Value{}, false
	}
	for _, e := range v.Map {
		if e.Key.Kind == KindText && e.Key.Text == key {
			return e.Value, true
		}
	}
	return Value{}, false
}
