package pkgjson

import (
	"encoding/json"
	"fmt"
	"io"
)

// Kind tags the recursive JSON variant used throughout the exports/imports
// evaluator (§9 "Exports field as a tagged variant").
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindString
	KindNumber
	KindArray
	KindObject
)

// Value is a parsed JSON value. Object preserves insertion order, which
// PACKAGE_TARGET_RESOLVE's condition-map walk (§4.7.9) depends on —
// encoding/json's map decoding does not preserve it, so Value is decoded
// by hand from a token stream instead of unmarshaled into map[string]any.
type Value struct {
	Kind Kind
	Bool bool
	Str  string
	Num  json.Number
	Arr  []Value
	Obj  *Object
}

// Object is an ordered string-keyed map.
type Object struct {
	keys []string
	vals map[string]Value
}

// NewObject returns an empty ordered object.
func NewObject() *Object {
	return &Object{vals: make(map[string]Value)}
}

// Set appends key (or overwrites it in place if already present).
func (o *Object) Set(key string, v Value) {
	if _, ok := o.vals[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = v
}

// Get looks up key.
func (o *Object) Get(key string) (Value, bool) {
	v, ok := o.vals[key]
	return v, ok
}

// Keys returns keys in insertion order.
func (o *Object) Keys() []string { return o.keys }

// Len reports the number of keys.
func (o *Object) Len() int { return len(o.keys) }

// IsString reports whether v is a JSON string.
func (v Value) IsString() bool { return v.Kind == KindString }

// IsObject reports whether v is a JSON object.
func (v Value) IsObject() bool { return v.Kind == KindObject }

// IsArray reports whether v is a JSON array.
func (v Value) IsArray() bool { return v.Kind == KindArray }

// IsNull reports whether v is JSON null (or the zero Value).
func (v Value) IsNull() bool { return v.Kind == KindNull }

// AsString returns the string value and whether v was a string.
func (v Value) AsString() (string, bool) {
	if v.Kind != KindString {
		return "", false
	}
	return v.Str, true
}

// AsBool returns the bool value and whether v was a bool.
func (v Value) AsBool() (bool, bool) {
	if v.Kind != KindBool {
		return false, false
	}
	return v.Bool, true
}

// DecodeValue parses a JSON document from data, preserving object key
// order.
func DecodeValue(data []byte) (Value, error) {
	dec := json.NewDecoder(newNoBOMReader(data))
	dec.UseNumber()
	v, err := decodeNext(dec)
	if err != nil {
		return Value{}, err
	}
	return v, nil
}

func decodeNext(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	return decodeToken(dec, tok)
}

func decodeToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := NewObject()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("expected object key, got %v", keyTok)
				}
				val, err := decodeNext(dec)
				if err != nil {
					return Value{}, err
				}
				obj.Set(key, val)
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return Value{}, err
			}
			return Value{Kind: KindObject, Obj: obj}, nil
		case '[':
			var arr []Value
			for dec.More() {
				val, err := decodeNext(dec)
				if err != nil {
					return Value{}, err
				}
				arr = append(arr, val)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return Value{}, err
			}
			return Value{Kind: KindArray, Arr: arr}, nil
		default:
			return Value{}, fmt.Errorf("unexpected delimiter %v", t)
		}
	case string:
		return Value{Kind: KindString, Str: t}, nil
	case json.Number:
		return Value{Kind: KindNumber, Num: t}, nil
	case bool:
		return Value{Kind: KindBool, Bool: t}, nil
	case nil:
		return Value{Kind: KindNull}, nil
	default:
		return Value{}, fmt.Errorf("unexpected token %v", tok)
	}
}

// noBOMReader rejects a leading UTF-8 BOM — package.json with a BOM is an
// explicit parse error per §6.
type noBOMReader struct {
	data []byte
	off  int
	err  error
}

func newNoBOMReader(data []byte) *noBOMReader {
	r := &noBOMReader{data: data}
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		r.err = fmt.Errorf("unexpected byte order mark at start of JSON")
	}
	return r
}

func (r *noBOMReader) Read(p []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	if r.off >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.off:])
	r.off += n
	return n, nil
}
