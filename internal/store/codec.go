// Codecs translate between Go values and the byte strings rawStore
// persists. Keys and values are encoded independently so a caller can pick
// a cheap raw encoding for small fixed-shape keys (an int file ID, say) and
// a JSON encoding for arbitrary value shapes, the way the teacher's own
// document store always assumed a string label and a JSON document body —
// generalized here to arbitrary K and V via a small interface instead of a
// hardcoded shape.
package store

import (
	json "github.com/goccy/go-json"
)

// KeyCodec converts a key of type K to and from bytes.
type KeyCodec[K any] interface {
	EncodeKey(K) ([]byte, error)
	DecodeKey([]byte) (K, error)
}

// ValueCodec converts a value of type V to and from bytes.
type ValueCodec[V any] interface {
	EncodeValue(V) ([]byte, error)
	DecodeValue([]byte) (V, error)
}

// JSONCodec implements both KeyCodec and ValueCodec via goccy/go-json
// marshaling, suitable for any JSON-serializable type.
type JSONCodec[T any] struct{}

func (JSONCodec[T]) EncodeKey(v T) ([]byte, error)   { return json.Marshal(v) }
func (JSONCodec[T]) DecodeKey(b []byte) (T, error)   { return jsonDecode[T](b) }
func (JSONCodec[T]) EncodeValue(v T) ([]byte, error) { return json.Marshal(v) }
func (JSONCodec[T]) DecodeValue(b []byte) (T, error) { return jsonDecode[T](b) }

func jsonDecode[T any](b []byte) (T, error) {
	var v T
	err := json.Unmarshal(b, &v)
	return v, err
}

// StringCodec stores strings as their own raw bytes, with no JSON framing.
type StringCodec struct{}

func (StringCodec) EncodeKey(v string) ([]byte, error)   { return []byte(v), nil }
func (StringCodec) DecodeKey(b []byte) (string, error)   { return string(b), nil }
func (StringCodec) EncodeValue(v string) ([]byte, error) { return []byte(v), nil }
func (StringCodec) DecodeValue(b []byte) (string, error) { return string(b), nil }

// IntCodec stores ints as their JSON-decimal text, keeping keys short and
// sort-stable by the byte-offset scans in scan.go.
type IntCodec struct{}

func (IntCodec) EncodeKey(v int) ([]byte, error)   { return json.Marshal(v) }
func (IntCodec) DecodeKey(b []byte) (int, error)   { return jsonDecode[int](b) }
func (IntCodec) EncodeValue(v int) ([]byte, error) { return json.Marshal(v) }
func (IntCodec) DecodeValue(b []byte) (int, error) { return jsonDecode[int](b) }
