// Package normalize coerces the loosely shaped payloads produced by feeds,
// automations, and the dashboard form into the canonical post shape, and
// expands stored records back into the shapes the dashboard expects.
package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Object is an insertion-ordered JSON object. Inbound bodies are decoded
// into Objects instead of plain maps so the paragraph order of a canonical
// content body survives the trip through the resolver.
type Object struct {
	keys   []string
	values map[string]any
}

// NewObject returns an empty ordered object.
func NewObject() *Object {
	return &Object{values: make(map[string]any)}
}

// Set appends the key when new, otherwise overwrites in place.
func (o *Object) Set(key string, value any) {
	if o.values == nil {
		o.values = make(map[string]any)
	}
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (any, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Len reports the number of keys.
func (o *Object) Len() int {
	return len(o.keys)
}

// DecodeValue parses raw JSON into nil, bool, float64, string, []any, or
// *Object values. It is the entry point for every inbound request body.
func DecodeValue(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	v, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch delim {
	case '{':
		obj := NewObject()
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("object key is %v, not a string", keyTok)
			}
			val, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			obj.Set(key, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return obj, nil
	case '[':
		arr := make([]any, 0)
		for dec.More() {
			val, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("unexpected delimiter %v", delim)
	}
}

// asObject views a value as an ordered object. Plain maps (from callers
// that build payloads in Go rather than from wire bytes) are accepted with
// their keys in natural order, so "p10" sorts after "p2".
func asObject(v any) (*Object, bool) {
	switch obj := v.(type) {
	case *Object:
		return obj, true
	case map[string]any:
		keys := make([]string, 0, len(obj))
		for key := range obj {
			keys = append(keys, key)
		}
		sort.Slice(keys, func(i, j int) bool { return naturalLess(keys[i], keys[j]) })
		out := NewObject()
		for _, key := range keys {
			out.Set(key, obj[key])
		}
		return out, true
	default:
		return nil, false
	}
}

func naturalLess(a, b string) bool {
	ap, an, aok := splitTrailingDigits(a)
	bp, bn, bok := splitTrailingDigits(b)
	if aok && bok && ap == bp {
		return an < bn
	}
	return a < b
}

func splitTrailingDigits(s string) (prefix string, n int, ok bool) {
	i := len(s)
	for i > 0 && s[i-1] >= '0' && s[i-1] <= '9' {
		i--
	}
	if i == len(s) {
		return s, 0, false
	}
	n, err := strconv.Atoi(s[i:])
	if err != nil {
		return s, 0, false
	}
	return s[:i], n, true
}

func stringValue(obj *Object, key string) (string, bool) {
	v, ok := obj.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
