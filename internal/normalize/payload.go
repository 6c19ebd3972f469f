package normalize

import (
	"errors"
	"strings"
)

// ErrPayloadNotFound is returned when no object carrying a title property
// can be located inside a request body.
var ErrPayloadNotFound = errors.New("no post payload found in request body")

// Upstream producers wrap the real post under these keys, inconsistently.
// The search order is fixed; the resolver never guesses beyond this list.
var wrapperKeys = []string{"data", "post", "newsPost", "item", "article"}

// Wrappers nest at most a couple of levels in practice; the cap only guards
// against pathological input.
const maxResolveDepth = 5

// ResolvePayload locates the actual post object inside an arbitrarily
// wrapped request body. Attempts, in order: take element 0 of a non-empty
// array; descend into a "json" property holding an object; if the object
// has no title property, descend into the first known wrapper key holding
// an object with a title, then into a "0" property holding one. The rules
// re-apply after each descent until a titled object is found.
func ResolvePayload(raw any) (*Object, error) {
	current := raw
	if arr, ok := current.([]any); ok {
		if len(arr) == 0 {
			return nil, ErrPayloadNotFound
		}
		current = arr[0]
	}

	for depth := 0; depth < maxResolveDepth; depth++ {
		obj, ok := asObject(current)
		if !ok {
			return nil, ErrPayloadNotFound
		}
		if inner, ok := obj.Get("json"); ok {
			if innerObj, ok := asObject(inner); ok {
				current = innerObj
				continue
			}
		}
		if hasTitle(obj) {
			return obj, nil
		}
		next, ok := descendWrapper(obj)
		if !ok {
			return nil, ErrPayloadNotFound
		}
		current = next
	}
	return nil, ErrPayloadNotFound
}

// hasTitle checks for a title property of string type. Emptiness is a
// validation concern, not a resolution concern: {"title": ""} resolves and
// fails validation later with a clearer message.
func hasTitle(obj *Object) bool {
	_, ok := stringValue(obj, "title")
	return ok
}

func descendWrapper(obj *Object) (*Object, bool) {
	for _, key := range wrapperKeys {
		if inner, ok := obj.Get(key); ok {
			if innerObj, ok := asObject(inner); ok && hasTitle(innerObj) {
				return innerObj, true
			}
		}
	}
	// Array-like objects arrive as {"0": {...}} after some serializers.
	if inner, ok := obj.Get("0"); ok {
		if innerObj, ok := asObject(inner); ok && hasTitle(innerObj) {
			return innerObj, true
		}
	}
	return nil, false
}

// StringField reads a trimmed string property off a resolved payload.
func StringField(obj *Object, key string) string {
	s, _ := stringValue(obj, key)
	return strings.TrimSpace(s)
}
