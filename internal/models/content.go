package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// ContentBody is the canonical post body: an insertion-ordered mapping from
// paragraph key ("p0", "p1", ...) to paragraph text. Plain Go maps do not
// keep order, so the type carries its own key sequence and preserves it
// through JSON and BSON round-trips.
type ContentBody struct {
	keys   []string
	values map[string]string
}

// NewContentBody returns an empty body.
func NewContentBody() ContentBody {
	return ContentBody{values: make(map[string]string)}
}

// Set appends the key to the sequence when it is new, otherwise overwrites
// the text in place.
func (b *ContentBody) Set(key, text string) {
	if b.values == nil {
		b.values = make(map[string]string)
	}
	if _, ok := b.values[key]; !ok {
		b.keys = append(b.keys, key)
	}
	b.values[key] = text
}

// Get returns the text for a key.
func (b ContentBody) Get(key string) (string, bool) {
	text, ok := b.values[key]
	return text, ok
}

// Keys returns the paragraph keys in insertion order.
func (b ContentBody) Keys() []string {
	out := make([]string, len(b.keys))
	copy(out, b.keys)
	return out
}

// Len reports the number of paragraphs.
func (b ContentBody) Len() int {
	return len(b.keys)
}

// Paragraphs returns the texts in key order.
func (b ContentBody) Paragraphs() []string {
	out := make([]string, 0, len(b.keys))
	for _, key := range b.keys {
		out = append(out, b.values[key])
	}
	return out
}

// PlainText joins all paragraphs with blank lines, in key order. Used for
// search indexing and for flattening a body back into editable text.
func (b ContentBody) PlainText() string {
	return strings.Join(b.Paragraphs(), "\n\n")
}

// MarshalJSON renders the body as a JSON object in key order. An empty body
// renders as {}.
func (b ContentBody) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range b.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(b.values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts the canonical object shape and, for records written
// by older versions of the system, a few legacy shapes: a JSON-looking
// string (parsed), a plain string (wrapped as p0), an array of strings
// (keyed positionally) and null (empty body). It never fails on shape; only
// on malformed JSON.
func (b *ContentBody) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	*b = NewContentBody()
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	switch trimmed[0] {
	case '{':
		return b.decodeObject(trimmed)
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		inner := strings.TrimSpace(s)
		if strings.HasPrefix(inner, "{") && strings.HasSuffix(inner, "}") {
			if err := b.decodeObject([]byte(inner)); err == nil {
				return nil
			}
			*b = NewContentBody()
		}
		if s != "" {
			b.Set("p0", s)
		}
		return nil
	case '[':
		var items []string
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err
		}
		for i, text := range items {
			b.Set(fmt.Sprintf("p%d", i), text)
		}
		return nil
	default:
		// Scalar of some other type; degrade to an empty body.
		return nil
	}
}

// decodeObject walks the object token by token so key order survives.
func (b *ContentBody) decodeObject(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("content: expected object, got %v", tok)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("content: non-string key %v", keyTok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			// Non-string paragraph value in a legacy record; skip it.
			continue
		}
		b.Set(key, text)
	}
	_, err = dec.Token() // closing brace
	return err
}

// MarshalBSONValue stores the body as an order-preserving BSON document.
func (b ContentBody) MarshalBSONValue() (bsontype.Type, []byte, error) {
	doc := make(bson.D, 0, len(b.keys))
	for _, key := range b.keys {
		doc = append(doc, bson.E{Key: key, Value: b.values[key]})
	}
	return bson.MarshalValue(doc)
}

// UnmarshalBSONValue restores the body from a BSON document, keeping the
// element order the document was written with.
func (b *ContentBody) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	*b = NewContentBody()
	if t == bsontype.Null {
		return nil
	}
	if t != bsontype.EmbeddedDocument {
		return fmt.Errorf("content: cannot decode BSON type %s", t)
	}
	elems, err := bson.Raw(data).Elements()
	if err != nil {
		return err
	}
	for _, elem := range elems {
		if text, ok := elem.Value().StringValueOK(); ok {
			b.Set(elem.Key(), text)
		}
	}
	return nil
}
