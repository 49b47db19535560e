package jsoncodec

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// entry is one (name, value) pair of an OrderedObject.
type entry[T any] struct {
	Name  string
	Value T
}

// OrderedObject is a JSON object that remembers the order its members
// were inserted in and round-trips that order through both
// MarshalJSON and UnmarshalJSON. encoding/json's map support sorts keys
// alphabetically, which would violate spec.md §4.3's "preserve
// insertion order inside each map" requirement; no library in the
// example corpus provides an order-preserving JSON object, so this is
// hand-rolled on top of encoding/json's streaming Decoder/Encoder
// (see DESIGN.md).
type OrderedObject[T any] []entry[T]

// Set appends name/value, or overwrites the value in place if name is
// already present (preserving its original position).
func (o *OrderedObject[T]) Set(name string, value T) {
	for i := range *o {
		if (*o)[i].Name == name {
			(*o)[i].Value = value
			return
		}
	}
	*o = append(*o, entry[T]{Name: name, Value: value})
}

// Get returns the value for name and whether it was present.
func (o OrderedObject[T]) Get(name string) (T, bool) {
	for _, e := range o {
		if e.Name == name {
			return e.Value, true
		}
	}
	var zero T
	return zero, false
}

// Names returns the keys in insertion order.
func (o OrderedObject[T]) Names() []string {
	names := make([]string, len(o))
	for i, e := range o {
		names[i] = e.Name
	}
	return names
}

func (o OrderedObject[T]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(e.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')
		valBytes, err := json.Marshal(e.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(valBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (o *OrderedObject[T]) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("jsoncodec: expected object, got %v", tok)
	}
	*o = nil
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("jsoncodec: expected string key, got %v", keyTok)
		}
		var value T
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("jsoncodec: key %q: %w", key, err)
		}
		*o = append(*o, entry[T]{Name: key, Value: value})
	}
	if _, err := dec.Token(); err != nil { // closing '}'
		return err
	}
	return nil
}
