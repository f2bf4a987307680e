package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"strings"
)

// badKey is the key used for a value that has no key, as log/slog does.
const badKey = "!BADKEY"

// Field is a single key/value pair of an Event.
type Field struct {
	Key   string
	Value any
}

// F is shorthand for Field{Key: key, Value: value}.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Event is an immutable, ordered key/value record describing one change.
// The zero Event is empty and ready to use.
type Event struct {
	fields []Field
}

// NewEvent builds an event from Field values and/or alternating key/value
// pairs, following the log/slog argument convention.
// A repeated key keeps its first position and takes the last value.
func NewEvent(args ...any) Event {
	var e Event
	e.fields = appendArgs(nil, args)
	return e
}

func appendArgs(fields []Field, args []any) []Field {
	for len(args) > 0 {
		var f Field
		switch x := args[0].(type) {
		case Field:
			f, args = x, args[1:]
		case string:
			if len(args) == 1 {
				f, args = Field{Key: badKey, Value: x}, nil
			} else {
				f, args = Field{Key: x, Value: args[1]}, args[2:]
			}
		default:
			f, args = Field{Key: badKey, Value: x}, args[1:]
		}
		fields = setField(fields, f)
	}
	return fields
}

func setField(fields []Field, f Field) []Field {
	for i := range fields {
		if fields[i].Key == f.Key {
			fields[i].Value = f.Value
			return fields
		}
	}
	return append(fields, f)
}

// Len returns the number of fields.
func (e Event) Len() int { return len(e.fields) }

// Get returns the value stored under key.
func (e Event) Get(key string) (any, bool) {
	for _, f := range e.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Value returns the value stored under key, or nil.
func (e Event) Value(key string) any {
	v, _ := e.Get(key)
	return v
}

// Has reports whether key is present.
func (e Event) Has(key string) bool {
	_, ok := e.Get(key)
	return ok
}

// Keys returns the keys in insertion order.
func (e Event) Keys() []string {
	keys := make([]string, len(e.fields))
	for i, f := range e.fields {
		keys[i] = f.Key
	}
	return keys
}

// Fields returns a copy of the fields in insertion order.
func (e Event) Fields() []Field {
	out := make([]Field, len(e.fields))
	copy(out, e.fields)
	return out
}

// Map returns the fields as a new map.
func (e Event) Map() map[string]any {
	m := make(map[string]any, len(e.fields))
	for _, f := range e.fields {
		m[f.Key] = f.Value
	}
	return m
}

// With returns a copy of e updated with args. e is left untouched.
func (e Event) With(args ...any) Event {
	fields := make([]Field, len(e.fields), len(e.fields)+len(args))
	copy(fields, e.fields)
	return Event{fields: appendArgs(fields, args)}
}

// Without returns a copy of e with the given keys removed.
func (e Event) Without(keys ...string) Event {
	fields := make([]Field, 0, len(e.fields))
outer:
	for _, f := range e.fields {
		for _, k := range keys {
			if f.Key == k {
				continue outer
			}
		}
		fields = append(fields, f)
	}
	return Event{fields: fields}
}

// Equal reports whether both events hold the same keys in the same order
// with equal values. Values that are not comparable are never equal.
func (e Event) Equal(other Event) bool {
	if len(e.fields) != len(other.fields) {
		return false
	}
	for i := range e.fields {
		if e.fields[i].Key != other.fields[i].Key || !sameValue(e.fields[i].Value, other.fields[i].Value) {
			return false
		}
	}
	return true
}

func sameValue(a, b any) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return a == b
}

// String renders the event as {k: v, ...}.
func (e Event) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, f := range e.fields {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %v", f.Key, f.Value)
	}
	b.WriteByte('}')
	return b.String()
}

// MarshalJSON encodes the event as a JSON object preserving field order.
func (e Event) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range e.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping the order of its keys.
// Values decode as encoding/json does into an any.
func (e *Event) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("event: expected object, got %v", tok)
	}
	var fields []Field
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key := tok.(string)
		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		fields = setField(fields, Field{Key: key, Value: v})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	e.fields = fields
	return nil
}

// LogValue implements slog.LogValuer.
func (e Event) LogValue() slog.Value {
	attrs := make([]slog.Attr, len(e.fields))
	for i, f := range e.fields {
		attrs[i] = slog.Any(f.Key, f.Value)
	}
	return slog.GroupValue(attrs...)
}

// Batch is an immutable ordered group of events delivered together to views.
type Batch struct {
	events []Event
}

// NewBatch copies events into a new Batch.
func NewBatch(events ...Event) Batch {
	b := Batch{events: make([]Event, len(events))}
	copy(b.events, events)
	return b
}

// Len returns the number of events.
func (b Batch) Len() int { return len(b.events) }

// At returns the i'th event.
func (b Batch) At(i int) Event { return b.events[i] }

// Events returns a copy of the events.
func (b Batch) Events() []Event {
	out := make([]Event, len(b.events))
	copy(out, b.events)
	return out
}

// All iterates over the events with their index.
func (b Batch) All() iter.Seq2[int, Event] {
	return func(yield func(int, Event) bool) {
		for i, e := range b.events {
			if !yield(i, e) {
				return
			}
		}
	}
}

func (b Batch) String() string {
	parts := make([]string, len(b.events))
	for i, e := range b.events {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// MarshalJSON encodes the batch as a JSON array of events.
func (b Batch) MarshalJSON() ([]byte, error) {
	if b.events == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(b.events)
}

// UnmarshalJSON decodes a JSON array of events.
func (b *Batch) UnmarshalJSON(data []byte) error {
	var events []Event
	if err := json.Unmarshal(data, &events); err != nil {
		return err
	}
	if events == nil {
		events = []Event{}
	}
	b.events = events
	return nil
}

// LogValue implements slog.LogValuer.
func (b Batch) LogValue() slog.Value {
	attrs := make([]slog.Attr, len(b.events))
	for i, e := range b.events {
		attrs[i] = slog.Any(fmt.Sprint(i), e)
	}
	return slog.GroupValue(attrs...)
}
