package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Record is one stored item: field name to Value. Records are what the
// ingest handlers persist and what the export pipeline flattens.
type Record map[string]Value

// RecordFromJSON decodes a JSON object into a Record, preserving numeric
// literals verbatim. Non-object payloads are an error.
func RecordFromJSON(data []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var x any
	if err := dec.Decode(&x); err != nil {
		return nil, err
	}
	m, ok := x.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a JSON object, got %T", x)
	}
	v := FromAny(m)
	r, _ := v.AsRecord()
	return r, nil
}

// Has reports whether the key is present, regardless of its value.
func (r Record) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// GetString returns the string at key, or "" when absent or not a string.
func (r Record) GetString(key string) string {
	return r[key].StringOr("")
}

// Set assigns key to the Value form of x and returns r for chaining.
func (r Record) Set(key string, x any) Record {
	r[key] = FromAny(x)
	return r
}

// Clone returns a shallow copy of r. Nested lists and records are shared;
// callers that only add or replace top-level fields get isolation.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
