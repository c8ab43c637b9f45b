package models

import (
	"bytes"
	"encoding/json"
)

// Locator references a remote target page discovered on an index page.
type Locator struct {
	// URL is Href resolved against the index page URL.
	URL string `json:"url"`

	// Href is the raw href attribute as found on the index page.
	Href string `json:"href"`

	// Title is the display name of the target (anchor title or text).
	Title string `json:"title"`
}

// Field is a single name/value pair of a Record.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Record is a variable-width, ordered mapping of field names to values
// harvested from one page. It has no mutating methods: build it once with
// NewRecord.
type Record struct {
	names  []string
	values map[string]string
}

// NewRecord builds a record from fields in order. A repeated name overwrites
// the earlier value but keeps the position of its first occurrence.
func NewRecord(fields ...Field) *Record {
	r := &Record{
		names:  make([]string, 0, len(fields)),
		values: make(map[string]string, len(fields)),
	}
	for _, f := range fields {
		if _, seen := r.values[f.Name]; !seen {
			r.names = append(r.names, f.Name)
		}
		r.values[f.Name] = f.Value
	}
	return r
}

// Get returns the value stored under name and whether it is present.
func (r *Record) Get(name string) (string, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Names returns the field names in insertion order.
func (r *Record) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Fields returns a copy of the record's fields in insertion order.
func (r *Record) Fields() []Field {
	out := make([]Field, 0, len(r.names))
	for _, n := range r.names {
		out = append(out, Field{Name: n, Value: r.values[n]})
	}
	return out
}

// Len returns the number of fields.
func (r *Record) Len() int {
	return len(r.names)
}

// MarshalJSON encodes the record as a JSON object preserving field order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, n := range r.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(n)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(r.values[n])
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

// Batch is the ordered list of records produced by one crawl.
type Batch []*Record
