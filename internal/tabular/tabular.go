// Package tabular reads delimited text files into ordered tables of
// named-field records. This package has no transport or storage
// dependencies and can be used by any frontend.
//
// The format is a deliberately simplified CSV subset: the first line
// names the fields, every literal double-quote character is discarded,
// and lines are split on commas with no escaping. Embedded commas or
// newlines inside a value are not supported. All values stay text; any
// numeric interpretation happens on demand via Record.Float and
// Record.Int.
package tabular

import (
	"fmt"
	"strconv"
	"strings"
)

// Schema holds the ordered field names parsed from a file's header line,
// plus a lowercase name-to-position index for by-name lookups.
// A Schema is built once per read and shared by every Record of a Table.
type Schema struct {
	names []string
	index map[string]int
}

// NewSchema builds a Schema from an ordered field-name list.
// Uniqueness is assumed, not verified; on duplicates the last
// position wins for by-name access.
func NewSchema(names []string) *Schema {
	s := &Schema{
		names: append([]string(nil), names...),
		index: make(map[string]int, len(names)),
	}
	for i, n := range names {
		s.index[strings.ToLower(n)] = i
	}
	return s
}

// Names returns the field names in header order.
// The returned slice must not be modified.
func (s *Schema) Names() []string { return s.names }

// Len returns the number of fields.
func (s *Schema) Len() int { return len(s.names) }

// Index returns the position of the named field (case-insensitive).
func (s *Schema) Index(name string) (int, bool) {
	i, ok := s.index[strings.ToLower(name)]
	return i, ok
}

// Record is one data row: an ordered tuple of text values paired with
// the table's Schema. Values are addressable both by position and by
// field name, over the same backing slice, so the two access paths can
// never disagree.
type Record struct {
	schema *Schema
	values []string
}

// Len returns the number of values, which equals the schema field count
// for every record produced by a successful read.
func (r Record) Len() int { return len(r.values) }

// At returns the value at position i.
func (r Record) At(i int) string { return r.values[i] }

// Values returns the record's values in field order.
// The returned slice must not be modified.
func (r Record) Values() []string { return r.values }

// Get returns the value of the named field. The second return is false
// when the schema has no such field.
func (r Record) Get(name string) (string, bool) {
	i, ok := r.schema.Index(name)
	if !ok {
		return "", false
	}
	return r.values[i], true
}

// Float converts the named field to a float64.
func (r Record) Float(name string) (float64, error) {
	v, ok := r.Get(name)
	if !ok {
		return 0, fmt.Errorf("no such field %q", name)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("field %q: %q is not numeric", name, v)
	}
	return f, nil
}

// Int converts the named field to an int.
func (r Record) Int(name string) (int, error) {
	v, ok := r.Get(name)
	if !ok {
		return 0, fmt.Errorf("no such field %q", name)
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("field %q: %q is not an integer", name, v)
	}
	return i, nil
}

// String renders the record as name=value pairs in field order.
func (r Record) String() string {
	var b strings.Builder
	b.WriteString("Record{")
	for i, n := range r.schema.names {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%q", n, r.values[i])
	}
	b.WriteString("}")
	return b.String()
}

// Table is the ordered sequence of Records produced by one complete
// read of a file. It is created in a single pass and never mutated.
type Table struct {
	// Name identifies the source, usually the file path or upload name.
	Name    string
	Schema  *Schema
	Records []Record
}

// Len returns the number of data records (the header is not counted).
func (t *Table) Len() int { return len(t.Records) }

// NewTable assembles a Table from a field-name list and pre-split rows,
// for callers that reconstruct tables from storage rather than from a
// file. Every row must match the field count.
func NewTable(name string, names []string, rows [][]string) (*Table, error) {
	schema := NewSchema(names)
	t := &Table{Name: name, Schema: schema, Records: make([]Record, 0, len(rows))}
	for i, row := range rows {
		if len(row) != schema.Len() {
			return nil, fmt.Errorf("%s: row %d: expected %d fields, got %d",
				name, i, schema.Len(), len(row))
		}
		t.Records = append(t.Records, Record{schema: schema, values: row})
	}
	return t, nil
}
