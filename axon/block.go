package axon

import (
	"fmt"
	"iter"
	"slices"
)

// ============================================================
// DataBlock
// ============================================================

// DataBlock holds the decoded rows of one block. Rows live back to back in a
// single value slab of Len()*Schema().Len() cells; Row views slice into it.
type DataBlock struct {
	schema *Schema
	count  int // header row-count hint
	rows   int
	values []Value
}

// NewDataBlock creates an empty block. countHint pre-sizes storage and is
// reported by CountHint; it is not enforced.
func NewDataBlock(schema *Schema, countHint int) *DataBlock {
	if countHint < 0 {
		countHint = 0
	}
	return &DataBlock{
		schema: schema,
		count:  countHint,
		values: make([]Value, 0, min(countHint, 1<<16)*schema.Len()),
	}
}

// Name returns the schema name.
func (b *DataBlock) Name() string { return b.schema.name }

// Schema returns the shared schema.
func (b *DataBlock) Schema() *Schema { return b.schema }

// Len returns the number of rows.
func (b *DataBlock) Len() int { return b.rows }

// CountHint returns the row count the header advertised.
func (b *DataBlock) CountHint() int { return b.count }

// Row returns a view of row i. It panics if i is out of range.
func (b *DataBlock) Row(i int) Row {
	if i < 0 || i >= b.rows {
		panic(fmt.Sprintf("axon: row index %d out of range [0,%d)", i, b.rows))
	}
	w := b.schema.Len()
	return Row{schema: b.schema, values: b.values[i*w : (i+1)*w : (i+1)*w]}
}

// AppendRow copies values in as a new row. The length must match the schema
// and every non-null value must have its field's type.
func (b *DataBlock) AppendRow(values []Value) error {
	if len(values) != b.schema.Len() {
		return fmt.Errorf("axon: block %s: row has %d values, schema has %d fields",
			b.schema.name, len(values), b.schema.Len())
	}
	for i, v := range values {
		if f := b.schema.fields[i]; !v.IsNull() && v.Kind() != f.Type {
			return &EncodeError{Field: f.Name, Type: f.Type, Value: v}
		}
	}
	copy(b.grow(), values)
	return nil
}

// grow appends one all-null row and returns its cells.
func (b *DataBlock) grow() []Value {
	w := b.schema.Len()
	start := len(b.values)
	b.values = slices.Grow(b.values, w)[:start+w]
	clear(b.values[start:])
	b.rows++
	return b.values[start : start+w]
}

// Rows iterates the row views in order.
func (b *DataBlock) Rows() iter.Seq2[int, Row] {
	return func(yield func(int, Row) bool) {
		for i := 0; i < b.rows; i++ {
			if !yield(i, b.Row(i)) {
				return
			}
		}
	}
}

// Column returns a copy of the named field's values, one per row.
func (b *DataBlock) Column(name string) ([]Value, bool) {
	idx := b.schema.Index(name)
	if idx < 0 {
		return nil, false
	}
	w := b.schema.Len()
	col := make([]Value, b.rows)
	for i := range col {
		col[i] = b.values[i*w+idx]
	}
	return col, true
}

// ============================================================
// Row view
// ============================================================

// Row is a read-only view of one row. Name lookups go through the shared
// schema index; nothing is copied.
type Row struct {
	schema *Schema
	values []Value
}

// Schema returns the row's schema.
func (r Row) Schema() *Schema { return r.schema }

// Len returns the number of cells.
func (r Row) Len() int { return len(r.values) }

// Value returns cell i.
func (r Row) Value(i int) Value { return r.values[i] }

// Get returns the named cell. ok is false when the schema has no such field.
func (r Row) Get(name string) (v Value, ok bool) {
	idx := r.schema.Index(name)
	if idx < 0 {
		return Null(), false
	}
	return r.values[idx], true
}

// Values returns the cells. The slice aliases block storage.
func (r Row) Values() []Value { return r.values }

// All iterates field name and value pairs in schema order.
func (r Row) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		for i, f := range r.schema.fields {
			if !yield(f.Name, r.values[i]) {
				return
			}
		}
	}
}

// Map returns the row as a name to plain-Go-value map (see Value.Interface).
func (r Row) Map() map[string]any {
	m := make(map[string]any, len(r.values))
	for i, f := range r.schema.fields {
		m[f.Name] = r.values[i].Interface()
	}
	return m
}
