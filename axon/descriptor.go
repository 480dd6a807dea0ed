package axon

// ============================================================
// Type descriptors
// ============================================================
//
// A Descriptor tells the serializers how to read (and optionally write) the
// fields of a record type T. The core never inspects T itself; descriptors
// are built by hand or by a mapping layer such as package mapper.

// Field describes one column of T.
type Field[T any] struct {
	Name     string
	Type     Type
	Nullable bool

	// Get extracts the column value from an item. Required.
	Get func(item T) Value

	// Set stores a decoded value into an item. Optional; fields without a
	// setter are skipped by Unmarshal.
	Set func(item *T, v Value) error
}

// Descriptor is an ordered field list for T plus the default block name.
type Descriptor[T any] struct {
	Name   string
	Fields []Field[T]

	// IsNil reports items that serialize as an all-null row. Optional.
	IsNil func(item T) bool
}

// FieldDefs returns the schema field definitions in descriptor order.
func (d *Descriptor[T]) FieldDefs() []FieldDef {
	defs := make([]FieldDef, len(d.Fields))
	for i, f := range d.Fields {
		defs[i] = FieldDef{Name: f.Name, Type: f.Type, Nullable: f.Nullable}
	}
	return defs
}

// Schema builds the schema the descriptor serializes to.
func (d *Descriptor[T]) Schema() (*Schema, error) {
	return NewSchema(d.Name, d.FieldDefs())
}

// seriesField returns the index of the first Timestamp field, or -1.
func (d *Descriptor[T]) seriesField() int {
	for i, f := range d.Fields {
		if f.Type == TypeTimestamp {
			return i
		}
	}
	return -1
}

func (d *Descriptor[T]) isNil(item T) bool {
	return d.IsNil != nil && d.IsNil(item)
}

// RowDescriptor describes the rows of blocks with the given schema, so a
// parsed DataBlock can be written back out with the text or binary
// serializers. Rows are read-only: the fields have no setter.
func RowDescriptor(schema *Schema) *Descriptor[Row] {
	d := &Descriptor[Row]{
		Name:   schema.Name(),
		Fields: make([]Field[Row], schema.Len()),
	}
	for i, f := range schema.Fields() {
		d.Fields[i] = Field[Row]{
			Name:     f.Name,
			Type:     f.Type,
			Nullable: f.Nullable,
			Get:      func(r Row) Value { return r.Value(i) },
		}
	}
	return d
}

// RowSlice collects the row views of b in order, ready for a RowDescriptor.
func (b *DataBlock) RowSlice() []Row {
	rows := make([]Row, b.rows)
	for i := range rows {
		rows[i] = b.Row(i)
	}
	return rows
}
