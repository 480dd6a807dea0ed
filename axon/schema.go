package axon

import (
	"fmt"
	"time"
)

// FieldDef is one column declaration: name, type and nullability.
type FieldDef struct {
	Name     string
	Type     Type
	Nullable bool
}

// String returns the header form name:C or name:C?.
func (f FieldDef) String() string {
	s := f.Name + ":" + string(f.Type.Code())
	if f.Nullable {
		s += "?"
	}
	return s
}

// Schema is a named, ordered field list with an O(1) name index.
//
// Schema is IMMUTABLE after construction. Many rows and blocks may share one
// *Schema; do not modify the slice returned by Fields.
type Schema struct {
	name     string
	fields   []FieldDef
	index    map[string]int
	baseDate time.Time // time-series base date (zero when absent)
	series   int       // index of the time-series axis field, -1 when none
}

// NewSchema builds a schema. Field names must be non-empty and unique.
func NewSchema(name string, fields []FieldDef) (*Schema, error) {
	s, err := newSchema(name, fields, time.Time{})
	if err != nil {
		return nil, fmt.Errorf("axon: schema %s: %w", name, err)
	}
	return s, nil
}

// NewTimeSeriesSchema builds a schema whose first Timestamp field is encoded
// as a day offset from base.
func NewTimeSeriesSchema(name string, fields []FieldDef, base time.Time) (*Schema, error) {
	s, err := newSchema(name, fields, truncateDay(base))
	if err != nil {
		return nil, fmt.Errorf("axon: schema %s: %w", name, err)
	}
	return s, nil
}

func newSchema(name string, fields []FieldDef, base time.Time) (*Schema, error) {
	if name == "" {
		return nil, errString("empty schema name")
	}
	s := &Schema{
		name:     name,
		fields:   make([]FieldDef, len(fields)),
		index:    make(map[string]int, len(fields)),
		baseDate: base,
		series:   -1,
	}
	copy(s.fields, fields)

	for i, f := range s.fields {
		if f.Name == "" {
			return nil, fmt.Errorf("field %d has empty name", i)
		}
		if !f.Type.Valid() {
			return nil, &UnknownTypeError{Code: f.Type.String()}
		}
		if _, dup := s.index[f.Name]; dup {
			return nil, fmt.Errorf("duplicate field %q", f.Name)
		}
		s.index[f.Name] = i
		if !base.IsZero() && s.series < 0 && f.Type == TypeTimestamp {
			s.series = i
		}
	}
	return s, nil
}

// Name returns the schema (block) name.
func (s *Schema) Name() string { return s.name }

// Len returns the number of fields.
func (s *Schema) Len() int { return len(s.fields) }

// Field returns the i-th field definition.
func (s *Schema) Field(i int) FieldDef { return s.fields[i] }

// Fields returns the ordered field definitions. The slice is shared.
func (s *Schema) Fields() []FieldDef { return s.fields }

// Index returns the position of the named field, or -1.
func (s *Schema) Index(name string) int {
	if i, ok := s.index[name]; ok {
		return i
	}
	return -1
}

// BaseDate returns the time-series base date, if the header carried one.
func (s *Schema) BaseDate() (time.Time, bool) {
	return s.baseDate, !s.baseDate.IsZero()
}

// SeriesField returns the index of the field decoded as a day offset, or -1.
func (s *Schema) SeriesField() int { return s.series }

// Header returns the compact header text for this schema with the given
// row count, without the trailing newline.
func (s *Schema) Header(count int) string {
	return string(appendHeader(nil, s.name, count, s.baseDate, s.fields))
}

func truncateDay(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
