package axon

import "fmt"

// Unmarshal parses input and maps the rows of every block into items of T.
func Unmarshal[T any](input string, d *Descriptor[T]) ([]T, error) {
	res, err := Parse(input)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, b := range res.Blocks {
		total += b.Len()
	}
	out := make([]T, 0, total)
	for _, b := range res.Blocks {
		if out, err = appendBlock(out, b, d); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// UnmarshalNamed parses input and maps only the first block called name
// (case-insensitive).
func UnmarshalNamed[T any](input, name string, d *Descriptor[T]) ([]T, error) {
	res, err := Parse(input)
	if err != nil {
		return nil, err
	}
	b, ok := res.Block(name)
	if !ok {
		return nil, &SchemaNotFoundError{Name: name}
	}
	return UnmarshalBlock(b, d)
}

// UnmarshalBlock maps the rows of b into items of T. Descriptor fields are
// matched to schema fields by name; unmatched fields and fields without a
// setter are left at their zero value.
func UnmarshalBlock[T any](b *DataBlock, d *Descriptor[T]) ([]T, error) {
	return appendBlock(make([]T, 0, b.Len()), b, d)
}

func appendBlock[T any](out []T, b *DataBlock, d *Descriptor[T]) ([]T, error) {
	// column index per descriptor field, resolved once per block
	cols := make([]int, len(d.Fields))
	for i, f := range d.Fields {
		cols[i] = -1
		if f.Set != nil {
			cols[i] = b.schema.Index(f.Name)
		}
	}

	for r := 0; r < b.rows; r++ {
		row := b.Row(r)
		var item T
		for i, f := range d.Fields {
			if cols[i] < 0 {
				continue
			}
			if err := f.Set(&item, row.values[cols[i]]); err != nil {
				return nil, fmt.Errorf("axon: block %s row %d field %s: %w", b.schema.name, r, f.Name, err)
			}
		}
		out = append(out, item)
	}
	return out, nil
}
