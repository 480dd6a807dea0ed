package mapper

import (
	"time"

	"github.com/Neumenon/axon/axon"
)

// Marshal writes items as one standard block named after T.
func Marshal[T any](c *Cache, items []T) (string, error) {
	d, err := For[T](c)
	if err != nil {
		return "", err
	}
	return axon.Marshal(d, items)
}

// MarshalTimeSeries writes items as one time-series block. A zero base is
// derived from the first item.
func MarshalTimeSeries[T any](c *Cache, items []T, base time.Time) (string, error) {
	d, err := For[T](c)
	if err != nil {
		return "", err
	}
	return axon.MarshalTimeSeries(d, items, base)
}

// Unmarshal maps the rows of every block in input into T values.
func Unmarshal[T any](c *Cache, input string) ([]T, error) {
	d, err := For[T](c)
	if err != nil {
		return nil, err
	}
	return axon.Unmarshal(input, d)
}

// UnmarshalNamed maps only the first block called name (case-insensitive).
func UnmarshalNamed[T any](c *Cache, input, name string) ([]T, error) {
	d, err := For[T](c)
	if err != nil {
		return nil, err
	}
	return axon.UnmarshalNamed(input, name, d)
}

// UnmarshalBlock maps an already parsed block.
func UnmarshalBlock[T any](c *Cache, b *axon.DataBlock) ([]T, error) {
	d, err := For[T](c)
	if err != nil {
		return nil, err
	}
	return axon.UnmarshalBlock(b, d)
}

// MarshalBinary encodes items in the axon binary layout.
func MarshalBinary[T any](c *Cache, items []T) ([]byte, error) {
	d, err := For[T](c)
	if err != nil {
		return nil, err
	}
	return axon.MarshalBinary(d, items)
}

// UnmarshalBinary decodes binary data into T values.
func UnmarshalBinary[T any](c *Cache, data []byte) ([]T, error) {
	b, err := axon.UnmarshalBinary(data)
	if err != nil {
		return nil, err
	}
	return UnmarshalBlock[T](c, b)
}
