package axon

import (
	"bytes"
	"errors"
	"slices"
	"strconv"
	"time"
)

// ============================================================
// Text Serializer
// ============================================================

// SerializeOptions controls how a block is written.
type SerializeOptions struct {
	// Name overrides Descriptor.Name as the block name.
	Name string

	// TimeSeries writes the first Timestamp field as a day offset from the
	// base date and every other field in compact form.
	TimeSeries bool

	// BaseDate is the time-series base date. When zero it is taken from the
	// first item's series field, falling back to today (UTC).
	BaseDate time.Time

	// Now is the clock for the base-date fallback. nil means time.Now.
	Now func() time.Time
}

// Serialize appends one standard block for items to buf.
func Serialize[T any](buf *bytes.Buffer, d *Descriptor[T], items []T) error {
	return SerializeWithOptions(buf, d, items, SerializeOptions{})
}

// SerializeOne appends a one-row block for item to buf.
func SerializeOne[T any](buf *bytes.Buffer, d *Descriptor[T], item T) error {
	return SerializeWithOptions(buf, d, []T{item}, SerializeOptions{})
}

// SerializeTimeSeries appends one time-series block to buf. A zero base
// date is derived from the first item.
func SerializeTimeSeries[T any](buf *bytes.Buffer, d *Descriptor[T], items []T, base time.Time) error {
	return SerializeWithOptions(buf, d, items, SerializeOptions{TimeSeries: true, BaseDate: base})
}

// SerializeWithOptions appends one block to buf: header, one row per item and
// the end marker. On error buf is left as it was.
func SerializeWithOptions[T any](buf *bytes.Buffer, d *Descriptor[T], items []T, opts SerializeOptions) error {
	name := d.Name
	if opts.Name != "" {
		name = opts.Name
	}
	schema, err := NewSchema(name, d.FieldDefs())
	if err != nil {
		return err
	}

	enc := rowEncoder[T]{desc: d, series: -1}
	var base time.Time
	if opts.TimeSeries {
		enc.compact = true
		enc.series = d.seriesField()
		base = seriesBase(d, items, enc.series, opts)
		enc.base = base
	}

	start := buf.Len()
	buf.Write(appendHeader(buf.AvailableBuffer(), schema.Name(), len(items), base, schema.Fields()))
	buf.WriteByte('\n')

	for _, item := range items {
		b, err := enc.appendRow(buf.AvailableBuffer(), item)
		if err != nil {
			buf.Truncate(start)
			return err
		}
		buf.Write(b)
	}

	buf.WriteByte(EndMarker)
	buf.WriteByte('\n')
	return nil
}

// Marshal returns items as a standard block.
func Marshal[T any](d *Descriptor[T], items []T) (string, error) {
	var buf bytes.Buffer
	if err := Serialize(&buf, d, items); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// MarshalTimeSeries returns items as a time-series block.
func MarshalTimeSeries[T any](d *Descriptor[T], items []T, base time.Time) (string, error) {
	var buf bytes.Buffer
	if err := SerializeTimeSeries(&buf, d, items, base); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// seriesBase picks the time-series base date (UTC midnight).
func seriesBase[T any](d *Descriptor[T], items []T, series int, opts SerializeOptions) time.Time {
	if !opts.BaseDate.IsZero() {
		return truncateDay(opts.BaseDate)
	}
	if series >= 0 && len(items) > 0 && !d.isNil(items[0]) {
		if t, err := d.Fields[series].Get(items[0]).AsTime(); err == nil && !t.IsZero() {
			return truncateDay(t)
		}
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	return truncateDay(now())
}

// rowEncoder writes single rows for one block.
type rowEncoder[T any] struct {
	desc    *Descriptor[T]
	compact bool
	series  int // day-offset field, -1 when none
	base    time.Time
}

func (e *rowEncoder[T]) appendRow(dst []byte, item T) ([]byte, error) {
	fields := e.desc.Fields
	if e.desc.isNil(item) {
		return appendNullRow(dst, len(fields)), nil
	}

	start := len(dst)
	for i, f := range fields {
		if i > 0 {
			dst = append(dst, '|')
		}
		v := f.Get(item)

		var err error
		if i == e.series {
			dst, err = appendDayOffset(dst, v, e.base)
		} else {
			dst, err = AppendValue(dst, v, f.Type, e.compact)
		}
		if err != nil {
			var ee *EncodeError
			if errors.As(err, &ee) {
				ee.Field = f.Name
			}
			return dst[:start], err
		}
	}

	switch row := dst[start:]; {
	case len(row) == 0 && len(fields) == 1:
		// a lone empty string would read back as a blank line
		dst = append(dst, '"', '"')
	case len(row) > 0 && row[0] == EndMarker:
		dst = slices.Insert(dst, start, '\\')
	}
	return append(dst, '\n'), nil
}

func appendNullRow(dst []byte, n int) []byte {
	for i := 0; i < n; i++ {
		if i > 0 {
			dst = append(dst, '|')
		}
		dst = append(dst, NullSentinel...)
	}
	return append(dst, '\n')
}

func appendDayOffset(dst []byte, v Value, base time.Time) ([]byte, error) {
	if v.IsNull() {
		return append(dst, NullSentinel...), nil
	}
	t, err := v.AsTime()
	if err != nil {
		return dst, &EncodeError{Type: TypeTimestamp, Value: v}
	}
	return strconv.AppendInt(dst, dayNumber(t)-dayNumber(base), 10), nil
}

// dayNumber is the UTC day count since the Unix epoch, floored.
func dayNumber(t time.Time) int64 {
	const day = 24 * 60 * 60
	s := t.Unix()
	n := s / day
	if s%day < 0 {
		n--
	}
	return n
}
