package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/Neumenon/axon/axon"
)

// jsonBlock is the to-json shape of one parsed block.
type jsonBlock struct {
	Name   string           `json:"name"`
	Schema string           `json:"schema"`
	Rows   []map[string]any `json:"rows"`
}

// toJSON parses every block in input and writes them as a JSON array.
func toJSON(w io.Writer, input string, compact bool) error {
	res, err := axon.Parse(input)
	if err != nil {
		return err
	}

	out := make([]jsonBlock, 0, len(res.Blocks))
	for _, b := range res.Blocks {
		jb := jsonBlock{
			Name:   b.Name(),
			Schema: b.Schema().Header(b.Len()),
			Rows:   make([]map[string]any, 0, b.Len()),
		}
		for _, row := range b.Rows() {
			jb.Rows = append(jb.Rows, row.Map())
		}
		out = append(out, jb)
	}

	var data []byte
	if compact {
		data, err = json.Marshal(out)
	} else {
		data, err = json.MarshalIndent(out, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// fromJSON converts a JSON array of flat objects into one AXON block.
func fromJSON(w io.Writer, data []byte, opts options) error {
	if opts.name == "" {
		return fmt.Errorf("missing --name")
	}
	objs, err := readObjects(data)
	if err != nil {
		return err
	}
	block, err := buildBlock(opts.name, objs)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	err = axon.SerializeWithOptions(&buf, axon.RowDescriptor(block.Schema()), block.RowSlice(),
		axon.SerializeOptions{TimeSeries: opts.timeSeries, BaseDate: opts.base})
	if err != nil {
		return err
	}
	_, err = w.Write(buf.Bytes())
	return err
}

// member is one key/value pair of a JSON object, in document order.
type member struct {
	key string
	val any
}

// readObjects decodes a JSON array of objects, keeping key order. Values are
// json.Number, string, bool, nil, or for nested values their JSON text.
func readObjects(data []byte) ([][]member, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if err := expectDelim(dec, '['); err != nil {
		return nil, err
	}
	var objs [][]member
	for dec.More() {
		if err := expectDelim(dec, '{'); err != nil {
			return nil, fmt.Errorf("item %d: %w", len(objs), err)
		}
		var obj []member
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("parse JSON: %w", err)
			}
			key, _ := tok.(string)

			var raw json.RawMessage
			if err := dec.Decode(&raw); err != nil {
				return nil, fmt.Errorf("parse JSON: %w", err)
			}
			val, err := scalar(raw)
			if err != nil {
				return nil, err
			}
			obj = append(obj, member{key: key, val: val})
		}
		if err := expectDelim(dec, '}'); err != nil {
			return nil, err
		}
		objs = append(objs, obj)
	}
	if err := expectDelim(dec, ']'); err != nil {
		return nil, err
	}
	return objs, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("parse JSON: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("parse JSON: expected %q, got %v", want, tok)
	}
	return nil
}

func scalar(raw json.RawMessage) (any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && (raw[0] == '{' || raw[0] == '[') {
		return string(raw), nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("parse JSON: %w", err)
	}
	return v, nil
}

// inferFields picks one field per distinct key, in first-seen order.
// Integral numbers are I, other numbers F, booleans B, RFC3339 strings T and
// everything else S. Conflicting kinds widen I to F, anything else to S. A
// field is nullable when any object has it null or missing.
func inferFields(objs [][]member) []axon.FieldDef {
	var (
		fields  []axon.FieldDef
		typed   []bool
		present []int
	)
	index := map[string]int{}
	seen := map[string]bool{}

	for _, obj := range objs {
		clear(seen)
		for _, m := range obj {
			if seen[m.key] {
				continue
			}
			seen[m.key] = true

			i, ok := index[m.key]
			if !ok {
				i = len(fields)
				index[m.key] = i
				fields = append(fields, axon.FieldDef{Name: m.key, Type: axon.TypeString})
				typed = append(typed, false)
				present = append(present, 0)
			}
			present[i]++
			if m.val == nil {
				fields[i].Nullable = true
				continue
			}
			if t := kindOf(m.val); typed[i] {
				fields[i].Type = widen(fields[i].Type, t)
			} else {
				fields[i].Type, typed[i] = t, true
			}
		}
	}
	for i := range fields {
		if present[i] < len(objs) {
			fields[i].Nullable = true
		}
	}
	return fields
}

func kindOf(v any) axon.Type {
	switch x := v.(type) {
	case json.Number:
		if _, err := strconv.ParseInt(string(x), 10, 64); err == nil {
			return axon.TypeInteger
		}
		return axon.TypeFloat
	case bool:
		return axon.TypeBoolean
	case string:
		if _, err := time.Parse(time.RFC3339Nano, x); err == nil {
			return axon.TypeTimestamp
		}
	}
	return axon.TypeString
}

func widen(a, b axon.Type) axon.Type {
	switch {
	case a == b:
		return a
	case (a == axon.TypeInteger && b == axon.TypeFloat) || (a == axon.TypeFloat && b == axon.TypeInteger):
		return axon.TypeFloat
	}
	return axon.TypeString
}

// buildBlock infers a schema for objs and fills a DataBlock with their values.
func buildBlock(name string, objs [][]member) (*axon.DataBlock, error) {
	schema, err := axon.NewSchema(name, inferFields(objs))
	if err != nil {
		return nil, err
	}

	block := axon.NewDataBlock(schema, len(objs))
	row := make([]axon.Value, schema.Len())
	for n, obj := range objs {
		clear(row)
		for _, m := range obj {
			i := schema.Index(m.key)
			if i < 0 || !row[i].IsNull() {
				continue
			}
			v, err := cellValue(m.val, schema.Field(i).Type)
			if err != nil {
				return nil, fmt.Errorf("item %d field %s: %w", n, m.key, err)
			}
			row[i] = v
		}
		if err := block.AppendRow(row); err != nil {
			return nil, fmt.Errorf("item %d: %w", n, err)
		}
	}
	return block, nil
}

func cellValue(v any, t axon.Type) (axon.Value, error) {
	if v == nil {
		return axon.Null(), nil
	}
	switch t {
	case axon.TypeInteger:
		n, err := strconv.ParseInt(string(v.(json.Number)), 10, 64)
		return axon.Int(n), err
	case axon.TypeFloat:
		f, err := strconv.ParseFloat(string(v.(json.Number)), 64)
		return axon.Float(f), err
	case axon.TypeBoolean:
		return axon.Bool(v.(bool)), nil
	case axon.TypeTimestamp:
		ts, err := time.Parse(time.RFC3339Nano, v.(string))
		return axon.Timestamp(ts), err
	}
	switch x := v.(type) {
	case string:
		return axon.String(x), nil
	case json.Number:
		return axon.String(string(x)), nil
	case bool:
		return axon.String(strconv.FormatBool(x)), nil
	}
	return axon.String(fmt.Sprint(v)), nil
}

// inspect streams input through the callback parser and reports each
// block's schema, its row count and rows whose field count differs from
// the schema.
func inspect(w io.Writer, input string, logger *slog.Logger) error {
	var (
		cur    *axon.Schema
		rows   int
		ragged int
	)
	flush := func() {
		if cur == nil {
			return
		}
		fmt.Fprintf(w, "%s\n  fields=%d rows=%d", cur.Header(rows), cur.Len(), rows)
		if ragged > 0 {
			fmt.Fprintf(w, " ragged=%d", ragged)
		}
		if base, ok := cur.BaseDate(); ok {
			fmt.Fprintf(w, " base=%s", base.Format(time.DateOnly))
			if i := cur.SeriesField(); i >= 0 {
				fmt.Fprintf(w, " series=%s", cur.Field(i).Name)
			}
		}
		fmt.Fprintln(w)
	}

	err := axon.ParseWithCallbackOptions(input, func(s *axon.Schema, i int, row string) error {
		if i == 0 {
			flush()
			cur, rows, ragged = s, 0, 0
		}
		rows++
		if n := axon.CountFields(row); n != s.Len() {
			ragged++
			logger.Debug("row field count differs", "block", s.Name(), "row", i, "fields", n, "want", s.Len())
		}
		return nil
	}, axon.CallbackOptions{Logger: logger})
	if err != nil {
		return err
	}
	flush()
	return nil
}

// toBinary encodes the block called name, or the first block when name is
// empty.
func toBinary(input, name string) ([]byte, error) {
	res, err := axon.Parse(input)
	if err != nil {
		return nil, err
	}
	var block *axon.DataBlock
	switch {
	case name != "":
		b, ok := res.Block(name)
		if !ok {
			return nil, &axon.SchemaNotFoundError{Name: name}
		}
		block = b
	case len(res.Blocks) > 0:
		block = res.Blocks[0]
	default:
		return nil, fmt.Errorf("no blocks in input")
	}
	return axon.MarshalBinary(axon.RowDescriptor(block.Schema()), block.RowSlice())
}

// fromBinary decodes a binary block and writes it as AXON text.
func fromBinary(w io.Writer, data []byte) error {
	block, err := axon.UnmarshalBinary(data)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := axon.Serialize(&buf, axon.RowDescriptor(block.Schema()), block.RowSlice()); err != nil {
		return err
	}
	_, err = w.Write(buf.Bytes())
	return err
}
