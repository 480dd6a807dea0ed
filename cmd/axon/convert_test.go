package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Neumenon/axon/axon"
)

func TestParseArgs(t *testing.T) {
	opts, err := parseArgs([]string{"--name=Item", "--time-series", "--base=2025-01-01", "-o", "out.bin", "--config=c.yaml", "in.json"})
	require.NoError(t, err)
	assert.Equal(t, "Item", opts.name)
	assert.True(t, opts.timeSeries)
	assert.Equal(t, "out.bin", opts.output)
	assert.Equal(t, "c.yaml", opts.configPath)
	assert.Equal(t, "in.json", opts.file)
	assert.True(t, opts.base.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))

	_, err = parseArgs([]string{"--base=yesterday"})
	assert.Error(t, err)
	_, err = parseArgs([]string{"-o"})
	assert.Error(t, err)
	_, err = parseArgs([]string{"--bogus"})
	assert.Error(t, err)
}

func TestInferFields(t *testing.T) {
	objs, err := readObjects([]byte(`[
		{"id": 1, "name": "a", "price": 2.5, "ok": true, "at": "2025-01-03T00:00:00Z", "tags": [1, 2]},
		{"id": 2, "name": null, "price": 3, "ok": false, "tags": {"x": 1}},
		{"id": 3, "name": "c", "price": 4, "ok": true, "at": "soon", "tags": null}
	]`))
	require.NoError(t, err)
	require.Len(t, objs, 3)
	assert.Equal(t, "[1, 2]", objs[0][5].val)

	assert.Equal(t, []axon.FieldDef{
		{Name: "id", Type: axon.TypeInteger},
		{Name: "name", Type: axon.TypeString, Nullable: true},
		{Name: "price", Type: axon.TypeFloat},
		{Name: "ok", Type: axon.TypeBoolean},
		{Name: "at", Type: axon.TypeString, Nullable: true},
		{Name: "tags", Type: axon.TypeString, Nullable: true},
	}, inferFields(objs))
}

func TestInferFieldsNullFirst(t *testing.T) {
	objs, err := readObjects([]byte(`[{"n": null}, {"n": 5}]`))
	require.NoError(t, err)
	assert.Equal(t, []axon.FieldDef{{Name: "n", Type: axon.TypeInteger, Nullable: true}}, inferFields(objs))
}

func TestReadObjectsErrors(t *testing.T) {
	for _, in := range []string{`{"a":1}`, `[1, 2]`, `[{"a":1}`, `[{"a":}]`} {
		_, err := readObjects([]byte(in))
		assert.Error(t, err, in)
	}
}

func TestFromJSON(t *testing.T) {
	in := `[{"id":1,"name":"a","price":2.5,"ok":true,"at":"2025-01-03T00:00:00Z"},
	        {"id":2,"name":null,"price":3,"ok":false}]`

	var out bytes.Buffer
	require.NoError(t, fromJSON(&out, []byte(in), options{name: "Item"}))
	assert.Equal(t, "`Item[2](id:I,name:S?,price:F,ok:B,at:T?)\n"+
		"1|a|2.5|1|2025-01-03T00:00:00.0000000Z\n"+
		"2|_|3|0|_\n"+
		"~\n", out.String())

	res, err := axon.Parse(out.String())
	require.NoError(t, err)
	require.Len(t, res.Blocks, 1)
	assert.Equal(t, 2, res.Blocks[0].Len())

	assert.Error(t, fromJSON(&out, []byte(in), options{}))
}

func TestFromJSONTimeSeries(t *testing.T) {
	in := `[{"sym":"A","d":"2025-01-01T00:00:00Z","c":0.5},
	        {"sym":"A","d":"2025-01-03T00:00:00Z","c":187.25}]`

	var out bytes.Buffer
	require.NoError(t, fromJSON(&out, []byte(in), options{name: "Quote", timeSeries: true}))
	assert.Equal(t, "`Quote[2@250101](sym:S,d:T,c:F)\nA|0|.5\nA|2|187.25\n~\n", out.String())

	out.Reset()
	base := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	require.NoError(t, fromJSON(&out, []byte(in), options{name: "Quote", timeSeries: true, base: base}))
	assert.Equal(t, "`Quote[2@241231](sym:S,d:T,c:F)\nA|1|.5\nA|3|187.25\n~\n", out.String())
}

func TestToJSON(t *testing.T) {
	in := "`T[2](a:I,b:S?)\n1|x\n2|_\n~\n{name}\n"

	var out bytes.Buffer
	require.NoError(t, toJSON(&out, in, true))

	var got []struct {
		Name   string           `json:"name"`
		Schema string           `json:"schema"`
		Rows   []map[string]any `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "T", got[0].Name)
	assert.Equal(t, "`T[2](a:I,b:S?)", got[0].Schema)
	assert.Equal(t, []map[string]any{
		{"a": float64(1), "b": "x"},
		{"a": float64(2), "b": nil},
	}, got[0].Rows)

	assert.Error(t, toJSON(&out, "`T[x](a:I)\n~\n", false))
}

func TestInspect(t *testing.T) {
	in := "`T[2](a:I,b:S)\n1|x\n2\n~\n" +
		"`Q[1@250101](d:T,v:F)\n3|.5\n~\n"

	var out, logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	require.NoError(t, inspect(&out, in, logger))

	assert.Equal(t, "`T[2](a:I,b:S)\n  fields=2 rows=2 ragged=1\n"+
		"`Q[1@250101](d:T,v:F)\n  fields=2 rows=1 base=2025-01-01 series=d\n", out.String())
	assert.Contains(t, logs.String(), "row field count differs")
}

func TestInspectTimeSeriesWithoutTimestamp(t *testing.T) {
	var block bytes.Buffer
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, fromJSON(&block, []byte(`[{"id":1},{"id":2}]`),
		options{name: "Item", timeSeries: true, base: base}))
	assert.Equal(t, "`Item[2@250101](id:I)\n1\n2\n~\n", block.String())

	var out bytes.Buffer
	require.NoError(t, inspect(&out, block.String(), slog.New(slog.DiscardHandler)))
	assert.Equal(t, "`Item[2@250101](id:I)\n  fields=1 rows=2 base=2025-01-01\n", out.String())
}

func TestBinaryRoundTrip(t *testing.T) {
	in := "`T[2](a:I,b:S?)\n1|x\n2|_\n~\n`U[1](c:B)\n+\n~\n"

	data, err := toBinary(in, "")
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, fromBinary(&out, data))
	assert.Equal(t, "`T[2](a:I?,b:S?)\n1|x\n2|_\n~\n", out.String())

	data, err = toBinary(in, "u")
	require.NoError(t, err)
	out.Reset()
	require.NoError(t, fromBinary(&out, data))
	assert.Equal(t, "`U[1](c:B?)\n1\n~\n", out.String())

	_, err = toBinary(in, "missing")
	assert.ErrorIs(t, err, axon.ErrSchemaNotFound)
	_, err = toBinary("nothing here", "")
	assert.Error(t, err)
	assert.ErrorIs(t, fromBinary(&out, []byte{1, 2}), axon.ErrBinaryFormat)
}
