package axon

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustSchema(t *testing.T, name string, fields ...FieldDef) *Schema {
	t.Helper()
	s, err := NewSchema(name, fields)
	require.NoError(t, err)
	return s
}

func TestDataBlockAppendAndRows(t *testing.T) {
	s := mustSchema(t, "User",
		FieldDef{Name: "id", Type: TypeInteger},
		FieldDef{Name: "name", Type: TypeString, Nullable: true},
	)
	b := NewDataBlock(s, 2)

	require.NoError(t, b.AppendRow([]Value{Int(1), String("Alice")}))
	require.NoError(t, b.AppendRow([]Value{Int(2), Null()}))
	assert.Equal(t, 2, b.Len())
	assert.Same(t, s, b.Schema())

	row := b.Row(0)
	assert.Equal(t, 2, row.Len())
	assert.Same(t, s, row.Schema())
	v, ok := row.Get("name")
	require.True(t, ok)
	assert.Equal(t, String("Alice"), v)
	_, ok = row.Get("nope")
	assert.False(t, ok)

	var names []string
	for name, v := range b.Row(1).All() {
		names = append(names, name)
		if name == "name" {
			assert.True(t, v.IsNull())
		}
	}
	assert.Equal(t, []string{"id", "name"}, names)

	var ids []int64
	for i, r := range b.Rows() {
		n, err := r.Value(0).AsInt()
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), n)
		ids = append(ids, n)
	}
	assert.Equal(t, []int64{1, 2}, ids)

	col, ok := b.Column("id")
	require.True(t, ok)
	assert.Equal(t, []Value{Int(1), Int(2)}, col)
	_, ok = b.Column("nope")
	assert.False(t, ok)
}

func TestDataBlockAppendRowValidation(t *testing.T) {
	s := mustSchema(t, "X", FieldDef{Name: "n", Type: TypeInteger})
	b := NewDataBlock(s, 0)

	err := b.AppendRow([]Value{Int(1), Int(2)})
	assert.Error(t, err)

	err = b.AppendRow([]Value{String("one")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTypeMismatch))

	assert.Equal(t, 0, b.Len())
}

func TestDataBlockRowsAreIndependent(t *testing.T) {
	s := mustSchema(t, "X", FieldDef{Name: "n", Type: TypeInteger})
	b := NewDataBlock(s, 0)
	for i := 0; i < 100; i++ {
		require.NoError(t, b.AppendRow([]Value{Int(int64(i))}))
	}

	first := b.Row(0)
	require.NoError(t, b.AppendRow([]Value{Int(100)}))

	// a view taken before growth still reads its own row
	assert.Equal(t, Int(0), first.Value(0))
	assert.Equal(t, Int(99), b.Row(99).Value(0))
	assert.Equal(t, 1, len(b.Row(5).Values()))
}

func TestDataBlockRowOutOfRange(t *testing.T) {
	b := NewDataBlock(mustSchema(t, "X", FieldDef{Name: "n", Type: TypeInteger}), 0)
	assert.Panics(t, func() { b.Row(0) })
}

func TestRowViewSharesStorage(t *testing.T) {
	res, err := Parse("`U[1](a:I,b:S)\n1|x\n~")
	require.NoError(t, err)
	b := res.Blocks[0]

	r1 := b.Row(0)
	r2 := b.Row(0)
	assert.Same(t, &r1.Values()[0], &r2.Values()[0])
}

func TestValueOf(t *testing.T) {
	n := 5
	var nilPtr *string

	cases := []struct {
		in   any
		want Value
	}{
		{nil, Null()},
		{"s", String("s")},
		{n, Int(5)},
		{&n, Int(5)},
		{int8(-3), Int(-3)},
		{uint32(7), Int(7)},
		{float32(0.5), Float(0.5)},
		{true, Bool(true)},
		{nilPtr, Null()},
		{Int(9), Int(9)},
	}
	for _, c := range cases {
		got, err := ValueOf(c.in)
		require.NoError(t, err, "%T", c.in)
		assert.Equal(t, c.want, got, "%T", c.in)
	}

	_, err := ValueOf(uint64(1 << 63))
	assert.True(t, errors.Is(err, ErrTypeMismatch))

	_, err = ValueOf(struct{}{})
	assert.True(t, errors.Is(err, ErrTypeMismatch))
}
