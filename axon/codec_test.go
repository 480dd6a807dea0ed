package axon

import (
	"errors"
	"math"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func field(name string, t Type) FieldDef {
	return FieldDef{Name: name, Type: t, Nullable: true}
}

func TestDecodeSentinelAndEmpty(t *testing.T) {
	for _, typ := range []Type{TypeString, TypeInteger, TypeFloat, TypeDecimal, TypeBoolean, TypeTimestamp} {
		v, err := Decode("_", FieldDef{Name: "f", Type: typ})
		require.NoError(t, err)
		assert.True(t, v.IsNull(), "type %s", typ)
	}

	v, err := Decode("", field("s", TypeString))
	require.NoError(t, err)
	assert.Equal(t, String(""), v)

	v, err = Decode("", field("i", TypeInteger))
	require.NoError(t, err)
	assert.True(t, v.IsNull())

	v, err = Decode(`""`, field("i", TypeInteger))
	require.NoError(t, err)
	assert.True(t, v.IsNull())
}

func TestDecodeString(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"plain", "plain"},
		{`"A|B|C"`, "A|B|C"},
		{`A\|B\|C`, "A|B|C"},
		{`a\nb\tc\rd`, "a\nb\tc\rd"},
		{`back\\slash`, `back\slash`},
		{`say \"hi\"`, `say "hi"`},
		{`"_"`, "_"},
		{`"  padded "`, "  padded "},
		{`\q`, "q"},
		{`\~row`, "~row"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			v, err := Decode(tt.raw, field("s", TypeString))
			require.NoError(t, err)
			s, err := v.AsString()
			require.NoError(t, err)
			assert.Equal(t, tt.want, s)
		})
	}
}

func TestDecodeInteger(t *testing.T) {
	tests := []struct {
		raw  string
		want int64
	}{
		{"0", 0},
		{"42", 42},
		{"-42", -42},
		{"+7", 7},
		{"9223372036854775807", math.MaxInt64},
		{"-9223372036854775808", math.MinInt64},
	}
	for _, tt := range tests {
		v, err := Decode(tt.raw, field("n", TypeInteger))
		require.NoError(t, err, tt.raw)
		n, err := v.AsInt()
		require.NoError(t, err)
		assert.Equal(t, tt.want, n, tt.raw)
	}
}

func TestDecodeIntegerErrors(t *testing.T) {
	for _, raw := range []string{"9223372036854775808", "-9223372036854775809", "12a", "-", "+", "1.5", " 1"} {
		_, err := Decode(raw, field("n", TypeInteger))
		require.Error(t, err, raw)
		assert.True(t, errors.Is(err, ErrValueParse), raw)

		var pe *ValueParseError
		require.True(t, errors.As(err, &pe))
		assert.Equal(t, "n", pe.Field)
		assert.Equal(t, raw, pe.Raw)
		assert.Equal(t, TypeInteger, pe.Type)
	}

	_, err := Decode("9223372036854775808", field("n", TypeInteger))
	assert.True(t, errors.Is(err, strconv.ErrRange))
}

func TestParseInt64MatchesStrconv(t *testing.T) {
	inputs := []string{
		"0", "-0", "+0", "1", "-1", "123456789", "-987654321",
		"9223372036854775806", "9223372036854775807", "9223372036854775808",
		"-9223372036854775807", "-9223372036854775808", "-9223372036854775809",
		"18446744073709551616", "00012", "", "-", "1-", "abc",
	}
	for _, s := range inputs {
		got, gotErr := parseInt64(s)
		want, wantErr := strconv.ParseInt(s, 10, 64)
		if wantErr != nil {
			assert.Error(t, gotErr, s)
			assert.True(t, errors.Is(wantErr, gotErr), "%s: %v vs %v", s, gotErr, wantErr)
			continue
		}
		require.NoError(t, gotErr, s)
		assert.Equal(t, want, got, s)
	}
}

func TestDecodeFloatDecimalBool(t *testing.T) {
	v, err := Decode("1.5E3", field("f", TypeFloat))
	require.NoError(t, err)
	assert.Equal(t, Float(1500), v)

	v, err = Decode(".5", field("f", TypeFloat))
	require.NoError(t, err)
	assert.Equal(t, Float(0.5), v)

	_, err = Decode("abc", field("f", TypeFloat))
	assert.True(t, errors.Is(err, ErrValueParse))

	v, err = Decode("123.4500", field("d", TypeDecimal))
	require.NoError(t, err)
	assert.True(t, v.Equal(Decimal(decimal.RequireFromString("123.45"))))

	v, err = Decode("-.25", field("d", TypeDecimal))
	require.NoError(t, err)
	assert.True(t, v.Equal(Decimal(decimal.RequireFromString("-0.25"))))

	_, err = Decode("1.2.3", field("d", TypeDecimal))
	assert.True(t, errors.Is(err, ErrValueParse))

	for raw, want := range map[string]bool{"1": true, "+": true, "0": false, "-": false, "true": false} {
		v, err := Decode(raw, field("b", TypeBoolean))
		require.NoError(t, err)
		assert.Equal(t, Bool(want), v, raw)
	}
}

func TestDecodeTimestamp(t *testing.T) {
	jan3 := time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		raw  string
		want time.Time
	}{
		{"2025-01-03T00:00:00Z", jan3},
		{"2025-01-03T00:00:00.0000000Z", jan3},
		{"2025-01-03", jan3},
		{"2025-01-03T14:25:30", time.Date(2025, 1, 3, 14, 25, 30, 0, time.UTC)},
		{"250103", jan3},
		{"250103142530", time.Date(2025, 1, 3, 14, 25, 30, 0, time.UTC)},
		{"2025-01-03T10:00:00+02:00", time.Date(2025, 1, 3, 8, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		v, err := Decode(tt.raw, field("t", TypeTimestamp))
		require.NoError(t, err, tt.raw)
		got, err := v.AsTime()
		require.NoError(t, err)
		assert.True(t, tt.want.Equal(got), "%s: got %v", tt.raw, got)
	}

	v, err := Decode("2025-01-03T10:00:00+02:00", field("t", TypeTimestamp))
	require.NoError(t, err)
	tm, _ := v.AsTime()
	_, offset := tm.Zone()
	assert.Equal(t, 2*60*60, offset)

	_, err = Decode("2025-13-01", field("t", TypeTimestamp))
	assert.True(t, errors.Is(err, ErrValueParse))
}

func TestDecodeDayOffset(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	fd := field("date", TypeTimestamp)

	v, err := DecodeDayOffset("2", fd, base)
	require.NoError(t, err)
	assert.True(t, v.Equal(Timestamp(time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC))))

	v, err = DecodeDayOffset("-1", fd, base)
	require.NoError(t, err)
	assert.True(t, v.Equal(Timestamp(time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC))))

	v, err = DecodeDayOffset("_", fd, base)
	require.NoError(t, err)
	assert.True(t, v.IsNull())

	_, err = DecodeDayOffset("x", fd, base)
	assert.True(t, errors.Is(err, ErrValueParse))
}

func TestEncodeValue(t *testing.T) {
	ts := time.Date(2025, 1, 3, 4, 5, 6, 700_000_000, time.UTC)
	midnight := time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		v       Value
		typ     Type
		compact bool
		want    string
	}{
		{"null", Null(), TypeInteger, false, "_"},
		{"null compact", Null(), TypeTimestamp, true, "_"},
		{"plain string", String("plain"), TypeString, false, "plain"},
		{"escaped string", String("a|b\\c\nd\te\rf\"g"), TypeString, false, `a\|b\\c\nd\te\rf\"g`},
		{"sentinel string", String("_"), TypeString, false, `"_"`},
		{"padded string", String(" x "), TypeString, false, `" x "`},
		{"empty string", String(""), TypeString, false, ""},
		{"int", Int(-7), TypeInteger, false, "-7"},
		{"int max", Int(math.MaxInt64), TypeInteger, false, "9223372036854775807"},
		{"float", Float(1.5), TypeFloat, false, "1.5"},
		{"float full precision", Float(0.1), TypeFloat, false, "0.10000000000000001"},
		{"float integral", Float(100), TypeFloat, false, "100"},
		{"float exponent", Float(1.5e20), TypeFloat, false, "1.5E+20"},
		{"float compact", Float(0.1), TypeFloat, true, ".1"},
		{"float compact negative", Float(-0.25), TypeFloat, true, "-.25"},
		{"float compact epsilon", Float(1e-13), TypeFloat, true, "0"},
		{"float nan", Float(math.NaN()), TypeFloat, false, "NaN"},
		{"float inf", Float(math.Inf(-1)), TypeFloat, true, "-Infinity"},
		{"decimal", Decimal(decimal.RequireFromString("0.50")), TypeDecimal, false, "0.5"},
		{"decimal compact", Decimal(decimal.RequireFromString("0.50")), TypeDecimal, true, ".5"},
		{"decimal compact negative", Decimal(decimal.RequireFromString("-0.001")), TypeDecimal, true, "-.001"},
		{"decimal compact epsilon", Decimal(decimal.RequireFromString("0.0000000000001")), TypeDecimal, true, "0"},
		{"bool", Bool(true), TypeBoolean, false, "1"},
		{"bool false", Bool(false), TypeBoolean, false, "0"},
		{"bool compact", Bool(true), TypeBoolean, true, "+"},
		{"bool compact false", Bool(false), TypeBoolean, true, "-"},
		{"timestamp", Timestamp(ts), TypeTimestamp, false, "2025-01-03T04:05:06.7000000Z"},
		{"timestamp compact", Timestamp(ts), TypeTimestamp, true, "250103040506"},
		{"timestamp compact midnight", Timestamp(midnight), TypeTimestamp, true, "250103"},
		{"int as float", Int(3), TypeFloat, false, "3"},
		{"integral float as int", Float(2), TypeInteger, false, "2"},
		{"int as string", Int(5), TypeString, false, "5"},
		{"int as decimal", Int(12), TypeDecimal, false, "12"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeValue(tt.v, tt.typ, tt.compact)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeTypeMismatch(t *testing.T) {
	cases := []struct {
		v   Value
		typ Type
	}{
		{String("x"), TypeInteger},
		{Float(1.5), TypeInteger},
		{String("x"), TypeFloat},
		{Int(2), TypeBoolean},
		{Int(1), TypeTimestamp},
		{Bool(true), TypeDecimal},
	}
	for _, c := range cases {
		_, err := EncodeValue(c.v, c.typ, false)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrTypeMismatch), "%v as %s", c.v, c.typ)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	values := []Value{
		String(""),
		String("hello"),
		String("_"),
		String("pipes|and\\slashes\"quotes\"\nnew\ttab\rcr"),
		String("  leading and trailing  "),
		String("~tilde"),
		Int(0),
		Int(math.MaxInt64),
		Int(math.MinInt64),
		Float(0.1),
		Float(-123.456e-7),
		Float(math.MaxFloat64),
		Float(math.SmallestNonzeroFloat64),
		Float(3),
		Decimal(decimal.RequireFromString("79228162514264337593543950335")),
		Decimal(decimal.RequireFromString("-0.000123")),
		Bool(true),
		Bool(false),
		Timestamp(time.Date(2024, 2, 29, 23, 59, 58, 0, time.UTC)),
		Timestamp(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
		Null(),
	}

	for _, v := range values {
		for _, compact := range []bool{false, true} {
			typ := v.Kind()
			if compact && typ == TypeFloat && math.Abs(v.flt) < compactEpsilon {
				continue
			}
			text, err := EncodeValue(v, typ, compact)
			require.NoError(t, err)

			got, err := Decode(text, FieldDef{Name: "f", Type: typ, Nullable: true})
			require.NoError(t, err, "%v compact=%v text=%q", v, compact, text)
			assert.True(t, v.Equal(got), "%v compact=%v text=%q got %v", v, compact, text, got)
		}
	}
}

func TestEncodedRowSplitsBack(t *testing.T) {
	vals := []Value{String("a|b"), String(`"quoted"`), String(`end\`), Int(1)}
	var line []byte
	for i, v := range vals {
		if i > 0 {
			line = append(line, '|')
		}
		var err error
		line, err = AppendValue(line, v, v.Kind(), false)
		require.NoError(t, err)
	}

	raw := SplitRow(string(line), nil)
	require.Len(t, raw, len(vals))
	for i, v := range vals {
		got, err := Decode(raw[i], FieldDef{Name: "f", Type: v.Kind()})
		require.NoError(t, err)
		assert.True(t, v.Equal(got), "field %d: %v vs %v", i, v, got)
	}
}
