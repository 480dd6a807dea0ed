package axon

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Value Decoding
// ============================================================

// NullSentinel is the row text for a null value.
const NullSentinel = "_"

// Timestamp layouts.
const (
	timestampLayout        = "2006-01-02T15:04:05.0000000Z"
	compactDateLayout      = "060102"
	compactTimestampLayout = "060102150405"
)

// compactEpsilon is the magnitude below which compact numbers collapse to 0.
const compactEpsilon = 1e-12

var decimalEpsilon = decimal.New(1, -12)

// Decode converts one raw field (as returned by SplitRow) into a typed value.
//
// "_" is always null. An empty field is "" for String fields and null for
// every other type. Escapes and quote characters are resolved in a single
// pass before type conversion.
func Decode(raw string, fd FieldDef) (Value, error) {
	switch raw {
	case NullSentinel:
		return Null(), nil
	case "":
		return emptyValue(fd.Type), nil
	}

	if !strings.ContainsAny(raw, `\"`) {
		if fd.Type == TypeString {
			return String(strings.Clone(raw)), nil
		}
		return decodeText(raw, raw, fd)
	}

	buf := getScratch()
	defer putScratch(buf)
	*buf = appendUnescaped(*buf, raw)

	if fd.Type == TypeString {
		return String(string(*buf)), nil
	}
	if len(*buf) == 0 {
		return Null(), nil
	}
	return decodeText(string(*buf), raw, fd)
}

func emptyValue(t Type) Value {
	if t == TypeString {
		return String("")
	}
	return Null()
}

func decodeText(text, raw string, fd FieldDef) (Value, error) {
	v, err := decodeScalar(text, fd.Type)
	if err != nil {
		return Null(), &ValueParseError{Field: fd.Name, Raw: raw, Type: fd.Type, Err: err}
	}
	return v, nil
}

func decodeScalar(s string, t Type) (Value, error) {
	switch t {
	case TypeString:
		return String(s), nil
	case TypeInteger:
		n, err := parseInt64(s)
		if err != nil {
			return Null(), err
		}
		return Int(n), nil
	case TypeFloat:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Null(), err
		}
		return Float(f), nil
	case TypeDecimal:
		d, err := decimal.NewFromString(s)
		if err != nil {
			return Null(), err
		}
		return Decimal(d), nil
	case TypeBoolean:
		return Bool(s == "1" || s == "+"), nil
	case TypeTimestamp:
		tm, err := parseTimestamp(s)
		if err != nil {
			return Null(), err
		}
		return Timestamp(tm), nil
	}
	return Null(), &UnknownTypeError{Code: t.String()}
}

// DecodeDayOffset decodes a time-series axis field: a signed day count
// relative to base.
func DecodeDayOffset(raw string, fd FieldDef, base time.Time) (Value, error) {
	if raw == NullSentinel || raw == "" {
		return Null(), nil
	}
	n, err := parseInt64(raw)
	if err != nil {
		return Null(), &ValueParseError{Field: fd.Name, Raw: raw, Type: fd.Type, Err: err}
	}
	if n > math.MaxInt32 || n < math.MinInt32 {
		return Null(), &ValueParseError{Field: fd.Name, Raw: raw, Type: fd.Type, Err: strconv.ErrRange}
	}
	return Timestamp(truncateDay(base).AddDate(0, 0, int(n))), nil
}

// appendUnescaped resolves backslash escapes and drops unescaped quote
// characters. A dangling trailing backslash is dropped.
func appendUnescaped(dst []byte, s string) []byte {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '"':
			continue
		case '\\':
			i++
			if i >= len(s) {
				return dst
			}
			dst = append(dst, unescapeByte(s[i]))
		default:
			dst = append(dst, c)
		}
	}
	return dst
}

func unescapeByte(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	default:
		return c
	}
}

// parseInt64 is a base-10 parser with the exact range and sign handling of
// strconv.ParseInt(s, 10, 64), without its error allocation.
func parseInt64(s string) (int64, error) {
	if s == "" {
		return 0, strconv.ErrSyntax
	}
	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	if s == "" {
		return 0, strconv.ErrSyntax
	}

	limit := uint64(math.MaxInt64)
	if neg {
		limit++
	}

	var n uint64
	for i := 0; i < len(s); i++ {
		d := s[i] - '0'
		if d > 9 {
			return 0, strconv.ErrSyntax
		}
		if n > limit/10 {
			return 0, strconv.ErrRange
		}
		n = n*10 + uint64(d)
		if n > limit {
			return 0, strconv.ErrRange
		}
	}

	if neg {
		return -int64(n), nil
	}
	return int64(n), nil
}

// parseTimestamp accepts RFC3339 (any fraction, offset preserved), a bare
// date, a zone-less date-time (read as UTC) and the compact yyMMdd and
// yyMMddHHmmss forms.
func parseTimestamp(s string) (time.Time, error) {
	if isDigits(s) {
		switch len(s) {
		case len(compactDateLayout):
			return time.ParseInLocation(compactDateLayout, s, time.UTC)
		case len(compactTimestampLayout):
			return time.ParseInLocation(compactTimestampLayout, s, time.UTC)
		}
	}

	t, err := time.Parse(time.RFC3339Nano, s)
	if err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, perr := time.ParseInLocation(layout, s, time.UTC); perr == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ============================================================
// Value Encoding
// ============================================================

// escapeSpecials are the bytes a String value must escape.
const escapeSpecials = "|\\\n\r\t\""

// EncodeValue returns the row text for v written as type t.
func EncodeValue(v Value, t Type, compact bool) (string, error) {
	buf := getScratch()
	defer putScratch(buf)

	out, err := AppendValue(*buf, v, t, compact)
	*buf = out
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// AppendValue appends the row text for v written as type t.
//
// Values of a neighbouring kind are converted where no information is lost
// (Integer into Float/Decimal, integral Float into Integer, anything into
// String); other combinations fail with an *EncodeError.
func AppendValue(dst []byte, v Value, t Type, compact bool) ([]byte, error) {
	if v.IsNull() {
		return append(dst, NullSentinel...), nil
	}

	switch t {
	case TypeString:
		if v.typ == TypeString {
			return appendString(dst, v.str), nil
		}
		buf := getScratch()
		defer putScratch(buf)
		text, err := AppendValue(*buf, v, v.typ, false)
		*buf = text
		if err != nil {
			return dst, err
		}
		return appendString(dst, string(text)), nil

	case TypeInteger:
		n, ok := coerceInt(v)
		if !ok {
			return dst, &EncodeError{Type: t, Value: v}
		}
		return strconv.AppendInt(dst, n, 10), nil

	case TypeFloat:
		f, err := v.AsFloat()
		if err != nil {
			return dst, &EncodeError{Type: t, Value: v}
		}
		if compact {
			return appendCompactFloat(dst, f), nil
		}
		return appendFloat(dst, f), nil

	case TypeDecimal:
		d, err := v.AsDecimal()
		if err != nil {
			return dst, &EncodeError{Type: t, Value: v}
		}
		if compact {
			return appendCompactDecimal(dst, d), nil
		}
		return append(dst, d.String()...), nil

	case TypeBoolean:
		b, ok := coerceBool(v)
		if !ok {
			return dst, &EncodeError{Type: t, Value: v}
		}
		return appendBool(dst, b, compact), nil

	case TypeTimestamp:
		tm, err := v.AsTime()
		if err != nil {
			return dst, &EncodeError{Type: t, Value: v}
		}
		if compact {
			return appendCompactTimestamp(dst, tm), nil
		}
		return tm.UTC().AppendFormat(dst, timestampLayout), nil
	}
	return dst, &UnknownTypeError{Code: t.String()}
}

func coerceInt(v Value) (int64, bool) {
	switch v.typ {
	case TypeInteger, TypeBoolean:
		return v.num, true
	case TypeFloat:
		if v.flt == math.Trunc(v.flt) && math.Abs(v.flt) < 1<<63 {
			return int64(v.flt), true
		}
	case TypeDecimal:
		if v.dec.IsInteger() && v.dec.Abs().LessThan(decimal.New(1, 19)) {
			n := v.dec.IntPart()
			if decimal.NewFromInt(n).Equal(v.dec) {
				return n, true
			}
		}
	}
	return 0, false
}

func coerceBool(v Value) (bool, bool) {
	switch v.typ {
	case TypeBoolean:
		return v.num != 0, true
	case TypeInteger:
		if v.num == 0 || v.num == 1 {
			return v.num == 1, true
		}
	}
	return false, false
}

// appendString escapes s only when it contains a special byte. The literal
// sentinel and values with edge whitespace are quoted so they survive
// decoding and line trimming.
func appendString(dst []byte, s string) []byte {
	if s == NullSentinel {
		return append(dst, `"_"`...)
	}
	quote := s != "" && strings.TrimSpace(s) != s
	if quote {
		dst = append(dst, '"')
	}
	dst = appendEscaped(dst, s)
	if quote {
		dst = append(dst, '"')
	}
	return dst
}

func appendEscaped(dst []byte, s string) []byte {
	if !strings.ContainsAny(s, escapeSpecials) {
		return append(dst, s...)
	}
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			dst = append(dst, '\\', '\\')
		case '|':
			dst = append(dst, '\\', '|')
		case '\n':
			dst = append(dst, '\\', 'n')
		case '\r':
			dst = append(dst, '\\', 'r')
		case '\t':
			dst = append(dst, '\\', 't')
		case '"':
			dst = append(dst, '\\', '"')
		default:
			dst = append(dst, c)
		}
	}
	return dst
}

func appendBool(dst []byte, b, compact bool) []byte {
	switch {
	case compact && b:
		return append(dst, '+')
	case compact:
		return append(dst, '-')
	case b:
		return append(dst, '1')
	default:
		return append(dst, '0')
	}
}

// appendFloat writes 17 significant digits, which always round-trips.
func appendFloat(dst []byte, f float64) []byte {
	if s, ok := nonFinite(f); ok {
		return append(dst, s...)
	}
	start := len(dst)
	dst = strconv.AppendFloat(dst, f, 'g', 17, 64)
	upperExponent(dst[start:])
	return dst
}

// appendCompactFloat writes the fewest of 15..17 significant digits that
// still round-trip, with near-zero collapsed and a leading zero dropped.
func appendCompactFloat(dst []byte, f float64) []byte {
	if s, ok := nonFinite(f); ok {
		return append(dst, s...)
	}
	if math.Abs(f) < compactEpsilon {
		return append(dst, '0')
	}

	var tmp [32]byte
	var out []byte
	for prec := 15; prec <= 17; prec++ {
		out = strconv.AppendFloat(tmp[:0], f, 'g', prec, 64)
		if back, err := strconv.ParseFloat(string(out), 64); err == nil && back == f {
			break
		}
	}
	upperExponent(out)
	return append(dst, trimLeadingZero(out)...)
}

func appendCompactDecimal(dst []byte, d decimal.Decimal) []byte {
	if d.Abs().LessThan(decimalEpsilon) {
		return append(dst, '0')
	}
	return append(dst, trimLeadingZero([]byte(d.String()))...)
}

func appendCompactTimestamp(dst []byte, t time.Time) []byte {
	u := t.UTC()
	if u.Hour() == 0 && u.Minute() == 0 && u.Second() == 0 && u.Nanosecond() == 0 {
		return u.AppendFormat(dst, compactDateLayout)
	}
	return u.AppendFormat(dst, compactTimestampLayout)
}

// trimLeadingZero turns 0.5 into .5 and -0.25 into -.25.
func trimLeadingZero(s []byte) []byte {
	if len(s) >= 2 && s[0] == '0' && s[1] == '.' {
		return s[1:]
	}
	if len(s) >= 3 && s[0] == '-' && s[1] == '0' && s[2] == '.' {
		s[1] = '-'
		return s[1:]
	}
	return s
}

func upperExponent(s []byte) {
	for i, c := range s {
		if c == 'e' {
			s[i] = 'E'
		}
	}
}

// nonFinite spells NaN and infinities the way invariant-culture producers do.
func nonFinite(f float64) (string, bool) {
	switch {
	case math.IsNaN(f):
		return "NaN", true
	case math.IsInf(f, 1):
		return "Infinity", true
	case math.IsInf(f, -1):
		return "-Infinity", true
	}
	return "", false
}
