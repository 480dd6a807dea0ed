package axon

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/big"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// ============================================================
// Binary Codec
// ============================================================
//
// Layout (little endian, .NET BinaryWriter compatible):
//
//   u8      version (1)
//   string  type name
//   u8      field count
//   field count × { string name; u8 tag }
//   i32     row count
//   rows × fields × { u8 null flag (1 = null); payload when not null }
//
// Strings are a 7-bit varint byte length followed by UTF-8.

// BinaryVersion is the only binary layout version.
const BinaryVersion = 1

// Binary field tags.
const (
	tagString  byte = 1
	tagInt32   byte = 2 // read only
	tagInt64   byte = 3
	tagFloat64 byte = 4
	tagFloat32 byte = 5 // read only
	tagBool    byte = 6
	tagTime    byte = 7
	tagDecimal byte = 8
)

// .NET DateTime.ToBinary constants.
const (
	ticksPerSecond = 10_000_000
	// seconds from 0001-01-01 to 1970-01-01
	unixEpochSeconds = 62_135_596_800
	kindShift        = 62
	kindUTC          = 1
	kindLocal        = 2
	ticksMask        = 1<<kindShift - 1
	maxTicks         = 3_155_378_975_999_999_999
)

const maxDecimalScale = 28

var max96 = new(big.Int).Lsh(big.NewInt(1), 96)

func binaryTag(t Type) byte {
	switch t {
	case TypeInteger:
		return tagInt64
	case TypeFloat:
		return tagFloat64
	case TypeDecimal:
		return tagDecimal
	case TypeBoolean:
		return tagBool
	case TypeTimestamp:
		return tagTime
	default:
		return tagString
	}
}

func tagType(tag byte) (Type, bool) {
	switch tag {
	case tagString:
		return TypeString, true
	case tagInt32, tagInt64:
		return TypeInteger, true
	case tagFloat64, tagFloat32:
		return TypeFloat, true
	case tagBool:
		return TypeBoolean, true
	case tagTime:
		return TypeTimestamp, true
	case tagDecimal:
		return TypeDecimal, true
	}
	return 0, false
}

// MarshalBinary encodes items in the binary layout.
func MarshalBinary[T any](d *Descriptor[T], items []T) ([]byte, error) {
	return AppendBinary(make([]byte, 0, 64+len(items)*16*len(d.Fields)), d, items)
}

// AppendBinary appends the binary encoding of items to dst.
func AppendBinary[T any](dst []byte, d *Descriptor[T], items []T) ([]byte, error) {
	if len(d.Fields) > math.MaxUint8 {
		return nil, fmt.Errorf("axon: binary layout holds at most %d fields, got %d", math.MaxUint8, len(d.Fields))
	}
	if len(items) > math.MaxInt32 {
		return nil, fmt.Errorf("axon: binary layout holds at most %d rows", math.MaxInt32)
	}

	dst = append(dst, BinaryVersion)
	dst = appendBinaryString(dst, d.Name)
	dst = append(dst, byte(len(d.Fields)))
	for _, f := range d.Fields {
		dst = appendBinaryString(dst, f.Name)
		dst = append(dst, binaryTag(f.Type))
	}
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(items)))

	for _, item := range items {
		null := d.isNil(item)
		for _, f := range d.Fields {
			if null {
				dst = append(dst, 1)
				continue
			}
			var err error
			if dst, err = appendBinaryValue(dst, f.Get(item), f.Type); err != nil {
				if ee, ok := err.(*EncodeError); ok {
					ee.Field = f.Name
				}
				return nil, err
			}
		}
	}
	return dst, nil
}

func appendBinaryValue(dst []byte, v Value, t Type) ([]byte, error) {
	if v.IsNull() {
		return append(dst, 1), nil
	}
	dst = append(dst, 0)

	switch t {
	case TypeInteger:
		n, ok := coerceInt(v)
		if !ok {
			return nil, &EncodeError{Type: t, Value: v}
		}
		return binary.LittleEndian.AppendUint64(dst, uint64(n)), nil
	case TypeFloat:
		f, err := v.AsFloat()
		if err != nil {
			return nil, &EncodeError{Type: t, Value: v}
		}
		return binary.LittleEndian.AppendUint64(dst, math.Float64bits(f)), nil
	case TypeBoolean:
		b, ok := coerceBool(v)
		if !ok {
			return nil, &EncodeError{Type: t, Value: v}
		}
		if b {
			return append(dst, 1), nil
		}
		return append(dst, 0), nil
	case TypeTimestamp:
		tm, err := v.AsTime()
		if err != nil {
			return nil, &EncodeError{Type: t, Value: v}
		}
		return binary.LittleEndian.AppendUint64(dst, uint64(toBinaryTicks(tm))), nil
	case TypeDecimal:
		d, err := v.AsDecimal()
		if err != nil {
			return nil, &EncodeError{Type: t, Value: v}
		}
		return appendNetDecimal(dst, d)
	default:
		s := v.str
		if v.typ != TypeString {
			text, err := EncodeValue(v, v.typ, false)
			if err != nil {
				return nil, err
			}
			s = text
		}
		return appendBinaryString(dst, s), nil
	}
}

func appendBinaryString(dst []byte, s string) []byte {
	dst = binary.AppendUvarint(dst, uint64(len(s)))
	return append(dst, s...)
}

// toBinaryTicks is DateTime.ToBinary for a UTC DateTime.
func toBinaryTicks(t time.Time) int64 {
	u := t.UTC()
	ticks := (u.Unix()+unixEpochSeconds)*ticksPerSecond + int64(u.Nanosecond()/100)
	return ticks | kindUTC<<kindShift
}

// fromBinaryTicks is DateTime.FromBinary, always returning UTC.
func fromBinaryTicks(v int64) (time.Time, bool) {
	kind := uint64(v) >> kindShift
	ticks := v & ticksMask
	if kind == kindLocal && ticks > maxTicks {
		// local values are stored as UTC ticks wrapped into the 62-bit range
		ticks -= 1 << kindShift
	}
	if ticks < 0 || ticks > maxTicks {
		return time.Time{}, false
	}
	secs := ticks/ticksPerSecond - unixEpochSeconds
	nanos := (ticks % ticksPerSecond) * 100
	return time.Unix(secs, nanos).UTC(), true
}

// appendNetDecimal writes System.Decimal's four int32 parts: lo, mid, hi,
// flags (scale in bits 16-23, sign in bit 31).
func appendNetDecimal(dst []byte, d decimal.Decimal) ([]byte, error) {
	if -d.Exponent() > maxDecimalScale {
		d = d.Round(maxDecimalScale)
	}
	coef := d.Coefficient()
	scale := -d.Exponent()
	if scale < 0 {
		coef.Mul(coef, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(-scale)), nil))
		scale = 0
	}

	neg := coef.Sign() < 0
	coef.Abs(coef)
	if coef.Cmp(max96) >= 0 {
		return nil, &EncodeError{Type: TypeDecimal, Value: Decimal(d)}
	}

	var mag [12]byte
	coef.FillBytes(mag[:])
	// FillBytes is big endian; the parts are little endian words, low first.
	for _, w := range [3]int{8, 4, 0} {
		dst = binary.LittleEndian.AppendUint32(dst, binary.BigEndian.Uint32(mag[w:w+4]))
	}

	flags := uint32(scale) << 16
	if neg {
		flags |= 1 << 31
	}
	return binary.LittleEndian.AppendUint32(dst, flags), nil
}

func netDecimal(lo, mid, hi, flags uint32) (decimal.Decimal, bool) {
	scale := int32(flags >> 16 & 0xFF)
	if scale > maxDecimalScale {
		return decimal.Decimal{}, false
	}
	var mag [12]byte
	binary.BigEndian.PutUint32(mag[0:], hi)
	binary.BigEndian.PutUint32(mag[4:], mid)
	binary.BigEndian.PutUint32(mag[8:], lo)
	coef := new(big.Int).SetBytes(mag[:])
	if flags&(1<<31) != 0 {
		coef.Neg(coef)
	}
	return decimal.NewFromBigInt(coef, -scale), true
}

// ============================================================
// Binary decoding
// ============================================================

// UnmarshalBinary decodes the binary layout into a DataBlock. The layout
// carries no nullability, so every schema field is nullable.
func UnmarshalBinary(data []byte) (*DataBlock, error) {
	r := binReader{data: data}

	if v := r.u8(); r.err == nil && v != BinaryVersion {
		return nil, &BinaryError{Reason: fmt.Sprintf("unsupported version %d", v), Offset: 0}
	}
	name := r.str()
	n := int(r.u8())
	fields := make([]FieldDef, 0, n)
	tags := make([]byte, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		fname := r.str()
		at := r.off
		tag := r.u8()
		if r.err != nil {
			break
		}
		t, ok := tagType(tag)
		if !ok {
			return nil, &BinaryError{Reason: fmt.Sprintf("unknown field tag %d", tag), Offset: at}
		}
		fields = append(fields, FieldDef{Name: fname, Type: t, Nullable: true})
		tags = append(tags, tag)
	}
	at := r.off
	rows := int32(r.u32())
	if r.err != nil {
		return nil, r.err
	}
	if rows < 0 {
		return nil, &BinaryError{Reason: "negative row count", Offset: at}
	}

	schema, err := newSchema(name, fields, time.Time{})
	if err != nil {
		return nil, &BinaryError{Reason: err.Error(), Offset: 0}
	}

	// the hint is bounded by the payload so a corrupt count cannot force a
	// huge allocation
	block := NewDataBlock(schema, min(int(rows), len(data)-r.off))
	for i := 0; i < int(rows); i++ {
		cells := block.grow()
		for j, tag := range tags {
			cells[j] = r.value(tag)
		}
		if r.err != nil {
			return nil, r.err
		}
	}
	if r.off != len(data) {
		return nil, &BinaryError{Reason: "trailing bytes", Offset: r.off}
	}
	return block, nil
}

// binReader is a sticky-error cursor: after the first failure every read
// returns a zero value and err stays set.
type binReader struct {
	data []byte
	off  int
	err  error
}

func (r *binReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || len(r.data)-r.off < n {
		r.err = &BinaryError{Reason: "truncated input", Offset: r.off}
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *binReader) u8() byte {
	if b := r.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *binReader) u32() uint32 {
	if b := r.take(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (r *binReader) u64() uint64 {
	if b := r.take(8); b != nil {
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}

func (r *binReader) str() string {
	if r.err != nil {
		return ""
	}
	n, k := binary.Uvarint(r.data[r.off:])
	if k <= 0 || n > math.MaxInt32 {
		r.err = &BinaryError{Reason: "bad string length", Offset: r.off}
		return ""
	}
	r.off += k
	at := r.off
	b := r.take(int(n))
	if r.err != nil {
		return ""
	}
	if !utf8.Valid(b) {
		r.err = &BinaryError{Reason: "invalid UTF-8", Offset: at}
		return ""
	}
	return string(b)
}

func (r *binReader) value(tag byte) Value {
	at := r.off
	if r.u8() != 0 || r.err != nil {
		return Null()
	}
	switch tag {
	case tagString:
		return String(r.str())
	case tagInt32:
		return Int(int64(int32(r.u32())))
	case tagInt64:
		return Int(int64(r.u64()))
	case tagFloat64:
		return Float(math.Float64frombits(r.u64()))
	case tagFloat32:
		return Float(float64(math.Float32frombits(r.u32())))
	case tagBool:
		return Bool(r.u8() != 0)
	case tagTime:
		v := int64(r.u64())
		if r.err != nil {
			return Null()
		}
		t, ok := fromBinaryTicks(v)
		if !ok {
			r.err = &BinaryError{Reason: "timestamp out of range", Offset: at}
			return Null()
		}
		return Timestamp(t)
	case tagDecimal:
		lo, mid, hi, flags := r.u32(), r.u32(), r.u32(), r.u32()
		if r.err != nil {
			return Null()
		}
		d, ok := netDecimal(lo, mid, hi, flags)
		if !ok {
			r.err = &BinaryError{Reason: "decimal scale out of range", Offset: at}
			return Null()
		}
		return Decimal(d)
	}
	return Null()
}
