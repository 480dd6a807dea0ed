package axon

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Value is one typed cell. The zero Value is null.
type Value struct {
	typ   Type
	valid bool

	// Scalar payload (only one valid based on typ)
	num int64 // Integer, Boolean (0/1)
	flt float64
	str string
	tm  time.Time
	dec decimal.Decimal
}

// ============================================================
// Constructors
// ============================================================

// Null returns the null value.
func Null() Value {
	return Value{}
}

// String creates a string value.
func String(s string) Value {
	return Value{typ: TypeString, valid: true, str: s}
}

// Int creates an integer value.
func Int(n int64) Value {
	return Value{typ: TypeInteger, valid: true, num: n}
}

// Float creates a float value.
func Float(f float64) Value {
	return Value{typ: TypeFloat, valid: true, flt: f}
}

// Decimal creates a decimal value.
func Decimal(d decimal.Decimal) Value {
	return Value{typ: TypeDecimal, valid: true, dec: d}
}

// Bool creates a boolean value.
func Bool(b bool) Value {
	v := Value{typ: TypeBoolean, valid: true}
	if b {
		v.num = 1
	}
	return v
}

// Timestamp creates a timestamp value.
func Timestamp(t time.Time) Value {
	return Value{typ: TypeTimestamp, valid: true, tm: t}
}

// ValueOf converts a plain Go value into a Value. nil maps to Null.
// Supported: string, all int and uint kinds, float32/64, bool, time.Time,
// decimal.Decimal, Value and pointers to any of these.
func ValueOf(x any) (Value, error) {
	switch v := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return v, nil
	case string:
		return String(v), nil
	case int:
		return Int(int64(v)), nil
	case int8:
		return Int(int64(v)), nil
	case int16:
		return Int(int64(v)), nil
	case int32:
		return Int(int64(v)), nil
	case int64:
		return Int(v), nil
	case uint:
		return uintValue(uint64(v))
	case uint8:
		return Int(int64(v)), nil
	case uint16:
		return Int(int64(v)), nil
	case uint32:
		return Int(int64(v)), nil
	case uint64:
		return uintValue(v)
	case float32:
		return Float(float64(v)), nil
	case float64:
		return Float(v), nil
	case bool:
		return Bool(v), nil
	case time.Time:
		return Timestamp(v), nil
	case decimal.Decimal:
		return Decimal(v), nil
	case *string:
		if v == nil {
			return Null(), nil
		}
		return String(*v), nil
	case *int64:
		if v == nil {
			return Null(), nil
		}
		return Int(*v), nil
	case *int:
		if v == nil {
			return Null(), nil
		}
		return Int(int64(*v)), nil
	case *float64:
		if v == nil {
			return Null(), nil
		}
		return Float(*v), nil
	case *bool:
		if v == nil {
			return Null(), nil
		}
		return Bool(*v), nil
	case *time.Time:
		if v == nil {
			return Null(), nil
		}
		return Timestamp(*v), nil
	case *decimal.Decimal:
		if v == nil {
			return Null(), nil
		}
		return Decimal(*v), nil
	}
	return Null(), fmt.Errorf("%w: unsupported Go type %T", ErrTypeMismatch, x)
}

func uintValue(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return Null(), fmt.Errorf("%w: %d overflows int64", ErrTypeMismatch, u)
	}
	return Int(int64(u)), nil
}

// ============================================================
// Accessors
// ============================================================

// IsNull reports whether v is the null value.
func (v Value) IsNull() bool {
	return !v.valid
}

// Kind returns the value's own type. It is meaningless for null values.
func (v Value) Kind() Type {
	return v.typ
}

// AsString returns the string payload.
func (v Value) AsString() (string, error) {
	if err := v.expect(TypeString); err != nil {
		return "", err
	}
	return v.str, nil
}

// AsInt returns the integer payload.
func (v Value) AsInt() (int64, error) {
	if err := v.expect(TypeInteger); err != nil {
		return 0, err
	}
	return v.num, nil
}

// AsFloat returns the float payload. Integer and Decimal values convert.
func (v Value) AsFloat() (float64, error) {
	if !v.valid {
		return 0, fmt.Errorf("axon: null value")
	}
	switch v.typ {
	case TypeFloat:
		return v.flt, nil
	case TypeInteger:
		return float64(v.num), nil
	case TypeDecimal:
		f, _ := v.dec.Float64()
		return f, nil
	}
	return 0, fmt.Errorf("axon: expected float, got %s", v.typ)
}

// AsDecimal returns the decimal payload. Integer and Float values convert.
func (v Value) AsDecimal() (decimal.Decimal, error) {
	if !v.valid {
		return decimal.Zero, fmt.Errorf("axon: null value")
	}
	switch v.typ {
	case TypeDecimal:
		return v.dec, nil
	case TypeInteger:
		return decimal.NewFromInt(v.num), nil
	case TypeFloat:
		if math.IsNaN(v.flt) || math.IsInf(v.flt, 0) {
			return decimal.Zero, fmt.Errorf("axon: %v has no decimal form", v.flt)
		}
		return decimal.NewFromFloat(v.flt), nil
	}
	return decimal.Zero, fmt.Errorf("axon: expected decimal, got %s", v.typ)
}

// AsBool returns the boolean payload.
func (v Value) AsBool() (bool, error) {
	if err := v.expect(TypeBoolean); err != nil {
		return false, err
	}
	return v.num != 0, nil
}

// AsTime returns the timestamp payload.
func (v Value) AsTime() (time.Time, error) {
	if err := v.expect(TypeTimestamp); err != nil {
		return time.Time{}, err
	}
	return v.tm, nil
}

func (v Value) expect(t Type) error {
	if !v.valid {
		return fmt.Errorf("axon: null value")
	}
	if v.typ != t {
		return fmt.Errorf("axon: expected %s, got %s", t, v.typ)
	}
	return nil
}

// Interface returns the payload as a plain Go value: nil, string, int64,
// float64, decimal.Decimal, bool or time.Time.
func (v Value) Interface() any {
	if !v.valid {
		return nil
	}
	switch v.typ {
	case TypeString:
		return v.str
	case TypeInteger:
		return v.num
	case TypeFloat:
		return v.flt
	case TypeDecimal:
		return v.dec
	case TypeBoolean:
		return v.num != 0
	case TypeTimestamp:
		return v.tm
	}
	return nil
}

// Equal reports whether two values hold the same type and payload.
// Timestamps compare as instants, decimals numerically.
func (v Value) Equal(o Value) bool {
	if v.valid != o.valid {
		return false
	}
	if !v.valid {
		return true
	}
	if v.typ != o.typ {
		return false
	}
	switch v.typ {
	case TypeString:
		return v.str == o.str
	case TypeInteger, TypeBoolean:
		return v.num == o.num
	case TypeFloat:
		return v.flt == o.flt || (math.IsNaN(v.flt) && math.IsNaN(o.flt))
	case TypeDecimal:
		return v.dec.Equal(o.dec)
	case TypeTimestamp:
		return v.tm.Equal(o.tm)
	}
	return false
}

// String returns a debugging representation.
func (v Value) String() string {
	if !v.valid {
		return "null"
	}
	return fmt.Sprintf("%s(%v)", v.typ, v.Interface())
}
