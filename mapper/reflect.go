package mapper

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Neumenon/axon/axon"
)

var (
	timeType    = reflect.TypeFor[time.Time]()
	decimalType = reflect.TypeFor[decimal.Decimal]()
)

// build reflects over T once and returns a descriptor whose accessors only
// index into the struct.
func build[T any](c *Cache, rt reflect.Type) (*axon.Descriptor[T], error) {
	st := rt
	isPtr := rt.Kind() == reflect.Pointer
	if isPtr {
		st = rt.Elem()
	}
	if st.Kind() != reflect.Struct {
		return nil, fmt.Errorf("mapper: %s is not a struct or pointer to struct", rt)
	}

	d := &axon.Descriptor[T]{Name: st.Name()}
	if isPtr {
		d.IsNil = func(item T) bool { return reflect.ValueOf(&item).Elem().IsNil() }
	}

	for i := 0; i < st.NumField(); i++ {
		sf := st.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := sf.Name
		if tag, ok := sf.Tag.Lookup("axon"); ok {
			if tag == "-" {
				continue
			}
			if tag, _, _ = strings.Cut(tag, ","); tag != "" {
				name = tag
			}
		}

		typ, nullable, ok := fieldType(sf.Type)
		if !ok {
			c.log().Debug("mapper: skipping field of unsupported type",
				"struct", st.Name(), "field", sf.Name, "type", sf.Type.String())
			continue
		}

		d.Fields = append(d.Fields, axon.Field[T]{
			Name:     name,
			Type:     typ,
			Nullable: nullable,
			Get:      getter[T](i, isPtr, typ),
			Set:      setter[T](c, st, name, i, isPtr),
		})
	}
	return d, nil
}

// fieldType maps a Go field type to its axon type.
func fieldType(ft reflect.Type) (t axon.Type, nullable, ok bool) {
	if ft.Kind() == reflect.Pointer {
		nullable = true
		ft = ft.Elem()
	}
	switch {
	case ft == timeType:
		return axon.TypeTimestamp, nullable, true
	case ft == decimalType:
		return axon.TypeDecimal, nullable, true
	}
	switch ft.Kind() {
	case reflect.String:
		return axon.TypeString, nullable, true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return axon.TypeInteger, nullable, true
	case reflect.Float32, reflect.Float64:
		return axon.TypeFloat, nullable, true
	case reflect.Bool:
		return axon.TypeBoolean, nullable, true
	}
	return 0, false, false
}

func getter[T any](idx int, isPtr bool, typ axon.Type) func(T) axon.Value {
	return func(item T) axon.Value {
		rv := reflect.ValueOf(&item).Elem()
		if isPtr {
			if rv.IsNil() {
				return axon.Null()
			}
			rv = rv.Elem()
		}
		return toValue(rv.Field(idx), typ)
	}
}

func toValue(fv reflect.Value, typ axon.Type) axon.Value {
	if fv.Kind() == reflect.Pointer {
		if fv.IsNil() {
			return axon.Null()
		}
		fv = fv.Elem()
	}
	switch typ {
	case axon.TypeString:
		return axon.String(fv.String())
	case axon.TypeInteger:
		if fv.CanInt() {
			return axon.Int(fv.Int())
		}
		u := fv.Uint()
		if u > math.MaxInt64 {
			// not an Integer value, so encoding fails with an *EncodeError
			return axon.String(strconv.FormatUint(u, 10))
		}
		return axon.Int(int64(u))
	case axon.TypeFloat:
		return axon.Float(fv.Float())
	case axon.TypeBoolean:
		return axon.Bool(fv.Bool())
	case axon.TypeTimestamp:
		return axon.Timestamp(fv.Interface().(time.Time))
	case axon.TypeDecimal:
		return axon.Decimal(fv.Interface().(decimal.Decimal))
	}
	return axon.Null()
}

// setter converts decoded values into the struct field. Values that cannot be
// converted are logged and ignored so the rest of the item still populates.
func setter[T any](c *Cache, st reflect.Type, name string, idx int, isPtr bool) func(*T, axon.Value) error {
	return func(item *T, v axon.Value) error {
		rv := reflect.ValueOf(item).Elem()
		if isPtr {
			if rv.IsNil() {
				rv.Set(reflect.New(st))
			}
			rv = rv.Elem()
		}
		if err := assign(rv.Field(idx), v); err != nil {
			c.log().Debug("mapper: ignoring field value",
				"struct", st.Name(), "field", name, "value", v.String(), "err", err)
		}
		return nil
	}
}

func assign(fv reflect.Value, v axon.Value) error {
	if v.IsNull() {
		fv.SetZero()
		return nil
	}
	if fv.Kind() == reflect.Pointer {
		nv := reflect.New(fv.Type().Elem())
		if err := assign(nv.Elem(), v); err != nil {
			return err
		}
		fv.Set(nv)
		return nil
	}

	switch ft := fv.Type(); {
	case ft == timeType:
		t, err := toTime(v)
		if err != nil {
			return err
		}
		fv.Set(reflect.ValueOf(t))
		return nil
	case ft == decimalType:
		d, err := toDecimal(v)
		if err != nil {
			return err
		}
		fv.Set(reflect.ValueOf(d))
		return nil
	}

	switch fv.Kind() {
	case reflect.String:
		s, err := toString(v)
		if err != nil {
			return err
		}
		fv.SetString(s)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := toInt(v)
		if err != nil {
			return err
		}
		if fv.OverflowInt(n) {
			return fmt.Errorf("%d overflows %s", n, fv.Type())
		}
		fv.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := toInt(v)
		if err != nil {
			return err
		}
		if n < 0 || fv.OverflowUint(uint64(n)) {
			return fmt.Errorf("%d overflows %s", n, fv.Type())
		}
		fv.SetUint(uint64(n))
	case reflect.Float32, reflect.Float64:
		f, err := toFloat(v)
		if err != nil {
			return err
		}
		fv.SetFloat(f)
	case reflect.Bool:
		b, err := toBool(v)
		if err != nil {
			return err
		}
		fv.SetBool(b)
	default:
		return fmt.Errorf("unsupported field type %s", fv.Type())
	}
	return nil
}

// Conversions accept the matching axon type, numeric neighbours and, for
// ultra-compact blocks where every field is a string, the textual form.

func toString(v axon.Value) (string, error) {
	if s, err := v.AsString(); err == nil {
		return s, nil
	}
	return axon.EncodeValue(v, v.Kind(), false)
}

func toInt(v axon.Value) (int64, error) {
	switch v.Kind() {
	case axon.TypeInteger:
		return v.AsInt()
	case axon.TypeFloat:
		f, _ := v.AsFloat()
		if f != math.Trunc(f) || math.Abs(f) >= 1<<63 {
			return 0, fmt.Errorf("%v is not integral", f)
		}
		return int64(f), nil
	case axon.TypeBoolean:
		b, _ := v.AsBool()
		if b {
			return 1, nil
		}
		return 0, nil
	case axon.TypeString:
		s, _ := v.AsString()
		return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	}
	return 0, fmt.Errorf("cannot convert %s to integer", v.Kind())
}

func toFloat(v axon.Value) (float64, error) {
	if v.Kind() == axon.TypeString {
		s, _ := v.AsString()
		return strconv.ParseFloat(strings.TrimSpace(s), 64)
	}
	return v.AsFloat()
}

func toBool(v axon.Value) (bool, error) {
	switch v.Kind() {
	case axon.TypeBoolean:
		return v.AsBool()
	case axon.TypeInteger:
		n, _ := v.AsInt()
		return n != 0, nil
	case axon.TypeString:
		s, _ := v.AsString()
		switch strings.TrimSpace(s) {
		case "1", "+":
			return true, nil
		case "0", "-":
			return false, nil
		}
		return strconv.ParseBool(s)
	}
	return false, fmt.Errorf("cannot convert %s to boolean", v.Kind())
}

func toTime(v axon.Value) (time.Time, error) {
	if v.Kind() == axon.TypeString {
		s, _ := v.AsString()
		tv, err := axon.Decode(s, axon.FieldDef{Type: axon.TypeTimestamp})
		if err != nil {
			return time.Time{}, err
		}
		return tv.AsTime()
	}
	return v.AsTime()
}

func toDecimal(v axon.Value) (decimal.Decimal, error) {
	if v.Kind() == axon.TypeString {
		s, _ := v.AsString()
		return decimal.NewFromString(strings.TrimSpace(s))
	}
	return v.AsDecimal()
}
