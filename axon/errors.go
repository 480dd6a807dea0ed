package axon

import (
	"errors"
	"fmt"
)

// Error categories. Every typed error below matches exactly one of these
// through errors.Is.
var (
	ErrBadHeader      = errors.New("axon: bad header")
	ErrUnknownType    = errors.New("axon: unknown type")
	ErrSchemaNotFound = errors.New("axon: schema not found")
	ErrValueParse     = errors.New("axon: value parse error")
	ErrTypeMismatch   = errors.New("axon: value does not match field type")
	ErrBinaryFormat   = errors.New("axon: malformed binary data")

	// ErrStop is returned by a RowFunc to end a callback scan early.
	// ParseWithCallback treats it as a clean stop and returns nil.
	ErrStop = errors.New("axon: stop")
)

// HeaderError reports a block header that violates the grammar.
type HeaderError struct {
	Header string // offending header text
	Reason string
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("axon: bad header %q: %s", e.Header, e.Reason)
}

func (e *HeaderError) Is(target error) bool { return target == ErrBadHeader }

// UnknownTypeError reports a type code outside {S,I,F,D,B,T}.
type UnknownTypeError struct {
	Code string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("axon: unknown type %q", e.Code)
}

func (e *UnknownTypeError) Is(target error) bool { return target == ErrUnknownType }

// SchemaNotFoundError reports a verbose @data block naming an undeclared schema.
type SchemaNotFoundError struct {
	Name string
}

func (e *SchemaNotFoundError) Error() string {
	return fmt.Sprintf("axon: schema not found: %s", e.Name)
}

func (e *SchemaNotFoundError) Is(target error) bool { return target == ErrSchemaNotFound }

// ValueParseError reports row text that cannot be coerced to the declared type.
type ValueParseError struct {
	Field string
	Raw   string
	Type  Type
	Err   error // underlying conversion error, may be nil
}

func (e *ValueParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("axon: field %s: cannot parse %q as %s: %v", e.Field, e.Raw, e.Type, e.Err)
	}
	return fmt.Sprintf("axon: field %s: cannot parse %q as %s", e.Field, e.Raw, e.Type)
}

func (e *ValueParseError) Is(target error) bool { return target == ErrValueParse }

func (e *ValueParseError) Unwrap() error { return e.Err }

// EncodeError reports a value that cannot be written as its field's type.
type EncodeError struct {
	Field string
	Type  Type
	Value Value
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("axon: field %s: cannot encode %s value as %s", e.Field, e.Value.Kind(), e.Type)
}

func (e *EncodeError) Is(target error) bool { return target == ErrTypeMismatch }

// BinaryError reports truncated or malformed binary input.
type BinaryError struct {
	Reason string
	Offset int
}

func (e *BinaryError) Error() string {
	return fmt.Sprintf("axon: binary: %s at offset %d", e.Reason, e.Offset)
}

func (e *BinaryError) Is(target error) bool { return target == ErrBinaryFormat }

// LineError attaches the 1-based input line to an error raised while parsing.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }
