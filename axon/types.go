package axon

import "fmt"

// Type is the closed set of AXON value types.
type Type uint8

const (
	TypeString    Type = iota // S
	TypeInteger               // I: 64-bit signed
	TypeFloat                 // F: IEEE-754 double
	TypeDecimal               // D: arbitrary precision
	TypeBoolean               // B
	TypeTimestamp             // T: UTC instant
)

// String returns the type name.
func (t Type) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeInteger:
		return "integer"
	case TypeFloat:
		return "float"
	case TypeDecimal:
		return "decimal"
	case TypeBoolean:
		return "boolean"
	case TypeTimestamp:
		return "timestamp"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// Code returns the one-letter header code (always uppercase).
func (t Type) Code() byte {
	switch t {
	case TypeString:
		return 'S'
	case TypeInteger:
		return 'I'
	case TypeFloat:
		return 'F'
	case TypeDecimal:
		return 'D'
	case TypeBoolean:
		return 'B'
	case TypeTimestamp:
		return 'T'
	default:
		return '?'
	}
}

// Valid reports whether t is one of the six defined types.
func (t Type) Valid() bool {
	return t <= TypeTimestamp
}

// ParseType maps a one-character code (case-insensitive) to a Type.
// The nullability suffix '?' must already be stripped.
func ParseType(code string) (Type, error) {
	if len(code) != 1 {
		return 0, &UnknownTypeError{Code: code}
	}
	switch code[0] {
	case 'S', 's':
		return TypeString, nil
	case 'I', 'i':
		return TypeInteger, nil
	case 'F', 'f':
		return TypeFloat, nil
	case 'D', 'd':
		return TypeDecimal, nil
	case 'B', 'b':
		return TypeBoolean, nil
	case 'T', 't':
		return TypeTimestamp, nil
	}
	return 0, &UnknownTypeError{Code: code}
}
