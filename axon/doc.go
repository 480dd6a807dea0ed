// Package axon implements AXON, a compact row-oriented text format for
// tabular data that both people and language models read easily.
//
// A block declares its field names and types once, then carries one
// '|'-separated row per line:
//
//	`User[2](id:I,name:S,active:B)
//	1|Alice|1
//	2|Bob|0
//	~
//
// # Header Grammars
//
// Three header forms describe the same schema:
//   - Compact: `Name[count](field:C,field:C?,...)
//   - Ultra-compact: `Name[count]{field,field} (every field nullable String)
//   - Verbose: @schema Name, one name:C line per field, @end; rows follow a
//     later @data Name[count] line and end at @end
//
// Type codes are S string, I int64, F float64, D decimal, B bool and
// T timestamp. A trailing '?' marks the field nullable. The count is a hint
// and is never enforced.
//
// # Rows
//
//	_        null, for any type
//	"a|b"    quoting: '|' is literal inside quotes
//	a\|b     escaping: \n \t \r and \<any> (the byte itself)
//
// An empty field is "" for String fields and null otherwise.
//
// # Compact And Time-Series Encoding
//
// Compact mode writes booleans as +/-, drops the leading zero of fractions
// (.5), collapses |x| < 1e-12 to 0 and writes timestamps as yyMMdd or
// yyMMddHHmmss. Time-series mode adds a base date to the header
// ([count@yyMMdd]) and writes the first timestamp field as a day offset from
// it; every other field is compact.
//
// # Binary
//
// MarshalBinary and UnmarshalBinary use a dense, length-delimited layout
// compatible with .NET BinaryWriter: version byte, type name, field tags,
// row count, then a null flag and native payload per cell.
//
// # Descriptors
//
// The serializers never reflect on Go types. A Descriptor lists the fields
// of a record type with Get (and optional Set) functions; package mapper
// builds them from struct tags.
package axon
