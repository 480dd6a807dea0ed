package axon

import "strings"

// ============================================================
// Row Tokenizer
// ============================================================
//
// A row is one line of '|'-separated fields:
//
//   1|"Smith, J|r"|a\|b|_|
//
// '"' toggles quoting (where '|' is literal), '\' escapes the next byte.
// Fields are returned raw: quotes and escapes are left in place and
// resolved by the value decoder in a single unescape pass.

// rowSpecials are the bytes the scanner has to stop at.
const rowSpecials = `|"\`

// SplitRow scans line into raw field slices and appends them to dst.
// The slices reference line; nothing is copied. An empty line yields no
// fields, a trailing unescaped '|' yields a final empty field.
func SplitRow(line string, dst []string) []string {
	if line == "" {
		return dst
	}
	scanRow(line, func(_ int, field string) bool {
		dst = append(dst, field)
		return true
	})
	return dst
}

// CountFields returns the number of fields in a raw row.
func CountFields(line string) int {
	if line == "" {
		return 0
	}
	n := 0
	scanRow(line, func(int, string) bool {
		n++
		return true
	})
	return n
}

// FieldAt returns the raw text of field i, scanning no further than needed.
func FieldAt(line string, i int) (string, bool) {
	if i < 0 || line == "" {
		return "", false
	}
	var out string
	found := false
	scanRow(line, func(idx int, field string) bool {
		if idx == i {
			out, found = field, true
			return false
		}
		return true
	})
	return out, found
}

// scanRow is the single-pass state machine behind the exported helpers.
// State is the quote flag plus the position; an escape skips two bytes,
// which is the pending-escape state folded into the index.
func scanRow(line string, yield func(idx int, field string) bool) {
	start, idx := 0, 0
	inQuote := false

	for i := 0; i < len(line); {
		j := strings.IndexAny(line[i:], rowSpecials)
		if j < 0 {
			break
		}
		i += j

		switch line[i] {
		case '\\':
			i += 2
			continue
		case '"':
			inQuote = !inQuote
		case '|':
			if !inQuote {
				if !yield(idx, line[start:i]) {
					return
				}
				idx++
				start = i + 1
			}
		}
		i++
	}

	yield(idx, line[start:])
}
