package axon

import (
	"strconv"
	"strings"
	"time"
)

// ============================================================
// Header Parser
// ============================================================
//
// Compact:        `Name[count](id:I,name:S,note:S?)
// Ultra-compact:  `Name[count]{id,name}
// Verbose:        @schema Name / id:I / ... / @end, then @data Name[count]
//
// The count may carry a time-series base date: [count@yyMMdd].

// BlockMarker opens a compact or ultra-compact block.
const BlockMarker = '`'

// EndMarker closes a block. Any trimmed line starting with it ends the rows.
const EndMarker = '~'

// Verbose grammar directives.
const (
	directiveSchema = "@schema"
	directiveData   = "@data"
	directiveEnd    = "@end"
)

// Grammar identifies which header syntax declared a block.
type Grammar uint8

const (
	GrammarCompact Grammar = iota
	GrammarUltraCompact
	GrammarVerbose
)

func (g Grammar) String() string {
	switch g {
	case GrammarCompact:
		return "compact"
	case GrammarUltraCompact:
		return "ultra-compact"
	case GrammarVerbose:
		return "verbose"
	default:
		return "unknown"
	}
}

// Header is a parsed block header.
type Header struct {
	Schema  *Schema
	Count   int // row-count hint, never enforced
	Grammar Grammar
}

// ParseHeader parses a single-line compact or ultra-compact header. The line
// must start with the block marker; surrounding whitespace is ignored.
func ParseHeader(line string) (*Header, error) {
	line = strings.TrimSpace(line)
	if line == "" || line[0] != BlockMarker {
		return nil, &HeaderError{Header: line, Reason: "missing block marker"}
	}
	h := line[1:]

	name, count, base, rest, err := parseNameAndCount(h)
	if err != nil {
		return nil, &HeaderError{Header: line, Reason: err.Error()}
	}

	open := strings.IndexAny(rest, "({")
	if open < 0 {
		return nil, &HeaderError{Header: line, Reason: "missing field list"}
	}
	ultra := rest[open] == '{'
	closer := byte(')')
	if ultra {
		closer = '}'
	}
	end := strings.IndexByte(rest[open+1:], closer)
	if end < 0 {
		return nil, &HeaderError{Header: line, Reason: "unterminated field list"}
	}

	fields, err := parseFieldList(rest[open+1:open+1+end], ultra)
	if err != nil {
		return nil, wrapHeaderErr(line, err)
	}

	schema, err := newSchema(name, fields, base)
	if err != nil {
		return nil, wrapHeaderErr(line, err)
	}

	g := GrammarCompact
	if ultra {
		g = GrammarUltraCompact
	}
	return &Header{Schema: schema, Count: count, Grammar: g}, nil
}

// parseNameAndCount splits "Name[count@date]rest".
func parseNameAndCount(h string) (name string, count int, base time.Time, rest string, err error) {
	b := strings.IndexByte(h, '[')
	if b < 0 {
		return "", 0, time.Time{}, "", errString("missing row-count bracket")
	}
	name = strings.TrimSpace(h[:b])
	if name == "" {
		return "", 0, time.Time{}, "", errString("empty block name")
	}
	c := strings.IndexByte(h[b:], ']')
	if c < 0 {
		return "", 0, time.Time{}, "", errString("unterminated row-count bracket")
	}
	count, base, err = parseCountTag(h[b+1 : b+c])
	if err != nil {
		return "", 0, time.Time{}, "", err
	}
	return name, count, base, h[b+c+1:], nil
}

// parseCountTag parses "12", "12@250101" or an empty count.
func parseCountTag(s string) (int, time.Time, error) {
	var base time.Time
	if at := strings.IndexByte(s, '@'); at >= 0 {
		tag := strings.TrimSpace(s[at+1:])
		t, err := time.ParseInLocation(compactDateLayout, tag, time.UTC)
		if err != nil || len(tag) != len(compactDateLayout) {
			return 0, base, errString("bad base-date tag " + strconv.Quote(tag))
		}
		base = t
		s = s[:at]
	}
	s = strings.TrimSpace(s)
	if s == "" {
		// the count is only a hint
		return 0, base, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, base, errString("bad row count " + strconv.Quote(s))
	}
	return n, base, nil
}

// parseFieldList splits on commas; empty tokens are skipped.
func parseFieldList(list string, ultra bool) ([]FieldDef, error) {
	fields := make([]FieldDef, 0, strings.Count(list, ",")+1)
	for tok := range strings.SplitSeq(list, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		colon := strings.IndexByte(tok, ':')
		if colon < 0 {
			if !ultra {
				return nil, errString("field " + strconv.Quote(tok) + " has no type")
			}
			fields = append(fields, FieldDef{Name: tok, Type: TypeString, Nullable: true})
			continue
		}
		fd, err := parseFieldDef(tok[:colon], tok[colon+1:])
		if err != nil {
			return nil, err
		}
		fields = append(fields, fd)
	}
	return fields, nil
}

// parseFieldDef builds a field from "name" and "C" or "C?".
func parseFieldDef(name, code string) (FieldDef, error) {
	name = strings.TrimSpace(name)
	code = strings.TrimSpace(code)
	if name == "" {
		return FieldDef{}, errString("empty field name")
	}
	nullable := strings.HasSuffix(code, "?")
	if nullable {
		code = code[:len(code)-1]
	}
	t, err := ParseType(code)
	if err != nil {
		return FieldDef{}, err
	}
	return FieldDef{Name: name, Type: t, Nullable: nullable}, nil
}

// parseVerboseField parses one "name:C[?]" line of an @schema block.
func parseVerboseField(line string) (FieldDef, error) {
	colon := strings.IndexByte(line, ':')
	if colon < 0 {
		return FieldDef{}, &HeaderError{Header: line, Reason: "field has no type"}
	}
	fd, err := parseFieldDef(line[:colon], line[colon+1:])
	if err != nil {
		return FieldDef{}, wrapHeaderErr(line, err)
	}
	return fd, nil
}

// parseDataDirective parses "@data Name[count]" and returns the referenced
// schema name.
func parseDataDirective(line string) (name string, count int, base time.Time, err error) {
	h := strings.TrimSpace(strings.TrimPrefix(line, directiveData))
	name, count, base, rest, err := parseNameAndCount(h)
	if err != nil {
		return "", 0, time.Time{}, &HeaderError{Header: line, Reason: err.Error()}
	}
	if strings.TrimSpace(rest) != "" {
		return "", 0, time.Time{}, &HeaderError{Header: line, Reason: "trailing text after row count"}
	}
	return name, count, base, nil
}

// appendHeader writes a compact header line without the trailing newline.
func appendHeader(dst []byte, name string, count int, base time.Time, fields []FieldDef) []byte {
	dst = append(dst, BlockMarker)
	dst = append(dst, name...)
	dst = append(dst, '[')
	dst = strconv.AppendInt(dst, int64(count), 10)
	if !base.IsZero() {
		dst = append(dst, '@')
		dst = base.UTC().AppendFormat(dst, compactDateLayout)
	}
	dst = append(dst, ']', '(')
	for i, f := range fields {
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = append(dst, f.Name...)
		dst = append(dst, ':', f.Type.Code())
		if f.Nullable {
			dst = append(dst, '?')
		}
	}
	return append(dst, ')')
}

// wrapHeaderErr keeps UnknownTypeError as is and turns anything else into a
// HeaderError for line.
func wrapHeaderErr(line string, err error) error {
	if _, ok := err.(*UnknownTypeError); ok {
		return err
	}
	return &HeaderError{Header: line, Reason: err.Error()}
}

type errString string

func (e errString) Error() string { return string(e) }
