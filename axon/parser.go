package axon

import (
	"strings"
	"time"
)

// ============================================================
// Parser
// ============================================================

// Result is everything parsed from one input.
type Result struct {
	// Schemas lists every declared schema in input order: @schema
	// declarations and the schemas of compact and ultra-compact blocks.
	Schemas []*Schema

	// Blocks lists the data blocks in input order.
	Blocks []*DataBlock
}

// Block returns the first block whose name matches (case-insensitive).
func (r *Result) Block(name string) (*DataBlock, bool) {
	for _, b := range r.Blocks {
		if strings.EqualFold(b.schema.name, name) {
			return b, true
		}
	}
	return nil, false
}

// Parse reads every block in input and decodes its rows.
//
// Lines outside blocks that are neither headers nor verbose directives are
// ignored. Any header or value error aborts the parse and is returned as a
// *LineError wrapping the typed error.
func Parse(input string) (*Result, error) {
	w := newWalker(input)
	res := &Result{}
	var raw []string

	for {
		blk, ok, err := w.nextBlock()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}

		block := NewDataBlock(blk.schema, blk.count)
		for {
			line, ok := w.nextRow(blk.verbose)
			if !ok {
				break
			}
			raw = SplitRow(line, raw[:0])
			if err := decodeRow(raw, block); err != nil {
				return nil, &LineError{Line: w.lines.n, Err: err}
			}
		}
		res.Blocks = append(res.Blocks, block)
	}

	res.Schemas = w.schemas
	return res, nil
}

// decodeRow decodes raw fields into a new row of b. Missing trailing fields
// stay null; extra fields are ignored.
func decodeRow(raw []string, b *DataBlock) error {
	s := b.schema
	cells := b.grow()
	n := min(len(raw), len(cells))

	for i := 0; i < n; i++ {
		var (
			v   Value
			err error
		)
		if i == s.series {
			v, err = DecodeDayOffset(raw[i], s.fields[i], s.baseDate)
		} else {
			v, err = Decode(raw[i], s.fields[i])
		}
		if err != nil {
			return err
		}
		cells[i] = v
	}
	return nil
}

// ============================================================
// Block walker
// ============================================================

// blockStart describes a block header the walker stopped at.
type blockStart struct {
	schema  *Schema
	count   int
	verbose bool
}

// walker drives header recognition and row-line iteration for both the
// materializing and the callback parser.
type walker struct {
	lines   lineReader
	schemas []*Schema
}

func newWalker(input string) *walker {
	return &walker{lines: lineReader{input: input}}
}

// nextBlock advances to the next data block. ok is false at end of input.
// Verbose @schema declarations met on the way are recorded.
func (w *walker) nextBlock() (blk blockStart, ok bool, err error) {
	for {
		line, more := w.lines.next()
		if !more {
			return blockStart{}, false, nil
		}
		switch {
		case line == "":
			continue

		case line[0] == BlockMarker:
			h, err := ParseHeader(line)
			if err != nil {
				return blockStart{}, false, &LineError{Line: w.lines.n, Err: err}
			}
			w.schemas = append(w.schemas, h.Schema)
			return blockStart{schema: h.Schema, count: h.Count}, true, nil

		case strings.HasPrefix(line, directiveSchema):
			if err := w.readSchema(line); err != nil {
				return blockStart{}, false, err
			}

		case strings.HasPrefix(line, directiveData):
			name, count, base, err := parseDataDirective(line)
			if err != nil {
				return blockStart{}, false, &LineError{Line: w.lines.n, Err: err}
			}
			s := w.lookup(name)
			if s == nil {
				return blockStart{}, false, &LineError{Line: w.lines.n, Err: &SchemaNotFoundError{Name: name}}
			}
			if !base.IsZero() {
				if s, err = newSchema(s.name, s.fields, base); err != nil {
					return blockStart{}, false, &LineError{Line: w.lines.n, Err: wrapHeaderErr(line, err)}
				}
			}
			return blockStart{schema: s, count: count, verbose: true}, true, nil
		}
	}
}

// readSchema consumes an @schema declaration through its @end line.
func (w *walker) readSchema(header string) error {
	startLine := w.lines.n
	name := strings.TrimSpace(strings.TrimPrefix(header, directiveSchema))
	if name == "" {
		return &LineError{Line: startLine, Err: &HeaderError{Header: header, Reason: "empty schema name"}}
	}

	var fields []FieldDef
	for {
		line, more := w.lines.next()
		if !more {
			return &LineError{Line: startLine, Err: &HeaderError{Header: header, Reason: "unterminated " + directiveSchema}}
		}
		if line == "" {
			continue
		}
		if line == directiveEnd {
			break
		}
		fd, err := parseVerboseField(line)
		if err != nil {
			return &LineError{Line: w.lines.n, Err: err}
		}
		fields = append(fields, fd)
	}

	s, err := newSchema(name, fields, time.Time{})
	if err != nil {
		return &LineError{Line: startLine, Err: wrapHeaderErr(header, err)}
	}
	w.schemas = append(w.schemas, s)
	return nil
}

func (w *walker) lookup(name string) *Schema {
	for i := len(w.schemas) - 1; i >= 0; i-- {
		if w.schemas[i].name == name {
			return w.schemas[i]
		}
	}
	return nil
}

// nextRow returns the next non-blank row line of the current block, or false
// at the end marker or end of input.
func (w *walker) nextRow(verbose bool) (string, bool) {
	for {
		line, more := w.lines.next()
		if !more {
			return "", false
		}
		if line == "" {
			continue
		}
		if line[0] == EndMarker || (verbose && line == directiveEnd) {
			return "", false
		}
		return line, true
	}
}

// ============================================================
// Line reader
// ============================================================

// lineReader yields trimmed lines split on \n, \r\n or a lone \r.
type lineReader struct {
	input string
	pos   int
	n     int // 1-based number of the last line returned
}

func (r *lineReader) next() (string, bool) {
	if r.pos >= len(r.input) {
		return "", false
	}
	rest := r.input[r.pos:]
	r.n++

	i := strings.IndexAny(rest, "\r\n")
	if i < 0 {
		r.pos = len(r.input)
		return strings.TrimSpace(rest), true
	}
	r.pos += i + 1
	if rest[i] == '\r' && i+1 < len(rest) && rest[i+1] == '\n' {
		r.pos++
	}
	return strings.TrimSpace(rest[:i]), true
}
