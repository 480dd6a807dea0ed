package axon

import (
	"errors"
	"log/slog"
)

// RowFunc receives one undecoded row. index counts rows within the block
// from 0. row references the input and is only valid during the call;
// decode it with SplitRow/Decode or FieldAt. Returning ErrStop ends the scan
// cleanly; any other error aborts it.
type RowFunc func(schema *Schema, index int, row string) error

// CallbackOptions configures ParseWithCallbackOptions.
type CallbackOptions struct {
	// Logger receives debug events. nil discards them.
	Logger *slog.Logger
}

// ParseWithCallback walks input like Parse but hands each row to fn instead
// of decoding it into a DataBlock.
func ParseWithCallback(input string, fn RowFunc) error {
	return ParseWithCallbackOptions(input, fn, CallbackOptions{})
}

// ParseWithCallbackOptions is ParseWithCallback with options.
func ParseWithCallbackOptions(input string, fn RowFunc, opts CallbackOptions) error {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	w := newWalker(input)
	for {
		blk, ok, err := w.nextBlock()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}

		for i := 0; ; i++ {
			line, ok := w.nextRow(blk.verbose)
			if !ok {
				break
			}
			if err := fn(blk.schema, i, line); err != nil {
				if errors.Is(err, ErrStop) {
					log.Debug("callback stopped scan",
						"block", blk.schema.Name(), "row", i, "line", w.lines.n)
					return nil
				}
				return &LineError{Line: w.lines.n, Err: err}
			}
		}
	}
}
