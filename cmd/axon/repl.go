package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/Neumenon/axon/axon"
	"github.com/Neumenon/axon/internal/config"
)

// ---- History (own file) ----

// History keeps entered lines, one per line of the history file.
type History struct {
	path  string
	lines []string
}

func NewHistory(path string) *History {
	return &History{path: path}
}

func (h *History) Load(max int) error {
	if h.path == "" {
		return nil
	}
	f, err := os.Open(h.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" {
			continue
		}
		h.lines = append(h.lines, s)
		if max > 0 && len(h.lines) > max {
			h.lines = h.lines[len(h.lines)-max:]
		}
	}
	return sc.Err()
}

func (h *History) Append(line string) error {
	line = strings.TrimSpace(line)
	if line == "" || h.path == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(h.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(h.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if _, err := fmt.Fprintln(f, line); err != nil {
		return err
	}
	h.lines = append(h.lines, line)
	return nil
}

func (h *History) Print(w io.Writer, last int) {
	if last <= 0 || last > len(h.lines) {
		last = len(h.lines)
	}
	start := len(h.lines) - last
	for i := start; i < len(h.lines); i++ {
		fmt.Fprintf(w, "%5d  %s\n", i+1, h.lines[i])
	}
}

// ---- REPL helpers ----

// blockComplete reports whether lines end a block: an end marker line, or
// @end once a verbose @data directive has been entered.
func blockComplete(lines []string) bool {
	if len(lines) == 0 {
		return false
	}
	last := lines[len(lines)-1]
	if strings.HasPrefix(last, string(axon.EndMarker)) {
		return true
	}
	if last != "@end" {
		return false
	}
	for _, l := range lines {
		if strings.HasPrefix(l, "@data") {
			return true
		}
	}
	return false
}

// isMetaCommand matches only the known commands, so rows starting with an
// escape still reach the parser.
func isMetaCommand(line string) bool {
	switch line {
	case "\\q", "quit", "exit", "\\help", "\\history", "\\clear":
		return true
	}
	return false
}

// evaluate parses input and prints every block as a table.
func evaluate(w io.Writer, input string) error {
	res, err := axon.Parse(input)
	if err != nil {
		return err
	}
	if len(res.Blocks) == 0 {
		fmt.Fprintln(w, "(no blocks)")
		return nil
	}
	for _, b := range res.Blocks {
		printTable(w, b)
	}
	return nil
}

func printTable(w io.Writer, b *axon.DataBlock) {
	schema := b.Schema()
	cols := make([]string, schema.Len())
	widths := make([]int, schema.Len())
	for i, f := range schema.Fields() {
		cols[i] = f.String()
		widths[i] = len(cols[i])
	}

	cells := make([][]string, 0, b.Len())
	for _, row := range b.Rows() {
		out := make([]string, schema.Len())
		for i := range out {
			out[i] = cellText(row.Value(i), schema.Field(i).Type)
			widths[i] = max(widths[i], len(out[i]))
		}
		cells = append(cells, out)
	}

	printRow := func(values []string) {
		for i, v := range values {
			if i > 0 {
				fmt.Fprint(w, " | ")
			}
			fmt.Fprint(w, padRight(v, widths[i]))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "%s\n", schema.Name())
	printRow(cols)
	for i := range cols {
		if i > 0 {
			fmt.Fprint(w, "-+-")
		}
		fmt.Fprint(w, strings.Repeat("-", widths[i]))
	}
	fmt.Fprintln(w)
	for _, out := range cells {
		printRow(out)
	}
	fmt.Fprintf(w, "(%d rows)\n", b.Len())
}

func cellText(v axon.Value, t axon.Type) string {
	if v.IsNull() {
		return "NULL"
	}
	if s, err := v.AsString(); err == nil {
		return s
	}
	s, err := axon.EncodeValue(v, t, false)
	if err != nil {
		return v.String()
	}
	return s
}

func padRight(s string, w int) string {
	if len(s) >= w {
		return s
	}
	return s + strings.Repeat(" ", w-len(s))
}

const replHelp = `meta commands:
  \q | quit | exit       quit
  \history               print history
  \clear                 drop the pending block
  \help                  show help

input:
  enter a block (compact, ultra-compact or verbose); it is parsed and
  printed once the end marker (~) or the @end after @data is entered`

func runREPL(cfg *config.Config, logger *slog.Logger) error {
	h := NewHistory(cfg.REPL.HistoryFile)
	if err := h.Load(cfg.REPL.HistoryMax); err != nil {
		logger.Warn("history not loaded", "path", cfg.REPL.HistoryFile, "err", err)
	}

	prompt := cfg.REPL.Prompt
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer func() { _ = rl.Close() }()

	for _, line := range h.lines {
		_ = rl.SaveHistory(line)
	}

	var pending []string
	reset := func() {
		pending = pending[:0]
		rl.SetPrompt(prompt)
	}

	fmt.Println("type \\help for help")
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(pending) > 0 {
				reset()
				continue
			}
			fmt.Println("^C")
			continue
		}
		if err != nil {
			// EOF
			fmt.Println()
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if isMetaCommand(line) {
			switch line {
			case "\\q", "quit", "exit":
				return nil
			case "\\help":
				fmt.Println(replHelp)
			case "\\history":
				h.Print(os.Stdout, 50)
			case "\\clear":
				reset()
			}
			continue
		}

		pending = append(pending, line)
		if err := h.Append(line); err != nil {
			logger.Debug("history append failed", "err", err)
		}
		if !blockComplete(pending) {
			rl.SetPrompt("...> ")
			continue
		}

		input := strings.Join(pending, "\n")
		reset()
		if err := evaluate(os.Stdout, input); err != nil {
			fmt.Printf("error: %v\n", err)
		}
	}
}
