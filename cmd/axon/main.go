// axon - AXON codec CLI tool
//
// Usage:
//
//	axon to-json [file]                        Parse AXON blocks and print them as JSON
//	axon from-json --name=N [options] [file]   Convert a JSON array of objects to an AXON block
//	axon inspect [file]                        Stream blocks and report schemas and row shapes
//	axon to-bin [--name=N] -o out [file]       Encode one AXON block in the binary layout
//	axon from-bin [file]                       Decode a binary block back to AXON text
//	axon repl                                  Interactive block parser
//	axon version                               Print version info
//
// Every command accepts --config=path.yaml. If no file is given, reads from stdin.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Neumenon/axon/internal/config"
)

const libVersion = "0.3.0"

type options struct {
	configPath string
	name       string
	output     string
	file       string
	timeSeries bool
	compact    bool
	base       time.Time
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	switch cmd {
	case "version", "-v", "--version":
		fmt.Printf("axon %s\n", libVersion)
		return
	case "help", "-h", "--help":
		printUsage()
		return
	}

	opts, err := parseArgs(os.Args[2:])
	if err != nil {
		fatal("%v", err)
	}

	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		fatal("%v", err)
	}
	level, err := cfg.Level()
	if err != nil {
		fatal("%v", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// flags win over config
	if !opts.timeSeries {
		opts.timeSeries = cfg.Output.TimeSeries
	}
	if !opts.compact {
		opts.compact = cfg.Output.CompactJSON
	}
	if opts.base.IsZero() {
		if opts.base, err = cfg.BaseDate(); err != nil {
			fatal("%v", err)
		}
	}

	if cmd == "repl" {
		if err := runREPL(cfg, logger); err != nil {
			fatal("repl: %v", err)
		}
		return
	}

	var input io.Reader = os.Stdin
	if opts.file != "" {
		f, err := os.Open(opts.file)
		if err != nil {
			fatal("open file: %v", err)
		}
		defer f.Close()
		input = f
	}
	data, err := io.ReadAll(input)
	if err != nil {
		fatal("read input: %v", err)
	}
	logger.Debug("input loaded", "command", cmd, "bytes", len(data))

	switch cmd {
	case "to-json":
		err = toJSON(os.Stdout, string(data), opts.compact)
	case "from-json":
		err = fromJSON(os.Stdout, data, opts)
	case "inspect":
		err = inspect(os.Stdout, string(data), logger)
	case "to-bin":
		if opts.output == "" {
			fatal("to-bin: missing -o output file")
		}
		var bin []byte
		if bin, err = toBinary(string(data), opts.name); err == nil {
			err = os.WriteFile(opts.output, bin, 0o644)
		}
	case "from-bin":
		err = fromBinary(os.Stdout, data)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fatal("%s: %v", cmd, err)
	}
}

func parseArgs(args []string) (options, error) {
	var opts options
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--time-series":
			opts.timeSeries = true
		case arg == "--compact":
			opts.compact = true
		case arg == "-o":
			if i+1 >= len(args) {
				return opts, fmt.Errorf("-o needs a file name")
			}
			i++
			opts.output = args[i]
		case strings.HasPrefix(arg, "-o="):
			opts.output = strings.TrimPrefix(arg, "-o=")
		case strings.HasPrefix(arg, "--config="):
			opts.configPath = strings.TrimPrefix(arg, "--config=")
		case strings.HasPrefix(arg, "--name="):
			opts.name = strings.TrimPrefix(arg, "--name=")
		case strings.HasPrefix(arg, "--base="):
			t, err := time.Parse(time.DateOnly, strings.TrimPrefix(arg, "--base="))
			if err != nil {
				return opts, fmt.Errorf("--base: %w", err)
			}
			opts.base = t
		case arg == "-":
			opts.file = ""
		case strings.HasPrefix(arg, "-"):
			return opts, fmt.Errorf("unknown flag: %s", arg)
		default:
			opts.file = arg
		}
	}
	return opts, nil
}

func printUsage() {
	fmt.Fprint(os.Stderr, `axon - AXON codec CLI tool

Usage:
  axon to-json [--compact] [file]              Parse AXON blocks and print them as JSON
  axon from-json --name=N [options] [file]     Convert a JSON array of objects to an AXON block
  axon inspect [file]                          Stream blocks and report schemas and row shapes
  axon to-bin [--name=N] -o out [file]         Encode one AXON block in the binary layout
  axon from-bin [file]                         Decode a binary block back to AXON text
  axon repl                                    Interactive block parser
  axon version                                 Print version info

Options:
  --config=FILE       YAML config (keys: log_level, output.*, repl.*)
  --name=N            Block name (from-json) or block to encode (to-bin)
  --time-series       Write the first timestamp field as day offsets
  --base=YYYY-MM-DD   Time-series base date (default: first row's date)
  --compact           Compact JSON output
  -o FILE             Output file for to-bin

Environment overrides use the AXON_ prefix, e.g. AXON_LOG_LEVEL=debug.
If no file is given, reads from stdin.

Examples:
  echo '[{"id":1,"name":"a"},{"id":2,"name":null}]' | axon from-json --name=Item
  # Output:
  # `+"`"+`Item[2](id:I,name:S?)
  # 1|a
  # 2|_
  # ~

  axon to-json trades.axon > trades.json
  axon to-bin -o trades.bin trades.axon
`)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "axon: "+format+"\n", args...)
	os.Exit(1)
}
