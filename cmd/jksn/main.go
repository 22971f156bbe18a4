// jksn - JKSN codec CLI tool
//
// Usage:
//
//	jksn encode [options] [file...]   Convert JSON, YAML or CBOR to JKSN
//	jksn decode [options] [file...]   Convert JKSN to JSON, YAML or CBOR
//	jksn dump [file]                  Print the decoded value and its sizes
//	jksn version                      Print version info
//
// With no file (or "-"), input is read from stdin and written to stdout.
// A single file is also written to stdout. With several files each one is
// converted in parallel and written next to its input, or into --out-dir,
// with the extension of the output format.
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/edsrzf/mmap-go"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/Neumenon/jksn/jksn"
)

const libVersion = "0.1.0"

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "jksn: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	from     string
	to       string
	outDir   string
	jobs     int
	noHeader bool
	noSwap   bool
	noDelta  bool
	noCache  bool
	verbose  bool
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) < 1 {
		printUsage(stderr)
		return errors.New("missing command")
	}

	cmd := args[0]
	switch cmd {
	case "version", "-v", "--version":
		fmt.Fprintf(stdout, "jksn %s\n", libVersion)
		return nil
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	case "encode", "decode", "dump":
	default:
		printUsage(stderr)
		return fmt.Errorf("unknown command: %s", cmd)
	}

	var opts options
	flagSet := pflag.NewFlagSet("jksn "+cmd, pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&opts.from, "from", "json", "input format of encode: json, yaml or cbor")
	flagSet.StringVar(&opts.to, "to", "json", "output format of decode: json, yaml or cbor")
	flagSet.StringVarP(&opts.outDir, "out-dir", "o", "", "directory for converted files (default: next to each input)")
	flagSet.IntVarP(&opts.jobs, "jobs", "j", runtime.GOMAXPROCS(0), "files converted in parallel")
	flagSet.BoolVar(&opts.noHeader, "no-header", false, "omit the jk! magic header")
	flagSet.BoolVar(&opts.noSwap, "no-swap", false, "never write arrays of records column by column")
	flagSet.BoolVar(&opts.noDelta, "no-delta", false, "disable delta encoding of integers")
	flagSet.BoolVar(&opts.noCache, "no-cache", false, "disable back-references to repeated strings and blobs")
	flagSet.BoolVarP(&opts.verbose, "verbose", "V", false, "log each converted file")

	if err := flagSet.Parse(args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	files := flagSet.Args()
	switch cmd {
	case "encode":
		convert, err := opts.encoder()
		if err != nil {
			return err
		}
		return convertAll(files, ".jksn", opts, convert, stdin, stdout, logger)
	case "decode":
		convert, err := opts.decoder(logger)
		if err != nil {
			return err
		}
		return convertAll(files, "."+opts.to, opts, convert, stdin, stdout, logger)
	default:
		if len(files) > 1 {
			return errors.New("dump takes at most one file")
		}
		path := ""
		if len(files) == 1 {
			path = files[0]
		}
		return cmdDump(path, stdin, stdout, logger)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `jksn - JKSN codec CLI tool

Usage:
  jksn encode [options] [file...]   Convert JSON, YAML or CBOR to JKSN
  jksn decode [options] [file...]   Convert JKSN to JSON, YAML or CBOR
  jksn dump [file]                  Print the decoded value and its sizes
  jksn version                      Print version info

Options:
  --from=FORMAT       Input format of encode: json (default), yaml, cbor
  --to=FORMAT         Output format of decode: json (default), yaml, cbor
  -o, --out-dir=DIR   Write converted files into DIR
  -j, --jobs=N        Files converted in parallel (default: GOMAXPROCS)
  --no-header         Omit the jk! magic header
  --no-swap           Never write arrays of records column by column
  --no-delta          Disable delta encoding of integers
  --no-cache          Disable back-references to repeated strings and blobs
  -V, --verbose       Log each converted file

If no file is given, reads from stdin.

Examples:
  echo '[{"id":1,"name":"a"},{"id":2,"name":"b"}]' | jksn encode > rows.jksn
  jksn decode rows.jksn
  jksn decode --to=yaml rows.jksn
  jksn encode --from=yaml -o out/ a.yaml b.yaml c.yaml
`)
}

// ============================================================
// Conversions
// ============================================================

type convertFunc func(data []byte) ([]byte, error)

func (o options) encoder() (convertFunc, error) {
	var parse func([]byte) (*jksn.Value, error)
	switch o.from {
	case "json":
		parse = jksn.FromJSON
	case "yaml", "yml":
		parse = jksn.FromYAML
	case "cbor":
		parse = jksn.FromCBOR
	default:
		return nil, fmt.Errorf("unknown input format %q", o.from)
	}

	enc := jksn.NewEncoder(
		jksn.WithHeader(!o.noHeader),
		jksn.WithSwap(!o.noSwap),
		jksn.WithDelta(!o.noDelta),
		jksn.WithCache(!o.noCache),
	)
	return func(data []byte) ([]byte, error) {
		v, err := parse(data)
		if err != nil {
			return nil, err
		}
		return enc.Encode(v)
	}, nil
}

func (o options) decoder(logger *slog.Logger) (convertFunc, error) {
	var render func(*jksn.Value) ([]byte, error)
	switch o.to {
	case "json":
		render = func(v *jksn.Value) ([]byte, error) {
			out, err := jksn.ToJSON(v)
			if err != nil {
				return nil, err
			}
			return append(out, '\n'), nil
		}
	case "yaml":
		render = jksn.ToYAML
	case "cbor":
		render = jksn.ToCBOR
	default:
		return nil, fmt.Errorf("unknown output format %q", o.to)
	}

	dec := jksn.NewDecoder(jksn.WithLogger(logger))
	return func(data []byte) ([]byte, error) {
		v, err := dec.Decode(data)
		if err != nil {
			return nil, err
		}
		return render(v)
	}, nil
}

// convertAll converts stdin or a single file to stdout, and several files
// in parallel to files named after their inputs.
func convertAll(files []string, ext string, opts options, convert convertFunc, stdin io.Reader, stdout io.Writer, logger *slog.Logger) error {
	if len(files) == 0 || (len(files) == 1 && opts.outDir == "") {
		path := "-"
		if len(files) == 1 {
			path = files[0]
		}
		out, err := convertInput(path, stdin, convert)
		if err != nil {
			return err
		}
		_, err = stdout.Write(out)
		return err
	}

	if opts.outDir != "" {
		if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(max(1, opts.jobs))
	for _, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := convertInput(path, stdin, convert)
			if err != nil {
				return err
			}
			dst := outputPath(path, opts.outDir, ext)
			if err := os.WriteFile(dst, out, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", dst, err)
			}
			logger.Debug("converted", slog.String("input", path), slog.String("output", dst),
				slog.Int("in_bytes", fileSize(path)), slog.Int("out_bytes", len(out)))
			return nil
		})
	}
	return g.Wait()
}

func convertInput(path string, stdin io.Reader, convert convertFunc) (_ []byte, err error) {
	data, release, err := readInput(path, stdin)
	if err != nil {
		return nil, err
	}
	defer releaseInput(path, release, &err)

	out, err := convert(data)
	if err != nil {
		if path == "-" {
			return nil, err
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

// readInput returns the contents of path, memory-mapped when it is a
// regular non-empty file. The data is only valid until release is called.
func readInput(path string, stdin io.Reader) ([]byte, func() error, error) {
	noop := func() error { return nil }
	if path == "-" || path == "" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, noop, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !stat.Mode().IsRegular() {
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, nil, fmt.Errorf("read %s: %w", path, err)
		}
		return data, noop, nil
	}
	if stat.Size() == 0 {
		return nil, noop, nil
	}

	mm, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("mmap %s: %w", path, err)
	}
	return []byte(mm), mm.Unmap, nil
}

// releaseInput calls release and stores its error in *err unless an
// earlier error is already there.
func releaseInput(path string, release func() error, err *error) {
	if rerr := release(); rerr != nil && *err == nil {
		*err = fmt.Errorf("unmap %s: %w", path, rerr)
	}
}

// outputPath replaces the extension of in with ext, moving it into outDir
// when one is given.
func outputPath(in, outDir, ext string) string {
	out := strings.TrimSuffix(in, filepath.Ext(in)) + ext
	if out == in {
		out += ext
	}
	if outDir != "" {
		out = filepath.Join(outDir, filepath.Base(out))
	}
	return out
}

func fileSize(path string) int {
	stat, err := os.Stat(path)
	if err != nil {
		return -1
	}
	return int(stat.Size())
}

// ============================================================
// Dump
// ============================================================

// cmdDump prints the decoded value followed by size statistics.
func cmdDump(path string, stdin io.Reader, stdout io.Writer, logger *slog.Logger) (err error) {
	data, release, err := readInput(path, stdin)
	if err != nil {
		return err
	}
	defer releaseInput(path, release, &err)

	v, n, err := jksn.NewDecoder(jksn.WithLogger(logger)).DecodeN(data)
	if err != nil {
		return err
	}
	jsonData, err := jksn.ToJSON(v)
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, v)
	fmt.Fprintf(stdout, "--- kind=%s header=%t jksn=%d bytes json=%d bytes",
		v.Kind(), bytes.HasPrefix(data, []byte(jksn.Magic)), n, len(jsonData))
	if trailing := len(data) - n; trailing > 0 {
		fmt.Fprintf(stdout, " trailing=%d bytes", trailing)
	}
	fmt.Fprintln(stdout)
	return nil
}
