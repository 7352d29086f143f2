// Command csvclean cleans one contact CSV file from the command line.
//
//	csvclean -columns name,email,phone contacts.csv
//	csvclean -preset contacts -presets presets.yaml -format xlsx contacts.csv
//
// The cleaned file is written next to the input as cleaned_<name> unless
// -out is given. The exit status is 1 when the header does not match.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/csvclean/internal/config"
	"github.com/JonMunkholm/csvclean/internal/core"
	"github.com/JonMunkholm/csvclean/internal/export"
	"github.com/JonMunkholm/csvclean/internal/logging"
	"github.com/JonMunkholm/csvclean/internal/store"
)

const (
	exitOK    = 0
	exitFail  = 1
	exitUsage = 2
)

func main() {
	// Load keeps the shell environment ahead of .env.
	_ = godotenv.Load()
	os.Exit(run(context.Background(), os.Args[1:], os.LookupEnv, os.Stdout, os.Stderr))
}

type options struct {
	columns     string
	preset      string
	presetsFile string
	out         string
	format      string
	verbose     bool
}

func run(ctx context.Context, args []string, lookup config.LookupFunc, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("csvclean", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.StringVar(&opts.columns, "columns", "", "expected columns, comma separated")
	fs.StringVar(&opts.preset, "preset", "", "named column preset")
	fs.StringVar(&opts.presetsFile, "presets", "", "presets YAML file (default $CLEAN_PRESETS_FILE)")
	fs.StringVar(&opts.out, "out", "", "output path (default cleaned_<input> next to the input)")
	fs.StringVar(&opts.format, "format", "csv", "output format: csv or xlsx")
	fs.BoolVar(&opts.verbose, "v", false, "log progress to stderr")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: csvclean [flags] file.csv")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return exitUsage
	}
	opts.format = strings.ToLower(opts.format)
	if opts.format != "csv" && opts.format != "xlsx" {
		fmt.Fprintf(stderr, "csvclean: unknown format %q\n", opts.format)
		return exitUsage
	}

	cfg, err := config.LoadFrom(lookup)
	if err != nil {
		fmt.Fprintf(stderr, "csvclean: %v\n", err)
		return exitFail
	}

	level := "warn"
	if opts.verbose {
		level = "info"
	}
	slog.SetDefault(logging.New(stderr, level, cfg.Logging.Format))

	if err := clean(ctx, cfg, opts, fs.Arg(0), stdout); err != nil {
		msg := core.MapError(err)
		fmt.Fprintf(stderr, "csvclean: %s (Code: %s)\n", err, msg.Code)
		if msg.Action != "" {
			fmt.Fprintf(stderr, "  %s\n", msg.Action)
		}
		return exitFail
	}
	return exitOK
}

func clean(ctx context.Context, cfg *config.Config, opts options, input string, stdout io.Writer) error {
	presetsFile := opts.presetsFile
	if presetsFile == "" {
		presetsFile = cfg.Clean.PresetsFile
	}
	presets, err := config.LoadPresets(presetsFile)
	if err != nil {
		return err
	}

	svc, err := core.NewService(store.NewMemoryStore(), cfg, core.WithPresets(presets))
	if err != nil {
		return err
	}

	f, err := os.Open(input)
	if err != nil {
		return err
	}
	defer f.Close()

	var size int64
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}

	res, err := svc.Clean(ctx, core.CleanRequest{
		FileName: filepath.Base(input),
		Columns:  config.SplitList(opts.columns),
		Preset:   opts.preset,
		Body:     f,
		Size:     size,
	})
	if err != nil {
		return err
	}

	out := opts.out
	if out == "" {
		out = filepath.Join(filepath.Dir(input), res.OutputName)
		if opts.format == "xlsx" {
			out = export.XLSXName(out)
		}
	}
	if err := writeOutput(out, opts.format, res); err != nil {
		return err
	}

	printSummary(stdout, res, out)
	return nil
}

func writeOutput(path, format string, res *core.CleanResult) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if format == "xlsx" {
		return export.WriteXLSX(f, res.OutputName, res.Rows)
	}
	_, err = io.WriteString(f, res.Output)
	return err
}

func printSummary(w io.Writer, res *core.CleanResult, out string) {
	fmt.Fprintf(w, "wrote %s\n", out)
	fmt.Fprintf(w, "  data rows:      %d\n", res.DataRows)
	fmt.Fprintf(w, "  kept:           %d\n", res.ValidRows)
	fmt.Fprintf(w, "  dropped:        %d\n", res.InvalidRows)
	fmt.Fprintf(w, "  phones cleared: %d\n", res.PhonesCleared)

	reasons := make([]string, 0, len(res.ReasonCounts))
	for reason := range res.ReasonCounts {
		reasons = append(reasons, string(reason))
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		fmt.Fprintf(w, "    %-16s %d\n", reason+":", res.ReasonCounts[core.RejectReason(reason)])
	}
	for _, rej := range res.Rejections {
		fmt.Fprintf(w, "  line %d: %s: %s\n", rej.Line, rej.Reason, strings.Join(rej.Fields, ","))
	}
}
