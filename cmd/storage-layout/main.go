package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/big"
	"os"
	"os/signal"
	"strings"

	"go.uber.org/zap"

	storagelayout "github.com/wippyai/storage-layout"
	"github.com/wippyai/storage-layout/artifact"
	"github.com/wippyai/storage-layout/config"
	"github.com/wippyai/storage-layout/export"
	"github.com/wippyai/storage-layout/layout"
	"github.com/wippyai/storage-layout/render"
	"github.com/wippyai/storage-layout/revision"
	"github.com/wippyai/storage-layout/slots"
)

// Exit codes.
const (
	exitOK       = 0
	exitError    = 1
	exitBreaking = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// app carries the global flags into subcommands.
type app struct {
	stdout  io.Writer
	stderr  io.Writer
	cfg     config.Config
	log     *zap.Logger
	printer *render.Printer
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("storage-layout", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		configPath = fs.String("config", "", "Path to config file (default ./"+config.FileName+" if present)")
		verbose    = fs.Bool("v", false, "Verbose logging")
		noColor    = fs.Bool("no-color", false, "Disable colored output")
	)
	fs.Usage = func() { printUsage(stderr, fs) }

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return exitOK
		}
		return exitError
	}
	if fs.NArg() == 0 {
		printUsage(stderr, fs)
		return exitError
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}

	log := zap.NewNop()
	if *verbose {
		if log, err = zap.NewDevelopment(); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitError
		}
		defer func() { _ = log.Sync() }()
	}
	setLoggers(log)

	color := false
	if f, ok := stdout.(*os.File); ok {
		color = render.ColorEnabled(f, *noColor)
	}

	a := &app{
		stdout:  stdout,
		stderr:  stderr,
		cfg:     cfg,
		log:     log,
		printer: render.NewPrinter(color),
	}

	sub, rest := fs.Arg(0), fs.Args()[1:]
	switch sub {
	case "inspect":
		return a.cmdInspect(ctx, rest)
	case "diff":
		return a.cmdDiff(ctx, rest)
	case "check":
		return a.cmdCheck(ctx, rest)
	case "export":
		return a.cmdExport(ctx, rest)
	case "help":
		printUsage(stdout, fs)
		return exitOK
	default:
		fmt.Fprintf(stderr, "unknown subcommand %q\n\n", sub)
		printUsage(stderr, fs)
		return exitError
	}
}

func setLoggers(log *zap.Logger) {
	slots.SetLogger(log.Named("slots"))
	artifact.SetLogger(log.Named("artifact"))
	revision.SetLogger(log.Named("revision"))
	export.SetLogger(log.Named("export"))
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprint(w, `Usage:
  storage-layout [global flags] <subcommand> [flags] <args...>

Subcommands:
  inspect   print the collated storage layout of a contract or layout file
  diff      compare the layouts of two contracts, files or revisions
  check     compare a saved layout with the current contract, exit 2 on breaking changes
  export    write the layouts of all selected contracts to the output directory

Global flags:
`)
	fs.SetOutput(w)
	fs.PrintDefaults()
}

func (a *app) fail(err error) int {
	fmt.Fprintf(a.stderr, "Error: %v\n", err)
	return exitError
}

func (a *app) parse(fs *flag.FlagSet, args []string, nargs int, usage string) (bool, int) {
	fs.SetOutput(a.stderr)
	fs.Usage = func() {
		fmt.Fprintln(a.stderr, "Usage: storage-layout "+usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return false, exitOK
		}
		return false, exitError
	}
	if fs.NArg() != nargs {
		fmt.Fprintf(a.stderr, "%s requires %d argument(s)\n", fs.Name(), nargs)
		fs.Usage()
		return false, exitError
	}
	return true, exitOK
}

// open returns a Project over the loaded config. noCompile adds to the config's setting.
func (a *app) open(noCompile bool) *storagelayout.Project {
	cfg := a.cfg
	cfg.NoCompile = cfg.NoCompile || noCompile
	return storagelayout.Open(cfg, a.log)
}

func (a *app) writeJSON(v any) int {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return a.fail(err)
	}
	return exitOK
}

func (a *app) cmdInspect(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	var (
		rev         = fs.String("rev", "", "Git revision to load the contract from")
		namespace   = fs.String("namespace", "", "ERC-7201 namespace id; slots are relative to its base slot")
		baseSlot    = fs.String("base-slot", "", "Base slot added to every declared slot (decimal or 0x hex)")
		interactive = fs.Bool("i", false, "Browse the layout interactively")
		asJSON      = fs.Bool("json", false, "Print the collated slots as JSON")
		noCompile   = fs.Bool("no-compile", false, "Do not run the compile command on the working tree")
	)
	if ok, code := a.parse(fs, args, 1, "inspect [-rev R] [-namespace ID | -base-slot N] [-i] [-json] [-no-compile] <contract|file.json>"); !ok {
		return code
	}

	base, err := parseBase(*namespace, *baseSlot)
	if err != nil {
		return a.fail(err)
	}

	p := a.open(*noCompile)
	defer p.Close()

	t, err := p.Target(ctx, fs.Arg(0), *rev)
	if err != nil {
		return a.fail(err)
	}
	t.Base = base

	collated, err := storagelayout.Inspect(ctx, t)
	if err != nil {
		return a.fail(err)
	}

	switch {
	case *asJSON:
		return a.writeJSON(collated)
	case *interactive:
		title := fs.Arg(0)
		if *rev != "" {
			title += " @ " + *rev
		}
		err = browse(title, func(filter string) string {
			return a.printer.Collated(filterCollated(collated, filter))
		})
		if err != nil {
			return a.fail(err)
		}
		return exitOK
	}
	fmt.Fprintln(a.stdout, a.printer.Collated(collated))
	return exitOK
}

func (a *app) cmdDiff(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("diff", flag.ContinueOnError)
	var (
		aRev        = fs.String("a-rev", "", "Git revision to load A from")
		bRev        = fs.String("b-rev", "", "Git revision to load B from")
		interactive = fs.Bool("i", false, "Browse the diff interactively")
		asJSON      = fs.Bool("json", false, "Print the merged slots as JSON")
		noCompile   = fs.Bool("no-compile", false, "Do not run the compile command on the working tree")
	)
	if ok, code := a.parse(fs, args, 2, "diff [-a-rev R] [-b-rev R] [-i] [-json] [-no-compile] <a> <b>"); !ok {
		return code
	}

	p := a.open(*noCompile)
	defer p.Close()

	ta, err := p.Target(ctx, fs.Arg(0), *aRev)
	if err != nil {
		return a.fail(err)
	}
	tb, err := p.Target(ctx, fs.Arg(1), *bRev)
	if err != nil {
		return a.fail(err)
	}

	merged, err := storagelayout.Diff(ctx, ta, tb)
	if err != nil {
		return a.fail(err)
	}

	switch {
	case *asJSON:
		return a.writeJSON(merged)
	case *interactive:
		title := label(fs.Arg(0), *aRev) + " => " + label(fs.Arg(1), *bRev)
		err = browse(title, func(filter string) string {
			return a.printer.Merged(filterMerged(merged, filter))
		})
		if err != nil {
			return a.fail(err)
		}
		return exitOK
	}
	fmt.Fprintln(a.stdout, a.printer.Merged(merged))
	return exitOK
}

func (a *app) cmdCheck(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	var (
		rev       = fs.String("rev", "", "Git revision to load the contract from")
		noCompile = fs.Bool("no-compile", false, "Do not run the compile command on the working tree")
	)
	if ok, code := a.parse(fs, args, 2, "check [-rev R] [-no-compile] <saved.json> <contract>"); !ok {
		return code
	}

	p := a.open(*noCompile)
	defer p.Close()

	current, err := p.Target(ctx, fs.Arg(1), *rev)
	if err != nil {
		return a.fail(err)
	}
	report, err := storagelayout.Check(ctx, p.SavedTarget(fs.Arg(0)), current)
	if err != nil {
		return a.fail(err)
	}

	fmt.Fprintln(a.stdout, a.printer.Changes(report.Changes))
	if !report.Compatible() {
		fmt.Fprintf(a.stdout, "%d breaking change(s) in %s\n", len(report.Breaking), fs.Arg(1))
		return exitBreaking
	}
	fmt.Fprintf(a.stdout, "%s is compatible with %s\n", fs.Arg(1), fs.Arg(0))
	return exitOK
}

func (a *app) cmdExport(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	cfg := a.cfg
	only := stringList{values: cfg.Only}
	except := stringList{values: cfg.Except}
	fs.Var(&only, "only", "Export only qualified names matching this pattern (repeatable)")
	fs.Var(&except, "except", "Skip qualified names matching this pattern (repeatable)")
	fs.StringVar(&cfg.Where, "where", cfg.Where, "Boolean expression over name, source, contract, variables, types")
	fs.StringVar(&cfg.Path, "path", cfg.Path, "Output directory relative to the project root")
	fs.BoolVar(&cfg.Flat, "flat", cfg.Flat, "Write <Name>.json without source directories")
	fs.BoolVar(&cfg.Clear, "clear", cfg.Clear, "Remove the output directory first")
	fs.IntVar(&cfg.Spacing, "spacing", cfg.Spacing, "JSON indentation width")
	fs.BoolVar(&cfg.NoCompile, "no-compile", cfg.NoCompile, "Do not run the compile command on the working tree")
	if ok, code := a.parse(fs, args, 0, "export [-only RE]... [-except RE]... [-where EXPR] [-path DIR] [-flat] [-clear] [-spacing N] [-no-compile]"); !ok {
		return code
	}
	cfg.Only, cfg.Except = only.values, except.values
	if err := cfg.Validate(); err != nil {
		return a.fail(err)
	}

	p := storagelayout.Open(cfg, a.log)
	defer p.Close()

	written, err := p.Export(ctx)
	if err != nil {
		return a.fail(err)
	}
	for _, path := range written {
		fmt.Fprintln(a.stdout, path)
	}
	fmt.Fprintf(a.stderr, "exported %d layout(s)\n", len(written))
	return exitOK
}

func parseBase(namespace, baseSlot string) (*big.Int, error) {
	switch {
	case namespace != "" && baseSlot != "":
		return nil, fmt.Errorf("-namespace and -base-slot are mutually exclusive")
	case namespace != "":
		return layout.NamespaceSlot(namespace), nil
	case baseSlot != "":
		n, ok := new(big.Int).SetString(baseSlot, 0)
		if !ok || n.Sign() < 0 {
			return nil, fmt.Errorf("invalid -base-slot %q", baseSlot)
		}
		return n, nil
	}
	return nil, nil
}

func label(name, rev string) string {
	if rev == "" {
		return name
	}
	return name + " @ " + rev
}

func filterCollated(in []slots.CollatedSlot, filter string) []slots.CollatedSlot {
	if filter == "" {
		return in
	}
	var out []slots.CollatedSlot
	for _, s := range in {
		var entries []slots.CollatedSlotEntry
		for _, e := range s.Entries {
			if matches(filter, e.Name, e.Type.Label) {
				entries = append(entries, e)
			}
		}
		if len(entries) > 0 {
			s.Entries = entries
			out = append(out, s)
		}
	}
	return out
}

func filterMerged(in []slots.MergedCollatedSlot, filter string) []slots.MergedCollatedSlot {
	if filter == "" {
		return in
	}
	var out []slots.MergedCollatedSlot
	for _, s := range in {
		var entries []slots.MergedCollatedSlotEntry
		for _, e := range s.Entries {
			var fields []string
			for _, side := range []slots.Side{slots.SideA, slots.SideB} {
				if entry, ok := e.Entry(side); ok {
					fields = append(fields, entry.Name, entry.Type.Label)
				}
			}
			if matches(filter, fields...) {
				entries = append(entries, e)
			}
		}
		if len(entries) > 0 {
			s.Entries = entries
			out = append(out, s)
		}
	}
	return out
}

func matches(filter string, fields ...string) bool {
	filter = strings.ToLower(filter)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), filter) {
			return true
		}
	}
	return false
}

// stringList is a repeatable string flag. The first Set discards the default.
type stringList struct {
	values []string
	set    bool
}

func (l *stringList) String() string {
	return strings.Join(l.values, ",")
}

func (l *stringList) Set(v string) error {
	if !l.set {
		l.values, l.set = nil, true
	}
	l.values = append(l.values, v)
	return nil
}
