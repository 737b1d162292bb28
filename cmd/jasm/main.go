// Package main implements jasm, a pattern matcher for x86 disassembly.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/retroenv/retrogolib/log"

	"github.com/sansecio/jasm/cmd/internal"
	"github.com/sansecio/jasm/disasm"
	"github.com/sansecio/jasm/scanner"
)

type options struct {
	pattern      string
	binary       string
	assembly     string
	macros       string
	disassembler string

	all     bool
	addrs   bool
	corpus  bool
	profile bool
	timeout time.Duration

	backtracking bool
	maxAnyOrder  int
	noPrefilter  bool
	debug, quiet bool
}

// UsageError represents an error that should show usage information.
type UsageError struct {
	flags *flag.FlagSet
	msg   string
}

func (e *UsageError) Error() string {
	return e.msg
}

// ShowUsage prints the flag defaults.
func (e *UsageError) ShowUsage() {
	fmt.Printf("usage: jasm -p <pattern.yaml> (-b <binary> | -s <listing>) [options]\n\n")
	e.flags.PrintDefaults()
	fmt.Println()
}

func parseFlags(args []string) (options, error) {
	flags := flag.NewFlagSet("jasm", flag.ContinueOnError)
	var opts options
	flags.StringVar(&opts.pattern, "p", "", "pattern file (yaml)")
	flags.StringVar(&opts.binary, "b", "", "binary to disassemble")
	flags.StringVar(&opts.assembly, "s", "", "objdump -d listing to read instead of a binary")
	flags.StringVar(&opts.macros, "macros", "", "comma separated list of extra macro files")
	flags.StringVar(&opts.disassembler, "disassembler", disasm.KindNative, "disassembler for -b (native/objdump)")
	flags.BoolVar(&opts.all, "all", false, "report every match instead of stopping at the first")
	flags.BoolVar(&opts.addrs, "addrs", false, "print the address of every match")
	flags.BoolVar(&opts.corpus, "corpus", false, "print the corpus the regex ran against")
	flags.BoolVar(&opts.profile, "profile", false, "log timings of each scan phase")
	flags.DurationVar(&opts.timeout, "timeout", scanner.DefaultTimeout, "regex timeout")
	flags.BoolVar(&opts.backtracking, "backtracking", false, "always use the backtracking regex engine")
	flags.IntVar(&opts.maxAnyOrder, "max-any-order", 0, "largest $and_any_order expanded into permutations")
	flags.BoolVar(&opts.noPrefilter, "no-prefilter", false, "always run the regex")
	flags.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	flags.BoolVar(&opts.quiet, "q", false, "only log errors")

	if err := flags.Parse(args); err != nil {
		return opts, &UsageError{flags: flags, msg: err.Error()}
	}
	switch {
	case opts.pattern == "":
		return opts, &UsageError{flags: flags, msg: "missing pattern file"}
	case (opts.binary == "") == (opts.assembly == ""):
		return opts, &UsageError{flags: flags, msg: "exactly one of -b and -s is required"}
	case flags.NArg() > 0:
		return opts, &UsageError{flags: flags, msg: fmt.Sprintf("unexpected argument %s", flags.Arg(0))}
	}
	return opts, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	logger := internal.CreateLogger(opts.debug, opts.quiet)
	if err != nil {
		var usageErr *UsageError
		if errors.As(err, &usageErr) {
			logger.Error(usageErr.msg)
			usageErr.ShowUsage()
			os.Exit(2)
		}
		logger.Fatal(err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	matched, err := run(ctx, logger, opts)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("Operation cancelled")
			os.Exit(2)
		}
		logger.Error("Scan failed", log.Err(err))
		os.Exit(2)
	}
	if !matched {
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *log.Logger, opts options) (bool, error) {
	var macroFiles []string
	if opts.macros != "" {
		macroFiles = strings.Split(opts.macros, ",")
	}
	rule, err := internal.LoadRule(logger, opts.pattern, macroFiles, scanner.CompileOptions{
		MaxAnyOrderLiteral: opts.maxAnyOrder,
		ForceBacktracking:  opts.backtracking,
	})
	if err != nil {
		return false, err
	}

	kind, path := opts.disassembler, opts.binary
	if opts.assembly != "" {
		kind, path = disasm.KindListing, opts.assembly
	}
	producer, err := disasm.New(kind, rule.Config())
	if err != nil {
		return false, err
	}

	scan := scanner.ScanOptions{
		Mode:             scanner.FirstFind,
		Return:           scanner.ReturnBool,
		Timeout:          opts.timeout,
		DisablePrefilter: opts.noPrefilter,
	}
	if opts.all {
		scan.Mode = scanner.AllFinds
	}
	switch {
	case opts.corpus:
		scan.Return = scanner.ReturnCorpus
	case opts.addrs:
		scan.Return = scanner.ReturnAddrs
	}

	res, err := rule.Match(ctx, producer, path, scan)
	if opts.profile {
		p := res.Profile
		logger.Info("Profile",
			log.String("engine", rule.Engine()),
			log.Int("instructions", p.Instructions),
			log.Int("corpus_bytes", p.CorpusBytes),
			log.String("corpus", p.Corpus.String()),
			log.String("prefilter", p.Prefilter.String()),
			log.String("regex", p.Regex.String()),
			log.Int("matches", p.Matches))
	}
	if err != nil {
		return false, err
	}

	switch scan.Return {
	case scanner.ReturnCorpus:
		fmt.Print(res.Corpus)
	case scanner.ReturnAddrs:
		for _, a := range res.Addrs {
			fmt.Println(a)
		}
	default:
		fmt.Println(res.Matched)
	}
	return res.Matched, nil
}
