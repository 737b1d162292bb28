package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime/pprof"
	"time"

	"github.com/sansecio/jasm/cmd/internal"
	"github.com/sansecio/jasm/disasm"
	"github.com/sansecio/jasm/scanner"
)

var (
	cpuProfile   = flag.Bool("cpu-profile", false, "write a cpu profile of the engine comparison")
	disassembler = flag.String("disassembler", disasm.KindListing, "native, objdump or listing")
	timeout      = flag.Duration("timeout", scanner.DefaultTimeout, "regexp2 match timeout")
)

func main() {
	flag.Parse()

	if flag.NArg() < 2 {
		fmt.Fprintf(os.Stderr, "Usage: regex-bench [-cpu-profile] [-disassembler kind] <pattern.yaml> <file>\n")
		os.Exit(1)
	}

	patternFile := flag.Arg(0)
	filePath := flag.Arg(1)
	logger := internal.CreateLogger(false, true)

	rule, err := internal.LoadRule(logger, patternFile, nil, scanner.CompileOptions{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error compiling pattern: %v\n", err)
		os.Exit(1)
	}

	producer, err := disasm.New(*disassembler, rule.Config())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	start := time.Now()
	c := rule.NewConsumer(scanner.ScanOptions{}, scanner.NewMatchedObserver(nil))
	if err := producer.Produce(context.Background(), filePath, c); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", filePath, err)
		os.Exit(1)
	}
	corpus := c.Corpus()

	fmt.Printf("File: %s (%d corpus bytes, built in %s)\n", filePath, len(corpus), time.Since(start))
	fmt.Printf("Regex: %s\n", rule.Regex())
	fmt.Printf("Default engine: %s\n\n", rule.Engine())

	if *cpuProfile {
		f, err := os.Create("regex-bench.pprof")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating profile: %v\n", err)
			os.Exit(1)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error starting CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer func() {
			pprof.StopCPUProfile()
			_ = f.Close()
		}()
	}

	fmt.Println("Engine      Duration (µs)  Matched")
	fmt.Println("--------    -------------  -------")
	for _, t := range rule.EngineProfile(corpus, *timeout) {
		if t.Err != nil {
			fmt.Printf("%-10s  %13s  %v\n", t.Engine, "-", t.Err)
			continue
		}
		fmt.Printf("%-10s  %13.2f  %v\n", t.Engine, float64(t.Duration.Microseconds()), t.Matched)
	}
}
