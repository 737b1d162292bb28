package main

import (
	"fmt"
	"os"

	"github.com/sansecio/jasm/parser"
	"github.com/sansecio/jasm/scanner"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <pattern-file> [macro-file...]\n", os.Args[0])
		os.Exit(1)
	}

	filename := os.Args[1]

	p, err := parser.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	f, err := p.ParseFile(filename, os.Args[2:]...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing %s: %v\n", filename, err)
		os.Exit(1)
	}
	for _, w := range p.Warnings() {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}

	rule, err := scanner.Compile(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error compiling %s: %v\n", filename, err)
		os.Exit(1)
	}

	fmt.Printf("Compiled %s (%d macros, engine %s)\n", filename, len(f.Macros), rule.Engine())
	fmt.Printf("  captures: %q\n", rule.Captures())
	fmt.Printf("  atoms:    %q\n", rule.Atoms())
	fmt.Println(rule.Regex())
}
