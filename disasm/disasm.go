// Package disasm turns binaries and assembly listings into instruction
// streams.
package disasm

import (
	"context"
	"fmt"

	"github.com/sansecio/jasm/ast"
	"github.com/sansecio/jasm/parser"
	"github.com/sansecio/jasm/scanner"
)

// Disassembler names accepted by New.
const (
	KindNative  = "native"
	KindObjdump = "objdump"
	KindListing = "listing"
)

// New returns the producer named by kind, configured from the pattern file.
func New(kind string, cfg ast.Config) (scanner.Producer, error) {
	p, err := parser.New()
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindNative, "":
		return &Native{Style: cfg.AssemblyStyle(), Sections: cfg.Sections, parser: p}, nil
	case KindObjdump:
		return &Objdump{Style: cfg.AssemblyStyle(), Sections: cfg.Sections, parser: p}, nil
	case KindListing:
		return &Listing{Sections: cfg.Sections, parser: p}, nil
	default:
		return nil, fmt.Errorf("unknown disassembler %q", kind)
	}
}

func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
