package disasm

import (
	"context"
	"fmt"
	"os"

	"github.com/sansecio/jasm/ast"
	"github.com/sansecio/jasm/parser"
)

// Listing reads a saved `objdump -d` listing instead of a binary.
type Listing struct {
	Sections []string

	parser *parser.Parser
}

// Produce implements scanner.Producer.
func (l *Listing) Produce(ctx context.Context, path string, c ast.InstructionConsumer) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening listing: %w", err)
	}
	defer f.Close()
	return l.parser.ReadListing(f, l.Sections, c)
}

// Warnings returns the lines of the last listing that failed to parse.
func (l *Listing) Warnings() []string {
	return l.parser.Warnings()
}
