package disasm

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/sansecio/jasm/ast"
	"github.com/sansecio/jasm/parser"
)

// DefaultObjdump is the objdump binary used when Objdump.Program is empty.
const DefaultObjdump = "objdump"

// Objdump runs GNU objdump and reads its listing.
type Objdump struct {
	Program  string
	Style    ast.Style
	Sections []string

	parser *parser.Parser
}

func (o *Objdump) args(path string) []string {
	args := []string{"-d", "--no-show-raw-insn", "-M", string(o.Style)}
	if o.Style == "" {
		args[3] = string(ast.StyleATT)
	}
	for _, s := range o.Sections {
		args = append(args, "-j", s)
	}
	return append(args, path)
}

// Produce implements scanner.Producer.
func (o *Objdump) Produce(ctx context.Context, path string, c ast.InstructionConsumer) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("opening binary: %w", err)
	}
	program := o.Program
	if program == "" {
		program = DefaultObjdump
	}

	cmd := exec.CommandContext(ctx, program, o.args(path)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", program, err)
	}

	readErr := o.parser.ReadListing(out, nil, c)
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("%s: %w: %s", program, err, strings.TrimSpace(stderr.String()))
	}
	return readErr
}

// Warnings returns the lines of the last listing that failed to parse.
func (o *Objdump) Warnings() []string {
	return o.parser.Warnings()
}
