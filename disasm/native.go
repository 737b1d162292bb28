package disasm

import (
	"context"
	"debug/elf"
	"fmt"
	"slices"
	"strconv"

	"golang.org/x/arch/x86/x86asm"

	"github.com/sansecio/jasm/ast"
	"github.com/sansecio/jasm/parser"
)

// Native decodes the executable sections of an x86 ELF binary in process.
type Native struct {
	Style    ast.Style
	Sections []string // empty selects every executable section

	parser *parser.Parser
}

// Produce implements scanner.Producer.
func (n *Native) Produce(ctx context.Context, path string, c ast.InstructionConsumer) error {
	f, err := elf.Open(path)
	if err != nil {
		return fmt.Errorf("opening binary: %w", err)
	}
	defer f.Close()

	var mode int
	switch f.Machine {
	case elf.EM_X86_64:
		mode = 64
	case elf.EM_386:
		mode = 32
	default:
		return fmt.Errorf("%s: unsupported machine %s", path, f.Machine)
	}

	for _, s := range f.Sections {
		if s.Type != elf.SHT_PROGBITS || s.Flags&elf.SHF_EXECINSTR == 0 {
			continue
		}
		if len(n.Sections) > 0 && !slices.Contains(n.Sections, s.Name) {
			continue
		}
		code, err := s.Data()
		if err != nil {
			return fmt.Errorf("reading section %s: %w", s.Name, err)
		}
		if err := n.decode(ctx, code, s.Addr, mode, c); err != nil {
			return err
		}
	}
	return nil
}

// decode walks code linearly. Undecodable bytes become one "bad"
// instruction each, as objdump reports them.
func (n *Native) decode(ctx context.Context, code []byte, base uint64, mode int, c ast.InstructionConsumer) error {
	for off := 0; off < len(code); {
		if off%4096 == 0 {
			if err := checkContext(ctx); err != nil {
				return err
			}
		}
		pc := base + uint64(off)
		addr := strconv.FormatUint(pc, 16)

		inst, err := x86asm.Decode(code[off:], mode)
		if err != nil || inst.Len == 0 {
			c.ConsumeInstruction(ast.Instruction{Addr: addr, Mnemonic: parser.MnemonicBad})
			off++
			continue
		}

		var text string
		if n.Style == ast.StyleIntel {
			text = x86asm.IntelSyntax(inst, pc, nil)
		} else {
			text = x86asm.GNUSyntax(inst, pc, nil)
		}
		parsed, err := n.parser.ParseInstruction(addr, text)
		if err != nil {
			parsed = ast.Instruction{Addr: addr, Mnemonic: parser.MnemonicBad}
		}
		c.ConsumeInstruction(parsed)
		off += inst.Len
	}
	return nil
}
