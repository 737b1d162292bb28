package parser

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/sansecio/jasm/ast"
)

// Mnemonics synthesised for lines that carry no instruction text.
const (
	MnemonicEmpty = "empty" // byte continuation or padding line
	MnemonicBad   = "bad"   // undecodable bytes
)

// ParseInstruction splits the text column of an objdump line into mnemonic
// and normalised operands.
func (p *Parser) ParseInstruction(addr, text string) (ast.Instruction, error) {
	text = strings.TrimSpace(text)
	switch text {
	case "":
		return ast.Instruction{Addr: addr, Mnemonic: MnemonicEmpty}, nil
	case "(bad)":
		return ast.Instruction{Addr: addr, Mnemonic: MnemonicBad}, nil
	}

	it, err := p.insn.ParseString("", text)
	if err != nil {
		return ast.Instruction{}, fmt.Errorf("instruction %q: %w", text, err)
	}

	mnemonic := it.Mnemonic
	var prefixes []string
	for _, pre := range it.Prefixes {
		if pre = strings.TrimSpace(pre); pre != "data16" {
			prefixes = append(prefixes, pre)
		}
	}
	if len(prefixes) > 0 {
		mnemonic = strings.Join(append(prefixes, mnemonic), " ")
	}

	ops := make([]string, len(it.Operands))
	for i, o := range it.Operands {
		ops[i] = NormalizeOperand(strings.Join(o.Parts, " "))
	}
	return ast.Instruction{Addr: addr, Mnemonic: mnemonic, Operands: ops}, nil
}

// ReadListing reads `objdump -d` output and hands every instruction of the
// selected sections to c. An empty sections list selects everything; lines
// before the first section header are always kept. Lines that fail to parse
// are skipped and reported through Warnings.
func (p *Parser) ReadListing(r io.Reader, sections []string, c ast.InstructionConsumer) error {
	p.warnings = nil
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)

	section := ""
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()

		if name, ok := sectionHeader(line); ok {
			section = name
			continue
		}
		if len(sections) > 0 && section != "" && !slices.Contains(sections, section) {
			continue
		}

		addr, text, ok := splitInstructionLine(line)
		if !ok {
			continue
		}
		inst, err := p.ParseInstruction(addr, text)
		if err != nil {
			p.warnf("line %d: %v", lineNo, err)
			continue
		}
		c.ConsumeInstruction(inst)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading listing: %w", err)
	}
	return nil
}

func sectionHeader(line string) (string, bool) {
	const prefix = "disassembly of section "
	if len(line) < len(prefix) || !strings.EqualFold(line[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSuffix(strings.TrimSpace(line[len(prefix):]), ":"), true
}

// splitInstructionLine handles both "addr:\tbytes\ttext" and the
// --no-show-raw-insn form "addr:\ttext".
func splitInstructionLine(line string) (addr, text string, ok bool) {
	fields := strings.Split(line, "\t")
	if len(fields) < 2 {
		return "", "", false
	}
	head := strings.TrimSpace(fields[0])
	if !strings.HasSuffix(head, ":") {
		return "", "", false
	}
	addr = strings.TrimSuffix(head, ":")
	if addr == "" || strings.IndexFunc(addr, func(r rune) bool { return !isHexRune(r) }) >= 0 {
		return "", "", false
	}

	rest := fields[1:]
	if isByteColumn(rest[0]) {
		rest = rest[1:]
	}
	return addr, strings.Join(rest, " "), true
}

func isByteColumn(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	for _, b := range strings.Fields(s) {
		if len(b) != 2 || !isHexRune(rune(b[0])) || !isHexRune(rune(b[1])) {
			return false
		}
	}
	return true
}

func isHexRune(r rune) bool {
	return r >= '0' && r <= '9' || r >= 'a' && r <= 'f' || r >= 'A' && r <= 'F'
}
