package scanner

import (
	"slices"
	"strings"

	"github.com/sansecio/jasm/ast"
	"github.com/sansecio/jasm/parser"
)

// ValidAddrOperand replaces jump and call targets inside the valid address
// range, so patterns can require "a call into this binary".
const ValidAddrOperand = "valid_addr"

var jumpMnemonics = []string{"call", "callq", "jmp", "jne", "je", "jg", "jge", "jl", "jle", "jz", "jnz"}

// RemoveEmptyInstructions drops padding lines that carry no instruction.
type RemoveEmptyInstructions struct{}

// ObserveInstruction implements ast.InstructionObserver.
func (RemoveEmptyInstructions) ObserveInstruction(inst ast.Instruction) (ast.Instruction, bool) {
	return inst, inst.Mnemonic != parser.MnemonicEmpty
}

// ValidAddrObserver rewrites direct jump and call targets that fall inside
// [Min, Max] to ValidAddrOperand. Indirect targets are left alone.
type ValidAddrObserver struct {
	Min, Max uint64
}

// ObserveInstruction implements ast.InstructionObserver.
func (o ValidAddrObserver) ObserveInstruction(inst ast.Instruction) (ast.Instruction, bool) {
	if len(inst.Operands) == 0 || !slices.Contains(jumpMnemonics, inst.Mnemonic) {
		return inst, true
	}
	target := inst.Operands[0]
	if strings.Contains(target, "*") {
		return inst, true
	}
	addr, err := parser.ParseHex(target)
	if err != nil || addr < o.Min || addr > o.Max {
		return inst, true
	}
	return ast.Instruction{Addr: inst.Addr, Mnemonic: inst.Mnemonic, Operands: []string{ValidAddrOperand}}, true
}
