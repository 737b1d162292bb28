package ast

import "strings"

const (
	// AddrSeparator splits the address from the mnemonic in a corpus entry.
	AddrSeparator = "::"
	// InstructionTerminator ends every corpus entry.
	InstructionTerminator = "|"
)

// Instruction is a single disassembled instruction.
type Instruction struct {
	Addr     string
	Mnemonic string
	Operands []string
}

// String renders the instruction as a corpus entry:
// addr::mnemonic,op1,op2,|
func (i Instruction) String() string {
	var sb strings.Builder
	i.AppendTo(&sb)
	return sb.String()
}

// AppendTo appends the corpus entry for i to sb.
func (i Instruction) AppendTo(sb *strings.Builder) {
	sb.WriteString(i.Addr)
	sb.WriteString(AddrSeparator)
	sb.WriteString(i.Mnemonic)
	sb.WriteByte(',')
	for _, op := range i.Operands {
		sb.WriteString(op)
		sb.WriteByte(',')
	}
	sb.WriteString(InstructionTerminator)
}

// InstructionConsumer receives instructions in stream order.
type InstructionConsumer interface {
	ConsumeInstruction(inst Instruction)
}

// InstructionObserver inspects an instruction before it joins the corpus.
// It returns the instruction to keep, possibly replaced, or false to drop it.
type InstructionObserver interface {
	ObserveInstruction(inst Instruction) (Instruction, bool)
}
