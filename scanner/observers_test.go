package scanner

import (
	"testing"

	"github.com/retroenv/retrogolib/assert"

	"github.com/sansecio/jasm/parser"
)

func TestRemoveEmptyInstructions(t *testing.T) {
	_, keep := RemoveEmptyInstructions{}.ObserveInstruction(inst("1", parser.MnemonicEmpty))
	assert.False(t, keep)
	_, keep = RemoveEmptyInstructions{}.ObserveInstruction(inst("1", parser.MnemonicBad))
	assert.True(t, keep)
}

func TestValidAddrObserver(t *testing.T) {
	o := ValidAddrObserver{Min: 0x401000, Max: 0x402000}

	tests := []struct {
		name string
		in   []string
		mn   string
		want []string
	}{
		{"direct call in range", []string{"401136"}, "call", []string{ValidAddrOperand}},
		{"jump with 0x prefix", []string{"0x401500"}, "jne", []string{ValidAddrOperand}},
		{"upper bound inclusive", []string{"402000"}, "jmp", []string{ValidAddrOperand}},
		{"out of range", []string{"7fff0000"}, "call", []string{"7fff0000"}},
		{"indirect", []string{"*0x401136"}, "call", []string{"*0x401136"}},
		{"register", []string{"*%rax"}, "jmp", []string{"*%rax"}},
		{"not a jump", []string{"401136"}, "mov", []string{"401136"}},
		{"symbolic", []string{"[%rip+0x2f]"}, "call", []string{"[%rip+0x2f]"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, keep := o.ObserveInstruction(inst("1", tt.mn, tt.in...))
			assert.True(t, keep)
			assert.Equal(t, tt.mn, out.Mnemonic)
			assert.Equal(t, tt.want, out.Operands)
		})
	}
}
