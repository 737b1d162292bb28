package parser

import (
	"strings"
	"testing"

	"github.com/retroenv/retrogolib/assert"

	"github.com/sansecio/jasm/ast"
)

type collector []ast.Instruction

func (c *collector) ConsumeInstruction(inst ast.Instruction) {
	*c = append(*c, inst)
}

func TestNormalizeOperand(t *testing.T) {
	tests := map[string]string{
		"$0x10":             "0x10",
		"%rax":              "%rax",
		"(%rax)":            "[%rax]",
		"-0x8(%rbp)":        "[%rbp+-0x8]",
		"(%rax,%rbx,4)":     "[%rax+%rbx*4]",
		"0x10(%rax,%rbx,4)": "[%rax+%rbx*4+0x10]",
		"0x18(%rsp,%rcx,1)": "[%rsp+%rcx*1+0x18]",
		"(%rdi,%rsi)":       "[%rdi+%rsi]",
		"QWORD PTR [rbp-8]": "QWORD PTR [rbp-8]",
		"*%rax":             "*%rax",
		"401000":            "401000",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeOperand(in), in)
	}
}

func TestParseInstruction(t *testing.T) {
	tests := []struct {
		text     string
		mnemonic string
		operands []string
	}{
		{"push   %rbp", "push", []string{"%rbp"}},
		{"mov    %rsp,%rbp", "mov", []string{"%rsp", "%rbp"}},
		{"mov    -0x8(%rbp),%rax", "mov", []string{"[%rbp+-0x8]", "%rax"}},
		{"movl   $0x0,-0x4(%rbp)", "movl", []string{"0x0", "[%rbp+-0x4]"}},
		{"call   1030 <puts@plt>", "call", []string{"1030"}},
		{"lock cmpxchg %ecx,(%rdx)", "lock cmpxchg", []string{"%ecx", "[%rdx]"}},
		{"data16 nopw 0x0(%rax,%rax,1)", "nopw", []string{"[%rax+%rax*1+0x0]"}},
		{"ret", "ret", nil},
		{"ret    # trailing comment", "ret", nil},
		{"mov    QWORD PTR [rbp-0x8],rdi", "mov", []string{"QWORD PTR [rbp-0x8]", "rdi"}},
		{"(bad)", MnemonicBad, nil},
		{"", MnemonicEmpty, nil},
	}

	p := newParser(t)
	for _, tt := range tests {
		inst, err := p.ParseInstruction("1000", tt.text)
		if err != nil {
			t.Fatalf("ParseInstruction(%q) error = %v", tt.text, err)
		}
		assert.Equal(t, "1000", inst.Addr)
		assert.Equal(t, tt.mnemonic, inst.Mnemonic, tt.text)
		assert.Equal(t, len(tt.operands), len(inst.Operands), tt.text)
		for i := range tt.operands {
			assert.Equal(t, tt.operands[i], inst.Operands[i], tt.text)
		}
	}
}

const listing = `
/tmp/a.out:     file format elf64-x86-64


Disassembly of section .init:

0000000000001000 <_init>:
    1000:	f3 0f 1e fa          	endbr64
    1004:	48 83 ec 08          	sub    $0x8,%rsp

Disassembly of section .text:

0000000000001040 <main>:
    1040:	55                   	push   %rbp
    1041:	48 89 e5             	mov    %rsp,%rbp
    1044:	48 b8 00 00 00 00 00 	movabs $0x0,%rax
    104b:	00 00 00
    104e:	c3                   	ret
`

func TestReadListing(t *testing.T) {
	p := newParser(t)

	var all collector
	assert.NoError(t, p.ReadListing(strings.NewReader(listing), nil, &all))
	assert.Len(t, all, 7)
	assert.Equal(t, "1000", all[0].Addr)
	assert.Equal(t, "endbr64", all[0].Mnemonic)
	assert.Equal(t, []string{"0x8", "%rsp"}, all[1].Operands)
	assert.Equal(t, MnemonicEmpty, all[5].Mnemonic)
	assert.Equal(t, "104e::ret,|", all[6].String())

	var text collector
	assert.NoError(t, p.ReadListing(strings.NewReader(listing), []string{".text"}, &text))
	assert.Len(t, text, 5)
	assert.Equal(t, "1040::push,%rbp,|", text[0].String())
}

func TestReadListingWithoutRawBytes(t *testing.T) {
	const src = "Disassembly of section .text:\n\n" +
		"0000000000001040 <main>:\n" +
		"    1040:\tpush   %rbp\n" +
		"    1041:\tadd    %al,(%rax)\n"

	var got collector
	assert.NoError(t, newParser(t).ReadListing(strings.NewReader(src), nil, &got))
	assert.Len(t, got, 2)
	assert.Equal(t, "1041::add,%al,[%rax],|", got[1].String())
}
