package parser

import "github.com/alecthomas/participle/v2/lexer"

// Grammar structs for participle parser.
// These describe the text column of one objdump instruction line, e.g.
//
//	rep stos %rax,%es:(%rdi)
//	mov    QWORD PTR [rbp-0x8],rdi
//	call   1030 <puts@plt>

type instructionText struct {
	Prefixes []string       `parser:"@Prefix*"`
	Mnemonic string         `parser:"@Word"`
	Operands []*operandText `parser:"( @@ ( ',' @@ )* )?"`
}

type operandText struct {
	Parts []string `parser:"@Word+"`
}

var instructionLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "Symbol", Pattern: `<[^>]*>`},
	{Name: "Prefix", Pattern: `\b(?:rep|repz|repe|repnz|repne|lock|bnd|notrack|data16|addr32)[ \t]+`},
	{Name: "Word", Pattern: `(?:[^\s,#<(\[]|\([^)]*\)|\[[^\]]*\])+`},
	{Name: "Comma", Pattern: `,`},
	{Name: "Whitespace", Pattern: `[ \t]+`},
})
