package compiler

import (
	"errors"
	"testing"

	"github.com/retroenv/retrogolib/assert"

	"github.com/sansecio/jasm/ast"
)

func classifyRaw(t *testing.T, items ...any) (*ast.Root, *Captures) {
	t.Helper()
	root, err := Build(ast.Map{{Key: "$and", Value: items}})
	assert.NoError(t, err)
	captures := NewCaptures()
	typed, err := Classify(root, captures)
	assert.NoError(t, err)
	return typed, captures
}

func TestClassifyKinds(t *testing.T) {
	typed, _ := classifyRaw(t,
		ast.Map{{Key: "mov", Value: []any{"rax", 8}}},
		ast.Map{{Key: "$or", Value: []any{"call", "jmp"}}},
		ast.Map{{Key: "lea", Value: []any{
			ast.Map{{Key: "$deref", Value: ast.Map{{Key: "main_reg", Value: "rsp"}}}},
		}}},
	)

	assert.Len(t, typed.Children, 3)

	mov, ok := typed.Children[0].(*ast.Mnemonic)
	assert.True(t, ok)
	assert.Equal(t, "mov", mov.Name)
	for _, op := range mov.Operands {
		_, isOperand := op.(*ast.Operand)
		assert.True(t, isOperand)
	}

	or, ok := typed.Children[1].(*ast.Branch)
	assert.True(t, ok)
	assert.Equal(t, ast.OpOr, or.Op)
	_, isMnemonic := or.Children[0].(*ast.Mnemonic)
	assert.True(t, isMnemonic)

	lea := typed.Children[2].(*ast.Mnemonic)
	deref, ok := lea.Operands[0].(*ast.Deref)
	assert.True(t, ok)
	main := deref.Field(ast.MainReg)
	assert.NotNil(t, main)
	assert.Equal(t, "rsp", main.Children[0].(*ast.DerefProperty).Name)
}

func TestClassifyTimesLeaf(t *testing.T) {
	typed, _ := classifyRaw(t,
		"times",
		ast.Map{{Key: "mov", Value: []any{"rax", "times"}}},
	)

	_, ok := typed.Children[0].(*ast.TimesMarker)
	assert.True(t, ok)
	mov := typed.Children[1].(*ast.Mnemonic)
	assert.Len(t, mov.Operands, 2)
	_, ok = mov.Operands[1].(*ast.TimesMarker)
	assert.True(t, ok)
}

func TestClassifyNumericTopLevelIsOperand(t *testing.T) {
	typed, _ := classifyRaw(t, 42)
	op, ok := typed.Children[0].(*ast.Operand)
	assert.True(t, ok)
	assert.Equal(t, "42", op.Name)
}

func TestClassifyCaptureRefThenCall(t *testing.T) {
	typed, captures := classifyRaw(t,
		"&insn",
		ast.Map{{Key: "mov", Value: []any{"&op"}}},
		"&insn",
		ast.Map{{Key: "push", Value: []any{"&op"}}},
	)

	assert.Equal(t, []string{"&insn", "&op"}, captures.Names())

	ref, ok := typed.Children[0].(*ast.CaptureRef)
	assert.True(t, ok)
	assert.Equal(t, ast.ScopeInstruction, ref.Scope)

	opRef, ok := typed.Children[1].(*ast.Mnemonic).Operands[0].(*ast.CaptureRef)
	assert.True(t, ok)
	assert.Equal(t, ast.ScopeOperand, opRef.Scope)

	_, ok = typed.Children[2].(*ast.CaptureCall)
	assert.True(t, ok)
	_, ok = typed.Children[3].(*ast.Mnemonic).Operands[0].(*ast.CaptureCall)
	assert.True(t, ok)
}

func TestClassifyRegisterWidthsShareSlot(t *testing.T) {
	typed, captures := classifyRaw(t,
		ast.Map{{Key: "mov", Value: []any{"&genreg.rx", "&genreg.ex"}}},
		ast.Map{{Key: "xor", Value: []any{"&genreg.l"}}},
	)

	assert.Equal(t, 1, captures.Len())
	index, err := captures.IndexOf("&genreg")
	assert.NoError(t, err)
	assert.Equal(t, 1, index)

	mov := typed.Children[0].(*ast.Mnemonic)
	ref := mov.Operands[0].(*ast.CaptureRef)
	assert.Equal(t, ast.ScopeRegister, ref.Scope)
	assert.Equal(t, ast.Register{Family: ast.GenReg, Width: ast.Width64}, ref.Register)
	call := mov.Operands[1].(*ast.CaptureCall)
	assert.Equal(t, ast.Width32, call.Register.Width)
	xor := typed.Children[1].(*ast.Mnemonic).Operands[0].(*ast.CaptureCall)
	assert.Equal(t, ast.Width8L, xor.Register.Width)
}

func TestClassifyErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  any
	}{
		{"unknown branch", ast.Map{{Key: "$xor", Value: []any{"nop"}}}},
		{"nested deref", ast.Map{{Key: "mov", Value: []any{
			ast.Map{{Key: "$deref", Value: []any{ast.Map{{Key: "$deref", Value: []any{"rax"}}}}}},
		}}}},
		{"stackreg high byte", ast.Map{{Key: "mov", Value: []any{"&stackreg.h"}}}},
		{"basereg high byte", ast.Map{{Key: "mov", Value: []any{"&basereg.h"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, err := Build(ast.Map{{Key: "$and", Value: []any{tt.raw}}})
			assert.NoError(t, err)
			_, err = Classify(root, NewCaptures())
			var specErr *ast.PatternSpecError
			assert.True(t, errors.As(err, &specErr))
		})
	}
}

func TestCaptures(t *testing.T) {
	c := NewCaptures()
	assert.Equal(t, 1, c.Register("&a"))
	assert.Equal(t, 2, c.Register("&b"))
	assert.Equal(t, 1, c.Register("&a"))
	assert.True(t, c.IsRegistered("&b"))
	assert.False(t, c.IsRegistered("&c"))
	assert.Equal(t, 2, c.Len())

	_, err := c.IndexOf("&c")
	var groupErr *ast.CaptureGroupError
	assert.True(t, errors.As(err, &groupErr))
	assert.Equal(t, "&c", groupErr.Name)

	names := c.Names()
	names[0] = "changed"
	assert.Equal(t, []string{"&a", "&b"}, c.Names())
}
