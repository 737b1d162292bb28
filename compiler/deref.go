package compiler

import (
	"strings"

	"github.com/sansecio/jasm/ast"
)

const optionalHex = `(?:0x)?`

// deref renders [main + index*scale + offset]. Absent optional components
// are left out entirely.
func (g *generator) deref(d *ast.Deref) (string, error) {
	seen := make(map[string]bool, len(d.Children))
	for _, c := range d.Children {
		p, ok := c.(*ast.DerefProperty)
		if !ok || !ast.IsDerefField(p.Name) {
			return "", ast.SpecErrorf("$deref", "unexpected field %s", fieldName(c))
		}
		if seen[p.Name] {
			return "", ast.SpecErrorf("$deref", "field %s given twice", p.Name)
		}
		seen[p.Name] = true
	}

	main := d.Field(ast.MainReg)
	if main == nil {
		return "", ast.SpecErrorf("$deref", "main_reg is required")
	}

	var sb strings.Builder
	sb.WriteString(`\[`)
	if err := g.derefField(&sb, main); err != nil {
		return "", err
	}

	regMul := d.Field(ast.RegisterMultiplier)
	constMul := d.Field(ast.ConstantMultiplier)
	switch {
	case regMul != nil:
		sb.WriteString(`\+`)
		if err := g.derefField(&sb, regMul); err != nil {
			return "", err
		}
		if constMul != nil {
			sb.WriteString(`\*`)
			if err := g.derefConstant(&sb, constMul); err != nil {
				return "", err
			}
		}
	case constMul != nil:
		sb.WriteString(`\+`)
		if err := g.derefConstant(&sb, constMul); err != nil {
			return "", err
		}
	}

	if offset := d.Field(ast.ConstantOffset); offset != nil {
		if isNegative(offset) {
			// AT&T listings read [%rbp+-0x8], Intel ones [rbp-0x8].
			sb.WriteString(`\+?`)
		} else {
			sb.WriteString(`\+`)
		}
		if err := g.derefConstant(&sb, offset); err != nil {
			return "", err
		}
	}
	sb.WriteString(`\]`)

	frag := sb.String()
	if !g.opts.OperandsFullMatch {
		frag = tokenFence + frag + tokenFence
	}
	return repeat(frag+",", d.Times)
}

func (g *generator) derefField(sb *strings.Builder, p *ast.DerefProperty) error {
	if len(p.Children) != 1 {
		return ast.SpecErrorf(p.Name, "deref field takes exactly one value, got %d", len(p.Children))
	}
	frag, err := g.emit(p.Children[0])
	if err != nil {
		return err
	}
	sb.WriteString(frag)
	return nil
}

// derefConstant renders a multiplier or offset. Literal values match with
// or without the 0x prefix objdump prints; a sign is kept in front of it.
func (g *generator) derefConstant(sb *strings.Builder, p *ast.DerefProperty) error {
	if len(p.Children) != 1 {
		return ast.SpecErrorf(p.Name, "deref field takes exactly one value, got %d", len(p.Children))
	}
	v, ok := p.Children[0].(*ast.DerefProperty)
	if !ok || len(v.Children) != 0 {
		return g.derefField(sb, p)
	}
	lit := rewriteHex(v.Name)
	if strings.HasPrefix(lit, "-") {
		sb.WriteString("-")
		lit = lit[1:]
	}
	if len(lit) > 2 && (lit[:2] == "0x" || lit[:2] == "0X") {
		lit = lit[2:]
	}
	sb.WriteString(optionalHex)
	sb.WriteString(lit)
	return nil
}

func isNegative(p *ast.DerefProperty) bool {
	if len(p.Children) != 1 {
		return false
	}
	v, ok := p.Children[0].(*ast.DerefProperty)
	return ok && strings.HasPrefix(v.Name, "-")
}

// derefValue renders a literal below a $deref field. Registers may be
// written with or without the AT&T percent sign.
func (g *generator) derefValue(p *ast.DerefProperty) (string, error) {
	if len(p.Children) == 0 {
		return `%?` + strings.TrimPrefix(rewriteHex(p.Name), "%"), nil
	}
	frags, err := g.emitAll(p.Children)
	if err != nil {
		return "", err
	}
	return strings.Join(frags, ""), nil
}

func fieldName(p ast.Pattern) string {
	switch n := p.(type) {
	case *ast.DerefProperty:
		return n.Name
	case *ast.CaptureRef:
		return n.Name
	case *ast.CaptureCall:
		return n.Name
	}
	return "?"
}
