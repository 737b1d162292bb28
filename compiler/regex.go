package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sansecio/jasm/ast"
)

// Corpus fragments. Every instruction in the corpus has the shape
// addr::mnemonic,op1,op2,|
const (
	addrPrefix = `[\dabcedf]+::`
	skipToEnd  = `[^|]{0,1000}\|`
	tokenFence = `[^,|]{0,1000}`
	anyToken   = `[^,|]{0,1000}`

	// BuiltinAny matches any single mnemonic or operand.
	BuiltinAny = "@any"
)

type generator struct {
	opts     Options
	captures *Captures

	guards       int  // guarded $and_any_order groups emitted so far
	backtracking bool // output needs lookaround, backreferences or conditionals
}

// Quantifier renders a repetition suffix: empty for (1,1), {n} when both
// bounds agree, {min,max} otherwise.
func Quantifier(t ast.Times) (string, error) {
	switch {
	case t.Min < 0:
		return "", ast.SpecErrorf("times", "min %d is negative", t.Min)
	case t.Min > t.Max:
		return "", ast.SpecErrorf("times", "min %d greater than max %d", t.Min, t.Max)
	case t.IsOnce():
		return "", nil
	case t.Min == t.Max:
		return "{" + strconv.Itoa(t.Min) + "}", nil
	}
	return "{" + strconv.Itoa(t.Min) + "," + strconv.Itoa(t.Max) + "}", nil
}

// repeat wraps frag in a group when t asks for repetition.
func repeat(frag string, t ast.Times) (string, error) {
	q, err := Quantifier(t)
	if err != nil || q == "" {
		return frag, err
	}
	return "(?:" + frag + ")" + q, nil
}

func (g *generator) emit(p ast.Pattern) (string, error) {
	switch n := p.(type) {
	case *ast.Root:
		return g.and(n.Children, ast.Once)
	case *ast.Branch:
		switch n.Op {
		case ast.OpAnd:
			return g.and(n.Children, n.Times)
		case ast.OpOr:
			return g.or(n.Children, n.Times)
		case ast.OpNot:
			return g.not(n.Children, n.Times)
		case ast.OpAndAnyOrder:
			return g.andAnyOrder(n.Children, n.Times)
		}
		return "", ast.SpecErrorf(n.Op.String(), "unknown branch operator")
	case *ast.Mnemonic:
		return g.mnemonic(n)
	case *ast.Operand:
		return g.token(n.Name, g.opts.OperandsFullMatch), nil
	case *ast.Deref:
		return g.deref(n)
	case *ast.DerefProperty:
		return g.derefValue(n)
	case *ast.TimesMarker:
		return "", nil
	case *ast.CaptureRef:
		return g.captureRef(n.Capture)
	case *ast.CaptureCall:
		return g.captureCall(n.Capture)
	}
	return "", fmt.Errorf("unhandled pattern node %T", p)
}

// emitAll renders children in order. Times markers take no part in
// sequences, alternations or permutations and are left out.
func (g *generator) emitAll(children []ast.Pattern) ([]string, error) {
	frags := make([]string, 0, len(children))
	for _, c := range children {
		if _, ok := c.(*ast.TimesMarker); ok {
			continue
		}
		f, err := g.emit(c)
		if err != nil {
			return nil, err
		}
		frags = append(frags, f)
	}
	return frags, nil
}

func (g *generator) and(children []ast.Pattern, t ast.Times) (string, error) {
	frags, err := g.emitAll(children)
	if err != nil {
		return "", err
	}
	q, err := Quantifier(t)
	if err != nil {
		return "", err
	}
	return "(?:" + strings.Join(frags, "") + ")" + q, nil
}

func (g *generator) or(children []ast.Pattern, t ast.Times) (string, error) {
	frags, err := g.emitAll(children)
	if err != nil {
		return "", err
	}
	return alternate(frags, t)
}

func alternate(frags []string, t ast.Times) (string, error) {
	q, err := Quantifier(t)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString("(?:")
	for i, f := range frags {
		if i > 0 {
			sb.WriteByte('|')
		}
		sb.WriteString("(?:")
		sb.WriteString(f)
		sb.WriteByte(')')
	}
	sb.WriteByte(')')
	sb.WriteString(q)
	return sb.String(), nil
}

// not refuses the next instruction if any child sequence starts there and
// consumes that instruction otherwise.
func (g *generator) not(children []ast.Pattern, t ast.Times) (string, error) {
	frags, err := g.emitAll(children)
	if err != nil {
		return "", err
	}
	q, err := Quantifier(t)
	if err != nil {
		return "", err
	}
	g.backtracking = true
	// The consumed instruction starts at its address so the lookahead is
	// never tried from inside an instruction.
	return "(?:(?!" + strings.Join(frags, "") + ")" + addrPrefix + skipToEnd + ")" + q, nil
}

func (g *generator) mnemonic(m *ast.Mnemonic) (string, error) {
	ops, err := g.emitAll(m.Operands)
	if err != nil {
		return "", err
	}
	body := addrPrefix + "(?:" + g.token(m.Name, g.opts.MnemonicsFullMatch) + strings.Join(ops, "") + skipToEnd + ")"
	return repeat(body, m.Times)
}

// token renders a mnemonic or operand name followed by its comma. Without
// full match the name may appear anywhere inside the token.
func (g *generator) token(name string, fullMatch bool) string {
	if name == BuiltinAny {
		return anyToken + ","
	}
	lit := rewriteHex(name)
	if fullMatch {
		return lit + ","
	}
	return tokenFence + lit + tokenFence + ","
}

// rewriteHex turns MASM style hex literals such as 1Ah into 0x1A. A leading
// digit is required so that registers like ah are left alone.
func rewriteHex(name string) string {
	if len(name) < 2 || name[0] < '0' || name[0] > '9' {
		return name
	}
	last := name[len(name)-1]
	if last != 'h' && last != 'H' {
		return name
	}
	digits := name[:len(name)-1]
	for i := 0; i < len(digits); i++ {
		if !isHexDigit(digits[i]) {
			return name
		}
	}
	return "0x" + digits
}

func isHexDigit(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

func (g *generator) captureRef(c ast.Capture) (string, error) {
	index, err := g.captures.IndexOf(c.Slot)
	if err != nil {
		return "", err
	}
	g.backtracking = true
	var frag string
	switch c.Scope {
	case ast.ScopeInstruction:
		frag = fmt.Sprintf(`%s(?<%d>[^|]+),\|`, addrPrefix, index)
	case ast.ScopeOperand:
		frag = fmt.Sprintf(`(?<%d>[^,|]+),`, index)
	case ast.ScopeDeref:
		frag = fmt.Sprintf(`(?<%d>[^,|\[\]+*]+)`, index)
	case ast.ScopeRegister:
		frag = registerRef(c.Register, index)
	default:
		return "", fmt.Errorf("unknown capture scope %v", c.Scope)
	}
	return repeat(frag, c.Times)
}

func (g *generator) captureCall(c ast.Capture) (string, error) {
	index, err := g.captures.IndexOf(c.Slot)
	if err != nil {
		return "", err
	}
	g.backtracking = true
	var frag string
	switch c.Scope {
	case ast.ScopeInstruction:
		frag = fmt.Sprintf(`%s\%d,\|`, addrPrefix, index)
	case ast.ScopeOperand:
		frag = fmt.Sprintf(`\%d,`, index)
	case ast.ScopeDeref:
		frag = fmt.Sprintf(`\%d`, index)
	case ast.ScopeRegister:
		frag = registerCall(c.Register, index)
	default:
		return "", fmt.Errorf("unknown capture scope %v", c.Scope)
	}
	return repeat(frag, c.Times)
}
