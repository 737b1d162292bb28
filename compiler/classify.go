package compiler

import (
	"strings"

	"github.com/sansecio/jasm/ast"
)

// scope is the ancestor context of the node being classified.
type scope struct {
	inMnemonic bool
	inDeref    bool
}

type classifier struct {
	captures *Captures
}

// Classify assigns a kind to every node below root. Capture groups are
// registered in captures in pre-order, so the first occurrence of a name
// defines the group and every later occurrence recalls it.
func Classify(root *ast.Node, captures *Captures) (*ast.Root, error) {
	c := &classifier{captures: captures}
	children, err := c.classifyAll(root.Children, scope{})
	if err != nil {
		return nil, err
	}
	return &ast.Root{Children: children}, nil
}

func (c *classifier) classifyAll(nodes []*ast.Node, sc scope) ([]ast.Pattern, error) {
	out := make([]ast.Pattern, 0, len(nodes))
	for _, n := range nodes {
		p, err := c.classify(n, sc)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (c *classifier) classify(n *ast.Node, sc scope) (ast.Pattern, error) {
	switch {
	case n.Name == "$deref":
		if sc.inDeref {
			return nil, ast.SpecErrorf(n.Name, "nested $deref")
		}
		children, err := c.classifyAll(n.Children, scope{inMnemonic: sc.inMnemonic, inDeref: true})
		if err != nil {
			return nil, err
		}
		return &ast.Deref{Times: n.Times, Children: children}, nil

	case sc.inDeref:
		if ast.IsCapture(n.Name) {
			return c.capture(n, sc)
		}
		children, err := c.classifyAll(n.Children, sc)
		if err != nil {
			return nil, err
		}
		return &ast.DerefProperty{Name: n.Name, Children: children}, nil

	case ast.IsCapture(n.Name):
		return c.capture(n, sc)

	case n.Name == keyTimes:
		return &ast.TimesMarker{}, nil

	case strings.HasPrefix(n.Name, "$"):
		op, ok := ast.LookupBranch(n.Name)
		if !ok {
			if n.Name == "$perm" {
				return nil, &ast.UnsupportedFeatureError{Feature: "$perm"}
			}
			return nil, ast.SpecErrorf(n.Name, "unknown branch operator")
		}
		if n.IsLeaf() {
			return nil, ast.SpecErrorf(n.Name, "children list is empty")
		}
		children, err := c.classifyAll(n.Children, sc)
		if err != nil {
			return nil, err
		}
		return &ast.Branch{Op: op, Times: n.Times, Children: children}, nil

	case n.Numeric || sc.inMnemonic:
		if !n.IsLeaf() {
			return nil, ast.SpecErrorf(n.Name, "operand should not have children")
		}
		return &ast.Operand{Name: n.Name}, nil

	default:
		operands, err := c.classifyAll(n.Children, scope{inMnemonic: true})
		if err != nil {
			return nil, err
		}
		return &ast.Mnemonic{Name: n.Name, Times: n.Times, Operands: operands}, nil
	}
}

// capture classifies a sigil-prefixed node as a group definition or a
// backreference.
func (c *classifier) capture(n *ast.Node, sc scope) (ast.Pattern, error) {
	if !n.IsLeaf() {
		return nil, ast.SpecErrorf(n.Name, "capture group cannot have children")
	}
	capture := ast.Capture{Name: n.Name, Slot: n.Name, Times: n.Times}

	reg, slot, isReg, err := parseRegister(n.Name)
	switch {
	case err != nil:
		return nil, err
	case isReg:
		capture.Scope = ast.ScopeRegister
		capture.Slot = slot
		capture.Register = reg
	case sc.inDeref:
		capture.Scope = ast.ScopeDeref
	case sc.inMnemonic:
		capture.Scope = ast.ScopeOperand
	default:
		capture.Scope = ast.ScopeInstruction
	}

	if c.captures.IsRegistered(capture.Slot) {
		return &ast.CaptureCall{Capture: capture}, nil
	}
	c.captures.Register(capture.Slot)
	return &ast.CaptureRef{Capture: capture}, nil
}
