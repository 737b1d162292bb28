package compiler

import (
	"strconv"
	"strings"

	"github.com/sansecio/jasm/ast"
)

// Reserved sub-keys. They shape the node they appear in and never name a
// node of their own.
const (
	keyTimes    = "times"
	keyOperands = "operands"
)

// Build converts a macro-expanded raw pattern value into an untyped tree and
// links parent pointers.
func Build(raw any) (*ast.Node, error) {
	n, err := build(raw)
	if err != nil {
		return nil, err
	}
	Link(n)
	return n, nil
}

// Link assigns parent pointers top-down. The root's parent is nil.
func Link(root *ast.Node) {
	root.Parent = nil
	link(root)
}

func link(n *ast.Node) {
	for _, c := range n.Children {
		c.Parent = n
		link(c)
	}
}

func build(raw any) (*ast.Node, error) {
	switch v := raw.(type) {
	case string:
		return &ast.Node{Name: v, Times: ast.Once}, nil
	case int:
		return &ast.Node{Name: strconv.Itoa(v), Numeric: true, Times: ast.Once}, nil
	case ast.Map:
		return buildMap(v)
	case ast.Pair:
		return buildMap(ast.Map{v})
	case nil:
		return nil, ast.SpecErrorf("", "empty pattern node")
	default:
		return nil, ast.SpecErrorf("", "unexpected %T where a pattern node was expected", raw)
	}
}

func buildMap(m ast.Map) (*ast.Node, error) {
	var (
		name     string
		value    any
		keys     []string
		times    any
		hasTimes bool
	)
	for _, p := range m {
		if p.Key == keyTimes {
			times, hasTimes = p.Value, true
			continue
		}
		name, value = p.Key, p.Value
		keys = append(keys, p.Key)
	}
	switch len(keys) {
	case 0:
		return nil, ast.SpecErrorf("", "mapping without an instruction key")
	case 1:
	default:
		return nil, ast.SpecErrorf(keys[0], "too many instructions in basic command: %s", strings.Join(keys, ", "))
	}

	if inner, ok := value.(ast.Map); ok {
		if t, ok := inner.Get(keyTimes); ok {
			if hasTimes {
				return nil, ast.SpecErrorf(name, "times given twice")
			}
			times, hasTimes = t, true
		}
	}

	n := &ast.Node{Name: name, Times: ast.Once}
	if hasTimes {
		t, err := parseTimes(name, times)
		if err != nil {
			return nil, err
		}
		n.Times = t
	}

	children, err := buildChildren(value)
	if err != nil {
		return nil, err
	}
	n.Children = children
	return n, nil
}

func buildChildren(value any) ([]*ast.Node, error) {
	var out []*ast.Node
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []any:
		for _, e := range v {
			c, err := build(e)
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		}
	case ast.Map:
		for _, p := range v {
			switch p.Key {
			case keyTimes:
				continue
			case keyOperands:
				ops, err := buildChildren(p.Value)
				if err != nil {
					return nil, err
				}
				out = append(out, ops...)
			default:
				c, err := build(p)
				if err != nil {
					return nil, err
				}
				out = append(out, c)
			}
		}
	default:
		c, err := build(v)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// parseTimes accepts either an integer or a {min, max} mapping. Missing
// bounds default to 1.
func parseTimes(name string, v any) (ast.Times, error) {
	t := ast.Once
	switch tv := v.(type) {
	case int:
		t = ast.Times{Min: tv, Max: tv}
	case ast.Map:
		for _, p := range tv {
			n, ok := p.Value.(int)
			if !ok {
				return t, ast.SpecErrorf(name, "times %s must be an integer, got %v", p.Key, p.Value)
			}
			switch p.Key {
			case "min":
				t.Min = n
			case "max":
				t.Max = n
			default:
				return t, ast.SpecErrorf(name, "unknown times field %q", p.Key)
			}
		}
	default:
		return t, ast.SpecErrorf(name, "times must be an integer or a {min, max} mapping, got %v", v)
	}
	if t.Min < 0 {
		return t, ast.SpecErrorf(name, "times min %d is negative", t.Min)
	}
	if t.Min > t.Max {
		return t, ast.SpecErrorf(name, "times min %d greater than max %d", t.Min, t.Max)
	}
	return t, nil
}
