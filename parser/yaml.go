package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sansecio/jasm/ast"
)

func decodeDocument(data []byte) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, errors.New("empty document")
	}
	return doc.Content[0], nil
}

// toValue converts a YAML node into raw pattern values, keeping mapping key
// order. Decimal integers become int; hex and octal literals stay strings
// so that operands like 0x10 keep their spelling.
func toValue(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return toValue(n.Content[0])
	case yaml.AliasNode:
		return toValue(n.Alias)
	case yaml.MappingNode:
		m := make(ast.Map, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k := n.Content[i]
			if k.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: mapping keys must be scalars", k.Line)
			}
			v, err := toValue(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			m = append(m, ast.Pair{Key: k.Value, Value: v})
		}
		return m, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := toValue(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.ScalarNode:
		return scalar(n), nil
	}
	return nil, fmt.Errorf("line %d: unsupported YAML node", n.Line)
}

func scalar(n *yaml.Node) any {
	switch n.ShortTag() {
	case "!!null":
		return nil
	case "!!int":
		if isDecimal(n.Value) {
			if i, err := strconv.Atoi(n.Value); err == nil {
				return i
			}
		}
	}
	return n.Value
}

func isDecimal(s string) bool {
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func decodeMacros(n *yaml.Node) ([]ast.MacroDef, error) {
	if n.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("line %d: macros must be a sequence", n.Line)
	}
	macros := make([]ast.MacroDef, 0, len(n.Content))
	for _, item := range n.Content {
		if item.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("line %d: macro must be a mapping", item.Line)
		}
		var m ast.MacroDef
		hasPattern := false
		for i := 0; i+1 < len(item.Content); i += 2 {
			k, v := item.Content[i], item.Content[i+1]
			switch k.Value {
			case "name":
				m.Name = v.Value
			case "args":
				if err := v.Decode(&m.Args); err != nil {
					return nil, fmt.Errorf("line %d: macro args: %w", v.Line, err)
				}
			case "pattern":
				p, err := toValue(v)
				if err != nil {
					return nil, err
				}
				m.Pattern = p
				hasPattern = true
			default:
				return nil, fmt.Errorf("line %d: unknown macro field %q", k.Line, k.Value)
			}
		}
		if m.Name == "" {
			return nil, fmt.Errorf("line %d: macro without a name", item.Line)
		}
		if !hasPattern {
			return nil, &ast.PatternSpecError{Node: m.Name, Msg: "macro without a pattern"}
		}
		macros = append(macros, m)
	}
	return macros, nil
}

// ParseHex parses an address with or without a 0x prefix.
func ParseHex(s string) (uint64, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid hex address %q", s)
	}
	return v, nil
}
