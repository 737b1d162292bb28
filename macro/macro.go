// Package macro expands macro invocations in raw pattern trees.
package macro

import (
	"strconv"
	"strings"

	"github.com/sansecio/jasm/ast"
)

// Sigil prefixes every macro name.
const Sigil = "@"

// builtins carry the sigil but are understood by the code generator.
var builtins = map[string]bool{
	"@any": true,
}

// Expand applies macros to tree in list order and returns the expanded tree.
// tree itself is never modified. Any sigil-named identifier left afterwards is
// reported as an undefined macro.
func Expand(macros []ast.MacroDef, tree any) (any, error) {
	seen := make(map[string]bool, len(macros))
	for _, m := range macros {
		switch {
		case !strings.HasPrefix(m.Name, Sigil):
			return nil, ast.SpecErrorf(m.Name, "macro name must start with %s", Sigil)
		case builtins[m.Name]:
			return nil, ast.SpecErrorf(m.Name, "macro name is reserved")
		case seen[m.Name]:
			return nil, ast.SpecErrorf(m.Name, "macro defined twice")
		}
		seen[m.Name] = true
	}

	for _, m := range macros {
		var err error
		tree, err = apply(m, ast.Clone(tree))
		if err != nil {
			return nil, err
		}
	}

	if name := unresolved(tree); name != "" {
		return nil, ast.SpecErrorf(name, "macro %s not defined", name)
	}
	return tree, nil
}

func apply(m ast.MacroDef, node any) (any, error) {
	switch v := node.(type) {
	case string:
		if v == m.Name {
			return expand(m, v)
		}
		if containsName(v, m.Name) {
			body, err := inlineBody(m)
			if err != nil {
				return nil, err
			}
			return replaceName(v, m.Name, body), nil
		}
		return v, nil

	case ast.Map:
		if v.Has(m.Name) {
			return expand(m, v)
		}
		out := make(ast.Map, len(v))
		for i, p := range v {
			key := p.Key
			if containsName(key, m.Name) {
				body, err := inlineBody(m)
				if err != nil {
					return nil, err
				}
				key = replaceName(key, m.Name, body)
			}
			val, err := apply(m, p.Value)
			if err != nil {
				return nil, err
			}
			out[i] = ast.Pair{Key: key, Value: val}
		}
		return out, nil

	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			r, err := apply(m, e)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	}
	return node, nil
}

// expand builds the replacement for a call site that names the macro.
func expand(m ast.MacroDef, callSite any) (any, error) {
	body := ast.Clone(m.Pattern)
	if len(m.Args) > 0 {
		values := make(map[string]any, len(m.Args))
		for _, arg := range m.Args {
			val, ok := lookupArg(callSite, arg)
			if !ok {
				return nil, ast.SpecErrorf(m.Name, "argument %s not given at call site", arg)
			}
			values[arg] = val
		}
		var err error
		body, err = substitute(m.Name, body, values)
		if err != nil {
			return nil, err
		}
	}

	switch b := body.(type) {
	case string:
		site, ok := callSite.(ast.Map)
		if !ok {
			return b, nil
		}
		return renameCall(m, site, b), nil
	case []any:
		if len(b) != 1 {
			return nil, ast.SpecErrorf(m.Name, "macro pattern must contain exactly one element, got %d", len(b))
		}
		return b[0], nil
	}
	return nil, ast.SpecErrorf(m.Name, "macro pattern must be a string or a one-element list, got %T", body)
}

// renameCall replaces the macro key of a mapping call site with a string
// body, keeping its siblings and any repetition. Argument values are
// consumed by the expansion and dropped.
func renameCall(m ast.MacroDef, site ast.Map, body string) ast.Map {
	out := make(ast.Map, 0, len(site))
	for _, p := range site {
		if p.Key != m.Name {
			out = append(out, p)
			continue
		}
		val := p.Value
		if len(m.Args) > 0 {
			val = nil
			if inner, ok := p.Value.(ast.Map); ok {
				if t, ok := inner.Get("times"); ok {
					val = ast.Map{{Key: "times", Value: t}}
				}
			}
		}
		out = append(out, ast.Pair{Key: body, Value: val})
	}
	return out
}

// containsName reports whether name occurs in s as a whole identifier, so
// @a is not found inside @any or @a_b.
func containsName(s, name string) bool {
	return replaceName(s, name, "") != s
}

// replaceName replaces every whole-identifier occurrence of name in s.
func replaceName(s, name, body string) string {
	var sb strings.Builder
	for {
		i := strings.Index(s, name)
		if i < 0 {
			sb.WriteString(s)
			return sb.String()
		}
		end := i + len(name)
		if end < len(s) && isIdentByte(s[end]) {
			sb.WriteString(s[:end])
		} else {
			sb.WriteString(s[:i])
			sb.WriteString(body)
		}
		s = s[end:]
	}
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// inlineBody is the text spliced into a larger literal.
func inlineBody(m ast.MacroDef) (string, error) {
	switch b := m.Pattern.(type) {
	case string:
		return b, nil
	case []any:
		if len(b) == 1 {
			if s, ok := b[0].(string); ok {
				return s, nil
			}
		}
	}
	return "", ast.SpecErrorf(m.Name, "macro used inside a literal needs a string pattern")
}

// lookupArg scans the call site for a key equal to arg.
func lookupArg(node any, arg string) (any, bool) {
	switch v := node.(type) {
	case string:
		if v == arg {
			return v, true
		}
	case ast.Map:
		for _, p := range v {
			if p.Key == arg {
				return p.Value, true
			}
		}
		for _, p := range v {
			if val, ok := lookupArg(p.Value, arg); ok {
				return val, true
			}
		}
	case []any:
		for _, e := range v {
			if val, ok := lookupArg(e, arg); ok {
				return val, true
			}
		}
	}
	return nil, false
}

// substitute replaces argument placeholders in a macro body, whether they
// appear as values or as keys.
func substitute(macroName string, body any, values map[string]any) (any, error) {
	switch v := body.(type) {
	case string:
		if val, ok := values[v]; ok {
			return ast.Clone(val), nil
		}
		return v, nil
	case ast.Map:
		out := make(ast.Map, len(v))
		for i, p := range v {
			key := p.Key
			if val, ok := values[key]; ok {
				switch s := val.(type) {
				case string:
					key = s
				case int:
					key = strconv.Itoa(s)
				default:
					return nil, ast.SpecErrorf(macroName, "argument %s is used as a key and needs a scalar value", key)
				}
			}
			val, err := substitute(macroName, p.Value, values)
			if err != nil {
				return nil, err
			}
			out[i] = ast.Pair{Key: key, Value: val}
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			r, err := substitute(macroName, e, values)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	}
	return body, nil
}

// unresolved returns the first sigil-named identifier in tree.
func unresolved(tree any) string {
	isMacro := func(s string) bool {
		return strings.HasPrefix(s, Sigil) && !builtins[s]
	}
	switch v := tree.(type) {
	case string:
		if isMacro(v) {
			return v
		}
	case ast.Map:
		for _, p := range v {
			if isMacro(p.Key) {
				return p.Key
			}
			if name := unresolved(p.Value); name != "" {
				return name
			}
		}
	case []any:
		for _, e := range v {
			if name := unresolved(e); name != "" {
				return name
			}
		}
	}
	return ""
}
