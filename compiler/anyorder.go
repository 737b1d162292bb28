package compiler

import (
	"fmt"
	"strings"

	"github.com/sansecio/jasm/ast"
)

// DefaultMaxAnyOrderLiteral is the largest $and_any_order that is expanded
// into every permutation of its children. 6 children give 720 alternatives.
const DefaultMaxAnyOrderLiteral = 6

// andAnyOrder matches every child exactly once, in any order.
func (g *generator) andAnyOrder(children []ast.Pattern, t ast.Times) (string, error) {
	frags, err := g.emitAll(children)
	if err != nil {
		return "", err
	}
	if len(frags) <= g.opts.maxAnyOrderLiteral() {
		perms := Permutations(frags)
		alts := make([]string, len(perms))
		for i, p := range perms {
			alts[i] = "(?:" + strings.Join(p, "") + ")"
		}
		return alternate(alts, t)
	}
	return g.guardedAnyOrder(frags, t)
}

// guardedAnyOrder matches the children in any order without enumerating the
// permutations. Every child gets a guard group that is set when the child
// matches; a set guard refuses its child, so K rounds take each child once.
// The guards are popped afterwards so an enclosing repetition starts clean.
func (g *generator) guardedAnyOrder(frags []string, t ast.Times) (string, error) {
	q, err := Quantifier(t)
	if err != nil {
		return "", err
	}
	g.guards++
	g.backtracking = true

	names := make([]string, len(frags))
	var sb strings.Builder
	sb.WriteString("(?:(?:")
	for i, f := range frags {
		names[i] = fmt.Sprintf("ao%dg%d", g.guards, i+1)
		if i > 0 {
			sb.WriteByte('|')
		}
		fmt.Fprintf(&sb, "(?(%s)(?!)|(?<%s>%s))", names[i], names[i], f)
	}
	fmt.Fprintf(&sb, "){%d}", len(frags))
	for _, name := range names {
		fmt.Fprintf(&sb, "(?<-%s>)", name)
	}
	sb.WriteByte(')')
	sb.WriteString(q)
	return sb.String(), nil
}

// Permutations returns every ordering of items in lexicographic index order.
func Permutations(items []string) [][]string {
	if len(items) == 0 {
		return [][]string{{}}
	}
	var out [][]string
	for i, head := range items {
		rest := make([]string, 0, len(items)-1)
		rest = append(rest, items[:i]...)
		rest = append(rest, items[i+1:]...)
		for _, tail := range Permutations(rest) {
			out = append(out, append([]string{head}, tail...))
		}
	}
	return out
}
