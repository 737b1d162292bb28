package compiler

import (
	"strings"

	"github.com/sansecio/jasm/ast"
)

// MinAtomLength is the shortest literal worth prefiltering on. Shorter
// names such as "je" occur in nearly every corpus.
const MinAtomLength = 3

const regexMeta = `\.+*?()|[]{}^$`

// requiredAtoms collects literal mnemonic and operand names that every
// match must contain. Subtrees under $or and $not, or with a zero minimum
// repetition, are optional and contribute nothing.
func requiredAtoms(root *ast.Root) []string {
	var atoms []string
	add := func(name string) {
		if lit, ok := literalAtom(name); ok {
			atoms = append(atoms, lit)
		}
	}

	var walk func(p ast.Pattern)
	walk = func(p ast.Pattern) {
		switch n := p.(type) {
		case *ast.Root:
			for _, c := range n.Children {
				walk(c)
			}
		case *ast.Branch:
			if n.Times.Min == 0 || (n.Op != ast.OpAnd && n.Op != ast.OpAndAnyOrder) {
				return
			}
			for _, c := range n.Children {
				walk(c)
			}
		case *ast.Mnemonic:
			if n.Times.Min == 0 {
				return
			}
			add(n.Name)
			for _, c := range n.Operands {
				walk(c)
			}
		case *ast.Operand:
			add(n.Name)
		case *ast.Deref:
			if n.Times.Min == 0 {
				return
			}
			for _, c := range n.Children {
				walk(c)
			}
		case *ast.DerefProperty:
			if len(n.Children) == 0 {
				add(strings.TrimPrefix(n.Name, "%"))
			}
			for _, c := range n.Children {
				walk(c)
			}
		}
	}
	walk(root)
	return pruneAtoms(atoms)
}

func literalAtom(name string) (string, bool) {
	if name == BuiltinAny {
		return "", false
	}
	lit := rewriteHex(name)
	if len(lit) < MinAtomLength || strings.ContainsAny(lit, regexMeta) {
		return "", false
	}
	return lit, true
}

// pruneAtoms drops duplicates and atoms contained in a longer atom; finding
// the longer one implies the shorter.
func pruneAtoms(atoms []string) []string {
	var out []string
	for i, a := range atoms {
		redundant := false
		for j, b := range atoms {
			if i == j {
				continue
			}
			if (a == b && j < i) || (len(b) > len(a) && strings.Contains(b, a)) {
				redundant = true
				break
			}
		}
		if !redundant {
			out = append(out, a)
		}
	}
	return out
}
