// Package compiler turns pattern files into regular expressions over an
// instruction corpus.
package compiler

import (
	"fmt"

	"github.com/sansecio/jasm/ast"
	"github.com/sansecio/jasm/macro"
)

// Options configures code generation.
type Options struct {
	MnemonicsFullMatch bool
	OperandsFullMatch  bool

	// MaxAnyOrderLiteral bounds the number of $and_any_order children that
	// are expanded into all permutations. Larger groups use guard groups.
	// Zero means DefaultMaxAnyOrderLiteral.
	MaxAnyOrderLiteral int
}

func (o Options) maxAnyOrderLiteral() int {
	if o.MaxAnyOrderLiteral <= 0 {
		return DefaultMaxAnyOrderLiteral
	}
	return o.MaxAnyOrderLiteral
}

// OptionsFromConfig derives generation options from a pattern file's config.
func OptionsFromConfig(c ast.Config) Options {
	return Options{
		MnemonicsFullMatch: c.MnemonicsFullMatch,
		OperandsFullMatch:  c.OperandsFullMatch,
	}
}

// Program is a compiled pattern. It is immutable.
type Program struct {
	Regex    string
	Captures []string // capture slot names, index i is group i+1
	Atoms    []string // literals every match contains

	// Backtracking is set when Regex uses lookaround, backreferences or
	// conditionals and therefore needs a backtracking engine.
	Backtracking bool
}

// Compile expands macros, builds and classifies the tree, and generates the
// regex for f.
func Compile(f *ast.File, opts Options) (*Program, error) {
	tree, err := macro.Expand(f.Macros, f.Root())
	if err != nil {
		return nil, fmt.Errorf("expanding macros: %w", err)
	}
	root, err := Build(tree)
	if err != nil {
		return nil, fmt.Errorf("building pattern tree: %w", err)
	}
	return CompileTree(root, opts)
}

// CompileTree classifies an untyped tree and generates its regex. Each call
// uses its own capture registry.
func CompileTree(root *ast.Node, opts Options) (*Program, error) {
	captures := NewCaptures()
	typed, err := Classify(root, captures)
	if err != nil {
		return nil, fmt.Errorf("classifying pattern tree: %w", err)
	}

	g := &generator{opts: opts, captures: captures}
	re, err := g.emit(typed)
	if err != nil {
		return nil, fmt.Errorf("generating regex: %w", err)
	}

	return &Program{
		Regex:        re,
		Captures:     captures.Names(),
		Atoms:        requiredAtoms(typed),
		Backtracking: g.backtracking,
	}, nil
}
