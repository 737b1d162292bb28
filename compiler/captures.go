package compiler

import (
	"slices"

	"github.com/sansecio/jasm/ast"
)

// Captures assigns backreference indices to capture group names. A Captures
// value lives for exactly one compile call.
type Captures struct {
	names []string
}

// NewCaptures returns an empty registry.
func NewCaptures() *Captures {
	return &Captures{}
}

// Register appends name if it is new and returns its 1-based index.
func (c *Captures) Register(name string) int {
	if i := slices.Index(c.names, name); i >= 0 {
		return i + 1
	}
	c.names = append(c.names, name)
	return len(c.names)
}

// IsRegistered reports whether name already owns a group.
func (c *Captures) IsRegistered(name string) bool {
	return slices.Contains(c.names, name)
}

// IndexOf returns the 1-based index of name.
func (c *Captures) IndexOf(name string) (int, error) {
	if i := slices.Index(c.names, name); i >= 0 {
		return i + 1, nil
	}
	return 0, &ast.CaptureGroupError{Name: name}
}

// Names returns the registered names in index order.
func (c *Captures) Names() []string {
	return slices.Clone(c.names)
}

// Len returns the number of registered groups.
func (c *Captures) Len() int {
	return len(c.names)
}
