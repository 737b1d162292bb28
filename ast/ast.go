// Package ast defines the pattern file model and the pattern trees the
// compiler works on.
package ast

import "slices"

// File represents a parsed pattern file.
type File struct {
	Pattern []any // raw pattern nodes, implicitly wrapped in an $and
	Macros  []MacroDef
	Config  Config
}

// Root returns the raw pattern tree with the implicit $and applied.
func (f *File) Root() Map {
	return Map{{Key: "$and", Value: slices.Clone(f.Pattern)}}
}

// MacroDef represents a single entry of the macros section.
type MacroDef struct {
	Name    string   // sigil-prefixed, e.g. @push_frame
	Args    []string // placeholder names resolved at the call site
	Pattern any      // replacement body: a string or a one-element sequence
}

// Style is the assembly syntax flavour of the instruction stream.
type Style string

const (
	StyleATT   Style = "att"
	StyleIntel Style = "intel"
)

// AddrRange is an inclusive range of hexadecimal addresses.
type AddrRange struct {
	Min string `yaml:"min"`
	Max string `yaml:"max"`
}

// Config represents the config section of a pattern file.
type Config struct {
	MnemonicsFullMatch bool       `yaml:"mnemonics-full-match"`
	OperandsFullMatch  bool       `yaml:"operands-full-match"`
	Style              Style      `yaml:"style"`
	ValidAddrRange     *AddrRange `yaml:"valid_addr_range"`
	Sections           []string   `yaml:"sections"`
}

// AssemblyStyle returns the configured style, defaulting to AT&T.
func (c Config) AssemblyStyle() Style {
	if c.Style == "" {
		return StyleATT
	}
	return c.Style
}

// Map is a mapping whose key order is preserved.
type Map []Pair

// Pair is a single key/value entry of a Map.
type Pair struct {
	Key   string
	Value any // string, int, Map, []any or nil
}

// Get returns the value stored under key.
func (m Map) Get(key string) (any, bool) {
	for _, p := range m {
		if p.Key == key {
			return p.Value, true
		}
	}
	return nil, false
}

// Has reports whether key is present.
func (m Map) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Keys returns the keys in declaration order.
func (m Map) Keys() []string {
	keys := make([]string, len(m))
	for i, p := range m {
		keys[i] = p.Key
	}
	return keys
}

// Clone returns a deep copy of a raw pattern value.
func Clone(v any) any {
	switch t := v.(type) {
	case Map:
		out := make(Map, len(t))
		for i, p := range t {
			out[i] = Pair{Key: p.Key, Value: Clone(p.Value)}
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Clone(e)
		}
		return out
	case Pair:
		return Pair{Key: t.Key, Value: Clone(t.Value)}
	default:
		return v
	}
}

// Times is a repetition bound.
type Times struct {
	Min int
	Max int
}

// Once is the identity repetition.
var Once = Times{Min: 1, Max: 1}

// IsOnce reports whether t carries no explicit quantifier.
func (t Times) IsOnce() bool {
	return t == Once
}

// Node is an untyped pattern tree node.
type Node struct {
	Name     string
	Numeric  bool // name was an integer scalar
	Times    Times
	Children []*Node
	Parent   *Node
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}
