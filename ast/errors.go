package ast

import "fmt"

// PatternSpecError reports a malformed pattern file. Fixing it is up to the
// pattern author.
type PatternSpecError struct {
	Node string // offending node name, empty when not tied to a node
	Msg  string
}

func (e *PatternSpecError) Error() string {
	if e.Node == "" {
		return "invalid pattern: " + e.Msg
	}
	return fmt.Sprintf("invalid pattern at %q: %s", e.Node, e.Msg)
}

// SpecErrorf returns a PatternSpecError for node.
func SpecErrorf(node, format string, args ...any) error {
	return &PatternSpecError{Node: node, Msg: fmt.Sprintf(format, args...)}
}

// CaptureGroupError reports a backreference to a capture group that was never
// registered. It points at a compiler bug, not at the pattern.
type CaptureGroupError struct {
	Name string
}

func (e *CaptureGroupError) Error() string {
	return fmt.Sprintf("capture group %q is not registered", e.Name)
}

// UnsupportedFeatureError reports a reserved operator or mode.
type UnsupportedFeatureError struct {
	Feature string
}

func (e *UnsupportedFeatureError) Error() string {
	return fmt.Sprintf("%s is not supported", e.Feature)
}
