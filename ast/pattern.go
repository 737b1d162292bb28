package ast

import "strings"

// Pattern is a classified pattern tree node.
type Pattern interface {
	patternNode()
}

// Root is the top of a classified tree. It behaves like an $and.
type Root struct {
	Children []Pattern
}

func (Root) patternNode() {}

// BranchOp is a logical combinator.
type BranchOp int

const (
	OpAnd BranchOp = iota
	OpOr
	OpNot
	OpAndAnyOrder
)

var branchNames = map[string]BranchOp{
	"$and":           OpAnd,
	"$or":            OpOr,
	"$not":           OpNot,
	"$and_any_order": OpAndAnyOrder,
}

// LookupBranch maps a sigil name like "$or" to its operator.
func LookupBranch(name string) (BranchOp, bool) {
	op, ok := branchNames[name]
	return op, ok
}

func (op BranchOp) String() string {
	switch op {
	case OpAnd:
		return "$and"
	case OpOr:
		return "$or"
	case OpNot:
		return "$not"
	case OpAndAnyOrder:
		return "$and_any_order"
	}
	return "$unknown"
}

// Branch represents $and, $or, $not and $and_any_order.
type Branch struct {
	Op       BranchOp
	Times    Times
	Children []Pattern
}

func (Branch) patternNode() {}

// Mnemonic matches a single instruction.
type Mnemonic struct {
	Name     string
	Times    Times
	Operands []Pattern
}

func (Mnemonic) patternNode() {}

// Operand matches a single operand token.
type Operand struct {
	Name string
}

func (Operand) patternNode() {}

// DerefField names one component of a memory addressing expression.
type DerefField string

const (
	MainReg            DerefField = "main_reg"
	ConstantOffset     DerefField = "constant_offset"
	RegisterMultiplier DerefField = "register_multiplier"
	ConstantMultiplier DerefField = "constant_multiplier"
)

// IsDerefField reports whether name is one of the four addressing fields.
func IsDerefField(name string) bool {
	switch DerefField(name) {
	case MainReg, ConstantOffset, RegisterMultiplier, ConstantMultiplier:
		return true
	}
	return false
}

// Deref matches a [base + index*scale + offset] memory operand.
type Deref struct {
	Times    Times
	Children []Pattern // *DerefProperty fields, keyed by name
}

func (Deref) patternNode() {}

// Field returns the property for f, or nil when absent.
func (d *Deref) Field(f DerefField) *DerefProperty {
	for _, c := range d.Children {
		if p, ok := c.(*DerefProperty); ok && p.Name == string(f) {
			return p
		}
	}
	return nil
}

// DerefProperty is a node below a $deref: either an addressing field with
// its value as children, or a literal value leaf.
type DerefProperty struct {
	Name     string
	Children []Pattern
}

func (DerefProperty) patternNode() {}

// TimesMarker is a leftover times entry. It emits nothing.
type TimesMarker struct{}

func (TimesMarker) patternNode() {}

// CaptureScope is the token class a capture group matches.
type CaptureScope int

const (
	ScopeInstruction CaptureScope = iota
	ScopeOperand
	ScopeRegister
	ScopeDeref
)

func (s CaptureScope) String() string {
	switch s {
	case ScopeInstruction:
		return "instruction"
	case ScopeOperand:
		return "operand"
	case ScopeRegister:
		return "register"
	case ScopeDeref:
		return "deref"
	}
	return "unknown"
}

// CaptureSigil prefixes every capture group name.
const CaptureSigil = "&"

// IsCapture reports whether name carries the capture sigil.
func IsCapture(name string) bool {
	return strings.HasPrefix(name, CaptureSigil)
}

// Capture holds what a capture reference and a capture call share.
type Capture struct {
	Name     string // name as written, e.g. &genreg.rx
	Slot     string // lookup key; width suffix stripped for registers
	Scope    CaptureScope
	Register Register // set for ScopeRegister
	Times    Times
}

// CaptureRef is the first occurrence of a capture name. It defines the group.
type CaptureRef struct {
	Capture
}

func (CaptureRef) patternNode() {}

// CaptureCall is a later occurrence of a capture name. It backreferences
// the group defined by the matching CaptureRef.
type CaptureCall struct {
	Capture
}

func (CaptureCall) patternNode() {}
