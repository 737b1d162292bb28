package ast

// RegisterFamily is one of the register classes a capture can bind.
type RegisterFamily string

const (
	GenReg   RegisterFamily = "genreg"   // a, b, c, d
	IndReg   RegisterFamily = "indreg"   // s, d (si, di)
	StackReg RegisterFamily = "stackreg" // sp
	BaseReg  RegisterFamily = "basereg"  // bp
)

// RegisterFamilies lists the families in lookup order.
var RegisterFamilies = []RegisterFamily{GenReg, IndReg, StackReg, BaseReg}

// RegisterWidth is the access width requested by a name suffix.
type RegisterWidth string

const (
	WidthAny RegisterWidth = ""    // no suffix, any width
	Width64  RegisterWidth = ".rx" // rax
	Width32  RegisterWidth = ".ex" // eax
	Width16  RegisterWidth = ".x"  // ax
	Width8H  RegisterWidth = ".h"  // ah
	Width8L  RegisterWidth = ".l"  // al
)

// RegisterWidths lists the suffixes, longest first.
var RegisterWidths = []RegisterWidth{Width64, Width32, Width16, Width8H, Width8L}

// Register describes a register capture.
type Register struct {
	Family RegisterFamily
	Width  RegisterWidth
}
