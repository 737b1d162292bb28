package compiler

import (
	"fmt"
	"strings"

	"github.com/sansecio/jasm/ast"
)

// registerCore is the part of a register name a capture stores. Width
// prefixes and suffixes around it are re-synthesised at every use, so that
// a group captured as rax can be recalled as eax or al.
var registerCore = map[ast.RegisterFamily]string{
	ast.GenReg:   `[abcd]`,
	ast.IndReg:   `[sd]`,
	ast.StackReg: `sp`,
	ast.BaseReg:  `bp`,
}

// registerForms maps a width to the name template around the core (%s).
var registerForms = map[ast.RegisterFamily]map[ast.RegisterWidth]string{
	ast.GenReg: {
		ast.WidthAny: `[re]?%s[xhl]`,
		ast.Width64:  `r%sx`,
		ast.Width32:  `e%sx`,
		ast.Width16:  `%sx`,
		ast.Width8H:  `%sh`,
		ast.Width8L:  `%sl`,
	},
	ast.IndReg: {
		ast.WidthAny: `[re]?%sil?`,
		ast.Width64:  `r%si`,
		ast.Width32:  `e%si`,
		ast.Width16:  `%si`,
		ast.Width8L:  `%sil`,
	},
	ast.StackReg: {
		ast.WidthAny: `[re]?%sl?`,
		ast.Width64:  `r%s`,
		ast.Width32:  `e%s`,
		ast.Width16:  `%s`,
		ast.Width8L:  `%sl`,
	},
	ast.BaseReg: {
		ast.WidthAny: `[re]?%sl?`,
		ast.Width64:  `r%s`,
		ast.Width32:  `e%s`,
		ast.Width16:  `%s`,
		ast.Width8L:  `%sl`,
	},
}

// parseRegister recognises register family captures such as &genreg.ex.
// The returned slot is the name without its width suffix.
func parseRegister(name string) (reg ast.Register, slot string, ok bool, err error) {
	for _, fam := range ast.RegisterFamilies {
		if !strings.HasPrefix(name, ast.CaptureSigil+string(fam)) {
			continue
		}
		reg = ast.Register{Family: fam, Width: ast.WidthAny}
		slot = name
		for _, w := range ast.RegisterWidths {
			if strings.HasSuffix(name, string(w)) {
				reg.Width = w
				slot = strings.TrimSuffix(name, string(w))
				break
			}
		}
		if _, valid := registerForms[fam][reg.Width]; !valid {
			return reg, slot, true, ast.SpecErrorf(name, "register family %s has no %s form", fam, reg.Width)
		}
		return reg, slot, true, nil
	}
	return reg, "", false, nil
}

// registerRef emits the defining group for a register capture.
func registerRef(reg ast.Register, index int) string {
	core := fmt.Sprintf("(?<%d>%s)", index, registerCore[reg.Family])
	return `%?` + fmt.Sprintf(registerForms[reg.Family][reg.Width], core) + `,?`
}

// registerCall emits a backreference rendered at the width requested here.
func registerCall(reg ast.Register, index int) string {
	core := fmt.Sprintf(`\%d`, index)
	return `%?` + fmt.Sprintf(registerForms[reg.Family][reg.Width], core) + `,?`
}
