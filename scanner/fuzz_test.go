package scanner

import (
	"testing"

	"github.com/sansecio/jasm/parser"
)

func FuzzCompile(f *testing.F) {
	seeds := []string{
		"pattern:\n  - ret\n",
		"pattern:\n  - mov: [rax, rbx]\n",
		"pattern:\n  - $or: [call, jmp]\n  - $not: [ret]\n",
		"pattern:\n  - $and_any_order: [push, pop, nop]\n",
		"pattern:\n  - mov: [\"&genreg.rx\", \"&genreg.ex\"]\n",
		"pattern:\n  - lea:\n      - $deref:\n          main_reg: rax\n          constant_offset: 8\n",
		"pattern:\n  - nop:\n      times: {min: 0, max: 3}\n",
	}
	for _, s := range seeds {
		f.Add(s)
	}

	p, err := parser.New()
	if err != nil {
		f.Fatal(err)
	}

	f.Fuzz(func(t *testing.T, input string) {
		file, err := p.Parse([]byte(input))
		if err != nil {
			return
		}
		Compile(file) //nolint:errcheck
	})
}
