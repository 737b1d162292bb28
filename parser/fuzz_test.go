package parser

import (
	"strings"
	"testing"
)

func FuzzParse(f *testing.F) {
	seeds := []string{
		"pattern:\n  - ret\n",
		"pattern:\n  - mov: [rax, rbx]\n",
		"pattern:\n  - $and_any_order: [push, pop]\nconfig:\n  style: intel\n",
		"pattern:\n  - \"@m\"\nmacros:\n  - name: \"@m\"\n    pattern: nop\n",
		"pattern:\n  - mov:\n      - $deref:\n          main_reg: rax\n",
	}
	for _, s := range seeds {
		f.Add(s)
	}

	p, err := New()
	if err != nil {
		f.Fatal(err)
	}

	f.Fuzz(func(t *testing.T, input string) {
		p.Parse([]byte(input)) //nolint:errcheck
	})
}

func FuzzReadListing(f *testing.F) {
	f.Add("    1040:\t55                   \tpush   %rbp\n")
	f.Add("Disassembly of section .text:\n    1041:\tmov    %rsp,%rbp\n")
	f.Add("    1044:\tc3\tret\n    1045:\t(bad)\n")

	p, err := New()
	if err != nil {
		f.Fatal(err)
	}

	f.Fuzz(func(t *testing.T, input string) {
		var c collector
		p.ReadListing(strings.NewReader(input), nil, &c) //nolint:errcheck
	})
}
