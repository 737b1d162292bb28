//go:build yara

package internal

import (
	"os"
	"time"

	yara "github.com/hillu/go-yara/v4"
)

// YaraGate selects the files worth disassembling with a YARA rule set.
type YaraGate struct {
	rules *yara.Rules
}

// NewYaraGate compiles yaraFile.
func NewYaraGate(yaraFile string) (*YaraGate, error) {
	compiler, err := yara.NewCompiler()
	if err != nil {
		return nil, err
	}

	f, err := os.Open(yaraFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := compiler.AddFile(f, ""); err != nil {
		return nil, err
	}

	rules, err := compiler.GetRules()
	if err != nil {
		return nil, err
	}
	return &YaraGate{rules: rules}, nil
}

// Allow reports whether any rule matches path.
func (g *YaraGate) Allow(path string) (bool, error) {
	var matches yara.MatchRules
	if err := g.rules.ScanFile(path, yara.ScanFlagsFastMode, 30*time.Second, &matches); err != nil {
		return false, err
	}
	return len(matches) > 0, nil
}
