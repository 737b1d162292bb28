// Package internal holds code shared by the jasm tools.
package internal

import (
	"github.com/retroenv/retrogolib/log"

	"github.com/sansecio/jasm/parser"
	"github.com/sansecio/jasm/scanner"
)

// CreateLogger creates a logger with the level selected by the flags.
func CreateLogger(debug, quiet bool) *log.Logger {
	cfg := log.DefaultConfig()
	if debug {
		cfg.Level = log.DebugLevel
	} else if quiet {
		cfg.Level = log.ErrorLevel
	}
	return log.NewWithConfig(cfg)
}

// LoadRule parses and compiles a pattern file. Parser and compiler warnings
// are logged.
func LoadRule(logger *log.Logger, patternFile string, macroFiles []string, opts scanner.CompileOptions) (*scanner.Rule, error) {
	p, err := parser.New()
	if err != nil {
		return nil, err
	}
	f, err := p.ParseFile(patternFile, macroFiles...)
	if err != nil {
		return nil, err
	}
	for _, w := range p.Warnings() {
		logger.Warn("Pattern file", log.String("file", patternFile), log.String("warning", w))
	}

	opts.Logger = logger
	rule, err := scanner.CompileWithOptions(f, opts)
	if err != nil {
		return nil, err
	}
	for _, w := range rule.Warnings() {
		logger.Warn("Compiler", log.String("file", patternFile), log.String("warning", w))
	}
	return rule, nil
}
