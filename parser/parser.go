// Package parser reads pattern files and disassembler listings.
package parser

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/participle/v2"
	"gopkg.in/yaml.v3"

	"github.com/sansecio/jasm/ast"
)

// Parser parses pattern files and objdump instruction text.
type Parser struct {
	insn     *participle.Parser[instructionText]
	warnings []string
}

// New creates a new parser.
func New() (*Parser, error) {
	p, err := participle.Build[instructionText](
		participle.Lexer(instructionLexer),
		participle.Elide("Whitespace", "Comment", "Symbol"),
	)
	if err != nil {
		return nil, fmt.Errorf("building parser: %w", err)
	}
	return &Parser{insn: p}, nil
}

// Parse parses a pattern file from memory.
func (p *Parser) Parse(data []byte) (*ast.File, error) {
	p.warnings = nil
	return p.parse("", data)
}

// ParseFile parses a pattern file. Macros found in macroFiles are placed
// before the pattern file's own macros, in argument order.
func (p *Parser) ParseFile(filename string, macroFiles ...string) (*ast.File, error) {
	p.warnings = nil

	var macros []ast.MacroDef
	for _, mf := range macroFiles {
		ms, err := p.ParseMacroFile(mf)
		if err != nil {
			return nil, err
		}
		macros = append(macros, ms...)
	}

	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	f, err := p.parse(filename, content)
	if err != nil {
		return nil, err
	}
	f.Macros = append(macros, f.Macros...)
	return f, nil
}

// ParseMacroFile reads a file holding a macros section, or a bare list of
// macro definitions.
func (p *Parser) ParseMacroFile(filename string) ([]ast.MacroDef, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	root, err := decodeDocument(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	if root.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(root.Content); i += 2 {
			if root.Content[i].Value == "macros" {
				root = root.Content[i+1]
				break
			}
		}
	}
	ms, err := decodeMacros(root)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return ms, nil
}

// Warnings returns any warnings generated during the last parse.
func (p *Parser) Warnings() []string {
	return p.warnings
}

func (p *Parser) warnf(format string, args ...any) {
	p.warnings = append(p.warnings, fmt.Sprintf(format, args...))
}

func (p *Parser) parse(filename string, data []byte) (*ast.File, error) {
	root, err := decodeDocument(data)
	if err != nil {
		return nil, withFile(filename, err)
	}
	if root.Kind != yaml.MappingNode {
		return nil, withFile(filename, fmt.Errorf("line %d: pattern file must be a mapping", root.Line))
	}

	f := &ast.File{}
	seenPattern := false
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		switch key.Value {
		case "pattern":
			v, err := toValue(val)
			if err != nil {
				return nil, withFile(filename, err)
			}
			list, ok := v.([]any)
			if !ok {
				return nil, withFile(filename, fmt.Errorf("line %d: pattern must be a sequence", val.Line))
			}
			f.Pattern = list
			seenPattern = true
		case "macros":
			ms, err := decodeMacros(val)
			if err != nil {
				return nil, withFile(filename, err)
			}
			f.Macros = append(f.Macros, ms...)
		case "config":
			cfg, err := p.decodeConfig(val)
			if err != nil {
				return nil, withFile(filename, err)
			}
			f.Config = cfg
		default:
			p.warnf("line %d: unknown section %q ignored", key.Line, key.Value)
		}
	}
	if !seenPattern || len(f.Pattern) == 0 {
		return nil, withFile(filename, &ast.PatternSpecError{Msg: "pattern section is missing or empty"})
	}
	return f, nil
}

func (p *Parser) decodeConfig(n *yaml.Node) (ast.Config, error) {
	var cfg ast.Config
	if n.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(n.Content); i += 2 {
			switch k := n.Content[i]; k.Value {
			case "mnemonics-full-match", "operands-full-match", "style", "valid_addr_range", "sections":
			default:
				p.warnf("line %d: unknown config key %q ignored", k.Line, k.Value)
			}
		}
	}
	if err := n.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := ValidateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ValidateConfig reports every invalid value in cfg.
func ValidateConfig(cfg ast.Config) error {
	var errs []error
	switch cfg.Style {
	case "", ast.StyleATT, ast.StyleIntel:
	default:
		errs = append(errs, fmt.Errorf("config: style must be %q or %q, got %q", ast.StyleATT, ast.StyleIntel, cfg.Style))
	}
	if r := cfg.ValidAddrRange; r != nil {
		lo, errLo := ParseHex(r.Min)
		hi, errHi := ParseHex(r.Max)
		switch {
		case errLo != nil:
			errs = append(errs, fmt.Errorf("config: valid_addr_range min: %w", errLo))
		case errHi != nil:
			errs = append(errs, fmt.Errorf("config: valid_addr_range max: %w", errHi))
		case lo > hi:
			errs = append(errs, fmt.Errorf("config: valid_addr_range min %s is above max %s", r.Min, r.Max))
		}
	}
	for _, s := range cfg.Sections {
		if strings.TrimSpace(s) == "" {
			errs = append(errs, errors.New("config: empty section name"))
		}
	}
	return errors.Join(errs...)
}

func withFile(filename string, err error) error {
	if filename == "" {
		return err
	}
	return fmt.Errorf("%s: %w", filename, err)
}
