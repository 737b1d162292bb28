package scanner

import (
	"errors"
	"fmt"
	"time"

	"github.com/coregx/ahocorasick"
	"github.com/dlclark/regexp2"
	"github.com/retroenv/retrogolib/log"
	regexp "github.com/wasilibs/go-re2"

	"github.com/sansecio/jasm/ast"
	"github.com/sansecio/jasm/compiler"
	"github.com/sansecio/jasm/parser"
)

// CompileOptions configures compilation behavior.
type CompileOptions struct {
	// MaxAnyOrderLiteral bounds permutation expansion of $and_any_order.
	// Zero selects compiler.DefaultMaxAnyOrderLiteral.
	MaxAnyOrderLiteral int

	// ForceBacktracking skips the RE2 fast path even when the regex
	// would allow it.
	ForceBacktracking bool

	// Logger receives debug output about compilation and scans.
	Logger *log.Logger
}

// Compile compiles a parsed pattern file into a Rule ready for scanning.
func Compile(f *ast.File) (*Rule, error) {
	return CompileWithOptions(f, CompileOptions{})
}

// CompileWithOptions compiles a parsed pattern file with the given options.
func CompileWithOptions(f *ast.File, opts CompileOptions) (*Rule, error) {
	if err := parser.ValidateConfig(f.Config); err != nil {
		return nil, err
	}

	copts := compiler.OptionsFromConfig(f.Config)
	copts.MaxAnyOrderLiteral = opts.MaxAnyOrderLiteral
	prog, err := compiler.Compile(f, copts)
	if err != nil {
		return nil, err
	}

	r := &Rule{
		program:     prog,
		config:      f.Config,
		logger:      opts.Logger,
		backtracker: make(map[time.Duration]*regexp2.Regexp),
	}
	if r.logger != nil {
		r.logger.Debug("Compiled pattern",
			log.String("regex", prog.Regex),
			log.Int("captures", len(prog.Captures)),
			log.Int("atoms", len(prog.Atoms)))
	}

	if rng := f.Config.ValidAddrRange; rng != nil {
		// ValidateConfig already checked both bounds.
		r.addrLo, _ = parser.ParseHex(rng.Min)
		r.addrHi, _ = parser.ParseHex(rng.Max)
		r.hasRange = true
	}

	if !prog.Backtracking && !opts.ForceBacktracking {
		re, err := regexp.Compile(prog.Regex)
		if err == nil {
			r.fast = re
		} else {
			r.warnings = append(r.warnings, fmt.Sprintf("RE2 rejected the pattern, using backtracking engine: %v", err))
		}
	}
	if r.fast == nil {
		if _, err := r.backtracking(DefaultTimeout); err != nil {
			return nil, fmt.Errorf("invalid regex: %w", err)
		}
	}

	if err := r.buildPrefilter(prog.Atoms); err != nil {
		r.warnings = append(r.warnings, err.Error())
	}
	return r, nil
}

// backtracking returns the regexp2 program for timeout, compiling it on
// first use. MatchTimeout lives on the compiled regex, so every distinct
// timeout gets its own copy.
func (r *Rule) backtracking(timeout time.Duration) (*regexp2.Regexp, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if re, ok := r.backtracker[timeout]; ok {
		return re, nil
	}
	re, err := regexp2.Compile(r.program.Regex, regexp2.None)
	if err != nil {
		return nil, err
	}
	re.MatchTimeout = timeout
	r.backtracker[timeout] = re
	return re, nil
}

func (r *Rule) buildPrefilter(atoms []string) error {
	if len(atoms) == 0 {
		return nil
	}
	builder := ahocorasick.NewBuilder()
	for _, a := range atoms {
		builder.AddPattern([]byte(a))
	}
	ac, err := builder.Build()
	if err != nil {
		return errors.Join(errors.New("prefilter disabled"), err)
	}
	r.matcher = ac
	r.atoms = atoms
	r.atomIdx = make(map[string]int, len(atoms))
	for i, a := range atoms {
		r.atomIdx[a] = i
	}
	return nil
}
