package scanner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"

	"github.com/sansecio/jasm/ast"
	"github.com/sansecio/jasm/parser"
)

func compileRule(t *testing.T, src string, opts CompileOptions) *Rule {
	t.Helper()
	p, err := parser.New()
	if err != nil {
		t.Fatalf("parser.New() error = %v", err)
	}
	f, err := p.Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	rule, err := CompileWithOptions(f, opts)
	if err != nil {
		t.Fatalf("CompileWithOptions() error = %v", err)
	}
	return rule
}

func inst(addr, mnemonic string, operands ...string) ast.Instruction {
	return ast.Instruction{Addr: addr, Mnemonic: mnemonic, Operands: operands}
}

type sliceProducer []ast.Instruction

func (s sliceProducer) Produce(ctx context.Context, _ string, c ast.InstructionConsumer) error {
	for _, i := range s {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.ConsumeInstruction(i)
	}
	return nil
}

const pushRBP = `
pattern:
  - push: ["%rbp"]
`

var prologues = []ast.Instruction{
	inst("1000", "push", "%rbp"),
	inst("1001", "mov", "%rsp", "%rbp"),
	inst("1004", "ret"),
	inst("1010", "push", "%rbp"),
	inst("1011", "mov", "%rsp", "%rbp"),
}

func TestMatchModes(t *testing.T) {
	engines := []struct {
		name  string
		opts  CompileOptions
		label string
	}{
		{"re2", CompileOptions{}, "re2"},
		{"backtracking", CompileOptions{ForceBacktracking: true}, "regexp2"},
	}

	for _, e := range engines {
		t.Run(e.name, func(t *testing.T) {
			rule := compileRule(t, pushRBP, e.opts)
			assert.Equal(t, e.label, rule.Engine())

			res, err := rule.MatchInstructions(prologues, ScanOptions{Mode: AllFinds, Return: ReturnAddrs})
			assert.NoError(t, err)
			assert.True(t, res.Matched)
			assert.Equal(t, []string{"1000", "1010"}, res.Addrs)

			res, err = rule.MatchInstructions(prologues, ScanOptions{Mode: FirstFind, Return: ReturnAddrs})
			assert.NoError(t, err)
			assert.Equal(t, []string{"1000"}, res.Addrs)

			res, err = rule.MatchInstructions(prologues, ScanOptions{})
			assert.NoError(t, err)
			assert.True(t, res.Matched)
			assert.Len(t, res.Addrs, 0)
			assert.Equal(t, "", res.Corpus)
		})
	}
}

func TestMatchNoMatch(t *testing.T) {
	rule := compileRule(t, `
pattern:
  - pop: ["%rbp"]
`, CompileOptions{})

	res, err := rule.MatchInstructions(prologues, ScanOptions{Mode: AllFinds, Return: ReturnAddrs})
	assert.NoError(t, err)
	assert.False(t, res.Matched)
	assert.Len(t, res.Addrs, 0)
}

func TestMatchReturnCorpus(t *testing.T) {
	rule := compileRule(t, pushRBP, CompileOptions{})
	insts := []ast.Instruction{
		inst("1000", "push", "%rbp"),
		inst("1001", parser.MnemonicEmpty),
		inst("1002", "ret"),
	}

	res, err := rule.MatchInstructions(insts, ScanOptions{Return: ReturnCorpus})
	assert.NoError(t, err)
	assert.True(t, res.Matched)
	assert.Equal(t, "1000::push,%rbp,|1002::ret,|", res.Corpus)
	assert.Equal(t, 2, res.Profile.Instructions)
	assert.Equal(t, len(res.Corpus), res.Profile.CorpusBytes)
}

func TestMatchProducer(t *testing.T) {
	rule := compileRule(t, pushRBP, CompileOptions{})

	res, err := rule.Match(context.Background(), sliceProducer(prologues), "", ScanOptions{Mode: AllFinds, Return: ReturnAddrs})
	assert.NoError(t, err)
	assert.Equal(t, []string{"1000", "1010"}, res.Addrs)
	assert.Equal(t, 2, res.Profile.Matches)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = rule.Match(ctx, sliceProducer(prologues), "", ScanOptions{})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestMatchCaptures(t *testing.T) {
	rule := compileRule(t, `
pattern:
  - mov:
      - "&genreg.rx"
      - "%rbx"
  - push:
      - "&genreg.ex"
`, CompileOptions{})
	assert.Equal(t, "regexp2", rule.Engine())
	assert.Equal(t, []string{"&genreg"}, rule.Captures())

	hit := []ast.Instruction{inst("10", "mov", "%rcx", "%rbx"), inst("13", "push", "%ecx")}
	miss := []ast.Instruction{inst("10", "mov", "%rcx", "%rbx"), inst("13", "push", "%eax")}

	res, err := rule.MatchInstructions(hit, ScanOptions{Return: ReturnAddrs})
	assert.NoError(t, err)
	assert.Equal(t, []string{"10"}, res.Addrs)

	res, err = rule.MatchInstructions(miss, ScanOptions{})
	assert.NoError(t, err)
	assert.False(t, res.Matched)
}

func TestMatchValidAddr(t *testing.T) {
	rule := compileRule(t, `
pattern:
  - call: [valid_addr]
config:
  valid_addr_range:
    min: "0x1000"
    max: "0x2000"
`, CompileOptions{})

	insts := []ast.Instruction{
		inst("1000", "call", "*%rax"),
		inst("1005", "call", "3000"),
		inst("100a", "call", "1500"),
	}
	res, err := rule.MatchInstructions(insts, ScanOptions{Mode: AllFinds, Return: ReturnAddrs})
	assert.NoError(t, err)
	assert.Equal(t, []string{"100a"}, res.Addrs)

	res, err = rule.MatchInstructions(insts, ScanOptions{Return: ReturnCorpus})
	assert.NoError(t, err)
	assert.Equal(t, "1000::call,*%rax,|1005::call,3000,|100a::call,valid_addr,|", res.Corpus)
}

func TestMatchExtraObserver(t *testing.T) {
	rule := compileRule(t, pushRBP, CompileOptions{})
	dropPush := observerFunc(func(i ast.Instruction) (ast.Instruction, bool) {
		return i, i.Mnemonic != "push"
	})

	res, err := rule.MatchInstructions(prologues, ScanOptions{Observers: []ast.InstructionObserver{dropPush}})
	assert.NoError(t, err)
	assert.False(t, res.Matched)
}

type observerFunc func(ast.Instruction) (ast.Instruction, bool)

func (f observerFunc) ObserveInstruction(i ast.Instruction) (ast.Instruction, bool) {
	return f(i)
}

func TestPrefilter(t *testing.T) {
	rule := compileRule(t, `
pattern:
  - movabs:
      - "@any"
      - rax
  - call
`, CompileOptions{})
	assert.Equal(t, []string{"movabs", "rax", "call"}, rule.Atoms())

	insts := []ast.Instruction{inst("1", "mov", "0x1", "%rax"), inst("2", "call", "1000")}
	res, err := rule.MatchInstructions(insts, ScanOptions{})
	assert.NoError(t, err)
	assert.False(t, res.Matched)
	assert.False(t, res.Profile.PrefilterPassed)

	insts[0].Mnemonic = "movabs"
	res, err = rule.MatchInstructions(insts, ScanOptions{})
	assert.NoError(t, err)
	assert.True(t, res.Matched)
	assert.True(t, res.Profile.PrefilterPassed)
}

func TestPrefilterCandidates(t *testing.T) {
	rule := compileRule(t, "pattern:\n  - movabs: [rax]\n  - syscall\n", CompileOptions{})
	assert.True(t, rule.prefilter([]byte("1::syscall,|0::movabs,%rax,|")))
	assert.False(t, rule.prefilter([]byte("1::movabs,%rax,|")))
	assert.False(t, rule.prefilter(nil))
}

func TestStreamingConsumerUnsupported(t *testing.T) {
	rule := compileRule(t, pushRBP, CompileOptions{})
	_, err := rule.MatchInstructions(prologues, ScanOptions{Consumer: ConsumerStreaming})
	var unsupported *ast.UnsupportedFeatureError
	assert.True(t, errors.As(err, &unsupported))
}

func TestCompileErrors(t *testing.T) {
	p, err := parser.New()
	assert.NoError(t, err)
	f, err := p.Parse([]byte("pattern:\n  - $perm: [push, pop]\n"))
	assert.NoError(t, err)

	_, err = Compile(f)
	var unsupported *ast.UnsupportedFeatureError
	assert.True(t, errors.As(err, &unsupported))

	f.Config.Style = "masm"
	f.Pattern = []any{"ret"}
	_, err = Compile(f)
	assert.ErrorContains(t, err, "style must be")
}

func TestMatchTimeout(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("pattern:\n  - $and_any_order:\n")
	for i := 1; i <= 10; i++ {
		fmt.Fprintf(&sb, "      - $not: [marker%d]\n", i)
	}
	sb.WriteString("  - xyzzy\n")
	rule := compileRule(t, sb.String(), CompileOptions{})
	assert.Equal(t, "regexp2", rule.Engine())

	insts := make([]ast.Instruction, 2000)
	for i := range insts {
		insts[i] = inst(fmt.Sprintf("%x", 0x1000+i), "nop")
	}

	start := time.Now()
	_, err := rule.MatchInstructions(insts, ScanOptions{
		Timeout:          50 * time.Millisecond,
		DisablePrefilter: true,
	})
	elapsed := time.Since(start)

	assert.True(t, errors.Is(err, ErrTimeout))
	var timeoutErr *RegexTimeoutError
	assert.True(t, errors.As(err, &timeoutErr))
	assert.Equal(t, 50*time.Millisecond, timeoutErr.Timeout)
	assert.True(t, elapsed < 10*time.Second)
}

func TestMatchAllFindsTotalTimeout(t *testing.T) {
	rule := compileRule(t, pushRBP, CompileOptions{ForceBacktracking: true})

	const count = 20000
	insts := make([]ast.Instruction, count)
	for i := range insts {
		insts[i] = inst(fmt.Sprintf("%x", 0x1000+i), "push", "%rbp")
	}

	res, err := rule.MatchInstructions(insts, ScanOptions{
		Mode:    AllFinds,
		Return:  ReturnAddrs,
		Timeout: time.Millisecond,
	})
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.True(t, len(res.Addrs) < count)
}

func TestMatchedObserverLogs(t *testing.T) {
	o := NewMatchedObserver(log.NewTestLogger(t))
	o.RegexMatched("1000::push,%rbp,|")
	o.Finalize()
	assert.True(t, o.Matched)
	assert.Equal(t, []string{"1000::push,%rbp,|"}, o.Matches)
}

func TestEngineProfile(t *testing.T) {
	rule := compileRule(t, pushRBP, CompileOptions{})
	timings := rule.EngineProfile("1000::push,%rbp,|", time.Second)
	assert.Len(t, timings, 2)
	for _, tm := range timings {
		assert.NoError(t, tm.Err)
		assert.True(t, tm.Matched)
	}

	rule = compileRule(t, "pattern:\n  - push\n  - $not: [call]\n", CompileOptions{})
	timings = rule.EngineProfile("1::push,|2::ret,|", time.Second)
	assert.Equal(t, "regexp2", timings[0].Engine)
	assert.NoError(t, timings[0].Err)
	assert.Error(t, timings[1].Err)
}

func TestDefaultTimeout(t *testing.T) {
	assert.Equal(t, DefaultTimeout, ScanOptions{}.timeout())
	assert.Equal(t, time.Second, ScanOptions{Timeout: time.Second}.timeout())
}
