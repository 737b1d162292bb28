package scanner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/retroenv/retrogolib/log"

	"github.com/sansecio/jasm/ast"
)

// ErrTimeout is matched by errors.Is for every RegexTimeoutError.
var ErrTimeout = errors.New("regex timeout")

// RegexTimeoutError reports a search that exceeded its budget. The pattern
// may or may not match; callers can retry with a larger budget.
type RegexTimeoutError struct {
	Timeout time.Duration
}

func (e *RegexTimeoutError) Error() string {
	return fmt.Sprintf("no match found within %s", e.Timeout)
}

// Is reports whether target is ErrTimeout.
func (e *RegexTimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// ScanOptions controls a single scan.
type ScanOptions struct {
	Mode      SearchMode
	Return    ReturnMode
	Consumer  ConsumerType
	Timeout   time.Duration // zero means DefaultTimeout
	Observers []ast.InstructionObserver

	// DisablePrefilter always runs the regex, even when a required
	// literal is missing from the corpus.
	DisablePrefilter bool
}

func (o ScanOptions) timeout() time.Duration {
	if o.Timeout <= 0 {
		return DefaultTimeout
	}
	return o.Timeout
}

func (o ScanOptions) validate() error {
	if o.Consumer == ConsumerStreaming {
		return &ast.UnsupportedFeatureError{Feature: "streaming consumer"}
	}
	return nil
}

// Producer feeds the instructions of path into a consumer.
type Producer interface {
	Produce(ctx context.Context, path string, c ast.InstructionConsumer) error
}

// Consumer builds the corpus from an instruction stream and searches it
// once the stream ends.
type Consumer struct {
	rule      *Rule
	opts      ScanOptions
	sink      MatchSink
	observers []ast.InstructionObserver
	corpus    strings.Builder
	count     int
	profile   Profile
	started   time.Time
}

// NewConsumer returns a consumer reporting to sink. Empty instructions are
// always dropped; the valid address observer is added when the pattern file
// configures a range; opts.Observers run last.
func (r *Rule) NewConsumer(opts ScanOptions, sink MatchSink) *Consumer {
	c := &Consumer{rule: r, opts: opts, sink: sink, started: time.Now()}
	c.observers = append(c.observers, RemoveEmptyInstructions{})
	if r.hasRange {
		c.observers = append(c.observers, ValidAddrObserver{Min: r.addrLo, Max: r.addrHi})
	}
	c.observers = append(c.observers, opts.Observers...)
	return c
}

// AddObserver appends an observer to the chain.
func (c *Consumer) AddObserver(o ast.InstructionObserver) {
	c.observers = append(c.observers, o)
}

// ConsumeInstruction implements ast.InstructionConsumer.
func (c *Consumer) ConsumeInstruction(inst ast.Instruction) {
	for _, o := range c.observers {
		var keep bool
		if inst, keep = o.ObserveInstruction(inst); !keep {
			return
		}
	}
	inst.AppendTo(&c.corpus)
	c.count++
}

// Corpus returns the corpus built so far.
func (c *Consumer) Corpus() string {
	return c.corpus.String()
}

// Profile returns timings of the finished scan.
func (c *Consumer) Profile() Profile {
	return c.profile
}

// Finalize searches the corpus, reports matches to the sink and finalizes
// it. A *RegexTimeoutError is returned when the search ran out of time; the
// sink is finalized in that case too.
func (c *Consumer) Finalize() error {
	defer c.sink.Finalize()
	if err := c.opts.validate(); err != nil {
		return err
	}

	corpus := c.corpus.String()
	c.profile.Instructions = c.count
	c.profile.CorpusBytes = len(corpus)
	c.profile.Corpus = time.Since(c.started)
	if rec, ok := c.sink.(corpusRecorder); ok {
		rec.setCorpus(corpus)
	}

	start := time.Now()
	candidate := c.opts.DisablePrefilter || c.rule.prefilter([]byte(corpus))
	c.profile.Prefilter = time.Since(start)
	c.profile.PrefilterPassed = candidate
	if !candidate {
		c.debug("Prefilter rejected corpus")
		return nil
	}

	start = time.Now()
	matches, err := c.rule.search(corpus, c.opts.Mode, c.opts.timeout())
	c.profile.Regex = time.Since(start)
	c.profile.Matches = len(matches)
	for _, m := range matches {
		if c.opts.Return == ReturnAddrs {
			c.sink.RegexMatched(addrOf(m))
		} else {
			c.sink.RegexMatched(m)
		}
	}
	if err != nil && c.rule.logger != nil {
		c.rule.logger.Debug("Regex timeout", log.String("timeout", c.opts.timeout().String()))
	}
	return err
}

func (c *Consumer) debug(msg string) {
	if c.rule.logger != nil {
		c.rule.logger.Debug(msg)
	}
}

// Match runs producer over path and returns the result in the shape
// selected by opts.Return.
func (r *Rule) Match(ctx context.Context, producer Producer, path string, opts ScanOptions) (Result, error) {
	if err := opts.validate(); err != nil {
		return Result{}, err
	}
	sink := NewMatchedObserver(nil)
	c := r.NewConsumer(opts, sink)
	if err := producer.Produce(ctx, path, c); err != nil {
		return Result{}, err
	}
	err := c.Finalize()
	res := shape(sink, opts.Return)
	res.Profile = c.Profile()
	return res, err
}

// MatchInstructions searches an in-memory instruction stream.
func (r *Rule) MatchInstructions(insts []ast.Instruction, opts ScanOptions) (Result, error) {
	if err := opts.validate(); err != nil {
		return Result{}, err
	}
	sink := NewMatchedObserver(nil)
	c := r.NewConsumer(opts, sink)
	for _, inst := range insts {
		c.ConsumeInstruction(inst)
	}
	err := c.Finalize()
	res := shape(sink, opts.Return)
	res.Profile = c.Profile()
	return res, err
}

func shape(o *MatchedObserver, mode ReturnMode) Result {
	res := Result{Matched: o.Matched}
	switch mode {
	case ReturnAddrs:
		res.Addrs = o.Matches
	case ReturnCorpus:
		res.Corpus = o.Corpus
	}
	return res
}

// search runs the regex over corpus. timeout bounds the whole search, not
// each match. Matches found before a timeout are returned together with the
// timeout error.
func (r *Rule) search(corpus string, mode SearchMode, timeout time.Duration) ([]string, error) {
	if r.fast != nil {
		return r.searchRE2(corpus, mode, timeout)
	}
	re, err := r.backtracking(timeout)
	if err != nil {
		return nil, err
	}

	// MatchTimeout restarts with every call, so all finds also check a
	// deadline for the whole iteration.
	deadline := time.Now().Add(timeout)
	var matches []string
	m, err := re.FindStringMatch(corpus)
	for err == nil && m != nil {
		matches = append(matches, m.String())
		if mode == FirstFind {
			break
		}
		if time.Now().After(deadline) {
			return matches, &RegexTimeoutError{Timeout: timeout}
		}
		m, err = re.FindNextMatch(m)
	}
	if err != nil {
		// regexp2 only fails a match when MatchTimeout expires.
		return matches, &RegexTimeoutError{Timeout: timeout}
	}
	return matches, nil
}

// searchRE2 runs the linear-time engine. It cannot be interrupted, so the
// search runs in its own goroutine and is abandoned on timeout.
func (r *Rule) searchRE2(corpus string, mode SearchMode, timeout time.Duration) ([]string, error) {
	done := make(chan []string, 1)
	go func() {
		var out []string
		if mode == FirstFind {
			if loc := r.fast.FindStringIndex(corpus); loc != nil {
				out = append(out, corpus[loc[0]:loc[1]])
			}
		} else {
			for _, loc := range r.fast.FindAllStringIndex(corpus, -1) {
				out = append(out, corpus[loc[0]:loc[1]])
			}
		}
		done <- out
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case out := <-done:
		return out, nil
	case <-timer.C:
		return nil, &RegexTimeoutError{Timeout: timeout}
	}
}
