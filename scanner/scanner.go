// Package scanner runs compiled patterns over instruction streams.
package scanner

import (
	"strings"
	"sync"
	"time"

	"github.com/coregx/ahocorasick"
	"github.com/dlclark/regexp2"
	"github.com/retroenv/retrogolib/log"
	regexp "github.com/wasilibs/go-re2"

	"github.com/sansecio/jasm/ast"
	"github.com/sansecio/jasm/compiler"
)

// DefaultTimeout bounds a single regex search when ScanOptions.Timeout is
// zero.
const DefaultTimeout = 60 * time.Second

// SearchMode selects how many matches a search reports.
type SearchMode int

const (
	FirstFind SearchMode = iota // stop at the first match
	AllFinds                    // every non-overlapping match
)

// ReturnMode selects the shape of a Result.
type ReturnMode int

const (
	ReturnBool   ReturnMode = iota // Matched only
	ReturnAddrs                    // Matched and the address of every match
	ReturnCorpus                   // the corpus the regex ran against
)

// ConsumerType selects how the corpus is searched.
type ConsumerType int

const (
	// ConsumerComplete assembles the whole corpus before searching.
	ConsumerComplete ConsumerType = iota
	// ConsumerStreaming is reserved and not supported.
	ConsumerStreaming
)

// MatchSink is the interface for receiving match notifications.
type MatchSink interface {
	RegexMatched(match string)
	Finalize()
}

// MatchedObserver collects matches and implements MatchSink.
type MatchedObserver struct {
	Matched bool
	Matches []string
	Corpus  string

	logger *log.Logger
}

// NewMatchedObserver returns a sink that also logs every match when logger
// is not nil.
func NewMatchedObserver(logger *log.Logger) *MatchedObserver {
	return &MatchedObserver{logger: logger}
}

// RegexMatched implements MatchSink.
func (o *MatchedObserver) RegexMatched(match string) {
	o.Matched = true
	o.Matches = append(o.Matches, match)
	if o.logger != nil {
		o.logger.Info("Matched", log.String("match", match))
	}
}

// Finalize implements MatchSink.
func (o *MatchedObserver) Finalize() {
	if o.logger != nil && !o.Matched {
		o.logger.Info("Pattern not found")
	}
}

func (o *MatchedObserver) setCorpus(corpus string) {
	o.Corpus = corpus
}

// corpusRecorder is implemented by sinks that keep the searched corpus.
type corpusRecorder interface {
	setCorpus(corpus string)
}

// Result is what Match returns. Fields beyond Matched are filled according
// to the ReturnMode.
type Result struct {
	Matched bool
	Addrs   []string
	Corpus  string
	Profile Profile
}

// Rule holds a compiled pattern ready for scanning. A Rule is safe for
// concurrent use.
type Rule struct {
	program *compiler.Program
	config  ast.Config
	logger  *log.Logger

	fast *regexp.Regexp // RE2 fast path, nil when backtracking is required

	mu          sync.Mutex
	backtracker map[time.Duration]*regexp2.Regexp

	atoms    []string
	atomIdx  map[string]int
	matcher  *ahocorasick.Automaton
	addrLo   uint64
	addrHi   uint64
	hasRange bool

	warnings []string
}

// Warnings returns any warnings generated during compilation.
func (r *Rule) Warnings() []string {
	return r.warnings
}

// Regex returns the generated regular expression.
func (r *Rule) Regex() string {
	return r.program.Regex
}

// Captures returns the capture group names in index order.
func (r *Rule) Captures() []string {
	return r.program.Captures
}

// Atoms returns the literals used to prefilter a corpus.
func (r *Rule) Atoms() []string {
	return r.atoms
}

// Config returns the pattern file's configuration.
func (r *Rule) Config() ast.Config {
	return r.config
}

// Engine names the regex engine the rule runs on.
func (r *Rule) Engine() string {
	if r.fast != nil {
		return "re2"
	}
	return "regexp2"
}

// addrOf returns the address of a corpus match: the text before the first
// address separator.
func addrOf(match string) string {
	addr, _, _ := strings.Cut(match, ast.AddrSeparator)
	return addr
}
