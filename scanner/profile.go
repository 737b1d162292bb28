package scanner

import (
	"sort"
	"time"

	"github.com/dlclark/regexp2"
	regexp "github.com/wasilibs/go-re2"
)

// Profile holds per-phase timings of one scan.
type Profile struct {
	Instructions    int
	CorpusBytes     int
	Corpus          time.Duration // consuming the stream
	Prefilter       time.Duration
	PrefilterPassed bool
	Regex           time.Duration
	Matches         int
}

// EngineTiming holds the timing of the rule's regex on one engine.
type EngineTiming struct {
	Engine   string
	Duration time.Duration
	Matched  bool
	Err      error // compile error or timeout
}

// EngineProfile runs the rule's regex once per engine over corpus and
// returns the timings, fastest first. Engines that cannot compile the
// regex are reported with Err set.
func (r *Rule) EngineProfile(corpus string, timeout time.Duration) []EngineTiming {
	timings := make([]EngineTiming, 0, 2)

	bt := EngineTiming{Engine: "regexp2"}
	if re, err := regexp2.Compile(r.program.Regex, regexp2.None); err != nil {
		bt.Err = err
	} else {
		re.MatchTimeout = timeout
		start := time.Now()
		bt.Matched, bt.Err = re.MatchString(corpus)
		bt.Duration = time.Since(start)
		if bt.Err != nil {
			bt.Err = &RegexTimeoutError{Timeout: timeout}
		}
	}
	timings = append(timings, bt)

	fast := EngineTiming{Engine: "re2"}
	if re, err := regexp.Compile(r.program.Regex); err != nil {
		fast.Err = err
	} else {
		start := time.Now()
		fast.Matched = re.MatchString(corpus)
		fast.Duration = time.Since(start)
	}
	timings = append(timings, fast)

	sort.SliceStable(timings, func(i, j int) bool {
		if (timings[i].Err == nil) != (timings[j].Err == nil) {
			return timings[i].Err == nil
		}
		return timings[i].Duration < timings[j].Duration
	})
	return timings
}
