package game

import (
	"context"
	"time"

	"golang.org/x/exp/slices"
)

const DefaultStepDelay = 400 * time.Millisecond

// StepKind represents one unit of the search animation protocol
type StepKind string

const (
	StepHighlightStart StepKind = "highlight_start"
	StepHighlightEnd   StepKind = "highlight_end"
	StepFound          StepKind = "found"
	StepNotFound       StepKind = "not_found"
)

// Step is a transient search event. Index is -1 for StepNotFound.
type Step struct {
	Kind   StepKind
	Index  int
	Window []int
	Match  bool
}

// Indices returns the sequence positions covered by the step's window.
func (s Step) Indices() []int {
	out := make([]int, len(s.Window))
	for j := range out {
		out[j] = s.Index + j
	}
	return out
}

// Source is the read-only view of a sequence the engine scans.
type Source interface {
	Slice(start, n int) ([]int, error)
}

type SearchResult struct {
	Found   bool
	Index   int
	Offsets int
}

// SearchEngine runs the animated left-to-right pattern scan
type SearchEngine struct {
	Delay time.Duration
}

func NewSearchEngine(delay time.Duration) *SearchEngine {
	return &SearchEngine{Delay: delay}
}

// Run scans src for pattern, one start index at a time. The window for index i
// is read before the delay and compared after it; the source length is read
// again for every index. emit returning false abandons the scan with
// ErrSearchStale, and a cancelled ctx ends it with ctx.Err().
func (e *SearchEngine) Run(ctx context.Context, src Source, pattern []int, emit func(Step) bool) (SearchResult, error) {
	if len(pattern) == 0 {
		return SearchResult{Index: -1}, ErrInvalidPattern
	}

	res := SearchResult{Index: -1}
	for i := 0; ; i++ {
		window, err := src.Slice(i, len(pattern))
		if err != nil {
			break
		}
		res.Offsets++

		if !emit(Step{Kind: StepHighlightStart, Index: i, Window: window}) {
			return res, ErrSearchStale
		}
		if err := e.wait(ctx); err != nil {
			return res, err
		}
		match := slices.Equal(window, pattern)
		if !emit(Step{Kind: StepHighlightEnd, Index: i, Window: window, Match: match}) {
			return res, ErrSearchStale
		}

		if match {
			res.Found, res.Index = true, i
			if !emit(Step{Kind: StepFound, Index: i, Window: window, Match: true}) {
				return res, ErrSearchStale
			}
			return res, nil
		}
	}

	if !emit(Step{Kind: StepNotFound, Index: -1}) {
		return res, ErrSearchStale
	}
	return res, nil
}

func (e *SearchEngine) wait(ctx context.Context) error {
	if e.Delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(e.Delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
