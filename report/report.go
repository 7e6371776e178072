// Package report aggregates and emits search results: per-cardinality
// counters and optional line-oriented emission of the counted multisets.
//
// No deduplication happens here; the search driver's canonical-split
// invariant is what guarantees each multiset arrives exactly once.
package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/hupe1980/multisum/atomset"
)

// CardinalityCount is one line of the per-cardinality breakdown.
type CardinalityCount struct {
	Cardinality int
	Count       uint64
}

// Tally counts matches per cardinality. It implements search.Reporter.
// A Tally is not safe for concurrent use; each query gets its own.
type Tally struct {
	counts map[int]uint64
	total  uint64
}

// NewTally creates an empty tally.
func NewTally() *Tally {
	return &Tally{counts: make(map[int]uint64)}
}

// Match implements search.Reporter.
func (t *Tally) Match(cardinality int, _ []int32) bool {
	t.counts[cardinality]++
	t.total++
	return true
}

// WantCombinations implements search.Reporter.
func (t *Tally) WantCombinations() bool { return false }

// Count returns the number of matches at the given cardinality.
func (t *Tally) Count(cardinality int) uint64 { return t.counts[cardinality] }

// Total returns the number of matches across all cardinalities.
func (t *Tally) Total() uint64 { return t.total }

// Breakdown returns the nonzero per-cardinality counts in descending
// cardinality order, matching the search order of the driver.
func (t *Tally) Breakdown() []CardinalityCount {
	out := make([]CardinalityCount, 0, len(t.counts))
	for card, count := range t.counts {
		out = append(out, CardinalityCount{Cardinality: card, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cardinality > out[j].Cardinality })
	return out
}

// WriteBreakdown writes one `<cardinality>\t<count>` line per nonzero
// cardinality followed by the total footer.
func (t *Tally) WriteBreakdown(w io.Writer) error {
	for _, cc := range t.Breakdown() {
		if _, err := fmt.Fprintf(w, "%d\t%d\n", cc.Cardinality, cc.Count); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "Total results: %d\n", t.Total())
	return err
}

// CombinationWriter tallies matches and additionally writes each counted
// multiset as one line of space-separated atom values in canonical order.
// It implements search.Reporter.
type CombinationWriter struct {
	tally *Tally
	atoms *atomset.Set
	w     io.Writer
	err   error
	line  strings.Builder
}

// NewCombinationWriter wraps a tally with multiset emission to w.
func NewCombinationWriter(tally *Tally, atoms *atomset.Set, w io.Writer) *CombinationWriter {
	return &CombinationWriter{
		tally: tally,
		atoms: atoms,
		w:     w,
	}
}

// Match implements search.Reporter. A write failure stops the search; the
// error is available via Err.
func (cw *CombinationWriter) Match(cardinality int, indices []int32) bool {
	cw.tally.Match(cardinality, indices)

	cw.line.Reset()
	for i, idx := range indices {
		if i > 0 {
			cw.line.WriteByte(' ')
		}
		cw.line.WriteString(strconv.FormatFloat(cw.atoms.At(int(idx)), 'f', -1, 64))
	}
	cw.line.WriteByte('\n')

	if _, err := io.WriteString(cw.w, cw.line.String()); err != nil {
		cw.err = err
		return false
	}
	return true
}

// WantCombinations implements search.Reporter.
func (cw *CombinationWriter) WantCombinations() bool { return true }

// Err returns the first write error, if any.
func (cw *CombinationWriter) Err() error { return cw.err }
