// Package search implements the bounded branch-and-bound enumeration that
// resolves multisets summing to a query value against a zeroboard.
//
// For each candidate cardinality ℓ, the driver fixes a nondecreasing prefix
// of ℓ−k atom indices, prunes whole sub-spaces with per-prefix minimum and
// maximum completion sums, and resolves the residual shortfall of every
// surviving prefix by a single zeroboard lookup. The suffix-first-index
// filter of the lookup guarantees each canonical multiset is counted exactly
// once.
package search

import (
	"context"

	"github.com/hupe1980/multisum/atomset"
	"github.com/hupe1980/multisum/quantize"
	"github.com/hupe1980/multisum/zeroboard"
)

// Reporter receives every counted multiset. Match returns false to stop the
// search early (mirroring iterator yield semantics). When WantCombinations
// reports false, Match is called with nil indices and only the cardinality
// is meaningful.
//
// The indices slice is reused between calls and must not be retained.
type Reporter interface {
	Match(cardinality int, indices []int32) bool
	WantCombinations() bool
}

// Plan describes one query execution. The engine resolves configuration
// into a plan; the driver only executes it.
type Plan struct {
	// Query is the target sum.
	Query float64

	// From and To bound the descending cardinality range resolved through
	// prefix enumeration (both inclusive, From ≥ To > board cardinality).
	// From < To means no prefix search.
	From, To int

	// Terminal performs the final residual check at ℓ = board cardinality
	// with no prefix filter.
	Terminal bool

	// Pairs runs the separate cardinality-2 scan.
	Pairs bool
}

// Driver runs plans against an atom set and a zeroboard. The board may be
// nil when a plan only requires the pair scan. A driver holds no per-query
// state and may be reused.
type Driver struct {
	atoms *atomset.Set
	board *zeroboard.Board
	prec  quantize.Precision
}

// NewDriver creates a driver over the given atom set and board.
func NewDriver(atoms *atomset.Set, board *zeroboard.Board, prec quantize.Precision) *Driver {
	return &Driver{
		atoms: atoms,
		board: board,
		prec:  prec,
	}
}

// Execute runs the plan, reporting every multiset whose sum equals the query
// under the quantized comparator. Cancellation is honored between
// cardinalities.
func (d *Driver) Execute(ctx context.Context, plan Plan, rep Reporter) error {
	stopped := false

	if plan.From >= plan.To {
		maxAtom := d.atoms.Max()
		step := d.prec.Step()
		for l := plan.From; l >= plan.To; l-- {
			if err := ctx.Err(); err != nil {
				return err
			}
			// No cardinality below this one can reach the query.
			if float64(l)*maxAtom < plan.Query-step {
				break
			}
			if !d.searchCardinality(l, plan.Query, rep) {
				stopped = true
				break
			}
		}
	}

	if plan.Terminal && !stopped {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.terminal(plan.Query, rep) {
			stopped = true
		}
	}

	if plan.Pairs && !stopped {
		if err := ctx.Err(); err != nil {
			return err
		}
		d.pairScan(plan.Query, rep)
	}

	return nil
}

// searchCardinality handles one cardinality ℓ above the board cardinality.
// It reports whether the search should continue.
func (d *Driver) searchCardinality(l int, q float64, rep Reporter) bool {
	n := d.atoms.Len()
	maxAtom := d.atoms.Max()
	minAtom := d.atoms.Min()
	combMax := float64(l) * maxAtom

	// Fast checks: when the all-maximum or all-minimum multiset hits the
	// query exactly, it is the only one this cardinality can contribute.
	if d.prec.SameSum(combMax, q) {
		return d.reportUniform(l, int32(n-1), rep)
	}
	if d.prec.SameSum(float64(l)*minAtom, q) {
		return d.reportUniform(l, 0, rep)
	}

	k := d.board.K()
	prefixLen := l - k
	prefix := make([]int32, prefixLen)

	// residualBase − Σ(max − a_{p_u}) over the prefix is the shortfall the
	// suffix must satisfy.
	residualBase := combMax - q

	// Bounds carry one bucket width of slack: a prefix within a bucket of
	// the query is resolved by the lookup's bucket comparison rather than
	// pruned on a raw float inequality. Slack only ever adds lookups.
	step := d.prec.Step()

	var descend func(depth int, start int32, sum, short float64) bool
	descend = func(depth int, start int32, sum, short float64) bool {
		rem := float64(l - depth - 1)
		for i := start; int(i) < n; i++ {
			v := d.atoms.At(int(i))
			s := sum + v

			// Smallest completion: fill every later position with this
			// atom. Monotone in i, so the whole candidate loop ends here.
			if s+v*rem > q+step {
				return true
			}

			// Largest completion: fill every later position with the
			// maximum atom.
			if s+maxAtom*rem < q-step {
				continue
			}

			prefix[depth] = i
			sh := short + (maxAtom - v)

			if depth == prefixLen-1 {
				if !d.lookup(l, residualBase-sh, prefix, rep) {
					return false
				}
			} else if !descend(depth+1, i, s, sh) {
				return false
			}
		}
		return true
	}

	return descend(0, 0, 0, 0)
}

// lookup resolves the residual of a full prefix against the board,
// reporting every suffix whose first index keeps the multiset canonical.
func (d *Driver) lookup(l int, residual float64, prefix []int32, rep Reporter) bool {
	minFirst := prefix[len(prefix)-1]

	if !rep.WantCombinations() {
		for range d.board.LookupFrom(residual, minFirst) {
			if !rep.Match(l, nil) {
				return false
			}
		}
		return true
	}

	indices := make([]int32, l)
	copy(indices, prefix)
	for e := range d.board.LookupFrom(residual, minFirst) {
		copy(indices[len(prefix):], e)
		if !rep.Match(l, indices) {
			return false
		}
	}
	return true
}

// terminal accounts for multisets whose entire structure is indexed in the
// board: a single residual check at ℓ = k with no prefix filter.
func (d *Driver) terminal(q float64, rep Reporter) bool {
	k := d.board.K()
	residual := float64(k)*d.atoms.Max() - q

	if !rep.WantCombinations() {
		for range d.board.Lookup(residual) {
			if !rep.Match(k, nil) {
				return false
			}
		}
		return true
	}

	indices := make([]int32, k)
	for e := range d.board.Lookup(residual) {
		copy(indices, e)
		if !rep.Match(k, indices) {
			return false
		}
	}
	return true
}

// pairScan resolves cardinality 2 by a doubly nested scan over atom pairs
// (i ≤ j), outside the zeroboard.
func (d *Driver) pairScan(q float64, rep Reporter) {
	n := d.atoms.Len()
	var indices []int32
	if rep.WantCombinations() {
		indices = make([]int32, 2)
	}

	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			if !d.prec.SameSum(d.atoms.At(i)+d.atoms.At(j), q) {
				continue
			}
			if indices != nil {
				indices[0], indices[1] = int32(i), int32(j)
			}
			if !rep.Match(2, indices) {
				return
			}
		}
	}
}

// reportUniform reports the single multiset made of one repeated atom.
// It returns false when the reporter stopped the search.
func (d *Driver) reportUniform(l int, idx int32, rep Reporter) bool {
	if !rep.WantCombinations() {
		return rep.Match(l, nil)
	}
	indices := make([]int32, l)
	for i := range indices {
		indices[i] = idx
	}
	return rep.Match(l, indices)
}
