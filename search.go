package multisum

import (
	"context"
	"io"
	"iter"

	"github.com/hupe1980/multisum/report"
	"github.com/hupe1980/multisum/search"
)

// Multiset is one counted combination, yielded by QueryBuilder.Stream.
type Multiset struct {
	// Cardinality is the number of atoms, including repetition.
	Cardinality int

	// Values holds the atom values in canonical nondecreasing order.
	Values []float64
}

// Query starts a fluent query against the engine.
//
// Example:
//
//	res, err := eng.Query(400).Execute(ctx)
func (e *Engine) Query(q float64) *QueryBuilder {
	return &QueryBuilder{engine: e, query: q}
}

// QueryBuilder configures and runs a single query.
type QueryBuilder struct {
	engine     *Engine
	query      float64
	combWriter io.Writer
}

// Combinations additionally emits every counted multiset to w, one line of
// space-separated atom values in canonical order per multiset.
func (qb *QueryBuilder) Combinations(w io.Writer) *QueryBuilder {
	qb.combWriter = w
	return qb
}

// Execute runs the query and returns the per-cardinality counts.
func (qb *QueryBuilder) Execute(ctx context.Context) (*Result, error) {
	if err := qb.engine.guardClosed(); err != nil {
		return nil, err
	}

	tally := report.NewTally()
	var rep search.Reporter = tally

	var cw *report.CombinationWriter
	if qb.combWriter != nil {
		cw = report.NewCombinationWriter(tally, qb.engine.atoms, qb.combWriter)
		rep = cw
	}

	res, err := qb.engine.execute(ctx, qb.query, rep, tally)
	if err != nil {
		return nil, err
	}
	if cw != nil && cw.Err() != nil {
		return nil, cw.Err()
	}
	return res, nil
}

// Stream returns an iterator over the counted multisets in the order the
// driver finds them. Stopping the iteration stops the search.
//
// Example:
//
//	for ms, err := range eng.Query(400).Stream(ctx) {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    process(ms)
//	}
func (qb *QueryBuilder) Stream(ctx context.Context) iter.Seq2[Multiset, error] {
	return func(yield func(Multiset, error) bool) {
		if err := qb.engine.guardClosed(); err != nil {
			yield(Multiset{}, err)
			return
		}

		tally := report.NewTally()
		rep := &streamReporter{engine: qb.engine, tally: tally, yield: yield}

		if _, err := qb.engine.execute(ctx, qb.query, rep, tally); err != nil && !rep.stopped {
			yield(Multiset{}, err)
		}
	}
}

// streamReporter adapts the driver's reporter callback to an iterator
// yield.
type streamReporter struct {
	engine  *Engine
	tally   *report.Tally
	yield   func(Multiset, error) bool
	stopped bool
}

func (r *streamReporter) Match(cardinality int, indices []int32) bool {
	r.tally.Match(cardinality, indices)

	values := make([]float64, len(indices))
	for i, idx := range indices {
		values[i] = r.engine.atoms.At(int(idx))
	}
	if !r.yield(Multiset{Cardinality: cardinality, Values: values}, nil) {
		r.stopped = true
		return false
	}
	return true
}

func (r *streamReporter) WantCombinations() bool { return true }

func (e *Engine) guardClosed() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	return nil
}
