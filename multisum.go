package multisum

import (
	"context"
	"math"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/multisum/atomset"
	"github.com/hupe1980/multisum/quantize"
	"github.com/hupe1980/multisum/report"
	"github.com/hupe1980/multisum/search"
	"github.com/hupe1980/multisum/zeroboard"
)

// Engine orchestrates the two-phase computation: it owns the atom set and
// the zeroboard lifecycle, and drives the bounded search for each query.
//
// An engine is safe for concurrent queries: boards are built under a lock
// and are immutable once built.
type Engine struct {
	atoms   *atomset.Set
	prec    quantize.Precision
	epsilon float64

	kMin, kMax, kFixed, boardK int
	maxEntries                 uint64

	logger  *Logger
	metrics MetricsCollector

	mu     sync.Mutex
	boards map[int]*zeroboard.Board
	closed bool
}

// Result is the outcome of one query.
type Result struct {
	// Query is the target sum.
	Query float64

	// Cardinalities holds the nonzero per-cardinality counts in descending
	// cardinality order.
	Cardinalities []report.CardinalityCount

	// Total is the number of multisets summing to the query.
	Total uint64

	// BuildTime is the time spent building the zeroboard for this query.
	// Zero when a cached board was reused.
	BuildTime time.Duration

	// QueryTime is the time spent in the search driver.
	QueryTime time.Duration
}

// Atoms returns the normalized atom values in ascending order.
func (e *Engine) Atoms() []float64 { return e.atoms.Values() }

// Precision returns the engine's quantization.
func (e *Engine) Precision() quantize.Precision { return e.prec }

// plan resolves configuration and query into a driver plan and the board
// cardinality it requires (0 when no board is needed).
func (e *Engine) plan(ctx context.Context, q float64) (search.Plan, int, error) {
	minAtom := e.atoms.Min()
	maxAtom := e.atoms.Max()

	if math.IsInf(q, 0) || (!(q >= minAtom) && !e.prec.SameSum(q, minAtom)) {
		return search.Plan{}, 0, &QueryBelowMinimumError{Query: q, Min: minAtom}
	}

	// Largest cardinality that can still reach the query with the smallest
	// atom, with one bucket of slack against float division.
	lcap := int(q / minAtom)
	if float64(lcap+1)*minAtom <= q+e.prec.Step() {
		lcap++
	}

	if err := e.prec.Guard(float64(lcap) * maxAtom); err != nil {
		return search.Plan{}, 0, err
	}

	kmax := lcap
	if e.kMax != 0 && e.kMax < kmax {
		kmax = e.kMax
	}

	plan := search.Plan{Query: q, From: 0, To: 1}

	if e.kFixed != 0 {
		if e.kFixed > kmax {
			// The fixed cardinality cannot reach the query; empty result.
			return plan, 0, nil
		}
		if e.kFixed == 2 {
			plan.Pairs = true
			return plan, 0, nil
		}
		bk := e.resolveBoardK(ctx, q, e.kFixed)
		if bk == e.kFixed {
			plan.Terminal = true
		} else {
			plan.From, plan.To = e.kFixed, e.kFixed
		}
		return plan, bk, nil
	}

	if kmax < e.kMin {
		return plan, 0, nil
	}

	plan.Pairs = e.kMin == 2 && kmax >= 2

	if kmax < 3 {
		return plan, 0, nil
	}

	// The resolved board cardinality is always >= k_min, so the terminal
	// residual check is always reportable.
	bk := e.resolveBoardK(ctx, q, kmax)
	plan.From = kmax
	plan.To = bk + 1
	plan.Terminal = true
	return plan, bk, nil
}

// resolveBoardK picks the zeroboard cardinality for a query: the configured
// value, or ⌊q/max⌋ clamped into [max(k_min, 3), limit]. A configured value
// above the limit is clamped with a warning; the board would index cardinalities
// the query can never search.
func (e *Engine) resolveBoardK(ctx context.Context, q float64, limit int) int {
	bk := e.boardK
	if bk == 0 {
		bk = int(q / e.atoms.Max())
		if bk < 3 {
			bk = 3
		}
		if bk < e.kMin {
			bk = e.kMin
		}
	}
	if bk > limit {
		e.logger.LogConfigWarning(ctx, "board cardinality clamped to the searchable maximum",
			"k_zb", bk,
			"max", limit,
		)
		bk = limit
	}
	return bk
}

// board returns the cached board for cardinality k, building it on first
// use. The lock is held for the whole build so a board is never built twice.
func (e *Engine) board(ctx context.Context, k int) (*zeroboard.Board, time.Duration, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, 0, ErrClosed
	}
	if b, ok := e.boards[k]; ok {
		return b, 0, nil
	}

	start := time.Now()
	b, err := zeroboard.Build(e.atoms, k, e.prec, func(o *zeroboard.BuildOptions) {
		o.MaxEntries = e.maxEntries
	})
	duration := time.Since(start)

	entries := 0
	if b != nil {
		entries = b.EntriesCount()
	}
	e.metrics.RecordBuild(entries, duration, err)
	e.logger.LogBuild(ctx, k, entries, duration, err)
	if err != nil {
		return nil, 0, translateError(err)
	}

	e.boards[k] = b
	return b, duration, nil
}

// execute runs one query through the driver with the given reporter and
// assembles the result from the tally.
func (e *Engine) execute(ctx context.Context, q float64, rep search.Reporter, tally *report.Tally) (*Result, error) {
	plan, boardK, err := e.plan(ctx, q)
	if err != nil {
		err = translateError(err)
		e.metrics.RecordQuery(0, err)
		e.logger.LogQuery(ctx, q, 0, 0, err)
		return nil, err
	}

	var (
		board    *zeroboard.Board
		buildDur time.Duration
	)
	if boardK > 0 {
		board, buildDur, err = e.board(ctx, boardK)
		if err != nil {
			return nil, err
		}
	}

	driver := search.NewDriver(e.atoms, board, e.prec)

	start := time.Now()
	err = driver.Execute(ctx, plan, rep)
	queryDur := time.Since(start)

	e.metrics.RecordQuery(queryDur, err)
	e.logger.LogQuery(ctx, q, tally.Total(), queryDur, err)
	if err != nil {
		return nil, err
	}

	return &Result{
		Query:         q,
		Cardinalities: tally.Breakdown(),
		Total:         tally.Total(),
		BuildTime:     buildDur,
		QueryTime:     queryDur,
	}, nil
}

// BatchOptions contains options for RunBatch.
type BatchOptions struct {
	// Workers bounds the number of concurrently executing queries.
	// Defaults to GOMAXPROCS.
	Workers int
}

// RunBatch executes a list of queries against the engine. Queries sharing a
// resolved board cardinality reuse the same immutable board; execution is
// concurrent up to the worker bound. Results are positional. The first
// failing query cancels the rest.
func (e *Engine) RunBatch(ctx context.Context, queries []float64, optFns ...func(o *BatchOptions)) ([]*Result, error) {
	opts := BatchOptions{Workers: runtime.GOMAXPROCS(0)}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}

	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	results := make([]*Result, len(queries))
	for i, q := range queries {
		g.Go(func() error {
			res, err := e.Query(q).Execute(gctx)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	err := g.Wait()
	duration := time.Since(start)
	e.metrics.RecordBatch(len(queries), duration)
	e.logger.LogBatch(ctx, len(queries), duration, err)
	if err != nil {
		return nil, err
	}
	return results, nil
}
