// Package multisum provides an embedded engine that counts and enumerates
// all multisets (combinations with repetition) drawn from a finite set of
// positive real atoms whose sum equals a query target.
//
// The engine runs in two phases:
//
//   - Build: a compact index (the zeroboard) of every cardinality-k multiset,
//     keyed by its quantized shortfall from k·max(atoms).
//   - Query: a branch-and-bound enumeration over larger cardinalities that
//     prunes whole sub-spaces with per-prefix min/max completion bounds and
//     resolves each surviving prefix by a single zeroboard lookup.
//
// The board is built once per cardinality and is immutable afterwards, so it
// can be shared across concurrent queries.
//
// # Quick Start
//
// Create an engine with the fluent builder:
//
//	eng, err := multisum.Atoms(100, 120, 140, 160, 180, 200).
//	    Precision(5).
//	    KMin(2).
//	    Build()
//	if err != nil {
//	    panic(err)
//	}
//	defer eng.Close()
//
// Count the multisets summing to a target:
//
//	res, err := eng.Query(400).Execute(ctx)
//	fmt.Println(res.Total)
//	for _, cc := range res.Cardinalities {
//	    fmt.Printf("%d\t%d\n", cc.Cardinality, cc.Count)
//	}
//
// Stream the concrete multisets instead of just counting:
//
//	for ms, err := range eng.Query(400).Stream(ctx) {
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(ms.Values)
//	}
//
// Run a batch of queries with bounded concurrency:
//
//	results, err := eng.RunBatch(ctx, []float64{200, 400, 600})
//
// # Numeric Model
//
// All sum comparisons are quantized at a configured decimal-place precision;
// see the quantize package. Direct floating-point equality on sums is never
// used.
package multisum
