package multisum

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/multisum/report"
	"github.com/hupe1980/multisum/zeroboard"
)

var stepTwentyAtoms = []float64{
	100, 120, 140, 160, 180, 200, 220, 240, 260, 280,
	300, 320, 340, 360, 380, 400, 420, 440, 460, 480,
}

func mustEngine(t *testing.T, b Builder) *Engine {
	t.Helper()
	eng, err := b.Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })
	return eng
}

func countAt(res *Result, cardinality int) uint64 {
	for _, cc := range res.Cardinalities {
		if cc.Cardinality == cardinality {
			return cc.Count
		}
	}
	return 0
}

func TestBuildValidation(t *testing.T) {
	t.Run("EmptyInput", func(t *testing.T) {
		_, err := Atoms().Build()
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("NonPositiveAtom", func(t *testing.T) {
		_, err := Atoms(3, -5).Build()
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("NegativePrecision", func(t *testing.T) {
		_, err := Atoms(3, 5).Precision(-1).Build()
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("KMinBelowTwo", func(t *testing.T) {
		_, err := Atoms(3, 5).KMin(1).Build()
		var cre *CardinalityRangeError
		require.ErrorAs(t, err, &cre)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("KMaxBelowKMin", func(t *testing.T) {
		_, err := Atoms(3, 5).KMin(4).KMax(3).Build()
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("KFixedOutsideRange", func(t *testing.T) {
		_, err := Atoms(3, 5).KMax(4).KFixed(5).Build()
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("BoardKBelowThree", func(t *testing.T) {
		_, err := Atoms(3, 5).BoardK(2).Build()
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("NegativeEpsilon", func(t *testing.T) {
		_, err := Atoms(3, 5).Epsilon(-0.5).Build()
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("NonzeroEpsilonAccepted", func(t *testing.T) {
		eng := mustEngine(t, Atoms(3, 5).Epsilon(0.1))
		res, err := eng.Query(11).Execute(context.Background())
		require.NoError(t, err)
		assert.Equal(t, uint64(1), res.Total)
	})
}

func TestQuery(t *testing.T) {
	ctx := context.Background()

	t.Run("Scenarios", func(t *testing.T) {
		eng := mustEngine(t, Atoms(stepTwentyAtoms...))

		res, err := eng.Query(200).Execute(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), res.Total)
		assert.Equal(t, uint64(1), countAt(res, 2))

		res, err = eng.Query(400).Execute(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(12), res.Total)
		assert.Equal(t, uint64(6), countAt(res, 2))
		assert.Equal(t, uint64(5), countAt(res, 3))
		assert.Equal(t, uint64(1), countAt(res, 4))

		res, err = eng.Query(600).Execute(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(68), res.Total)
	})

	t.Run("QueryBelowMinimum", func(t *testing.T) {
		eng := mustEngine(t, Atoms(3, 5))
		_, err := eng.Query(2).Execute(ctx)
		var qbm *QueryBelowMinimumError
		require.ErrorAs(t, err, &qbm)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("QueryEqualsMinAtom", func(t *testing.T) {
		// One match at cardinality 1, which is below k_min; zero reported.
		eng := mustEngine(t, Atoms(3, 5))
		res, err := eng.Query(3).Execute(ctx)
		require.NoError(t, err)
		assert.Zero(t, res.Total)
	})

	t.Run("KFixedTwoRunsOnlyPairScan", func(t *testing.T) {
		eng := mustEngine(t, Atoms(stepTwentyAtoms...).KFixed(2))
		res, err := eng.Query(400).Execute(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(6), res.Total)
		assert.Equal(t, uint64(6), countAt(res, 2))
	})

	t.Run("KFixedAboveBoard", func(t *testing.T) {
		eng := mustEngine(t, Atoms(stepTwentyAtoms...).KFixed(4))
		res, err := eng.Query(400).Execute(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), res.Total)
		assert.Equal(t, uint64(1), countAt(res, 4))
	})

	t.Run("KMaxClipsRange", func(t *testing.T) {
		eng := mustEngine(t, Atoms(stepTwentyAtoms...).KMax(3))
		res, err := eng.Query(400).Execute(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(11), res.Total) // pairs (6) + triples (5)
	})

	t.Run("KMinClipsRange", func(t *testing.T) {
		eng := mustEngine(t, Atoms(stepTwentyAtoms...).KMin(3))
		res, err := eng.Query(400).Execute(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(6), res.Total) // triples (5) + quad (1)
	})

	t.Run("SymmetryUnderPermutation", func(t *testing.T) {
		shuffled := []float64{480, 100, 300, 120, 460, 140, 280, 160, 440, 180,
			260, 200, 420, 220, 240, 320, 400, 340, 380, 360}

		a := mustEngine(t, Atoms(stepTwentyAtoms...))
		b := mustEngine(t, Atoms(shuffled...))

		ra, err := a.Query(600).Execute(ctx)
		require.NoError(t, err)
		rb, err := b.Query(600).Execute(ctx)
		require.NoError(t, err)

		assert.Equal(t, ra.Cardinalities, rb.Cardinalities)
		assert.Equal(t, ra.Total, rb.Total)
	})

	t.Run("PrecisionMonotonicity", func(t *testing.T) {
		// Atoms that collide at coarse precision: at d=1, 1.02 and 1.04
		// bucket together with 1.0-ish sums; at d=5 they stay apart.
		// Coarser precision can only grow the result set.
		atoms := []float64{1.02, 1.04, 2.06, 3.1}
		q := 5.18 // 1.04 + 1.04 + 3.1, exact at d=5

		coarse := mustEngine(t, Atoms(atoms...).Precision(1))
		fine := mustEngine(t, Atoms(atoms...).Precision(5))

		rc, err := coarse.Query(q).Execute(ctx)
		require.NoError(t, err)
		rf, err := fine.Query(q).Execute(ctx)
		require.NoError(t, err)

		assert.GreaterOrEqual(t, rc.Total, rf.Total)
		assert.GreaterOrEqual(t, rf.Total, uint64(1))
	})
}

func TestCombinations(t *testing.T) {
	ctx := context.Background()
	eng := mustEngine(t, Atoms(stepTwentyAtoms...))

	var buf bytes.Buffer
	res, err := eng.Query(400).Combinations(&buf).Execute(ctx)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, int(res.Total))

	want := []string{
		"100 300", "120 280", "140 260", "160 240", "180 220", "200 200",
		"100 100 200", "100 120 180", "100 140 160", "120 120 160", "120 140 140",
		"100 100 100 100",
	}
	sort.Strings(lines)
	sort.Strings(want)
	assert.Equal(t, want, lines)
}

func TestStream(t *testing.T) {
	ctx := context.Background()
	eng := mustEngine(t, Atoms(stepTwentyAtoms...))

	t.Run("YieldsEveryMultiset", func(t *testing.T) {
		var got []Multiset
		for ms, err := range eng.Query(400).Stream(ctx) {
			require.NoError(t, err)
			got = append(got, ms)
		}
		require.Len(t, got, 12)

		for _, ms := range got {
			assert.Len(t, ms.Values, ms.Cardinality)
			var sum float64
			for i, v := range ms.Values {
				sum += v
				if i > 0 {
					assert.LessOrEqual(t, ms.Values[i-1], v)
				}
			}
			assert.True(t, eng.Precision().SameSum(sum, 400))
		}
	})

	t.Run("EarlyTermination", func(t *testing.T) {
		count := 0
		for _, err := range eng.Query(400).Stream(ctx) {
			require.NoError(t, err)
			count++
			if count == 3 {
				break
			}
		}
		assert.Equal(t, 3, count)
	})

	t.Run("QueryErrorYielded", func(t *testing.T) {
		seen := false
		for _, err := range eng.Query(1).Stream(ctx) {
			assert.ErrorIs(t, err, ErrInvalidConfig)
			seen = true
		}
		assert.True(t, seen)
	})
}

func TestRunBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("MatchesSequentialRuns", func(t *testing.T) {
		eng := mustEngine(t, Atoms(stepTwentyAtoms...))
		queries := []float64{200, 400, 600, 400, 200}

		batch, err := eng.RunBatch(ctx, queries, func(o *BatchOptions) {
			o.Workers = 4
		})
		require.NoError(t, err)
		require.Len(t, batch, len(queries))

		for i, q := range queries {
			res, err := eng.Query(q).Execute(ctx)
			require.NoError(t, err)
			assert.Equal(t, q, batch[i].Query)
			assert.Equal(t, res.Total, batch[i].Total)
			assert.Equal(t, res.Cardinalities, batch[i].Cardinalities)
		}
	})

	t.Run("FailingQueryCancels", func(t *testing.T) {
		eng := mustEngine(t, Atoms(stepTwentyAtoms...))
		_, err := eng.RunBatch(ctx, []float64{400, 1})
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestMemoryGuard(t *testing.T) {
	eng := mustEngine(t, Atoms(stepTwentyAtoms...).MaxBoardEntries(10))
	_, err := eng.Query(400).Execute(context.Background())
	var tle *zeroboard.TooLargeError
	assert.ErrorAs(t, err, &tle)
}

func TestMetricsCollection(t *testing.T) {
	metrics := &BasicMetricsCollector{}
	eng := mustEngine(t, Atoms(stepTwentyAtoms...).Metrics(metrics))

	_, err := eng.Query(400).Execute(context.Background())
	require.NoError(t, err)
	_, err = eng.Query(600).Execute(context.Background())
	require.NoError(t, err)

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.BuildCount) // both queries share the k=3 board
	assert.Equal(t, int64(2), stats.QueryCount)
	assert.Equal(t, int64(1540), stats.BuildEntries) // C(22,3)
}

func TestSnapshotThroughEngine(t *testing.T) {
	ctx := context.Background()

	var snap bytes.Buffer
	src := mustEngine(t, Atoms(stepTwentyAtoms...))
	require.NoError(t, src.SaveBoard(ctx, &snap, 3))

	metrics := &BasicMetricsCollector{}
	dst := mustEngine(t, Atoms(stepTwentyAtoms...).Metrics(metrics))
	k, err := dst.LoadBoard(ctx, &snap)
	require.NoError(t, err)
	assert.Equal(t, 3, k)

	res, err := dst.Query(400).Execute(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), res.Total)
	// The loaded board serves the query; nothing is rebuilt.
	assert.Equal(t, int64(0), metrics.GetStats().BuildCount)
	assert.Equal(t, int64(1), metrics.GetStats().SnapshotLoads)
}

func TestBreakdownOrder(t *testing.T) {
	eng := mustEngine(t, Atoms(stepTwentyAtoms...))
	res, err := eng.Query(400).Execute(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Cardinalities, 3)
	assert.Equal(t, report.CardinalityCount{Cardinality: 4, Count: 1}, res.Cardinalities[0])
	assert.Equal(t, report.CardinalityCount{Cardinality: 3, Count: 5}, res.Cardinalities[1])
	assert.Equal(t, report.CardinalityCount{Cardinality: 2, Count: 6}, res.Cardinalities[2])
}
