package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/multisum/atomset"
	"github.com/hupe1980/multisum/quantize"
)

func TestTally(t *testing.T) {
	tally := NewTally()

	assert.False(t, tally.WantCombinations())

	tally.Match(3, nil)
	tally.Match(3, nil)
	tally.Match(2, nil)
	tally.Match(5, nil)

	assert.Equal(t, uint64(2), tally.Count(3))
	assert.Equal(t, uint64(1), tally.Count(2))
	assert.Equal(t, uint64(0), tally.Count(4))
	assert.Equal(t, uint64(4), tally.Total())

	breakdown := tally.Breakdown()
	require.Len(t, breakdown, 3)
	assert.Equal(t, CardinalityCount{Cardinality: 5, Count: 1}, breakdown[0])
	assert.Equal(t, CardinalityCount{Cardinality: 3, Count: 2}, breakdown[1])
	assert.Equal(t, CardinalityCount{Cardinality: 2, Count: 1}, breakdown[2])
}

func TestWriteBreakdown(t *testing.T) {
	tally := NewTally()
	tally.Match(3, nil)
	tally.Match(2, nil)
	tally.Match(2, nil)

	var buf bytes.Buffer
	require.NoError(t, tally.WriteBreakdown(&buf))

	assert.Equal(t, "3\t1\n2\t2\nTotal results: 3\n", buf.String())
}

func TestCombinationWriter(t *testing.T) {
	atoms, err := atomset.New([]float64{3, 5, 7.5}, quantize.Default())
	require.NoError(t, err)

	t.Run("EmitsCanonicalLines", func(t *testing.T) {
		tally := NewTally()
		var buf bytes.Buffer
		cw := NewCombinationWriter(tally, atoms, &buf)

		assert.True(t, cw.WantCombinations())
		assert.True(t, cw.Match(3, []int32{0, 0, 1}))
		assert.True(t, cw.Match(2, []int32{1, 2}))

		lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
		assert.ElementsMatch(t, []string{"3 3 5", "5 7.5"}, lines)
		assert.Equal(t, uint64(2), tally.Total())
		assert.NoError(t, cw.Err())
	})

	t.Run("WriteErrorStops", func(t *testing.T) {
		tally := NewTally()
		cw := NewCombinationWriter(tally, atoms, failWriter{})

		assert.False(t, cw.Match(2, []int32{0, 1}))
		assert.Error(t, cw.Err())
	})
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("sink closed") }
