package atomset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/multisum/quantize"
)

func TestNew(t *testing.T) {
	prec := quantize.Default()

	t.Run("SortsAndAccessors", func(t *testing.T) {
		s, err := New([]float64{5, 3, 11, 7}, prec)
		require.NoError(t, err)

		assert.Equal(t, 4, s.Len())
		assert.Equal(t, 3.0, s.Min())
		assert.Equal(t, 11.0, s.Max())
		assert.Equal(t, []float64{3, 5, 7, 11}, s.Values())
		assert.Equal(t, 5.0, s.At(1))
	})

	t.Run("RemovesDuplicates", func(t *testing.T) {
		s, err := New([]float64{3, 5, 3, 5, 5, 7}, prec)
		require.NoError(t, err)
		assert.Equal(t, []float64{3, 5, 7}, s.Values())
	})

	t.Run("QuantizedDuplicates", func(t *testing.T) {
		// At 2 decimal places, values that truncate to the same hundredth
		// collapse.
		p2, err := quantize.New(2)
		require.NoError(t, err)

		s, err := New([]float64{1.001, 1.002, 2.0}, p2)
		require.NoError(t, err)
		assert.Equal(t, 2, s.Len())
	})

	t.Run("Empty", func(t *testing.T) {
		_, err := New(nil, prec)
		assert.ErrorIs(t, err, ErrEmptyInput)
	})

	t.Run("NonPositive", func(t *testing.T) {
		_, err := New([]float64{3, -1, 5}, prec)
		var iae *InvalidAtomError
		require.ErrorAs(t, err, &iae)
		assert.Equal(t, -1.0, iae.Value)

		_, err = New([]float64{0}, prec)
		assert.ErrorAs(t, err, &iae)
	})

	t.Run("InputNotMutated", func(t *testing.T) {
		in := []float64{5, 3}
		_, err := New(in, prec)
		require.NoError(t, err)
		assert.Equal(t, []float64{5, 3}, in)
	})
}

func TestFingerprint(t *testing.T) {
	prec := quantize.Default()

	a, err := New([]float64{3, 5, 7}, prec)
	require.NoError(t, err)
	b, err := New([]float64{7, 3, 5, 5}, prec)
	require.NoError(t, err)
	c, err := New([]float64{3, 5, 7, 9}, prec)
	require.NoError(t, err)

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}
