// Package atomset holds the ordered, duplicate-free input set the engine
// searches over. Atoms may be reused without limit in any multiset.
package atomset

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"sort"

	"github.com/hupe1980/multisum/quantize"
)

var (
	// ErrEmptyInput is returned when no atoms are provided.
	ErrEmptyInput = errors.New("atomset: input set is empty")
)

// InvalidAtomError indicates an element that is not a positive finite real.
type InvalidAtomError struct {
	Value    float64
	Position int
}

func (e *InvalidAtomError) Error() string {
	return fmt.Sprintf("atomset: atom %g at position %d is not a positive finite value", e.Value, e.Position)
}

// Set is a strictly increasing sequence of positive finite reals.
// It is immutable for the lifetime of a query.
type Set struct {
	values []float64
	prec   quantize.Precision
}

// New normalizes raw input into a Set: the values are copied, sorted
// ascending, and consecutive duplicates (equal under the quantized sum
// comparator) are removed. Empty input and non-positive or non-finite
// elements are rejected.
func New(values []float64, prec quantize.Precision) (*Set, error) {
	if len(values) == 0 {
		return nil, ErrEmptyInput
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)

	for i, v := range sorted {
		if !(v > 0) || math.IsInf(v, 1) || math.IsNaN(v) {
			return nil, &InvalidAtomError{Value: v, Position: i}
		}
	}

	sort.Float64s(sorted)

	out := sorted[:1]
	for _, v := range sorted[1:] {
		if !prec.SameSum(v, out[len(out)-1]) {
			out = append(out, v)
		}
	}

	return &Set{values: out, prec: prec}, nil
}

// Len returns the number of atoms.
func (s *Set) Len() int { return len(s.values) }

// At returns the atom at index i.
func (s *Set) At(i int) float64 { return s.values[i] }

// Min returns the smallest atom.
func (s *Set) Min() float64 { return s.values[0] }

// Max returns the largest atom.
func (s *Set) Max() float64 { return s.values[len(s.values)-1] }

// Values returns a copy of the atom sequence in ascending order.
func (s *Set) Values() []float64 {
	out := make([]float64, len(s.values))
	copy(out, s.values)
	return out
}

// Fingerprint hashes the quantized atom sequence. Two sets with the same
// fingerprint index the same multisets at the given precision; snapshot
// loading uses this to reject boards built from different inputs.
func (s *Set) Fingerprint() uint64 {
	h := fnv.New64a()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(s.prec.Places()))
	_, _ = h.Write(buf[:])
	for _, v := range s.values {
		binary.LittleEndian.PutUint64(buf[:], uint64(s.prec.Key(v)))
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}
