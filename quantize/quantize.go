// Package quantize maps real-valued sums onto discrete buckets at a fixed
// decimal-place precision.
//
// Two different roundings are in play and the distinction is load-bearing:
//
//   - Bucket keys use the ceiling: Key(x) = ⌈x·10ᵈ⌉. The same function is
//     applied to stored shortfalls and to lookup residuals, so borderline
//     values land in the bucket the lookup side consults.
//   - Sum equality uses truncation: SameSum(x, y) compares ⌊x·10ᵈ⌋ with
//     ⌊y·10ᵈ⌋. This is the comparator behind every equality branch of the
//     search driver; raw floating-point == on sums is never used.
//
// Callers must never mix precisions across a single zeroboard instance.
package quantize

import (
	"errors"
	"fmt"
	"math"
)

const (
	// DefaultPlaces is the decimal-place precision used when the caller
	// does not specify one.
	DefaultPlaces = 5

	// fallbackPlaces is substituted when a precision of 0 is requested.
	fallbackPlaces = 2

	// maxScaled bounds |x|·10ᵈ so that the int64 conversions behind Key and
	// SameSum stay exact. Above 2⁵³ the float64 mantissa can no longer
	// represent adjacent integers, long before int64 itself overflows.
	maxScaled = float64(1 << 53)
)

// ErrNegativePlaces is returned when a negative decimal-place count is requested.
var ErrNegativePlaces = errors.New("quantize: decimal places must be >= 0")

// OverflowError indicates that a sum magnitude cannot be keyed exactly at the
// configured precision.
type OverflowError struct {
	Places int
	MaxSum float64
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("quantize: sum magnitude %g exceeds the exact integer range at %d decimal places", e.MaxSum, e.Places)
}

// Precision quantizes sums at a fixed number of decimal places.
// The zero value is not usable; construct with New.
type Precision struct {
	places int
	scale  float64
}

// New returns a Precision for the given number of decimal places.
// A request for 0 places resolves to 2, the safe default of the bucket
// function. Negative values are rejected.
func New(places int) (Precision, error) {
	if places < 0 {
		return Precision{}, ErrNegativePlaces
	}
	if places == 0 {
		places = fallbackPlaces
	}
	return Precision{
		places: places,
		scale:  math.Pow(10, float64(places)),
	}, nil
}

// Default returns the Precision at DefaultPlaces.
func Default() Precision {
	p, _ := New(DefaultPlaces)
	return p
}

// Places returns the resolved decimal-place count.
func (p Precision) Places() int { return p.places }

// Step returns the bucket width 10⁻ᵈ.
func (p Precision) Step() float64 { return 1 / p.scale }

// Key returns the integer bucket identifier ⌈x·10ᵈ⌉.
// It is monotone nondecreasing in x.
func (p Precision) Key(x float64) int64 {
	return int64(math.Ceil(x * p.scale))
}

// Bucket returns the real-valued bucket boundary ⌈x·10ᵈ⌉/10ᵈ.
func (p Precision) Bucket(x float64) float64 {
	return math.Ceil(x*p.scale) / p.scale
}

// Value converts an integer bucket identifier back to its real-valued
// boundary key/10ᵈ.
func (p Precision) Value(key int64) float64 {
	return float64(key) / p.scale
}

// SameSum reports whether x and y are equal after truncation at d decimal
// places: ⌊x·10ᵈ⌋ == ⌊y·10ᵈ⌋. Go's float-to-int conversion truncates toward
// zero, which is exactly the comparison the driver needs. A scaled value
// within a few ulps of an integer is taken as that integer first, so a
// decimal such as 1.00002, whose float64 product with 10⁵ lands just below
// 100002, truncates as written.
func (p Precision) SameSum(x, y float64) bool {
	trunc := func(s float64) int64 {
		if r := math.Round(s); math.Abs(s-r) <= 4*math.Abs(s)*0x1p-52 {
			return int64(r)
		}
		return int64(s)
	}
	return trunc(x*p.scale) == trunc(y*p.scale)
}

// Guard fails fast when sums up to maxSum in magnitude cannot be keyed
// exactly at this precision. It should be called once per query before any
// zeroboard is built.
func (p Precision) Guard(maxSum float64) error {
	if math.Abs(maxSum)*p.scale >= maxScaled {
		return &OverflowError{Places: p.places, MaxSum: maxSum}
	}
	return nil
}
