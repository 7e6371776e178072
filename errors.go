package multisum

import (
	"errors"
	"fmt"

	"github.com/hupe1980/multisum/atomset"
	"github.com/hupe1980/multisum/quantize"
)

var (
	// ErrInvalidConfig is wrapped by every configuration rejection.
	ErrInvalidConfig = errors.New("multisum: invalid configuration")

	// ErrClosed is returned when an engine is used after Close.
	ErrClosed = errors.New("multisum: engine is closed")
)

// QueryBelowMinimumError indicates a query below the smallest atom (or not a
// finite positive value).
type QueryBelowMinimumError struct {
	Query float64
	Min   float64
}

func (e *QueryBelowMinimumError) Error() string {
	return fmt.Sprintf("multisum: query %g must be a finite value >= the minimum atom %g", e.Query, e.Min)
}

func (e *QueryBelowMinimumError) Unwrap() error { return ErrInvalidConfig }

// CardinalityRangeError indicates an inconsistent k_min/k_max/k_fixed/board
// cardinality configuration.
type CardinalityRangeError struct {
	KMin, KMax, KFixed, BoardK int
	Reason                     string
}

func (e *CardinalityRangeError) Error() string {
	return fmt.Sprintf("multisum: %s (k_min=%d k_max=%d k_fixed=%d k_zb=%d)", e.Reason, e.KMin, e.KMax, e.KFixed, e.BoardK)
}

func (e *CardinalityRangeError) Unwrap() error { return ErrInvalidConfig }

// translateError normalizes errors from the leaf packages at the facade
// boundary so callers can test against ErrInvalidConfig.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, atomset.ErrEmptyInput) {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	var iae *atomset.InvalidAtomError
	if errors.As(err, &iae) {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if errors.Is(err, quantize.ErrNegativePlaces) {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	var oe *quantize.OverflowError
	if errors.As(err, &oe) {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return err
}
