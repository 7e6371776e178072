// Package multisum provides an embedded unbounded subset-sum enumeration
// engine.
//
// This file implements the fluent builder API for creating and configuring
// Engine instances. The builder is immutable - each method returns a new
// builder with the updated configuration.
package multisum

import (
	"context"
	"fmt"
	"math"

	"github.com/hupe1980/multisum/atomset"
	"github.com/hupe1980/multisum/quantize"
	"github.com/hupe1980/multisum/zeroboard"
)

// Atoms creates an engine builder over the given raw input values. The
// values are normalized at Build time: sorted ascending, quantized-equal
// duplicates removed.
//
// The builder is immutable - each method returns a new builder with the
// updated configuration.
//
// Example:
//
//	eng, err := multisum.Atoms(100, 120, 140).
//	    Precision(5).
//	    KMin(2).
//	    Build()
func Atoms(values ...float64) Builder {
	return Builder{
		values: values,
		places: quantize.DefaultPlaces,
		kMin:   2,
	}
}

// Builder is an immutable fluent builder for creating Engine instances.
type Builder struct {
	values     []float64
	places     int
	epsilon    float64
	kMin       int
	kMax       int
	kFixed     int
	boardK     int
	maxEntries uint64
	logger     *Logger
	metrics    MetricsCollector
}

// Precision sets the decimal-place precision for all sum comparisons.
// 0 resolves to 2, the bucket function's safe default. Default: 5.
func (b Builder) Precision(places int) Builder {
	b.places = places
	return b
}

// Epsilon sets the query tolerance. Only 0 is supported by the quantized
// lookup; a nonzero value is accepted, logged as a configuration warning,
// and treated as 0.
func (b Builder) Epsilon(epsilon float64) Builder {
	b.epsilon = epsilon
	return b
}

// KMin sets the minimum reported multiset cardinality. Must be >= 2.
// Default: 2.
func (b Builder) KMin(k int) Builder {
	b.kMin = k
	return b
}

// KMax sets the maximum reported multiset cardinality. 0 means unbounded,
// clipped per query to ⌊query/min(atoms)⌋. Default: 0.
func (b Builder) KMax(k int) Builder {
	b.kMax = k
	return b
}

// KFixed restricts the search to exactly this cardinality. 0 searches the
// whole configured range. Default: 0.
func (b Builder) KFixed(k int) Builder {
	b.kFixed = k
	return b
}

// BoardK sets the cardinality of the multisets indexed in the zeroboard.
// 0 resolves per query to ⌊query/max(atoms)⌋ clipped into the configured
// range (and never below 3; cardinality 2 is resolved by the pair scan).
// Default: 0.
func (b Builder) BoardK(k int) Builder {
	b.boardK = k
	return b
}

// MaxBoardEntries caps the number of entries a zeroboard build may
// materialize; a build that would exceed it fails instead of exhausting
// memory. 0 means unlimited. Default: 0.
func (b Builder) MaxBoardEntries(n uint64) Builder {
	b.maxEntries = n
	return b
}

// Logger sets the structured logger for operation tracing.
func (b Builder) Logger(l *Logger) Builder {
	b.logger = l
	return b
}

// Metrics sets the metrics collector for monitoring.
func (b Builder) Metrics(mc MetricsCollector) Builder {
	b.metrics = mc
	return b
}

// Build validates the configuration, normalizes the input set, and returns
// the engine. No zeroboard is built yet; boards are built lazily per query
// and cached by cardinality.
func (b Builder) Build() (*Engine, error) {
	logger := b.logger
	if logger == nil {
		logger = NoopLogger()
	}
	metrics := b.metrics
	if metrics == nil {
		metrics = NoopMetricsCollector{}
	}

	prec, err := quantize.New(b.places)
	if err != nil {
		return nil, translateError(err)
	}

	kMin := b.kMin
	if kMin == 0 {
		kMin = 2
	}
	if kMin < 2 {
		return nil, &CardinalityRangeError{KMin: kMin, KMax: b.kMax, KFixed: b.kFixed, BoardK: b.boardK,
			Reason: "minimum cardinality must be >= 2"}
	}
	if b.kMax != 0 && b.kMax < kMin {
		return nil, &CardinalityRangeError{KMin: kMin, KMax: b.kMax, KFixed: b.kFixed, BoardK: b.boardK,
			Reason: "maximum cardinality below minimum"}
	}
	if b.kFixed != 0 && (b.kFixed < kMin || (b.kMax != 0 && b.kFixed > b.kMax)) {
		return nil, &CardinalityRangeError{KMin: kMin, KMax: b.kMax, KFixed: b.kFixed, BoardK: b.boardK,
			Reason: "fixed cardinality outside [k_min, k_max]"}
	}
	if b.boardK != 0 {
		if b.boardK < 3 {
			return nil, &CardinalityRangeError{KMin: kMin, KMax: b.kMax, KFixed: b.kFixed, BoardK: b.boardK,
				Reason: "board cardinality must be >= 3 (cardinality 2 is the pair scan's)"}
		}
		if b.boardK < kMin || (b.kMax != 0 && b.boardK > b.kMax) {
			return nil, &CardinalityRangeError{KMin: kMin, KMax: b.kMax, KFixed: b.kFixed, BoardK: b.boardK,
				Reason: "board cardinality outside [k_min, k_max]"}
		}
	}
	if b.epsilon < 0 || math.IsNaN(b.epsilon) {
		return nil, fmt.Errorf("%w: epsilon must be >= 0, got %g", ErrInvalidConfig, b.epsilon)
	}

	atoms, err := atomset.New(b.values, prec)
	if err != nil {
		return nil, translateError(err)
	}

	if b.epsilon > 0 {
		logger.LogConfigWarning(context.Background(),
			"nonzero epsilon is not supported by the quantized lookup and is treated as 0",
			"epsilon", b.epsilon,
		)
	}

	return &Engine{
		atoms:      atoms,
		prec:       prec,
		epsilon:    b.epsilon,
		kMin:       kMin,
		kMax:       b.kMax,
		kFixed:     b.kFixed,
		boardK:     b.boardK,
		maxEntries: b.maxEntries,
		logger:     logger,
		metrics:    metrics,
		boards:     make(map[int]*zeroboard.Board),
	}, nil
}
