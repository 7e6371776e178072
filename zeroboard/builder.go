package zeroboard

import (
	"errors"
	"fmt"
	"math"
	"math/bits"

	"github.com/hupe1980/multisum/atomset"
	"github.com/hupe1980/multisum/quantize"
)

// ErrInvalidK is returned when the requested board cardinality is below 2.
var ErrInvalidK = errors.New("zeroboard: board cardinality must be >= 2")

// TooLargeError indicates that a build would exceed the configured entry cap.
type TooLargeError struct {
	Entries    uint64
	MaxEntries uint64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("zeroboard: %d entries would exceed the configured maximum of %d", e.Entries, e.MaxEntries)
}

// BuildOptions contains configuration options for building a board.
type BuildOptions struct {
	// MaxEntries caps the number of entries a build may materialize.
	// 0 means unlimited. C(n+k-1, k) grows quickly in k; callers passing a
	// user-specified k should set a cap.
	MaxEntries uint64
}

// DefaultBuildOptions contains the default build configuration.
var DefaultBuildOptions = BuildOptions{
	MaxEntries: 0,
}

// Multichoose returns C(n+k-1, k), the number of cardinality-k multisets
// over n atoms, saturating at MaxUint64 on overflow.
func Multichoose(n, k int) uint64 {
	if n <= 0 || k < 0 {
		return 0
	}
	// C(n+k-1, k) = Π_{i=1..k} (n-1+i)/i, integral at every step when
	// multiplied before dividing by i (the running product is always a
	// binomial coefficient).
	var result uint64 = 1
	for i := 1; i <= k; i++ {
		hi, lo := bits.Mul64(result, uint64(n-1+i))
		if hi != 0 {
			return math.MaxUint64
		}
		result = lo / uint64(i)
	}
	return result
}

// Build enumerates every nondecreasing k-tuple of atom indices exactly once,
// computes its shortfall Σⱼ (max − a_{iⱼ}), and inserts it under the
// quantized shortfall key. The resulting board holds exactly
// C(n+k-1, k) entries.
func Build(atoms *atomset.Set, k int, prec quantize.Precision, optFns ...func(o *BuildOptions)) (*Board, error) {
	opts := DefaultBuildOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if k < 2 {
		return nil, ErrInvalidK
	}

	if err := prec.Guard(float64(k) * atoms.Max()); err != nil {
		return nil, err
	}

	if opts.MaxEntries > 0 {
		if expected := Multichoose(atoms.Len(), k); expected > opts.MaxEntries {
			return nil, &TooLargeError{Entries: expected, MaxEntries: opts.MaxEntries}
		}
	}

	b := newBoard(k, prec)
	b.atomCount = atoms.Len()
	b.fingerprint = atoms.Fingerprint()

	arena := newEntryArena(k, Multichoose(atoms.Len(), k))
	enumerate(atoms, k, func(shortfall float64, tuple []int32) {
		b.Insert(shortfall, arena.next(tuple))
	})

	return b, nil
}

// arenaSlabEntries bounds how many entries one slab holds.
const arenaSlabEntries = 4096

// entryArena hands out entry storage sliced from large slabs instead of one
// heap allocation per entry. Entries live as long as the board.
type entryArena struct {
	k    int
	slab []int32
}

func newEntryArena(k int, expected uint64) *entryArena {
	slabEntries := uint64(arenaSlabEntries)
	if expected < slabEntries {
		slabEntries = expected
	}
	return &entryArena{
		k:    k,
		slab: make([]int32, slabEntries*uint64(k)),
	}
}

func (a *entryArena) next(tuple []int32) Entry {
	if len(a.slab) < a.k {
		a.slab = make([]int32, arenaSlabEntries*a.k)
	}
	e := Entry(a.slab[:a.k:a.k])
	a.slab = a.slab[a.k:]
	copy(e, tuple)
	return e
}

// enumerate visits every nondecreasing k-tuple over the atom indices in
// lexicographic order, passing its shortfall and the (reused) index tuple.
// Lexicographic order keeps each bucket sorted by first index, which
// LookupFrom depends on.
func enumerate(atoms *atomset.Set, k int, visit func(shortfall float64, tuple []int32)) {
	n := atoms.Len()
	maxAtom := atoms.Max()
	tuple := make([]int32, k)

	var descend func(depth, start int, shortfall float64)
	descend = func(depth, start int, shortfall float64) {
		for i := start; i < n; i++ {
			tuple[depth] = int32(i)
			s := shortfall + (maxAtom - atoms.At(i))
			if depth == k-1 {
				visit(s, tuple)
			} else {
				descend(depth+1, i, s)
			}
		}
	}
	descend(0, 0, 0)
}
