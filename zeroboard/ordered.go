package zeroboard

import (
	"fmt"
	"io"
	"iter"
	"sort"

	"github.com/hupe1980/multisum/atomset"
	"github.com/hupe1980/multisum/quantize"
)

// Group collects the entries of one exact (non-quantized) shortfall inside a
// bucket.
type Group struct {
	// Key is the exact shortfall shared by all entries of the group.
	Key float64

	// Entries holds the group's multisets, first-index ascending.
	Entries []Entry
}

// OrderedBoard is the ordered-bucket refinement of Board: within a bucket,
// entries are grouped by exact shortfall and the groups are kept in
// ascending key order. Callers that can prove no smaller or larger sub-key
// can still match may stop iterating a bucket early.
type OrderedBoard struct {
	k       int
	prec    quantize.Precision
	buckets map[int64][]Group
	entries int
}

// BuildOrdered builds an OrderedBoard from the same enumeration as Build.
func BuildOrdered(atoms *atomset.Set, k int, prec quantize.Precision, optFns ...func(o *BuildOptions)) (*OrderedBoard, error) {
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

	ob := &OrderedBoard{
		k:       k,
		prec:    prec,
		buckets: make(map[int64][]Group),
	}

	arena := newEntryArena(k, Multichoose(atoms.Len(), k))
	enumerate(atoms, k, func(shortfall float64, tuple []int32) {
		ob.insert(shortfall, arena.next(tuple))
	})

	return ob, nil
}

// insert places entry into the group of its exact shortfall, creating the
// group at its sorted position when absent. All entries of a group share one
// accumulation path, so exact comparison is well defined here.
func (ob *OrderedBoard) insert(sum float64, entry Entry) {
	key := ob.prec.Key(sum)
	groups := ob.buckets[key]

	i := sort.Search(len(groups), func(i int) bool { return groups[i].Key >= sum })
	if i < len(groups) && groups[i].Key == sum {
		groups[i].Entries = append(groups[i].Entries, entry)
	} else {
		groups = append(groups, Group{})
		copy(groups[i+1:], groups[i:])
		groups[i] = Group{Key: sum, Entries: []Entry{entry}}
	}

	ob.buckets[key] = groups
	ob.entries++
}

// K returns the cardinality of the multisets stored in this board.
func (ob *OrderedBoard) K() int { return ob.k }

// EntriesCount returns the total number of stored entries.
func (ob *OrderedBoard) EntriesCount() int { return ob.entries }

// LookupGroups iterates the residual bucket's groups in ascending exact-key
// order. A missing bucket yields an empty iterator.
func (ob *OrderedBoard) LookupGroups(residual float64) iter.Seq[Group] {
	bucket := ob.buckets[ob.prec.Key(residual)]
	return func(yield func(Group) bool) {
		for _, g := range bucket {
			if !yield(g) {
				return
			}
		}
	}
}

// Keys iterates all bucket keys in unspecified order.
func (ob *OrderedBoard) Keys() iter.Seq[int64] {
	return func(yield func(int64) bool) {
		for key := range ob.buckets {
			if !yield(key) {
				return
			}
		}
	}
}

// Dump writes every bucket, its groups, and their entries to w.
func (ob *OrderedBoard) Dump(w io.Writer) error {
	keys := make([]int64, 0, len(ob.buckets))
	for key := range ob.buckets {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	for _, key := range keys {
		if _, err := fmt.Fprintf(w, "%g:\n", ob.prec.Value(key)); err != nil {
			return err
		}
		for _, g := range ob.buckets[key] {
			if _, err := fmt.Fprintf(w, "  %g:\n", g.Key); err != nil {
				return err
			}
			for _, e := range g.Entries {
				if _, err := fmt.Fprintf(w, "    %v\n", []int32(e)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
