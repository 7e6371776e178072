// Package zeroboard implements the hash-indexed structure at the heart of the
// engine: every cardinality-k multiset of atom indices, stored under the
// quantized key of its shortfall from k·max(atoms).
//
// A board is built once (see Build) and is read-only afterwards, so it can be
// shared across concurrent queries without locking.
package zeroboard

import (
	"fmt"
	"io"
	"iter"
	"sort"

	"github.com/hupe1980/multisum/quantize"
)

// Entry is a cardinality-k multiset of atom indices in nondecreasing order.
// Entries are created by the builder and never mutated.
type Entry []int32

// Board maps quantized shortfall keys to buckets of entries.
//
// Within a bucket, entries are ordered by ascending first index. LookupFrom
// relies on this to terminate early while enforcing the deduplication
// invariant of the search driver.
type Board struct {
	k           int
	prec        quantize.Precision
	buckets     map[int64][]Entry
	entries     int
	atomCount   int
	fingerprint uint64
}

func newBoard(k int, prec quantize.Precision) *Board {
	return &Board{
		k:       k,
		prec:    prec,
		buckets: make(map[int64][]Entry),
	}
}

// K returns the cardinality of the multisets stored in this board.
func (b *Board) K() int { return b.k }

// Precision returns the quantization the board was built with.
func (b *Board) Precision() quantize.Precision { return b.prec }

// Fingerprint identifies the atom set the board was built from.
func (b *Board) Fingerprint() uint64 { return b.fingerprint }

// Insert places entry into the bucket keyed by the quantized sum. No
// deduplication is performed; the builder guarantees each canonical tuple is
// produced exactly once.
func (b *Board) Insert(sum float64, entry Entry) {
	key := b.prec.Key(sum)
	b.buckets[key] = append(b.buckets[key], entry)
	b.entries++
}

// Lookup returns an iterator over every entry in the bucket of the quantized
// residual. A missing bucket yields an empty iterator, not an error.
func (b *Board) Lookup(residual float64) iter.Seq[Entry] {
	return b.LookupFrom(residual, -1)
}

// LookupFrom iterates the residual's bucket, skipping entries whose first
// index is below minFirst. A negative minFirst disables the filter.
//
// The filter is the deduplication invariant: with prefix and suffix both in
// nondecreasing order and a fixed split point, each canonical multiset has a
// unique (prefix, suffix) factorization with prefix-last ≤ suffix-first.
// Because the bucket is sorted by first index, the scan walks backwards and
// stops at the first entry below the threshold.
func (b *Board) LookupFrom(residual float64, minFirst int32) iter.Seq[Entry] {
	bucket := b.buckets[b.prec.Key(residual)]
	return func(yield func(Entry) bool) {
		for i := len(bucket) - 1; i >= 0; i-- {
			e := bucket[i]
			if minFirst >= 0 && e[0] < minFirst {
				return
			}
			if !yield(e) {
				return
			}
		}
	}
}

// All iterates every (bucket key, entry) pair. Buckets are visited in
// unspecified order; entries within a bucket are visited in storage order
// (ascending first index).
func (b *Board) All() iter.Seq2[int64, Entry] {
	return func(yield func(int64, Entry) bool) {
		for key, bucket := range b.buckets {
			for _, e := range bucket {
				if !yield(key, e) {
					return
				}
			}
		}
	}
}

// EntriesCount returns the total number of stored entries.
func (b *Board) EntriesCount() int { return b.entries }

// BucketCount returns the number of distinct quantized keys.
func (b *Board) BucketCount() int { return len(b.buckets) }

// Keys iterates all bucket keys in unspecified order.
func (b *Board) Keys() iter.Seq[int64] {
	return func(yield func(int64) bool) {
		for key := range b.buckets {
			if !yield(key) {
				return
			}
		}
	}
}

// sortedKeys returns all bucket keys ascending. Used by Dump and the
// snapshot writer so their output is deterministic.
func (b *Board) sortedKeys() []int64 {
	keys := make([]int64, 0, len(b.buckets))
	for key := range b.buckets {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Dump writes every bucket key and its entries to w. Only reasonable for
// small boards.
func (b *Board) Dump(w io.Writer) error {
	for _, key := range b.sortedKeys() {
		if _, err := fmt.Fprintf(w, "%g:\n", b.prec.Value(key)); err != nil {
			return err
		}
		for _, e := range b.buckets[key] {
			if _, err := fmt.Fprintf(w, "  %v\n", []int32(e)); err != nil {
				return err
			}
		}
	}
	return nil
}
