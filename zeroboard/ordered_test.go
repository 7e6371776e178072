package zeroboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/multisum/quantize"
)

func TestBuildOrdered(t *testing.T) {
	prec := quantize.Default()
	atoms := mustAtoms(t, 2, 3, 7, 11)

	ob, err := BuildOrdered(atoms, 3, prec)
	require.NoError(t, err)

	flat, err := Build(atoms, 3, prec)
	require.NoError(t, err)

	t.Run("SameEntryCount", func(t *testing.T) {
		assert.Equal(t, flat.EntriesCount(), ob.EntriesCount())
		assert.Equal(t, flat.K(), ob.K())
	})

	t.Run("GroupsAscendingByExactKey", func(t *testing.T) {
		buckets := 0
		for key := range ob.Keys() {
			buckets++
			var groups []Group
			for g := range ob.LookupGroups(prec.Value(key)) {
				groups = append(groups, g)
			}
			// A reconstructed lookup value may straddle a bucket boundary,
			// in which case the groups of the bucket it lands in are checked.
			for i := 1; i < len(groups); i++ {
				assert.Less(t, groups[i-1].Key, groups[i].Key)
			}
		}
		assert.Equal(t, flat.BucketCount(), buckets)
	})

	t.Run("GroupKeysQuantizeToBucket", func(t *testing.T) {
		for key := range ob.Keys() {
			for _, g := range ob.buckets[key] {
				assert.Equal(t, key, prec.Key(g.Key))
				assert.NotEmpty(t, g.Entries)
			}
		}
	})

	t.Run("SameEntrySet", func(t *testing.T) {
		type id [3]int32
		flatSet := make(map[id]int)
		for _, e := range flat.All() {
			var k id
			copy(k[:], e)
			flatSet[k]++
		}

		orderedSet := make(map[id]int)
		for key := range ob.Keys() {
			for _, g := range ob.buckets[key] {
				for _, e := range g.Entries {
					var k id
					copy(k[:], e)
					orderedSet[k]++
				}
			}
		}
		assert.Equal(t, flatSet, orderedSet)
	})

	t.Run("MemoryGuard", func(t *testing.T) {
		_, err := BuildOrdered(atoms, 3, prec, func(o *BuildOptions) {
			o.MaxEntries = 1
		})
		var tle *TooLargeError
		assert.ErrorAs(t, err, &tle)
	})
}
