package router

import (
	"errors"
	"math"
	"sort"

	"github.com/spaolacci/murmur3"
)

var ErrNoRange = errors.New("no hash range covers the given hash")

// HashRange is a contiguous, inclusive range of the 32-bit hash space
// owned by a single shard.
type HashRange struct {
	Min int32 `json:"min"`
	Max int32 `json:"max"`
}

// Contains reports whether hash falls inside the range.
func (h HashRange) Contains(hash int32) bool {
	return hash >= h.Min && hash <= h.Max
}

// FullRange returns the range covering the entire hash space.
func FullRange() HashRange {
	return HashRange{Min: math.MinInt32, Max: math.MaxInt32}
}

// Hash maps a routing key onto the 32-bit hash space.
// Using Murmur3 for better distribution as per requirements.
func Hash(key string) int32 {
	return int32(murmur3.Sum32([]byte(key)))
}

// SplitRange partitions the full hash space into n contiguous,
// non-overlapping ranges ordered from lowest to highest. The last range
// absorbs any remainder so the union always covers the whole space.
func SplitRange(n int) []HashRange {
	if n <= 1 {
		return []HashRange{FullRange()}
	}

	const span = int64(1) << 32
	step := span / int64(n)

	ranges := make([]HashRange, 0, n)
	min := int64(math.MinInt32)
	for i := 0; i < n; i++ {
		max := min + step - 1
		if i == n-1 {
			max = math.MaxInt32
		}
		ranges = append(ranges, HashRange{Min: int32(min), Max: int32(max)})
		min = max + 1
	}
	return ranges
}

// RangeForKey finds the index of the range owning the given key within a
// sorted, non-overlapping range list.
func RangeForKey(ranges []HashRange, key string) (int, error) {
	return RangeForHash(ranges, Hash(key))
}

// RangeForHash finds the index of the range containing hash.
func RangeForHash(ranges []HashRange, hash int32) (int, error) {
	// Binary search for the first range with Max >= hash.
	idx := sort.Search(len(ranges), func(i int) bool {
		return ranges[i].Max >= hash
	})
	if idx == len(ranges) || !ranges[idx].Contains(hash) {
		return 0, ErrNoRange
	}
	return idx, nil
}
