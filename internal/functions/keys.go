package functions

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/cespare/xxhash/v2"
	"golang.org/x/exp/constraints"
)

// keyFunc returns the canonical key of element i. Two elements of arrays
// of the same type are equal iff their keys are equal.
type keyFunc func(i int) string

type numberArray[T constraints.Integer | constraints.Float] interface {
	arrow.Array
	Value(int) T
}

func numberKeys[T constraints.Integer | constraints.Float](arr numberArray[T]) keyFunc {
	var buf [8]byte
	return func(i int) string {
		binary.LittleEndian.PutUint64(buf[:], canonicalBits(arr.Value(i)))
		return string(buf[:])
	}
}

// canonicalBits maps equal numbers to equal bit patterns; both zeros of a
// float share one pattern.
func canonicalBits[T constraints.Integer | constraints.Float](v T) uint64 {
	switch x := any(v).(type) {
	case float32:
		if x == 0 {
			return 0
		}
		return uint64(math.Float32bits(x))
	case float64:
		if x == 0 {
			return 0
		}
		return math.Float64bits(x)
	default:
		return uint64(v)
	}
}

// keysOf builds the key function for a non-list Arrow array
func keysOf(arr arrow.Array) (keyFunc, error) {
	switch a := arr.(type) {
	case *array.Boolean:
		return func(i int) string {
			if a.Value(i) {
				return "\x01"
			}
			return "\x00"
		}, nil
	case *array.Int8:
		return numberKeys[int8](a), nil
	case *array.Int16:
		return numberKeys[int16](a), nil
	case *array.Int32:
		return numberKeys[int32](a), nil
	case *array.Int64:
		return numberKeys[int64](a), nil
	case *array.Uint8:
		return numberKeys[uint8](a), nil
	case *array.Uint16:
		return numberKeys[uint16](a), nil
	case *array.Uint32:
		return numberKeys[uint32](a), nil
	case *array.Uint64:
		return numberKeys[uint64](a), nil
	case *array.Float32:
		return numberKeys[float32](a), nil
	case *array.Float64:
		return numberKeys[float64](a), nil
	case *array.String:
		return a.Value, nil
	default:
		return nil, fmt.Errorf("values of type %s cannot be matched", arr.DataType())
	}
}

// keyIndex finds the first position of a key among a fixed set of
// elements. Buckets are keyed by xxhash; collisions are resolved by
// comparing keys.
type keyIndex struct {
	buckets map[uint64][]int
	keys    keyFunc
}

// newKeyIndex indexes elements [start, end) of arr, skipping NULL elements.
// Only the first occurrence of each key is kept.
func newKeyIndex(arr arrow.Array, keys keyFunc, start, end int) *keyIndex {
	idx := &keyIndex{
		buckets: make(map[uint64][]int, end-start),
		keys:    keys,
	}
	for j := start; j < end; j++ {
		if arr.IsNull(j) {
			continue
		}
		k := keys(j)
		h := xxhash.Sum64String(k)
		if idx.find(h, k) >= 0 {
			continue
		}
		idx.buckets[h] = append(idx.buckets[h], j)
	}
	return idx
}

// lookup returns the position of k or -1
func (idx *keyIndex) lookup(k string) int {
	return idx.find(xxhash.Sum64String(k), k)
}

func (idx *keyIndex) find(h uint64, k string) int {
	for _, j := range idx.buckets[h] {
		if idx.keys(j) == k {
			return j
		}
	}
	return -1
}
