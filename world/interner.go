package world

import (
	"fmt"
	"sync"
)

// stringInterner maps a small set of repeating strings to integer indexes.
// Index 0 is reserved for the empty string.
type stringInterner[T ~uint8 | ~uint16] struct {
	mu     sync.RWMutex
	lookup []string
	index  map[string]T
}

func newStringInterner[T ~uint8 | ~uint16](capacity int) *stringInterner[T] {
	si := &stringInterner[T]{
		lookup: make([]string, 1, capacity),
		index:  make(map[string]T, capacity),
	}
	si.index[""] = 0
	return si
}

// intern returns the index for s, adding it on first use. Panics when the
// index type overflows rather than wrapping around.
func (si *stringInterner[T]) intern(s string) T {
	si.mu.RLock()
	if idx, ok := si.index[s]; ok {
		si.mu.RUnlock()
		return idx
	}
	si.mu.RUnlock()

	si.mu.Lock()
	defer si.mu.Unlock()
	if idx, ok := si.index[s]; ok {
		return idx
	}
	if maxVal := int(^T(0)); len(si.lookup) > maxVal {
		panic(fmt.Sprintf("stringInterner capacity exceeded: %d entries (max %d)", len(si.lookup), maxVal))
	}
	idx := T(len(si.lookup))
	si.lookup = append(si.lookup, s)
	si.index[s] = idx
	return idx
}

// get returns the string for idx, or "" when out of range.
func (si *stringInterner[T]) get(idx T) string {
	si.mu.RLock()
	defer si.mu.RUnlock()
	if int(idx) < len(si.lookup) {
		return si.lookup[idx]
	}
	return ""
}

func (si *stringInterner[T]) count() int {
	si.mu.RLock()
	defer si.mu.RUnlock()
	return len(si.lookup)
}

// Place kinds ("city", "capital", "peak", ...) repeat across thousands of
// places, so Place stores an index instead of the string.
var kindInterner = sync.OnceValue(func() *stringInterner[uint16] {
	return newStringInterner[uint16](64)
})

// KindCount returns the number of distinct place kinds seen, "" included.
func KindCount() int { return kindInterner().count() }
