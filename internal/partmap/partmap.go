// Package partmap provides a partitioned counter.
package partmap

import (
	"encoding/binary"
	"hash/maphash"

	"github.com/go-ricrob/spinlock"
)

// Cell is the value of one part.
type Cell struct {
	N       uint64 // counter
	Scratch uint64 // free for work done inside the critical section
}

// Map spreads counter updates over numPart spinlock protected parts.
type Map struct {
	numPart uint64
	seed    maphash.Seed
	parts   []*spinlock.Lock[Cell]
}

// New returns a map with numPart parts. numPart < 1 is treated as 1.
func New(numPart int) *Map {
	if numPart < 1 {
		numPart = 1
	}
	pm := &Map{
		numPart: uint64(numPart),
		seed:    maphash.MakeSeed(),
		parts:   make([]*spinlock.Lock[Cell], numPart),
	}
	for i := range pm.parts {
		pm.parts[i] = spinlock.New(Cell{})
	}
	return pm
}

func (pm *Map) part(key uint64) *spinlock.Lock[Cell] {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], key)
	return pm.parts[maphash.Bytes(pm.seed, b[:])%pm.numPart]
}

// Add adds delta to the counter of the part key belongs to.
func (pm *Map) Add(key, delta uint64) {
	g := pm.part(key).Lock()
	g.Ptr().N += delta
	g.Unlock()
}

// Update calls fn with the cell of the part key belongs to while holding
// that part's lock.
func (pm *Map) Update(key uint64, fn func(c *Cell)) {
	pm.part(key).With(func(g *spinlock.Guard[Cell]) { fn(g.Ptr()) })
}

// Sum returns the sum of all part counters.
func (pm *Map) Sum() uint64 {
	var sum uint64
	for _, part := range pm.parts {
		g := part.Lock()
		sum += g.Get().N
		g.Unlock()
	}
	return sum
}

func (pm *Map) NumPart() int { return int(pm.numPart) }
