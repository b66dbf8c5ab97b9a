package workload

import (
	"sync"

	"github.com/go-ricrob/spinlock"
	"github.com/go-ricrob/spinlock/internal/partmap"
)

// cell is the protected state of the shared counters.
type cell struct {
	n       uint64
	scratch uint64 // result of busy work
}

type counter interface {
	incr(worker, work int)
	value() uint64
}

var (
	_ counter = (*spinCounter)(nil)
	_ counter = (*mutexCounter)(nil)
	_ counter = (*partCounter)(nil)
)

//go:noinline
func busy(n int) uint64 {
	var x uint64
	for i := 0; i < n; i++ {
		x = x*31 + uint64(i)
	}
	return x
}

type spinCounter struct {
	l *spinlock.Lock[cell]
}

func (c *spinCounter) incr(_, work int) {
	g := c.l.Lock()
	v := g.Ptr()
	v.n++
	v.scratch += busy(work)
	g.Unlock()
}

func (c *spinCounter) value() uint64 {
	g := c.l.Lock()
	defer g.Unlock()
	return g.Get().n
}

// mutexCounter is the blocking baseline.
type mutexCounter struct {
	mu sync.Mutex
	c  cell
}

func (c *mutexCounter) incr(_, work int) {
	c.mu.Lock()
	c.c.n++
	c.c.scratch += busy(work)
	c.mu.Unlock()
}

func (c *mutexCounter) value() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.c.n
}

type partCounter struct {
	pm *partmap.Map
}

func (c *partCounter) incr(worker, work int) {
	if work == 0 {
		c.pm.Add(uint64(worker), 1)
		return
	}
	c.pm.Update(uint64(worker), func(cell *partmap.Cell) {
		cell.N++
		cell.Scratch += busy(work)
	})
}

func (c *partCounter) value() uint64 { return c.pm.Sum() }

func newCounter(kind Kind, cfg *Config) counter {
	switch kind {
	case Mutex:
		return new(mutexCounter)
	case Partitioned:
		return &partCounter{pm: partmap.New(cfg.numPart())}
	default:
		return &spinCounter{l: spinlock.New(cell{})}
	}
}
