package spinlock

const errReleased = "spinlock: use of released guard"

// Guard grants exclusive access to the value of the Lock that produced it.
//
// A Guard may be handed to another goroutine, which then owns the critical
// section and is responsible for releasing it. Once released, every method
// panics.
type Guard[T any] struct {
	l *Lock[T] // nil after release
}

func (g *Guard[T]) lock() *Lock[T] {
	if g.l == nil {
		panic(errReleased)
	}
	return g.l
}

// Get returns the protected value.
func (g *Guard[T]) Get() T { return g.lock().value }

// Set replaces the protected value.
func (g *Guard[T]) Set(v T) { g.lock().value = v }

// Ptr returns a pointer to the protected value. The pointer is valid only
// until the guard is released.
func (g *Guard[T]) Ptr() *T { return &g.lock().value }

// Unlock releases the lock. It must be called exactly once.
func (g *Guard[T]) Unlock() {
	l := g.lock()
	g.l = nil
	l.mu.Unlock()
}

// release unlocks unless fn already did so through Unlock.
func (g *Guard[T]) release() {
	if g.l != nil {
		g.Unlock()
	}
}
