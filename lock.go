package spinlock

// Lock is a spinlock protecting a value of type T.
//
// A *Lock may be shared by any number of goroutines. The protected value is
// reachable only through the Guard returned by Lock, so values holding
// references (maps, slices, pointers) are protected only for accesses made
// through the guard.
//
// The zero Lock is unlocked and protects the zero T.
// A Lock must not be copied after first use.
type Lock[T any] struct {
	mu    Mutex
	value T
}

// New returns an unlocked Lock protecting initial.
func New[T any](initial T) *Lock[T] {
	return &Lock[T]{value: initial}
}

// Lock acquires l, spinning until it is free, and returns the guard for the
// critical section.
//
// Acquisition is unconditional: there is no timeout and no fairness between
// waiters. Calling Lock while already holding a guard of l spins forever.
//
// The successful acquisition happens after the release of the previous
// guard, so every write made in the previous critical section is visible.
func (l *Lock[T]) Lock() *Guard[T] {
	l.mu.Lock()
	return &Guard[T]{l: l}
}

// With runs fn inside a critical section. The lock is released when fn
// returns, including by panic or runtime.Goexit.
func (l *Lock[T]) With(fn func(g *Guard[T])) {
	g := l.Lock()
	defer g.release()
	fn(g)
}

// Do calls fn with a pointer to the protected value inside a critical
// section and returns fn's error. The lock is released on every exit path.
// The pointer must not be retained after fn returns.
func (l *Lock[T]) Do(fn func(v *T) error) error {
	g := l.Lock()
	defer g.release()
	return fn(&l.value)
}

// Locked reports whether l is currently held.
// The result is stale as soon as it is returned; use it for diagnostics only.
func (l *Lock[T]) Locked() bool { return l.mu.isLocked() }
