// Package spinlock provides busy-waiting mutual exclusion primitives.
//
// A Lock protects a single value. Lock.Lock spins on an atomic flag until it
// captures it and returns a Guard, the only path to the protected value.
// Releasing the Guard frees the lock for the next acquirer.
//
//	l := spinlock.New(0)
//	g := l.Lock()
//	defer g.Unlock()
//	*g.Ptr()++
//
// Spinning trades CPU time for not parking the goroutine; it pays off only
// for very short critical sections. The locks are not fair, not re-entrant
// and never time out.
package spinlock

import (
	"runtime"
	"sync"
	"sync/atomic"
)

var _ sync.Locker = (*Mutex)(nil)

// Mutex represents a spinlock.
// The zero value is an unlocked mutex. A Mutex must not be copied after first use.
type Mutex struct {
	state atomic.Bool // true: held
}

// Lock locks the mutex busy waiting (spinlock).
func (m *Mutex) Lock() {
	for m.state.Swap(true) {
		runtime.Gosched()
	}
}

// Unlock unlocks the mutex.
// It is a run-time error if m is not locked on entry to Unlock.
func (m *Mutex) Unlock() {
	if !m.state.Swap(false) {
		panic("spinlock: unlock of unlocked mutex")
	}
}

// isLocked reports the current state without acquiring.
func (m *Mutex) isLocked() bool { return m.state.Load() }
