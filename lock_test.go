package spinlock

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/trivago/tgo/ttesting"
)

func iterations(long, short int) int {
	if testing.Short() {
		return short
	}
	return long
}

func TestGuardAccess(t *testing.T) {
	expect := ttesting.NewExpect(t)

	l := New("init")
	expect.False(l.Locked())

	g := l.Lock()
	expect.True(l.Locked())
	expect.Equal("init", g.Get())
	g.Set("set")
	expect.Equal("set", g.Get())
	*g.Ptr() += "+ptr"
	expect.Equal("set+ptr", g.Get())
	g.Unlock()
	expect.False(l.Locked())

	g = l.Lock()
	expect.Equal("set+ptr", g.Get())
	g.Unlock()
}

func TestZeroLock(t *testing.T) {
	expect := ttesting.NewExpect(t)

	var l Lock[[]int]
	g := l.Lock()
	expect.True(g.Get() == nil)
	g.Set(append(g.Get(), 1))
	g.Unlock()

	g = l.Lock()
	expect.Equal(1, len(g.Get()))
	g.Unlock()
}

func TestReleasedGuard(t *testing.T) {
	l := New(42)
	g := l.Lock()
	g.Unlock()

	mustPanic(t, errReleased, func() { g.Get() })
	mustPanic(t, errReleased, func() { g.Set(1) })
	mustPanic(t, errReleased, func() { g.Ptr() })
	mustPanic(t, errReleased, g.Unlock)

	// the failed double unlock must not have touched the lock
	g2 := l.Lock()
	if v := g2.Get(); v != 42 {
		t.Fatalf("value %d - expected 42", v)
	}
	g2.Unlock()
}

func TestMutualExclusion(t *testing.T) {
	numWorker := 2 * runtime.GOMAXPROCS(0)
	numIter := iterations(100000, 5000)

	l := New(0)
	var inside, overlaps atomic.Int32

	wg := new(sync.WaitGroup)
	wg.Add(numWorker)
	for i := 0; i < numWorker; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < numIter; j++ {
				g := l.Lock()
				if inside.Add(1) != 1 {
					overlaps.Add(1)
				}
				v := g.Get() + 1
				g.Set(v)
				if g.Get() != v {
					overlaps.Add(1)
				}
				inside.Add(-1)
				g.Unlock()
			}
		}()
	}
	wg.Wait()

	expect := ttesting.NewExpect(t)
	expect.Equal(int32(0), overlaps.Load())
	g := l.Lock()
	expect.Equal(numWorker*numIter, g.Get())
	g.Unlock()
}

func TestVisibility(t *testing.T) {
	const numWorker = 10
	numIter := iterations(1000000, 10000)

	l := New(uint64(0))

	wg := new(sync.WaitGroup)
	wg.Add(numWorker)
	for i := 0; i < numWorker; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < numIter; j++ {
				g := l.Lock()
				*g.Ptr()++
				g.Unlock()
			}
		}()
	}
	wg.Wait()

	g := l.Lock()
	defer g.Unlock()
	if v := g.Get(); v != uint64(numWorker*numIter) {
		t.Fatalf("lost updates: counter %d - expected %d", v, numWorker*numIter)
	}
}

func TestLiveness(t *testing.T) {
	const numIter = 1000000

	l := New(0)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < numIter; i++ {
			g := l.Lock()
			g.Set(i)
			g.Unlock()
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Minute):
		t.Fatal("single goroutine acquire/release did not finish")
	}
	expect := ttesting.NewExpect(t)
	expect.False(l.Locked())
}

func TestAcquireAfterRelease(t *testing.T) {
	l := New(0)
	g := l.Lock()
	g.Set(1)
	g.Unlock()

	acquired := make(chan int)
	go func() {
		g := l.Lock()
		v := g.Get()
		g.Unlock()
		acquired <- v
	}()

	select {
	case v := <-acquired:
		if v != 1 {
			t.Fatalf("value %d - expected 1", v)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("lock still held after release")
	}
}

// The holder acquiring its own lock again makes no progress. Releasing the
// first guard from another goroutine unblocks it.
func TestSelfDeadlock(t *testing.T) {
	l := New(0)

	firstCh := make(chan *Guard[int])
	var second atomic.Bool
	done := make(chan struct{})

	go func() {
		defer close(done)
		first := l.Lock()
		firstCh <- first
		g := l.Lock() // spins against itself
		second.Store(true)
		g.Unlock()
	}()

	first := <-firstCh
	time.Sleep(100 * time.Millisecond)
	if second.Load() {
		t.Fatal("second acquisition by holder made progress")
	}

	first.Unlock()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("second acquisition did not proceed after release")
	}
}

func TestGuardTransfer(t *testing.T) {
	l := New(0)
	guardCh := make(chan *Guard[int])
	done := make(chan struct{})

	go func() {
		defer close(done)
		g := <-guardCh
		g.Set(g.Get() + 1)
		g.Unlock()
	}()

	guardCh <- l.Lock()
	<-done

	g := l.Lock()
	defer g.Unlock()
	if g.Get() != 1 {
		t.Fatalf("value %d - expected 1", g.Get())
	}
}

func TestWithReleasesOnPanic(t *testing.T) {
	expect := ttesting.NewExpect(t)
	l := New(0)

	mustPanic(t, "boom", func() {
		l.With(func(g *Guard[int]) {
			g.Set(1)
			panic("boom")
		})
	})
	expect.False(l.Locked())

	l.With(func(g *Guard[int]) {
		expect.Equal(1, g.Get())
		g.Unlock() // early release is tolerated
	})
	expect.False(l.Locked())
}

func TestWithReleasesOnGoexit(t *testing.T) {
	l := New(0)
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.With(func(*Guard[int]) { runtime.Goexit() })
	}()
	<-done

	if l.Locked() {
		t.Fatal("lock held after Goexit")
	}
}

func TestDo(t *testing.T) {
	expect := ttesting.NewExpect(t)
	errStop := errors.New("stop")

	l := New([]string{})

	expect.NoError(l.Do(func(v *[]string) error {
		*v = append(*v, "a")
		return nil
	}))
	err := l.Do(func(v *[]string) error {
		*v = append(*v, "b")
		return errStop
	})
	expect.True(errors.Is(err, errStop))
	expect.False(l.Locked())

	g := l.Lock()
	expect.Equal([]string{"a", "b"}, g.Get())
	g.Unlock()
}

func benchmarkLocker(b *testing.B, l sync.Locker) {
	counter := 0
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			l.Lock()
			counter++
			l.Unlock()
		}
	})
}

func BenchmarkMutex(b *testing.B)     { benchmarkLocker(b, new(Mutex)) }
func BenchmarkSyncMutex(b *testing.B) { benchmarkLocker(b, new(sync.Mutex)) }

func BenchmarkLock(b *testing.B) {
	l := New(0)
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			g := l.Lock()
			*g.Ptr()++
			g.Unlock()
		}
	})
}

func TestDoReleasesOnPanic(t *testing.T) {
	expect := ttesting.NewExpect(t)
	l := New(0)

	mustPanic(t, "boom", func() {
		_ = l.Do(func(v *int) error {
			*v = 1
			panic("boom")
		})
	})
	expect.False(l.Locked())

	g := l.Lock()
	expect.Equal(1, g.Get())
	g.Unlock()
}

// Readers sharing one guard only read the guard and the value.
func TestGuardConcurrentGet(t *testing.T) {
	const numReader = 8

	l := New(7)
	g := l.Lock()

	var mismatch atomic.Int32
	wg := new(sync.WaitGroup)
	wg.Add(numReader)
	for i := 0; i < numReader; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				if g.Get() != 7 {
					mismatch.Add(1)
				}
			}
		}()
	}
	wg.Wait()
	g.Unlock()

	if mismatch.Load() != 0 {
		t.Fatalf("%d reads returned a wrong value", mismatch.Load())
	}
	if l.Locked() {
		t.Fatal("lock held after release")
	}
}
