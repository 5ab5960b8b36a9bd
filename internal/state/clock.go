package state

import "sync/atomic"

// Lamport is a logical clock that totally orders mutations of one document.
type Lamport struct {
	counter atomic.Uint64
}

// Tick advances the clock and returns the new time.
func (l *Lamport) Tick() uint64 {
	return l.counter.Add(1)
}

// Observe moves the clock forward to at least t.
func (l *Lamport) Observe(t uint64) {
	for {
		cur := l.counter.Load()
		if t <= cur || l.counter.CompareAndSwap(cur, t) {
			return
		}
	}
}

func (l *Lamport) Now() uint64 {
	return l.counter.Load()
}
