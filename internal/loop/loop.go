// Package loop runs callbacks one at a time on a single logical thread.
//
// Gesture handlers, storage notifications and timer ticks are all posted to a
// Loop, so the components they drive never need locks of their own.
package loop

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

type Loop struct {
	clock clock.Clock

	mu     sync.Mutex
	queue  []func()
	wake   chan struct{}
	done   chan struct{}
	closed bool
}

func New(clk clock.Clock) *Loop {
	if clk == nil {
		clk = clock.New()
	}
	return &Loop{
		clock: clk,
		wake:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

func (l *Loop) Clock() clock.Clock { return l.clock }

// Post queues fn to run on the loop. It never blocks, so it is safe to call
// from a callback already running on the loop. It reports false once the loop
// is closed.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Dispatch is Post without the result, for APIs that take a func(func()).
func (l *Loop) Dispatch(fn func()) { l.Post(fn) }

// Every posts fn to the loop at a fixed rate until the returned stop func is
// called or the loop closes.
func (l *Loop) Every(d time.Duration, fn func()) (stop func()) {
	ticker := l.clock.Ticker(d)
	quit := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				l.Post(fn)
			case <-quit:
				return
			case <-l.done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(quit)
		})
	}
}

// RunPending runs every queued callback, including ones queued while draining,
// on the calling goroutine. It returns the number of callbacks run.
func (l *Loop) RunPending() int {
	n := 0
	for {
		fn, ok := l.next()
		if !ok {
			return n
		}
		fn()
		n++
	}
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, false
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, true
}

// Run processes callbacks until ctx is done or Close is called.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.RunPending()
		select {
		case <-l.wake:
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			return nil
		}
	}
}

// Close stops the loop and every timer started with Every. Queued callbacks
// are dropped.
func (l *Loop) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	l.queue = nil
	close(l.done)
}
