package loop

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostRunsInOrder(t *testing.T) {
	l := New(clock.NewMock())
	var got []int
	for i := 0; i < 3; i++ {
		require.True(t, l.Post(func() { got = append(got, i) }))
	}
	assert.Equal(t, 3, l.RunPending())
	assert.Equal(t, []int{0, 1, 2}, got)
}

func TestPostFromCallbackRunsAfterCurrent(t *testing.T) {
	l := New(clock.NewMock())
	var got []string
	l.Post(func() {
		l.Post(func() { got = append(got, "inner") })
		got = append(got, "outer")
	})
	l.RunPending()
	assert.Equal(t, []string{"outer", "inner"}, got)
}

func TestPostAfterCloseIsRejected(t *testing.T) {
	l := New(clock.NewMock())
	l.Post(func() { t.Fatal("queued callback ran after close") })
	l.Close()
	l.Close()
	assert.False(t, l.Post(func() {}))
	assert.Equal(t, 0, l.RunPending())
}

func TestEveryPostsTicks(t *testing.T) {
	mock := clock.NewMock()
	l := New(mock)
	var ticks atomic.Int32
	stop := l.Every(20*time.Millisecond, func() { ticks.Add(1) })

	mock.Add(20 * time.Millisecond)
	assert.Eventually(t, func() bool {
		l.RunPending()
		return ticks.Load() >= 1
	}, time.Second, time.Millisecond)

	stop()
	stop()
	before := ticks.Load()
	mock.Add(100 * time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	l.RunPending()
	assert.Equal(t, before, ticks.Load())
}

func TestRunStopsOnClose(t *testing.T) {
	l := New(clock.NewMock())
	done := make(chan error, 1)
	go func() { done <- l.Run(context.Background()) }()

	ran := make(chan struct{})
	l.Post(func() { close(ran) })
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("callback did not run")
	}

	l.Close()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Close")
	}
}

func TestRunStopsOnContext(t *testing.T) {
	l := New(clock.NewMock())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.Run(ctx), context.Canceled)
}

func TestScopeReleasesOnceInReverse(t *testing.T) {
	var s Scope
	var order []int
	s.Add(func() { order = append(order, 1) })
	s.Add(func() { order = append(order, 2) })
	s.Add(nil)
	assert.Equal(t, 2, s.Len())

	s.Close()
	s.Close()
	assert.Equal(t, []int{2, 1}, order)

	s.Add(func() { order = append(order, 3) })
	assert.Equal(t, []int{2, 1, 3}, order)
}

func TestScopeStopsTimers(t *testing.T) {
	mock := clock.NewMock()
	l := New(mock)
	var s Scope
	var ticks atomic.Int32
	s.Every(l, time.Second, func() { ticks.Add(1) })
	s.Close()

	mock.Add(5 * time.Second)
	time.Sleep(10 * time.Millisecond)
	l.RunPending()
	assert.Zero(t, ticks.Load())
}
