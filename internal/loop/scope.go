package loop

import (
	"sync"
	"time"
)

// Scope owns the deregistration funcs of everything registered during a
// component's setup. Close releases them exactly once, newest first.
type Scope struct {
	mu       sync.Mutex
	releases []func()
	closed   bool
}

// Add takes ownership of release. If the scope is already closed, release runs
// immediately.
func (s *Scope) Add(release func()) {
	if release == nil {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		release()
		return
	}
	s.releases = append(s.releases, release)
	s.mu.Unlock()
}

// Every registers a timer on l that is stopped when the scope closes.
func (s *Scope) Every(l *Loop, d time.Duration, fn func()) {
	s.Add(l.Every(d, fn))
}

func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.releases)
}

func (s *Scope) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	releases := s.releases
	s.releases = nil
	s.mu.Unlock()

	for i := len(releases) - 1; i >= 0; i-- {
		releases[i]()
	}
}
