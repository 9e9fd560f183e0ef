package events

import "sync"

// Handle identifies a listener registered on a Signal.
type Handle uint64

// Signal is a synchronous multicast callback registry.
//
// Emit calls every listener on the calling goroutine, in registration order.
// Listeners are snapshotted before the first call, so a listener that adds or
// removes listeners only affects later emissions. The zero value is ready to use.
type Signal[T any] struct {
	mu        sync.Mutex
	next      Handle
	listeners []listener[T]
}

type listener[T any] struct {
	h  Handle
	fn func(T)
}

// Add registers fn and returns a handle that can be passed to Remove.
// A nil fn is ignored and yields the zero handle.
func (s *Signal[T]) Add(fn func(T)) Handle {
	if fn == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.listeners = append(s.listeners, listener[T]{h: s.next, fn: fn})
	return s.next
}

// Remove unregisters the listener with handle h. It reports whether a
// listener was removed.
func (s *Signal[T]) Remove(h Handle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, l := range s.listeners {
		if l.h == h {
			// Copy instead of shifting in place: an Emit in progress may hold
			// the old slice.
			next := make([]listener[T], 0, len(s.listeners)-1)
			next = append(next, s.listeners[:i]...)
			s.listeners = append(next, s.listeners[i+1:]...)
			return true
		}
	}
	return false
}

// Emit calls all registered listeners with v.
func (s *Signal[T]) Emit(v T) {
	s.mu.Lock()
	ls := s.listeners
	s.mu.Unlock()
	for _, l := range ls {
		l.fn(v)
	}
}

// Len returns the number of registered listeners.
func (s *Signal[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}
