// Package dispatch provides the single commit-capable execution context.
//
// The backing store is only touched from one goroutine: the one running
// Loop.Run. Work from other goroutines reaches it through Post (fire and
// forget) or Call (post and wait).
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/eapache/queue"
)

// ErrClosed is returned by Call once the loop has stopped.
var ErrClosed = errors.New("dispatch: loop closed")

// Dispatcher hands a function to the commit-capable context.
type Dispatcher interface {
	Post(fn func())
}

// Loop is an unbounded FIFO of functions drained by a single goroutine.
type Loop struct {
	mu     sync.Mutex
	q      *queue.Queue
	wake   chan struct{}
	closed bool
}

// NewLoop returns an idle loop. Call Run to start draining it.
func NewLoop() *Loop {
	return &Loop{
		q:    queue.New(),
		wake: make(chan struct{}, 1),
	}
}

// Post enqueues fn. It never blocks. Functions posted after the loop has
// stopped are dropped.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}
	if !l.enqueue(fn) {
		slog.Warn("dispatch: post after loop closed, dropping")
	}
}

func (l *Loop) enqueue(fn func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.q.Add(fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Call posts fn and waits for it to finish. It must not be called from the
// loop goroutine itself.
func (l *Loop) Call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	ok := l.enqueue(func() {
		defer close(done)
		fn()
	})
	if !ok {
		return ErrClosed
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len returns the number of queued functions.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.q.Length()
}

// Run drains the queue on the calling goroutine until ctx is cancelled.
// Work already queued when ctx ends still runs before Run returns ctx.Err().
func (l *Loop) Run(ctx context.Context) error {
	for {
		for {
			fn, ok := l.pop()
			if !ok {
				break
			}
			l.exec(fn)
		}
		select {
		case <-l.wake:
		case <-ctx.Done():
			l.mu.Lock()
			l.closed = true
			l.mu.Unlock()
			for {
				fn, ok := l.pop()
				if !ok {
					return ctx.Err()
				}
				l.exec(fn)
			}
		}
	}
}

func (l *Loop) pop() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.q.Length() == 0 {
		return nil, false
	}
	return l.q.Remove().(func()), true
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if p := recover(); p != nil {
			slog.Error("dispatch: recovered panic", "panic", fmt.Sprint(p), "stack", string(debug.Stack()))
		}
	}()
	fn()
}

// Locked is a Dispatcher that runs fn immediately on the calling goroutine
// while holding a mutex. Use it when the backing store is safe under mutual
// exclusion and no dedicated loop exists.
type Locked struct {
	mu sync.Mutex
}

// Post runs fn under the lock.
func (d *Locked) Post(fn func()) {
	if fn == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	fn()
}

var (
	_ Dispatcher = (*Loop)(nil)
	_ Dispatcher = (*Locked)(nil)
)
