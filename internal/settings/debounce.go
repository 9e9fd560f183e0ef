package settings

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/micro-nova/amplipi-prefs/internal/dispatch"
	"github.com/micro-nova/amplipi-prefs/internal/events"
)

// Worker states. A Debounced moves idle -> scheduled exactly once per burst
// (the claim in SetValue) and back only when its worker exits.
const (
	stateIdle int32 = iota
	stateScheduled
)

// Debounced defers commits of a ManualCommit parameter until no update has
// happened for a full window.
//
// SetValue may be called from any goroutine. The commit itself always runs
// through the dispatcher given at construction.
type Debounced[V comparable] struct {
	p      *Parameter[V]
	window time.Duration
	d      dispatch.Dispatcher
	ctx    context.Context

	origin time.Time    // monotonic reference for last
	last   atomic.Int64 // ns since origin of the latest update
	seq    atomic.Uint64
	state  atomic.Int32

	burstLog rate.Sometimes
}

// NewDebounced wraps p. p must use ManualCommit and window must be positive.
// Commits are handed to d. ctx is the owning scope: once it is done a
// sleeping worker exits without committing.
func NewDebounced[V comparable](ctx context.Context, p *Parameter[V], window time.Duration, d dispatch.Dispatcher) (*Debounced[V], error) {
	if p == nil {
		return nil, ErrNilParameter
	}
	if p.Strategy() != ManualCommit {
		return nil, fmt.Errorf("%w: %q uses %s", ErrInvalidStrategy, p.Key(), p.Strategy())
	}
	if window <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTimeout, window)
	}
	if d == nil {
		return nil, ErrNilDispatcher
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return &Debounced[V]{
		p:        p,
		window:   window,
		d:        d,
		ctx:      ctx,
		origin:   time.Now(),
		burstLog: rate.Sometimes{First: 1, Interval: time.Second},
	}, nil
}

// Parameter returns the wrapped parameter.
func (b *Debounced[V]) Parameter() *Parameter[V] { return b.p }

// Key returns the wrapped parameter's key.
func (b *Debounced[V]) Key() string { return b.p.Key() }

// Kind returns the wrapped parameter's kind.
func (b *Debounced[V]) Kind() Kind { return b.p.Kind() }

// Strategy is always ManualCommit.
func (b *Debounced[V]) Strategy() CommitStrategy { return b.p.Strategy() }

// Default returns the wrapped parameter's default.
func (b *Debounced[V]) Default() V { return b.p.Default() }

// Value returns the current in-memory value.
func (b *Debounced[V]) Value() V { return b.p.Value() }

// IsDirty reports whether a value is waiting to be committed.
func (b *Debounced[V]) IsDirty() bool { return b.p.IsDirty() }

// Window returns the debounce window.
func (b *Debounced[V]) Window() time.Duration { return b.window }

// Pending reports whether a deferred commit is scheduled.
func (b *Debounced[V]) Pending() bool { return b.state.Load() == stateScheduled }

// OnChanged fires on every accepted SetValue.
func (b *Debounced[V]) OnChanged() *events.Signal[V] { return b.p.OnChanged() }

// OnCommitted fires when the deferred commit writes the value.
func (b *Debounced[V]) OnCommitted() *events.Signal[V] { return b.p.OnCommitted() }

// SetValue updates the value in memory and (re)arms the deferred commit.
// Setting the current value again does nothing.
func (b *Debounced[V]) SetValue(v V) {
	if b.p.CheckIfSame(v) {
		return
	}
	// Stamp the update before listeners run so a worker from the previous
	// burst cannot commit it early.
	b.last.Store(b.now())
	b.seq.Add(1)
	// ManualCommit: this only fires OnChanged, it never writes.
	_ = b.p.SetValue(v)

	if b.state.CompareAndSwap(stateIdle, stateScheduled) {
		go b.run()
		return
	}
	b.burstLog.Do(func() {
		slog.Debug("settings: commit deferred", "key", b.p.Key(), "window", b.window)
	})
}

// Reload re-reads the stored value unless an update is waiting to be
// committed.
func (b *Debounced[V]) Reload() bool {
	if b.Pending() {
		return false
	}
	return b.p.Reload()
}

// Commit writes the pending value now, on the calling goroutine. Callers
// must already be on the commit-capable context.
func (b *Debounced[V]) Commit() error { return b.p.Commit() }

// Flush hands an immediate commit of any pending value to the dispatcher.
// A worker that is still sleeping will find nothing left to write.
//
// The write error is returned only when the dispatcher ran the commit before
// Post returned (dispatch.Locked). With a dispatch.Loop the commit is queued
// and a failure is logged instead.
func (b *Debounced[V]) Flush() error {
	res := make(chan error, 1)
	b.d.Post(func() {
		err := b.p.Commit()
		if err != nil {
			slog.Error("settings: flush commit failed", "key", b.p.Key(), "err", err)
		}
		res <- err
	})
	select {
	case err := <-res:
		return err
	default:
		return nil
	}
}

func (b *Debounced[V]) now() int64 { return int64(time.Since(b.origin)) }

// run is the deferred-commit worker. It owns the scheduled state until it
// returns.
func (b *Debounced[V]) run() {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		seq := b.seq.Load()
		deadline := b.last.Load() + int64(b.window)
		now := b.now()
		if now < deadline {
			wait := time.Duration(deadline - now)
			if timer == nil {
				timer = time.NewTimer(wait)
			} else {
				timer.Reset(wait)
			}
			select {
			case <-timer.C:
				continue
			case <-b.ctx.Done():
				b.state.Store(stateIdle)
				slog.Debug("settings: deferred commit abandoned", "key", b.p.Key(), "err", b.ctx.Err())
				return
			}
		}

		b.state.Store(stateIdle)
		if b.seq.Load() != seq {
			// An update landed after the deadline check while we still held
			// the claim, so it started no worker of its own.
			if b.state.CompareAndSwap(stateIdle, stateScheduled) {
				continue
			}
			return
		}

		b.d.Post(func() {
			// A newer burst owns the commit.
			if b.seq.Load() != seq {
				return
			}
			b.commit()
		})
		return
	}
}

func (b *Debounced[V]) commit() {
	if err := b.p.Commit(); err != nil {
		slog.Error("settings: deferred commit failed", "key", b.p.Key(), "err", err)
	}
}
