// Package settings provides typed, observable settings parameters persisted
// to a prefs.Store, and a debounced wrapper that collapses bursts of updates
// into a single deferred commit.
//
// # Parameters
//
// A Parameter holds one keyed value. SetValue updates the in-memory value and
// fires OnChanged; Commit writes the value to the store and fires
// OnCommitted. With AutoCommit every accepted SetValue commits before it
// returns. With ManualCommit nothing is written until Commit is called.
//
//	vol, _ := settings.NewFloat(store, "volume", 0.5, settings.AutoCommit)
//	vol.OnChanged().Add(func(v float64) { ui.SetSlider(v) })
//	_ = vol.SetValue(0.8) // written immediately
//
// Notifications are synchronous and run in registration order on the
// goroutine that caused them.
//
// # Debouncing
//
// Debounced wraps a ManualCommit parameter. Each update records a timestamp
// and, if no commit is pending, starts one background worker. The worker
// sleeps until window has passed since the latest update, re-checking after
// every wake, then posts a single Commit to the dispatcher that owns the store.
//
//	raw, _ := settings.NewInt(store, "brightness", 50, settings.ManualCommit)
//	b, _ := settings.NewDebounced(ctx, raw, 300*time.Millisecond, loop)
//	for _, v := range dragged {
//		b.SetValue(v) // one write, 300ms after the last drag event
//	}
//
// At most one worker runs per Debounced. The worker stops without committing
// when ctx ends; call Flush first to keep a pending value.
package settings
