package settings_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/micro-nova/amplipi-prefs/internal/dispatch"
	"github.com/micro-nova/amplipi-prefs/internal/prefs"
	"github.com/micro-nova/amplipi-prefs/internal/settings"
)

func newDebouncedInt(t *testing.T, store prefs.Store, key string, def int, window time.Duration, d dispatch.Dispatcher) *settings.Debounced[int] {
	t.Helper()
	p, err := settings.NewInt(store, key, def, settings.ManualCommit)
	if err != nil {
		t.Fatalf("NewInt() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	b, err := settings.NewDebounced(ctx, p, window, d)
	if err != nil {
		t.Fatalf("NewDebounced() error = %v", err)
	}
	return b
}

// startLoop runs a dispatch loop until the test ends.
func startLoop(t *testing.T) *dispatch.Loop {
	t.Helper()
	loop := dispatch.NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = loop.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return loop
}

func TestNewDebounced_RejectsAutoCommit(t *testing.T) {
	p, _ := settings.NewInt(prefs.NewMemStore(), "brightness", 50, settings.AutoCommit)
	_, err := settings.NewDebounced(context.Background(), p, 300*time.Millisecond, &dispatch.Locked{})
	if !errors.Is(err, settings.ErrInvalidStrategy) {
		t.Errorf("error = %v, want ErrInvalidStrategy", err)
	}
}

func TestNewDebounced_RejectsWindow(t *testing.T) {
	p, _ := settings.NewInt(prefs.NewMemStore(), "brightness", 50, settings.ManualCommit)
	for _, w := range []time.Duration{0, -time.Millisecond} {
		_, err := settings.NewDebounced(context.Background(), p, w, &dispatch.Locked{})
		if !errors.Is(err, settings.ErrInvalidTimeout) {
			t.Errorf("window %v: error = %v, want ErrInvalidTimeout", w, err)
		}
	}
}

func TestNewDebounced_RejectsNil(t *testing.T) {
	_, err := settings.NewDebounced[int](context.Background(), nil, time.Second, &dispatch.Locked{})
	if !errors.Is(err, settings.ErrNilParameter) {
		t.Errorf("nil parameter: error = %v, want ErrNilParameter", err)
	}

	p, _ := settings.NewInt(prefs.NewMemStore(), "brightness", 50, settings.ManualCommit)
	_, err = settings.NewDebounced(context.Background(), p, time.Second, nil)
	if !errors.Is(err, settings.ErrNilDispatcher) {
		t.Errorf("nil dispatcher: error = %v, want ErrNilDispatcher", err)
	}
}

func TestParameter_DebouncedHelper(t *testing.T) {
	p, _ := settings.NewInt(prefs.NewMemStore(), "brightness", 50, settings.ManualCommit)
	b, err := p.Debounced(context.Background(), 300*time.Millisecond, &dispatch.Locked{})
	if err != nil {
		t.Fatalf("Debounced() error = %v", err)
	}
	if b.Parameter() != p {
		t.Error("Parameter() does not return the wrapped parameter")
	}
	if b.Window() != 300*time.Millisecond {
		t.Errorf("Window() = %v", b.Window())
	}
}

func TestDebounced_SameValueSchedulesNothing(t *testing.T) {
	d := &inlineDispatcher{}
	b := newDebouncedInt(t, prefs.NewMemStore(), "brightness", 50, 20*time.Millisecond, d)
	changed := 0
	b.OnChanged().Add(func(int) { changed++ })

	b.SetValue(50)
	if b.Pending() {
		t.Error("Pending() = true after same-value SetValue")
	}
	time.Sleep(60 * time.Millisecond)
	if changed != 0 || d.posts.Load() != 0 {
		t.Errorf("changed=%d posts=%d, want 0/0", changed, d.posts.Load())
	}
}

func TestDebounced_ChangedFiresWithoutWrite(t *testing.T) {
	store := prefs.NewMemStore()
	b := newDebouncedInt(t, store, "brightness", 50, time.Hour, &inlineDispatcher{})
	var seen []int
	b.OnChanged().Add(func(v int) { seen = append(seen, v) })

	b.SetValue(60)
	b.SetValue(70)
	if len(seen) != 2 || seen[0] != 60 || seen[1] != 70 {
		t.Errorf("changed saw %v, want [60 70]", seen)
	}
	if store.Writes() != 0 {
		t.Errorf("store written %d times before the window elapsed", store.Writes())
	}
	if !b.IsDirty() || !b.Pending() {
		t.Errorf("IsDirty()=%v Pending()=%v, want true/true", b.IsDirty(), b.Pending())
	}
}

func TestDebounced_CollapsesBurst(t *testing.T) {
	store := prefs.NewMemStore()
	d := &inlineDispatcher{}
	const window = 80 * time.Millisecond
	b := newDebouncedInt(t, store, "brightness", 0, window, d)

	var (
		commits     atomic.Int32
		mu          sync.Mutex
		committedAt time.Time
	)
	b.OnCommitted().Add(func(int) {
		commits.Add(1)
		mu.Lock()
		committedAt = time.Now()
		mu.Unlock()
	})

	var lastSet time.Time
	for i := 1; i <= 10; i++ {
		lastSet = time.Now()
		b.SetValue(i)
		time.Sleep(window / 8)
	}

	if !waitFor(t, 2*time.Second, func() bool { return commits.Load() > 0 }) {
		t.Fatal("no commit after the burst went quiet")
	}
	time.Sleep(2 * window)

	if n := commits.Load(); n != 1 {
		t.Errorf("commits = %d, want 1", n)
	}
	if got := store.GetInt("brightness", -1); got != 10 {
		t.Errorf("store[brightness] = %d, want last value 10", got)
	}
	if store.Writes() != 1 {
		t.Errorf("store writes = %d, want 1", store.Writes())
	}
	mu.Lock()
	at := committedAt
	mu.Unlock()
	if at.Before(lastSet.Add(window)) {
		t.Errorf("committed %v after the last update, before the window", at.Sub(lastSet))
	}
	if b.IsDirty() || b.Pending() {
		t.Errorf("IsDirty()=%v Pending()=%v after commit, want false/false", b.IsDirty(), b.Pending())
	}
}

func TestDebounced_RearmsAfterCommit(t *testing.T) {
	store := prefs.NewMemStore()
	b := newDebouncedInt(t, store, "brightness", 0, 30*time.Millisecond, &inlineDispatcher{})
	var commits atomic.Int32
	b.OnCommitted().Add(func(int) { commits.Add(1) })

	b.SetValue(1)
	if !waitFor(t, time.Second, func() bool { return commits.Load() == 1 && !b.Pending() }) {
		t.Fatal("first burst never committed")
	}

	b.SetValue(2)
	if !b.Pending() {
		t.Error("Pending() = false after second burst started")
	}
	if !waitFor(t, time.Second, func() bool { return commits.Load() == 2 }) {
		t.Fatal("second burst never committed")
	}
	if got := store.GetInt("brightness", -1); got != 2 {
		t.Errorf("store[brightness] = %d, want 2", got)
	}
}

func TestDebounced_BrightnessScenario(t *testing.T) {
	store := prefs.NewMemStore()
	loop := startLoop(t)
	b := newDebouncedInt(t, store, "brightness", 50, 300*time.Millisecond, loop)

	start := time.Now()
	b.SetValue(60)
	time.Sleep(100 * time.Millisecond)
	b.SetValue(70)

	time.Sleep(time.Until(start.Add(250 * time.Millisecond)))
	if got := store.GetInt("brightness", 50); got != 50 {
		t.Fatalf("store[brightness] at +250ms = %d, want 50", got)
	}

	time.Sleep(time.Until(start.Add(500 * time.Millisecond)))
	ok := waitFor(t, 250*time.Millisecond, func() bool {
		return store.GetInt("brightness", 50) == 70
	})
	if !ok {
		t.Fatalf("store[brightness] at +500ms = %d, want 70", store.GetInt("brightness", 50))
	}
	if store.Writes() != 1 {
		t.Errorf("store writes = %d, want 1", store.Writes())
	}
}

func TestDebounced_CommitRunsThroughDispatcher(t *testing.T) {
	store := prefs.NewMemStore()
	d := &inlineDispatcher{}
	b := newDebouncedInt(t, store, "brightness", 0, 20*time.Millisecond, d)

	b.SetValue(5)
	b.SetValue(6)
	if !waitFor(t, time.Second, func() bool { return store.HasKey("brightness") }) {
		t.Fatal("no commit")
	}
	if n := d.posts.Load(); n != 1 {
		t.Errorf("dispatcher posts = %d, want 1", n)
	}
}

func TestDebounced_ConcurrentSetValue(t *testing.T) {
	store := prefs.NewMemStore()
	loop := startLoop(t)
	const window = 50 * time.Millisecond
	b := newDebouncedInt(t, store, "brightness", -1, window, loop)
	var commits atomic.Int32
	b.OnCommitted().Add(func(int) { commits.Add(1) })

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				b.SetValue(g*1000 + i)
			}
		}(g)
	}
	wg.Wait()
	final := b.Value()

	if !waitFor(t, 2*time.Second, func() bool { return commits.Load() > 0 && !b.Pending() }) {
		t.Fatal("concurrent burst never committed")
	}
	time.Sleep(2 * window)

	if n := commits.Load(); n != 1 {
		t.Errorf("commits = %d, want 1", n)
	}
	if got := store.GetInt("brightness", -1); got != final {
		t.Errorf("store[brightness] = %d, want final in-memory value %d", got, final)
	}
	if b.IsDirty() {
		t.Error("IsDirty() = true after the burst committed")
	}
}

func TestDebounced_ContextCancelAbandonsCommit(t *testing.T) {
	store := prefs.NewMemStore()
	p, _ := settings.NewInt(store, "brightness", 50, settings.ManualCommit)
	ctx, cancel := context.WithCancel(context.Background())
	b, err := settings.NewDebounced(ctx, p, 50*time.Millisecond, &inlineDispatcher{})
	if err != nil {
		t.Fatalf("NewDebounced() error = %v", err)
	}

	b.SetValue(60)
	cancel()

	if !waitFor(t, time.Second, func() bool { return !b.Pending() }) {
		t.Fatal("worker still scheduled after cancel")
	}
	time.Sleep(100 * time.Millisecond)
	if store.HasKey("brightness") {
		t.Error("commit happened after the owning context ended")
	}
	if !b.IsDirty() {
		t.Error("IsDirty() = false, the value was never written")
	}
}

func TestDebounced_FlushCommitsImmediately(t *testing.T) {
	store := prefs.NewMemStore()
	b := newDebouncedInt(t, store, "brightness", 50, time.Hour, &inlineDispatcher{})

	b.SetValue(90)
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if got := store.GetInt("brightness", 0); got != 90 {
		t.Errorf("store[brightness] = %d, want 90", got)
	}
	if b.IsDirty() {
		t.Error("IsDirty() = true after Flush")
	}
}

func TestDebounced_CommitErrorKeepsDirty(t *testing.T) {
	store := failingStore{prefs.NewMemStore()}
	b := newDebouncedInt(t, store, "brightness", 50, 10*time.Millisecond, &inlineDispatcher{})
	var commits atomic.Int32
	b.OnCommitted().Add(func(int) { commits.Add(1) })

	b.SetValue(60)
	if !waitFor(t, time.Second, func() bool { return !b.Pending() }) {
		t.Fatal("worker never finished")
	}
	time.Sleep(20 * time.Millisecond)
	if commits.Load() != 0 {
		t.Error("committed fired for a failed write")
	}
	if !b.IsDirty() {
		t.Error("IsDirty() = false after failed write")
	}
}

func TestDebounced_SlowListenerDoesNotShortenWindow(t *testing.T) {
	store := prefs.NewMemStore()
	const window = 30 * time.Millisecond
	b := newDebouncedInt(t, store, "brightness", 0, window, &inlineDispatcher{})

	var (
		mu          sync.Mutex
		committed   []int
		committedAt time.Time
	)
	b.OnCommitted().Add(func(v int) {
		mu.Lock()
		committed = append(committed, v)
		committedAt = time.Now()
		mu.Unlock()
	})

	b.SetValue(1)
	time.Sleep(25 * time.Millisecond)

	// The first burst's deadline passes while this listener blocks SetValue(2).
	slow := b.OnChanged().Add(func(int) { time.Sleep(60 * time.Millisecond) })
	start := time.Now()
	b.SetValue(2)
	b.OnChanged().Remove(slow)

	if !waitFor(t, time.Second, func() bool { return !b.IsDirty() && !b.Pending() }) {
		t.Fatal("second value never committed")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(committed) == 0 || committed[len(committed)-1] != 2 {
		t.Fatalf("committed = %v, want last commit 2", committed)
	}
	if committedAt.Before(start.Add(window)) {
		t.Errorf("value 2 committed %v after its update, want at least %v", committedAt.Sub(start), window)
	}
	if got := store.GetInt("brightness", -1); got != 2 {
		t.Errorf("store[brightness] = %d, want 2", got)
	}
}

func TestDebounced_FlushReportsInlineError(t *testing.T) {
	store := failingStore{prefs.NewMemStore()}
	b := newDebouncedInt(t, store, "brightness", 50, time.Hour, &dispatch.Locked{})

	b.SetValue(60)
	if err := b.Flush(); !errors.Is(err, errDiskFull) {
		t.Errorf("Flush() error = %v, want errDiskFull", err)
	}
	if !b.IsDirty() {
		t.Error("IsDirty() = false after failed flush")
	}
}

func TestDebounced_FlushOnLoopIsQueued(t *testing.T) {
	store := failingStore{prefs.NewMemStore()}
	loop := dispatch.NewLoop()
	b := newDebouncedInt(t, store, "brightness", 50, time.Hour, loop)

	b.SetValue(60)
	// The loop is not running yet, so the commit cannot have happened.
	if err := b.Flush(); err != nil {
		t.Errorf("Flush() error = %v, want nil for a queued commit", err)
	}
	if loop.Len() == 0 {
		t.Error("Flush() queued nothing on the loop")
	}
}
