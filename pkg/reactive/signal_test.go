package reactive

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/recera/pivot/pkg/scheduler"
)

func TestState_GetSet(t *testing.T) {
	sched := scheduler.NewScheduler()
	state := NewState(42, sched)

	if got := state.Get(); got != 42 {
		t.Errorf("Expected initial value 42, got %d", got)
	}

	state.Set(100)
	if got := state.Get(); got != 100 {
		t.Errorf("Expected value 100 after Set, got %d", got)
	}
}

func TestState_DependencyTracking(t *testing.T) {
	sched := scheduler.NewScheduler()
	state := NewState("hello", sched)

	var renderCount atomic.Int32
	var fiber *scheduler.Fiber
	fiber = sched.CreateFiber(func() string {
		renderCount.Add(1)
		return Track(fiber, state.Get)
	}, nil)

	sched.Start()
	defer sched.Stop()

	sched.MarkDirty(fiber)
	time.Sleep(50 * time.Millisecond)
	if renderCount.Load() != 1 {
		t.Errorf("Expected 1 initial render, got %d", renderCount.Load())
	}
	if fiber.Frame() != "hello" {
		t.Errorf("Expected frame 'hello', got %q", fiber.Frame())
	}

	state.Set("world")
	time.Sleep(50 * time.Millisecond)
	if renderCount.Load() != 2 {
		t.Errorf("Expected 2 renders after state update, got %d", renderCount.Load())
	}
	if fiber.Frame() != "world" {
		t.Errorf("Expected frame 'world', got %q", fiber.Frame())
	}
}

func TestState_Update(t *testing.T) {
	state := NewState(10, nil)

	state.Update(func(v int) int {
		return v * 2
	})
	if got := state.Get(); got != 20 {
		t.Errorf("Expected value 20 after Update, got %d", got)
	}
}

func TestState_SetIfChanged(t *testing.T) {
	sched := scheduler.NewScheduler()
	state := NewState(1, sched)
	eq := func(a, b int) bool { return a == b }

	fiber := sched.CreateFiber(func() string { return "" }, nil)
	state.Subscribe(fiber)

	var observed int
	release := state.Observe(func(int) { observed++ })
	defer release()

	if state.SetIfChanged(1, eq) {
		t.Error("Expected no change for an equal value")
	}
	if fiber.IsDirty() || observed != 0 {
		t.Error("Expected an unchanged value to notify nobody")
	}

	if !state.SetIfChanged(2, eq) {
		t.Error("Expected a change for a different value")
	}
	if !fiber.IsDirty() || observed != 1 {
		t.Errorf("Expected dependents notified once, observed %d", observed)
	}
}

func TestState_Observe(t *testing.T) {
	state := NewState("a", nil)

	var got []string
	release := state.Observe(func(v string) { got = append(got, v) })
	state.Set("b")
	release()
	release()
	state.Set("c")

	if len(got) != 1 || got[0] != "b" {
		t.Errorf("Expected [b], got %v", got)
	}
	if state.Dependents() != 0 {
		t.Errorf("Expected no dependents after release, got %d", state.Dependents())
	}
}

func TestState_ConcurrentAccess(t *testing.T) {
	sched := scheduler.NewScheduler()
	state := NewState(0, sched)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			state.Update(func(v int) int { return v + 1 })
		}()
	}
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = state.Peek()
		}()
	}
	wg.Wait()

	if got := state.Get(); got != 100 {
		t.Errorf("Expected final value 100, got %d", got)
	}
}

type trackingScheduler struct {
	mu     sync.Mutex
	marked []uint32
}

func (t *trackingScheduler) MarkDirty(fiber *scheduler.Fiber) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.marked = append(t.marked, fiber.ID())
}

func TestBatch(t *testing.T) {
	sched := scheduler.NewScheduler()
	tracker := &trackingScheduler{}

	a := NewState(0, tracker)
	b := NewState(0, tracker)
	fiber := sched.CreateFiber(func() string { return "" }, nil)
	a.Subscribe(fiber)
	b.Subscribe(fiber)

	RunBatch(tracker, func() {
		a.Set(1)
		b.Set(2)
		a.Set(3)
		if len(tracker.marked) != 0 {
			t.Error("Expected no dirty marks inside the batch")
		}
	})

	if len(tracker.marked) != 1 {
		t.Errorf("Expected one dirty mark after batch, got %d", len(tracker.marked))
	}

	a.Set(4)
	if len(tracker.marked) != 2 {
		t.Errorf("Expected direct mark outside batch, got %d", len(tracker.marked))
	}
}

func TestSignal_Unsubscribe(t *testing.T) {
	tracker := &trackingScheduler{}
	sched := scheduler.NewScheduler()
	state := NewState(0, tracker)
	fiber := sched.CreateFiber(func() string { return "" }, nil)

	state.Subscribe(fiber)
	state.Set(1)
	state.Unsubscribe(fiber)
	state.Set(2)

	if len(tracker.marked) != 1 {
		t.Errorf("Expected one mark before unsubscribe, got %d", len(tracker.marked))
	}
}

func TestSignal_NilFiber(t *testing.T) {
	state := NewState(0, nil)

	// Should not panic
	state.Subscribe(nil)
	state.Unsubscribe(nil)
}

func BenchmarkState_Get(b *testing.B) {
	state := NewState(42, nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = state.Get()
	}
}

func BenchmarkState_Set(b *testing.B) {
	state := NewState(0, nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		state.Set(i)
	}
}
