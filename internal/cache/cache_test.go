package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/recera/pivot/pkg/domain"
	"github.com/recera/pivot/pkg/query"
)

type countingExecutor struct {
	calls atomic.Int32
	gate  chan struct{}
	err   error
}

func (e *countingExecutor) Execute(ctx context.Context, q query.Query) (*domain.Dataset, error) {
	e.calls.Add(1)
	if e.gate != nil {
		<-e.gate
	}
	if e.err != nil {
		return nil, e.err
	}
	return domain.NewDataset(domain.NewDatum(domain.Field{Name: "count", Value: float64(len(q.Splits))})), nil
}

func queryOn(dim string) query.Query {
	return query.Query{
		Table:    "edits",
		Splits:   []query.Split{{Dimension: dim}},
		Measures: []query.Measure{{Name: "count"}},
	}
}

func TestCache_HitAndMiss(t *testing.T) {
	exec := &countingExecutor{}
	c := New(exec, DefaultConfig())
	ctx := context.Background()

	first, err := c.Execute(ctx, queryOn("channel"))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	second, _ := c.Execute(ctx, queryOn("channel"))
	if first != second {
		t.Error("Expected the cached dataset to be returned")
	}
	c.Execute(ctx, queryOn("country"))

	if exec.calls.Load() != 2 {
		t.Errorf("Expected 2 executions, got %d", exec.calls.Load())
	}
	stats := c.GetStats()
	if stats.Hits != 1 || stats.Misses != 2 || stats.EntryCount != 2 {
		t.Errorf("Expected 1 hit, 2 misses and 2 entries, got %+v", stats)
	}
}

func TestCache_Eviction(t *testing.T) {
	exec := &countingExecutor{}
	c := New(exec, Config{MaxEntries: 2})
	ctx := context.Background()

	c.Execute(ctx, queryOn("a"))
	c.Execute(ctx, queryOn("b"))
	c.Execute(ctx, queryOn("a"))
	c.Execute(ctx, queryOn("c"))

	stats := c.GetStats()
	if stats.Evictions != 1 || stats.EntryCount != 2 {
		t.Errorf("Expected 1 eviction and 2 entries, got %+v", stats)
	}

	// b was least recently used
	c.Execute(ctx, queryOn("a"))
	if exec.calls.Load() != 3 {
		t.Errorf("Expected a to still be cached, got %d executions", exec.calls.Load())
	}
	c.Execute(ctx, queryOn("b"))
	if exec.calls.Load() != 4 {
		t.Errorf("Expected b to be evicted, got %d executions", exec.calls.Load())
	}
}

func TestCache_MaxAge(t *testing.T) {
	exec := &countingExecutor{}
	c := New(exec, Config{MaxAge: time.Minute})
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	c.Execute(ctx, queryOn("a"))
	now = now.Add(30 * time.Second)
	c.Execute(ctx, queryOn("a"))
	if exec.calls.Load() != 1 {
		t.Errorf("Expected fresh entry to be used, got %d executions", exec.calls.Load())
	}
	now = now.Add(time.Minute)
	c.Execute(ctx, queryOn("a"))
	if exec.calls.Load() != 2 {
		t.Errorf("Expected expired entry to be refetched, got %d executions", exec.calls.Load())
	}
}

func TestCache_ClearDropsEntries(t *testing.T) {
	exec := &countingExecutor{}
	c := New(exec, DefaultConfig())
	ctx := context.Background()

	c.Execute(ctx, queryOn("a"))
	c.Clear()
	c.Execute(ctx, queryOn("a"))
	if exec.calls.Load() != 2 {
		t.Errorf("Expected refetch after Clear, got %d executions", exec.calls.Load())
	}
}

func TestCache_ClearDuringExecution(t *testing.T) {
	exec := &countingExecutor{gate: make(chan struct{})}
	c := New(exec, DefaultConfig())
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		c.Execute(ctx, queryOn("a"))
		close(done)
	}()
	for exec.calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	c.Clear()
	close(exec.gate)
	<-done

	if n := c.GetStats().EntryCount; n != 0 {
		t.Errorf("Expected result started before Clear to be dropped, got %d entries", n)
	}
}

func TestCache_ErrorsNotCached(t *testing.T) {
	exec := &countingExecutor{err: errors.New("boom")}
	c := New(exec, DefaultConfig())
	ctx := context.Background()

	if _, err := c.Execute(ctx, queryOn("a")); err == nil {
		t.Fatal("Expected error")
	}
	exec.err = nil
	if _, err := c.Execute(ctx, queryOn("a")); err != nil {
		t.Fatalf("Expected success after error, got %v", err)
	}
	if exec.calls.Load() != 2 {
		t.Errorf("Expected 2 executions, got %d", exec.calls.Load())
	}
}

func TestCache_ConcurrentMissesShareExecution(t *testing.T) {
	exec := &countingExecutor{gate: make(chan struct{})}
	c := New(exec, DefaultConfig())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Execute(ctx, queryOn("a")); err != nil {
				t.Errorf("Execute failed: %v", err)
			}
		}()
	}
	// Let every caller reach the shared call before releasing it
	for c.GetStats().Misses < 5 {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(10 * time.Millisecond)
	close(exec.gate)
	wg.Wait()

	if exec.calls.Load() != 1 {
		t.Errorf("Expected one execution, got %d", exec.calls.Load())
	}
}

func TestKey(t *testing.T) {
	a := queryOn("a")
	a.Filter = domain.Filter{Clauses: []domain.Clause{
		domain.StringClause{Ref: "channel", Values: []string{"en"}},
		domain.BooleanClause{Ref: "is_robot", Values: []bool{true}},
	}}
	b := queryOn("a")
	b.Filter = domain.Filter{Clauses: []domain.Clause{a.Filter.Clauses[1], a.Filter.Clauses[0]}}

	if Key(a) != Key(b) {
		t.Error("Expected clause order not to change the key")
	}
	if Key(a) == Key(queryOn("a")) {
		t.Error("Expected the filter to change the key")
	}
	utc := queryOn("a")
	utc.Location = time.UTC
	other := queryOn("a")
	other.Location = time.FixedZone("CET", 3600)
	if Key(utc) == Key(other) {
		t.Error("Expected the timezone to change the key")
	}
}
