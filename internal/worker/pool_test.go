package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type countJob struct {
	counter *atomic.Int64
}

type countResult struct{ err error }

func (r *countResult) GetError() error { return r.err }

func (j *countJob) Execute(ctx context.Context) Result {
	j.counter.Add(1)
	return &countResult{}
}

func TestPool_ExecutesAllJobs(t *testing.T) {
	var counter atomic.Int64

	pool := NewPool(context.Background(), 4)
	pool.Start()

	const jobs = 20
	go func() {
		defer pool.Close()
		for i := 0; i < jobs; i++ {
			pool.Submit(&countJob{counter: &counter})
		}
	}()

	results := pool.Wait()
	if len(results) != jobs {
		t.Errorf("got %d results, want %d", len(results), jobs)
	}
	if counter.Load() != jobs {
		t.Errorf("executed %d jobs, want %d", counter.Load(), jobs)
	}
}

func TestPool_ShutdownStopsWorkers(t *testing.T) {
	pool := NewPool(context.Background(), 2)
	pool.Start()
	pool.Shutdown()

	// Submitting after shutdown is a no-op, not a deadlock.
	done := make(chan struct{})
	go func() {
		pool.Submit(&countJob{counter: &atomic.Int64{}})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Submit blocked after Shutdown")
	}
}

func TestPool_ParentContextCancelStopsAdmission(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var counter atomic.Int64
	pool := NewPool(ctx, 2)
	pool.Start()

	go func() {
		defer pool.Close()
		for i := 0; i < 8; i++ {
			pool.Submit(&countJob{counter: &counter})
		}
	}()

	done := make(chan []Result, 1)
	go func() { done <- pool.Wait() }()

	select {
	case results := <-done:
		if len(results) != 0 {
			t.Errorf("got %d results under a cancelled context, want 0", len(results))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait blocked under a cancelled context")
	}
	if counter.Load() != 0 {
		t.Errorf("executed %d jobs under a cancelled context, want 0", counter.Load())
	}
}

func TestLimiter_Burst(t *testing.T) {
	l := NewLimiter(1, 2)

	if !l.Allow("openai") {
		t.Error("first call within burst should be admitted")
	}
	if !l.Allow("openai") {
		t.Error("second call within burst should be admitted")
	}
	if l.Allow("openai") {
		t.Error("third immediate call should exceed the burst")
	}

	// Keys are independent buckets.
	if !l.Allow("ollama") {
		t.Error("a different provider key has its own bucket")
	}
}

func TestLimiter_SetRate(t *testing.T) {
	l := NewLimiter(1, 1)
	l.SetRate("openai", 100, 10)

	admitted := 0
	for i := 0; i < 10; i++ {
		if l.Allow("openai") {
			admitted++
		}
	}
	if admitted != 10 {
		t.Errorf("admitted %d calls after SetRate, want 10", admitted)
	}
}

func TestLimiter_WaitRespectsContext(t *testing.T) {
	l := NewLimiter(0.001, 1)
	l.Allow("slow") // Drain the single burst token

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := l.Wait(ctx, "slow"); err == nil {
		t.Error("expected Wait to fail once the context deadline passes")
	}
}
