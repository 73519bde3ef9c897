package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type countingRecorder struct {
	mu       sync.Mutex
	failures map[string]int
}

func (c *countingRecorder) OutboxFailed(job string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failures == nil {
		c.failures = map[string]int{}
	}
	c.failures[job]++
}

func (c *countingRecorder) RoundStarted(string)                      {}
func (c *countingRecorder) RoundEnded(string, string, int)           {}
func (c *countingRecorder) AnswerSubmitted(bool)                     {}
func (c *countingRecorder) LeaderboardQueried(string, time.Duration) {}
func (c *countingRecorder) LeaderboardExported(bool)                 {}
func (c *countingRecorder) SetActiveRounds(int)                      {}

func TestOutboxRunsJobsInOrder(t *testing.T) {
	o := NewOutbox(8, nil)
	var order []string
	for _, name := range []string{"create", "complete", "other"} {
		name := name
		o.Enqueue(Job{Name: name, Run: func(context.Context) error {
			order = append(order, name)
			return nil
		}})
	}

	if n := o.Drain(context.Background()); n != 3 {
		t.Fatalf("drained %d, want 3", n)
	}
	if len(order) != 3 || order[0] != "create" || order[1] != "complete" {
		t.Errorf("order = %v", order)
	}
}

func TestOutboxSwallowsFailures(t *testing.T) {
	rec := &countingRecorder{}
	o := NewOutbox(8, rec)
	ran := false
	o.Enqueue(Job{Name: "create_session", Run: func(context.Context) error { return errors.New("db down") }})
	o.Enqueue(Job{Name: "complete_session", Run: func(context.Context) error { ran = true; return nil }})

	o.Drain(context.Background())
	if !ran {
		t.Error("a failing job must not stop later jobs")
	}
	if rec.failures["create_session"] != 1 {
		t.Errorf("failures = %v", rec.failures)
	}
}

func TestOutboxDropsWhenFull(t *testing.T) {
	rec := &countingRecorder{}
	o := NewOutbox(1, rec)
	noop := Job{Name: "noop", Run: func(context.Context) error { return nil }}

	if !o.Enqueue(noop) {
		t.Fatal("first enqueue should fit")
	}
	if o.Enqueue(noop) {
		t.Fatal("second enqueue should be dropped")
	}
	if o.Pending() != 1 || rec.failures["noop"] != 1 {
		t.Errorf("pending=%d failures=%v", o.Pending(), rec.failures)
	}
}

func TestOutboxRunDrainsOnShutdown(t *testing.T) {
	o := NewOutbox(8, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	processed := make(chan string, 4)
	go func() {
		o.Run(ctx)
		close(done)
	}()

	o.Enqueue(Job{Name: "a", Run: func(context.Context) error { processed <- "a"; return nil }})
	select {
	case <-processed:
	case <-time.After(time.Second):
		t.Fatal("job not processed by Run")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestOutboxRefusesJobsAfterStop(t *testing.T) {
	rec := &countingRecorder{}
	o := NewOutbox(8, rec)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		o.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	ran := false
	if o.Enqueue(Job{Name: "complete_session", Run: func(context.Context) error { ran = true; return nil }}) {
		t.Fatal("stopped outbox accepted a job")
	}
	if o.Pending() != 0 || ran {
		t.Errorf("pending=%d ran=%v", o.Pending(), ran)
	}
	if rec.failures["complete_session"] != 1 {
		t.Errorf("refused job not counted: %v", rec.failures)
	}
}

func TestOutboxDrainsJobsQueuedBeforeStop(t *testing.T) {
	o := NewOutbox(8, nil)
	ran := 0
	for i := 0; i < 3; i++ {
		o.Enqueue(Job{Name: "complete_session", Run: func(context.Context) error { ran++; return nil }})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o.Run(ctx)
	if ran != 3 {
		t.Errorf("ran %d of 3 queued jobs", ran)
	}
}
