package reconciler

import (
	"bytes"
	"context"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

type countingResolver struct {
	calls atomic.Int32
	panic bool
}

func (r *countingResolver) Resolve(context.Context) (string, error) {
	n := r.calls.Add(1)
	if r.panic && n == 1 {
		panic("resolver exploded")
	}
	return "5.6.7.8", nil
}

func TestRunCyclesUntilCancelled(t *testing.T) {
	resolver := &countingResolver{}
	engine, _ := newTestEngine(t, resolver, &fakeServices{}, &recordingSyncer{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	state := &State{Observed: "5.6.7.8"}
	go func() { done <- engine.run(ctx, state, 5*time.Millisecond, time.Hour) }()

	deadline := time.After(2 * time.Second)
	for resolver.calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("expected repeated cycles, got %d", resolver.calls.Load())
		case <-time.After(time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}

func TestRunRecoversFromPanic(t *testing.T) {
	resolver := &countingResolver{panic: true}
	engine, _ := newTestEngine(t, resolver, &fakeServices{}, &recordingSyncer{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- engine.run(ctx, &State{}, time.Hour, 5*time.Millisecond) }()

	deadline := time.After(2 * time.Second)
	for resolver.calls.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("expected a cycle after the panic back-off")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	<-done
}

func TestRunRejectsIncompleteEngine(t *testing.T) {
	if err := (&Engine{}).Run(context.Background(), &State{}, time.Minute); err == nil {
		t.Fatal("expected validation error")
	}

	engine, _ := newTestEngine(t, &countingResolver{}, &fakeServices{}, nil)
	if err := engine.Run(context.Background(), &State{}, 0); err == nil {
		t.Fatal("expected interval error")
	}
}

// blockingResolver waits for ctx like a lookup cut off by shutdown.
type blockingResolver struct {
	entered chan struct{}
}

func (r *blockingResolver) Resolve(ctx context.Context) (string, error) {
	close(r.entered)
	<-ctx.Done()
	return "", ctx.Err()
}

func TestRunLogsShutdownMidCycleAsInterrupted(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	resolver := &blockingResolver{entered: make(chan struct{})}
	engine, _ := newTestEngine(t, resolver, &fakeServices{}, &recordingSyncer{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- engine.run(ctx, &State{}, time.Hour, time.Hour) }()

	<-resolver.entered
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancellation")
	}

	out := buf.String()
	if strings.Contains(out, "Reconciliation cycle failed") {
		t.Fatalf("shutdown was logged as a failure:\n%s", out)
	}
	if !strings.Contains(out, "Reconciliation cycle interrupted") {
		t.Fatalf("expected interrupted line, got:\n%s", out)
	}
}
