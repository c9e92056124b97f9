package reconciler

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultPanicBackoff is the pause after a cycle panicked.
const DefaultPanicBackoff = time.Minute

// Run cycles immediately, then once per interval until ctx is done. A cycle
// never overlaps the next one.
func (e *Engine) Run(ctx context.Context, state *State, interval time.Duration) error {
	return e.run(ctx, state, interval, DefaultPanicBackoff)
}

func (e *Engine) run(ctx context.Context, state *State, interval, backoff time.Duration) error {
	if err := e.validate(); err != nil {
		return err
	}
	if interval <= 0 {
		return fmt.Errorf("reconciler: interval must be positive, got %s", interval)
	}

	log.Info("WAN address monitor started", "interval", interval, "service", e.Service)

	for {
		wait := interval
		if !e.safeCycle(ctx, state) {
			wait = backoff
		}

		select {
		case <-ctx.Done():
			log.Info("WAN address monitor stopping")
			return nil
		case <-time.After(wait):
		}
	}
}

func (e *Engine) safeCycle(ctx context.Context, state *State) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Reconciliation cycle panicked", "panic", r)
			ok = false
		}
	}()

	outcome := e.RunCycle(ctx, state)
	if outcome.Kind == KindFailed && ctx.Err() != nil {
		log.Info("Reconciliation cycle interrupted", "stage", outcome.Stage)
		return true
	}
	outcome.Log()
	return true
}
