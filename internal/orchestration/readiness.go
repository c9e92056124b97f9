package orchestration

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
)

// ErrNotReady is returned by WaitReady when the probe never succeeded.
var ErrNotReady = errors.New("orchestration: service not ready")

// WaitReady calls probe every interval until it succeeds or maxWait elapses.
// It returns how long the service took to become ready.
func WaitReady(ctx context.Context, probe func(context.Context) error, maxWait, interval time.Duration) (time.Duration, error) {
	if interval <= 0 {
		interval = time.Second
	}

	start := time.Now()
	attempts := int(maxWait / interval)
	if attempts < 1 {
		attempts = 1
	}

	for i := 0; i < attempts; i++ {
		if err := probe(ctx); err == nil {
			waited := time.Since(start)
			log.Info("service ready", "waited", waited.Round(time.Millisecond), "attempts", i+1)
			return waited, nil
		}

		select {
		case <-ctx.Done():
			return time.Since(start), ctx.Err()
		case <-time.After(interval):
		}
	}

	log.Warn("service not ready in time", "max_wait", maxWait)
	return time.Since(start), ErrNotReady
}
