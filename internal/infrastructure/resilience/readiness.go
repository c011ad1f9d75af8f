package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// WaitReady polls probe until it succeeds, making at most attempts calls
// spaced by wait. The last probe error is returned on exhaustion.
func WaitReady(ctx context.Context, name string, attempts int, wait time.Duration, probe func(context.Context) error) error {
	if attempts <= 0 {
		attempts = 1
	}
	exec := NewExecutor(FixedConfig(attempts, wait))

	start := time.Now()
	err := exec.Execute(ctx, name, probe, RetryAll)
	if err != nil {
		return fmt.Errorf("%s not ready after %d attempts: %w", name, attempts, err)
	}
	slog.Info("dependency_ready", "dependency", name, "waited_ms", time.Since(start).Milliseconds())
	return nil
}
