package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ladder is a bounded retry: action, then an optional wait for
// confirmation, repeated up to attempts times before giving up.
type ladder struct {
	name     string
	attempts int
	// wait is slept before every attempt.
	wait time.Duration

	// confirm, when set, must deliver within confirmWait after a
	// successful action; otherwise the attempt counts as failed.
	confirm     <-chan struct{}
	confirmWait time.Duration

	action func(ctx context.Context) error
}

// run climbs the ladder. Returns nil on the first confirmed attempt,
// ctx.Err() on cancellation, ErrRecoveryExhausted otherwise.
func (l ladder) run(ctx context.Context, clock Clock, log *slog.Logger) error {
	log = log.With("ladder", l.name)
	for attempt := 1; attempt <= l.attempts; attempt++ {
		if l.wait > 0 {
			if err := clock.Sleep(ctx, l.wait); err != nil {
				return err
			}
		}

		log.Info("attempt", "n", attempt, "of", l.attempts)
		err := l.action(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			log.Warn("attempt failed", "n", attempt, "error", err)
			continue
		}
		if l.confirm == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.confirm:
			log.Info("confirmed", "n", attempt)
			return nil
		case <-clock.After(l.confirmWait):
			log.Warn("no confirmation", "n", attempt, "waited", l.confirmWait)
		}
	}
	return fmt.Errorf("%s after %d attempts: %w", l.name, l.attempts, ErrRecoveryExhausted)
}
