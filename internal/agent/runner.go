package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/udisondev/platekeeper/internal/config"
	"github.com/udisondev/platekeeper/internal/metrics"
)

// Dialer opens a new world session.
type Dialer func(ctx context.Context) (Session, error)

// Runner keeps the agent connected: every session gets a fresh controller
// and State, and a lost session is redialed after a random delay.
type Runner struct {
	cfg  config.Agent
	dial Dialer
	opts []Option

	clock   Clock
	rng     *lockedRand
	metrics *metrics.Agent
	log     *slog.Logger

	mu      sync.Mutex
	current *Controller
}

// NewRunner creates a runner. opts are applied to every controller it builds.
func NewRunner(cfg config.Agent, dial Dialer, opts ...Option) *Runner {
	// Resolve clock, rand, metrics and logger the way a controller would.
	probe := &Controller{clock: realClock{}}
	probe.setLogger(slog.Default())
	for _, opt := range opts {
		opt(probe)
	}
	if probe.rng == nil {
		probe.rng = newLockedRand(nil)
	}
	return &Runner{
		cfg:     cfg,
		dial:    dial,
		opts:    opts,
		clock:   probe.clock,
		rng:     probe.rng,
		metrics: probe.metrics,
		log:     probe.log.With("component", "runner"),
	}
}

// Run connects, runs sessions and reconnects until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	rc := r.cfg.Reconnect
	for {
		if err := r.clock.Sleep(ctx, rc.InitialDelay); err != nil {
			return nil
		}

		err := r.runSession(ctx)
		if ctx.Err() != nil {
			return nil
		}

		delay := r.rng.between(rc.MinDelay, rc.MaxDelay)
		r.log.Warn("session ended, reconnecting", "error", err, "delay", delay)
		r.metrics.Reconnect()
		if err := r.clock.Sleep(ctx, delay); err != nil {
			return nil
		}
	}
}

func (r *Runner) runSession(ctx context.Context) error {
	sess, err := r.dial(ctx)
	if err != nil {
		return fmt.Errorf("dialing world: %w", err)
	}
	defer func() {
		if err := sess.Close(); err != nil {
			r.log.Debug("closing session", "error", err)
		}
	}()

	ctrl := NewController(r.cfg, sess, sess, r.opts...)
	r.setCurrent(ctrl)
	defer r.setCurrent(nil)

	r.metrics.SessionStarted()
	r.log.Info("session started", "username", sess.Username())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ctrl.Run(gctx)
	})
	g.Go(func() error {
		if err := sess.Serve(gctx, ctrl.Post); err != nil {
			return err
		}
		return ErrDisconnected
	})
	err = g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() == nil {
		err = ErrDisconnected
	}
	return err
}

func (r *Runner) setCurrent(c *Controller) {
	r.mu.Lock()
	r.current = c
	r.mu.Unlock()
}

// Input forwards an operator line to the live controller.
func (r *Runner) Input(line string) {
	r.mu.Lock()
	c := r.current
	r.mu.Unlock()
	if c == nil {
		r.log.Info("console: not connected")
		return
	}
	c.Post(Event{Kind: EventOperatorInput, Text: line})
}
