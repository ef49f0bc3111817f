package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/udisondev/platekeeper/internal/model"
)

// RecoveryKind is the disruption procedure in progress.
type RecoveryKind int

const (
	RecoveryNone RecoveryKind = iota
	// RecoveryKick - kick message seen in chat while still connected
	RecoveryKick
	// RecoveryFullRestart - navigation gave up; rebuild everything from scratch
	RecoveryFullRestart
	// RecoverySpawn - first spawn after connecting
	RecoverySpawn
	// RecoveryRespawn - spawn after death
	RecoveryRespawn
	// RecoveryWarpExit - server rejected the warp command; retry until confirmed
	RecoveryWarpExit
	// RecoveryCompassCooldown - server asked to wait before teleporting again
	RecoveryCompassCooldown
)

func (k RecoveryKind) String() string {
	switch k {
	case RecoveryNone:
		return "none"
	case RecoveryKick:
		return "kick"
	case RecoveryFullRestart:
		return "full_restart"
	case RecoverySpawn:
		return "spawn"
	case RecoveryRespawn:
		return "respawn"
	case RecoveryWarpExit:
		return "warp_exit"
	case RecoveryCompassCooldown:
		return "compass_cooldown"
	default:
		return "unknown"
	}
}

// restarts reports kinds that rebuild navigation from scratch.
func (k RecoveryKind) restarts() bool {
	switch k {
	case RecoveryFullRestart, RecoverySpawn, RecoveryRespawn:
		return true
	}
	return false
}

// primary kinds may preempt an auxiliary ladder; auxiliary ones never preempt.
func (k RecoveryKind) primary() bool {
	return k == RecoveryKick || k.restarts()
}

// afterDeath reports kinds allowed to start while the agent is dead.
func (k RecoveryKind) afterDeath() bool {
	return k == RecoverySpawn || k == RecoveryRespawn
}

// Fixed pauses inside recovery procedures.
const (
	teleportToWarpDelay = 500 * time.Millisecond
	spawnWarpSettle     = 2 * time.Second
	spawnFinalSettle    = time.Second
)

// startRecovery runs the procedure for kind in a helper goroutine.
// At most one procedure runs at a time. Returns false when rejected.
func (c *Controller) startRecovery(kind RecoveryKind, reason string) bool {
	s := c.state
	log := c.recoveryLog.With("kind", kind, "reason", reason)

	if s.Mode == model.ModeDead && !kind.afterDeath() {
		log.Info("recovery skipped, agent is dead")
		return false
	}
	if s.Mode == model.ModeRecovering {
		switch {
		case s.Recovery == kind:
			if IsDebugEnabled() {
				log.Debug("recovery already running")
			}
			return false
		case !kind.primary() || s.Recovery.primary():
			log.Info("recovery rejected, another one is running", "running", s.Recovery)
			return false
		}
		log.Info("preempting recovery", "running", s.Recovery)
		c.recCancel()
		c.recCancel = nil
		c.metrics.RecoveryFinished(s.Recovery.String(), "preempted")
	}

	if kind == RecoveryWarpExit {
		s.WarpExitConfirmed = false
		select {
		case <-c.warpConfirm:
		default:
		}
	}

	c.setMode(model.ModeRecovering)
	s.Recovery = kind
	c.recGen++
	gen := c.recGen
	ctx, cancel := context.WithCancel(c.ctx)
	c.recCancel = cancel

	log.Warn("recovery started")
	c.metrics.RecoveryStarted(kind.String())

	proc := c.procedure(kind)
	c.goHelper(func() {
		err := proc(ctx)
		c.Post(Event{Kind: eventRecoveryDone, gen: gen, recovery: kind, err: err})
	})
	return true
}

// onRecoveryDone resumes normal operation after the current procedure.
func (c *Controller) onRecoveryDone(gen uint64, kind RecoveryKind, err error) {
	s := c.state
	if gen != c.recGen || s.Mode != model.ModeRecovering {
		if IsDebugEnabled() {
			c.recoveryLog.Debug("stale recovery result dropped", "kind", kind, "gen", gen, "current", c.recGen)
		}
		return
	}

	outcome := "ok"
	switch {
	case err == nil:
		c.recoveryLog.Info("recovery finished", "kind", kind)
	case errors.Is(err, context.Canceled):
		outcome = "cancelled"
	case errors.Is(err, ErrRecoveryExhausted):
		outcome = "exhausted"
		c.recoveryLog.Warn("recovery gave up", "kind", kind, "error", err)
	default:
		outcome = "failed"
		c.recoveryLog.Warn("recovery failed", "kind", kind, "error", err)
	}
	c.metrics.RecoveryFinished(kind.String(), outcome)

	c.setMode(model.ModeIdle)
	if !kind.primary() {
		return
	}

	s.resetNavigation()
	s.HasSnapshot = false
	if self, ok := c.selfPosition(); ok {
		s.takeSnapshot(self.Position, c.distanceToDestination(self))
	}
	s.LastMoveAttempt = c.clock.Now()

	if kind == RecoverySpawn || kind == RecoveryRespawn {
		c.walkToDestination(walkFresh)
		return
	}
	c.schedule(c.cfg.Navigation.ResumeDelay, Event{Kind: eventNavigate, walk: walkFresh})
}

// procedure returns the body for kind. Bodies run in a helper goroutine:
// they use the client, planner and clock only and never touch State.
func (c *Controller) procedure(kind RecoveryKind) func(context.Context) error {
	switch kind {
	case RecoveryKick:
		return c.recoverFromKick
	case RecoveryFullRestart:
		return c.fullRestart
	case RecoverySpawn:
		return func(ctx context.Context) error { return c.spawnSequence(ctx, false) }
	case RecoveryRespawn:
		return func(ctx context.Context) error { return c.spawnSequence(ctx, true) }
	case RecoveryWarpExit:
		return c.retryWarpExit
	case RecoveryCompassCooldown:
		return c.retryTeleportAfterCooldown
	}
	return func(context.Context) error { return nil }
}

func (c *Controller) recoverFromKick(ctx context.Context) error {
	r := c.cfg.Recovery
	c.haltMovement(ctx)
	if err := c.clock.Sleep(ctx, r.KickSettle); err != nil {
		return err
	}
	c.useTeleportItem(ctx)
	if err := c.clock.Sleep(ctx, teleportToWarpDelay); err != nil {
		return err
	}
	if err := c.sendWarpExit(ctx); err != nil {
		return err
	}
	return c.clock.Sleep(ctx, r.WorldStabilize)
}

func (c *Controller) fullRestart(ctx context.Context) error {
	r := c.cfg.Recovery
	c.metrics.FullRestart()
	c.haltMovement(ctx)
	if err := c.clock.Sleep(ctx, r.RestartSettle); err != nil {
		return err
	}
	c.useTeleportItem(ctx)
	if err := c.sendWarpExit(ctx); err != nil {
		return err
	}
	if err := c.clock.Sleep(ctx, r.WorldStabilize); err != nil {
		return err
	}
	return c.configurePlanner(ctx)
}

// spawnSequence prepares a freshly spawned body: settle, teleport out of
// the spawn area and re-apply planner movement rules.
func (c *Controller) spawnSequence(ctx context.Context, respawn bool) error {
	r := c.cfg.Recovery
	if respawn {
		if err := c.clock.Sleep(ctx, r.RespawnDelay); err != nil {
			return err
		}
	}
	if err := c.waitChunks(ctx); err != nil {
		return err
	}
	if err := c.clock.Sleep(ctx, r.SpawnSettle); err != nil {
		return err
	}

	c.haltMovement(ctx)
	c.useTeleportItem(ctx)
	// Warp is optional here: the spawn point may already be outside.
	if err := c.sendWarpExit(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.recoveryLog.Warn("warp exit after spawn failed", "error", err)
	}
	if err := c.clock.Sleep(ctx, spawnWarpSettle); err != nil {
		return err
	}
	if err := c.waitChunks(ctx); err != nil {
		return err
	}
	if err := c.clock.Sleep(ctx, spawnFinalSettle); err != nil {
		return err
	}
	return c.configurePlanner(ctx)
}

func (c *Controller) retryWarpExit(ctx context.Context) error {
	r := c.cfg.Recovery
	l := ladder{
		name:        "warp exit",
		attempts:    r.WarpRetryAttempts,
		confirm:     c.warpConfirm,
		confirmWait: r.WarpConfirmWait,
		action: func(ctx context.Context) error {
			c.useTeleportItem(ctx)
			return c.sendWarpExit(ctx)
		},
	}
	return l.run(ctx, c.clock, c.recoveryLog)
}

func (c *Controller) retryTeleportAfterCooldown(ctx context.Context) error {
	r := c.cfg.Recovery
	l := ladder{
		name:     "teleport after cooldown",
		attempts: r.CooldownAttempts,
		wait:     r.CooldownWait,
		action: func(ctx context.Context) error {
			if !c.useTeleportItem(ctx) {
				return errTeleportFailed
			}
			return nil
		},
	}
	return l.run(ctx, c.clock, c.recoveryLog)
}

// haltMovement force-stops the planner and releases every control.
func (c *Controller) haltMovement(ctx context.Context) {
	if err := c.planner.Stop(ctx); err != nil && IsDebugEnabled() {
		c.recoveryLog.Debug("planner stop failed", "error", err)
	}
	c.client.ClearControls()
}

func (c *Controller) configurePlanner(ctx context.Context) error {
	if err := c.planner.Configure(ctx, c.cfg.Planner); err != nil {
		return fmt.Errorf("configuring planner: %w", err)
	}
	return nil
}

// waitChunks only fails on cancellation; a chunk wait error is not fatal.
func (c *Controller) waitChunks(ctx context.Context) error {
	if err := c.client.WaitForChunks(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.recoveryLog.Warn("waiting for chunks failed", "error", err)
	}
	return nil
}
