package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/udisondev/platekeeper/internal/model"
)

// walkMode tells walkToDestination whether a stagnation episode continues.
type walkMode int

const (
	walkFresh walkMode = iota
	// walkReissue keeps the stagnation counter: the ladder is still climbing.
	walkReissue
)

var errFallbackFailed = errors.New("horizontal fallback goal failed")

// walkToDestination issues a goal to the planner unless navigation is
// suppressed, a goal is already in flight, or the agent is already there.
func (c *Controller) walkToDestination(mode walkMode) {
	s := c.state
	if s.navigationSuppressed() {
		return
	}
	self, ok := c.selfPosition()
	if !ok {
		return
	}
	if c.atDestination(self) {
		s.ReachedTarget = true
		if s.Mode == model.ModeNavigating {
			c.setMode(model.ModeIdle)
		}
		return
	}
	if s.Mode == model.ModeNavigating || c.planner.IsPathing() {
		return
	}

	s.ReachedTarget = false
	s.PlateDefense = false
	s.LastMoveAttempt = c.clock.Now()
	if mode == walkFresh {
		s.PathingStuck = 0
		s.Rung = rungNone
	}
	s.LastDistance = c.distanceToDestination(self)

	c.setMode(model.ModeNavigating)
	c.navGen++
	gen := c.navGen
	ctx, cancel := context.WithCancel(c.ctx)
	c.navCancel = cancel

	goal := model.NearGoal(c.dest, c.cfg.Destination.Tolerance)
	c.navLog.Info("walking to destination",
		"goal", goal,
		"distance", fmt.Sprintf("%.1f", s.LastDistance),
		"reissue", mode == walkReissue)

	c.goHelper(func() {
		err := c.navigate(ctx, goal)
		c.Post(Event{Kind: eventNavDone, gen: gen, err: err})
	})
}

// navigate runs in a helper goroutine and must not touch State.
func (c *Controller) navigate(ctx context.Context, goal model.Goal) error {
	if err := c.client.WaitForChunks(ctx); err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	if err := c.clock.Sleep(ctx, c.cfg.Navigation.SettleDelay); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.metrics.GoalIssued(goal.Kind.String())
	err := c.planner.Goto(ctx, goal)

	switch classifyPlanError(err) {
	case planNoRoute:
		c.navLog.Info("no route, trying horizontal goal")
		if err := ctx.Err(); err != nil {
			return err
		}
		fallback := model.XZGoal(c.dest.X, c.dest.Z)
		c.metrics.GoalIssued(fallback.Kind.String())
		if err := c.planner.Goto(ctx, fallback); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: %v", errFallbackFailed, err)
		}
		return nil
	case planTransient:
		// Missing chunk data is expected near the destination; hold the
		// episode open for a moment so the monitors do not re-issue at once.
		if sleepErr := c.clock.Sleep(ctx, c.cfg.Navigation.TransientBackoff); sleepErr != nil {
			return sleepErr
		}
		return err
	}
	return err
}

// onNavDone closes a navigation episode. Results of superseded episodes are dropped.
func (c *Controller) onNavDone(gen uint64, err error) {
	s := c.state
	if gen != c.navGen || s.Mode != model.ModeNavigating {
		if IsDebugEnabled() {
			c.navLog.Debug("stale navigation result dropped", "gen", gen, "current", c.navGen, "error", err)
		}
		return
	}
	c.setMode(model.ModeIdle)

	if errors.Is(err, errFallbackFailed) {
		c.metrics.NavOutcome("fallback_failed")
		c.navLog.Warn("horizontal goal failed, restarting", "error", err)
		c.startRecovery(RecoveryFullRestart, "no route even to horizontal goal")
		return
	}

	outcome := classifyPlanError(err)
	c.metrics.NavOutcome(outcome.String())
	switch outcome {
	case planReached:
		if self, ok := c.selfPosition(); ok && c.atDestination(self) {
			s.ReachedTarget = true
			c.navLog.Info("destination reached")
		}
	case planTransient:
		if IsDebugEnabled() {
			c.navLog.Debug("transient planner error", "error", err)
		}
	case planCancelled:
	default:
		c.navLog.Warn("navigation failed", "error", err)
	}
}

// reissueGoal hard-stops the planner and walks again shortly after.
func (c *Controller) reissueGoal() {
	c.navLog.Warn("stagnating, reissuing goal", "count", c.state.PathingStuck)
	c.stopPlanner()
	c.schedule(c.cfg.Navigation.ReissueDelay, Event{Kind: eventNavigate, walk: walkReissue})
}
