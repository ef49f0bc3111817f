package agent

import (
	"math"

	"github.com/udisondev/platekeeper/internal/model"
)

// monitorsIdle reports whether the monitors have nothing to arbitrate.
func (c *Controller) monitorsIdle() bool {
	switch c.state.Mode {
	case model.ModeDead, model.ModeRecovering, model.ModeEngaged:
		return true
	}
	return false
}

// checkStagnation compares the agent's movement with the previous sample and
// drives the escalation ladder while it should be moving but is not.
func (c *Controller) checkStagnation() {
	s := c.state
	if c.monitorsIdle() || s.ReachedTarget {
		return
	}
	self, ok := c.selfPosition()
	if !ok {
		return
	}
	pos := self.Position
	dist := c.distanceToDestination(self)
	if !s.HasSnapshot {
		s.takeSnapshot(pos, dist)
		return
	}

	eps := c.cfg.Navigation.Epsilon
	moved := pos.DistanceTo(s.LastPosition)
	distChange := math.Abs(dist - s.LastDistance)
	shouldMove := c.planner.IsPathing() || s.Mode == model.ModeNavigating
	atDest := c.atDestination(self)

	switch {
	case shouldMove && moved < eps && distChange < eps && !atDest:
		s.PathingStuck++
		c.navLog.Info("no progress", "count", s.PathingStuck, "restart_at", c.cfg.Navigation.RestartRung)
		if c.climbLadder(self) {
			return
		}
	case moved > eps || distChange > eps:
		s.PathingStuck = 0
		s.IdleStuck = 0
		s.Rung = rungNone
	}

	if !shouldMove && !atDest {
		s.IdleStuck++
		if s.IdleStuck >= c.cfg.Navigation.MaxIdleTicks {
			s.IdleStuck = 0
			c.navLog.Info("standing idle away from destination, walking")
			c.walkToDestination(walkFresh)
		}
	}

	s.takeSnapshot(pos, dist)
}

// climbLadder fires the next rung for the current stagnation count.
// Every rung fires at most once per episode, in order: jump, reissue, restart.
// Returns true when control left navigation.
func (c *Controller) climbLadder(self model.Self) bool {
	s := c.state
	n := c.cfg.Navigation
	switch {
	case s.PathingStuck >= n.RestartRung:
		s.PathingStuck = 0
		s.Rung = rungNone
		c.metrics.Rung("restart")
		c.startRecovery(RecoveryFullRestart, "stagnation")
		return true
	case s.PathingStuck >= n.ReissueRung && s.Rung < rungReissued:
		s.Rung = rungReissued
		c.metrics.Rung("reissue")
		c.reissueGoal()
		return true
	case s.PathingStuck >= n.JumpRung && s.Rung < rungJumped:
		s.Rung = rungJumped
		if self.OnGround {
			c.navLog.Info("stagnating, trying a jump")
			c.metrics.Rung("jump")
			c.pulse(n.JumpDuration, model.ControlJump)
		}
	}
	return false
}

// checkArrival keeps the destination: defends it, marks arrival, and
// re-triggers navigation after drift or idleness.
func (c *Controller) checkArrival() {
	s := c.state
	if c.monitorsIdle() {
		return
	}
	if c.checkPlateThreats() {
		return
	}
	self, ok := c.selfPosition()
	if !ok {
		return
	}

	hDist := c.horizontalDistance(self)
	if hDist <= c.cfg.Destination.Tolerance {
		if !s.ReachedTarget {
			c.navLog.Info("destination reached")
			s.ReachedTarget = true
			s.PathingStuck = 0
			s.Rung = rungNone
			c.stopPlanner()
		}
		return
	}

	if s.ReachedTarget && hDist > c.driftLimit() {
		c.navLog.Info("drifted away from destination", "distance", hDist)
		s.ReachedTarget = false
		c.walkToDestination(walkFresh)
		return
	}

	if !s.ReachedTarget && !c.planner.IsPathing() && s.Mode != model.ModeNavigating {
		now := c.clock.Now()
		if now.Sub(s.LastMoveAttempt) > c.cfg.Navigation.RetryInterval {
			s.LastMoveAttempt = now
			c.walkToDestination(walkFresh)
		}
	}
}
