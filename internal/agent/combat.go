package agent

import (
	"cmp"
	"slices"
	"time"

	"github.com/udisondev/platekeeper/internal/model"
)

// Defensive crouch after taking a hit.
const (
	hitCrouchMin = 100 * time.Millisecond
	hitCrouchMax = 180 * time.Millisecond
)

// startCombat opens a combat session against target.
// Returns false when the entry is rejected.
func (c *Controller) startCombat(target model.Entity, reason EngageReason) bool {
	s := c.state
	if c.isExempt(target.Name) || target.Name == "" || target.Name == c.client.Username() {
		return false
	}
	switch s.Mode {
	case model.ModeDead, model.ModeRecovering:
		return false
	case model.ModeEngaged:
		if IsDebugEnabled() && s.Combat.Target != target.Name {
			c.combatLog.Debug("already engaged", "target", s.Combat.Target, "ignored", target.Name)
		}
		return false
	}

	if s.Mode == model.ModeNavigating || c.planner.IsPathing() {
		c.stopPlanner()
	}
	c.setMode(model.ModeEngaged)

	now := c.clock.Now()
	s.PlateDefense = false
	s.Combat = CombatSession{
		Target:    target.Name,
		Reason:    reason,
		StartedAt: now,
		StrafeDir: 1,
	}
	level := model.ThreatLevelOther
	if reason == ReasonRevenge {
		level = model.ThreatLevelRevenge
	}
	s.Threats.Set(target.Name, level, now)

	c.equipLoadout()
	c.metrics.CombatStarted(string(reason))

	attrs := []any{"target", target.Name, "reason", reason, "threat", level}
	if self, ok := c.selfPosition(); ok {
		attrs = append(attrs, "distance", self.Position.DistanceTo(target.Position))
	}
	c.combatLog.Info("engaging", attrs...)
	return true
}

// combatTick is one 50ms decision of the combat loop.
func (c *Controller) combatTick() {
	s := c.state
	if s.Mode != model.ModeEngaged {
		return
	}
	self, ok := c.selfPosition()
	if !ok {
		return
	}
	cc := c.cfg.Combat
	now := c.clock.Now()

	if c.isExempt(s.Combat.Target) {
		c.stopCombat("target exempt")
		return
	}
	if now.Sub(s.Combat.StartedAt) > cc.MaxSessionTime {
		c.stopCombat("session time limit")
		return
	}
	if s.Combat.Hits > cc.MaxHits {
		c.stopCombat("hit limit")
		return
	}

	target, ok := c.findPlayer(s.Combat.Target)
	if !ok {
		next, found := c.pickTarget(self, cc.ChaseRange)
		if !found {
			c.stopCombat("target lost")
			return
		}
		c.combatLog.Info("retargeting", "from", s.Combat.Target, "to", next.Name)
		s.Combat.Target = next.Name
		s.Combat.Combo = 0
		target = next
	}

	dist := self.Position.DistanceTo(target.Position)
	if dist > cc.ChaseRange {
		c.stopCombat("target out of range")
		return
	}

	c.face(target)
	c.position(self, dist)
	if dist <= cc.AttackRange && c.attackReady(now) {
		c.strike(self, target)
	}
}

// stopCombat closes the session. On the destination the agent holds its
// ground, elsewhere it walks back after a short delay.
func (c *Controller) stopCombat(reason string) {
	s := c.state
	if s.Mode != model.ModeEngaged {
		return
	}
	session := s.Combat
	c.setMode(model.ModeIdle)
	c.metrics.CombatEnded(reason)
	c.combatLog.Info("combat ended",
		"target", session.Target,
		"reason", reason,
		"hits", session.Hits,
		"duration", c.clock.Now().Sub(session.StartedAt).Round(time.Millisecond))

	self, ok := c.selfPosition()
	if s.ReachedTarget || (ok && c.atDestination(self)) {
		s.PlateDefense = true
		s.ReachedTarget = true
		c.combatLog.Info("holding destination")
		return
	}
	c.schedule(c.cfg.Combat.ReleaseDelay, Event{Kind: eventNavigate, walk: walkFresh})
}

// onDamage reacts to a hit from attacker.
func (c *Controller) onDamage(attacker model.Entity) {
	s := c.state
	if c.isExempt(attacker.Name) || s.Dead() {
		return
	}
	now := c.clock.Now()
	s.LastDamage = now
	info := s.Threats.Raise(attacker.Name, model.ThreatHitIncrement, now)
	s.Combat.Combo = 0
	c.metrics.DamageTaken()
	c.combatLog.Info("took damage", "attacker", attacker.Name, "threat", info.Level)

	if !s.InCombat() {
		c.startCombat(attacker, ReasonRevenge)
	}
	if s.InCombat() && c.rng.Float64() < c.cfg.Combat.CrouchAfterHit {
		c.crouch(c.rng.between(hitCrouchMin, hitCrouchMax))
	}
}

// checkPlateThreats engages the opponent on the destination closest to the
// agent. The destination is only defended once the agent stands on it.
func (c *Controller) checkPlateThreats() bool {
	self, ok := c.selfPosition()
	if !ok {
		return false
	}
	if !c.state.ReachedTarget && !c.atDestination(self) {
		return false
	}
	target, ok := c.closestPlateThreat(self)
	if !ok {
		return false
	}
	return c.startCombat(target, ReasonThreat)
}

func (c *Controller) closestPlateThreat(self model.Self) (model.Entity, bool) {
	threats := c.plateThreats()
	if len(threats) == 0 {
		return model.Entity{}, false
	}
	return slices.MinFunc(threats, func(a, b model.Entity) int {
		return cmp.Compare(self.Position.DistanceSquared(a.Position), self.Position.DistanceSquared(b.Position))
	}), true
}

// engagePlateThreat handles a chat report of a player on the destination.
// The server only reports that while the agent holds it, so no arrival
// check applies here.
func (c *Controller) engagePlateThreat() {
	s := c.state
	if s.InCombat() || s.navigationSuppressed() {
		return
	}
	self, ok := c.selfPosition()
	if !ok {
		return
	}
	if p, ok := c.closestPlateThreat(self); ok {
		c.startCombat(p, ReasonPlateDefense)
		return
	}
	if p, ok := c.nearestPlayer(self, c.cfg.Combat.ThreatRange); ok {
		c.startCombat(p, ReasonPlateDefense)
	}
}
