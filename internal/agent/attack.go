package agent

import (
	"time"

	"github.com/udisondev/platekeeper/internal/model"
)

// attackVariant is the movement pattern wrapped around one swing.
type attackVariant int

const (
	attackPlain attackVariant = iota
	attackForwardFeint
	attackBackwardFeint
	attackCritical
)

func (v attackVariant) String() string {
	switch v {
	case attackForwardFeint:
		return "w_tap"
	case attackBackwardFeint:
		return "s_tap"
	case attackCritical:
		return "critical"
	default:
		return "plain"
	}
}

// Variant roll thresholds, cumulative.
const (
	forwardFeintRoll  = 0.35
	backwardFeintRoll = 0.55
	criticalRoll      = 0.75
	preCrouchRoll     = 0.15
	comboCriticalEach = 4
)

const (
	preCrouchDuration = 80 * time.Millisecond
	critJumpHold      = 50 * time.Millisecond
	critRiseDelay     = 150 * time.Millisecond
	critFallPoll      = 10 * time.Millisecond
	critFallCap       = 250 * time.Millisecond
	wTapRecover       = 30 * time.Millisecond
	aimLeadTicks      = 2
)

// fallingVelocity is the vertical speed below which the agent is falling.
const fallingVelocity = -0.08

// weaponCooldown is the attack cooldown of the held item plus buffer.
func (c *Controller) weaponCooldown() time.Duration {
	cc := c.cfg.Combat
	cd := cc.DefaultCooldown
	if held, ok := c.client.HeldItem(); ok {
		if d, found := cc.WeaponCooldowns[held.Name]; found {
			cd = d
		}
	}
	return cd + cc.CooldownBuffer
}

// attackReady is the single gate on attack frequency.
func (c *Controller) attackReady(now time.Time) bool {
	last := c.state.Combat.LastAttack
	return last.IsZero() || now.Sub(last) >= c.weaponCooldown()
}

// chooseVariant rolls the attack pattern. Every fourth swing of a combo is a
// critical when the agent stands on the ground.
func (c *Controller) chooseVariant(self model.Self) (attackVariant, float64) {
	if c.state.Combat.Combo%comboCriticalEach == comboCriticalEach-1 && self.OnGround {
		return attackCritical, 1
	}
	roll := c.rng.Float64()
	switch {
	case roll < forwardFeintRoll:
		return attackForwardFeint, roll
	case roll < backwardFeintRoll:
		return attackBackwardFeint, roll
	case roll < criticalRoll && self.OnGround:
		return attackCritical, roll
	default:
		return attackPlain, roll
	}
}

// strike performs one gated attack with the chosen variant.
func (c *Controller) strike(self model.Self, target model.Entity) {
	s := c.state
	variant, roll := c.chooseVariant(self)
	if roll < preCrouchRoll {
		c.crouch(preCrouchDuration)
	}

	if variant == attackCritical && !c.jumpForCritical() {
		return
	}
	if variant == attackForwardFeint {
		c.wTapRelease()
		defer c.wTapRestore()
	}

	ctx, cancel := c.actionContext()
	defer cancel()
	if err := c.client.Attack(ctx, target.ID); err != nil {
		if IsDebugEnabled() {
			c.combatLog.Debug("attack failed", "target", target.Name, "error", err)
		}
		return
	}
	s.Combat.LastAttack = c.clock.Now()
	s.Combat.Hits++
	s.Combat.Combo++
	c.metrics.Attack(variant.String())
	if IsDebugEnabled() {
		c.combatLog.Debug("attack", "target", target.Name, "variant", variant, "combo", s.Combat.Combo)
	}

	if variant == attackBackwardFeint {
		c.sTap()
	}
}

// jumpForCritical jumps and waits until the agent falls, at most
// critFallCap, so the swing lands as a critical.
func (c *Controller) jumpForCritical() bool {
	if self, ok := c.client.Self(); ok && self.OnGround {
		c.client.SetControl(model.ControlJump, true)
		ok := c.sleep(critJumpHold)
		c.client.SetControl(model.ControlJump, false)
		if !ok || !c.sleep(critRiseDelay) {
			return false
		}
	}
	for waited := time.Duration(0); waited < critFallCap; waited += critFallPoll {
		if self, ok := c.client.Self(); ok && self.Velocity.Y <= fallingVelocity {
			return true
		}
		if !c.sleep(critFallPoll) {
			return false
		}
	}
	return true
}

// wTapRelease sometimes drops forward and sprint before a swing to reset
// sprint knockback.
func (c *Controller) wTapRelease() {
	cc := c.cfg.Combat
	if c.rng.Float64() >= cc.WTapChance {
		return
	}
	c.client.SetControl(model.ControlForward, false)
	c.client.SetControl(model.ControlSprint, false)
	c.sleep(cc.WTapDuration)
}

// wTapRestore resumes forward sprinting after the swing.
func (c *Controller) wTapRestore() {
	c.sleep(wTapRecover)
	c.client.SetControl(model.ControlForward, true)
	c.client.SetControl(model.ControlSprint, true)
}

// sTap steps back after a hit.
func (c *Controller) sTap() {
	cc := c.cfg.Combat
	if c.rng.Float64() >= cc.STapChance {
		return
	}
	c.client.SetControl(model.ControlForward, false)
	c.client.SetControl(model.ControlBack, true)
	c.sleep(cc.STapDuration)
	c.client.SetControl(model.ControlBack, false)
	c.client.SetControl(model.ControlForward, true)
}
