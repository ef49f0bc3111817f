package agent

import (
	"time"

	"github.com/udisondev/platekeeper/internal/model"
)

const (
	chaseSlack           = 0.5
	chaseHopChance       = 0.2
	retreatCrouchChance  = 0.2
	hopDuration          = 100 * time.Millisecond
	strafeCrouchDuration = 100 * time.Millisecond
)

// face turns to the target's aim point.
func (c *Controller) face(target model.Entity) {
	ctx, cancel := c.actionContext()
	defer cancel()
	if err := c.client.LookAt(ctx, target.AimPoint(aimLeadTicks)); err != nil && IsDebugEnabled() {
		c.combatLog.Debug("look failed", "target", target.Name, "error", err)
	}
}

// position keeps the distance to the target near the optimal range:
// chase when too far, back off when too close, hold otherwise.
func (c *Controller) position(self model.Self, dist float64) {
	cc := c.cfg.Combat
	ctl := c.client
	switch {
	case dist > cc.OptimalRange+chaseSlack:
		ctl.SetControl(model.ControlBack, false)
		ctl.SetControl(model.ControlForward, true)
		ctl.SetControl(model.ControlSprint, true)
		if self.OnGround && c.rng.Float64() < chaseHopChance {
			c.pulse(hopDuration, model.ControlJump)
		}
	case dist < cc.CriticalRange:
		ctl.SetControl(model.ControlForward, false)
		ctl.SetControl(model.ControlSprint, false)
		ctl.SetControl(model.ControlBack, true)
		if c.rng.Float64() < retreatCrouchChance {
			c.crouch(cc.CrouchDuration)
		}
	default:
		ctl.SetControl(model.ControlForward, false)
		ctl.SetControl(model.ControlBack, false)
		ctl.SetControl(model.ControlSprint, true)
	}
}

// strafeTick is one step of the strafing sub-loop.
func (c *Controller) strafeTick() {
	s := c.state
	if s.Mode != model.ModeEngaged {
		return
	}
	cc := c.cfg.Combat
	if s.Combat.StrafeDir == 0 {
		s.Combat.StrafeDir = 1
	}
	if c.rng.Float64() < cc.StrafeFlip {
		s.Combat.StrafeDir = -s.Combat.StrafeDir
	}
	if c.rng.Float64() >= cc.StrafeChance {
		return
	}

	side := model.ControlLeft
	if s.Combat.StrafeDir < 0 {
		side = model.ControlRight
	}
	c.pulse(cc.StrafeDuration, side)
	if c.rng.Float64() < cc.StrafeCrouch {
		c.crouch(strafeCrouchDuration)
	}
}

// crouch holds sneak for d unless a crouch is already active.
func (c *Controller) crouch(d time.Duration) {
	if c.state.Crouching {
		return
	}
	c.state.Crouching = true
	c.pulse(d, model.ControlSneak)
}

// pulse presses controls and schedules their release after d.
func (c *Controller) pulse(d time.Duration, controls ...model.Control) {
	for _, ctl := range controls {
		c.client.SetControl(ctl, true)
	}
	c.schedule(d, Event{Kind: eventRelease, controls: controls})
}

func (c *Controller) release(controls []model.Control) {
	for _, ctl := range controls {
		c.client.SetControl(ctl, false)
		if ctl == model.ControlSneak {
			c.state.Crouching = false
		}
	}
}
