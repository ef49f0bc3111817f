package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/platekeeper/internal/model"
	"github.com/udisondev/platekeeper/internal/testutil"
)

func TestStartCombatNeverTargetsExempt(t *testing.T) {
	h := newHarness(t)
	friend := player(5, "Friend", near(testStart, 2))
	h.client.SetPlayers(friend)

	assert.False(t, h.c.startCombat(friend, ReasonThreat))
	assert.False(t, h.c.startCombat(friend, ReasonRevenge))
	h.c.onDamage(friend)
	h.c.onHurt(1)

	assert.Equal(t, model.ModeIdle, h.state().Mode)
	assert.False(t, h.state().Threats.Has("Friend"))
	assert.Empty(t, h.client.Attacks())
}

func TestStartCombatPreemptsNavigation(t *testing.T) {
	h := newHarness(t)
	h.planner.SetBlock(true)
	h.c.walkToDestination(walkFresh)
	h.waitInFlight(1)

	require.True(t, h.c.startCombat(player(7, "Griefer", near(testStart, 2)), ReasonThreat))

	s := h.state()
	assert.Equal(t, model.ModeEngaged, s.Mode)
	assert.True(t, s.InCombat())
	assert.False(t, s.Traveling())
	assert.GreaterOrEqual(t, h.planner.Stops(), 1)
	assert.True(t, h.c.loops.combat.running())
	assert.True(t, h.c.loops.strafe.running())
	assert.False(t, h.c.loops.stuck.running())
	assert.False(t, h.c.loops.movement.running())
}

func TestStartCombatReentryIsNoop(t *testing.T) {
	h := newHarness(t)
	griefer := player(7, "Griefer", near(testStart, 2))

	require.True(t, h.c.startCombat(griefer, ReasonThreat))
	started := h.state().Combat.StartedAt
	h.clock.Advance(time.Second)

	assert.False(t, h.c.startCombat(griefer, ReasonThreat))
	assert.False(t, h.c.startCombat(player(8, "Other", near(testStart, 3)), ReasonThreat))
	assert.Equal(t, started, h.state().Combat.StartedAt)
	assert.Equal(t, "Griefer", h.state().Combat.Target)
}

func TestStartCombatRejected(t *testing.T) {
	tests := []struct {
		name string
		mode model.Mode
	}{
		{"dead", model.ModeDead},
		{"recovering", model.ModeRecovering},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.c.setMode(tt.mode)

			assert.False(t, h.c.startCombat(player(7, "Griefer", near(testStart, 2)), ReasonThreat))
			assert.Equal(t, tt.mode, h.state().Mode)
		})
	}
}

func TestThreatLevels(t *testing.T) {
	h := newHarness(t)
	s := h.state()

	require.True(t, h.c.startCombat(player(7, "Griefer", near(testStart, 2)), ReasonThreat))
	assert.Equal(t, model.ThreatLevelOther, s.Threats.Level("Griefer"))

	h.c.onDamage(player(7, "Griefer", near(testStart, 2)))
	assert.Equal(t, model.ThreatLevelOther+model.ThreatHitIncrement, s.Threats.Level("Griefer"))

	for range 5 {
		h.c.onDamage(player(7, "Griefer", near(testStart, 2)))
	}
	assert.Equal(t, model.ThreatLevelMax, s.Threats.Level("Griefer"))
}

func TestDamageStartsRevenge(t *testing.T) {
	h := newHarness(t)
	h.client.SetPlayers(player(9, "Attacker", near(testStart, 3)))

	h.c.onHurt(1)

	s := h.state()
	require.Equal(t, model.ModeEngaged, s.Mode)
	assert.Equal(t, "Attacker", s.Combat.Target)
	assert.Equal(t, ReasonRevenge, s.Combat.Reason)
	assert.Equal(t, model.ThreatLevelRevenge, s.Threats.Level("Attacker"))
	assert.Equal(t, h.clock.Now(), s.LastDamage)
}

func TestHurtOfOtherEntityIgnored(t *testing.T) {
	h := newHarness(t)
	h.client.SetPlayers(player(9, "Attacker", near(testStart, 3)))

	h.c.onHurt(9)

	assert.Equal(t, model.ModeIdle, h.state().Mode)
}

func TestHurtFromOutOfReachIgnored(t *testing.T) {
	h := newHarness(t)
	h.client.SetPlayers(player(9, "Archer", near(testStart, 12)))

	h.c.onHurt(1)

	assert.Equal(t, model.ModeIdle, h.state().Mode)
}

func TestHealthDropRoutesToDamageOutsideCombat(t *testing.T) {
	h := newHarness(t)
	h.client.SetPlayers(player(9, "Attacker", near(testStart, 2)))

	h.c.onHealth(20)
	assert.Equal(t, model.ModeIdle, h.state().Mode, "no drop")

	h.c.onHealth(17)
	require.Equal(t, model.ModeEngaged, h.state().Mode)
	level := h.state().Threats.Level("Attacker")

	h.c.onHealth(12)
	assert.Equal(t, level, h.state().Threats.Level("Attacker"), "engaged: health drops are not damage")
	assert.Equal(t, 12.0, h.state().LastHealth)
}

func TestDamageCrouchesDefensively(t *testing.T) {
	h := newHarness(t)
	attacker := player(9, "Attacker", near(testStart, 2))
	h.client.SetPlayers(attacker)
	h.rng.Push(0.1)

	h.c.onDamage(attacker)

	assert.True(t, h.state().Crouching)
	assert.True(t, h.client.Control(model.ControlSneak))

	h.clock.Advance(hitCrouchMax)
	h.drainNow()
	assert.False(t, h.state().Crouching)
	assert.False(t, h.client.Control(model.ControlSneak))
}

func TestAttackRateBound(t *testing.T) {
	h := newHarness(t)
	target := player(9, "Target", near(testStart, 2.5))
	h.client.SetPlayers(target)
	h.client.SetInventory(model.Item{Name: "diamond_sword", Slot: 36, Count: 1})
	require.True(t, h.c.startCombat(target, ReasonThreat))

	for range 80 {
		h.clock.Advance(h.cfg.Combat.TickInterval)
		h.c.combatTick()
		h.drainNow()
	}

	attacks := h.client.Attacks()
	require.GreaterOrEqual(t, len(attacks), 3)
	minGap := h.cfg.Combat.WeaponCooldowns["diamond_sword"] + h.cfg.Combat.CooldownBuffer
	for i := 1; i < len(attacks); i++ {
		assert.GreaterOrEqual(t, attacks[i].At.Sub(attacks[i-1].At), minGap, "attack %d", i)
		assert.Equal(t, int64(9), attacks[i].EntityID)
	}
	assert.Equal(t, len(attacks), h.state().Combat.Hits)
}

func TestEveryFourthSwingIsCritical(t *testing.T) {
	h := newHarness(t)
	self, _ := h.client.Self()
	h.state().Combat.Combo = 3

	variant, _ := h.c.chooseVariant(self)

	assert.Equal(t, attackCritical, variant)
	assert.Equal(t, 0, h.rng.Calls(), "forced critical does not roll")
}

func TestChooseVariant(t *testing.T) {
	tests := []struct {
		name     string
		roll     float64
		onGround bool
		want     attackVariant
	}{
		{"forward feint", 0.10, true, attackForwardFeint},
		{"forward feint upper", 0.34, true, attackForwardFeint},
		{"backward feint", 0.40, true, attackBackwardFeint},
		{"critical grounded", 0.60, true, attackCritical},
		{"critical airborne is plain", 0.60, false, attackPlain},
		{"plain", 0.90, true, attackPlain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.rng.Push(tt.roll)
			self, _ := h.client.Self()
			self.OnGround = tt.onGround

			got, roll := h.c.chooseVariant(self)

			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.roll, roll)
		})
	}
}

func TestStrikeCrouchesOnLowRoll(t *testing.T) {
	h := newHarness(t)
	target := player(9, "Target", near(testStart, 2))
	h.client.SetPlayers(target)
	require.True(t, h.c.startCombat(target, ReasonThreat))
	self, _ := h.client.Self()
	h.rng.Push(0.1)

	h.c.strike(self, target)

	assert.True(t, h.state().Crouching)
	assert.Len(t, h.client.Attacks(), 1)
}

func TestForwardFeintReleasesBeforeSwing(t *testing.T) {
	h := newHarness(t)
	target := player(9, "Target", near(testStart, 2))
	h.client.SetPlayers(target)
	require.True(t, h.c.startCombat(target, ReasonThreat))
	h.client.SetControl(model.ControlForward, true)
	h.client.SetControl(model.ControlSprint, true)

	var forwardAtSwing, sprintAtSwing bool
	h.client.OnAttack = func(int64) {
		forwardAtSwing = h.client.Control(model.ControlForward)
		sprintAtSwing = h.client.Control(model.ControlSprint)
	}
	self, _ := h.client.Self()
	h.rng.Push(0.2, 0)

	h.c.strike(self, target)

	require.Len(t, h.client.Attacks(), 1)
	assert.False(t, forwardAtSwing)
	assert.False(t, sprintAtSwing)
	assert.True(t, h.client.Control(model.ControlForward))
	assert.True(t, h.client.Control(model.ControlSprint))
}

func TestCriticalWaitsForFall(t *testing.T) {
	tests := []struct {
		name     string
		velocity float64
		want     time.Duration
	}{
		{"falling after rise", -0.3, critJumpHold + critRiseDelay},
		{"capped when not falling", 0, critJumpHold + critRiseDelay + critFallCap},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			target := player(9, "Target", near(testStart, 2))
			h.client.SetPlayers(target)
			require.True(t, h.c.startCombat(target, ReasonThreat))
			h.client.SetOnGround(true)
			h.client.SetVelocity(model.NewVec3(0, tt.velocity, 0))
			h.state().Combat.Combo = comboCriticalEach - 1
			self, _ := h.client.Self()
			slept := h.clock.Slept()

			h.c.strike(self, target)

			assert.Len(t, h.client.Attacks(), 1)
			assert.Equal(t, tt.want, h.clock.Slept()-slept)
			assert.False(t, h.client.Control(model.ControlJump))
		})
	}
}

func TestWeaponCooldown(t *testing.T) {
	tests := []struct {
		held string
		want time.Duration
	}{
		{"", 675 * time.Millisecond},
		{"diamond_sword", 675 * time.Millisecond},
		{"netherite_axe", 1050 * time.Millisecond},
		{"iron_axe", 1150 * time.Millisecond},
		{"stone_axe", 1300 * time.Millisecond},
		{"trident", 1150 * time.Millisecond},
		{"stick", 675 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.held, func(t *testing.T) {
			h := newHarness(t)
			if tt.held != "" {
				h.client.SetHeld(model.Item{Name: tt.held})
			}
			assert.Equal(t, tt.want, h.c.weaponCooldown())
		})
	}
}

func TestCombatTickEndsSession(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(h *harness)
	}{
		{"session time", func(h *harness) {
			h.clock.Advance(h.cfg.Combat.MaxSessionTime + time.Second)
		}},
		{"hit limit", func(h *harness) {
			h.state().Combat.Hits = h.cfg.Combat.MaxHits + 1
		}},
		{"out of range", func(h *harness) {
			h.client.SetPlayers(player(9, "Target", near(testStart, 20)))
		}},
		{"target gone", func(h *harness) {
			h.client.SetPlayers()
		}},
		{"dead", func(h *harness) {
			h.c.onDeath()
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			target := player(9, "Target", near(testStart, 2))
			h.client.SetPlayers(target)
			require.True(t, h.c.startCombat(target, ReasonThreat))

			tt.prepare(h)
			h.c.combatTick()

			s := h.state()
			assert.False(t, s.InCombat())
			assert.Empty(t, s.Combat.Target)
			assert.False(t, h.c.loops.combat.running())
			assert.False(t, h.c.loops.strafe.running())
			assert.GreaterOrEqual(t, h.client.Clears(), 1)
		})
	}
}

func TestCombatRetargetsPreferringThreatTable(t *testing.T) {
	h := newHarness(t)
	target := player(9, "Target", near(testStart, 2))
	h.client.SetPlayers(target)
	require.True(t, h.c.startCombat(target, ReasonThreat))
	h.state().Threats.Set("Known", 8, h.clock.Now())

	h.client.SetPlayers(
		player(10, "Stranger", near(testStart, 1)),
		player(11, "Known", near(testStart, 6)),
		player(12, "Friend", near(testStart, 1)),
	)
	h.c.combatTick()

	assert.True(t, h.state().InCombat())
	assert.Equal(t, "Known", h.state().Combat.Target)
}

func TestStopCombatOnDestinationHoldsPosition(t *testing.T) {
	h := newHarness(t)
	h.placeAtDestination()
	target := player(9, "Target", near(testDest, 2))
	require.True(t, h.c.startCombat(target, ReasonThreat))

	h.c.stopCombat("target lost")

	assert.True(t, h.state().PlateDefense)
	assert.True(t, h.state().ReachedTarget)
	assert.Equal(t, 0, h.clock.Pending())
}

func TestStopCombatAwayWalksBackAfterDelay(t *testing.T) {
	h := newHarness(t)
	h.planner.SetBlock(true)
	target := player(9, "Target", near(testStart, 2))
	require.True(t, h.c.startCombat(target, ReasonRevenge))

	h.c.stopCombat("target lost")
	assert.False(t, h.state().PlateDefense)
	assert.Equal(t, model.ModeIdle, h.state().Mode)

	h.clock.Advance(h.cfg.Combat.ReleaseDelay)
	ev := <-h.c.events
	require.Equal(t, eventNavigate, ev.Kind)
	require.NoError(t, h.c.handle(ev))
	assert.Equal(t, model.ModeNavigating, h.state().Mode)
}

func TestStrafeTick(t *testing.T) {
	h := newHarness(t)
	require.True(t, h.c.startCombat(player(9, "Target", near(testStart, 2)), ReasonThreat))
	h.rng.Push(0.1, 0.5, 0.99) // flip, strafe, no crouch

	h.c.strafeTick()

	assert.Equal(t, -1, h.state().Combat.StrafeDir)
	assert.True(t, h.client.Control(model.ControlRight))
	assert.False(t, h.client.Control(model.ControlLeft))

	h.clock.Advance(h.cfg.Combat.StrafeDuration)
	h.drainNow()
	assert.False(t, h.client.Control(model.ControlRight))
}

func TestStrafeTickIdleOutsideCombat(t *testing.T) {
	h := newHarness(t)
	h.rng.Push(0.1, 0.1, 0.1)

	h.c.strafeTick()

	assert.Equal(t, 0, h.rng.Calls())
}

func TestPositioning(t *testing.T) {
	tests := []struct {
		name    string
		dist    float64
		forward bool
		back    bool
		sprint  bool
	}{
		{"chase", 6, true, false, true},
		{"retreat", 1, false, true, false},
		{"hold", 2.5, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			self, _ := h.client.Self()

			h.c.position(self, tt.dist)

			assert.Equal(t, tt.forward, h.client.Control(model.ControlForward))
			assert.Equal(t, tt.back, h.client.Control(model.ControlBack))
			assert.Equal(t, tt.sprint, h.client.Control(model.ControlSprint))
		})
	}
}

func TestEquipLoadout(t *testing.T) {
	h := newHarness(t)
	h.client.SetInventory(
		model.Item{Name: "iron_axe", Slot: 10},
		model.Item{Name: "diamond_sword", Slot: 11},
		model.Item{Name: "stone_sword", Slot: 12},
		model.Item{Name: "shield", Slot: 13},
	)

	h.c.equipLoadout()

	equips := h.client.Equips()
	require.Len(t, equips, 2)
	assert.Equal(t, "diamond_sword", equips[0].Item.Name)
	assert.Equal(t, model.EquipHand, equips[0].Slot)
	assert.Equal(t, "shield", equips[1].Item.Name)
	assert.Equal(t, model.EquipOffHand, equips[1].Slot)
	assert.Equal(t, "diamond_sword", h.state().Combat.Weapon)
}

func TestEngagePlateThreatFromChat(t *testing.T) {
	h := newHarness(t)
	h.client.SetPlayers(player(9, "Squatter", near(testDest, 1)))

	require.NoError(t, h.c.handle(Event{Kind: EventChat, Text: "На плите стоит другой игрок, столкни его!"}))

	assert.Equal(t, model.ModeEngaged, h.state().Mode)
	assert.Equal(t, "Squatter", h.state().Combat.Target)
}

func TestStrikeRejectedDoesNotCount(t *testing.T) {
	h := newHarness(t)
	target := player(9, "Target", near(testStart, 2))
	h.client.SetPlayers(target)
	require.True(t, h.c.startCombat(target, ReasonThreat))
	h.client.AttackErr = testutil.ErrSimulated
	self, _ := h.client.Self()

	h.c.strike(self, target)

	s := h.state()
	assert.Zero(t, s.Combat.Hits)
	assert.Zero(t, s.Combat.Combo)
	assert.True(t, s.Combat.LastAttack.IsZero(), "cooldown not consumed by a rejected swing")
	assert.True(t, h.c.attackReady(h.clock.Now()))
}

func TestEquipFailureKeepsFighting(t *testing.T) {
	h := newHarness(t)
	h.client.SetInventory(model.Item{Name: "iron_sword", Slot: 37, Count: 1})
	h.client.EquipErr = testutil.ErrSimulated
	target := player(9, "Target", near(testStart, 2))
	h.client.SetPlayers(target)

	require.True(t, h.c.startCombat(target, ReasonThreat))

	assert.Equal(t, model.ModeEngaged, h.state().Mode)
	assert.Empty(t, h.client.Equips())
	_, holding := h.client.HeldItem()
	assert.False(t, holding)
}
