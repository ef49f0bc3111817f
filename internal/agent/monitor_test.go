package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/platekeeper/internal/model"
)

func TestStagnationLadderFiresInOrder(t *testing.T) {
	h := newHarness(t)
	h.planner.SetBlock(true)
	s := h.state()

	h.c.walkToDestination(walkFresh)
	h.waitInFlight(1)
	h.c.checkStagnation() // snapshot

	h.c.checkStagnation()
	assert.Equal(t, 1, s.PathingStuck)
	assert.False(t, h.client.Control(model.ControlJump))

	h.c.checkStagnation()
	assert.Equal(t, rungJumped, s.Rung)
	assert.True(t, h.client.Control(model.ControlJump), "rung 2 jumps")
	assert.Equal(t, 0, h.planner.Stops())

	h.c.checkStagnation()
	assert.Equal(t, 3, s.PathingStuck)
	assert.Equal(t, rungJumped, s.Rung)

	h.c.checkStagnation()
	assert.Equal(t, rungReissued, s.Rung)
	assert.Equal(t, 1, h.planner.Stops(), "rung 4 hard-stops the planner")
	assert.Equal(t, model.ModeIdle, s.Mode)

	h.pumpUntil(func() bool { return s.Mode == model.ModeNavigating })
	h.waitInFlight(1)
	assert.Equal(t, 4, s.PathingStuck, "reissue keeps the episode")

	h.c.checkStagnation()
	assert.Equal(t, 5, s.PathingStuck)
	assert.Equal(t, model.ModeNavigating, s.Mode)

	h.c.checkStagnation()
	assert.Equal(t, model.ModeRecovering, s.Mode)
	assert.Equal(t, RecoveryFullRestart, s.Recovery)
	assert.Equal(t, 0, s.PathingStuck)
	assert.Equal(t, rungNone, s.Rung)
}

func TestStagnationJumpOnlyWhenGrounded(t *testing.T) {
	h := newHarness(t)
	h.planner.SetPathing(true)
	h.client.SetOnGround(false)

	for range 3 {
		h.c.checkStagnation()
	}

	assert.Equal(t, rungJumped, h.state().Rung, "the rung is spent even without a jump")
	assert.False(t, h.client.Control(model.ControlJump))
}

func TestStagnationResetsOnMovement(t *testing.T) {
	h := newHarness(t)
	h.planner.SetPathing(true)
	s := h.state()

	for range 4 {
		h.c.checkStagnation()
	}
	require.Equal(t, 3, s.PathingStuck)
	require.Equal(t, rungJumped, s.Rung)

	h.client.SetPosition(near(testStart, 2))
	h.c.checkStagnation()

	assert.Equal(t, 0, s.PathingStuck)
	assert.Equal(t, rungNone, s.Rung)
	assert.Equal(t, near(testStart, 2), s.LastPosition)
}

func TestStagnationIgnoredOutsideNavigation(t *testing.T) {
	tests := []struct {
		name  string
		setup func(h *harness)
	}{
		{"engaged", func(h *harness) { h.c.setMode(model.ModeEngaged) }},
		{"recovering", func(h *harness) { h.c.setMode(model.ModeRecovering) }},
		{"dead", func(h *harness) { h.c.setMode(model.ModeDead) }},
		{"reached", func(h *harness) { h.state().ReachedTarget = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.planner.SetPathing(true)
			tt.setup(h)

			for range 8 {
				h.c.checkStagnation()
			}

			assert.Equal(t, 0, h.state().PathingStuck)
			assert.False(t, h.state().HasSnapshot)
		})
	}
}

func TestIdleCounterTriggersWalk(t *testing.T) {
	h := newHarness(t)
	h.planner.SetBlock(true)
	s := h.state()

	h.c.checkStagnation() // snapshot
	for range h.cfg.Navigation.MaxIdleTicks - 1 {
		h.c.checkStagnation()
	}
	assert.Equal(t, model.ModeIdle, s.Mode)

	h.c.checkStagnation()
	assert.Equal(t, model.ModeNavigating, s.Mode)
	assert.Equal(t, 0, s.IdleStuck)
}

func TestArrivalMarksReachedAndStopsPlannerOnce(t *testing.T) {
	h := newHarness(t)
	h.planner.SetBlock(true)
	h.c.walkToDestination(walkFresh)
	h.waitInFlight(1)

	h.placeAtDestination()
	h.c.checkArrival()
	h.c.checkArrival()

	assert.True(t, h.state().ReachedTarget)
	assert.Equal(t, model.ModeIdle, h.state().Mode)
	assert.Equal(t, 1, h.planner.Stops())
}

func TestArrivalDriftTriggersWalk(t *testing.T) {
	h := newHarness(t)
	h.planner.SetBlock(true)
	h.placeAtDestination()
	h.c.checkArrival()
	require.True(t, h.state().ReachedTarget)

	h.client.SetPosition(near(testDest, 0.5))
	h.c.checkArrival()
	assert.True(t, h.state().ReachedTarget, "drift below the limit is tolerated")

	h.client.SetPosition(near(testDest, 5))
	h.c.checkArrival()
	assert.False(t, h.state().ReachedTarget)
	assert.Equal(t, model.ModeNavigating, h.state().Mode)
}

func TestArrivalRetriesAfterInterval(t *testing.T) {
	h := newHarness(t)
	h.planner.SetBlock(true)
	h.state().LastMoveAttempt = h.clock.Now()

	h.c.checkArrival()
	assert.Equal(t, model.ModeIdle, h.state().Mode)

	h.clock.Advance(h.cfg.Navigation.RetryInterval + 100*time.Millisecond)
	h.c.checkArrival()
	assert.Equal(t, model.ModeNavigating, h.state().Mode)
}

func TestArrivalEngagesPlateThreat(t *testing.T) {
	h := newHarness(t)
	h.placeAtDestination()
	h.client.SetPlayers(
		player(5, "Friend", near(testDest, 1)),
		player(6, "Far", near(testDest, 4)),
		player(7, "Close", near(testDest, 2)),
	)

	h.c.checkArrival()

	s := h.state()
	require.Equal(t, model.ModeEngaged, s.Mode)
	assert.Equal(t, "Close", s.Combat.Target)
	assert.Equal(t, ReasonThreat, s.Combat.Reason)
}

func TestArrivalKeepsWalkingPastOccupiedPlate(t *testing.T) {
	h := newHarness(t)
	h.planner.SetBlock(true)
	h.c.walkToDestination(walkFresh)
	h.waitInFlight(1)
	h.client.SetPlayers(player(9, "Squatter", testDest))

	h.c.checkArrival()
	h.c.combatTick()

	s := h.state()
	assert.Equal(t, model.ModeNavigating, s.Mode)
	assert.False(t, s.InCombat())
	assert.Zero(t, h.planner.Stops())
}

func TestPlateThreatsMeasuredHorizontally(t *testing.T) {
	h := newHarness(t)
	h.placeAtDestination()
	h.client.SetPlayers(player(9, "Below", testDest.Offset(1, -6, 0)))

	h.c.checkArrival()

	require.Equal(t, model.ModeEngaged, h.state().Mode)
	assert.Equal(t, "Below", h.state().Combat.Target)
}

func TestArrivalIgnoresExemptOnPlate(t *testing.T) {
	h := newHarness(t)
	h.placeAtDestination()
	h.client.SetPlayers(player(5, "Friend", near(testDest, 1)))

	h.c.checkArrival()

	assert.Equal(t, model.ModeIdle, h.state().Mode)
	assert.True(t, h.state().ReachedTarget)
}
