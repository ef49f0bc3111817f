package agent

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/platekeeper/internal/model"
)

func TestWalkToDestinationIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.planner.SetBlock(true)

	h.c.walkToDestination(walkFresh)
	h.c.walkToDestination(walkFresh)
	h.waitInFlight(1)
	h.c.walkToDestination(walkFresh)

	assert.Equal(t, model.ModeNavigating, h.state().Mode)
	require.Len(t, h.planner.Goals(), 1)
	assert.Equal(t, model.NearGoal(testDest, 0), h.planner.Goals()[0])

	h.planner.Release(nil)
	h.await(eventNavDone)
	assert.Equal(t, model.ModeIdle, h.state().Mode)
	assert.False(t, h.state().ReachedTarget, "agent did not move, so it did not arrive")
}

func TestWalkToDestinationWhenAlreadyThere(t *testing.T) {
	h := newHarness(t)
	h.placeAtDestination()

	h.c.walkToDestination(walkFresh)

	assert.True(t, h.state().ReachedTarget)
	assert.Equal(t, model.ModeIdle, h.state().Mode)
	assert.Empty(t, h.planner.Goals())
}

func TestWalkToDestinationSkipsWhilePlannerBusy(t *testing.T) {
	h := newHarness(t)
	h.planner.SetPathing(true)

	h.c.walkToDestination(walkFresh)

	assert.Equal(t, model.ModeIdle, h.state().Mode)
	assert.Empty(t, h.planner.Goals())
}

func TestWalkToDestinationSuppressed(t *testing.T) {
	tests := []struct {
		name string
		mode model.Mode
	}{
		{"dead", model.ModeDead},
		{"engaged", model.ModeEngaged},
		{"recovering", model.ModeRecovering},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.c.setMode(tt.mode)

			h.c.walkToDestination(walkFresh)

			assert.Equal(t, tt.mode, h.state().Mode)
			assert.Empty(t, h.planner.Goals())
		})
	}
}

func TestWalkToDestinationReachesGoal(t *testing.T) {
	h := newHarness(t)
	h.planner.SetBlock(true)

	h.c.walkToDestination(walkFresh)
	h.waitInFlight(1)
	h.placeAtDestination()
	h.planner.Release(nil)
	h.await(eventNavDone)

	assert.True(t, h.state().ReachedTarget)
	assert.Equal(t, model.ModeIdle, h.state().Mode)
}

func TestNavigationNoRouteFallsBackToHorizontalGoal(t *testing.T) {
	h := newHarness(t)
	h.planner.QueueResults(ErrNoRoute, nil)

	h.c.walkToDestination(walkFresh)
	h.await(eventNavDone)

	goals := h.planner.Goals()
	require.Len(t, goals, 2)
	assert.Equal(t, model.GoalNear, goals[0].Kind)
	assert.Equal(t, model.GoalXZ, goals[1].Kind)
	assert.Equal(t, testDest.X, goals[1].Target.X)
	assert.Equal(t, testDest.Z, goals[1].Target.Z)
	assert.Equal(t, model.ModeIdle, h.state().Mode)
}

func TestNavigationFallbackFailureRestarts(t *testing.T) {
	h := newHarness(t)
	h.planner.QueueResults(ErrNoRoute, ErrNoRoute)

	h.c.walkToDestination(walkFresh)
	h.await(eventNavDone)

	assert.Equal(t, model.ModeRecovering, h.state().Mode)
	assert.Equal(t, RecoveryFullRestart, h.state().Recovery)
	assert.True(t, h.state().FullRestartInProgress())
}

func TestNavigationTransientErrorBacksOff(t *testing.T) {
	h := newHarness(t)
	h.planner.QueueResults(errors.New("Cannot read properties of null (reading 'boundingBox')"))

	h.c.walkToDestination(walkFresh)
	h.await(eventNavDone)

	assert.Equal(t, model.ModeIdle, h.state().Mode)
	assert.GreaterOrEqual(t, h.clock.Slept(), h.cfg.Navigation.SettleDelay+h.cfg.Navigation.TransientBackoff)
	assert.Len(t, h.planner.Goals(), 1, "transient errors do not fall back")
}

func TestPreemptedNavigationResultIsDropped(t *testing.T) {
	h := newHarness(t)
	h.planner.SetBlock(true)
	h.client.SetPlayers(player(7, "Griefer", near(testStart, 2)))

	h.c.walkToDestination(walkFresh)
	h.waitInFlight(1)

	require.True(t, h.c.startCombat(player(7, "Griefer", near(testStart, 2)), ReasonThreat))
	h.await(eventNavDone)

	assert.Equal(t, model.ModeEngaged, h.state().Mode, "a cancelled goal must not revive navigation")
	assert.Equal(t, 0, h.planner.InFlight())
}

func TestReissueKeepsStagnationCount(t *testing.T) {
	h := newHarness(t)
	h.planner.SetBlock(true)
	h.state().PathingStuck = 4

	h.c.walkToDestination(walkReissue)
	assert.Equal(t, 4, h.state().PathingStuck)

	h.planner.Release(nil)
	h.await(eventNavDone)

	h.c.walkToDestination(walkFresh)
	assert.Equal(t, 0, h.state().PathingStuck)
}

func TestPlanErrorClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want planOutcome
	}{
		{"nil", nil, planReached},
		{"no route", ErrNoRoute, planNoRoute},
		{"wrapped no route", errors.Join(errors.New("goto"), ErrNoRoute), planNoRoute},
		{"transient sentinel", ErrTransient, planTransient},
		{"null message", errors.New("cannot read property x of null"), planTransient},
		{"bounding box message", errors.New("boundingBox undefined"), planTransient},
		{"generic", errors.New("timeout"), planFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyPlanError(tt.err))
		})
	}
}
