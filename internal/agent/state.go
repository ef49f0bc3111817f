package agent

import (
	"time"

	"github.com/udisondev/platekeeper/internal/model"
)

// ladderRung is the last stagnation rung fired in the current episode.
type ladderRung int

const (
	rungNone ladderRung = iota
	rungJumped
	rungReissued
)

// EngageReason tells how a combat session was entered.
type EngageReason string

const (
	ReasonThreat       EngageReason = "threat"
	ReasonRevenge      EngageReason = "revenge"
	ReasonPlateDefense EngageReason = "plate_defense"
)

// CombatSession is the per-engagement record. Only the combat engine writes it.
type CombatSession struct {
	Target     string
	Reason     EngageReason
	StartedAt  time.Time
	LastAttack time.Time
	Hits       int
	Combo      int
	Weapon     string
	StrafeDir  int
}

// State is the single record all control loops share.
// It is owned by the controller goroutine; nothing else reads or writes it.
type State struct {
	Mode     model.Mode
	Recovery RecoveryKind

	ReachedTarget bool
	// PlateDefense is set when combat ended on the destination: hold position.
	PlateDefense bool
	FirstSpawn   bool
	Spawned      bool
	Crouching    bool

	// Position snapshot, written by the stagnation check only.
	HasSnapshot  bool
	LastPosition model.Vec3
	LastDistance float64

	PathingStuck    int
	IdleStuck       int
	Rung            ladderRung
	NoRouteCount    int
	LastMoveAttempt time.Time

	Combat  CombatSession
	Threats *model.ThreatTable

	LastHealth        float64
	LastDamage        time.Time
	WarpExitConfirmed bool
}

// NewState creates the record for a fresh connection.
func NewState(threatTableSize int) *State {
	return &State{
		Mode:       model.ModeIdle,
		FirstSpawn: true,
		Threats:    model.NewThreatTable(threatTableSize),
		LastHealth: 20,
	}
}

// InCombat reports whether a combat session owns the agent.
func (s *State) InCombat() bool { return s.Mode == model.ModeEngaged }

// Traveling reports whether a goal is in flight.
func (s *State) Traveling() bool { return s.Mode == model.ModeNavigating }

// PathingInProgress is the same fact as Traveling: one goal in flight at a time.
func (s *State) PathingInProgress() bool { return s.Mode == model.ModeNavigating }

// Dead reports whether the agent waits for respawn.
func (s *State) Dead() bool { return s.Mode == model.ModeDead }

// FullRestartInProgress reports a restart-class recovery.
func (s *State) FullRestartInProgress() bool {
	return s.Mode == model.ModeRecovering && s.Recovery.restarts()
}

// HandlingDisruption reports any other recovery procedure.
func (s *State) HandlingDisruption() bool {
	return s.Mode == model.ModeRecovering && !s.Recovery.restarts()
}

// navigationSuppressed reports whether navigation must not start.
func (s *State) navigationSuppressed() bool {
	switch s.Mode {
	case model.ModeDead, model.ModeEngaged, model.ModeRecovering:
		return true
	}
	return false
}

// resetNavigation drops everything derived from the previous route.
func (s *State) resetNavigation() {
	s.ReachedTarget = false
	s.PlateDefense = false
	s.PathingStuck = 0
	s.IdleStuck = 0
	s.Rung = rungNone
	s.NoRouteCount = 0
}

func (s *State) takeSnapshot(pos model.Vec3, dist float64) {
	s.HasSnapshot = true
	s.LastPosition = pos
	s.LastDistance = dist
}
