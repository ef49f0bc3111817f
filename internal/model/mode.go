package model

// Mode is the top-level arbitration state of the agent.
// Exactly one mode is active; combat, recovery and navigation
// exclude each other by construction.
type Mode int32

const (
	// ModeIdle - alive, nothing in flight; monitors decide what to do next
	ModeIdle Mode = iota
	// ModeNavigating - a goal has been issued to the path planner
	ModeNavigating
	// ModeEngaged - combat session active
	ModeEngaged
	// ModeRecovering - a disruption recovery sequence owns the agent
	ModeRecovering
	// ModeDead - waiting for respawn
	ModeDead
)

// String returns human-readable mode name
func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "IDLE"
	case ModeNavigating:
		return "NAVIGATING"
	case ModeEngaged:
		return "ENGAGED"
	case ModeRecovering:
		return "RECOVERING"
	case ModeDead:
		return "DEAD"
	default:
		return "UNKNOWN"
	}
}

// AllModes lists every mode, in declaration order.
func AllModes() []Mode {
	return []Mode{ModeIdle, ModeNavigating, ModeEngaged, ModeRecovering, ModeDead}
}
