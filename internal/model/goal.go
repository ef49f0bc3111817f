package model

import "fmt"

// GoalKind selects how the path planner interprets a Goal.
type GoalKind int32

const (
	// GoalNear - reach a point within Range (3D)
	GoalNear GoalKind = iota
	// GoalXZ - reach the column, height ignored
	GoalXZ
)

// String returns human-readable goal kind name
func (k GoalKind) String() string {
	switch k {
	case GoalNear:
		return "NEAR"
	case GoalXZ:
		return "XZ"
	default:
		return "UNKNOWN"
	}
}

// Goal is a target-position descriptor handed to the path planner.
type Goal struct {
	Kind   GoalKind
	Target Vec3
	Range  float64
}

// NearGoal creates an exact-point goal with tolerance.
func NearGoal(target Vec3, tolerance float64) Goal {
	return Goal{Kind: GoalNear, Target: target, Range: tolerance}
}

// XZGoal creates a horizontal-only goal.
func XZGoal(x, z float64) Goal {
	return Goal{Kind: GoalXZ, Target: Vec3{X: x, Z: z}}
}

func (g Goal) String() string {
	if g.Kind == GoalXZ {
		return fmt.Sprintf("XZ(%.1f, %.1f)", g.Target.X, g.Target.Z)
	}
	return fmt.Sprintf("NEAR(%.1f, %.1f, %.1f ±%.1f)", g.Target.X, g.Target.Y, g.Target.Z, g.Range)
}
