package agent

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrNoRoute - the planner could not find any route to the goal.
	ErrNoRoute = errors.New("no route to goal")
	// ErrTransient - world data around the agent was missing or invalid; try next tick.
	ErrTransient = errors.New("transient world data error")
	// ErrDisconnected - the world connection is gone; the controller must be rebuilt.
	ErrDisconnected = errors.New("disconnected from world")
	// ErrRecoveryExhausted - a bounded recovery ladder used up all attempts.
	ErrRecoveryExhausted = errors.New("recovery attempts exhausted")
)

// planOutcome classifies what a finished goto means for navigation.
type planOutcome int

const (
	planReached planOutcome = iota
	planNoRoute
	planTransient
	planFailed
	planCancelled
)

func (o planOutcome) String() string {
	switch o {
	case planReached:
		return "reached"
	case planNoRoute:
		return "no_route"
	case planTransient:
		return "transient"
	case planFailed:
		return "failed"
	case planCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// classifyPlanError maps a planner error to an outcome.
// Bridges that cannot wrap sentinels leak "null"/"boundingBox" in the message
// when chunk data is missing, those are transient too.
func classifyPlanError(err error) planOutcome {
	switch {
	case err == nil:
		return planReached
	case errors.Is(err, context.Canceled):
		return planCancelled
	case errors.Is(err, ErrNoRoute):
		return planNoRoute
	case errors.Is(err, ErrTransient), isTransientMessage(err.Error()):
		return planTransient
	default:
		return planFailed
	}
}

func isTransientMessage(msg string) bool {
	return strings.Contains(msg, "null") || strings.Contains(msg, "boundingBox")
}
