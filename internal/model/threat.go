package model

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Threat levels used by combat entry and damage handling.
const (
	ThreatLevelOther   = 5
	ThreatLevelRevenge = 10
	ThreatLevelMax     = 15
	ThreatHitIncrement = 3
)

const defaultThreatTableSize = 64

// ThreatInfo tracks the last hit time and threat level of one opponent.
type ThreatInfo struct {
	LastHit time.Time
	Level   int
}

// ThreatTable manages threat for the opponents the agent has fought.
// Levels never decay with time, they only change when overwritten.
// The least recently touched opponent is evicted when the table is full.
type ThreatTable struct {
	entries *lru.Cache[string, ThreatInfo]
}

// NewThreatTable creates a new empty ThreatTable holding at most size opponents.
func NewThreatTable(size int) *ThreatTable {
	if size <= 0 {
		size = defaultThreatTableSize
	}
	// lru.New only fails for size <= 0
	entries, _ := lru.New[string, ThreatInfo](size)
	return &ThreatTable{entries: entries}
}

// Set overwrites the entry for name with the given level, clamped to [0, ThreatLevelMax].
func (t *ThreatTable) Set(name string, level int, at time.Time) ThreatInfo {
	info := ThreatInfo{LastHit: at, Level: clampThreat(level)}
	t.entries.Add(name, info)
	return info
}

// Raise adds delta to the current level of name (0 when unknown), capped at ThreatLevelMax.
func (t *ThreatTable) Raise(name string, delta int, at time.Time) ThreatInfo {
	info, _ := t.entries.Get(name)
	return t.Set(name, info.Level+delta, at)
}

// Has reports whether name has ever hit or been engaged by the agent.
func (t *ThreatTable) Has(name string) bool {
	return t.entries.Contains(name)
}

// Level returns the threat level of name, 0 when unknown.
func (t *ThreatTable) Level(name string) int {
	info, _ := t.entries.Peek(name)
	return info.Level
}

func clampThreat(level int) int {
	return max(0, min(level, ThreatLevelMax))
}
