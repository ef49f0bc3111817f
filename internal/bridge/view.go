package bridge

import (
	"slices"
	"sync"

	"github.com/udisondev/platekeeper/internal/model"
)

// view is the latest world snapshot. Reads never block on the network.
type view struct {
	mu          sync.RWMutex
	self        *model.Self
	players     []model.Entity
	inventory   []model.Item
	hotbarStart int
	held        *model.Item
	pathing     bool
}

func (v *view) apply(s snapshotPayload) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.self = s.Self
	v.players = s.Players
	v.inventory = s.Inventory
	v.hotbarStart = s.HotbarStart
	v.held = s.HeldItem
	v.pathing = s.Pathing
}

func (v *view) getSelf() (model.Self, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.self == nil {
		return model.Self{}, false
	}
	return *v.self, true
}

func (v *view) getPlayers() []model.Entity {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return slices.Clone(v.players)
}

func (v *view) getInventory() []model.Item {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return slices.Clone(v.inventory)
}

func (v *view) getHotbarStart() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.hotbarStart
}

func (v *view) getHeld() (model.Item, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.held == nil {
		return model.Item{}, false
	}
	return *v.held, true
}

func (v *view) isPathing() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.pathing
}

func (v *view) setPathing(on bool) {
	v.mu.Lock()
	v.pathing = on
	v.mu.Unlock()
}
