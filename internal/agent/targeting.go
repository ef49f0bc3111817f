package agent

import (
	"cmp"
	"slices"

	"github.com/udisondev/platekeeper/internal/model"
)

func (c *Controller) isExempt(name string) bool {
	_, ok := c.exempt[name]
	return ok
}

// opponents returns players the agent may fight: not itself, not exempt,
// with a usable position.
func (c *Controller) opponents() []model.Entity {
	self, _ := c.client.Self()
	own := c.client.Username()
	players := c.client.Players()
	out := make([]model.Entity, 0, len(players))
	for _, p := range players {
		if p.Name == "" || p.Name == own || p.ID == self.ID || c.isExempt(p.Name) {
			continue
		}
		if !p.Position.IsFinite() {
			continue
		}
		out = append(out, p)
	}
	return out
}

// nearestPlayer returns the closest opponent within radius of self.
func (c *Controller) nearestPlayer(self model.Self, radius float64) (model.Entity, bool) {
	return closestWithin(self.Position, c.opponents(), radius)
}

// findPlayer re-reads a combat target by name.
func (c *Controller) findPlayer(name string) (model.Entity, bool) {
	for _, p := range c.client.Players() {
		if p.Name == name && p.Position.IsFinite() {
			return p, true
		}
	}
	return model.Entity{}, false
}

// plateThreats returns opponents standing within threat range of the destination.
func (c *Controller) plateThreats() []model.Entity {
	r := c.cfg.Combat.ThreatRange
	var out []model.Entity
	for _, p := range c.opponents() {
		if p.Position.HorizontalDistanceTo(c.dest) <= r {
			out = append(out, p)
		}
	}
	return out
}

// pickTarget chooses a replacement target within radius. Opponents from
// the threat table come first, higher level first, then the closest one.
func (c *Controller) pickTarget(self model.Self, radius float64) (model.Entity, bool) {
	threats := c.state.Threats
	var candidates []model.Entity
	for _, p := range c.opponents() {
		if self.Position.DistanceTo(p.Position) <= radius {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		return model.Entity{}, false
	}
	slices.SortStableFunc(candidates, func(a, b model.Entity) int {
		ha, hb := threats.Has(a.Name), threats.Has(b.Name)
		if ha != hb {
			if ha {
				return -1
			}
			return 1
		}
		if byLevel := cmp.Compare(threats.Level(b.Name), threats.Level(a.Name)); byLevel != 0 {
			return byLevel
		}
		return cmp.Compare(self.Position.DistanceSquared(a.Position), self.Position.DistanceSquared(b.Position))
	})
	return candidates[0], true
}

func closestWithin(from model.Vec3, entities []model.Entity, radius float64) (model.Entity, bool) {
	var (
		best  model.Entity
		found bool
		bestD = radius * radius
	)
	for _, e := range entities {
		if d := from.DistanceSquared(e.Position); d <= bestD {
			best, bestD, found = e, d, true
		}
	}
	return best, found
}
