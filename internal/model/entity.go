package model

// Entity is a reference to another player in the world.
// Supplied fresh per decision cycle; never cache it across ticks,
// the entity may have left the world.
type Entity struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Position Vec3    `json:"position"`
	Velocity Vec3    `json:"velocity"`
	Height   float64 `json:"height"`
}

// AimPoint returns where to look to hit the entity: 3/4 of its height,
// led by velocity over the given number of ticks.
func (e Entity) AimPoint(leadTicks float64) Vec3 {
	p := e.Position.Offset(0, e.Height*0.75, 0)
	p.X += e.Velocity.X * leadTicks
	p.Z += e.Velocity.Z * leadTicks
	return p
}

// Self is the agent's own body as seen by the game client.
type Self struct {
	Entity
	Health   float64 `json:"health"`
	OnGround bool    `json:"onGround"`
}

// Item is an inventory slot content.
type Item struct {
	Name  string `json:"name"`
	Slot  int    `json:"slot"`
	Count int    `json:"count"`
}

// EquipSlot names a body slot an item can be equipped into.
type EquipSlot string

const (
	EquipHand    EquipSlot = "hand"
	EquipOffHand EquipSlot = "off-hand"
)
