package agent

import "github.com/udisondev/platekeeper/internal/model"

// weaponPreference lists melee weapons, best first: swords, then axes.
var weaponPreference = []string{
	"netherite_sword", "diamond_sword", "iron_sword", "stone_sword", "wooden_sword", "golden_sword",
	"netherite_axe", "diamond_axe", "iron_axe", "stone_axe", "wooden_axe", "golden_axe",
}

const shieldItem = "shield"

// bestWeapon returns the most preferred weapon in inventory.
func bestWeapon(inv []model.Item) (model.Item, bool) {
	byName := make(map[string]model.Item, len(inv))
	for _, it := range inv {
		if _, seen := byName[it.Name]; !seen {
			byName[it.Name] = it
		}
	}
	for _, name := range weaponPreference {
		if it, ok := byName[name]; ok {
			return it, true
		}
	}
	return model.Item{}, false
}

// equipLoadout puts the best weapon in hand and a shield in the off-hand.
// Failures are logged; combat goes on with whatever is held.
func (c *Controller) equipLoadout() {
	inv := c.client.Inventory()
	ctx, cancel := c.actionContext()
	defer cancel()

	if weapon, ok := bestWeapon(inv); ok {
		held, holding := c.client.HeldItem()
		if !holding || held.Name != weapon.Name {
			if err := c.client.Equip(ctx, weapon, model.EquipHand); err != nil {
				c.combatLog.Warn("equip weapon failed", "item", weapon.Name, "error", err)
			}
		}
		c.state.Combat.Weapon = weapon.Name
	}

	for _, it := range inv {
		if it.Name != shieldItem {
			continue
		}
		if err := c.client.Equip(ctx, it, model.EquipOffHand); err != nil {
			c.combatLog.Warn("equip shield failed", "error", err)
		}
		break
	}
}
