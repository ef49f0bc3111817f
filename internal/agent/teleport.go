package agent

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const hotbarSize = 9

// Pauses around item use and the warp command, humanized with jitter.
const (
	itemStepMin     = 120 * time.Millisecond
	itemStepMax     = 240 * time.Millisecond
	itemSettleMin   = 200 * time.Millisecond
	itemSettleMax   = 400 * time.Millisecond
	warpLeadMin     = 400 * time.Millisecond
	warpLeadMax     = 800 * time.Millisecond
	warpRepeatDelay = 2 * time.Second
	warpSettle      = 1500 * time.Millisecond
)

var errTeleportFailed = errors.New("teleport item not used")

// hotbarIndex finds item in the hotbar and returns its index in [0, 9).
func (c *Controller) hotbarIndex(item string) (int, bool) {
	start := c.client.HotbarStart()
	for _, it := range c.client.Inventory() {
		if it.Name == item && it.Slot >= start && it.Slot < start+hotbarSize {
			return it.Slot - start, true
		}
	}
	return 0, false
}

// useTeleportItem selects and activates the teleport item.
// False when the item is missing, an action failed or ctx ended.
func (c *Controller) useTeleportItem(ctx context.Context) bool {
	item := c.cfg.Recovery.TeleportItem
	index, ok := c.hotbarIndex(item)
	if !ok {
		c.recoveryLog.Warn("teleport item not in hotbar", "item", item)
		c.metrics.TeleportUse(false)
		return false
	}

	used := func() bool {
		if c.clock.Sleep(ctx, c.rng.between(itemStepMin, itemStepMax)) != nil {
			return false
		}
		if err := c.client.SelectHotbar(ctx, index); err != nil {
			c.recoveryLog.Warn("selecting teleport item failed", "error", err)
			return false
		}
		if c.clock.Sleep(ctx, c.rng.between(itemStepMin, itemStepMax)) != nil {
			return false
		}
		if err := c.client.ActivateItem(ctx); err != nil {
			c.recoveryLog.Warn("activating teleport item failed", "error", err)
			return false
		}
		return c.clock.Sleep(ctx, c.rng.between(itemSettleMin, itemSettleMax)) == nil
	}()
	c.metrics.TeleportUse(used)
	return used
}

// sendWarpExit sends the warp command twice; servers drop the first one
// right after a teleport.
func (c *Controller) sendWarpExit(ctx context.Context) error {
	cmd := c.cfg.Recovery.WarpCommand
	if err := c.clock.Sleep(ctx, c.rng.between(warpLeadMin, warpLeadMax)); err != nil {
		return err
	}
	if err := c.client.Chat(ctx, cmd); err != nil {
		return fmt.Errorf("sending %q: %w", cmd, err)
	}
	if err := c.clock.Sleep(ctx, warpRepeatDelay); err != nil {
		return err
	}
	if err := c.client.Chat(ctx, cmd); err != nil {
		return fmt.Errorf("repeating %q: %w", cmd, err)
	}
	return c.clock.Sleep(ctx, warpSettle)
}
