package agent

import (
	"fmt"

	"github.com/udisondev/platekeeper/internal/model"
)

// EventKind identifies an input of the controller.
type EventKind int

const (
	EventSpawn EventKind = iota
	EventRespawn
	EventDeath
	EventHurt
	EventHealth
	EventChat
	EventPathUpdate
	EventGoalReached
	EventPathReset
	EventKicked
	EventDisconnected
	EventOperatorInput

	// internal completions and delayed intents
	eventNavDone
	eventRecoveryDone
	eventNavigate
	eventRestart
	eventRelease
)

var eventNames = map[EventKind]string{
	EventSpawn:         "spawn",
	EventRespawn:       "respawn",
	EventDeath:         "death",
	EventHurt:          "hurt",
	EventHealth:        "health",
	EventChat:          "chat",
	EventPathUpdate:    "path_update",
	EventGoalReached:   "goal_reached",
	EventPathReset:     "path_reset",
	EventKicked:        "kicked",
	EventDisconnected:  "end",
	EventOperatorInput: "operator_input",
	eventNavDone:       "nav_done",
	eventRecoveryDone:  "recovery_done",
	eventNavigate:      "navigate",
	eventRestart:       "restart",
	eventRelease:       "release",
}

func (k EventKind) String() string {
	if name, ok := eventNames[k]; ok {
		return name
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// ParseEventKind maps a wire name to an external event kind.
func ParseEventKind(name string) (EventKind, bool) {
	for k, n := range eventNames {
		if n == name && k < eventNavDone {
			return k, true
		}
	}
	return 0, false
}

// PathStatusNoPath is the path_update status reporting a rejected route.
const PathStatusNoPath = "noPath"

// Event is one input of the controller queue.
type Event struct {
	Kind EventKind

	// Text carries chat text, operator input, path status or a kick reason.
	Text     string
	EntityID int64
	Health   float64

	gen      uint64
	err      error
	recovery RecoveryKind
	controls []model.Control
	walk     walkMode
}

// handle is the dispatch table. It runs on the controller goroutine only.
func (c *Controller) handle(ev Event) error {
	if IsDebugEnabled() && ev.Kind != eventRelease {
		c.eventLog.Debug("event", "kind", ev.Kind, "mode", c.state.Mode)
	}

	switch ev.Kind {
	case EventSpawn:
		c.onSpawn()
	case EventRespawn:
		c.onRespawn()
	case EventDeath:
		c.onDeath()
	case EventHurt:
		c.onHurt(ev.EntityID)
	case EventHealth:
		c.onHealth(ev.Health)
	case EventChat:
		c.onChat(ev.Text)
	case EventPathUpdate:
		c.onPathUpdate(ev.Text)
	case EventGoalReached:
		c.onGoalReached()
	case EventPathReset:
		c.onPathReset()
	case EventKicked, EventDisconnected:
		c.eventLog.Warn("connection lost", "kind", ev.Kind, "reason", ev.Text)
		return fmt.Errorf("%s: %w", ev.Kind, ErrDisconnected)
	case EventOperatorInput:
		c.onOperatorInput(ev.Text)
	case eventNavDone:
		c.onNavDone(ev.gen, ev.err)
	case eventRecoveryDone:
		c.onRecoveryDone(ev.gen, ev.recovery, ev.err)
	case eventNavigate:
		c.walkToDestination(ev.walk)
	case eventRestart:
		c.restartPending = false
		c.startRecovery(RecoveryFullRestart, "planner keeps reporting no route")
	case eventRelease:
		c.release(ev.controls)
	default:
		c.eventLog.Warn("unknown event", "kind", ev.Kind)
	}
	return nil
}

func (c *Controller) onSpawn() {
	s := c.state
	s.Spawned = true
	if self, ok := c.client.Self(); ok {
		c.eventLog.Info("spawned", "position", self.Position)
	}
	if !s.FirstSpawn {
		return
	}
	s.FirstSpawn = false
	c.loops.ping.start()
	c.startRecovery(RecoverySpawn, "first spawn")
}

func (c *Controller) onRespawn() {
	c.eventLog.Info("respawned")
	c.startRecovery(RecoveryRespawn, "respawn")
}

func (c *Controller) onDeath() {
	c.eventLog.Warn("died")
	c.setMode(model.ModeDead)
	c.stopPlanner()
}

func (c *Controller) onHurt(entityID int64) {
	self, ok := c.client.Self()
	if !ok || entityID != self.ID {
		return
	}
	attacker, ok := c.nearestPlayer(self, c.cfg.Combat.AttackRange+c.cfg.Combat.RevengeRadius)
	if ok {
		c.onDamage(attacker)
	}
}

// onHealth catches hits the client did not report as hurt events.
func (c *Controller) onHealth(health float64) {
	s := c.state
	defer func() { s.LastHealth = health }()
	if health >= s.LastHealth || s.InCombat() {
		return
	}
	self, ok := c.client.Self()
	if !ok {
		return
	}
	if attacker, ok := c.nearestPlayer(self, c.cfg.Combat.AttackRange+c.cfg.Combat.RevengeRadius); ok {
		c.onDamage(attacker)
	}
}

func (c *Controller) onChat(text string) {
	c.chatLog.Info(text)

	switch signal := c.chat.classify(text); signal {
	case chatWarpConfirmed:
		c.state.WarpExitConfirmed = true
		select {
		case c.warpConfirm <- struct{}{}:
		default:
		}
	case chatCommandRejected:
		c.eventLog.Warn("server rejected command, retrying warp exit")
		c.startRecovery(RecoveryWarpExit, "command rejected")
	case chatCooldown:
		c.eventLog.Warn("server asks to wait, retrying teleport item")
		c.startRecovery(RecoveryCompassCooldown, "teleport cooldown")
	case chatKick:
		c.eventLog.Warn("kick message detected")
		c.startRecovery(RecoveryKick, "kick message")
	case chatPlateThreat:
		c.eventLog.Info("player reported on the plate")
		c.engagePlateThreat()
	}
}

func (c *Controller) onPathUpdate(status string) {
	if status != PathStatusNoPath {
		return
	}
	s := c.state
	s.NoRouteCount++
	c.navLog.Info("planner found no path", "count", s.NoRouteCount, "limit", c.cfg.Navigation.NoRouteLimit)
	if s.NoRouteCount < c.cfg.Navigation.NoRouteLimit {
		return
	}
	s.NoRouteCount = 0
	if c.restartPending {
		return
	}
	c.restartPending = true
	c.schedule(c.cfg.Navigation.NoRouteRestartDelay, Event{Kind: eventRestart})
}

func (c *Controller) onGoalReached() {
	s := c.state
	c.navLog.Info("goal reached")
	s.ReachedTarget = true
	s.PathingStuck = 0
	s.Rung = rungNone
	if s.Mode == model.ModeNavigating {
		c.setMode(model.ModeIdle)
	}
}

func (c *Controller) onPathReset() {
	if c.state.Mode == model.ModeNavigating && !c.planner.IsPathing() {
		c.setMode(model.ModeIdle)
	}
}

func (c *Controller) onOperatorInput(text string) {
	s := c.state
	if _, ok := c.client.Self(); !ok || !s.Spawned || s.Dead() {
		c.eventLog.Info("console: agent is not ready to send commands")
		return
	}
	if err := c.chatNow(text); err != nil {
		c.eventLog.Warn("console: send failed", "error", err)
		return
	}
	c.eventLog.Info("console: sent", "text", text)
}

func (c *Controller) onPing() {
	if c.state.Dead() {
		return
	}
	if _, ok := c.client.Self(); !ok {
		return
	}
	if err := c.chatNow(c.cfg.PingCommand); err != nil && IsDebugEnabled() {
		c.eventLog.Debug("ping failed", "error", err)
	}
}

// chatNow sends chat from the controller goroutine with a bounded wait.
func (c *Controller) chatNow(text string) error {
	ctx, cancel := c.actionContext()
	defer cancel()
	return c.client.Chat(ctx, text)
}
