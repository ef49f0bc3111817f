package agent

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/udisondev/platekeeper/internal/config"
	"github.com/udisondev/platekeeper/internal/metrics"
	"github.com/udisondev/platekeeper/internal/model"
)

const eventQueueSize = 256

// Controller is the arbitration layer: a single-owner state machine over
// State, fed by an event queue and its own periodic loops.
//
// Only the goroutine running Run (or a test driving handle directly) touches
// State. Planner goals and recovery sequences run in helper goroutines that
// talk back through Post, tagged with a generation so stale results are dropped.
type Controller struct {
	cfg     config.Agent
	client  GameClient
	planner Planner
	clock   Clock
	rng     *lockedRand
	metrics *metrics.Agent

	dest   model.Vec3
	exempt map[string]struct{}
	chat   chatClassifier

	state  *State
	events chan Event
	done   chan struct{}
	loops  loops

	// ctx is cancelled when Run returns; helper contexts derive from it.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	navGen    uint64
	navCancel context.CancelFunc

	recGen    uint64
	recCancel context.CancelFunc

	warpConfirm    chan struct{}
	restartPending bool

	log         *slog.Logger
	navLog      *slog.Logger
	combatLog   *slog.Logger
	recoveryLog *slog.Logger
	eventLog    *slog.Logger
	chatLog     *slog.Logger
}

// Option customizes a Controller.
type Option func(*Controller)

// WithClock replaces the wall clock.
func WithClock(clock Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

// WithRand replaces the random source of combat rolls and action jitter.
func WithRand(r Rand) Option {
	return func(c *Controller) { c.rng = newLockedRand(r) }
}

// WithMetrics attaches prometheus collectors.
func WithMetrics(m *metrics.Agent) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithLogger sets the base logger; components add their own attribute.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.setLogger(l) }
}

// NewController creates a controller with fresh State for one connection.
func NewController(cfg config.Agent, client GameClient, planner Planner, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		cfg:         cfg,
		client:      client,
		planner:     planner,
		clock:       realClock{},
		dest:        model.NewVec3(cfg.Destination.X, cfg.Destination.Y, cfg.Destination.Z),
		exempt:      make(map[string]struct{}, len(cfg.Exempt)),
		chat:        newChatClassifier(cfg.Recovery.Patterns),
		state:       NewState(cfg.Combat.ThreatTableSize),
		events:      make(chan Event, eventQueueSize),
		done:        make(chan struct{}),
		ctx:         ctx,
		cancel:      cancel,
		warpConfirm: make(chan struct{}, 1),
		loops:       newLoops(cfg),
	}
	for _, name := range cfg.Exempt {
		c.exempt[name] = struct{}{}
	}
	c.setLogger(slog.Default())
	for _, opt := range opts {
		opt(c)
	}
	if c.rng == nil {
		c.rng = newLockedRand(nil)
	}
	return c
}

func (c *Controller) setLogger(l *slog.Logger) {
	c.log = l
	c.navLog = l.With("component", "nav")
	c.combatLog = l.With("component", "combat")
	c.recoveryLog = l.With("component", "recovery")
	c.eventLog = l.With("component", "event")
	c.chatLog = l.With("component", "chat")
}

// State exposes the record for inspection. Callers must be the owner goroutine.
func (c *Controller) State() *State {
	return c.state
}

// Post queues an event. Safe from any goroutine; drops nothing while the
// controller runs and returns immediately once it has stopped.
func (c *Controller) Post(ev Event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

// Run processes events and loop ticks until ctx is cancelled or the world
// connection is lost (ErrDisconnected).
func (c *Controller) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, c.cancel)
	defer func() {
		stop()
		c.cancel()
		close(c.done)
		c.loops.stopAll()
		c.wg.Wait()
	}()

	c.loops.stuck.start()
	c.loops.movement.start()
	c.log.Info("agent controller started",
		"destination", c.dest,
		"tolerance", c.cfg.Destination.Tolerance,
		"exempt", len(c.exempt))

	for {
		select {
		case <-c.ctx.Done():
			c.log.Info("agent controller stopping")
			return ctx.Err()
		case ev := <-c.events:
			if err := c.safeHandle(ev); err != nil {
				return err
			}
		case <-c.loops.stuck.C():
			c.safe(c.loops.stuck.name, c.checkStagnation)
		case <-c.loops.movement.C():
			c.safe(c.loops.movement.name, c.checkArrival)
		case <-c.loops.combat.C():
			c.safe(c.loops.combat.name, c.combatTick)
		case <-c.loops.strafe.C():
			c.safe(c.loops.strafe.name, c.strafeTick)
		case <-c.loops.ping.C():
			c.safe(c.loops.ping.name, c.onPing)
		}
	}
}

// safeHandle keeps one bad event from taking the agent down.
func (c *Controller) safeHandle(ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("event handler panic", "kind", ev.Kind, "panic", r)
			err = nil
		}
	}()
	return c.handle(ev)
}

func (c *Controller) safe(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("loop handler panic", "loop", name, "panic", r)
		}
	}()
	fn()
}

// setMode moves the state machine, running exit hooks of the old mode and
// entry hooks of the new one. The hooks own every timer and helper context,
// so no loop can outlive the mode it belongs to.
func (c *Controller) setMode(next model.Mode) {
	s := c.state
	prev := s.Mode
	if prev == next {
		return
	}

	switch prev {
	case model.ModeNavigating:
		if c.navCancel != nil {
			c.navCancel()
			c.navCancel = nil
		}
	case model.ModeEngaged:
		c.loops.combat.stop()
		c.loops.strafe.stop()
		c.client.ClearControls()
		s.Crouching = false
		s.Combat.Target = ""
		s.Combat.Combo = 0
	case model.ModeRecovering:
		if c.recCancel != nil {
			c.recCancel()
			c.recCancel = nil
		}
		s.Recovery = RecoveryNone
	}

	s.Mode = next

	switch next {
	case model.ModeIdle, model.ModeNavigating:
		c.loops.stuck.start()
		c.loops.movement.start()
	case model.ModeEngaged:
		c.loops.stuck.stop()
		c.loops.movement.stop()
		c.loops.combat.start()
		c.loops.strafe.start()
	case model.ModeRecovering, model.ModeDead:
		c.loops.stuck.stop()
		c.loops.movement.stop()
	}

	c.metrics.SetMode(next.String())
	if IsDebugEnabled() {
		c.log.Debug("mode changed", "from", prev, "to", next)
	}
}

// schedule posts ev after d.
func (c *Controller) schedule(d time.Duration, ev Event) Timer {
	return c.clock.AfterFunc(d, func() { c.Post(ev) })
}

// actionContext bounds a client action issued from the controller goroutine.
func (c *Controller) actionContext() (context.Context, context.CancelFunc) {
	timeout := c.cfg.Bridge.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return context.WithTimeout(c.ctx, timeout)
}

// sleep pauses the controller goroutine for a short, bounded action delay.
func (c *Controller) sleep(d time.Duration) bool {
	return c.clock.Sleep(c.ctx, d) == nil
}

// goHelper runs fn in a tracked goroutine.
func (c *Controller) goHelper(fn func()) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn()
	}()
}

func (c *Controller) distanceToDestination(self model.Self) float64 {
	return self.Position.DistanceTo(c.dest)
}

func (c *Controller) horizontalDistance(self model.Self) float64 {
	return self.Position.HorizontalDistanceTo(c.dest)
}

func (c *Controller) atDestination(self model.Self) bool {
	return c.horizontalDistance(self) <= c.cfg.Destination.Tolerance
}

// driftLimit is how far the agent may wander from a reached destination.
func (c *Controller) driftLimit() float64 {
	return max(2*c.cfg.Destination.Tolerance, c.cfg.Destination.MinDrift)
}

// selfPosition returns own body when the position is usable this tick.
func (c *Controller) selfPosition() (model.Self, bool) {
	self, ok := c.client.Self()
	if !ok || !self.Position.IsFinite() {
		return model.Self{}, false
	}
	return self, true
}

// stopPlanner halts the planner and leaves navigation.
func (c *Controller) stopPlanner() {
	ctx, cancel := c.actionContext()
	defer cancel()
	if err := c.planner.Stop(ctx); err != nil && IsDebugEnabled() {
		c.navLog.Debug("planner stop failed", "error", err)
	}
	if c.state.Mode == model.ModeNavigating {
		c.setMode(model.ModeIdle)
	}
}
