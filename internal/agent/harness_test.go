package agent

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/udisondev/platekeeper/internal/config"
	"github.com/udisondev/platekeeper/internal/model"
	"github.com/udisondev/platekeeper/internal/testutil"
)

// fakeClock adapts testutil.FakeClock to Clock.
type fakeClock struct {
	*testutil.FakeClock
}

func (c fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	return c.FakeClock.AfterFunc(d, f)
}

var (
	testDest  = model.NewVec3(100, 64, 100)
	testStart = model.NewVec3(0, 64, 0)
)

const (
	pumpIdle    = 20 * time.Millisecond
	pumpStep    = 500 * time.Millisecond
	pumpTimeout = 10 * time.Second
)

type harness struct {
	t       *testing.T
	c       *Controller
	cfg     config.Agent
	client  *testutil.FakeClient
	planner *testutil.FakePlanner
	clock   *testutil.FakeClock
	rng     *testutil.SeqRand
}

func testConfig() config.Agent {
	cfg := config.DefaultAgent()
	cfg.Destination = config.DestinationConfig{X: testDest.X, Y: testDest.Y, Z: testDest.Z, MinDrift: 1}
	cfg.Exempt = []string{"Friend"}
	return cfg
}

func newHarness(t *testing.T, mutate ...func(*config.Agent)) *harness {
	t.Helper()

	cfg := testConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	clock := testutil.NewFakeClock()
	client := testutil.NewFakeClient("Bot", testStart)
	client.Now = clock.Now
	planner := testutil.NewFakePlanner()
	rng := testutil.NewSeqRand()

	c := NewController(cfg, client, planner,
		WithClock(fakeClock{clock}),
		WithRand(rng),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	t.Cleanup(func() {
		c.cancel()
		c.loops.stopAll()
		c.wg.Wait()
	})

	return &harness{t: t, c: c, cfg: cfg, client: client, planner: planner, clock: clock, rng: rng}
}

func (h *harness) state() *State { return h.c.state }

// await handles queued events until one of kind has been handled. While the
// queue is idle the fake clock moves forward so timers and waits can fire.
func (h *harness) await(kind EventKind) Event {
	h.t.Helper()
	var got Event
	h.pump(func(ev Event, ok bool) bool {
		if ok && ev.Kind == kind {
			got = ev
			return true
		}
		return false
	})
	return got
}

// pumpUntil handles events until cond holds.
func (h *harness) pumpUntil(cond func() bool) {
	h.t.Helper()
	h.pump(func(Event, bool) bool { return cond() })
}

func (h *harness) pump(done func(ev Event, handled bool) bool) {
	h.t.Helper()
	deadline := time.Now().Add(pumpTimeout)
	if done(Event{}, false) {
		return
	}
	for time.Now().Before(deadline) {
		select {
		case ev := <-h.c.events:
			_ = h.c.handle(ev)
			if done(ev, true) {
				return
			}
		case <-time.After(pumpIdle):
			h.clock.Advance(pumpStep)
			if done(Event{}, false) {
				return
			}
		}
	}
	h.t.Fatalf("condition not reached in %s, mode %s", pumpTimeout, h.c.state.Mode)
}

// drainNow handles everything already queued without moving the clock.
func (h *harness) drainNow() {
	for {
		select {
		case ev := <-h.c.events:
			_ = h.c.handle(ev)
		default:
			return
		}
	}
}

// waitInFlight blocks until the planner holds n running goals.
func (h *harness) waitInFlight(n int) {
	h.t.Helper()
	require.Eventually(h.t, func() bool { return h.planner.InFlight() == n },
		2*time.Second, 5*time.Millisecond)
}

func (h *harness) placeAtDestination() {
	h.client.SetPosition(testDest)
}

func player(id int64, name string, pos model.Vec3) model.Entity {
	return model.Entity{ID: id, Name: name, Position: pos, Height: 1.8}
}

// near returns a point dx blocks east of p.
func near(p model.Vec3, dx float64) model.Vec3 {
	return p.Offset(dx, 0, 0)
}
