package agent

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/udisondev/platekeeper/internal/config"
	"github.com/udisondev/platekeeper/internal/model"
)

// GameClient is the part of the game-protocol client the controller needs.
// World reads return the latest view and never block; actions may suspend
// and must be treated as race windows.
type GameClient interface {
	Username() string

	// Self returns own body; false while the entity is not spawned yet.
	Self() (model.Self, bool)
	Players() []model.Entity
	Inventory() []model.Item
	HotbarStart() int
	HeldItem() (model.Item, bool)

	// SetControl and ClearControls are fire-and-forget.
	SetControl(control model.Control, on bool)
	ClearControls()

	LookAt(ctx context.Context, point model.Vec3) error
	Attack(ctx context.Context, entityID int64) error
	Equip(ctx context.Context, item model.Item, slot model.EquipSlot) error
	SelectHotbar(ctx context.Context, index int) error
	ActivateItem(ctx context.Context) error
	Chat(ctx context.Context, text string) error
	WaitForChunks(ctx context.Context) error
}

// Planner is the path-planning engine. Goto blocks until the goal is reached
// or planning fails: nil, ErrNoRoute, ErrTransient or any other error.
type Planner interface {
	Configure(ctx context.Context, cfg config.PlannerConfig) error
	Goto(ctx context.Context, goal model.Goal) error
	Stop(ctx context.Context) error
	IsPathing() bool
}

// Session is one live connection to the world: client, planner and the
// event stream feeding the controller.
type Session interface {
	GameClient
	Planner
	// Serve pumps world events into handler until the connection ends.
	Serve(ctx context.Context, handler func(Event)) error
	Close() error
}

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// Clock abstracts time so control loops can be driven deterministically.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
	After(d time.Duration) <-chan time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Rand is the random source behind every probabilistic decision.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// lockedRand lets recovery goroutines share the controller's source.
type lockedRand struct {
	mu  sync.Mutex
	src Rand
}

func newLockedRand(src Rand) *lockedRand {
	if src == nil {
		src = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15))
	}
	return &lockedRand{src: src}
}

func (r *lockedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.Float64()
}

func (r *lockedRand) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.IntN(n)
}

// between returns a random duration in [lo, hi].
func (r *lockedRand) between(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(r.IntN(int(hi-lo)+1))
}
