package testutil

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/udisondev/platekeeper/internal/model"
)

// ErrSimulated is a sentinel error for testing error handling paths
var ErrSimulated = errors.New("simulated error for testing")

// DefaultHotbarStart — первый слот хотбара в инвентаре игрока.
const DefaultHotbarStart = 36

// AttackCall — один вызов Attack, со временем фейковых часов.
type AttackCall struct {
	EntityID int64
	At       time.Time
}

// EquipCall — один вызов Equip.
type EquipCall struct {
	Item model.Item
	Slot model.EquipSlot
}

// FakeClient — in-memory game client для unit тестов контроллера.
// Все методы потокобезопасны: recovery-горутины вызывают его параллельно с тестом.
type FakeClient struct {
	mu sync.Mutex

	username    string
	self        model.Self
	spawned     bool
	players     []model.Entity
	inventory   []model.Item
	hotbarStart int
	held        *model.Item

	controls map[model.Control]bool

	attacks     []AttackCall
	looks       []model.Vec3
	equips      []EquipCall
	hotbar      []int
	activations int
	chats       []string
	chunkWaits  int
	clears      int

	// Now timestamps attacks; nil means time.Now.
	Now func() time.Time

	// OnChat is called (без блокировки) after every successful Chat.
	OnChat func(text string)
	// OnAttack is called (без блокировки) after every successful Attack.
	OnAttack func(entityID int64)

	AttackErr   error
	ChatErr     error
	ActivateErr error
	EquipErr    error
}

// NewFakeClient создаёт spawned клиента в точке pos.
func NewFakeClient(username string, pos model.Vec3) *FakeClient {
	return &FakeClient{
		username: username,
		self: model.Self{
			Entity:   model.Entity{ID: 1, Name: username, Position: pos, Height: 1.8},
			Health:   20,
			OnGround: true,
		},
		spawned:     true,
		hotbarStart: DefaultHotbarStart,
		controls:    make(map[model.Control]bool),
	}
}

// --- world reads ---

func (f *FakeClient) Username() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.username
}

func (f *FakeClient) Self() (model.Self, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.self, f.spawned
}

func (f *FakeClient) Players() []model.Entity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.players)
}

func (f *FakeClient) Inventory() []model.Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.inventory)
}

func (f *FakeClient) HotbarStart() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hotbarStart
}

func (f *FakeClient) HeldItem() (model.Item, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held == nil {
		return model.Item{}, false
	}
	return *f.held, true
}

// --- actions ---

func (f *FakeClient) SetControl(control model.Control, on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.controls[control] = on
}

func (f *FakeClient) ClearControls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	clear(f.controls)
	f.clears++
}

func (f *FakeClient) LookAt(ctx context.Context, point model.Vec3) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.looks = append(f.looks, point)
	return nil
}

func (f *FakeClient) Attack(ctx context.Context, entityID int64) error {
	f.mu.Lock()
	if f.AttackErr != nil {
		f.mu.Unlock()
		return f.AttackErr
	}
	now := time.Now()
	if f.Now != nil {
		now = f.Now()
	}
	f.attacks = append(f.attacks, AttackCall{EntityID: entityID, At: now})
	hook := f.OnAttack
	f.mu.Unlock()

	if hook != nil {
		hook(entityID)
	}
	return nil
}

func (f *FakeClient) Equip(ctx context.Context, item model.Item, slot model.EquipSlot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.EquipErr != nil {
		return f.EquipErr
	}
	f.equips = append(f.equips, EquipCall{Item: item, Slot: slot})
	if slot == model.EquipHand {
		held := item
		f.held = &held
	}
	return nil
}

func (f *FakeClient) SelectHotbar(ctx context.Context, index int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hotbar = append(f.hotbar, index)
	return nil
}

func (f *FakeClient) ActivateItem(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ActivateErr != nil {
		return f.ActivateErr
	}
	f.activations++
	return nil
}

func (f *FakeClient) Chat(ctx context.Context, text string) error {
	f.mu.Lock()
	if f.ChatErr != nil {
		err := f.ChatErr
		f.mu.Unlock()
		return err
	}
	f.chats = append(f.chats, text)
	hook := f.OnChat
	f.mu.Unlock()

	if hook != nil {
		hook(text)
	}
	return nil
}

func (f *FakeClient) WaitForChunks(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunkWaits++
	return ctx.Err()
}

// --- test setup ---

// SetPosition двигает агента.
func (f *FakeClient) SetPosition(pos model.Vec3) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.self.Position = pos
}

// SetVelocity sets the agent's own velocity.
func (f *FakeClient) SetVelocity(v model.Vec3) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.self.Velocity = v
}

// SetOnGround sets whether the agent stands on a block.
func (f *FakeClient) SetOnGround(onGround bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.self.OnGround = onGround
}

// SetSpawned controls whether Self reports a body.
func (f *FakeClient) SetSpawned(spawned bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spawned = spawned
}

// SetPlayers replaces the visible players.
func (f *FakeClient) SetPlayers(players ...model.Entity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.players = slices.Clone(players)
}

// SetInventory replaces inventory contents.
func (f *FakeClient) SetInventory(items ...model.Item) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inventory = slices.Clone(items)
}

// SetHeld sets main-hand item.
func (f *FakeClient) SetHeld(item model.Item) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.held = &item
}

// --- inspection ---

func (f *FakeClient) Attacks() []AttackCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.attacks)
}

func (f *FakeClient) Looks() []model.Vec3 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.looks)
}

func (f *FakeClient) Equips() []EquipCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.equips)
}

func (f *FakeClient) HotbarSelects() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.hotbar)
}

func (f *FakeClient) Activations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.activations
}

func (f *FakeClient) Chats() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.chats)
}

// ChatCount считает сколько раз было отправлено text.
func (f *FakeClient) ChatCount(text string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.chats {
		if c == text {
			n++
		}
	}
	return n
}

func (f *FakeClient) ChunkWaits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chunkWaits
}

func (f *FakeClient) Clears() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clears
}

// Control reports whether control is currently pressed.
func (f *FakeClient) Control(control model.Control) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.controls[control]
}
