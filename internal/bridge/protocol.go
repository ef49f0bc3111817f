package bridge

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/udisondev/platekeeper/internal/config"
	"github.com/udisondev/platekeeper/internal/model"
)

var (
	// ErrClosed - the websocket to the bridge is gone.
	ErrClosed = errors.New("bridge connection closed")
	// ErrRejected - the bridge acknowledged a request with ok=false.
	ErrRejected = errors.New("bridge rejected request")
)

// Request types sent to the bridge.
const (
	reqLookAt        = "look_at"
	reqAttack        = "attack"
	reqEquip         = "equip"
	reqSetControl    = "set_control"
	reqClearControls = "clear_controls"
	reqHotbarSelect  = "hotbar_select"
	reqActivateItem  = "activate_item"
	reqChat          = "chat"
	reqWaitChunks    = "wait_chunks"
	reqGoto          = "goto"
	reqStop          = "stop"
	reqConfigure     = "configure"
)

// Message types pushed by the bridge.
const (
	msgAck      = "ack"
	msgSnapshot = "snapshot"
	msgEvent    = "event"
)

// Goto result statuses.
const (
	gotoOK     = "ok"
	gotoNoPath = "noPath"
	gotoError  = "error"
)

// outbound is the envelope of every request: {type, id, payload}.
// Fire-and-forget requests carry no id and get no ack.
type outbound struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

// inbound is any frame from the bridge. Ack fields are top-level.
type inbound struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	OK      bool            `json:"ok"`
	Error   string          `json:"error,omitempty"`
	Status  string          `json:"status,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type lookAtPayload struct {
	Point model.Vec3 `json:"point"`
}

type attackPayload struct {
	EntityID int64 `json:"entityId"`
}

type equipPayload struct {
	Item        model.Item      `json:"item"`
	Destination model.EquipSlot `json:"destination"`
}

type controlPayload struct {
	Control model.Control `json:"control"`
	State   bool          `json:"state"`
}

type hotbarPayload struct {
	Slot int `json:"slot"`
}

type chatPayload struct {
	Text string `json:"text"`
}

type gotoPayload struct {
	Kind  string  `json:"kind"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
	Range float64 `json:"range"`
}

func newGotoPayload(g model.Goal) gotoPayload {
	kind := "near"
	if g.Kind == model.GoalXZ {
		kind = "xz"
	}
	return gotoPayload{Kind: kind, X: g.Target.X, Y: g.Target.Y, Z: g.Target.Z, Range: g.Range}
}

// configurePayload is the planner movement profile in bridge field names.
type configurePayload struct {
	CanJump         bool  `json:"canJump"`
	AllowSprinting  bool  `json:"allowSprinting"`
	MaxJumpHeight   int   `json:"maxJumpHeight"`
	AllowParkour    bool  `json:"allowParkour"`
	MaxFallDistance int   `json:"maxFallDistance"`
	AllowFalling    bool  `json:"allowFalling"`
	BreakBlocks     bool  `json:"canDig"`
	PlaceBlocks     bool  `json:"allow1by1towers"`
	AvoidWater      bool  `json:"avoidWater"`
	AvoidLava       bool  `json:"avoidLava"`
	AllowDiagonals  bool  `json:"allowDiagonals"`
	SearchRadius    int   `json:"searchRadius"`
	ThinkTimeoutMs  int64 `json:"thinkTimeout"`
	TimeoutMs       int64 `json:"timeout"`
}

func newConfigurePayload(p config.PlannerConfig) configurePayload {
	return configurePayload{
		CanJump:         p.CanJump,
		AllowSprinting:  p.AllowSprinting,
		MaxJumpHeight:   p.MaxJumpHeight,
		AllowParkour:    p.AllowParkour,
		MaxFallDistance: p.MaxFallDistance,
		AllowFalling:    p.AllowFalling,
		BreakBlocks:     p.BreakBlocks,
		PlaceBlocks:     p.PlaceBlocks,
		AvoidWater:      p.AvoidWater,
		AvoidLava:       p.AvoidLava,
		AllowDiagonals:  p.AllowDiagonals,
		SearchRadius:    p.SearchRadius,
		ThinkTimeoutMs:  p.ThinkTimeout.Milliseconds(),
		TimeoutMs:       p.Timeout.Milliseconds(),
	}
}

// snapshotPayload is the full world view the bridge pushes after every change.
type snapshotPayload struct {
	Self        *model.Self    `json:"self"`
	Players     []model.Entity `json:"players"`
	Inventory   []model.Item   `json:"inventory"`
	HotbarStart int            `json:"hotbarStart"`
	HeldItem    *model.Item    `json:"heldItem"`
	Pathing     bool           `json:"pathing"`
}

// eventPayload is one world event: spawn, death, chat, path_update, ...
type eventPayload struct {
	Kind     string  `json:"kind"`
	Text     string  `json:"text,omitempty"`
	EntityID int64   `json:"entityId,omitempty"`
	Health   float64 `json:"health,omitempty"`
}

const (
	defaultRequestTimeout = 5 * time.Second
	sendQueueSize         = 64
	writeTimeout          = 5 * time.Second
	closeGrace            = time.Second
)
