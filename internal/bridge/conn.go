package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/udisondev/platekeeper/internal/agent"
	"github.com/udisondev/platekeeper/internal/config"
	"github.com/udisondev/platekeeper/internal/model"
)

var _ agent.Session = (*Conn)(nil)

// Conn is one websocket session with the world bridge. It is both the game
// client and the path planner of the agent.
//
// Writes go through a single writer goroutine (sendCh), reads happen only
// in Serve. Requests wait for an ack matched by id.
type Conn struct {
	cfg config.BridgeConfig
	ws  *websocket.Conn
	log *slog.Logger

	sendCh    chan []byte
	closeCh   chan struct{}
	closeOnce sync.Once
	closeErr  error

	pendingMu sync.Mutex
	pending   map[string]chan inbound

	view view
}

// Dial connects to the bridge. The username is passed as a query parameter.
func Dial(ctx context.Context, cfg config.BridgeConfig) (*Conn, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing bridge url: %w", err)
	}
	q := u.Query()
	q.Set("username", cfg.Username)
	u.RawQuery = q.Encode()

	dialer := websocket.Dialer{HandshakeTimeout: cfg.DialTimeout}
	ws, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dialing bridge %s: %w", cfg.URL, err)
	}

	c := &Conn{
		cfg:     cfg,
		ws:      ws,
		log:     slog.Default().With("component", "bridge"),
		sendCh:  make(chan []byte, sendQueueSize),
		closeCh: make(chan struct{}),
		pending: make(map[string]chan inbound),
	}
	go c.writePump()
	return c, nil
}

// Dialer adapts Dial to the runner.
func Dialer(cfg config.BridgeConfig) agent.Dialer {
	return func(ctx context.Context) (agent.Session, error) {
		c, err := Dial(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// Serve reads frames until the connection ends or ctx is cancelled.
// Acks complete pending requests, snapshots refresh the view and world
// events go to handler. A dropped connection is reported to handler as
// a disconnect before Serve returns.
func (c *Conn) Serve(ctx context.Context, handler func(agent.Event)) error {
	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errorIsClosed(err) {
				c.log.Info("bridge closed connection", "reason", err)
			} else {
				c.log.Warn("bridge read failed", "error", err)
			}
			_ = c.Close()
			handler(agent.Event{Kind: agent.EventDisconnected, Text: err.Error()})
			return fmt.Errorf("%w: %v", ErrClosed, err)
		}

		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			c.log.Warn("malformed frame", "error", err)
			continue
		}
		c.dispatch(msg, handler)
	}
}

func (c *Conn) dispatch(msg inbound, handler func(agent.Event)) {
	switch msg.Type {
	case msgAck:
		c.pendingMu.Lock()
		ch, ok := c.pending[msg.ID]
		c.pendingMu.Unlock()
		if !ok {
			if agent.IsDebugEnabled() {
				c.log.Debug("ack for unknown request", "id", msg.ID)
			}
			return
		}
		select {
		case ch <- msg:
		default:
		}

	case msgSnapshot:
		var s snapshotPayload
		if err := json.Unmarshal(msg.Payload, &s); err != nil {
			c.log.Warn("malformed snapshot", "error", err)
			return
		}
		c.view.apply(s)

	case msgEvent:
		var p eventPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			c.log.Warn("malformed event", "error", err)
			return
		}
		kind, ok := agent.ParseEventKind(p.Kind)
		if !ok {
			c.log.Warn("unknown event kind", "kind", p.Kind)
			return
		}
		handler(agent.Event{Kind: kind, Text: p.Text, EntityID: p.EntityID, Health: p.Health})

	default:
		c.log.Warn("unknown frame type", "type", msg.Type)
	}
}

// writePump is the only writer of the websocket.
func (c *Conn) writePump() {
	for {
		select {
		case frame := <-c.sendCh:
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				c.log.Warn("set write deadline failed", "error", err)
				_ = c.Close()
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.log.Warn("write failed", "error", err)
				_ = c.Close()
				return
			}
		case <-c.closeCh:
			return
		}
	}
}

// send queues a frame. Non-blocking: a full queue means the bridge stalled.
func (c *Conn) send(msg outbound) error {
	frame, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", msg.Type, err)
	}
	select {
	case <-c.closeCh:
		return ErrClosed
	default:
	}
	select {
	case c.sendCh <- frame:
		return nil
	case <-c.closeCh:
		return ErrClosed
	default:
		c.log.Warn("send queue full, closing bridge connection")
		_ = c.Close()
		return fmt.Errorf("%w: send queue full", ErrClosed)
	}
}

// request sends a frame with a fresh id and waits for its ack.
func (c *Conn) request(ctx context.Context, typ string, payload any) (inbound, error) {
	if err := ctx.Err(); err != nil {
		return inbound{}, err
	}
	id := uuid.NewString()
	ch := make(chan inbound, 1)

	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	if err := c.send(outbound{Type: typ, ID: id, Payload: payload}); err != nil {
		return inbound{}, err
	}

	select {
	case <-ctx.Done():
		return inbound{}, ctx.Err()
	case <-c.closeCh:
		return inbound{}, ErrClosed
	case reply := <-ch:
		return reply, nil
	}
}

// call is request for actions where only ok matters.
func (c *Conn) call(ctx context.Context, typ string, payload any) error {
	if _, ok := ctx.Deadline(); !ok {
		timeout := c.cfg.RequestTimeout
		if timeout <= 0 {
			timeout = defaultRequestTimeout
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	reply, err := c.request(ctx, typ, payload)
	if err != nil {
		return fmt.Errorf("%s: %w", typ, err)
	}
	if !reply.OK {
		return fmt.Errorf("%s: %w: %s", typ, ErrRejected, reply.Error)
	}
	return nil
}

// notify sends a fire-and-forget frame.
func (c *Conn) notify(typ string, payload any) {
	if err := c.send(outbound{Type: typ, Payload: payload}); err != nil && agent.IsDebugEnabled() {
		c.log.Debug("notify failed", "type", typ, "error", err)
	}
}

// Close shuts the connection down. Safe to call more than once.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.closeCh)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGrace))
		c.closeErr = c.ws.Close()
	})
	return c.closeErr
}

// Username returns the account the bridge logs in with.
func (c *Conn) Username() string { return c.cfg.Username }

func (c *Conn) Self() (model.Self, bool) { return c.view.getSelf() }

func (c *Conn) Players() []model.Entity { return c.view.getPlayers() }

func (c *Conn) Inventory() []model.Item { return c.view.getInventory() }

func (c *Conn) HotbarStart() int { return c.view.getHotbarStart() }

func (c *Conn) HeldItem() (model.Item, bool) { return c.view.getHeld() }

func (c *Conn) SetControl(control model.Control, on bool) {
	c.notify(reqSetControl, controlPayload{Control: control, State: on})
}

func (c *Conn) ClearControls() {
	c.notify(reqClearControls, nil)
}

func (c *Conn) LookAt(ctx context.Context, point model.Vec3) error {
	return c.call(ctx, reqLookAt, lookAtPayload{Point: point})
}

func (c *Conn) Attack(ctx context.Context, entityID int64) error {
	return c.call(ctx, reqAttack, attackPayload{EntityID: entityID})
}

func (c *Conn) Equip(ctx context.Context, item model.Item, slot model.EquipSlot) error {
	return c.call(ctx, reqEquip, equipPayload{Item: item, Destination: slot})
}

func (c *Conn) SelectHotbar(ctx context.Context, index int) error {
	return c.call(ctx, reqHotbarSelect, hotbarPayload{Slot: index})
}

func (c *Conn) ActivateItem(ctx context.Context) error {
	return c.call(ctx, reqActivateItem, nil)
}

func (c *Conn) Chat(ctx context.Context, text string) error {
	return c.call(ctx, reqChat, chatPayload{Text: text})
}

// WaitForChunks blocks until the terrain around the agent is loaded.
// Only ctx bounds it: chunk loading after a warp can take long.
func (c *Conn) WaitForChunks(ctx context.Context) error {
	reply, err := c.request(ctx, reqWaitChunks, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", reqWaitChunks, err)
	}
	if !reply.OK {
		return fmt.Errorf("%s: %w: %s", reqWaitChunks, ErrRejected, reply.Error)
	}
	return nil
}

// Configure applies the planner movement profile.
func (c *Conn) Configure(ctx context.Context, cfg config.PlannerConfig) error {
	return c.call(ctx, reqConfigure, newConfigurePayload(cfg))
}

// Goto walks to goal and returns when the planner finishes.
// Status noPath maps to agent.ErrNoRoute; planner errors keep their message
// so the controller can tell transient chunk errors apart.
func (c *Conn) Goto(ctx context.Context, goal model.Goal) error {
	if c.cfg.GotoTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.GotoTimeout)
		defer cancel()
	}

	c.view.setPathing(true)
	defer c.view.setPathing(false)

	reply, err := c.request(ctx, reqGoto, newGotoPayload(goal))
	if err != nil {
		return fmt.Errorf("%s: %w", reqGoto, err)
	}
	return gotoResult(reply)
}

func gotoResult(reply inbound) error {
	switch reply.Status {
	case gotoOK:
		return nil
	case gotoNoPath:
		return agent.ErrNoRoute
	case gotoError:
		return fmt.Errorf("%s: planner error: %s", reqGoto, reply.Error)
	}
	if reply.OK {
		return nil
	}
	if reply.Error == "" {
		return fmt.Errorf("%s: %w", reqGoto, ErrRejected)
	}
	return fmt.Errorf("%s: %w: %s", reqGoto, ErrRejected, reply.Error)
}

// Stop cancels the current planner goal.
func (c *Conn) Stop(ctx context.Context) error {
	if err := c.call(ctx, reqStop, nil); err != nil {
		return err
	}
	c.view.setPathing(false)
	return nil
}

// IsPathing reports whether the planner is walking a goal.
func (c *Conn) IsPathing() bool { return c.view.isPathing() }

// errorIsClosed reports whether err means the session is unusable.
func errorIsClosed(err error) bool {
	return errors.Is(err, ErrClosed) || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
