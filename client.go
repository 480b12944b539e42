package main

import (
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 8192
	sendBufSize       = 256
	maxMessagesPerSec = 50
	maxNameLen        = 32
)

// Client represents one WebSocket connection
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	remoteAddr string

	// userID is the identity bound via CREATE_SPACE/JOIN_SPACE; it is
	// the sender identity for relayed signaling frames.
	userID string

	closed     atomic.Bool
	msgCount   int
	msgResetAt time.Time
}

// NewClient creates a new Client
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufSize),
		remoteAddr: remoteAddr,
	}
}

// Closed reports whether the connection has shut down
func (c *Client) Closed() bool {
	return c.closed.Load()
}

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump() {
	defer func() {
		c.closed.Store(true)
		c.hub.TrackDisconnect(c.remoteAddr)
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				Log.Infof("ws error: %v", err)
			}
			break
		}

		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > maxMessagesPerSec {
			Log.Warnf("rate limit exceeded for %s, disconnecting", c.remoteAddr)
			break
		}

		c.handleMessage(message)
	}
}

// WritePump writes messages to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendJSON sends a JSON message to the client
func (c *Client) SendJSON(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		Log.Errorf("marshal error: %v", err)
		return
	}
	c.SendRaw(data)
}

// SendRaw sends pre-marshaled bytes. Never blocks: a slow client drops
// messages, a closed client swallows the send.
func (c *Client) SendRaw(data []byte) {
	defer func() { recover() }()
	select {
	case c.send <- data:
	default:
	}
}

// handleMessage parses the type discriminator and routes to the typed
// handler. Malformed frames are dropped with a log line; the
// connection stays open.
func (c *Client) handleMessage(raw []byte) {
	var base struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &base); err != nil {
		Log.Warnf("protocol error from %s: %v", c.remoteAddr, err)
		return
	}

	switch base.Type {
	case MsgCreateSpace:
		c.handleCreateSpace(raw)
	case MsgJoinSpace:
		c.handleJoinSpace(raw)
	case MsgQuickJoinSpace:
		c.handleQuickJoin()
	case MsgMove:
		c.handleMove(raw)
	case MsgSendChat:
		c.handleChat(raw)
	case MsgLeaveSpace:
		c.handleLeave(raw)
	case MsgCreateOffer, MsgCreateAnswer, MsgIceCandidate, MsgCloseConn:
		c.handleSignal(base.Type, raw)
	case MsgPing, "pong":
		// liveness echoes, ignored
	default:
		Log.Debugf("unknown message type %q from %s", base.Type, c.remoteAddr)
	}
}

func trimName(name string) string {
	if len(name) > maxNameLen {
		return name[:maxNameLen]
	}
	return name
}

func (c *Client) handleCreateSpace(raw []byte) {
	var msg CreateSpaceMsg
	if err := json.Unmarshal(raw, &msg); err != nil || msg.UserID == "" || msg.SpaceID == "" {
		Log.Warnf("invalid CREATE_SPACE from %s", c.remoteAddr)
		return
	}

	space, err := c.hub.spaces.Create(msg.SpaceID, trimName(msg.SpaceName))
	if err != nil {
		c.SendJSON(CreateSpaceResponse{
			Type:    MsgCreateSpaceResponse,
			Status:  false,
			SpaceID: msg.SpaceID,
			Message: err.Error(),
		})
		return
	}

	c.userID = msg.UserID
	c.hub.registry.Bind(msg.UserID, c)

	res, err := space.Join(msg.UserID, trimName(msg.Username), c)
	if err != nil {
		// Cannot happen for a freshly created space, but never crash.
		Log.Errorf("join after create failed for %s: %v", msg.SpaceID, err)
		return
	}
	c.hub.registry.SetStatus(msg.UserID, StatusInSpace)
	c.hub.analytics.Track(EvtSpaceCreated, msg.UserID, msg.SpaceID, map[string]interface{}{"name": msg.SpaceName})

	c.SendJSON(CreateSpaceResponse{
		Type:       MsgCreateSpaceResponse,
		Status:     true,
		SpaceID:    msg.SpaceID,
		UserColour: res.Colour,
	})
	space.AnnounceJoin(msg.UserID, res.Reconnect)
}

func (c *Client) handleJoinSpace(raw []byte) {
	var msg JoinSpaceMsg
	if err := json.Unmarshal(raw, &msg); err != nil || msg.UserID == "" || msg.SpaceID == "" {
		Log.Warnf("invalid JOIN_SPACE from %s", c.remoteAddr)
		return
	}

	space := c.hub.spaces.Get(msg.SpaceID)
	if space == nil {
		c.SendJSON(SpaceNotFoundMsg{Type: MsgSpaceNotFound})
		c.SendJSON(JoinSpaceResponse{
			Type:    MsgJoinSpaceResponse,
			Status:  false,
			Message: "Space not found",
			SpaceID: msg.SpaceID,
		})
		return
	}

	c.userID = msg.UserID
	c.hub.registry.Bind(msg.UserID, c)

	res, err := space.Join(msg.UserID, trimName(msg.Username), c)
	if err != nil {
		c.SendJSON(JoinSpaceResponse{
			Type:    MsgJoinSpaceResponse,
			Status:  false,
			Message: "Space is full",
			SpaceID: msg.SpaceID,
		})
		return
	}
	c.hub.registry.SetStatus(msg.UserID, StatusInSpace)

	text := "You have joined the space successfully"
	if res.Reconnect {
		text = "You are already in the space"
	}
	pos := res.Pos
	c.SendJSON(JoinSpaceResponse{
		Type:       MsgJoinSpaceResponse,
		Status:     true,
		Message:    text,
		SpaceID:    msg.SpaceID,
		UserColour: res.Colour,
		Position:   &pos,
	})
	space.AnnounceJoin(msg.UserID, res.Reconnect)
}

func (c *Client) handleQuickJoin() {
	if id, ok := c.hub.spaces.Random(); ok {
		c.SendJSON(QuickJoinResponse{Type: MsgQuickJoinResponse, Status: true, SpaceID: id})
		return
	}
	c.SendJSON(QuickJoinResponse{Type: MsgQuickJoinResponse, Status: false, Message: "No spaces available"})
}

func (c *Client) handleMove(raw []byte) {
	var msg MoveMsg
	if err := json.Unmarshal(raw, &msg); err != nil || msg.UserID == "" {
		Log.Warnf("invalid MOVE from %s", c.remoteAddr)
		return
	}
	space := c.hub.spaces.Get(msg.SpaceID)
	if space == nil {
		c.SendJSON(SpaceNotFoundMsg{Type: MsgSpaceNotFound})
		return
	}
	if err := space.Move(msg.UserID, msg.Position); err != nil {
		Log.Debugf("move ignored: %v", err)
	}
}

func (c *Client) handleChat(raw []byte) {
	var msg ChatMsg
	if err := json.Unmarshal(raw, &msg); err != nil || msg.UserID == "" {
		Log.Warnf("invalid SEND_CHAT from %s", c.remoteAddr)
		return
	}
	space := c.hub.spaces.Get(msg.SpaceID)
	if space == nil {
		c.SendJSON(SpaceNotFoundMsg{Type: MsgSpaceNotFound})
		return
	}
	space.Chat(msg.UserID, msg.Chat)
}

func (c *Client) handleLeave(raw []byte) {
	var msg LeaveSpaceMsg
	if err := json.Unmarshal(raw, &msg); err != nil || msg.UserID == "" {
		Log.Warnf("invalid LEAVE_SPACE from %s", c.remoteAddr)
		return
	}
	space := c.hub.spaces.Get(msg.SpaceID)
	if space == nil {
		c.SendJSON(SpaceNotFoundMsg{Type: MsgSpaceNotFound})
		return
	}
	if space.Leave(msg.UserID) {
		c.hub.registry.SetStatus(msg.UserID, StatusIdle)
	}
}

// handleSignal relays an opaque peer-signaling frame. The sender
// identity comes from the connection binding, never from the frame.
func (c *Client) handleSignal(msgType string, raw []byte) {
	if c.userID == "" {
		Log.Warnf("signal %s dropped: connection %s has no bound user", msgType, c.remoteAddr)
		return
	}
	var msg SignalMsg
	if err := json.Unmarshal(raw, &msg); err != nil || msg.TargetUserID == "" {
		Log.Warnf("invalid %s from %s", msgType, c.remoteAddr)
		return
	}
	space := c.hub.spaces.Get(msg.SpaceID)
	if space == nil {
		Log.Warnf("signal %s dropped: unknown space %s", msgType, msg.SpaceID)
		return
	}
	space.Relay(c.userID, msgType, msg.TargetUserID, msg.Payload)
}
