package main

import "encoding/json"

// Client -> Server message types
const (
	MsgCreateSpace    = "CREATE_SPACE"
	MsgJoinSpace      = "JOIN_SPACE"
	MsgQuickJoinSpace = "QUICK_JOIN_SPACE"
	MsgMove           = "MOVE"
	MsgSendChat       = "SEND_CHAT"
	MsgLeaveSpace     = "LEAVE_SPACE"
)

// Signaling message types — same identifier in both directions; the
// server forwards them verbatim between co-located peers.
const (
	MsgCreateOffer  = "createOffer"
	MsgCreateAnswer = "createAnswer"
	MsgIceCandidate = "iceCandidate"
	MsgCloseConn    = "close_conn"
)

// Server -> Client message types
const (
	MsgCreateSpaceResponse = "CREATE_SPACE_RESPONSE"
	MsgJoinSpaceResponse   = "JOIN_SPACE_RESPONSE"
	MsgQuickJoinResponse   = "QUICK_JOIN_RESPONSE"
	MsgPlayerList          = "PLAYER_LIST"
	MsgChat                = "CHAT"
	MsgUserPositions       = "USER_POSITIONS"
	MsgProximityMessage    = "PROXIMITY_MESSAGE"
	MsgProximityLeft       = "PROXIMITY_LEFT"
	MsgWebRTCConnected     = "webrtc_connected"
	MsgWebRTCDisconnected  = "webrtc_disconnected"
	MsgSpaceNotFound       = "SPACE_NOT_FOUND"
	MsgPing                = "PING"
)

// Position is a point on the map
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Player is one entry of a space's member list
type Player struct {
	UserID     string `json:"userId"`
	Username   string `json:"username"`
	UserColour string `json:"userColour"`
}

// CreateSpaceMsg is sent by a client to create a space and join it
type CreateSpaceMsg struct {
	UserID    string `json:"userId"`
	SpaceID   string `json:"spaceId"`
	SpaceName string `json:"spaceName"`
	Username  string `json:"username"`
}

// JoinSpaceMsg is sent by a client to join an existing space
type JoinSpaceMsg struct {
	UserID   string `json:"userId"`
	SpaceID  string `json:"spaceId"`
	Username string `json:"username"`
}

// MoveMsg carries a member's self-reported position update
type MoveMsg struct {
	UserID   string   `json:"userId"`
	SpaceID  string   `json:"spaceId"`
	Position Position `json:"position"`
}

// ChatMsg is an inbound chat line
type ChatMsg struct {
	UserID  string `json:"userId"`
	SpaceID string `json:"spaceId"`
	Chat    string `json:"chat"`
}

// LeaveSpaceMsg removes the sender from a space's member list
type LeaveSpaceMsg struct {
	UserID  string `json:"userId"`
	SpaceID string `json:"spaceId"`
}

// SignalMsg is an inbound peer-signaling frame. The payload is opaque —
// the server never parses it, it only gates delivery on shared
// proximity-group membership.
type SignalMsg struct {
	SpaceID      string          `json:"spaceId"`
	TargetUserID string          `json:"targetUserId"`
	Payload      json.RawMessage `json:"payload"`
}

// CreateSpaceResponse acknowledges CREATE_SPACE
type CreateSpaceResponse struct {
	Type       string `json:"type"`
	Status     bool   `json:"status"`
	SpaceID    string `json:"spaceId"`
	UserColour string `json:"userColour,omitempty"`
	Message    string `json:"message,omitempty"`
}

// JoinSpaceResponse acknowledges JOIN_SPACE
type JoinSpaceResponse struct {
	Type       string    `json:"type"`
	Status     bool      `json:"status"`
	Message    string    `json:"message"`
	SpaceID    string    `json:"spaceId"`
	UserColour string    `json:"userColour,omitempty"`
	Position   *Position `json:"position,omitempty"`
}

// QuickJoinResponse answers QUICK_JOIN_SPACE with a random space id
type QuickJoinResponse struct {
	Type    string `json:"type"`
	Status  bool   `json:"status"`
	SpaceID string `json:"spaceId,omitempty"`
	Message string `json:"message,omitempty"`
}

// PlayerListMsg is broadcast whenever a space's membership changes
type PlayerListMsg struct {
	Type       string   `json:"type"`
	PlayerList []Player `json:"playerList"`
}

// MoveBroadcast relays a movement to every other member
type MoveBroadcast struct {
	Type       string   `json:"type"`
	UserID     string   `json:"userId"`
	Position   Position `json:"position"`
	UserColour string   `json:"userColour"`
}

// ChatBroadcast relays a chat line to all members, sender included
type ChatBroadcast struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
	Chat   string `json:"chat"`
}

// UserPosition is one entry of a USER_POSITIONS snapshot
type UserPosition struct {
	UserID   string   `json:"userId"`
	Position Position `json:"position"`
}

// UserPositionsMsg gives a joiner the current position of every member
type UserPositionsMsg struct {
	Type      string         `json:"type"`
	Positions []UserPosition `json:"positions"`
}

// ProximityMsg announces (or re-announces) a proximity group roster
type ProximityMsg struct {
	Type    string   `json:"type"`
	RoomID  string   `json:"roomId"`
	Message string   `json:"message"`
	UserIDs []string `json:"userIds"`
}

// ProximityLeftMsg tells a user their proximity group is gone
type ProximityLeftMsg struct {
	Type    string `json:"type"`
	RoomID  string `json:"roomId"`
	Message string `json:"message"`
}

// WebRTCConnectedMsg tells members to begin peer signaling
type WebRTCConnectedMsg struct {
	Type    string   `json:"type"`
	RoomID  string   `json:"roomId"`
	UserIDs []string `json:"userIds"`
}

// WebRTCDisconnectedMsg tells members to tear down peer sessions.
// DisconnectedUserID is set when a single peer left a surviving group.
type WebRTCDisconnectedMsg struct {
	Type               string `json:"type"`
	RoomID             string `json:"roomId"`
	DisconnectedUserID string `json:"disconnectedUserId,omitempty"`
}

// SignalForward is a relayed signaling frame, tagged with the sender
// and the proximity room it was authorized against
type SignalForward struct {
	Type         string          `json:"type"`
	SenderUserID string          `json:"senderUserId"`
	RoomID       string          `json:"roomId"`
	Payload      json.RawMessage `json:"payload"`
}

// SpaceNotFoundMsg signals an unknown spaceId
type SpaceNotFoundMsg struct {
	Type string `json:"type"`
}

// PingMsg is the process-wide liveness broadcast; clients ignore it
type PingMsg struct {
	Type string `json:"type"`
}
