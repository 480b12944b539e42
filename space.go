package main

import (
	"errors"
	"sync"
)

// Contract constants for the shared map. These are part of the wire
// contract, not tuning knobs.
const (
	MapWidth          = 4000.0
	MapHeight         = 4000.0
	UserRadius        = 15.0
	CollisionDistance = 30.0
	ProximityDistance = 2 * CollisionDistance
	SpaceCapacity     = 6
)

const defaultColour = "#888888"

var (
	ErrSpaceFull     = errors.New("space is full")
	ErrNotMember     = errors.New("user is not a member of this space")
	ErrSpaceExists   = errors.New("space already exists")
	ErrTooManySpaces = errors.New("too many active spaces")
)

// Broadcaster is the outbound side of a connection. Sends must never
// block the caller; slow or closed receivers drop messages.
type Broadcaster interface {
	SendJSON(msg interface{})
}

// JoinResult reports what a join produced so the dispatcher can shape
// the protocol response (CREATE_SPACE and JOIN_SPACE answer differently).
type JoinResult struct {
	Colour    string
	Pos       Position
	Reconnect bool
}

// Space is one bounded room: an ordered member list, per-member colour
// and position, and its own proximity engine. All mutation is
// serialized through mu; the engine has its own lock and is only ever
// acquired while mu is held or from its heartbeat goroutines, never
// the other way around.
type Space struct {
	mu sync.Mutex

	ID   string
	Name string

	players   []Player
	positions map[string]Position
	conns     map[string]Broadcaster
	engine    *ProximityEngine
	analytics *Analytics
}

// NewSpace creates an empty space with its proximity engine
func NewSpace(id, name string, analytics *Analytics) *Space {
	return &Space{
		ID:        id,
		Name:      name,
		positions: make(map[string]Position),
		conns:     make(map[string]Broadcaster),
		engine:    NewProximityEngine(id, analytics),
		analytics: analytics,
	}
}

func (s *Space) memberIndexLocked(userID string) int {
	for i, p := range s.players {
		if p.UserID == userID {
			return i
		}
	}
	return -1
}

// Join adds a user to the space. If the user is already a member this
// is a reconnect: the connection is rebound and the existing colour
// and position are returned unchanged. A fresh join assigns a
// server-side colour and places the user via the spawn search. Join
// only mutates; the dispatcher answers the client first and then calls
// AnnounceJoin so the response always precedes the roster.
func (s *Space) Join(userID, username string, conn Broadcaster) (JoinResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.memberIndexLocked(userID); i >= 0 {
		s.conns[userID] = conn
		s.engine.BindSender(userID, conn)
		return JoinResult{
			Colour:    s.players[i].UserColour,
			Pos:       s.positions[userID],
			Reconnect: true,
		}, nil
	}

	if len(s.players) >= SpaceCapacity {
		return JoinResult{}, ErrSpaceFull
	}

	colour := RandomColour()
	occupied := make([]Position, 0, len(s.positions))
	for _, p := range s.positions {
		occupied = append(occupied, p)
	}
	pos := SpawnPosition(occupied)

	s.players = append(s.players, Player{UserID: userID, Username: username, UserColour: colour})
	s.positions[userID] = pos
	s.conns[userID] = conn
	s.engine.BindSender(userID, conn)

	s.analytics.Track(EvtSpaceJoined, userID, s.ID, nil)
	return JoinResult{Colour: colour, Pos: pos}, nil
}

// AnnounceJoin publishes the membership change: a fresh join
// broadcasts the roster to every member, a reconnect resends it to the
// rejoiner only. The joiner additionally gets a positions snapshot.
func (s *Space) AnnounceJoin(userID string, reconnect bool) {
	s.mu.Lock()
	roster := s.playerListLocked()
	snapshot := s.positionsSnapshotLocked()
	joiner := s.conns[userID]
	targets := s.connsSnapshotLocked()
	s.mu.Unlock()

	if reconnect {
		if joiner != nil {
			joiner.SendJSON(roster)
			joiner.SendJSON(snapshot)
		}
		return
	}
	for _, c := range targets {
		c.SendJSON(roster)
	}
	if joiner != nil {
		joiner.SendJSON(snapshot)
	}
}

// Move records a member's new position, relays it to every other
// member and recomputes the proximity partition. The reported
// coordinate is trusted as-is; server-side movement validation is a
// non-goal.
func (s *Space) Move(userID string, pos Position) error {
	s.mu.Lock()
	if s.memberIndexLocked(userID) < 0 {
		s.mu.Unlock()
		return ErrNotMember
	}
	s.positions[userID] = pos

	msg := MoveBroadcast{
		Type:       MsgMove,
		UserID:     userID,
		Position:   pos,
		UserColour: s.colourLocked(userID),
	}
	for id, c := range s.conns {
		if id != userID {
			c.SendJSON(msg)
		}
	}

	snapshot := make(map[string]Position, len(s.positions))
	for id, p := range s.positions {
		snapshot[id] = p
	}
	s.engine.Recompute(snapshot)
	s.mu.Unlock()
	return nil
}

// Chat broadcasts a chat line to every member, sender included
func (s *Space) Chat(userID, text string) {
	s.mu.Lock()
	targets := s.connsSnapshotLocked()
	s.mu.Unlock()

	msg := ChatBroadcast{Type: MsgChat, UserID: userID, Chat: text}
	for _, c := range targets {
		c.SendJSON(msg)
	}
	s.analytics.Track(EvtChatSent, userID, s.ID, nil)
}

// Leave removes a member, rebroadcasts the roster to the remainder and
// evicts the user from any proximity group. Returns false if the user
// was not a member.
func (s *Space) Leave(userID string) bool {
	s.mu.Lock()
	i := s.memberIndexLocked(userID)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.players = append(s.players[:i], s.players[i+1:]...)
	delete(s.positions, userID)
	delete(s.conns, userID)

	s.engine.UnbindSender(userID)
	s.engine.RemoveUser(userID)

	roster := s.playerListLocked()
	targets := s.connsSnapshotLocked()
	s.mu.Unlock()

	for _, c := range targets {
		c.SendJSON(roster)
	}
	s.analytics.Track(EvtSpaceLeft, userID, s.ID, nil)
	return true
}

// Relay hands a signaling frame to the proximity engine's gate
func (s *Space) Relay(senderID, msgType, targetUserID string, payload []byte) {
	s.engine.Relay(senderID, msgType, targetUserID, payload)
}

// ColourOf returns the member's assigned colour, or a neutral default
func (s *Space) ColourOf(userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.colourLocked(userID)
}

func (s *Space) colourLocked(userID string) string {
	if i := s.memberIndexLocked(userID); i >= 0 {
		return s.players[i].UserColour
	}
	return defaultColour
}

// MemberCount returns the current member count
func (s *Space) MemberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.players)
}

// PositionOf returns a member's current position
func (s *Space) PositionOf(userID string) (Position, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.positions[userID]
	return p, ok
}

// Engine exposes the proximity engine for metrics and tests
func (s *Space) Engine() *ProximityEngine {
	return s.engine
}

func (s *Space) playerListLocked() PlayerListMsg {
	list := make([]Player, len(s.players))
	copy(list, s.players)
	return PlayerListMsg{Type: MsgPlayerList, PlayerList: list}
}

func (s *Space) positionsSnapshotLocked() UserPositionsMsg {
	out := make([]UserPosition, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, UserPosition{UserID: p.UserID, Position: s.positions[p.UserID]})
	}
	return UserPositionsMsg{Type: MsgUserPositions, Positions: out}
}

func (s *Space) connsSnapshotLocked() []Broadcaster {
	out := make([]Broadcaster, 0, len(s.conns))
	for _, c := range s.conns {
		out = append(out, c)
	}
	return out
}
