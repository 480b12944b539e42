package main

import (
	"regexp"
	"sync"
	"testing"
)

// mockBroadcaster captures sent messages for testing
type mockBroadcaster struct {
	mu       sync.Mutex
	messages []interface{}
}

func (m *mockBroadcaster) SendJSON(msg interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
}

func (m *mockBroadcaster) all() []interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]interface{}, len(m.messages))
	copy(out, m.messages)
	return out
}

func (m *mockBroadcaster) countType(msgType string) int {
	n := 0
	for _, raw := range m.all() {
		switch v := raw.(type) {
		case ProximityMsg:
			if v.Type == msgType {
				n++
			}
		case ProximityLeftMsg:
			if v.Type == msgType {
				n++
			}
		case WebRTCConnectedMsg:
			if v.Type == msgType {
				n++
			}
		case WebRTCDisconnectedMsg:
			if v.Type == msgType {
				n++
			}
		case MoveBroadcast:
			if v.Type == msgType {
				n++
			}
		case ChatBroadcast:
			if v.Type == msgType {
				n++
			}
		case PlayerListMsg:
			if v.Type == msgType {
				n++
			}
		case UserPositionsMsg:
			if v.Type == msgType {
				n++
			}
		case SignalForward:
			if v.Type == msgType {
				n++
			}
		}
	}
	return n
}

var colourRe = regexp.MustCompile(`^#[0-9A-F]{6}$`)

func TestJoinAssignsColourAndPosition(t *testing.T) {
	s := NewSpace("s1", "Test Space", nil)
	conn := &mockBroadcaster{}

	res, err := s.Join("u1", "alice", conn)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	s.AnnounceJoin("u1", res.Reconnect)
	if !colourRe.MatchString(res.Colour) {
		t.Errorf("colour %q is not a 6-digit hex colour", res.Colour)
	}
	if res.Reconnect {
		t.Error("first join must not be a reconnect")
	}
	if res.Pos.X < UserRadius || res.Pos.X > MapWidth-UserRadius ||
		res.Pos.Y < UserRadius || res.Pos.Y > MapHeight-UserRadius {
		t.Errorf("spawn %v leaves the footprint outside the map", res.Pos)
	}
	if s.MemberCount() != 1 {
		t.Errorf("expected 1 member, got %d", s.MemberCount())
	}
	if conn.countType(MsgPlayerList) != 1 {
		t.Error("joiner should receive the player list")
	}
	if conn.countType(MsgUserPositions) != 1 {
		t.Error("joiner should receive the positions snapshot")
	}
}

func TestJoinCapacity(t *testing.T) {
	s := NewSpace("s1", "Test Space", nil)
	for i := 0; i < SpaceCapacity; i++ {
		if _, err := s.Join(string(rune('a'+i)), "user", &mockBroadcaster{}); err != nil {
			t.Fatalf("join %d: %v", i, err)
		}
	}

	_, err := s.Join("late", "late", &mockBroadcaster{})
	if err != ErrSpaceFull {
		t.Fatalf("expected ErrSpaceFull, got %v", err)
	}
	if s.MemberCount() != SpaceCapacity {
		t.Errorf("member count changed on failed join: %d", s.MemberCount())
	}
}

func TestRejoinKeepsColourAndRoster(t *testing.T) {
	s := NewSpace("s1", "Test Space", nil)
	first, _ := s.Join("u1", "alice", &mockBroadcaster{})
	s.Join("u2", "bob", &mockBroadcaster{})

	reconn := &mockBroadcaster{}
	again, err := s.Join("u1", "alice", reconn)
	if err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	s.AnnounceJoin("u1", again.Reconnect)
	if !again.Reconnect {
		t.Error("rejoin should be flagged as reconnect")
	}
	if again.Colour != first.Colour {
		t.Errorf("colour re-rolled on reconnect: %q -> %q", first.Colour, again.Colour)
	}
	if again.Pos != first.Pos {
		t.Errorf("position changed on reconnect: %v -> %v", first.Pos, again.Pos)
	}
	if s.MemberCount() != 2 {
		t.Errorf("reconnect duplicated the member entry: %d members", s.MemberCount())
	}

	// Reconnect resends the roster to the rejoiner only.
	for _, raw := range reconn.all() {
		if pl, ok := raw.(PlayerListMsg); ok {
			if len(pl.PlayerList) != 2 {
				t.Errorf("expected 2 roster entries, got %d", len(pl.PlayerList))
			}
		}
	}
}

func TestMoveBroadcastsToOthersOnly(t *testing.T) {
	s := NewSpace("s1", "Test Space", nil)
	c1 := &mockBroadcaster{}
	c2 := &mockBroadcaster{}
	s.Join("u1", "alice", c1)
	s.Join("u2", "bob", c2)

	if err := s.Move("u1", Position{X: 100, Y: 100}); err != nil {
		t.Fatalf("move: %v", err)
	}

	if c1.countType(MsgMove) != 0 {
		t.Error("mover must not receive its own MOVE broadcast")
	}
	if c2.countType(MsgMove) != 1 {
		t.Error("other member should receive exactly one MOVE broadcast")
	}
	if p, _ := s.PositionOf("u1"); p != (Position{X: 100, Y: 100}) {
		t.Errorf("position not updated: %v", p)
	}
}

func TestMoveUnknownMember(t *testing.T) {
	s := NewSpace("s1", "Test Space", nil)
	s.Join("u1", "alice", &mockBroadcaster{})
	if err := s.Move("ghost", Position{X: 1, Y: 1}); err != ErrNotMember {
		t.Fatalf("expected ErrNotMember, got %v", err)
	}
}

func TestChatBroadcastsToAll(t *testing.T) {
	s := NewSpace("s1", "Test Space", nil)
	c1 := &mockBroadcaster{}
	c2 := &mockBroadcaster{}
	s.Join("u1", "alice", c1)
	s.Join("u2", "bob", c2)

	s.Chat("u1", "hello")

	if c1.countType(MsgChat) != 1 || c2.countType(MsgChat) != 1 {
		t.Error("chat should reach every member including the sender")
	}
}

func TestLeaveRemovesMemberAndRebroadcasts(t *testing.T) {
	s := NewSpace("s1", "Test Space", nil)
	c1 := &mockBroadcaster{}
	c2 := &mockBroadcaster{}
	s.Join("u1", "alice", c1)
	s.Join("u2", "bob", c2)

	before := c2.countType(MsgPlayerList)
	if !s.Leave("u1") {
		t.Fatal("leave returned false for a member")
	}
	if s.MemberCount() != 1 {
		t.Errorf("expected 1 member after leave, got %d", s.MemberCount())
	}
	if _, ok := s.PositionOf("u1"); ok {
		t.Error("position entry should be gone after leave")
	}
	if c2.countType(MsgPlayerList) != before+1 {
		t.Error("remaining member should get the updated roster")
	}
	if s.Leave("u1") {
		t.Error("second leave should report not-a-member")
	}
}

func TestColourOfDefault(t *testing.T) {
	s := NewSpace("s1", "Test Space", nil)
	if got := s.ColourOf("nobody"); got != defaultColour {
		t.Errorf("expected %q for unknown user, got %q", defaultColour, got)
	}
}
