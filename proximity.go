package main

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// heartbeatInterval is how often an active proximity group re-sends its
// roster to members. Variable so tests can shorten it.
var heartbeatInterval = 30 * time.Second

// proximityGroup is one ephemeral group of co-located users. The roomId
// is regenerated every time a group is created from scratch; membership
// updates that keep the group alive keep the same roomId.
type proximityGroup struct {
	roomID  string
	key     string
	members map[string]struct{}
	stop    chan struct{}
}

func (g *proximityGroup) memberIDs() []string {
	ids := make([]string, 0, len(g.members))
	for id := range g.members {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ProximityEngine maintains, for one space, the partition of members
// into proximity groups and gates the signaling relay on group
// co-membership. It keeps its own sender table so heartbeat goroutines
// never reach back into Space state; the lock order is always
// Space -> engine, never the reverse.
type ProximityEngine struct {
	mu        sync.Mutex
	spaceID   string
	groups    map[string]*proximityGroup // group key -> group
	userGroup map[string]string          // userId -> group key
	senders   map[string]Broadcaster
	analytics *Analytics
}

// NewProximityEngine creates the engine for one space
func NewProximityEngine(spaceID string, analytics *Analytics) *ProximityEngine {
	return &ProximityEngine{
		spaceID:   spaceID,
		groups:    make(map[string]*proximityGroup),
		userGroup: make(map[string]string),
		senders:   make(map[string]Broadcaster),
		analytics: analytics,
	}
}

// BindSender registers (or replaces, on reconnect) a member's outbound
// connection
func (e *ProximityEngine) BindSender(userID string, b Broadcaster) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.senders[userID] = b
}

// UnbindSender drops a member's outbound connection
func (e *ProximityEngine) UnbindSender(userID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.senders, userID)
}

func groupKeyOf(sortedIDs []string) string {
	return strings.Join(sortedIDs, "-")
}

func newRoomID() string {
	return fmt.Sprintf("subroom_%s", uuid.NewString())
}

// connectedComponents builds the distance graph over the given
// positions and returns every connected component of size >= 2,
// each sorted by user id.
func connectedComponents(positions map[string]Position) [][]string {
	const proximitySq = ProximityDistance * ProximityDistance

	ids := make([]string, 0, len(positions))
	for id := range positions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	adj := make(map[string][]string, len(ids))
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			a, b := ids[i], ids[j]
			if DistanceSq(positions[a], positions[b]) <= proximitySq {
				adj[a] = append(adj[a], b)
				adj[b] = append(adj[b], a)
			}
		}
	}

	visited := make(map[string]bool, len(ids))
	var comps [][]string
	for _, id := range ids {
		if visited[id] || len(adj[id]) == 0 {
			continue
		}
		comp := []string{id}
		work := []string{id}
		visited[id] = true
		for len(work) > 0 {
			cur := work[len(work)-1]
			work = work[:len(work)-1]
			for _, n := range adj[cur] {
				if !visited[n] {
					visited[n] = true
					comp = append(comp, n)
					work = append(work, n)
				}
			}
		}
		if len(comp) >= 2 {
			sort.Strings(comp)
			comps = append(comps, comp)
		}
	}
	return comps
}

// Recompute rebuilds the group partition from a position snapshot.
// Called under the owning Space's lock, so recomputations for the
// same space never overlap.
func (e *ProximityEngine) Recompute(positions map[string]Position) {
	comps := connectedComponents(positions)

	e.mu.Lock()
	defer e.mu.Unlock()

	live := make(map[string]bool, len(comps))
	for _, comp := range comps {
		key := groupKeyOf(comp)
		if _, ok := e.groups[key]; ok {
			// exact component already tracked, nothing changed
			live[key] = true
			continue
		}

		// Collect the existing groups this component overlaps.
		prevKeys := make([]string, 0, 1)
		seen := make(map[string]bool)
		for _, id := range comp {
			if k, ok := e.userGroup[id]; ok && !seen[k] {
				seen[k] = true
				prevKeys = append(prevKeys, k)
			}
		}

		if len(prevKeys) == 0 {
			e.createGroupLocked(key, comp)
			live[key] = true
			continue
		}

		// The group with the largest overlap survives and is re-keyed;
		// any others (a merge) are torn down first so their members
		// re-signal under the surviving roomId.
		survivor := e.groups[prevKeys[0]]
		best := 0
		for _, k := range prevKeys {
			g := e.groups[k]
			overlap := 0
			for _, id := range comp {
				if _, ok := g.members[id]; ok {
					overlap++
				}
			}
			if overlap > best {
				best = overlap
				survivor = g
			}
		}
		for _, k := range prevKeys {
			if g := e.groups[k]; g != survivor {
				e.destroyGroupLocked(g)
			}
		}
		e.updateGroupLocked(survivor, key, comp)
		live[key] = true
	}

	for key, g := range e.groups {
		if !live[key] {
			e.destroyGroupLocked(g)
		}
	}
}

// createGroupLocked stands up a fresh group: new roomId, heartbeat
// timer, and the initial roster + begin-signaling notifications.
func (e *ProximityEngine) createGroupLocked(key string, ids []string) {
	g := &proximityGroup{
		roomID:  newRoomID(),
		key:     key,
		members: make(map[string]struct{}, len(ids)),
		stop:    make(chan struct{}),
	}
	for _, id := range ids {
		g.members[id] = struct{}{}
		e.userGroup[id] = key
	}
	e.groups[key] = g

	Log.Infof("proximity group formed in space %s: %s (room %s)", e.spaceID, key, g.roomID)
	e.analytics.Track(EvtProximityFormed, "", e.spaceID, map[string]interface{}{"roomId": g.roomID, "users": ids})

	e.sendRosterLocked(g)
	msg := WebRTCConnectedMsg{Type: MsgWebRTCConnected, RoomID: g.roomID, UserIDs: ids}
	for _, id := range ids {
		e.sendToLocked(id, msg)
	}

	go e.heartbeat(g)
}

// updateGroupLocked moves an existing group to a new member set while
// keeping its roomId and heartbeat. Newly added members get a
// begin-signaling notification; members who drifted out get the
// end-of-proximity pair, and the remainder learn which peer left.
func (e *ProximityEngine) updateGroupLocked(g *proximityGroup, newKey string, ids []string) {
	newSet := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		newSet[id] = struct{}{}
	}

	var added, removed []string
	for _, id := range ids {
		if _, ok := g.members[id]; !ok {
			added = append(added, id)
		}
	}
	for id := range g.members {
		if _, ok := newSet[id]; !ok {
			removed = append(removed, id)
		}
	}

	delete(e.groups, g.key)
	g.key = newKey
	g.members = newSet
	e.groups[newKey] = g
	for _, id := range ids {
		e.userGroup[id] = newKey
	}
	for _, id := range removed {
		if e.userGroup[id] == newKey || e.groups[e.userGroup[id]] == nil {
			delete(e.userGroup, id)
		}
	}

	Log.Infof("proximity group in space %s now %d users: %s (room %s)", e.spaceID, len(ids), newKey, g.roomID)

	e.sendRosterLocked(g)
	if len(added) > 0 {
		msg := WebRTCConnectedMsg{Type: MsgWebRTCConnected, RoomID: g.roomID, UserIDs: ids}
		for _, id := range added {
			e.sendToLocked(id, msg)
		}
	}
	for _, id := range removed {
		e.sendToLocked(id, ProximityLeftMsg{Type: MsgProximityLeft, RoomID: g.roomID, Message: proximityLeftText})
		e.sendToLocked(id, WebRTCDisconnectedMsg{Type: MsgWebRTCDisconnected, RoomID: g.roomID})
		gone := WebRTCDisconnectedMsg{Type: MsgWebRTCDisconnected, RoomID: g.roomID, DisconnectedUserID: id}
		for _, rest := range ids {
			e.sendToLocked(rest, gone)
		}
	}
}

// destroyGroupLocked cancels the heartbeat synchronously and notifies
// every current member that proximity (and signaling) ended.
func (e *ProximityEngine) destroyGroupLocked(g *proximityGroup) {
	close(g.stop)

	ids := g.memberIDs()
	for _, id := range ids {
		e.sendToLocked(id, ProximityLeftMsg{Type: MsgProximityLeft, RoomID: g.roomID, Message: proximityLeftText})
		e.sendToLocked(id, WebRTCDisconnectedMsg{Type: MsgWebRTCDisconnected, RoomID: g.roomID})
		delete(e.userGroup, id)
	}
	delete(e.groups, g.key)

	Log.Infof("proximity group dissolved in space %s: %s (room %s)", e.spaceID, g.key, g.roomID)
	e.analytics.Track(EvtProximityEnded, "", e.spaceID, map[string]interface{}{"roomId": g.roomID, "users": ids})
}

// RemoveUser evicts a user on explicit space leave. A group left with
// fewer than two members is destroyed; otherwise it is re-keyed and the
// remaining members learn the new roster. No begin-signaling is sent
// for a departure.
func (e *ProximityEngine) RemoveUser(userID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	key, ok := e.userGroup[userID]
	if !ok {
		return
	}
	g := e.groups[key]
	if g == nil {
		delete(e.userGroup, userID)
		return
	}

	delete(g.members, userID)
	delete(e.userGroup, userID)

	if len(g.members) < 2 {
		e.destroyGroupLocked(g)
		return
	}

	ids := g.memberIDs()
	newKey := groupKeyOf(ids)
	delete(e.groups, g.key)
	g.key = newKey
	e.groups[newKey] = g
	for _, id := range ids {
		e.userGroup[id] = newKey
	}

	Log.Infof("user %s left proximity group in space %s, %d remain (room %s)", userID, e.spaceID, len(ids), g.roomID)

	e.sendRosterLocked(g)
	gone := WebRTCDisconnectedMsg{Type: MsgWebRTCDisconnected, RoomID: g.roomID, DisconnectedUserID: userID}
	for _, id := range ids {
		e.sendToLocked(id, gone)
	}
}

// Relay forwards an opaque signaling payload to the target if and only
// if sender and target currently share a proximity group. Unauthorized
// attempts are dropped with a warning; the sender learns nothing.
func (e *ProximityEngine) Relay(senderID, msgType, targetUserID string, payload []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()

	senderKey, ok := e.userGroup[senderID]
	if !ok {
		Log.Warnf("relay dropped in space %s: sender %s not in a proximity group", e.spaceID, senderID)
		return
	}
	if targetKey, ok := e.userGroup[targetUserID]; !ok || targetKey != senderKey {
		Log.Warnf("relay dropped in space %s: %s -> %s not co-members", e.spaceID, senderID, targetUserID)
		return
	}
	g := e.groups[senderKey]
	if g == nil {
		return
	}
	e.sendToLocked(targetUserID, SignalForward{
		Type:         msgType,
		SenderUserID: senderID,
		RoomID:       g.roomID,
		Payload:      payload,
	})
}

const proximityLeftText = "You have left proximity with other users"

func (e *ProximityEngine) sendRosterLocked(g *proximityGroup) {
	ids := g.memberIDs()
	msg := ProximityMsg{
		Type:    MsgProximityMessage,
		RoomID:  g.roomID,
		Message: "You are in proximity with " + strings.Join(ids, ", "),
		UserIDs: ids,
	}
	for _, id := range ids {
		e.sendToLocked(id, msg)
	}
}

func (e *ProximityEngine) sendToLocked(userID string, v interface{}) {
	if b := e.senders[userID]; b != nil {
		b.SendJSON(v)
	}
}

// heartbeat re-sends the roster every heartbeatInterval until the
// group is destroyed. The stop channel is closed under the engine lock
// so a destroyed group can never be re-announced.
func (e *ProximityEngine) heartbeat(g *proximityGroup) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-g.stop:
			return
		case <-ticker.C:
			e.mu.Lock()
			if e.groups[g.key] == g {
				e.sendRosterLocked(g)
			}
			e.mu.Unlock()
		}
	}
}

// GroupCount returns the number of live proximity groups
func (e *ProximityEngine) GroupCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.groups)
}

// GroupOf returns the roomId and sorted membership of the user's
// current group, if any
func (e *ProximityEngine) GroupOf(userID string) (roomID string, members []string, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	key, found := e.userGroup[userID]
	if !found {
		return "", nil, false
	}
	g := e.groups[key]
	if g == nil {
		return "", nil, false
	}
	return g.roomID, g.memberIDs(), true
}
