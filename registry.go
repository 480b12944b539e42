package main

import "sync"

// UserStatus tracks whether a logical user is currently inside a space
type UserStatus int

const (
	StatusIdle UserStatus = iota
	StatusInSpace
)

// ConnectionRegistry maps stable user identities to their single live
// connection. A user has at most one connection at a time and a
// connection carries at most one identity; binds keep the two maps a
// true bijection. Reconnects supersede the previous connection without
// force-closing it.
type ConnectionRegistry struct {
	mu       sync.Mutex
	byUser   map[string]*Client
	byClient map[*Client]string
	status   map[string]UserStatus
}

// NewConnectionRegistry creates an empty registry
func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{
		byUser:   make(map[string]*Client),
		byClient: make(map[*Client]string),
		status:   make(map[string]UserStatus),
	}
}

// Bind establishes userID <-> client. A prior connection for the same
// user is silently dropped (reconnect); a stale identity on the given
// client is removed first. Binding a closed client is a logged no-op.
func (r *ConnectionRegistry) Bind(userID string, c *Client) {
	if c == nil || c.Closed() {
		Log.Infof("bind skipped for %s: connection not open", userID)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.byClient[c]; ok && old != userID {
		delete(r.byUser, old)
	}
	if prev, ok := r.byUser[userID]; ok && prev != c {
		delete(r.byClient, prev)
	}
	r.byUser[userID] = c
	r.byClient[c] = userID
	if _, ok := r.status[userID]; !ok {
		r.status[userID] = StatusIdle
	}
}

// Unbind removes whichever entry currently maps to the client. It does
// not touch space membership; LEAVE_SPACE is a separate, explicit path.
func (r *ConnectionRegistry) Unbind(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if userID, ok := r.byClient[c]; ok {
		if r.byUser[userID] == c {
			delete(r.byUser, userID)
		}
		delete(r.byClient, c)
	}
}

// ClientOf returns the live connection for a user, or nil
func (r *ConnectionRegistry) ClientOf(userID string) *Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byUser[userID]
}

// UserOf returns the identity bound to a connection, or ""
func (r *ConnectionRegistry) UserOf(c *Client) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byClient[c]
}

// SetStatus records a user's Idle/InSpace state
func (r *ConnectionRegistry) SetStatus(userID string, s UserStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status[userID] = s
}

// StatusOf returns the user's recorded state
func (r *ConnectionRegistry) StatusOf(userID string) UserStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status[userID]
}

// Count returns the number of bound connections
func (r *ConnectionRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byUser)
}
