package main

import (
	"sync"
	"time"
)

// Connection caps. Variables so tests can loosen the per-IP limit.
var (
	maxConnsPerIP = 5
	maxTotalConns = 1000
)

// pingInterval is the process-wide liveness broadcast period. Variable
// so tests can shorten it.
var pingInterval = 30 * time.Second

// Hub owns everything shared across spaces: the set of live
// connections, the identity registry and the space registry.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client

	registry *ConnectionRegistry
	spaces   *SpaceRegistry

	// Connection limiting (mutex-protected, accessed from HTTP handlers)
	connMu     sync.Mutex
	ipConns    map[string]int
	totalConns int

	analytics *Analytics
}

// NewHub creates a new Hub
func NewHub(analytics *Analytics) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		registry:   NewConnectionRegistry(),
		spaces:     NewSpaceRegistry(analytics),
		ipConns:    make(map[string]int),
		analytics:  analytics,
	}
}

// CanAccept enforces the per-IP and total connection caps
func (h *Hub) CanAccept(ip string) bool {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	if h.totalConns >= maxTotalConns {
		return false
	}
	if h.ipConns[ip] >= maxConnsPerIP {
		return false
	}
	return true
}

func (h *Hub) TrackConnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]++
	h.totalConns++
}

func (h *Hub) TrackDisconnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]--
	if h.ipConns[ip] <= 0 {
		delete(h.ipConns, ip)
	}
	h.totalConns--
}

// Run processes register/unregister events. Closing a socket unbinds
// the identity mapping but deliberately does not remove the user from
// any space; LEAVE_SPACE is the only membership-removal path.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.registry.Unbind(client)
		}
	}
}

// RunPinger broadcasts the application-level PING frame to every live
// connection until stop is closed
func (h *Hub) RunPinger(stop <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			msg := PingMsg{Type: MsgPing}
			h.mu.RLock()
			targets := make([]*Client, 0, len(h.clients))
			for c := range h.clients {
				targets = append(targets, c)
			}
			h.mu.RUnlock()
			for _, c := range targets {
				c.SendJSON(msg)
			}
		}
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// TotalConns returns the tracked connection count
func (h *Hub) TotalConns() int {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	return h.totalConns
}
