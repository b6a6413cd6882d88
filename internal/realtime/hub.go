package realtime

import (
	"log"
	"sync"
)

// Hub is the process-local connection registry and room membership table.
// It is owned by the server instance rather than being a package global so
// tests can spin up isolated hubs.
//
// Presence is last-writer-wins: a user's newer connection replaces the
// older one in conns, and the superseded connection's disconnect must not
// evict the newer registration.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*Client
	rooms map[uint64]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		conns: make(map[string]*Client),
		rooms: make(map[uint64]map[*Client]struct{}),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	prev := h.conns[c.userID]
	h.conns[c.userID] = c
	h.mu.Unlock()
	if prev != nil && prev != c {
		prev.close()
	}
	log.Printf("client registered: %s", c.userID)
}

// Unregister drops c from the registry and every room it joined. A stale
// disconnect from a superseded connection only clears room membership;
// the presence entry belongs to the newer connection.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if h.conns[c.userID] == c {
		delete(h.conns, c.userID)
	}
	for id, members := range h.rooms {
		if _, ok := members[c]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, id)
			}
		}
	}
	h.mu.Unlock()
	c.close()
	log.Printf("client unregistered: %s", c.userID)
}

func (h *Hub) IsOnline(uid string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.conns[uid]
	return ok
}

func (h *Hub) ListOnline() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.conns))
	for uid := range h.conns {
		out = append(out, uid)
	}
	return out
}

func (h *Hub) Join(c *Client, convID uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[convID]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[convID] = members
	}
	members[c] = struct{}{}
}

// Leave is idempotent; leaving a room never joined is a no-op.
func (h *Hub) Leave(c *Client, convID uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[convID]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.rooms, convID)
	}
}

func (h *Hub) InRoom(c *Client, convID uint64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[convID][c]
	return ok
}

// roomSnapshot pins membership at the moment of a broadcast; a client
// joining or leaving concurrently either fully receives or fully misses
// the payload.
func (h *Hub) roomSnapshot(convID uint64) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	members := h.rooms[convID]
	out := make([]*Client, 0, len(members))
	for c := range members {
		out = append(out, c)
	}
	return out
}

func (h *Hub) BroadcastRoom(convID uint64, payload []byte) {
	for _, c := range h.roomSnapshot(convID) {
		c.enqueue(payload)
	}
}

func (h *Hub) BroadcastRoomExcept(convID uint64, except *Client, payload []byte) {
	for _, c := range h.roomSnapshot(convID) {
		if c == except {
			continue
		}
		c.enqueue(payload)
	}
}

// SendToUser delivers to the user's personal channel, independent of any
// room membership. Reports whether the user had a live connection.
func (h *Hub) SendToUser(uid string, payload []byte) bool {
	h.mu.RLock()
	c, ok := h.conns[uid]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	c.enqueue(payload)
	return true
}
