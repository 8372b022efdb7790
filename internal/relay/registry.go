package relay

import (
	"sync"
)

// Registry is the relay's in-memory membership table: which sessions
// joined which rooms. It is owned exclusively by the relay process and
// never persisted. Rooms exist only as their member set; a room appears
// on first join and disappears when its last member leaves.
type Registry struct {
	mu       sync.RWMutex
	sessions map[*Client]map[string]struct{}
	rooms    map[string]map[*Client]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[*Client]map[string]struct{}),
		rooms:    make(map[string]map[*Client]struct{}),
	}
}

// AddSession registers a connected session with no room memberships.
func (reg *Registry) AddSession(c *Client) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, ok := reg.sessions[c]; !ok {
		reg.sessions[c] = make(map[string]struct{})
	}
}

// RemoveSession drops a session and all its memberships. It returns the
// number of rooms that became empty and were dropped with it.
func (reg *Registry) RemoveSession(c *Client) int {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	var removed int
	for room := range reg.sessions[c] {
		if reg.dropMember(room, c) {
			removed++
		}
	}
	delete(reg.sessions, c)

	return removed
}

// Join adds the session to a room, creating the room on first join.
// It reports whether the room was created.
func (reg *Registry) Join(c *Client, room string) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, ok := reg.sessions[c]; !ok {
		reg.sessions[c] = make(map[string]struct{})
	}
	reg.sessions[c][room] = struct{}{}

	members, ok := reg.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		reg.rooms[room] = members
	}
	members[c] = struct{}{}

	return !ok
}

// Leave removes the session from a room. It reports whether the room
// became empty and was dropped.
func (reg *Registry) Leave(c *Client, room string) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	delete(reg.sessions[c], room)
	return reg.dropMember(room, c)
}

// dropMember removes c from a room's member set and reports whether the
// room was garbage-collected. Callers must hold the write lock.
func (reg *Registry) dropMember(room string, c *Client) bool {
	members, ok := reg.rooms[room]
	if !ok {
		return false
	}

	delete(members, c)
	if len(members) == 0 {
		delete(reg.rooms, room)
		return true
	}
	return false
}

// Broadcast queues the event to every session in the room except skip.
// It returns the number of sessions the event was queued to.
func (reg *Registry) Broadcast(room string, ev *Event, skip *Client) int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	var n int
	for c := range reg.rooms[room] {
		if c == skip {
			continue
		}
		if c.queueEvent(ev) {
			n++
		}
	}

	return n
}

// BroadcastAll queues the event to every connected session.
func (reg *Registry) BroadcastAll(ev *Event) int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	var n int
	for c := range reg.sessions {
		if c.queueEvent(ev) {
			n++
		}
	}

	return n
}

// Rooms returns the rooms the session has joined.
func (reg *Registry) Rooms(c *Client) []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	rooms := make([]string, 0, len(reg.sessions[c]))
	for room := range reg.sessions[c] {
		rooms = append(rooms, room)
	}

	return rooms
}

// RoomSize returns the number of sessions currently in the room.
func (reg *Registry) RoomSize(room string) int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	return len(reg.rooms[room])
}

// NumSessions returns the number of connected sessions.
func (reg *Registry) NumSessions() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	return len(reg.sessions)
}
