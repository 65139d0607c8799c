package client

import "sync"

// RoomRegistry reference-counts the rooms the client wants to observe. The
// desired set survives disconnects and is replayed in first-subscribe order
// after every (re)connect. It owns no transport; the manager emits the
// actual control frames.
type RoomRegistry struct {
	mu     sync.Mutex
	counts map[string]int
	order  []string
}

func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{counts: make(map[string]int)}
}

// Add increments room's reference count and reports whether the room just
// became desired (0 -> 1).
func (r *RoomRegistry) Add(room string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[room]++
	if r.counts[room] == 1 {
		r.order = append(r.order, room)
		return true
	}
	return false
}

// Remove decrements room's reference count and reports whether the room
// just left the desired set (1 -> 0). Removing a room at zero is a no-op;
// the count never goes negative.
func (r *RoomRegistry) Remove(room string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.counts[room]
	if !ok {
		return false
	}
	if n > 1 {
		r.counts[room] = n - 1
		return false
	}
	delete(r.counts, room)
	for i, name := range r.order {
		if name == room {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Count returns room's current reference count.
func (r *RoomRegistry) Count(room string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[room]
}

// Desired returns the desired rooms in first-subscribe order.
func (r *RoomRegistry) Desired() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Replay emits one subscribe per desired room, in deterministic insertion
// order. It stops on the first send failure so the manager can treat the
// connection as not caught up.
func (r *RoomRegistry) Replay(send func(room string) error) error {
	for _, room := range r.Desired() {
		if err := send(room); err != nil {
			return err
		}
	}
	return nil
}
