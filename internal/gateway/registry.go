package gateway

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

type sessionEntry struct {
	Conn   *liveConn
	Rooms  map[string]struct{}
	Cancel context.CancelFunc
}

// Registry tracks every live session and the rooms it has subscribed.
// Room membership is a plain set per session; the reverse index is computed
// on demand since publish frequency is low compared to churn.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*sessionEntry)}
}

func (r *Registry) Bind(sid string, conn *liveConn, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.sessions[sid]; ok && old.Cancel != nil {
		// A reconnect with the same token replaces the previous session.
		old.Cancel()
		old.Conn.Close()
	}
	r.sessions[sid] = &sessionEntry{
		Conn:   conn,
		Rooms:  make(map[string]struct{}),
		Cancel: cancel,
	}
	log.Info().Str("module", "gateway.registry").Str("sid", sid).Msg("bound session")
}

// Unbind removes sid's session, but only while it still owns conn. A rebind
// with the same token replaces the entry, and the replaced reader's teardown
// must not tear down its successor. Reports whether the entry was removed.
func (r *Registry) Unbind(sid string, conn *liveConn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok || e.Conn != conn {
		log.Info().Str("module", "gateway.registry").Str("sid", sid).Msg("skipping unbind of replaced session")
		return false
	}
	delete(r.sessions, sid)
	log.Info().Str("module", "gateway.registry").Str("sid", sid).Msg("unbind session")
	return true
}

// Join subscribes a session to a room. Joining twice is harmless.
func (r *Registry) Join(sid, room string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return false
	}
	e.Rooms[room] = struct{}{}
	log.Info().Str("module", "gateway.registry").Str("sid", sid).Str("room", room).Msg("joined room")
	return true
}

func (r *Registry) Leave(sid, room string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return false
	}
	if _, member := e.Rooms[room]; !member {
		return false
	}
	delete(e.Rooms, room)
	log.Info().Str("module", "gateway.registry").Str("sid", sid).Str("room", room).Msg("left room")
	return true
}

func (r *Registry) RoomsOf(sid string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(e.Rooms))
	for room := range e.Rooms {
		out = append(out, room)
	}
	return out
}

type memberSnap struct {
	SID  string
	Conn *liveConn
}

func (r *Registry) MembersOf(room string) []memberSnap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]memberSnap, 0, len(r.sessions))
	for sid, e := range r.sessions {
		if _, member := e.Rooms[room]; member {
			out = append(out, memberSnap{SID: sid, Conn: e.Conn})
		}
	}
	return out
}

func (r *Registry) SessionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// RoomCounts reports member counts per room, for the inspection endpoint.
func (r *Registry) RoomCounts() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]int)
	for _, e := range r.sessions {
		for room := range e.Rooms {
			out[room]++
		}
	}
	return out
}
