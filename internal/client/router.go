// Package client is the SDK side of the live connection: one connection
// manager per tab, a reference-counted room registry, a type-scoped event
// router and the feature hooks built on top of them.
package client

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/retrocraftdevops/seitech-sub002/internal/core"
)

// Handler consumes a matched event.
type Handler func(core.Event)

// Predicate scopes delivery of an event type to one registration, e.g. only
// replies for discussion 42. A nil predicate matches everything.
type Predicate func(core.Event) bool

type registration struct {
	id   uint64
	pred Predicate
	fn   Handler
}

// EventRouter fans each inbound event out to the registrations for its
// type. It is a pure dispatch layer: it never consults subscription state,
// and one misbehaving handler cannot affect the others.
type EventRouter struct {
	mu     sync.RWMutex
	nextID uint64
	byType map[string][]*registration
}

func NewEventRouter() *EventRouter {
	return &EventRouter{byType: make(map[string][]*registration)}
}

// On registers fn for events of eventType matching pred and returns a
// cancel func. Cancel is idempotent; callers own calling it on teardown.
func (r *EventRouter) On(eventType string, pred Predicate, fn Handler) func() {
	r.mu.Lock()
	r.nextID++
	reg := &registration{id: r.nextID, pred: pred, fn: fn}
	r.byType[eventType] = append(r.byType[eventType], reg)
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { r.remove(eventType, reg.id) })
	}
}

func (r *EventRouter) remove(eventType string, id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	old := r.byType[eventType]
	regs := make([]*registration, 0, len(old))
	for _, reg := range old {
		if reg.id != id {
			regs = append(regs, reg)
		}
	}
	if len(regs) == 0 {
		delete(r.byType, eventType)
		return
	}
	r.byType[eventType] = regs
}

// Dispatch delivers ev to every matching registration, in registration
// order. Dispatch runs on the read loop goroutine, so events of one
// connection are handled strictly in arrival order.
func (r *EventRouter) Dispatch(ev core.Event) {
	r.mu.RLock()
	regs := r.byType[ev.EventType()]
	snapshot := make([]*registration, len(regs))
	copy(snapshot, regs)
	r.mu.RUnlock()

	for _, reg := range snapshot {
		if !r.matches(reg, ev) {
			continue
		}
		r.invoke(reg, ev)
	}
}

// matches fails closed: a panicking predicate counts as no match.
func (r *EventRouter) matches(reg *registration, ev core.Event) (ok bool) {
	if reg.pred == nil {
		return true
	}
	defer func() {
		if rec := recover(); rec != nil {
			log.Warn().Str("module", "client.router").Str("event", ev.EventType()).
				Interface("panic", rec).Msg("predicate panicked, treating as no match")
			ok = false
		}
	}()
	return reg.pred(ev)
}

// invoke isolates handler failures so the remaining handlers still run.
func (r *EventRouter) invoke(reg *registration, ev core.Event) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Str("module", "client.router").Str("event", ev.EventType()).
				Interface("panic", rec).Msg("handler panicked")
		}
	}()
	reg.fn(ev)
}
