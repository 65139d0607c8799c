package client

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/retrocraftdevops/seitech-sub002/internal/core"
	"github.com/retrocraftdevops/seitech-sub002/internal/domain"
)

// NotificationCenter consumes notification events off the router and keeps
// an ordered, deduplicated, most-recent-first list. Read tracking here is
// purely local; consumers that want server-side read state call the
// backend's own endpoint separately.
type NotificationCenter struct {
	mu     sync.Mutex
	items  []domain.Notification
	cancel func()
	now    func() time.Time
}

func NewNotificationCenter(router *EventRouter) *NotificationCenter {
	nc := &NotificationCenter{now: time.Now}
	nc.cancel = router.On(core.EventNotification, nil, func(ev core.Event) {
		if n, ok := ev.(core.NotificationEvent); ok {
			nc.Push(n)
		}
	})
	return nc
}

// Push records a notification. A known id is replaced in place (update
// semantics, back to unread); a new one is prepended. Events arriving
// without an id get one assigned locally.
func (nc *NotificationCenter) Push(ev core.NotificationEvent) domain.Notification {
	n := domain.Notification{
		ID:         ev.ID,
		Type:       ev.Type,
		Title:      ev.Title,
		Message:    ev.Message,
		Link:       ev.Link,
		Data:       ev.Data,
		ReceivedAt: nc.now(),
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}

	nc.mu.Lock()
	defer nc.mu.Unlock()
	for i := range nc.items {
		if nc.items[i].ID == n.ID {
			nc.items[i] = n
			return n
		}
	}
	nc.items = append([]domain.Notification{n}, nc.items...)
	return n
}

// Items returns a copy of the list, most recent first.
func (nc *NotificationCenter) Items() []domain.Notification {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	out := make([]domain.Notification, len(nc.items))
	copy(out, nc.items)
	return out
}

// Unread counts the notifications not yet marked read.
func (nc *NotificationCenter) Unread() int {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	n := 0
	for i := range nc.items {
		if !nc.items[i].Read {
			n++
		}
	}
	return n
}

// MarkRead flags one notification as read and reports whether it was found.
func (nc *NotificationCenter) MarkRead(id string) bool {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	for i := range nc.items {
		if nc.items[i].ID == id {
			nc.items[i].Read = true
			return true
		}
	}
	return false
}

func (nc *NotificationCenter) MarkAllRead() {
	nc.mu.Lock()
	defer nc.mu.Unlock()
	for i := range nc.items {
		nc.items[i].Read = true
	}
}

// Close deregisters the router handler.
func (nc *NotificationCenter) Close() {
	nc.cancel()
}
