package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retrocraftdevops/seitech-sub002/internal/core"
)

func notif(id, title string) core.NotificationEvent {
	return core.NotificationEvent{ID: id, Type: "system", Title: title, Message: "m"}
}

func TestNotificationCenterPrependsMostRecentFirst(t *testing.T) {
	nc := NewNotificationCenter(NewEventRouter())

	nc.Push(notif("n1", "first"))
	nc.Push(notif("n2", "second"))
	nc.Push(notif("n3", "third"))

	items := nc.Items()
	require.Len(t, items, 3)
	assert.Equal(t, "n3", items[0].ID)
	assert.Equal(t, "n2", items[1].ID)
	assert.Equal(t, "n1", items[2].ID)
}

func TestNotificationCenterDeduplicatesById(t *testing.T) {
	nc := NewNotificationCenter(NewEventRouter())

	nc.Push(notif("n1", "old title"))
	nc.Push(notif("n2", "other"))
	nc.Push(notif("n1", "new title"))

	items := nc.Items()
	require.Len(t, items, 2, "update in place, no duplicate")
	assert.Equal(t, "n2", items[0].ID, "position preserved on update")
	assert.Equal(t, "n1", items[1].ID)
	assert.Equal(t, "new title", items[1].Title)
}

func TestNotificationCenterAssignsMissingId(t *testing.T) {
	nc := NewNotificationCenter(NewEventRouter())
	n := nc.Push(notif("", "anonymous"))
	assert.NotEmpty(t, n.ID)
}

func TestNotificationCenterReadTracking(t *testing.T) {
	nc := NewNotificationCenter(NewEventRouter())
	nc.Push(notif("n1", "a"))
	nc.Push(notif("n2", "b"))
	nc.Push(notif("n3", "c"))
	assert.Equal(t, 3, nc.Unread())

	assert.True(t, nc.MarkRead("n2"))
	assert.Equal(t, 2, nc.Unread())

	assert.False(t, nc.MarkRead("missing"))
	assert.Equal(t, 2, nc.Unread())

	nc.MarkAllRead()
	assert.Zero(t, nc.Unread())
}

func TestNotificationCenterUpdateResetsRead(t *testing.T) {
	nc := NewNotificationCenter(NewEventRouter())
	nc.Push(notif("n1", "a"))
	nc.MarkRead("n1")
	require.Zero(t, nc.Unread())

	nc.Push(notif("n1", "a, updated"))
	assert.Equal(t, 1, nc.Unread(), "updated notification is unread again")
}

func TestNotificationCenterConsumesRouterEvents(t *testing.T) {
	router := NewEventRouter()
	nc := NewNotificationCenter(router)

	router.Dispatch(notif("n1", "via router"))
	require.Len(t, nc.Items(), 1)
	assert.Equal(t, "via router", nc.Items()[0].Title)

	nc.Close()
	router.Dispatch(notif("n2", "after close"))
	assert.Len(t, nc.Items(), 1, "closed center no longer receives")
}
