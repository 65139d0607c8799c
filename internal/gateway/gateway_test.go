package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retrocraftdevops/seitech-sub002/internal/config"
	"github.com/retrocraftdevops/seitech-sub002/internal/core"
)

type testGateway struct {
	srv *httptest.Server
	reg *Registry
}

func newTestGateway(t *testing.T) *testGateway {
	t.Helper()
	return newTestGatewayWithOptions(t, ControllerOptions{
		SubscribeLimit:    100,
		SubscribeInterval: time.Minute,
	})
}

func (g *testGateway) dial(t *testing.T) *websocket.Conn {
	return g.dialWithHeader(t, nil)
}

func (g *testGateway) dialWithHeader(t *testing.T, header http.Header) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(g.srv.URL, "http") + "/api/ws/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func (g *testGateway) waitRoomCount(t *testing.T, room string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if g.reg.RoomCounts()[room] == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("room %q never reached %d members, have %v", room, want, g.reg.RoomCounts())
}

func (g *testGateway) inject(t *testing.T, room string, ev core.Event) map[string]int {
	t.Helper()
	payload, err := json.Marshal(ev)
	require.NoError(t, err)
	body, err := json.Marshal(map[string]any{
		"room":    room,
		"type":    ev.EventType(),
		"payload": json.RawMessage(payload),
	})
	require.NoError(t, err)

	resp, err := http.Post(g.srv.URL+"/api/events", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]int
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func sendFrame(t *testing.T, conn *websocket.Conn, f core.ControlFrame) {
	t.Helper()
	data, err := json.Marshal(f)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

func readEvent(t *testing.T, conn *websocket.Conn) core.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	ev, err := core.DecodeEvent(data)
	require.NoError(t, err)
	return ev
}

func TestGatewaySubscribePublishReceive(t *testing.T) {
	g := newTestGateway(t)
	conn := g.dial(t)

	sendFrame(t, conn, core.Subscribe("discussion:42"))
	g.waitRoomCount(t, "discussion:42", 1)

	res := g.inject(t, "discussion:42", core.ReplyEvent{DiscussionID: 42})
	assert.Equal(t, 1, res["delivered"])
	assert.Zero(t, res["dropped"])

	ev := readEvent(t, conn)
	re, ok := ev.(core.ReplyEvent)
	require.True(t, ok)
	assert.Equal(t, 42, re.DiscussionID)
}

func TestGatewayUnsubscribeStopsDelivery(t *testing.T) {
	g := newTestGateway(t)
	conn := g.dial(t)

	sendFrame(t, conn, core.Subscribe("leaderboard"))
	g.waitRoomCount(t, "leaderboard", 1)
	sendFrame(t, conn, core.ControlFrame{Type: core.ControlUnsubscribe, Room: "leaderboard"})
	g.waitRoomCount(t, "leaderboard", 0)

	res := g.inject(t, "leaderboard", core.LeaderboardUpdateEvent{Category: "points", Period: "weekly"})
	assert.Zero(t, res["delivered"])
}

func TestGatewayRoomScoping(t *testing.T) {
	g := newTestGateway(t)
	a := g.dial(t)
	b := g.dial(t)

	sendFrame(t, a, core.Subscribe("discussion:1"))
	sendFrame(t, b, core.Subscribe("discussion:2"))
	g.waitRoomCount(t, "discussion:1", 1)
	g.waitRoomCount(t, "discussion:2", 1)

	res := g.inject(t, "discussion:1", core.ViewEvent{DiscussionID: 1, Count: 3})
	assert.Equal(t, 1, res["delivered"], "only the subscribed session receives")

	ev := readEvent(t, a)
	assert.Equal(t, core.ViewEvent{DiscussionID: 1, Count: 3}, ev)
}

func TestGatewayPingPong(t *testing.T) {
	g := newTestGateway(t)
	conn := g.dial(t)

	sendFrame(t, conn, core.ControlFrame{Type: core.ControlPing})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"pong"}`, string(data))
}

func TestGatewayInjectValidation(t *testing.T) {
	g := newTestGateway(t)

	post := func(body string) int {
		resp, err := http.Post(g.srv.URL+"/api/events", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusBadRequest, post(`{"type":"discussion:view"}`), "room required")
	assert.Equal(t, http.StatusUnprocessableEntity,
		post(`{"room":"r","type":"future:event","payload":{}}`), "unknown event type")
	assert.Equal(t, http.StatusBadRequest,
		post(`{"room":"r","type":"discussion:view","payload":"not an object"}`), "malformed payload")
}

func TestGatewayRoomsEndpoint(t *testing.T) {
	g := newTestGateway(t)
	conn := g.dial(t)
	sendFrame(t, conn, core.Subscribe("discussion:42"))
	g.waitRoomCount(t, "discussion:42", 1)

	resp, err := http.Get(g.srv.URL + "/api/rooms")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Sessions int            `json:"sessions"`
		Rooms    map[string]int `json:"rooms"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, 1, out.Sessions)
	assert.Equal(t, 1, out.Rooms["discussion:42"])
}

func TestGatewayRebindSameTokenKeepsDelivery(t *testing.T) {
	g := newTestGateway(t)
	header := http.Header{"Cookie": {"ct=tok123"}}

	first := g.dialWithHeader(t, header)
	sendFrame(t, first, core.Subscribe("discussion:42"))
	g.waitRoomCount(t, "discussion:42", 1)

	// Same token again: the gateway replaces the session and closes the
	// first socket; the replaced reader's teardown must leave the new
	// session alone.
	second := g.dialWithHeader(t, header)

	require.NoError(t, first.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := first.ReadMessage()
	require.Error(t, err, "first connection is closed by the rebind")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && g.reg.SessionCount() != 1 {
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, 1, g.reg.SessionCount(), "rebound session survives the stale teardown")

	sendFrame(t, second, core.Subscribe("discussion:42"))
	g.waitRoomCount(t, "discussion:42", 1)

	res := g.inject(t, "discussion:42", core.ViewEvent{DiscussionID: 42, Count: 9})
	assert.Equal(t, 1, res["delivered"])
	assert.Equal(t, core.ViewEvent{DiscussionID: 42, Count: 9}, readEvent(t, second))
}

func newTestGatewayWithOptions(t *testing.T, opts ControllerOptions) *testGateway {
	t.Helper()
	cfg := &config.Config{Mode: "release", Secret: "test-secret"}
	reg := NewRegistry()
	hub := NewHub(reg)
	ctrl := NewLiveWSController(reg, opts)
	ctx, cancel := context.WithCancel(context.Background())
	srv := httptest.NewServer(SetupRouter(ctx, cfg, ctrl, hub, reg))
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return &testGateway{srv: srv, reg: reg}
}

func TestGatewayDropsSilentClient(t *testing.T) {
	g := newTestGatewayWithOptions(t, ControllerOptions{
		PingPeriod:        50 * time.Millisecond,
		SubscribeLimit:    100,
		SubscribeInterval: time.Minute,
	})

	// Dial and then never read, so pings are never answered.
	conn := g.dial(t)
	sendFrame(t, conn, core.Subscribe("leaderboard"))
	g.waitRoomCount(t, "leaderboard", 1)

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) && g.reg.SessionCount() != 0 {
		time.Sleep(10 * time.Millisecond)
	}
	assert.Zero(t, g.reg.SessionCount(), "unresponsive client lingers in the registry")
}

func TestGatewaySubscribeRateLimit(t *testing.T) {
	g := newTestGatewayWithOptions(t, ControllerOptions{
		SubscribeLimit:    2,
		SubscribeInterval: time.Minute,
	})
	conn := g.dial(t)

	sendFrame(t, conn, core.Subscribe("a"))
	sendFrame(t, conn, core.Subscribe("b"))
	sendFrame(t, conn, core.Subscribe("c")) // over the limit

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"error","error":"subscribe rate limited"}`, string(data))

	g.waitRoomCount(t, "a", 1)
	g.waitRoomCount(t, "b", 1)
	assert.Zero(t, g.reg.RoomCounts()["c"])
}
