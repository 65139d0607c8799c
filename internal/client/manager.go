package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/retrocraftdevops/seitech-sub002/internal/core"
)

const writeTimeout = 5 * time.Second

var (
	ErrBackpressure = errors.New("backpressure")
	// ErrRetriesExhausted is the terminal error surfaced to error callbacks
	// when the reconnect budget runs out.
	ErrRetriesExhausted = errors.New("retry budget exhausted")
)

// Options configure the connection manager.
type Options struct {
	URL              string
	HandshakeTimeout time.Duration
	BackoffBase      time.Duration
	BackoffCap       time.Duration
	MaxRetries       int
	SendBuffer       int
	PingPeriod       time.Duration
}

func (o *Options) withDefaults() {
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = 10 * time.Second
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = time.Second
	}
	if o.BackoffCap <= 0 {
		o.BackoffCap = 30 * time.Second
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 5
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 32
	}
	if o.PingPeriod <= 0 {
		o.PingPeriod = 54 * time.Second
	}
}

// Manager owns the single live connection shared by every feature hook in a
// tab: its lifecycle state machine, the reconnect policy and the
// desired-room set that survives disconnects. Ownership of the connection
// is reference-counted through Subscribe/Unsubscribe; no hook closes the
// transport on its own.
type Manager struct {
	opts   Options
	rooms  *RoomRegistry
	router *EventRouter

	mu          sync.Mutex
	state       core.ConnState
	retries     int
	conn        *websocket.Conn
	send        chan []byte
	cancel      context.CancelFunc
	manualClose bool
	replayDone  bool

	cbMu         sync.Mutex
	onConnect    []func()
	onDisconnect []func()
	onError      []func(error)
}

func NewManager(opts Options) *Manager {
	opts.withDefaults()
	return &Manager{
		opts:   opts,
		rooms:  NewRoomRegistry(),
		router: NewEventRouter(),
		state:  core.StateDisconnected,
	}
}

func (m *Manager) Router() *EventRouter { return m.router }

func (m *Manager) State() core.ConnState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Rooms exposes the desired-room registry, mainly for inspection.
func (m *Manager) Rooms() *RoomRegistry { return m.rooms }

func (m *Manager) OnConnect(fn func()) {
	m.cbMu.Lock()
	m.onConnect = append(m.onConnect, fn)
	m.cbMu.Unlock()
}

func (m *Manager) OnDisconnect(fn func()) {
	m.cbMu.Lock()
	m.onDisconnect = append(m.onDisconnect, fn)
	m.cbMu.Unlock()
}

func (m *Manager) OnError(fn func(error)) {
	m.cbMu.Lock()
	m.onError = append(m.onError, fn)
	m.cbMu.Unlock()
}

// Connect opens the transport. It is a no-op while a connection attempt is
// already in flight or established. Dial outcomes surface through the
// lifecycle callbacks, not a return value: transport errors trigger backoff
// and, once the retry budget is spent, a terminal error to every error
// callback.
func (m *Manager) Connect(ctx context.Context) {
	m.mu.Lock()
	if m.state == core.StateConnecting || m.state == core.StateConnected {
		m.mu.Unlock()
		return
	}
	m.state = core.StateConnecting
	m.retries = 0
	m.manualClose = false
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.mu.Unlock()

	go m.supervise(runCtx)
}

// Disconnect tears the connection down deterministically and clears the
// retry count. The desired-room set is kept, so a later Connect restores
// prior subscriptions.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.manualClose = true
	m.retries = 0
	m.state = core.StateDisconnected
	cancel := m.cancel
	m.cancel = nil
	conn := m.conn
	m.conn = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close()
	}
}

// Subscribe declares interest in room. The room always joins the desired
// set; a subscribe frame goes out only when the room becomes active on a
// connection whose replay has finished. Changing the desired set and
// deciding whether to emit happen under the same lock the replay holds, so
// between the live path and the replay a room gets exactly one frame.
// Callers unsubscribe exactly once per subscribe.
func (m *Manager) Subscribe(room string) {
	m.mu.Lock()
	first := m.rooms.Add(room)
	send, live := m.send, m.state == core.StateConnected && m.replayDone
	m.mu.Unlock()
	if !first || !live || send == nil {
		// Not live yet: the replay covers the desired set.
		return
	}
	m.emitControl(send, core.Subscribe(room))
}

// Unsubscribe releases one reference to room and emits an unsubscribe frame
// when the last reference is gone.
func (m *Manager) Unsubscribe(room string) {
	m.mu.Lock()
	last := m.rooms.Remove(room)
	send, live := m.send, m.state == core.StateConnected && m.replayDone
	m.mu.Unlock()
	if !last || !live || send == nil {
		return
	}
	m.emitControl(send, core.Unsubscribe(room))
}

func (m *Manager) emitControl(send chan []byte, f core.ControlFrame) {
	if err := enqueueFrame(send, f); err != nil {
		log.Warn().Str("module", "client.manager").Str("room", f.Room).Err(err).
			Msg("control frame dropped")
	}
}

func enqueueFrame(send chan []byte, f core.ControlFrame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	select {
	case send <- data:
		return nil
	default:
		return ErrBackpressure
	}
}

// supervise drives the dial / pump / backoff cycle until the context is
// cancelled, the user disconnects, or the retry budget is exhausted.
func (m *Manager) supervise(ctx context.Context) {
	for {
		err := m.runOnce(ctx)
		if ctx.Err() != nil || m.isManualClose() {
			return
		}
		m.fireError(err)

		m.mu.Lock()
		m.state = core.StateReconnecting
		m.retries++
		attempt := m.retries
		m.mu.Unlock()

		if attempt > m.opts.MaxRetries {
			m.mu.Lock()
			m.state = core.StateClosed
			m.mu.Unlock()
			terminal := fmt.Errorf("%w after %d attempts: %v", ErrRetriesExhausted, m.opts.MaxRetries, err)
			log.Error().Str("module", "client.manager").Err(terminal).Msg("giving up on reconnect")
			m.fireError(terminal)
			return
		}

		delay := backoffDelay(m.opts.BackoffBase, m.opts.BackoffCap, attempt)
		log.Info().Str("module", "client.manager").Int("attempt", attempt).
			Dur("delay", delay).Msg("reconnecting")
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
	}
}

// runOnce dials once and, on success, runs the pumps until the connection
// drops. It returns the transport error that ended the session.
func (m *Manager) runOnce(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: m.opts.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, m.opts.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", m.opts.URL, err)
	}

	send := make(chan []byte, m.opts.SendBuffer)
	m.mu.Lock()
	m.conn = conn
	m.send = send
	m.state = core.StateConnected
	m.retries = 0
	m.replayDone = false
	m.mu.Unlock()

	writeCtx, stopWrite := context.WithCancel(ctx)
	defer stopWrite()
	go m.writePump(writeCtx, conn, send)

	// Replay runs before the read loop starts: every room active before a
	// disconnect is re-subscribed exactly once before any inbound event
	// for it is processed. Holding mu across the snapshot and the
	// replayDone flip serializes the replay against Subscribe, so a room
	// added concurrently is emitted by exactly one of the two paths.
	m.mu.Lock()
	replayErr := m.rooms.Replay(func(room string) error {
		return enqueueFrame(send, core.Subscribe(room))
	})
	if replayErr == nil {
		m.replayDone = true
	}
	m.mu.Unlock()
	if replayErr != nil {
		_ = conn.Close()
		m.detach(conn)
		return fmt.Errorf("replay subscriptions: %w", replayErr)
	}

	log.Info().Str("module", "client.manager").Str("url", m.opts.URL).
		Int("rooms", len(m.rooms.Desired())).Msg("connected")
	m.fireConnect()

	err = m.readLoop(conn)
	m.detach(conn)
	m.fireDisconnect()
	if m.isManualClose() || ctx.Err() != nil {
		return nil
	}
	return err
}

func (m *Manager) detach(conn *websocket.Conn) {
	m.mu.Lock()
	if m.conn == conn {
		m.conn = nil
		m.send = nil
		m.replayDone = false
	}
	m.mu.Unlock()
}

// readLoop dispatches inbound frames synchronously, preserving wire order.
// The read deadline rides on pong and data traffic, so a peer that stops
// answering pings is detected within one keepalive window instead of
// waiting for TCP to give up.
func (m *Manager) readLoop(conn *websocket.Conn) error {
	wait := pongWait(m.opts.PingPeriod)
	_ = conn.SetReadDeadline(time.Now().Add(wait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wait))
	})
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		_ = conn.SetReadDeadline(time.Now().Add(wait))
		m.dispatch(data)
	}
}

// pongWait leaves one ping interval plus slack before a silent peer is
// declared dead.
func pongWait(pingPeriod time.Duration) time.Duration {
	return pingPeriod * 10 / 9
}

func (m *Manager) dispatch(data []byte) {
	ev, err := core.DecodeEvent(data)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrUnknownEventType):
			// Forward compatible: servers may add event types.
			log.Debug().Str("module", "client.manager").Err(err).Msg("dropping unknown event")
		default:
			log.Warn().Str("module", "client.manager").Err(err).Msg("dropping malformed event")
		}
		return
	}
	m.router.Dispatch(ev)
}

func (m *Manager) writePump(ctx context.Context, conn *websocket.Conn, send chan []byte) {
	ticker := time.NewTicker(m.opts.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-send:
			if !ok {
				return
			}
			if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Str("module", "client.manager").Err(err).Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (m *Manager) isManualClose() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.manualClose
}

func (m *Manager) fireConnect() {
	for _, fn := range m.connectCallbacks() {
		safeCall(func() { fn() })
	}
}

func (m *Manager) fireDisconnect() {
	m.cbMu.Lock()
	fns := append([]func(){}, m.onDisconnect...)
	m.cbMu.Unlock()
	for _, fn := range fns {
		safeCall(fn)
	}
}

func (m *Manager) fireError(err error) {
	m.cbMu.Lock()
	fns := append([]func(error){}, m.onError...)
	m.cbMu.Unlock()
	for _, fn := range fns {
		f := fn
		safeCall(func() { f(err) })
	}
}

func (m *Manager) connectCallbacks() []func() {
	m.cbMu.Lock()
	defer m.cbMu.Unlock()
	return append([]func(){}, m.onConnect...)
}

func safeCall(fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Str("module", "client.manager").Interface("panic", rec).
				Msg("lifecycle callback panicked")
		}
	}()
	fn()
}

// backoffDelay doubles per attempt starting from base, capped.
func backoffDelay(base, cap time.Duration, attempt int) time.Duration {
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= cap {
			return cap
		}
	}
	if d > cap {
		return cap
	}
	return d
}
