package gateway

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/retrocraftdevops/seitech-sub002/internal/core"
)

func (ctl *LiveWSController) writePump(ctx context.Context, c *liveConn) {
	ticker := time.NewTicker(ctl.opts.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "gateway.ws").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "gateway.ws").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "gateway.ws").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "gateway.ws").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (ctl *LiveWSController) readPump(ctx context.Context, sid string, c *liveConn) {
	defer func() {
		log.Info().Str("module", "gateway.ws").Str("sid", sid).Msg("readPump closing")
		c.Close()
		if ctl.reg.Unbind(sid, c) {
			ctl.limiter.Forget(sid)
		}
	}()

	// A client that stops answering pings trips the read deadline, so its
	// registry entry does not linger until TCP gives up.
	wait := ctl.opts.PingPeriod * 10 / 9
	_ = c.conn.SetReadDeadline(time.Now().Add(wait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wait))
	})

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "gateway.ws").Str("sid", sid).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Info().Err(err).Str("module", "gateway.ws").Str("sid", sid).Msg("readPump read error")
				return
			}
			_ = c.conn.SetReadDeadline(time.Now().Add(wait))
			ctl.handleFrame(sid, c, data)
		}
	}
}

func (ctl *LiveWSController) handleFrame(sid string, c *liveConn, data []byte) {
	var frame core.ControlFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		log.Error().Err(err).Str("module", "gateway.ws").Msg("bad json")
		return
	}

	switch frame.Type {
	case core.ControlSubscribe:
		ctl.handleSubscribe(sid, c, frame.Room)
	case core.ControlUnsubscribe:
		ctl.handleUnsubscribe(sid, frame.Room)
	case core.ControlPing:
		ctl.handlePing(c)
	default:
		log.Warn().Str("module", "gateway.ws").Str("type", frame.Type).Msg("unknown control frame")
	}
}

func (ctl *LiveWSController) handleSubscribe(sid string, c *liveConn, room string) {
	if room == "" {
		log.Warn().Str("module", "gateway.ws").Str("sid", sid).Msg("subscribe without room")
		return
	}
	if !ctl.limiter.Allow(sid) {
		log.Warn().Str("module", "gateway.ws").Str("sid", sid).Str("room", room).
			Msg("subscribe rate limited")
		ctl.sendJSON(c, map[string]string{"type": "error", "error": "subscribe rate limited"})
		return
	}
	ctl.reg.Join(sid, room)
}

func (ctl *LiveWSController) handleUnsubscribe(sid, room string) {
	if room == "" {
		return
	}
	ctl.reg.Leave(sid, room)
}

func (ctl *LiveWSController) handlePing(c *liveConn) {
	resp := struct {
		Type string `json:"type"`
	}{
		Type: "pong",
	}
	ctl.sendJSON(c, resp)
}

func (ctl *LiveWSController) sendJSON(c *liveConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "gateway.ws").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}
