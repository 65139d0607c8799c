package gateway

import (
	"github.com/rs/zerolog/log"

	"github.com/retrocraftdevops/seitech-sub002/internal/core"
)

// PublishResult counts how a fan-out went. Dropped members were over their
// send buffer; the hub never blocks on them.
type PublishResult struct {
	Delivered int
	Dropped   int
}

// Hub fans events out to room members.
type Hub struct {
	reg *Registry
}

func NewHub(reg *Registry) *Hub {
	return &Hub{reg: reg}
}

func (h *Hub) Publish(room string, ev core.Event) (PublishResult, error) {
	data, err := core.EncodeEvent(ev)
	if err != nil {
		return PublishResult{}, err
	}

	var res PublishResult
	for _, m := range h.reg.MembersOf(room) {
		if err := m.Conn.TrySend(data); err != nil {
			res.Dropped++
			continue
		}
		res.Delivered++
	}
	log.Debug().Str("module", "gateway.hub").Str("room", room).Str("type", ev.EventType()).
		Int("delivered", res.Delivered).Int("dropped", res.Dropped).Msg("publish result")
	return res, nil
}
