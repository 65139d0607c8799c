package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ControllerOptions tune the per-connection behavior.
type ControllerOptions struct {
	ReadLimit         int64
	PingPeriod        time.Duration
	SendBuffer        int
	SubscribeLimit    int
	SubscribeInterval time.Duration
}

func (o *ControllerOptions) withDefaults() {
	if o.ReadLimit <= 0 {
		o.ReadLimit = 32768
	}
	if o.PingPeriod <= 0 {
		o.PingPeriod = 54 * time.Second
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 32
	}
	if o.SubscribeLimit <= 0 {
		o.SubscribeLimit = 30
	}
	if o.SubscribeInterval <= 0 {
		o.SubscribeInterval = 10 * time.Second
	}
}

type LiveWSController struct {
	opts    ControllerOptions
	reg     *Registry
	limiter *SubscribeLimiter
}

func NewLiveWSController(reg *Registry, opts ControllerOptions) *LiveWSController {
	opts.withDefaults()
	return &LiveWSController{
		opts:    opts,
		reg:     reg,
		limiter: NewSubscribeLimiter(opts.SubscribeLimit, opts.SubscribeInterval),
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (ctl *LiveWSController) HandleLive(ctx context.Context, c *gin.Context) {
	sid := c.GetString("client_token")
	log.Info().Str("module", "gateway.ws").Str("sid", sid).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("ws upgrade")
		return
	}
	ws.SetReadLimit(ctl.opts.ReadLimit)

	conn := newLiveConn(ws, ctl.opts.SendBuffer)
	ctx, cancel := context.WithCancel(ctx)
	ctl.reg.Bind(sid, conn, cancel)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, sid, conn)
}
