package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/retrocraftdevops/seitech-sub002/internal/config"
	"github.com/retrocraftdevops/seitech-sub002/internal/core"
)

func genClientToken() string {
	return uuid.NewString()
}

func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

// injectRequest is the backend-facing event injection payload: a room plus
// the same envelope clients receive.
type injectRequest struct {
	Room    string          `json:"room" binding:"required"`
	Type    string          `json:"type" binding:"required"`
	Payload json.RawMessage `json:"payload" binding:"required"`
}

func SetupRouter(ctx context.Context, cfg *config.Config, ctrl *LiveWSController, hub *Hub, reg *Registry) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("LiveGatewaySessions", store))
	r.Use(ClientTokenMiddleware())

	log.Info().Str("module", "gateway.http").Msg("router setup")

	api := r.Group("/api")

	api.GET("/ws/live", func(c *gin.Context) {
		log.Info().Str("module", "gateway.http").Str("sid", c.GetString("client_token")).
			Msg("ws live endpoint hit")
		ctrl.HandleLive(ctx, c)
	})

	api.POST("/events", func(c *gin.Context) {
		var req injectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		raw, err := json.Marshal(core.Envelope{Type: req.Type, Payload: req.Payload})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		ev, err := core.DecodeEvent(raw)
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, core.ErrUnknownEventType) {
				status = http.StatusUnprocessableEntity
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		res, err := hub.Publish(req.Room, ev)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"delivered": res.Delivered, "dropped": res.Dropped})
	})

	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"sessions": reg.SessionCount(),
			"rooms":    reg.RoomCounts(),
		})
	})

	return r
}
