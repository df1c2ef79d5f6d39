package ws

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/campusmatch/campusmatch/internal/app"
	"github.com/campusmatch/campusmatch/internal/middleware"
	"github.com/campusmatch/campusmatch/internal/service/chat"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Registrar ties the websocket endpoint into the HTTP router
type Registrar struct {
	appCtx *app.AppContext
	hub    *Hub
}

// NewRegistrar creates a new Registrar for the websocket endpoint
func NewRegistrar(appCtx *app.AppContext, hub *Hub) *Registrar {
	return &Registrar{appCtx: appCtx, hub: hub}
}

// Register attaches the websocket route to the authenticated group
func (r *Registrar) Register(g *gin.RouterGroup) {
	h := &Handler{
		appCtx:  r.appCtx,
		hub:     r.hub,
		chatSvc: chat.NewService(r.appCtx),
	}
	g.GET("/ws", h.handleWebSocket)
}

// Handler upgrades connections and bridges each one to its user's Redis
// event channel.
type Handler struct {
	appCtx  *app.AppContext
	hub     *Hub
	chatSvc *chat.Service
}

func (h *Handler) handleWebSocket(c *gin.Context) {
	profileID := middleware.ActorID(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.appCtx.Logger.Warn("websocket upgrade failed", "profile", profileID, "err", err)
		return
	}

	client := NewClient(uuid.New().String(), profileID, conn)
	h.hub.Register(client)

	// One subscription per connection; its lifetime is exactly the
	// connection's. Closing it after the read pump returns stops the
	// bridge before Send is closed by unregistration.
	sub := h.appCtx.RedisCache.Subscribe(context.Background(), h.appCtx.RedisCache.ChannelForUser(profileID))

	bridgeDone := make(chan struct{})
	go func() {
		defer close(bridgeDone)
		h.bridge(sub, client)
	}()
	go client.WritePump()

	go func() {
		client.ReadPump(h.handleInbound)
		_ = sub.Close()
		<-bridgeDone
		h.hub.Unregister(client)
	}()
}

// bridge forwards the user's published events onto this connection.
func (h *Handler) bridge(sub *redis.PubSub, client *Client) {
	for msg := range sub.Channel() {
		client.Enqueue([]byte(msg.Payload))
	}
}

type inboundFrame struct {
	Type    string `json:"type"`
	MatchID uint64 `json:"match_id,omitempty"`
}

// handleInbound processes client frames. Only typing indicators and pings
// come up this path; everything else uses the HTTP API.
func (h *Handler) handleInbound(client *Client, message []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(message, &frame); err != nil {
		client.Enqueue([]byte(`{"type":"error","error":"invalid frame"}`))
		return
	}

	switch frame.Type {
	case "typing":
		if err := h.chatSvc.Typing(context.Background(), frame.MatchID, client.ProfileID); err != nil {
			h.appCtx.Logger.Debug("typing relay rejected", "profile", client.ProfileID, "match", frame.MatchID, "err", err)
		}

	case "ping":
		client.Enqueue([]byte(`{"type":"pong"}`))

	default:
		client.Enqueue([]byte(`{"type":"error","error":"unknown frame type"}`))
	}
}
