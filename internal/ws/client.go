package ws

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Client is one websocket connection of a signed-in profile.
type Client struct {
	ID        string
	ProfileID uint64
	Conn      *websocket.Conn
	Send      chan []byte
}

func NewClient(id string, profileID uint64, conn *websocket.Conn) *Client {
	return &Client{
		ID:        id,
		ProfileID: profileID,
		Conn:      conn,
		Send:      make(chan []byte, 256),
	}
}

// ReadPump consumes inbound frames until the connection drops. handler
// runs on every frame. The caller owns unregistration, so the bridge can
// be torn down before Send closes.
func (c *Client) ReadPump(handler func(*Client, []byte)) {
	defer c.Conn.Close()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			break
		}
		handler(c, message)
	}
}

// WritePump drains Send onto the wire and keeps the connection alive
// with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Enqueue offers a payload to the connection without blocking.
// A client that cannot keep up drops the event; the database remains
// the durable source of truth.
func (c *Client) Enqueue(payload []byte) {
	select {
	case c.Send <- payload:
	default:
	}
}
