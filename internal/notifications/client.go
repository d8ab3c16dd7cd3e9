package notifications

import (
	"context"
	"time"

	"github.com/gofiber/websocket/v2"

	"careervivid/internal/middleware"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// Buffered: deliver drops frames rather than blocking the hub when a
	// consumer stalls, so a small buffer absorbs normal bursts.
	sendBuffer = 8
)

// Client binds one websocket connection to a feed Subscriber and pumps
// frames between them.
type Client struct {
	hub  *FeedHub
	sub  *Subscriber
	conn *websocket.Conn
}

// NewClient creates a client for an already upgraded connection. The
// subscriber's Send channel is created here; the hub never closes it.
func NewClient(hub *FeedHub, conn *websocket.Conn, sub *Subscriber) *Client {
	sub.Send = make(chan []byte, sendBuffer)
	return &Client{hub: hub, sub: sub, conn: conn}
}

// Run registers with the hub and serves the connection until the peer
// disconnects. It blocks, which matches how fiber websocket handlers run.
func (c *Client) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.hub.Register(ctx, c.sub)
	defer c.hub.Unregister(c.sub)

	go c.writePump(ctx)
	c.readPump(cancel)
}

// readPump drains the connection. Feed streams are server-push only, so
// inbound frames are discarded; the read loop exists to notice disconnects
// and answer pings.
func (c *Client) readPump(cancel context.CancelFunc) {
	defer cancel()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				middleware.Logger.Debug("feed stream read error", "error", err)
			}
			return
		}
	}
}

func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case data := <-c.sub.Send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
