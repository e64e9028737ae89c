package gateway

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Client is one WebSocket session. Frames to the client go through a
// bounded send channel; a client that cannot keep up loses frames rather
// than stalling the hub.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	sessionID string
	userID    string

	limits map[string]*rate.Limiter
}

// Action pacing: claims at most every 500ms, repairs every 200ms, radar
// sweeps every 2s. Burst 1 keeps the spacing strict.
func newActionLimiters() map[string]*rate.Limiter {
	return map[string]*rate.Limiter{
		ActionClaim:  rate.NewLimiter(rate.Limit(2), 1),
		ActionRepair: rate.NewLimiter(rate.Limit(5), 1),
		ActionRadar:  rate.NewLimiter(rate.Limit(0.5), 1),
	}
}

func (c *Client) allow(action string) bool {
	l, ok := c.limits[action]
	if !ok {
		return true
	}
	return l.Allow()
}

// enqueue hands a frame to the write pump, dropping it if the client's
// buffer is full.
func (c *Client) enqueue(frame []byte) {
	select {
	case c.send <- frame:
	default:
		c.hub.dropped.Add(1)
	}
}

// reply encodes and queues a frame for this client only.
func (c *Client) reply(frameType string, payload any) {
	frame, err := encodeFrame(frameType, payload)
	if err != nil {
		c.hub.log.Error("encode frame", zap.String("type", frameType), zap.Error(err))
		return
	}
	c.enqueue(frame)
}

func (c *Client) replyError(code, message string) {
	c.reply(TypeError, errorPayload{Code: code, Message: message})
}

// readPump consumes frames until the connection drops. It runs on the
// HTTP handler goroutine so the request context stays alive for the whole
// session.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug("session dropped",
					zap.String("session_id", c.sessionID), zap.Error(err))
			}
			return
		}
		c.hub.dispatch(ctx, c, raw)
	}
}

// writePump flushes queued frames and keeps the connection alive with
// pings. Closing the send channel ends the pump with a close frame.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
