package hub

import (
	"encoding/json"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/pawhaven/chat-service/internal/domain"
)

// Client is one live socket connection, tagged at upgrade time with the
// authenticated identity. A user may hold several clients at once (one per
// device/tab).
type Client struct {
	ID     string
	UserID string
	Role   domain.Side

	conn *websocket.Conn
	send chan []byte
}

func NewClient(id, userID string, role domain.Side, conn *websocket.Conn, sendBuffer int) *Client {
	return &Client{
		ID:     id,
		UserID: userID,
		Role:   role,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
	}
}

// enqueue hands a frame to the write pump without blocking; a client that
// cannot keep up drops frames rather than stalling the broadcaster.
func (c *Client) enqueue(b []byte) {
	select {
	case c.send <- b:
	default:
	}
}

// SendEvent delivers an event to this connection only. Used for error
// replies on the originating socket.
func (c *Client) SendEvent(event string, payload any) {
	if b, err := encodeEvent(event, payload); err == nil {
		c.enqueue(b)
	}
}

// Close stops the write pump.
func (c *Client) Close() {
	close(c.send)
}

// WritePump owns all writes to the socket: queued frames plus keepalive
// pings. Runs until the send channel closes or a write fails.
func (c *Client) WritePump(pingInterval, writeDeadline time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case b, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(time.Second))
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(time.Second)); err != nil {
				return
			}
		}
	}
}

func encodeEvent(event string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(domain.Envelope{Event: event, Payload: raw})
}
