package server

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"tankduel/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 16384
	sendQueueSize  = 256
)

// Conn is one connected client: a websocket plus a buffered outbound queue
// drained by a dedicated write pump. ID is the stable per-connection
// identity the arena keys everything on.
type Conn struct {
	ID string

	ws     *websocket.Conn
	sendCh chan []byte
}

func newConn(id string, ws *websocket.Conn) *Conn {
	return &Conn{
		ID:     id,
		ws:     ws,
		sendCh: make(chan []byte, sendQueueSize),
	}
}

// send marshals an envelope and queues it. The queue is drained by
// writePump; if it is full the message is dropped rather than blocking a
// room operation.
func (c *Conn) send(env protocol.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		Log.Errorf("marshal error for %s: %v", c.ID, err)
		return
	}
	select {
	case c.sendCh <- data:
	default:
		Log.Warnf("send queue full for %s, dropping %s", c.ID, env.Type)
	}
}

// writePump sends queued messages and periodic pings to the websocket.
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case msg, ok := <-c.sendCh:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump reads client messages and dispatches them to the hub until the
// connection drops.
func (c *Conn) readPump(h *Hub) {
	defer c.ws.Close()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				Log.Infof("read error for %s: %v", c.ID, err)
			}
			return
		}

		var env struct {
			Type    protocol.MessageType `json:"type"`
			Payload json.RawMessage      `json:"payload"`
		}
		if err := json.Unmarshal(message, &env); err != nil {
			Log.Warnf("bad message from %s: %v", c.ID, err)
			continue
		}
		h.handleMessage(c, env.Type, env.Payload)
	}
}
