package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	maxMessageSize = 4096
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 32
)

type client struct {
	id     string
	conn   *websocket.Conn
	room   *Room
	send   chan []byte
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	joined bool
}

func newClient(parent context.Context, id string, conn *websocket.Conn, room *Room, logger *slog.Logger) *client {
	ctx, cancel := context.WithCancel(parent)
	return &client{
		id:     id,
		conn:   conn,
		room:   room,
		send:   make(chan []byte, sendBufferSize),
		logger: logger.With("client_id", id),
		ctx:    ctx,
		cancel: cancel,
	}
}

// readPump owns the read side of the connection. Returning cancels the
// client context, which leaves the room and stops the write pump.
func (c *client) readPump() {
	defer func() {
		c.cancel()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read failed", "error", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Debug("ignoring malformed frame", "error", err)
			c.reply(TypeError, map[string]string{"message": "malformed message"})
			continue
		}

		switch msg.Type {
		case TypeJoinAdminRoom:
			c.join()
		case TypeNewRegistration:
			// server -> client only
			c.logger.Warn("ignoring client-sent newRegistration")
		default:
			c.logger.Debug("ignoring unknown message type", "type", msg.Type)
		}
	}
}

func (c *client) join() {
	if c.joined {
		c.reply(TypeJoinedAdminRoom, nil)
		return
	}
	c.joined = true

	events := c.room.Join(c.ctx)
	go func() {
		for ev := range events {
			frame, err := encode(TypeNewRegistration, ev.Payload)
			if err != nil {
				c.logger.Error("failed to encode event", "error", err)
				continue
			}
			select {
			case c.send <- frame:
			default:
				c.logger.Warn("client send buffer full, dropping event", "id", ev.Payload.ID)
			}
		}
	}()

	c.logger.Info("client joined admin room", "members", c.room.Members())
	c.reply(TypeJoinedAdminRoom, nil)
}

func (c *client) reply(msgType string, data interface{}) {
	frame, err := encode(msgType, data)
	if err != nil {
		c.logger.Error("failed to encode reply", "error", err)
		return
	}
	select {
	case c.send <- frame:
	case <-c.ctx.Done():
	}
}

// writePump is the only writer to the connection.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.logger.Debug("websocket write failed", "error", err)
				c.cancel()
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.cancel()
				return
			}

		case <-c.ctx.Done():
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}
