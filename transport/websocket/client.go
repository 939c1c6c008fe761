package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/tictactoe-arena/internal/config"
)

// client is one upgraded connection. writePump is the only writer on conn.
type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	timing    config.WebSocket
	closeOnce sync.Once
}

func newClient(id string, conn *websocket.Conn, timing config.WebSocket) *client {
	return &client{
		id:     id,
		conn:   conn,
		send:   make(chan []byte, timing.SendBuffer),
		timing: timing,
	}
}

func (that *client) closeSend() {
	that.closeOnce.Do(func() {
		close(that.send)
	})
}

// readPump feeds text frames to onMessage until the peer goes away or stops
// answering pings.
func (that *client) readPump(onMessage func(data []byte)) error {
	if err := that.conn.SetReadDeadline(time.Now().Add(that.timing.PongWait)); err != nil {
		return err
	}

	that.conn.SetPongHandler(func(string) error {
		return that.conn.SetReadDeadline(time.Now().Add(that.timing.PongWait))
	})

	for {
		messageType, data, err := that.conn.ReadMessage()
		if err != nil {
			return err
		}

		if messageType == websocket.TextMessage {
			onMessage(data)
		}
	}
}

// writePump drains the send queue and keeps the connection alive with pings.
func (that *client) writePump() error {
	ticker := time.NewTicker(that.timing.PingInterval)
	defer func() {
		ticker.Stop()
		_ = that.conn.Close()
	}()

	for {
		select {
		case data, ok := <-that.send:
			if err := that.conn.SetWriteDeadline(time.Now().Add(that.timing.WriteWait)); err != nil {
				return err
			}

			if !ok {
				_ = that.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return nil
			}

			if err := that.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return err
			}

		case <-ticker.C:
			if err := that.conn.SetWriteDeadline(time.Now().Add(that.timing.WriteWait)); err != nil {
				return err
			}

			if err := that.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return err
			}
		}
	}
}
