// Package ws is the terminal transport: one websocket connection per jurado
// or votación terminal, carrying Mensaje envelopes in both directions. The
// read/write pump split follows the gorilla/websocket idiom; all session
// logic lives in pkg/coordinator.
package ws

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"coordinador/pkg/coordinator"
	"coordinador/pkg/metrics"
	"coordinador/pkg/models"
)

const (
	// Time allowed to write a message to the terminal.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the terminal.
	pongWait = 60 * time.Second

	// Send pings with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Ballot payloads carry a full candidate list, but never megabytes.
	maxMessageSize = 256 * 1024

	// Outbound buffer per terminal. A terminal that falls this far behind
	// starts losing messages (best-effort delivery).
	sendBuffer = 32
)

// Client is one terminal connection. It implements coordinator.Sender.
type Client struct {
	id    coordinator.ConnID
	conn  *websocket.Conn
	coord *coordinator.Coordinator
	send  chan []byte
	log   *zap.Logger
}

func newClient(conn *websocket.Conn, coord *coordinator.Coordinator, log *zap.Logger) *Client {
	id := coordinator.ConnID(uuid.NewString())
	return &Client{
		id:    id,
		conn:  conn,
		coord: coord,
		send:  make(chan []byte, sendBuffer),
		log:   log.With(zap.String("connId", string(id))),
	}
}

// Send implements coordinator.Sender. It never blocks: if the terminal's
// buffer is full the message is dropped, because the coordinator holds its
// lock while fanning out and one slow booth must not stall the rest.
func (c *Client) Send(evento string, datos any) {
	raw, err := json.Marshal(datos)
	if err != nil {
		c.log.Error("no se pudo serializar el evento",
			zap.String("evento", evento), zap.Error(err))
		return
	}
	msg, err := json.Marshal(models.Mensaje{Evento: evento, Datos: raw})
	if err != nil {
		c.log.Error("no se pudo serializar el mensaje",
			zap.String("evento", evento), zap.Error(err))
		return
	}

	select {
	case c.send <- msg:
	default:
		metrics.MensajesDescartados.Inc()
		c.log.Warn("terminal lenta, mensaje descartado", zap.String("evento", evento))
	}
}

// readPump reads terminal events until the connection drops, then runs the
// liveness cleanup. Detach happens before close(c.send): Detach takes the
// coordinator lock, so once it returns no Send can still be in flight.
func (c *Client) readPump() {
	defer func() {
		c.coord.Detach(c.id)
		close(c.send)
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
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Debug("conexion perdida", zap.Error(err))
			}
			return
		}
		c.dispatch(raw)
	}
}

// writePump drains the outbound buffer and keeps the connection alive with
// periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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
