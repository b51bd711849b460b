package adapters

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/aona/duolink/internal/app"
	"github.com/aona/duolink/internal/core"
)

// ErrBackpressure means the connection's send buffer is full; the registry
// treats it as a dead connection.
var ErrBackpressure = errors.New("connection backpressure")

// ErrConnClosed means the connection was already torn down, either by its own
// pumps or by the registry pruning it.
var ErrConnClosed = errors.New("connection closed")

const (
	sendBufferSize = 32
	writeWait      = 5 * time.Second
	closeAuthFail  = 4001
)

type wsConn struct {
	conn *websocket.Conn

	mu     sync.Mutex
	send   chan core.Frame
	closed bool
}

// TrySend enqueues without blocking. The mutex keeps it off the channel once
// Close has run; the registry closes connections from its own goroutine while
// the readPump may still be answering pings.
func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- f:
		return nil
	default:
		return ErrBackpressure
	}
}

func (c *wsConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSController upgrades ticketed clients into the connection registry and
// keeps the socket alive with ping/pong until disconnect or idle timeout.
type WSController struct {
	Registry    *app.Registry
	Tickets     *app.TicketStore
	IdleTimeout time.Duration
	PingPeriod  time.Duration
	ReadLimit   int64
}

func (ctl *WSController) Handle(ctx context.Context, c *gin.Context) {
	ticket := c.Query("ticket")
	userID, ok := ctl.Tickets.Consume(ticket)
	if !ok {
		// Refuse before registering anything: the ticket is the only gate
		// into the fanout layer.
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		msg := websocket.FormatCloseMessage(closeAuthFail, "authentication failed")
		_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		_ = ws.Close()
		log.Warn().Str("module", "adapters.ws").Msg("connection refused: bad ticket")
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.ws").Msg("ws upgrade")
		return
	}

	conn := &wsConn{
		conn: ws,
		send: make(chan core.Frame, sendBufferSize),
	}
	if ctl.ReadLimit > 0 {
		ws.SetReadLimit(ctl.ReadLimit)
	}

	ctl.Registry.Connect(userID, conn)
	ctx, cancel := context.WithCancel(ctx)

	go ctl.writePump(ctx, cancel, conn)
	go ctl.readPump(ctx, cancel, userID, conn)
}

func (ctl *WSController) writePump(ctx context.Context, cancel context.CancelFunc, c *wsConn) {
	ticker := time.NewTicker(ctl.PingPeriod)
	defer func() {
		ticker.Stop()
		cancel()
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Warn().Err(err).Str("module", "adapters.ws").Msg("ping failed")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "adapters.ws").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "adapters.ws").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *WSController) readPump(ctx context.Context, cancel context.CancelFunc, userID uuid.UUID, c *wsConn) {
	defer func() {
		log.Info().Str("module", "adapters.ws").Str("user", userID.String()).Msg("readPump closing")
		cancel()
		ctl.Registry.Disconnect(userID, c)
		c.Close()
	}()

	resetIdle := func() {
		_ = c.conn.SetReadDeadline(time.Now().Add(ctl.IdleTimeout))
	}
	resetIdle()
	c.conn.SetPongHandler(func(string) error {
		resetIdle()
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				return
			}
			resetIdle()
			if string(data) == "ping" {
				_ = c.TrySend(core.Frame("pong"))
			}
		}
	}
}
