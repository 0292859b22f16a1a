package ws

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/koopa0/system-design/14-arcade-rooms/internal/protocol"
	"github.com/koopa0/system-design/14-arcade-rooms/internal/ratelimit"
	apperrors "github.com/koopa0/system-design/14-arcade-rooms/pkg/errors"
	"github.com/koopa0/system-design/14-arcade-rooms/pkg/logger"
)

// Connection 單一 WebSocket 連線，實現 registry.Sink
type Connection struct {
	id      string
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	limiter *ratelimit.TokenBucket
	logger  *slog.Logger
	// ctx 帶連線 ID 供日誌使用，註冊後不再改變
	ctx context.Context

	// room 只由 readPump 讀寫
	room     string
	lastSeen atomic.Int64

	done      chan struct{}
	closeOnce sync.Once
}

func newConnection(h *Hub, conn *websocket.Conn) *Connection {
	c := &Connection{
		hub:     h,
		conn:    conn,
		send:    make(chan []byte, h.opts.SendBuffer),
		limiter: ratelimit.NewTokenBucket(h.opts.RateCapacity, h.opts.RateRefill),
		logger:  h.logger,
		ctx:     context.Background(),
		room:    h.opts.ChatRoom,
		done:    make(chan struct{}),
	}
	c.touch()
	return c
}

// ID 連線 ID
func (c *Connection) ID() string {
	return c.id
}

// Send 實現 registry.Sink；緩衝滿或連線已關閉時丟棄並回傳 false
func (c *Connection) Send(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// LastSeen 最後一次收到客戶端資料（含 Pong）的時間
func (c *Connection) LastSeen() time.Time {
	return time.Unix(0, c.lastSeen.Load())
}

func (c *Connection) touch() {
	c.lastSeen.Store(time.Now().UnixNano())
}

// close 通知 writePump 送出關閉訊框並結束；可重複呼叫
func (c *Connection) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// extendDeadline 延長讀取期限
func (c *Connection) extendDeadline() {
	c.touch()
	if err := c.conn.SetReadDeadline(time.Now().Add(c.hub.opts.ClientTimeout)); err != nil {
		c.logger.DebugContext(c.ctx, "set read deadline failed", "error", err)
	}
}

// readPump 讀取客戶端訊息直到連線中斷或逾時，結束時通知 Router
func (c *Connection) readPump() {
	defer func() {
		if err := c.hub.router.Disconnect(c.id); err != nil {
			c.logger.DebugContext(c.ctx, "disconnect not delivered", "error", err)
		}
		c.close()
		_ = c.conn.Close()
		c.hub.remove(c)
		c.hub.wg.Done()
	}()

	c.conn.SetReadLimit(c.hub.opts.MaxMessageSize)
	c.extendDeadline()
	c.conn.SetPongHandler(func(string) error {
		c.extendDeadline()
		return nil
	})

	ctx := logger.WithRoom(c.ctx, c.room)
	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(ctx, err)
			return
		}
		c.extendDeadline()

		if messageType != websocket.TextMessage {
			c.logger.DebugContext(ctx, "non-text message ignored", "type", messageType)
			continue
		}
		if !c.limiter.Allow() {
			c.logger.WarnContext(ctx, "rate limited, message dropped")
			continue
		}

		intent, err := protocol.Decode(data)
		if err != nil {
			c.logger.WarnContext(ctx, "malformed message discarded", "error", err)
			continue
		}

		if join, ok := intent.(protocol.Join); ok {
			c.room = join.Room
			ctx = logger.WithRoom(c.ctx, c.room)
		}
		if err := c.hub.router.Route(c.id, c.room, intent); err != nil {
			if apperrors.IsUnavailable(err) {
				c.logger.WarnContext(ctx, "router unavailable, closing connection", "error", err)
				return
			}
			c.logger.ErrorContext(ctx, "route failed", "error", err)
		}
	}
}

func (c *Connection) logReadError(ctx context.Context, err error) {
	var netErr net.Error
	switch {
	case errors.As(err, &netErr) && netErr.Timeout():
		c.logger.InfoContext(ctx, "client heartbeat timed out",
			"idle", time.Since(c.LastSeen()).Round(time.Millisecond))
	case websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived):
		c.logger.WarnContext(ctx, "websocket read error", "error", err)
	default:
		c.logger.InfoContext(ctx, "websocket closed")
	}
}

// writePump 把 Send 推來的資料寫給客戶端，並定期送出 Ping
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.hub.opts.HeartbeatInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
		c.hub.wg.Done()
	}()

	for {
		select {
		case message := <-c.send:
			if !c.write(websocket.TextMessage, message) {
				return
			}

			// 批量送出佇列中已有的訊息
			n := len(c.send)
			for i := 0; i < n; i++ {
				if !c.write(websocket.TextMessage, <-c.send) {
					return
				}
			}

		case <-ticker.C:
			if !c.write(websocket.PingMessage, nil) {
				return
			}

		case <-c.done:
			deadline := time.Now().Add(time.Second)
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
			return
		}
	}
}

func (c *Connection) write(messageType int, data []byte) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.hub.opts.WriteWait)); err != nil {
		c.logger.DebugContext(c.ctx, "set write deadline failed", "error", err)
	}
	if err := c.conn.WriteMessage(messageType, data); err != nil {
		c.logger.DebugContext(c.ctx, "websocket write failed", "error", err)
		c.close()
		return false
	}
	return true
}
