// Package ws 實作 WebSocket 連線處理
//
// 每條連線兩個 goroutine：readPump 解碼客戶端訊息並交給 Router，
// writePump 把 Router 推來的資料寫回客戶端並定期送出 Ping。
//
// 心跳：
//
//	writePump 每 HeartbeatInterval 送 Ping
//	任何入站訊息或 Pong 都會把讀取期限延長 ClientTimeout
//	超過 ClientTimeout 沒有任何入站資料 → 讀取逾時 → 強制關閉並通知 Router
package ws

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/koopa0/system-design/14-arcade-rooms/internal/protocol"
	"github.com/koopa0/system-design/14-arcade-rooms/internal/registry"
	"github.com/koopa0/system-design/14-arcade-rooms/pkg/logger"
)

// Router 連線註冊中心的介面，*registry.Registry 滿足此介面
type Router interface {
	Connect(ctx context.Context, sink registry.Sink) (string, error)
	Disconnect(id string) error
	Route(id, roomName string, intent protocol.Intent) error
}

// Options 連線設定
type Options struct {
	HeartbeatInterval time.Duration
	ClientTimeout     time.Duration
	WriteWait         time.Duration
	SendBuffer        int
	MaxMessageSize    int64
	RateCapacity      int64
	RateRefill        int64
	ChatRoom          string
}

func (o Options) withDefaults() Options {
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = 5 * time.Second
	}
	if o.ClientTimeout <= 0 {
		o.ClientTimeout = 2 * o.HeartbeatInterval
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 256
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = 4096
	}
	if o.RateCapacity <= 0 {
		o.RateCapacity = 30
	}
	if o.RateRefill <= 0 {
		o.RateRefill = 20
	}
	if o.ChatRoom == "" {
		o.ChatRoom = registry.DefaultChatRoom
	}
	return o
}

// Hub 管理所有 WebSocket 連線
type Hub struct {
	router   Router
	opts     Options
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu     sync.Mutex
	conns  map[*Connection]struct{}
	closed bool
	wg     sync.WaitGroup
}

// NewHub 建立 Hub
func NewHub(router Router, opts Options, logger *slog.Logger) *Hub {
	return &Hub{
		router: router,
		opts:   opts.withDefaults(),
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// 在生產環境應該檢查來源
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		conns: make(map[*Connection]struct{}),
	}
}

// ServeWS 升級 HTTP 連線並向 Router 註冊
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	c := newConnection(h, conn)
	id, err := h.router.Connect(r.Context(), c)
	if err != nil {
		h.logger.Warn("connection rejected", "error", err, "remote", r.RemoteAddr)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server unavailable"),
			time.Now().Add(time.Second))
		_ = conn.Close()
		return
	}
	c.id = id
	c.ctx = logger.WithConnID(c.ctx, id)

	if !h.add(c) {
		_ = h.router.Disconnect(id)
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()

	c.logger.InfoContext(c.ctx, "websocket connected", "remote", r.RemoteAddr)
}

// Count 目前連線數
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Stop 關閉所有連線並等待讀寫 goroutine 結束
func (h *Hub) Stop() {
	h.mu.Lock()
	h.closed = true
	conns := make([]*Connection, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		c.close()
	}
	h.wg.Wait()

	h.logger.Info("websocket hub stopped", "closed", len(conns))
}

// add 登記連線並為兩個 pump 預留 wg；與 Stop 共用 mu，Stop 之後一律拒絕
func (h *Hub) add(c *Connection) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.conns[c] = struct{}{}
	h.wg.Add(2)
	return true
}

func (h *Hub) remove(c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, c)
}
