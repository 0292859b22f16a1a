// Package registry 實作連線註冊中心
//
// 註冊中心是單一 goroutine 的信箱處理器：所有表格（連線輸出端、聊天室成員、
// 房間、進行中的遊戲）只由 run 迴圈讀寫，其他 goroutine 一律透過信箱傳遞訊息。
//
//	Session ──Connect/Route/Disconnect──▶ mailbox ──▶ run ──▶ Room
//	Room scheduler ──DeliverFrame──▶ mailbox ──▶ run ──▶ Sink(s)
//
// 對 Sink 的推送都是非阻塞的，註冊中心從不等待任何客戶端。
package registry

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/koopa0/system-design/14-arcade-rooms/internal/events"
	"github.com/koopa0/system-design/14-arcade-rooms/internal/protocol"
	"github.com/koopa0/system-design/14-arcade-rooms/internal/room"
	"github.com/koopa0/system-design/14-arcade-rooms/internal/scoreboard"
	apperrors "github.com/koopa0/system-design/14-arcade-rooms/pkg/errors"
)

const (
	// DefaultChatRoom 新連線預設加入的聊天室
	DefaultChatRoom = "main"
	// DefaultMailboxSize 信箱緩衝大小
	DefaultMailboxSize = 256
	// DefaultReportQueue 背景回報佇列大小
	DefaultReportQueue = 64
)

// Sink 連線的輸出端
//
// Send 不得阻塞；緩衝已滿或連線已關閉時回傳 false。
type Sink interface {
	Send(data []byte) bool
}

// Options 註冊中心設定
type Options struct {
	MailboxSize int
	ChatRoom    string
	ReportQueue int
	Room        room.Options
	// Recorder 為 nil 時使用記憶體記錄器
	Recorder scoreboard.Recorder
	// Publisher 為 nil 時不發布事件
	Publisher events.Publisher
}

// Stats 註冊中心統計
type Stats struct {
	Connections    int    `json:"connections"`
	Rooms          int    `json:"rooms"`
	ActiveGames    int    `json:"active_games"`
	ChatRooms      int    `json:"chat_rooms"`
	FramesSent     uint64 `json:"frames_sent"`
	FramesDropped  uint64 `json:"frames_dropped"`
	GamesFinished  uint64 `json:"games_finished"`
	ReportsDropped uint64 `json:"reports_dropped"`
}

type connState struct {
	chat string
	game string
}

// Registry 連線註冊中心
type Registry struct {
	opts      Options
	recorder  scoreboard.Recorder
	publisher events.Publisher
	logger    *slog.Logger

	mailbox  chan message
	reports  chan report
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	// 以下只由 run goroutine 存取
	sinks     map[string]Sink
	conns     map[string]*connState
	chatRooms map[string]map[string]struct{}
	rooms     map[string]*room.Room
	active    map[*room.Room]struct{}
	stats     Stats
}

// New 建立並啟動註冊中心
func New(opts Options, logger *slog.Logger) *Registry {
	if opts.MailboxSize <= 0 {
		opts.MailboxSize = DefaultMailboxSize
	}
	if opts.ChatRoom == "" {
		opts.ChatRoom = DefaultChatRoom
	}
	if opts.ReportQueue <= 0 {
		opts.ReportQueue = DefaultReportQueue
	}

	r := &Registry{
		opts:      opts,
		recorder:  opts.Recorder,
		publisher: opts.Publisher,
		logger:    logger,
		mailbox:   make(chan message, opts.MailboxSize),
		reports:   make(chan report, opts.ReportQueue),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		sinks:     make(map[string]Sink),
		conns:     make(map[string]*connState),
		chatRooms: make(map[string]map[string]struct{}),
		rooms:     make(map[string]*room.Room),
		active:    make(map[*room.Room]struct{}),
	}
	if r.recorder == nil {
		r.recorder = scoreboard.NewMemory()
	}
	if r.publisher == nil {
		r.publisher = events.Nop{}
	}

	reporterDone := make(chan struct{})
	go r.runReporter(reporterDone)
	go r.run(reporterDone)

	return r
}

// Connect 註冊新連線，回傳新配發的連線 ID
//
// 連線會加入預設聊天室。註冊中心已停止時回傳 SERVICE_UNAVAILABLE。
func (r *Registry) Connect(ctx context.Context, sink Sink) (string, error) {
	id := uuid.NewString()
	if err := r.send(ctx, connectMsg{id: id, sink: sink}); err != nil {
		return "", err
	}
	return id, nil
}

// Disconnect 移除連線；重複呼叫無副作用
func (r *Registry) Disconnect(id string) error {
	return r.send(context.Background(), disconnectMsg{id: id})
}

// Route 轉送連線的意圖
//
// roomName 是連線目前所在的房間；空字串時使用註冊中心記錄的房間。
func (r *Registry) Route(id, roomName string, intent protocol.Intent) error {
	return r.send(context.Background(), routeMsg{id: id, room: roomName, intent: intent})
}

// DeliverFrame 實現 room.Notifier
//
// 阻塞到註冊中心處理完這一幀，或註冊中心已停止。
func (r *Registry) DeliverFrame(res room.TickResult) {
	done := make(chan struct{})
	if err := r.send(context.Background(), frameMsg{res: res, done: done}); err != nil {
		return
	}
	select {
	case <-done:
	case <-r.quit:
	}
}

// Stats 目前統計
func (r *Registry) Stats(ctx context.Context) (Stats, error) {
	reply := make(chan Stats, 1)
	if err := r.send(ctx, statsMsg{reply: reply}); err != nil {
		return Stats{}, err
	}
	return await(ctx, r.quit, reply)
}

// Rooms 所有房間快照，依名稱排序
func (r *Registry) Rooms(ctx context.Context) ([]room.Info, error) {
	reply := make(chan []room.Info, 1)
	if err := r.send(ctx, roomsMsg{reply: reply}); err != nil {
		return nil, err
	}
	return await(ctx, r.quit, reply)
}

// Room 指定房間快照；不存在時回傳 NOT_FOUND
func (r *Registry) Room(ctx context.Context, name string) (room.Info, error) {
	reply := make(chan roomReply, 1)
	if err := r.send(ctx, roomMsg{name: name, reply: reply}); err != nil {
		return room.Info{}, err
	}
	res, err := await(ctx, r.quit, reply)
	if err != nil {
		return room.Info{}, err
	}
	if !res.ok {
		return room.Info{}, apperrors.ErrRoomNotFound.WithDetails(name)
	}
	return res.info, nil
}

// Stop 停止註冊中心：關閉所有房間、排空背景回報後返回
func (r *Registry) Stop() {
	r.stopOnce.Do(func() {
		close(r.quit)
	})
	<-r.done
}

// send 投遞信箱訊息
func (r *Registry) send(ctx context.Context, m message) error {
	select {
	case <-r.quit:
		return apperrors.ErrRegistryClosed
	default:
	}

	select {
	case r.mailbox <- m:
		return nil
	case <-r.quit:
		return apperrors.ErrRegistryClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func await[T any](ctx context.Context, quit <-chan struct{}, reply <-chan T) (T, error) {
	var zero T
	select {
	case v := <-reply:
		return v, nil
	case <-quit:
		return zero, apperrors.ErrRegistryClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
