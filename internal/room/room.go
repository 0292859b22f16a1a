// Package room 實作雙人房間：配對、座位綁定、指令路由與每房間的 tick 排程器。
package room

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/koopa0/system-design/14-arcade-rooms/internal/game"
	apperrors "github.com/koopa0/system-design/14-arcade-rooms/pkg/errors"
)

// DefaultTickInterval 預設 tick 間隔
const DefaultTickInterval = 100 * time.Millisecond

// Options 房間設定
type Options struct {
	TickInterval time.Duration
	MaxShots     int
	// NewSession 建立遊戲會話，nil 時使用標準陣型
	NewSession func() *game.Session
}

func (o Options) withDefaults() Options {
	if o.TickInterval <= 0 {
		o.TickInterval = DefaultTickInterval
	}
	if o.MaxShots <= 0 {
		o.MaxShots = game.DefaultMaxShots
	}
	if o.NewSession == nil {
		o.NewSession = game.NewSession
	}
	return o
}

// TickResult 每個 tick 交給註冊中心廣播的結果
type TickResult struct {
	Room         *Room
	Name         string
	Tick         uint64
	Frame        *game.Frame
	State        game.State
	Score        int
	Transitioned bool
	// Slots 產生畫面當下各座位的連線 ID，空字串代表空位
	Slots [game.Slots]string
	// Err 非 nil 表示房間因內部錯誤中止
	Err error
}

// Notifier 接收 tick 結果
//
// DeliverFrame 在處理完成（或接收端已停止）前不會返回；
// 排程器藉此保證第 n+1 個 tick 不會在第 n 個廣播完成前開始。
type Notifier interface {
	DeliverFrame(res TickResult)
}

// PlayerInfo 玩家快照
type PlayerInfo struct {
	ConnID string `json:"conn_id"`
	Slot   int    `json:"slot"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Room   string `json:"room"`
	Shots  int    `json:"shots"`
}

// Info 房間快照
type Info struct {
	Name    string             `json:"name"`
	Slots   [game.Slots]string `json:"slots"`
	Players []PlayerInfo       `json:"players"`
	State   game.State         `json:"state"`
	Score   int                `json:"score"`
	Enemies int                `json:"enemies"`
	Running bool               `json:"running"`
	Ticks   uint64             `json:"ticks"`
}

type slot struct {
	connID string
	player *game.Player
}

// Room 遊戲房間
//
// mu 是唯一的鎖，保護座位、排程器控制代碼與遊戲會話；
// 持有 mu 時不得呼叫 Notifier。
type Room struct {
	name     string
	opts     Options
	notifier Notifier
	logger   *slog.Logger

	mu      sync.Mutex
	slots   [game.Slots]slot
	session *game.Session
	cancel  context.CancelFunc
	// runDone 在最近一次啟動的 tick 迴圈結束時關閉
	runDone chan struct{}
	ticks   uint64
}

// New 建立房間；遊戲會話立即由 idle 進入 start
func New(name string, notifier Notifier, opts Options, logger *slog.Logger) *Room {
	opts = opts.withDefaults()
	session := opts.NewSession()
	session.Start()

	return &Room{
		name:     name,
		opts:     opts,
		notifier: notifier,
		logger:   logger.With("room", name),
		session:  session,
	}
}

// Name 房間名稱
func (r *Room) Name() string {
	return r.name
}

// Join 讓連線入座
//
// 優先座位一，其次座位二；房間已滿或遊戲已結束時回傳 false（僅記錄日誌）。
// 已入座的連線重複加入視為成功。第一位玩家入座時啟動排程器。
func (r *Room) Join(connID string) bool {
	return r.TryJoin(connID) == nil
}

// TryJoin 同 Join，拒絕時回傳 ErrRoomFull 或 ErrGameOver
func (r *Room) TryJoin(connID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if state := r.session.State(); state.Terminal() {
		r.logger.Info("join rejected", "conn_id", connID, "state", state, "error", apperrors.ErrGameOver)
		return apperrors.ErrGameOver.WithDetails(r.name)
	}

	if r.slotOfLocked(connID) >= 0 {
		return nil
	}

	idx := -1
	for i := range r.slots {
		if r.slots[i].player == nil {
			idx = i
			break
		}
	}
	if idx < 0 {
		r.logger.Warn("join rejected", "conn_id", connID, "error", apperrors.ErrRoomFull)
		return apperrors.ErrRoomFull.WithDetails(r.name)
	}

	first := r.emptyLocked()
	p := game.NewPlayer(connID, r.opts.MaxShots)
	// 座位二往上一列，避免兩名玩家重疊
	p.Y -= idx
	p.Room = r.name

	r.slots[idx] = slot{connID: connID, player: p}
	r.session.Bind(idx, p)

	// 只有第一位入座的玩家啟動排程器
	if first && r.cancel == nil {
		r.startSchedulerLocked()
	}

	r.logger.Info("player joined", "conn_id", connID, "slot", idx+1)
	return nil
}

// HandleMove 將指令轉給連線所在座位的玩家；未入座則忽略
//
// 指令立即生效，於下一個 tick 邊界可見。
func (r *Room) HandleMove(connID string, cmd game.Command) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.slotOfLocked(connID)
	if idx < 0 {
		r.logger.Debug("move ignored", "conn_id", connID, "command", cmd, "error", apperrors.ErrNotSeated)
		return false
	}

	r.slots[idx].player.Apply(cmd)
	return true
}

// Disconnect 清空連線所在座位
//
// 兩個座位都空時停止排程器並將會話強制為 stop。
func (r *Room) Disconnect(connID string) (removed, empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.slotOfLocked(connID)
	if idx >= 0 {
		r.clearSlotLocked(idx)
		removed = true
		r.logger.Info("player left", "conn_id", connID, "slot", idx+1)
	}

	empty = r.emptyLocked()
	if empty {
		r.stopSchedulerLocked()
		if r.session.Stop() {
			r.logger.Info("room empty, game stopped")
		}
	}
	return removed, empty
}

// StopScheduler 停止排程器；可重複呼叫
func (r *Room) StopScheduler() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopSchedulerLocked()
}

// Close 拆除房間：清空座位並停止排程器
func (r *Room) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.slots {
		if r.slots[i].player != nil {
			r.clearSlotLocked(i)
		}
	}
	r.stopSchedulerLocked()
	r.session.Stop()
}

// Running 排程器是否在執行
func (r *Room) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancel != nil
}

// Seated 連線是否佔用座位
func (r *Room) Seated(connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.slotOfLocked(connID) >= 0
}

// State 遊戲會話狀態
func (r *Room) State() game.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session.State()
}

// Snapshot 房間快照
func (r *Room) Snapshot() Info {
	r.mu.Lock()
	defer r.mu.Unlock()

	info := Info{
		Name:    r.name,
		Slots:   r.slotIDsLocked(),
		Players: make([]PlayerInfo, 0, game.Slots),
		State:   r.session.State(),
		Score:   r.session.Score(),
		Enemies: r.session.SwarmSize(),
		Running: r.cancel != nil,
		Ticks:   r.ticks,
	}
	for i, s := range r.slots {
		if s.player == nil {
			continue
		}
		info.Players = append(info.Players, PlayerInfo{
			ConnID: s.connID,
			Slot:   i + 1,
			X:      s.player.X,
			Y:      s.player.Y,
			Room:   s.player.Room,
			Shots:  s.player.ShotCount(),
		})
	}
	return info
}

func (r *Room) slotOfLocked(connID string) int {
	for i, s := range r.slots {
		if s.player != nil && s.connID == connID {
			return i
		}
	}
	return -1
}

func (r *Room) clearSlotLocked(idx int) {
	r.slots[idx].player.Room = ""
	r.slots[idx] = slot{}
	r.session.Unbind(idx)
}

func (r *Room) emptyLocked() bool {
	for _, s := range r.slots {
		if s.player != nil {
			return false
		}
	}
	return true
}

func (r *Room) slotIDsLocked() [game.Slots]string {
	var ids [game.Slots]string
	for i, s := range r.slots {
		if s.player != nil {
			ids[i] = s.connID
		}
	}
	return ids
}
