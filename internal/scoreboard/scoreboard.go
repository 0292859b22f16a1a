// Package scoreboard 記錄已結束的遊戲結果
//
// 每個房間只保留最佳分數，另外依結局（win / lose / stop）累計次數。
// 預設使用記憶體實作；設定啟用 Redis 時改用 sorted set + hash。
package scoreboard

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/koopa0/system-design/14-arcade-rooms/internal/game"
)

// DefaultTopN Top 未指定數量時的預設值
const DefaultTopN = 10

// Result 一場結束的遊戲
type Result struct {
	Room       string
	State      game.State
	Score      int
	Players    []string
	Ticks      uint64
	FinishedAt time.Time
}

// Entry 排行榜項目
type Entry struct {
	Room  string `json:"room"`
	Score int    `json:"score"`
}

// Recorder 遊戲結果記錄器
type Recorder interface {
	// Record 記錄結果；同一房間只保留較高分數
	Record(ctx context.Context, res Result) error
	// Top 依分數由高到低回傳前 n 名
	Top(ctx context.Context, n int) ([]Entry, error)
	// Outcomes 各結局的累計次數
	Outcomes(ctx context.Context) (map[string]int64, error)
}

// Memory 記憶體記錄器
type Memory struct {
	mu       sync.RWMutex
	best     map[string]int
	outcomes map[string]int64
}

// NewMemory 建立記憶體記錄器
func NewMemory() *Memory {
	return &Memory{
		best:     make(map[string]int),
		outcomes: make(map[string]int64),
	}
}

// Record 實現 Recorder
func (m *Memory) Record(_ context.Context, res Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cur, ok := m.best[res.Room]; !ok || res.Score > cur {
		m.best[res.Room] = res.Score
	}
	m.outcomes[res.State.String()]++
	return nil
}

// Top 實現 Recorder
func (m *Memory) Top(_ context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		n = DefaultTopN
	}

	m.mu.RLock()
	entries := make([]Entry, 0, len(m.best))
	for room, score := range m.best {
		entries = append(entries, Entry{Room: room, Score: score})
	}
	m.mu.RUnlock()

	sortEntries(entries)
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries, nil
}

// Outcomes 實現 Recorder
func (m *Memory) Outcomes(_ context.Context) (map[string]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]int64, len(m.outcomes))
	for k, v := range m.outcomes {
		out[k] = v
	}
	return out, nil
}

// sortEntries 分數由高到低，同分依房間名稱
func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Room < entries[j].Room
	})
}
