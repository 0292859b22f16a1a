package game

import (
	"fmt"
	"time"

	apperrors "github.com/koopa0/system-design/14-arcade-rooms/pkg/errors"
)

// Slots 每個房間的座位數
const Slots = 2

// State 遊戲會話狀態
//
// 有限狀態機：
//
//	idle → start → running → win | lose | stop
//
// win、lose、stop 為終止狀態，進入後 Advance 不再改變任何內容。
type State int

const (
	StateIdle State = iota
	StateStart
	StateRunning
	StateWin
	StateLose
	StateStop
)

// String 實現 fmt.Stringer
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStart:
		return "start"
	case StateRunning:
		return "running"
	case StateWin:
		return "win"
	case StateLose:
		return "lose"
	case StateStop:
		return "stop"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText 以名稱序列化
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal 是否為終止狀態
func (s State) Terminal() bool {
	return s == StateWin || s == StateLose || s == StateStop
}

// Outcome 一次 Advance 的結果
type Outcome struct {
	Frame *Frame
	State State
	Score int
	// Transitioned 本次是否進入了新的狀態
	Transitioned bool
}

// Session 一個房間的遊戲會話
//
// Session 本身不加鎖，由持有它的 Room 以單一互斥鎖保護。
type Session struct {
	players [Slots]*Player
	swarm   *Swarm
	frame   *Frame
	score   int
	state   State
}

// NewSession 建立帶標準敵軍陣型的會話
func NewSession() *Session {
	return NewSessionWithSwarm(NewSwarm())
}

// NewSessionWithSwarm 以指定敵軍建立會話
func NewSessionWithSwarm(sw *Swarm) *Session {
	return &Session{
		swarm: sw,
		frame: NewFrame(),
		state: StateIdle,
	}
}

// Start idle → start，只會成功一次
func (s *Session) Start() bool {
	if s.state != StateIdle {
		return false
	}
	s.state = StateStart
	return true
}

// Stop 強制進入 stop；已是終止狀態則不變
func (s *Session) Stop() bool {
	if s.state.Terminal() {
		return false
	}
	s.state = StateStop
	return true
}

// Bind 把玩家綁到座位
func (s *Session) Bind(slot int, p *Player) {
	s.players[slot] = p
}

// Unbind 清空座位
func (s *Session) Unbind(slot int) {
	s.players[slot] = nil
}

// Player 回傳座位上的玩家（可能為 nil）
func (s *Session) Player(slot int) *Player {
	return s.players[slot]
}

// State 目前狀態
func (s *Session) State() State { return s.state }

// Score 累計分數
func (s *Session) Score() int { return s.score }

// Frame 最近一次渲染的畫面
func (s *Session) Frame() *Frame { return s.frame }

// SwarmSize 剩餘敵人數；沒有敵軍時為 0
func (s *Session) SwarmSize() int {
	if s.swarm == nil {
		return 0
	}
	return s.swarm.Len()
}

// Advance 推進一個 tick
//
// 固定順序：
//  1. 各座位玩家推進並移除已結束的子彈
//  2. 推進敵軍
//  3. 將所有實體渲染到新畫面
//  4. 命中判定（移除敵人、子彈爆炸、加分）
//  5. 判定勝負
//  6. 回傳畫面與狀態
//
// 缺少敵軍屬於程式錯誤，回傳 INVARIANT_VIOLATION 且不修改任何狀態。
func (s *Session) Advance(delta time.Duration) (Outcome, error) {
	if s.state.Terminal() {
		return s.outcome(false), nil
	}
	if s.swarm == nil {
		return Outcome{}, apperrors.ErrMissingSwarm
	}

	for _, p := range s.players {
		if p != nil {
			p.Update(delta)
		}
	}

	s.swarm.Update(delta)

	frame := NewFrame()
	for _, p := range s.players {
		if p != nil {
			p.Draw(frame)
		}
	}
	s.swarm.Draw(frame)

	for _, p := range s.players {
		if p != nil {
			s.score += p.DetectHits(s.swarm)
		}
	}

	prev := s.state
	switch {
	case s.swarm.AllKilled():
		s.state = StateWin
	case s.swarm.ReachedBottom():
		s.state = StateLose
	default:
		s.state = StateRunning
	}

	s.frame = frame
	return s.outcome(prev != s.state), nil
}

func (s *Session) outcome(transitioned bool) Outcome {
	return Outcome{
		Frame:        s.frame,
		State:        s.state,
		Score:        s.score,
		Transitioned: transitioned,
	}
}
