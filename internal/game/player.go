package game

import "time"

// DefaultMaxShots 每名玩家同時存在的子彈上限
const DefaultMaxShots = 20

// Command 玩家指令
type Command int

const (
	CommandLeft Command = iota + 1
	CommandRight
	CommandShoot
)

// String 實現 fmt.Stringer
func (c Command) String() string {
	switch c {
	case CommandLeft:
		return "left"
	case CommandRight:
		return "right"
	case CommandShoot:
		return "shoot"
	default:
		return "unknown"
	}
}

// Player 玩家實體，ID 即連線 ID
//
// Room 記錄玩家所屬房間名稱，必須與持有其座位的房間一致，由 room 套件維護。
type Player struct {
	ID   string
	X, Y int
	Room string

	shots    []*Shot
	maxShots int
}

// NewPlayer 建立位於底列中央的玩家
func NewPlayer(id string, maxShots int) *Player {
	if maxShots <= 0 {
		maxShots = DefaultMaxShots
	}
	return &Player{
		ID:       id,
		X:        Cols / 2,
		Y:        Rows - 1,
		maxShots: maxShots,
	}
}

// Apply 執行指令，回傳是否有效果
func (p *Player) Apply(cmd Command) bool {
	switch cmd {
	case CommandLeft:
		return p.MoveLeft()
	case CommandRight:
		return p.MoveRight()
	case CommandShoot:
		return p.Shoot()
	default:
		return false
	}
}

// MoveLeft 左移一格
func (p *Player) MoveLeft() bool {
	if p.X > 0 {
		p.X--
		return true
	}
	return false
}

// MoveRight 右移一格
func (p *Player) MoveRight() bool {
	if p.X < Cols-1 {
		p.X++
		return true
	}
	return false
}

// Shoot 在玩家正上方產生子彈；達上限時靜默忽略
func (p *Player) Shoot() bool {
	if len(p.shots) >= p.maxShots || p.Y == 0 {
		return false
	}
	p.shots = append(p.shots, NewShot(p.X, p.Y-1))
	return true
}

// ShotCount 目前存在的子彈數
func (p *Player) ShotCount() int {
	return len(p.shots)
}

// Shots 子彈快照
func (p *Player) Shots() []Shot {
	out := make([]Shot, len(p.shots))
	for i, s := range p.shots {
		out[i] = *s
	}
	return out
}

// Update 推進子彈並移除已結束的子彈
func (p *Player) Update(delta time.Duration) {
	live := p.shots[:0]
	for _, s := range p.shots {
		s.Update(delta)
		if s.Phase() != ShotSpent {
			live = append(live, s)
		}
	}
	for i := len(live); i < len(p.shots); i++ {
		p.shots[i] = nil
	}
	p.shots = live
}

// DetectHits 以飛行中的子彈比對敵軍位置，回傳命中數
func (p *Player) DetectHits(sw *Swarm) int {
	hits := 0
	for _, s := range p.shots {
		if s.exploding {
			continue
		}
		if sw.KillAt(s.X, s.Y) {
			s.Explode()
			hits++
		}
	}
	return hits
}

// Draw 實現 Drawable
func (p *Player) Draw(f *Frame) {
	f.set(p.X, p.Y, "A")
	for _, s := range p.shots {
		s.Draw(f)
	}
}
