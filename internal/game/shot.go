package game

import "time"

const (
	shotStepInterval = 50 * time.Millisecond
	explosionTime    = 250 * time.Millisecond
)

// ShotPhase 子彈生命週期
type ShotPhase int

const (
	ShotInFlight ShotPhase = iota
	ShotExploding
	ShotSpent
)

// String 實現 fmt.Stringer
func (p ShotPhase) String() string {
	switch p {
	case ShotInFlight:
		return "in_flight"
	case ShotExploding:
		return "exploding"
	case ShotSpent:
		return "spent"
	default:
		return "unknown"
	}
}

// Shot 玩家射出的子彈，每 50ms 上升一列
type Shot struct {
	X, Y      int
	exploding bool
	timer     Timer
}

// NewShot 建立子彈
func NewShot(x, y int) *Shot {
	return &Shot{X: x, Y: y, timer: NewTimer(shotStepInterval)}
}

// Update 推進子彈；爆炸中的子彈只倒數爆炸時間
func (s *Shot) Update(delta time.Duration) {
	s.timer.Update(delta)
	if s.timer.Ready() && !s.exploding {
		if s.Y > 0 {
			s.Y--
		}
		s.timer.Reset()
	}
}

// Explode 命中後進入爆炸階段
func (s *Shot) Explode() {
	s.exploding = true
	s.timer = NewTimer(explosionTime)
}

// Phase 目前階段
func (s *Shot) Phase() ShotPhase {
	if (s.exploding && s.timer.Ready()) || s.Y == 0 {
		return ShotSpent
	}
	if s.exploding {
		return ShotExploding
	}
	return ShotInFlight
}

// Draw 實現 Drawable
func (s *Shot) Draw(f *Frame) {
	if s.exploding {
		f.set(s.X, s.Y, "*")
	} else {
		f.set(s.X, s.Y, "|")
	}
}
