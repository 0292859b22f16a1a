package game

import "time"

const (
	swarmMoveInterval = 2500 * time.Millisecond
	swarmSpeedup      = 250 * time.Millisecond
	swarmMinInterval  = 250 * time.Millisecond

	// LoseRow 敵軍到達此列（含）即判定失敗
	LoseRow = Rows - 2
)

// Enemy 敵人位置
type Enemy struct {
	X, Y int
}

// Swarm 敵軍
//
// 全體共用水平方向；每碰一次牆就下降一列並縮短移動間隔（最低 250ms）。
// 敵人只會減少不會增加。
type Swarm struct {
	enemies   []Enemy
	timer     Timer
	direction int
	frozen    bool
}

// NewSwarm 建立標準陣型：偶數欄、第 2 列到畫面一半之間的偶數列
func NewSwarm() *Swarm {
	var enemies []Enemy
	for x := 0; x < Cols; x++ {
		for y := 0; y < Rows; y++ {
			if y > 1 && y < Rows/2 && x > 0 && x%2 == 0 && y%2 == 0 {
				enemies = append(enemies, Enemy{X: x, Y: y})
			}
		}
	}
	return NewSwarmAt(enemies)
}

// NewSwarmAt 以指定位置建立敵軍，越界位置會被略過
func NewSwarmAt(positions []Enemy) *Swarm {
	enemies := make([]Enemy, 0, len(positions))
	for _, e := range positions {
		if inBounds(e.X, e.Y) {
			enemies = append(enemies, e)
		}
	}
	return &Swarm{
		enemies:   enemies,
		timer:     NewTimer(swarmMoveInterval),
		direction: 1,
	}
}

// Update 推進敵軍，回傳本次是否移動
func (s *Swarm) Update(delta time.Duration) bool {
	if s.frozen || len(s.enemies) == 0 {
		return false
	}
	s.timer.Update(delta)
	if !s.timer.Ready() {
		return false
	}
	s.timer.Reset()

	downwards := false
	if s.direction < 0 {
		if s.minX() == 0 {
			s.direction = 1
			downwards = true
		}
	} else if s.maxX() == Cols-1 {
		s.direction = -1
		downwards = true
	}

	if downwards {
		next := s.timer.Duration() - swarmSpeedup
		if next < swarmMinInterval {
			next = swarmMinInterval
		}
		s.timer = NewTimer(next)
		for i := range s.enemies {
			s.enemies[i].Y++
		}
		return true
	}

	for i := range s.enemies {
		s.enemies[i].X += s.direction
	}
	return true
}

// Len 剩餘敵人數
func (s *Swarm) Len() int {
	return len(s.enemies)
}

// Enemies 敵人位置快照
func (s *Swarm) Enemies() []Enemy {
	out := make([]Enemy, len(s.enemies))
	copy(out, s.enemies)
	return out
}

// Interval 目前移動間隔
func (s *Swarm) Interval() time.Duration {
	return s.timer.Duration()
}

// Direction 目前水平方向（1 向右，-1 向左）
func (s *Swarm) Direction() int {
	return s.direction
}

// AllKilled 敵軍是否全滅
func (s *Swarm) AllKilled() bool {
	return len(s.enemies) == 0
}

// ReachedBottom 是否有敵人到達失敗列；到達後敵軍停止移動
func (s *Swarm) ReachedBottom() bool {
	maxY := 0
	for _, e := range s.enemies {
		if e.Y > maxY {
			maxY = e.Y
		}
	}
	s.frozen = maxY >= LoseRow
	return s.frozen
}

// KillAt 移除位於 (x, y) 的敵人
func (s *Swarm) KillAt(x, y int) bool {
	for i, e := range s.enemies {
		if e.X == x && e.Y == y {
			s.enemies = append(s.enemies[:i], s.enemies[i+1:]...)
			return true
		}
	}
	return false
}

// Draw 實現 Drawable；移動間隔前半段顯示 "x"，後半段顯示 "+"
func (s *Swarm) Draw(f *Frame) {
	glyph := "+"
	if s.timer.remainingRatio() > 0.5 {
		glyph = "x"
	}
	for _, e := range s.enemies {
		f.set(e.X, e.Y, glyph)
	}
}

func (s *Swarm) minX() int {
	if len(s.enemies) == 0 {
		return 0
	}
	m := s.enemies[0].X
	for _, e := range s.enemies[1:] {
		if e.X < m {
			m = e.X
		}
	}
	return m
}

func (s *Swarm) maxX() int {
	m := 0
	for _, e := range s.enemies {
		if e.X > m {
			m = e.X
		}
	}
	return m
}
