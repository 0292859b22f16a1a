package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimer(t *testing.T) {
	timer := NewTimer(100 * time.Millisecond)

	timer.Update(40 * time.Millisecond)
	assert.False(t, timer.Ready())

	timer.Update(60 * time.Millisecond)
	assert.True(t, timer.Ready())

	// 超出時間不會變成負值
	timer.Update(time.Second)
	assert.True(t, timer.Ready())
	assert.Equal(t, 0.0, timer.remainingRatio())

	timer.Reset()
	assert.False(t, timer.Ready())
	assert.Equal(t, 1.0, timer.remainingRatio())
}

func TestShot_Lifecycle(t *testing.T) {
	t.Run("moves up one row per step", func(t *testing.T) {
		s := NewShot(5, 10)
		s.Update(shotStepInterval)
		assert.Equal(t, 9, s.Y)
		s.Update(shotStepInterval / 2)
		assert.Equal(t, 9, s.Y)
		assert.Equal(t, ShotInFlight, s.Phase())
	})

	t.Run("spent at top row", func(t *testing.T) {
		s := NewShot(5, 1)
		s.Update(shotStepInterval)
		assert.Equal(t, 0, s.Y)
		assert.Equal(t, ShotSpent, s.Phase())
	})

	t.Run("explosion then spent", func(t *testing.T) {
		s := NewShot(5, 10)
		s.Explode()
		assert.Equal(t, ShotExploding, s.Phase())

		s.Update(explosionTime - time.Millisecond)
		assert.Equal(t, ShotExploding, s.Phase())
		assert.Equal(t, 10, s.Y, "exploding shot does not move")

		s.Update(time.Millisecond)
		assert.Equal(t, ShotSpent, s.Phase())
	})
}

func TestPlayer_Movement(t *testing.T) {
	p := NewPlayer("p1", DefaultMaxShots)
	assert.Equal(t, Cols/2, p.X)
	assert.Equal(t, Rows-1, p.Y)

	for i := 0; i < Cols; i++ {
		p.Apply(CommandLeft)
	}
	assert.Equal(t, 0, p.X)
	assert.False(t, p.MoveLeft())

	for i := 0; i < Cols*2; i++ {
		p.Apply(CommandRight)
	}
	assert.Equal(t, Cols-1, p.X)
	assert.False(t, p.MoveRight())
}

func TestPlayer_ShotCap(t *testing.T) {
	p := NewPlayer("p1", DefaultMaxShots)

	accepted := 0
	for i := 0; i < 25; i++ {
		if p.Apply(CommandShoot) {
			accepted++
		}
	}

	assert.Equal(t, 20, accepted)
	assert.Equal(t, 20, p.ShotCount())
	for _, s := range p.Shots() {
		assert.Equal(t, Rows-2, s.Y)
		assert.Equal(t, ShotInFlight, s.Phase())
	}
}

func TestPlayer_UpdateRetiresSpentShots(t *testing.T) {
	p := NewPlayer("p1", DefaultMaxShots)
	require.True(t, p.Shoot())

	// 子彈由第 Rows-2 列出發，每步上升一列
	for i := 0; i < Rows-3; i++ {
		p.Update(shotStepInterval)
	}
	require.Equal(t, 1, p.ShotCount())
	assert.Equal(t, 1, p.Shots()[0].Y)

	p.Update(shotStepInterval)
	assert.Equal(t, 0, p.ShotCount())
}

func TestPlayer_DetectHits(t *testing.T) {
	p := NewPlayer("p1", DefaultMaxShots)
	p.shots = []*Shot{NewShot(4, 4), NewShot(7, 7)}
	sw := NewSwarmAt([]Enemy{{X: 4, Y: 4}, {X: 8, Y: 8}})

	assert.Equal(t, 1, p.DetectHits(sw))
	assert.Equal(t, 1, sw.Len())
	assert.Equal(t, ShotExploding, p.shots[0].Phase())

	// 爆炸中的子彈不再命中
	sw2 := NewSwarmAt([]Enemy{{X: 4, Y: 4}})
	assert.Equal(t, 0, p.DetectHits(sw2))
}

func TestNewSwarm_Formation(t *testing.T) {
	sw := NewSwarm()
	require.Equal(t, 76, sw.Len())
	for _, e := range sw.Enemies() {
		assert.Zero(t, e.X%2)
		assert.Zero(t, e.Y%2)
		assert.Greater(t, e.X, 0)
		assert.Greater(t, e.Y, 1)
		assert.Less(t, e.Y, Rows/2)
	}
	assert.Equal(t, 1, sw.Direction())
	assert.Equal(t, swarmMoveInterval, sw.Interval())
}

func TestSwarm_Update(t *testing.T) {
	t.Run("moves horizontally on interval", func(t *testing.T) {
		sw := NewSwarmAt([]Enemy{{X: 5, Y: 5}})
		assert.False(t, sw.Update(swarmMoveInterval-time.Millisecond))
		assert.Equal(t, 5, sw.Enemies()[0].X)

		assert.True(t, sw.Update(time.Millisecond))
		assert.Equal(t, 6, sw.Enemies()[0].X)
	})

	t.Run("wall bounce drops and speeds up", func(t *testing.T) {
		sw := NewSwarmAt([]Enemy{{X: Cols - 1, Y: 3}})
		require.True(t, sw.Update(swarmMoveInterval))

		e := sw.Enemies()[0]
		assert.Equal(t, Cols-1, e.X)
		assert.Equal(t, 4, e.Y)
		assert.Equal(t, -1, sw.Direction())
		assert.Equal(t, swarmMoveInterval-swarmSpeedup, sw.Interval())

		require.True(t, sw.Update(sw.Interval()))
		assert.Equal(t, Cols-2, sw.Enemies()[0].X)
	})

	t.Run("interval floor", func(t *testing.T) {
		// 兩側都貼牆：每次更新都會反彈
		sw := NewSwarmAt([]Enemy{{X: 0, Y: 0}, {X: Cols - 1, Y: 0}})
		for i := 0; i < 12; i++ {
			require.True(t, sw.Update(sw.Interval()))
		}
		assert.Equal(t, swarmMinInterval, sw.Interval())
	})

	t.Run("frozen after reaching bottom", func(t *testing.T) {
		sw := NewSwarmAt([]Enemy{{X: 5, Y: LoseRow}})
		assert.True(t, sw.ReachedBottom())
		assert.False(t, sw.Update(swarmMoveInterval))
		assert.Equal(t, 5, sw.Enemies()[0].X)
	})

	t.Run("empty swarm does nothing", func(t *testing.T) {
		sw := NewSwarmAt(nil)
		assert.False(t, sw.Update(swarmMoveInterval))
		assert.True(t, sw.AllKilled())
	})
}

func TestSwarm_KillAt(t *testing.T) {
	sw := NewSwarmAt([]Enemy{{X: 1, Y: 1}, {X: 2, Y: 2}, {X: 3, Y: 3}})
	assert.True(t, sw.KillAt(2, 2))
	assert.False(t, sw.KillAt(2, 2))
	assert.Equal(t, []Enemy{{X: 1, Y: 1}, {X: 3, Y: 3}}, sw.Enemies())
}

func TestSwarm_DrawGlyphs(t *testing.T) {
	sw := NewSwarmAt([]Enemy{{X: 2, Y: 2}})

	f := NewFrame()
	sw.Draw(f)
	assert.Equal(t, "x", f.At(2, 2))

	sw.Update(swarmMoveInterval * 3 / 4)
	f = NewFrame()
	sw.Draw(f)
	assert.Equal(t, "+", f.At(2, 2))
}
