package game

import (
	"testing"
	"time"

	apperrors "github.com/koopa0/system-design/14-arcade-rooms/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tick = 100 * time.Millisecond

func TestSession_StartOnce(t *testing.T) {
	s := NewSession()
	assert.Equal(t, StateIdle, s.State())
	assert.True(t, s.Start())
	assert.Equal(t, StateStart, s.State())
	assert.False(t, s.Start())
}

func TestSession_StartToRunning(t *testing.T) {
	s := NewSession()
	s.Start()

	out, err := s.Advance(tick)
	require.NoError(t, err)
	assert.Equal(t, StateRunning, out.State)
	assert.True(t, out.Transitioned)

	out, err = s.Advance(tick)
	require.NoError(t, err)
	assert.Equal(t, StateRunning, out.State)
	assert.False(t, out.Transitioned)
}

func TestSession_RendersEntities(t *testing.T) {
	s := NewSession()
	p := NewPlayer("p1", DefaultMaxShots)
	s.Bind(0, p)
	require.True(t, p.Shoot())

	out, err := s.Advance(time.Millisecond)
	require.NoError(t, err)

	assert.Equal(t, "A", out.Frame.At(Cols/2, Rows-1))
	assert.Equal(t, "|", out.Frame.At(Cols/2, Rows-2))
	assert.Equal(t, "x", out.Frame.At(2, 2))
	assert.Equal(t, Blank, out.Frame.At(0, 0))
	assert.Same(t, out.Frame, s.Frame())
}

// 只剩一個敵人且子彈正好在其位置：本 tick 勝利且分數 +1
func TestSession_LastEnemyHitWins(t *testing.T) {
	sw := NewSwarmAt([]Enemy{{X: 10, Y: 5}})
	s := NewSessionWithSwarm(sw)
	s.Start()

	p := NewPlayer("p1", DefaultMaxShots)
	p.shots = []*Shot{NewShot(10, 5)}
	s.Bind(0, p)

	out, err := s.Advance(time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, StateWin, out.State)
	assert.True(t, out.Transitioned)
	assert.Equal(t, 1, out.Score)
	assert.Equal(t, 0, s.SwarmSize())
}

func TestSession_EnemyAtLoseRowLoses(t *testing.T) {
	tests := []struct {
		name    string
		enemies []Enemy
		delta   time.Duration
	}{
		{
			name:    "already on lose row",
			enemies: []Enemy{{X: 10, Y: LoseRow}},
			delta:   tick,
		},
		{
			name:    "drops onto lose row at wall",
			enemies: []Enemy{{X: Cols - 1, Y: LoseRow - 1}},
			delta:   swarmMoveInterval,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSessionWithSwarm(NewSwarmAt(tt.enemies))
			s.Start()

			out, err := s.Advance(tt.delta)
			require.NoError(t, err)
			assert.Equal(t, StateLose, out.State)
		})
	}
}

func TestSession_TerminalIsFinal(t *testing.T) {
	s := NewSessionWithSwarm(NewSwarmAt([]Enemy{{X: 3, Y: 3}}))
	p := NewPlayer("p1", DefaultMaxShots)
	p.shots = []*Shot{NewShot(3, 3)}
	s.Bind(0, p)

	first, err := s.Advance(time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, StateWin, first.State)

	// 終止後再推進不改變畫面與分數
	p.Shoot()
	for i := 0; i < 5; i++ {
		out, err := s.Advance(tick)
		require.NoError(t, err)
		assert.Same(t, first.Frame, out.Frame)
		assert.Equal(t, first.Score, out.Score)
		assert.Equal(t, StateWin, out.State)
		assert.False(t, out.Transitioned)
	}

	assert.False(t, s.Stop())
	assert.Equal(t, StateWin, s.State())
}

func TestSession_StopForced(t *testing.T) {
	s := NewSession()
	s.Start()
	assert.True(t, s.Stop())
	assert.Equal(t, StateStop, s.State())

	out, err := s.Advance(tick)
	require.NoError(t, err)
	assert.Equal(t, StateStop, out.State)
	assert.False(t, out.Transitioned)
}

func TestSession_MissingSwarmIsInvariantViolation(t *testing.T) {
	s := NewSessionWithSwarm(nil)
	s.Start()

	_, err := s.Advance(tick)
	require.Error(t, err)
	assert.True(t, apperrors.IsInvariant(err))
	assert.Equal(t, StateStart, s.State())
}

func TestSession_FrameSizeAndSwarmMonotonic(t *testing.T) {
	s := NewSession()
	s.Start()
	p1 := NewPlayer("p1", DefaultMaxShots)
	p2 := NewPlayer("p2", DefaultMaxShots)
	p2.Y--
	s.Bind(0, p1)
	s.Bind(1, p2)

	prev := s.SwarmSize()
	for i := 0; i < 300 && !s.State().Terminal(); i++ {
		p1.Shoot()
		if i%3 == 0 {
			p2.MoveLeft()
		} else {
			p2.MoveRight()
		}
		p2.Shoot()

		out, err := s.Advance(tick)
		require.NoError(t, err)

		cols, rows := out.Frame.Size()
		assert.Equal(t, Cols, cols)
		assert.Equal(t, Rows, rows)
		assert.Len(t, out.Frame.Rows(), Rows)

		size := s.SwarmSize()
		assert.LessOrEqual(t, size, prev)
		prev = size
	}

	assert.Greater(t, s.Score(), 0)
	assert.Equal(t, NewSwarm().Len()-s.SwarmSize(), s.Score())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "running", StateRunning.String())
	assert.True(t, StateLose.Terminal())
	assert.False(t, StateStart.Terminal())

	text, err := StateWin.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "win", string(text))
}
