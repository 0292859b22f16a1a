package room

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koopa0/system-design/14-arcade-rooms/pkg/logger"
)

// gateNotifier 在 release 關閉前卡住投遞，並記錄同時進行中的最大數量
type gateNotifier struct {
	inflight atomic.Int32
	max      atomic.Int32
	calls    atomic.Int32
	release  chan struct{}
}

func (g *gateNotifier) DeliverFrame(TickResult) {
	cur := g.inflight.Add(1)
	for {
		m := g.max.Load()
		if cur <= m || g.max.CompareAndSwap(m, cur) {
			break
		}
	}
	g.calls.Add(1)
	<-g.release
	g.inflight.Add(-1)
}

func TestScheduler_RestartWaitsForPreviousRun(t *testing.T) {
	const tick = 5 * time.Millisecond

	g := &gateNotifier{release: make(chan struct{})}
	r := New("r1", g, Options{TickInterval: tick}, logger.Discard())
	t.Cleanup(r.Close)

	require.True(t, r.Join("a"))
	require.Eventually(t, func() bool { return g.calls.Load() == 1 }, time.Second, tick)

	// 舊迴圈仍卡在投遞時重新啟動
	r.mu.Lock()
	r.stopSchedulerLocked()
	r.startSchedulerLocked()
	r.mu.Unlock()

	time.Sleep(10 * tick)
	assert.Equal(t, int32(1), g.calls.Load())
	assert.True(t, r.Running())

	close(g.release)
	assert.Eventually(t, func() bool { return g.calls.Load() > 2 }, time.Second, tick)
	assert.Equal(t, int32(1), g.max.Load())
}

func TestScheduler_StopThenRunExits(t *testing.T) {
	g := &gateNotifier{release: make(chan struct{})}
	close(g.release)
	r := New("r1", g, Options{TickInterval: time.Millisecond}, logger.Discard())

	require.True(t, r.Join("a"))
	r.mu.Lock()
	done := r.runDone
	r.mu.Unlock()
	require.NotNil(t, done)

	r.StopScheduler()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("tick loop did not exit after stop")
	}
}
