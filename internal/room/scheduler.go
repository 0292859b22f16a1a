package room

import (
	"context"
	"time"

	"github.com/koopa0/system-design/14-arcade-rooms/internal/game"
)

// startSchedulerLocked 啟動固定間隔的 tick 迴圈，呼叫者須持有 mu
//
// 新迴圈會先等前一個迴圈結束才開始計時，同一房間任何時刻最多只有一個 tick 在廣播。
func (r *Room) startSchedulerLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	prev, done := r.runDone, make(chan struct{})
	r.cancel = cancel
	r.runDone = done
	go r.run(ctx, r.opts.TickInterval, prev, done)
	r.logger.Debug("scheduler started", "interval", r.opts.TickInterval)
}

// stopSchedulerLocked 取消排程器；只阻止下一次觸發，不打斷進行中的 tick
func (r *Room) stopSchedulerLocked() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	r.cancel = nil
	r.logger.Debug("scheduler stopped")
}

// run tick 迴圈
//
// delta 為兩次觸發之間的實際經過時間。處理時間超過間隔時會產生漂移，
// 不做追趕或合併。
func (r *Room) run(ctx context.Context, interval time.Duration, prev <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	// 前一個迴圈已被取消，但可能仍卡在 DeliverFrame
	if prev != nil {
		<-prev
	}
	if ctx.Err() != nil {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			delta := now.Sub(last)
			last = now
			if !r.tick(ctx, delta) {
				return
			}
		}
	}
}

// tick 在鎖內推進遊戲，釋放鎖後交給 Notifier 廣播並等待完成
func (r *Room) tick(ctx context.Context, delta time.Duration) bool {
	r.mu.Lock()
	if ctx.Err() != nil {
		r.mu.Unlock()
		return false
	}

	out, err := r.session.Advance(delta)
	r.ticks++
	res := TickResult{
		Room:  r,
		Name:  r.name,
		Tick:  r.ticks,
		Slots: r.slotIDsLocked(),
	}

	if err != nil {
		r.logger.Error("advance failed, aborting room", "error", err, "tick", r.ticks)
		r.session.Stop()
		r.stopSchedulerLocked()
		res.Frame = r.session.Frame()
		res.State = game.StateStop
		res.Score = r.session.Score()
		res.Transitioned = true
		res.Err = err
	} else {
		res.Frame = out.Frame
		res.State = out.State
		res.Score = out.Score
		res.Transitioned = out.Transitioned
		if out.State.Terminal() {
			r.stopSchedulerLocked()
			r.logger.Info("game finished", "state", out.State, "score", out.Score, "tick", r.ticks)
		}
	}
	r.mu.Unlock()

	r.notifier.DeliverFrame(res)
	return !res.State.Terminal()
}
