package registry

import (
	"context"
	"time"

	"github.com/koopa0/system-design/14-arcade-rooms/internal/events"
	"github.com/koopa0/system-design/14-arcade-rooms/internal/game"
	"github.com/koopa0/system-design/14-arcade-rooms/internal/room"
	"github.com/koopa0/system-design/14-arcade-rooms/internal/scoreboard"
)

// reportTimeout 單筆回報（Redis / NATS）的逾時
const reportTimeout = 5 * time.Second

// report 交給背景 goroutine 的副作用；result 或 event 可為 nil
type report struct {
	result *scoreboard.Result
	event  *events.Event
}

// enqueue 非阻塞投遞；佇列滿時丟棄
func (r *Registry) enqueue(rep report) {
	select {
	case r.reports <- rep:
	default:
		r.stats.ReportsDropped++
		r.logger.Warn("report queue full, dropping report")
	}
}

func (r *Registry) reportStarted(name string) {
	r.enqueue(report{event: &events.Event{
		Type: events.RoomStarted,
		Room: name,
		Time: time.Now(),
	}})
}

// reportFinished after 為拆除後的快照（狀態已終止），before 保留拆除前的座位
func (r *Registry) reportFinished(after, before room.Info, cause error) {
	var players []string
	for _, id := range before.Slots {
		if id != "" {
			players = append(players, id)
		}
	}

	state := after.State
	if !state.Terminal() {
		state = game.StateStop
	}
	now := time.Now()

	rep := report{result: &scoreboard.Result{
		Room:       after.Name,
		State:      state,
		Score:      after.Score,
		Players:    players,
		Ticks:      after.Ticks,
		FinishedAt: now,
	}}
	if typ, ok := events.TypeFor(state); ok {
		ev := &events.Event{
			Type:    typ,
			Room:    after.Name,
			Score:   after.Score,
			Players: players,
			Time:    now,
		}
		if cause != nil {
			ev.Error = cause.Error()
		}
		rep.event = ev
	}
	r.enqueue(rep)
}

// runReporter 依序處理回報直到 reports 關閉
func (r *Registry) runReporter(done chan<- struct{}) {
	defer close(done)

	for rep := range r.reports {
		ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
		if rep.result != nil {
			if err := r.recorder.Record(ctx, *rep.result); err != nil {
				r.logger.Warn("record result failed", "room", rep.result.Room, "error", err)
			}
		}
		if rep.event != nil {
			if err := r.publisher.Publish(ctx, *rep.event); err != nil {
				r.logger.Warn("publish event failed", "room", rep.event.Room, "type", rep.event.Type, "error", err)
			}
		}
		cancel()
	}
}
