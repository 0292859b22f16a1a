// Package events 發布房間生命週期事件
package events

import (
	"context"
	"time"

	"github.com/koopa0/system-design/14-arcade-rooms/internal/game"
)

// Type 事件類型，同時作為 subject 後綴
type Type string

const (
	RoomStarted Type = "room.started"
	RoomWon     Type = "room.won"
	RoomLost    Type = "room.lost"
	RoomStopped Type = "room.stopped"
)

// Event 生命週期事件
type Event struct {
	Type    Type      `json:"type"`
	Room    string    `json:"room"`
	Score   int       `json:"score"`
	Players []string  `json:"players,omitempty"`
	Error   string    `json:"error,omitempty"`
	Time    time.Time `json:"time"`
}

// TypeFor 將遊戲狀態對應到事件類型；非生命週期節點回傳 false
func TypeFor(state game.State) (Type, bool) {
	switch state {
	case game.StateStart:
		return RoomStarted, true
	case game.StateWin:
		return RoomWon, true
	case game.StateLose:
		return RoomLost, true
	case game.StateStop:
		return RoomStopped, true
	default:
		return "", false
	}
}

// Publisher 事件發布者
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Nop 丟棄所有事件
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
