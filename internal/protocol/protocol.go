// Package protocol 定義客戶端與伺服器之間的 JSON 訊息格式
//
// 客戶端 → 伺服器：
//
//	{"chat_type": "JOIN",     "value": "<room-name>"}
//	{"chat_type": "MOVEMENT", "value": "-1" | "1" | "-"}
//	{"chat_type": "TEXT",     "value": "<text>"}
//	{"chat_type": "TYPING",   "value": "<text>"}
//
// 伺服器 → 客戶端：轉送的聊天信封，或畫面快照（列陣列）。
//
// 字串指令只在這一層解析，往內傳遞的都是具型別的 Intent。
package protocol

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/koopa0/system-design/14-arcade-rooms/internal/game"
	apperrors "github.com/koopa0/system-design/14-arcade-rooms/pkg/errors"
)

// ChatType 訊息類型
type ChatType string

const (
	ChatTyping     ChatType = "TYPING"
	ChatJoin       ChatType = "JOIN"
	ChatText       ChatType = "TEXT"
	ChatConnect    ChatType = "CONNECT"
	ChatDisconnect ChatType = "DISCONNECT"
	ChatMovement   ChatType = "MOVEMENT"
)

// 移動指令的線上表示
const (
	MoveLeft  = "-1"
	MoveRight = "1"
	MoveShoot = "-"
)

// Envelope 訊息信封
type Envelope struct {
	ChatType ChatType `json:"chat_type"`
	Value    string   `json:"value"`
}

// Intent 解碼後的客戶端意圖：Join、Move 或 Chat
type Intent interface {
	intent()
}

// Join 加入（或建立）指定名稱的房間
type Join struct {
	Room string
}

// Move 玩家移動或射擊
type Move struct {
	Command game.Command
}

// Chat 要轉送的聊天內容（已重新編碼的信封）
type Chat struct {
	Payload []byte
}

func (Join) intent() {}
func (Move) intent() {}
func (Chat) intent() {}

// Decode 解析一則客戶端文字訊息
//
// 無法解析、未知類型、空房間名稱或未知移動指令都回傳 INVALID_INPUT。
func Decode(data []byte) (Intent, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInvalidInput, "decode envelope")
	}

	switch env.ChatType {
	case ChatJoin:
		room := strings.TrimSpace(env.Value)
		if room == "" {
			return nil, apperrors.ErrMalformedMessage.WithDetails("empty room name")
		}
		return Join{Room: room}, nil

	case ChatMovement:
		cmd, err := ParseCommand(env.Value)
		if err != nil {
			return nil, err
		}
		return Move{Command: cmd}, nil

	case ChatText, ChatTyping:
		payload, err := json.Marshal(Envelope{ChatType: env.ChatType, Value: env.Value})
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "encode chat envelope")
		}
		return Chat{Payload: payload}, nil

	default:
		return nil, apperrors.ErrMalformedMessage.WithDetails(fmt.Sprintf("unsupported chat_type %q", env.ChatType))
	}
}

// ParseCommand 解析移動指令
func ParseCommand(value string) (game.Command, error) {
	switch value {
	case MoveLeft:
		return game.CommandLeft, nil
	case MoveRight:
		return game.CommandRight, nil
	case MoveShoot:
		return game.CommandShoot, nil
	default:
		return 0, apperrors.ErrMalformedMessage.WithDetails(fmt.Sprintf("unknown movement %q", value))
	}
}

// EncodeFrame 將畫面編碼為 JSON 列陣列
func EncodeFrame(f *game.Frame) ([]byte, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "encode frame")
	}
	return data, nil
}

// DecodeFrame 由 JSON 列陣列還原畫面
func DecodeFrame(data []byte) (*game.Frame, error) {
	var rows [][]string
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInvalidInput, "decode frame")
	}
	f, err := game.FrameFromRows(rows)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInvalidInput, "decode frame")
	}
	return f, nil
}
