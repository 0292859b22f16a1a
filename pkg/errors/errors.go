// Package errors 提供帶錯誤碼的應用程式錯誤
package errors

import (
	"errors"
	"fmt"
)

// 定義錯誤碼
const (
	// ErrCodeNotFound 資源未找到
	ErrCodeNotFound = "NOT_FOUND"
	// ErrCodeInvalidInput 無效輸入（無法解析的客戶端訊息）
	ErrCodeInvalidInput = "INVALID_INPUT"
	// ErrCodeRoomFull 房間已滿
	ErrCodeRoomFull = "ROOM_FULL"
	// ErrCodeNotSeated 連線未佔用房間座位
	ErrCodeNotSeated = "NOT_SEATED"
	// ErrCodeGameOver 遊戲已結束
	ErrCodeGameOver = "GAME_OVER"
	// ErrCodeInvariant 內部不變量被破壞（程式錯誤）
	ErrCodeInvariant = "INVARIANT_VIOLATION"
	// ErrCodeUnavailable 服務不可用
	ErrCodeUnavailable = "SERVICE_UNAVAILABLE"
	// ErrCodeInternal 內部錯誤
	ErrCodeInternal = "INTERNAL_ERROR"
)

// AppError 應用程式錯誤
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Err     error  `json:"-"`
}

// Error 實現 error 介面
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 實現 errors.Unwrap
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 以錯誤碼比對
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New 創建新的應用程式錯誤
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包裝錯誤
func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithDetails 回傳帶詳細資訊的副本（預定義錯誤不被修改）
func (e *AppError) WithDetails(details string) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

// 預定義錯誤
var (
	// ErrRoomNotFound 房間不存在
	ErrRoomNotFound = New(ErrCodeNotFound, "room not found")

	// ErrRoomFull 房間已有兩名玩家
	ErrRoomFull = New(ErrCodeRoomFull, "room is full")

	// ErrGameOver 房間的遊戲已結束，不再接受入座
	ErrGameOver = New(ErrCodeGameOver, "game already finished")

	// ErrNotSeated 連線沒有佔用座位
	ErrNotSeated = New(ErrCodeNotSeated, "connection does not occupy a slot")

	// ErrMalformedMessage 客戶端訊息無法解析
	ErrMalformedMessage = New(ErrCodeInvalidInput, "malformed client message")

	// ErrMissingSwarm 遊戲會話缺少敵軍
	ErrMissingSwarm = New(ErrCodeInvariant, "game session has no enemy swarm")

	// ErrRegistryClosed 註冊中心已停止
	ErrRegistryClosed = New(ErrCodeUnavailable, "registry is closed")
)

func hasCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsNotFound 檢查是否為未找到錯誤
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

// IsInvalidInput 檢查是否為無效輸入錯誤
func IsInvalidInput(err error) bool {
	return hasCode(err, ErrCodeInvalidInput)
}

// IsRoomFull 檢查是否為房間已滿錯誤
func IsRoomFull(err error) bool {
	return hasCode(err, ErrCodeRoomFull)
}

// IsInvariant 檢查是否為不變量錯誤
func IsInvariant(err error) bool {
	return hasCode(err, ErrCodeInvariant)
}

// IsUnavailable 檢查是否為服務不可用錯誤
func IsUnavailable(err error) bool {
	return hasCode(err, ErrCodeUnavailable)
}
