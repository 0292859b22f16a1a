// Package ratelimit 提供每條連線的入站訊息限流
//
// readPump 每讀到一則文字訊息就呼叫一次 Allow；被拒絕的訊息直接丟棄，
// 不回應客戶端也不中斷連線。
package ratelimit

import (
	"sync"
	"time"
)

// TokenBucket 單一連線的令牌桶
//
// 桶滿時允許一次突發 capacity 則訊息，之後以每秒 refillRate 則補充。
// 不足一顆的補充時間會保留到下次計算；桶滿期間的時間不累積。
type TokenBucket struct {
	capacity int64
	tokens   int64
	// perToken 補充一顆令牌所需時間
	perToken   time.Duration
	lastRefill time.Time
	now        func() time.Time
	mu         sync.Mutex
}

// NewTokenBucket 建立令牌桶；初始為滿
func NewTokenBucket(capacity, refillRate int64) *TokenBucket {
	return newTokenBucket(capacity, refillRate, time.Now)
}

func newTokenBucket(capacity, refillRate int64, now func() time.Time) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		tokens:     capacity,
		perToken:   time.Second / time.Duration(refillRate),
		lastRefill: now(),
		now:        now,
	}
}

// Allow 取一顆令牌，沒有令牌時回傳 false
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refillLocked(tb.now())
	if tb.tokens == 0 {
		return false
	}
	tb.tokens--
	return true
}

// Tokens 目前令牌數（不觸發補充）
func (tb *TokenBucket) Tokens() int64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.tokens
}

func (tb *TokenBucket) refillLocked(now time.Time) {
	if tb.tokens >= tb.capacity {
		tb.lastRefill = now
		return
	}

	add := int64(now.Sub(tb.lastRefill) / tb.perToken)
	if add <= 0 {
		return
	}
	if tb.tokens+add >= tb.capacity {
		tb.tokens = tb.capacity
		tb.lastRefill = now
		return
	}
	tb.tokens += add
	tb.lastRefill = tb.lastRefill.Add(time.Duration(add) * tb.perToken)
}
