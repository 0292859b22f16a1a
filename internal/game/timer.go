package game

import "time"

// Timer 以 tick 間隔累減的倒數計時器
type Timer struct {
	duration time.Duration
	left     time.Duration
	ready    bool
}

// NewTimer 建立計時器
func NewTimer(d time.Duration) Timer {
	return Timer{duration: d, left: d}
}

// Update 扣除經過時間，歸零時 ready
func (t *Timer) Update(delta time.Duration) {
	if delta >= t.left {
		t.left = 0
	} else {
		t.left -= delta
	}
	t.ready = t.left == 0
}

// Reset 重新開始倒數
func (t *Timer) Reset() {
	t.left = t.duration
	t.ready = false
}

// Ready 倒數是否結束
func (t *Timer) Ready() bool {
	return t.ready
}

// Duration 計時器長度
func (t *Timer) Duration() time.Duration {
	return t.duration
}

// remainingRatio 剩餘比例 [0,1]
func (t *Timer) remainingRatio() float64 {
	if t.duration <= 0 {
		return 0
	}
	return t.left.Seconds() / t.duration.Seconds()
}
