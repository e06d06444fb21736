// Package clock 时间来源抽象，策略计算只通过 Clock 获取当前时间。
package clock

import (
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

var _ Clock = RealClock{}

// RealClock 系统时间，只在 ioc 中使用。
type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}

var _ Clock = (*ManualClock)(nil)

// ManualClock 手动推进的时钟，用于测试冷却与跨日逻辑。
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (m *ManualClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *ManualClock) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

func (m *ManualClock) Set(t time.Time) {
	m.mu.Lock()
	m.now = t
	m.mu.Unlock()
}

func NewReal() Clock {
	return RealClock{}
}

func NewManual(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}
