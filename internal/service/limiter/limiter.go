package limiter

import (
	"maps"
	"sync"
	"time"

	"github.com/JrMarcco/jreward/internal/domain"
	"github.com/JrMarcco/jreward/internal/pkg/clock"
)

// Probe provider 就绪探测，作为最后一道闸门。
type Probe interface {
	IsReady(c domain.Category) bool
}

// ProbeFunc 函数形式的 Probe。
type ProbeFunc func(c domain.Category) bool

func (f ProbeFunc) IsReady(c domain.Category) bool {
	return f(c)
}

// Config 限流器配置。
type Config struct {
	Enabled  bool
	Policies map[domain.Category]domain.Policy
}

// Limiter 策略引擎，判断某个类别当前能否履约以及还需等待多久。
//
// 状态不做存储，每次调用都由计数与当前时间重新计算。
// 跨日时当日计数清零，session 计数与冷却时间不受影响。
type Limiter struct {
	mu sync.Mutex

	enabled  bool
	policies map[domain.Category]domain.Policy
	usages   map[domain.Category]*domain.Usage
	day      string

	clock clock.Clock
}

// Status 按 全局开关 -> 日上限 -> session 上限 -> 冷却 -> provider 的顺序计算状态。
//
// provider 探测放在最后，被本地闸门拦下的类别不会产生 provider 调用。
func (l *Limiter) Status(c domain.Category, probe Probe) domain.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status(c, probe, l.clock.Now())
}

func (l *Limiter) IsAvailable(c domain.Category, probe Probe) bool {
	return l.Status(c, probe).IsAvailable()
}

// Acquire 在同一把锁内完成检查与计数。
func (l *Limiter) Acquire(c domain.Category, probe Probe) (domain.Status, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	status := l.status(c, probe, now)
	if !status.IsAvailable() {
		return status, false
	}
	l.record(c, now)
	return status, true
}

// RecordFulfillment 当日计数与 session 计数各加 1，并记录履约时间。
//
// 必须在把请求交给 provider 之前调用，保证 provider 回调之前的并发请求都被计数。
func (l *Limiter) RecordFulfillment(c domain.Category) domain.DailyStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.record(c, l.clock.Now())
	return l.snapshot()
}

// TimeUntilAvailable 只回答冷却还剩多久，不考虑其他闸门。
func (l *Limiter) TimeUntilAvailable(c domain.Category) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	u := l.usage(c)
	if !u.EverFulfilled() {
		return 0
	}
	remaining := l.policy(c).Cooldown() - l.clock.Now().Sub(u.LastFulfilledAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (l *Limiter) UsedToday(c domain.Category) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rollover(l.clock.Now())
	return l.usage(c).TodayCount
}

// RemainingToday 当日剩余次数，不限时返回 domain.Unlimited。
func (l *Limiter) RemainingToday(c domain.Category) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	p := l.policy(c)
	if !p.HasDailyLimit() {
		return domain.Unlimited
	}
	l.rollover(l.clock.Now())
	return max(0, p.DailyLimit-l.usage(c).TodayCount)
}

// Restore 用持久化的当日计数初始化，日期不是今天的数据直接忽略。
func (l *Limiter) Restore(stats domain.DailyStats) {
	l.mu.Lock()
	defer l.mu.Unlock()

	today := domain.DateOf(l.clock.Now())
	l.rollover(l.clock.Now())
	if !stats.IsDate(today) {
		return
	}
	for c, cnt := range stats.Counts {
		if !c.Validate() || cnt < 0 {
			continue
		}
		l.usage(c).TodayCount = cnt
	}
}

// Snapshot 当前的当日计数，用于持久化。
func (l *Limiter) Snapshot() domain.DailyStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rollover(l.clock.Now())
	return l.snapshot()
}

// Usage 返回某个类别计数的副本。
func (l *Limiter) Usage(c domain.Category) domain.Usage {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rollover(l.clock.Now())
	return *l.usage(c)
}

func (l *Limiter) status(c domain.Category, probe Probe, now time.Time) domain.Status {
	if !l.enabled {
		return domain.StatusDisabled
	}

	l.rollover(now)
	p := l.policy(c)
	u := l.usage(c)

	if p.HasDailyLimit() && u.TodayCount >= p.DailyLimit {
		return domain.StatusDailyExhausted
	}
	// 未配置 session 上限的类别不做 session 检查
	if p.HasSessionLimit() && u.SessionCount >= p.SessionLimit {
		return domain.StatusSessionExhausted
	}
	if u.EverFulfilled() && now.Sub(u.LastFulfilledAt) < p.Cooldown() {
		return domain.StatusCooling
	}
	if probe == nil || !probe.IsReady(c) {
		return domain.StatusProviderNotReady
	}
	return domain.StatusAvailable
}

func (l *Limiter) record(c domain.Category, now time.Time) {
	l.rollover(now)
	u := l.usage(c)
	u.SessionCount++
	u.TodayCount++
	u.LastFulfilledAt = now
}

// rollover 日期变化时清零当日计数。
func (l *Limiter) rollover(now time.Time) {
	today := domain.DateOf(now)
	if today == l.day {
		return
	}
	l.day = today
	for _, u := range l.usages {
		u.TodayCount = 0
	}
}

func (l *Limiter) snapshot() domain.DailyStats {
	counts := make(map[domain.Category]int, len(l.usages))
	for c, u := range l.usages {
		if u.TodayCount > 0 {
			counts[c] = u.TodayCount
		}
	}
	return domain.DailyStats{
		Date:   l.day,
		Counts: counts,
	}
}

// usage 懒创建计数。
func (l *Limiter) usage(c domain.Category) *domain.Usage {
	u, ok := l.usages[c]
	if !ok {
		u = &domain.Usage{}
		l.usages[c] = u
	}
	return u
}

func (l *Limiter) policy(c domain.Category) domain.Policy {
	if p, ok := l.policies[c]; ok {
		return p
	}
	return domain.PermissivePolicy()
}

func NewLimiter(cfg Config, clk clock.Clock) *Limiter {
	policies := make(map[domain.Category]domain.Policy, len(cfg.Policies))
	maps.Copy(policies, cfg.Policies)

	return &Limiter{
		enabled:  cfg.Enabled,
		policies: policies,
		usages:   make(map[domain.Category]*domain.Usage),
		day:      domain.DateOf(clk.Now()),
		clock:    clk,
	}
}
