package domain

import "time"

// Unlimited 表示不设上限。
const Unlimited = -1

// Policy 单个类别的静态限流配置，进程生命周期内不可变。
//
// DailyLimit / SessionLimit 小于等于 0 视为不限。
type Policy struct {
	DailyLimit      int     `json:"daily_limit" mapstructure:"daily_limit"`
	SessionLimit    int     `json:"session_limit" mapstructure:"session_limit"`
	CooldownSeconds float64 `json:"cooldown_seconds" mapstructure:"cooldown_seconds"`
}

func (p Policy) HasDailyLimit() bool {
	return p.DailyLimit > 0
}

func (p Policy) HasSessionLimit() bool {
	return p.SessionLimit > 0
}

func (p Policy) Cooldown() time.Duration {
	if p.CooldownSeconds <= 0 {
		return 0
	}
	return time.Duration(p.CooldownSeconds * float64(time.Second))
}

// PermissivePolicy 未配置或配置非法时的兜底策略：不限次数，无冷却。
func PermissivePolicy() Policy {
	return Policy{}
}

// Usage 单个类别的运行期计数。
//
// 只有 TodayCount 会被持久化，SessionCount 与 LastFulfilledAt 仅在本次进程内有效。
type Usage struct {
	LastFulfilledAt time.Time
	SessionCount    int
	TodayCount      int
}

func (u Usage) EverFulfilled() bool {
	return !u.LastFulfilledAt.IsZero()
}
