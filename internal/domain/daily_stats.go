package domain

import "time"

// DateLayout 持久化日期格式（YYYY-MM-DD）。
const DateLayout = time.DateOnly

// DailyStats 持久化的当日计数。
//
// Date 与当前日期不一致时整体作废。
type DailyStats struct {
	Date   string           `json:"date"`
	Counts map[Category]int `json:"counts"`
}

func (s DailyStats) IsDate(date string) bool {
	return s.Date == date
}

// Count 读取计数，Counts 为 nil 时返回 0。
func (s DailyStats) Count(c Category) int {
	return s.Counts[c]
}

func DateOf(t time.Time) string {
	return t.Format(DateLayout)
}
