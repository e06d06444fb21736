package cache

import (
	"context"

	"github.com/JrMarcco/jreward/internal/domain"
)

const DailyStatsPrefix = "daily_stats"

// DailyStatsCache 当日计数的缓存层，未命中返回 errs.ErrDailyStatsNotFound。
type DailyStatsCache interface {
	Get(ctx context.Context, key string) (domain.DailyStats, error)
	Set(ctx context.Context, key string, stats domain.DailyStats) error
}

func DailyStatsKey(key string) string {
	return DailyStatsPrefix + ":" + key
}
