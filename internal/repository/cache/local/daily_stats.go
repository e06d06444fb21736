package local

import (
	"context"
	"maps"

	"github.com/JrMarcco/jreward/internal/domain"
	"github.com/JrMarcco/jreward/internal/errs"
	"github.com/JrMarcco/jreward/internal/repository/cache"
	gcache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

var _ cache.DailyStatsCache = (*DailyStatsLocalCache)(nil)

// DailyStatsLocalCache 进程内缓存，数据不过期，进程退出即丢失。
type DailyStatsLocalCache struct {
	c      *gcache.Cache
	logger *zap.Logger
}

func (lc *DailyStatsLocalCache) Get(_ context.Context, key string) (domain.DailyStats, error) {
	val, ok := lc.c.Get(cache.DailyStatsKey(key))
	if !ok {
		return domain.DailyStats{}, errs.ErrDailyStatsNotFound
	}

	stats, ok := val.(domain.DailyStats)
	if !ok {
		lc.logger.Warn("[jreward] unexpected value type in daily stats local cache", zap.String("key", key))
		return domain.DailyStats{}, errs.ErrDailyStatsNotFound
	}
	return clone(stats), nil
}

func (lc *DailyStatsLocalCache) Set(_ context.Context, key string, stats domain.DailyStats) error {
	lc.c.Set(cache.DailyStatsKey(key), clone(stats), gcache.NoExpiration)
	return nil
}

// clone 拷贝 Counts，避免调用方修改缓存中的数据。
func clone(stats domain.DailyStats) domain.DailyStats {
	counts := make(map[domain.Category]int, len(stats.Counts))
	maps.Copy(counts, stats.Counts)
	return domain.DailyStats{
		Date:   stats.Date,
		Counts: counts,
	}
}

func NewDailyStatsLocalCache(logger *zap.Logger) *DailyStatsLocalCache {
	return &DailyStatsLocalCache{
		c:      gcache.New(gcache.NoExpiration, 0),
		logger: logger,
	}
}
