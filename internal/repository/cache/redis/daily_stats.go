package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/JrMarcco/jreward/internal/domain"
	"github.com/JrMarcco/jreward/internal/errs"
	"github.com/JrMarcco/jreward/internal/repository/cache"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var _ cache.DailyStatsCache = (*DailyStatsRedisCache)(nil)

// DailyStatsRedisCache 当日计数存储在 redis 单个 key 中，不设置过期时间。
//
// 跨日清零由上层根据 date 字段判断，这里不做处理。
type DailyStatsRedisCache struct {
	client redis.Cmdable
	logger *zap.Logger
}

func (r *DailyStatsRedisCache) Get(ctx context.Context, key string) (domain.DailyStats, error) {
	val, err := r.client.Get(ctx, cache.DailyStatsKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// redis key 不存在
			return domain.DailyStats{}, errs.ErrDailyStatsNotFound
		}
		return domain.DailyStats{}, fmt.Errorf("[jreward] get daily stats from redis error: %w", err)
	}

	var stats domain.DailyStats
	if err = json.Unmarshal([]byte(val), &stats); err != nil {
		return domain.DailyStats{}, fmt.Errorf("[jreward] unmarshal daily stats error: %w", err)
	}
	return stats, nil
}

func (r *DailyStatsRedisCache) Set(ctx context.Context, key string, stats domain.DailyStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("[jreward] marshal daily stats error: %w", err)
	}
	if err = r.client.Set(ctx, cache.DailyStatsKey(key), data, 0).Err(); err != nil {
		return fmt.Errorf("[jreward] set daily stats to redis error: %w", err)
	}
	return nil
}

func NewDailyStatsRedisCache(rc redis.Cmdable, logger *zap.Logger) *DailyStatsRedisCache {
	return &DailyStatsRedisCache{
		client: rc,
		logger: logger,
	}
}
