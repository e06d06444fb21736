package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/JrMarcco/jreward/internal/domain"
	"github.com/JrMarcco/jreward/internal/errs"
	"github.com/JrMarcco/jreward/internal/repository/cache"
	"github.com/JrMarcco/jreward/internal/repository/dao"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DailyStatsRepo 当日计数的读写入口，记录不存在时返回 errs.ErrDailyStatsNotFound。
type DailyStatsRepo interface {
	Get(ctx context.Context, key string) (domain.DailyStats, error)
	Set(ctx context.Context, key string, stats domain.DailyStats) error
}

var _ DailyStatsRepo = (*DaoDailyStatsRepo)(nil)

// DaoDailyStatsRepo 基于 dao.DailyStatsDAO 的实现，负责实体与领域对象的转换。
type DaoDailyStatsRepo struct {
	dao dao.DailyStatsDAO
}

func (r *DaoDailyStatsRepo) Get(ctx context.Context, key string) (domain.DailyStats, error) {
	entity, err := r.dao.GetByKey(ctx, key)
	if err != nil {
		return domain.DailyStats{}, err
	}
	return r.toDomain(entity)
}

func (r *DaoDailyStatsRepo) Set(ctx context.Context, key string, stats domain.DailyStats) error {
	entity, err := r.toEntity(key, stats)
	if err != nil {
		return err
	}
	return r.dao.Upsert(ctx, entity)
}

func (r *DaoDailyStatsRepo) toDomain(entity dao.DailyStats) (domain.DailyStats, error) {
	counts := make(map[domain.Category]int)
	if entity.Counts != "" {
		if err := json.Unmarshal([]byte(entity.Counts), &counts); err != nil {
			return domain.DailyStats{}, fmt.Errorf("[jreward] unmarshal daily stats counts error: %w", err)
		}
	}
	return domain.DailyStats{
		Date:   entity.Date,
		Counts: counts,
	}, nil
}

func (r *DaoDailyStatsRepo) toEntity(key string, stats domain.DailyStats) (dao.DailyStats, error) {
	counts := stats.Counts
	if counts == nil {
		counts = map[domain.Category]int{}
	}
	data, err := json.Marshal(counts)
	if err != nil {
		return dao.DailyStats{}, fmt.Errorf("[jreward] marshal daily stats counts error: %w", err)
	}
	return dao.DailyStats{
		StatsKey: key,
		Date:     stats.Date,
		Counts:   string(data),
	}, nil
}

func NewDaoDailyStatsRepo(dao dao.DailyStatsDAO) *DaoDailyStatsRepo {
	return &DaoDailyStatsRepo{
		dao: dao,
	}
}

var _ DailyStatsRepo = (*TieredDailyStatsRepo)(nil)

// TieredDailyStatsRepo 本地缓存 + 持久化存储。
//
// 读：先读本地缓存，未命中再读持久化存储并回填本地缓存。
// 写：本地缓存与持久化存储并发写入，持久化失败时返回错误。
type TieredDailyStatsRepo struct {
	localCache cache.DailyStatsCache
	durable    DailyStatsRepo
	logger     *zap.Logger
}

func (r *TieredDailyStatsRepo) Get(ctx context.Context, key string) (domain.DailyStats, error) {
	// 从本地缓存获取
	stats, err := r.localCache.Get(ctx, key)
	if err == nil {
		return stats, nil
	}

	stats, err = r.durable.Get(ctx, key)
	if err != nil {
		return domain.DailyStats{}, err
	}

	// 刷新本地缓存
	if lcErr := r.localCache.Set(ctx, key, stats); lcErr != nil {
		r.logger.Error("[jreward] failed to refresh daily stats local cache", zap.String("key", key), zap.Error(lcErr))
	}
	return stats, nil
}

func (r *TieredDailyStatsRepo) Set(ctx context.Context, key string, stats domain.DailyStats) error {
	var eg errgroup.Group
	eg.Go(func() error {
		if err := r.localCache.Set(ctx, key, stats); err != nil {
			// 本地缓存写失败只记录日志，下次读取会从持久化存储回填
			r.logger.Error("[jreward] failed to set daily stats local cache", zap.String("key", key), zap.Error(err))
		}
		return nil
	})
	eg.Go(func() error {
		return r.durable.Set(ctx, key, stats)
	})
	return eg.Wait()
}

func NewTieredDailyStatsRepo(localCache cache.DailyStatsCache, durable DailyStatsRepo, logger *zap.Logger) *TieredDailyStatsRepo {
	return &TieredDailyStatsRepo{
		localCache: localCache,
		durable:    durable,
		logger:     logger,
	}
}

// IsNotFound 判断是否为记录不存在。
func IsNotFound(err error) bool {
	return errors.Is(err, errs.ErrDailyStatsNotFound)
}
