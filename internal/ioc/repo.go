package ioc

import (
	"context"
	"fmt"
	"time"

	"github.com/JrMarcco/jreward/internal/errs"
	"github.com/JrMarcco/jreward/internal/repository"
	"github.com/JrMarcco/jreward/internal/repository/cache"
	"github.com/JrMarcco/jreward/internal/repository/cache/local"
	"github.com/JrMarcco/jreward/internal/repository/cache/redis"
	"github.com/JrMarcco/jreward/internal/repository/dao"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	BackendLocal  = "local"
	BackendRedis  = "redis"
	BackendEtcd   = "etcd"
	BackendMysql  = "mysql"
	BackendSqlite = "sqlite"

	defaultBackendInitTimeout = 5 * time.Second
)

var RepoFxOpt = fx.Options(
	// cache
	fx.Provide(
		fx.Annotate(
			local.NewDailyStatsLocalCache,
			fx.As(new(cache.DailyStatsCache)),
			fx.ResultTags(`name:"daily_stats_local_cache"`),
		),
	),

	// repository
	fx.Provide(
		fx.Annotate(
			InitDailyStatsRepo,
			fx.ParamTags(``, `name:"daily_stats_local_cache"`),
		),
	),
)

// InitDailyStatsRepo 按 stats.backend 选择持久化后端。
//
// 非 local 后端外面包一层本地缓存；后端不可用时告警并退化为 local。
func InitDailyStatsRepo(lc fx.Lifecycle, localCache cache.DailyStatsCache, logger *zap.Logger) repository.DailyStatsRepo {
	type config struct {
		Backend     string        `mapstructure:"backend"`
		InitTimeout time.Duration `mapstructure:"init_timeout"`
	}
	cfg := &config{Backend: BackendLocal}
	if err := viper.UnmarshalKey("stats", cfg); err != nil {
		logger.Warn("[jreward] invalid stats config, use local backend", zap.Error(err))
		return localCache
	}
	if cfg.InitTimeout <= 0 {
		cfg.InitTimeout = defaultBackendInitTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.InitTimeout)
	defer cancel()

	durable, closer, err := initDurableRepo(ctx, cfg.Backend, logger)
	if err != nil {
		logger.Warn(
			"[jreward] stats backend unavailable, degrade to local",
			zap.String("backend", cfg.Backend),
			zap.Error(err),
		)
		return localCache
	}
	if durable == nil {
		logger.Info("[jreward] use local stats backend")
		return localCache
	}

	if closer != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return closer()
			},
		})
	}
	logger.Info("[jreward] use durable stats backend", zap.String("backend", cfg.Backend))
	return repository.NewTieredDailyStatsRepo(localCache, durable, logger)
}

// initDurableRepo local 后端返回 nil。
func initDurableRepo(ctx context.Context, backend string, logger *zap.Logger) (repository.DailyStatsRepo, func() error, error) {
	switch backend {
	case "", BackendLocal:
		return nil, nil, nil
	case BackendRedis:
		client, err := initRedis(ctx)
		if err != nil {
			return nil, nil, err
		}
		return redis.NewDailyStatsRedisCache(client, logger), client.Close, nil
	case BackendEtcd:
		client, err := initEtcdClient(ctx)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewDaoDailyStatsRepo(dao.NewEtcdDailyStatsDAO(client)), client.Close, nil
	case BackendMysql:
		db, closeFn, err := initMysql(ctx)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewDaoDailyStatsRepo(dao.NewDefaultDailyStatsDAO(db)), closeFn, nil
	case BackendSqlite:
		db, err := initSqlite()
		if err != nil {
			return nil, nil, err
		}
		sqliteDAO, err := dao.NewSqliteDailyStatsDAO(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return repository.NewDaoDailyStatsRepo(sqliteDAO), db.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: %s", errs.ErrUnknownStatsBackend, backend)
	}
}
