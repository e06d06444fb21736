package ioc

import (
	"context"
	"time"

	"github.com/JrMarcco/jreward/internal/domain"
	"github.com/JrMarcco/jreward/internal/pkg/clock"
	"github.com/JrMarcco/jreward/internal/repository"
	"github.com/JrMarcco/jreward/internal/service/limiter"
	"github.com/JrMarcco/jreward/internal/service/provider"
	"github.com/JrMarcco/jreward/internal/service/provider/registry"
	"github.com/JrMarcco/jreward/internal/service/provider/remote"
	"github.com/JrMarcco/jreward/internal/service/reward"
	"github.com/JrMarcco/jreward/internal/service/stats"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ServiceFxOpt = fx.Options(
	fx.Provide(
		clock.NewReal,
		InitRewardConfig,

		// provider
		InitProviderRegistry,
		InitProvider,

		InitLimiter,
		InitStatsStore,
		InitResolver,

		// 进程内唯一的奖励服务
		InitRewardService,
	),
)

// RewardConfig reward 配置段。
type RewardConfig struct {
	Enabled       bool                `mapstructure:"enabled"`
	Provider      string              `mapstructure:"provider"`
	TestMode      bool                `mapstructure:"test_mode"`
	Player        string              `mapstructure:"player"`
	Rules         []domain.RewardRule `mapstructure:"rules"`
	DefaultReward *domain.RewardSpec  `mapstructure:"default_reward"`
	Service       reward.Config       `mapstructure:"service"`
	Remote        remote.Config       `mapstructure:"remote"`

	// 单独解析，见 loadPolicies
	Policies map[domain.Category]domain.Policy `mapstructure:"-"`
}

func InitRewardConfig(logger *zap.Logger) RewardConfig {
	return LoadRewardConfig(viper.GetViper(), logger)
}

// LoadRewardConfig 读取 reward 配置。
//
// 配置错误不会导致启动失败：整体解析失败时使用默认配置，
// 策略非法时对应类别使用不限次数的兜底策略，未知类别忽略。
func LoadRewardConfig(v *viper.Viper, logger *zap.Logger) RewardConfig {
	cfg := defaultRewardConfig()
	if err := v.UnmarshalKey("reward", &cfg); err != nil {
		logger.Error("[jreward] invalid reward config, use defaults", zap.Error(err))
		cfg = defaultRewardConfig()
	}
	cfg.Policies = loadPolicies(v, logger)
	return cfg
}

func defaultRewardConfig() RewardConfig {
	return RewardConfig{
		Enabled:  true,
		Provider: "stub",
		Player:   stats.DefaultKey,
	}
}

func loadPolicies(v *viper.Viper, logger *zap.Logger) map[domain.Category]domain.Policy {
	policies := make(map[domain.Category]domain.Policy)

	raw := v.GetStringMap("reward.policies")
	for key := range raw {
		c := domain.Category(key)
		if !c.Validate() {
			logger.Warn("[jreward] ignore policy of unknown category", zap.String("category", key))
			continue
		}

		var p domain.Policy
		if err := v.UnmarshalKey("reward.policies."+key, &p); err != nil {
			logger.Error(
				"[jreward] malformed policy, use permissive policy",
				zap.String("category", key),
				zap.Error(err),
			)
			continue
		}
		policies[c] = p
	}
	return policies
}

func InitProviderRegistry(cfg RewardConfig, logger *zap.Logger) *registry.Registry {
	return registry.NewRegistry(cfg.Remote, logger)
}

func InitProvider(r *registry.Registry, cfg RewardConfig) provider.Provider {
	return r.Create(cfg.Provider)
}

func InitLimiter(cfg RewardConfig, clk clock.Clock) *limiter.Limiter {
	return limiter.NewLimiter(limiter.Config{
		Enabled:  cfg.Enabled,
		Policies: cfg.Policies,
	}, clk)
}

func InitStatsStore(cfg RewardConfig, repo repository.DailyStatsRepo, clk clock.Clock, logger *zap.Logger) *stats.Store {
	return stats.NewStore(cfg.Player, repo, clk, logger)
}

func InitResolver(cfg RewardConfig, logger *zap.Logger) *reward.Resolver {
	return reward.NewResolver(cfg.Rules, cfg.DefaultReward, logger)
}

func InitRewardService(
	lc fx.Lifecycle,
	cfg RewardConfig,
	p provider.Provider,
	lim *limiter.Limiter,
	store *stats.Store,
	resolver *reward.Resolver,
	logger *zap.Logger,
) *reward.Service {
	svc := reward.NewService(cfg.Service, p, lim, store, resolver, logger)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			svc.Start()
			svc.Initialize(ctx, cfg.TestMode)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			svc.Stop(stopCtx)
			return nil
		},
	})
	return svc
}
