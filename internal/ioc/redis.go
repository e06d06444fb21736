package ioc

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
)

// initRedis 创建 redis 客户端并 ping 一次，不可用时返回错误由调用方降级。
func initRedis(ctx context.Context) (*redis.Client, error) {
	type config struct {
		Addr     string        `mapstructure:"addr"`
		Password string        `mapstructure:"password"`
		DB       int           `mapstructure:"db"`
		Timeout  time.Duration `mapstructure:"timeout"`
	}
	cfg := &config{}
	if err := viper.UnmarshalKey("redis", cfg); err != nil {
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.Timeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
