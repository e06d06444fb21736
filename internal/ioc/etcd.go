package ioc

import (
	"context"
	"time"

	"github.com/spf13/viper"
	clientv3 "go.etcd.io/etcd/client/v3"
)

const defaultEtcdDialTimeout = 3 * time.Second

// initEtcdClient 创建 etcd 客户端并检查第一个节点状态。
func initEtcdClient(ctx context.Context) (*clientv3.Client, error) {
	type config struct {
		Username    string        `mapstructure:"username"`
		Password    string        `mapstructure:"password"`
		Endpoints   []string      `mapstructure:"endpoints"`
		DialTimeout time.Duration `mapstructure:"dial_timeout"`
	}
	cfg := &config{}
	if err := viper.UnmarshalKey("etcd", cfg); err != nil {
		return nil, err
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultEtcdDialTimeout
	}

	client, err := clientv3.New(clientv3.Config{
		Username:    cfg.Username,
		Password:    cfg.Password,
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
	})
	if err != nil {
		return nil, err
	}
	if len(cfg.Endpoints) > 0 {
		if _, err = client.Status(ctx, cfg.Endpoints[0]); err != nil {
			_ = client.Close()
			return nil, err
		}
	}
	return client, nil
}
