package registry

import (
	"strings"

	"github.com/JrMarcco/easy-kit/xsync"
	"github.com/JrMarcco/jreward/internal/service/provider"
	"github.com/JrMarcco/jreward/internal/service/provider/remote"
	"github.com/JrMarcco/jreward/internal/service/provider/stub"
	"go.uber.org/zap"
)

// Builder 创建 provider 实例。
type Builder func() provider.Provider

// Registry 将配置中的后端标识映射为具体的 provider。
type Registry struct {
	builders xsync.Map[string, Builder]
	logger   *zap.Logger
}

func (r *Registry) Register(id string, builder Builder) {
	r.builders.Store(r.normalize(id), builder)
}

// Create 总是返回一个可用的 provider，未知标识回落到 stub。
func (r *Registry) Create(id string) provider.Provider {
	if builder, ok := r.builders.Load(r.normalize(id)); ok {
		return builder()
	}

	r.logger.Warn("[jreward] unknown provider id, fallback to stub", zap.String("provider_id", id))
	return stub.NewProvider(r.logger)
}

func (r *Registry) normalize(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// NewRegistry 注册内置的 noop / stub / remote 三种 provider。
func NewRegistry(remoteCfg remote.Config, logger *zap.Logger) *Registry {
	r := &Registry{
		logger: logger,
	}

	stubBuilder := func() provider.Provider {
		return stub.NewProvider(logger)
	}
	r.Register(stub.Name, stubBuilder)
	r.Register("stub", stubBuilder)
	r.Register(remote.Name, func() provider.Provider {
		return remote.NewProvider(remoteCfg, logger)
	})
	return r
}
