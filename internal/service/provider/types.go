package provider

import (
	"context"

	"github.com/JrMarcco/jreward/internal/domain"
)

// Sink provider 结果信号的接收方。
type Sink interface {
	Emit(o domain.Outcome)
}

// SinkFunc 函数形式的 Sink。
type SinkFunc func(o domain.Outcome)

func (f SinkFunc) Emit(o domain.Outcome) {
	f(o)
}

//go:generate mockgen -source=./types.go -destination=./mock/provider.mock.go -package=providermock -typed Provider

// Provider 履约后端接口，与具体厂商无关。
//
// Initialize 必须最终且只发出一次 domain.Ready()，初始化失败时降级后同样要发出。
// IsReady 为同步、无副作用的轻量探测。
// RequestFulfillment 只负责触发，结果通过 Sink 异步返回，归属同一个 Category 并原样带回 requestId。
// 多个请求的结果可以乱序返回。
// provider 不读写限流计数与持久化数据。
type Provider interface {
	Name() string
	Initialize(ctx context.Context, testMode bool, sink Sink)
	IsReady(c domain.Category) bool
	RequestFulfillment(c domain.Category, contextKey string, requestId string)
}
