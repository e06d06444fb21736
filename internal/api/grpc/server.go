package grpc

import (
	"github.com/JrMarcco/jreward/internal/domain"
	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ProviderService provider 就绪状态对应的健康检查服务名。
const ProviderService = "jreward.provider"

// HealthServer 标准健康检查服务。
//
// 整体服务启动即 SERVING，jreward.provider 在收到 provider_ready 之前为 NOT_SERVING。
type HealthServer struct {
	*health.Server

	logger *zap.Logger
}

// OnEvent 订阅奖励服务通知。
func (s *HealthServer) OnEvent(ev domain.Event) {
	if ev.Kind != domain.EventProviderReady {
		return
	}
	s.SetServingStatus(ProviderService, healthpb.HealthCheckResponse_SERVING)
	s.logger.Info("[jreward] provider health status changed", zap.String("status", healthpb.HealthCheckResponse_SERVING.String()))
}

func NewHealthServer(logger *zap.Logger) *HealthServer {
	s := health.NewServer()
	s.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.SetServingStatus(ProviderService, healthpb.HealthCheckResponse_NOT_SERVING)
	return &HealthServer{
		Server: s,
		logger: logger,
	}
}
