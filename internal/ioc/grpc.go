package ioc

import (
	"context"

	grpcapi "github.com/JrMarcco/jreward/internal/api/grpc"
	"github.com/JrMarcco/jreward/internal/api/grpc/interceptor/log"
	"github.com/JrMarcco/jreward/internal/service/reward"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

var GrpcFxOpt = fx.Provide(
	InitHealthServer,
	InitGrpcServer,
)

// InitHealthServer 在构造阶段订阅，保证不会错过 provider_ready。
func InitHealthServer(svc *reward.Service, logger *zap.Logger) *grpcapi.HealthServer {
	hs := grpcapi.NewHealthServer(logger)
	svc.Subscribe(hs.OnEvent)
	return hs
}

func InitGrpcServer(hs *grpcapi.HealthServer, logger *zap.Logger) *grpc.Server {
	grpcSvr := grpc.NewServer(
		// 注册拦截器
		grpc.UnaryInterceptor(InterceptorOf(
			log.NewBuilder(logger).Build(),
		)),
	)
	healthpb.RegisterHealthServer(grpcSvr, hs)
	return grpcSvr
}

// InterceptorOf 自定义拦截器链，grpc 官方只允许一次 grpc.UnaryInterceptor 调用
func InterceptorOf(interceptors ...grpc.UnaryServerInterceptor) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		chained := handler
		for i := len(interceptors) - 1; i >= 0; i-- {
			curr, next := interceptors[i], chained
			chained = func(ctx context.Context, req any) (any, error) {
				return curr(ctx, req, info, next)
			}
		}
		return chained(ctx, req)
	}
}
