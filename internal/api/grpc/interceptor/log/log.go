package log

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// Builder 请求日志拦截器。
type Builder struct {
	logger *zap.Logger
}

func (b *Builder) Build() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("code", status.Code(err).String()),
		}
		if err != nil {
			b.logger.Warn("[jreward] grpc request failed", append(fields, zap.Error(err))...)
			return resp, err
		}
		b.logger.Debug("[jreward] grpc request", fields...)
		return resp, nil
	}
}

func NewBuilder(logger *zap.Logger) *Builder {
	return &Builder{logger: logger}
}
