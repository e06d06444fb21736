package ioc

import (
	"context"
	"errors"
	"net"
	"os"

	"github.com/JrMarcco/jreward/internal/api/console"
	grpcapi "github.com/JrMarcco/jreward/internal/api/grpc"
	"github.com/JrMarcco/jreward/internal/service/reward"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

var AppFxOpt = fx.Provide(
	InitApp,
)

var AppFxInvoke = fx.Invoke(
	AppLifecycle,
)

type App struct {
	grpcServer *grpc.Server
	health     *grpcapi.HealthServer
	driver     *console.Driver

	addr    string
	console bool

	shutdowner fx.Shutdowner
	logger     *zap.Logger
}

func InitApp(
	grpcServer *grpc.Server,
	health *grpcapi.HealthServer,
	svc *reward.Service,
	shutdowner fx.Shutdowner,
	logger *zap.Logger,
) *App {
	type config struct {
		Addr    string `mapstructure:"addr"`
		Console bool   `mapstructure:"console"`
	}
	cfg := &config{Addr: ":9091"}
	if err := viper.UnmarshalKey("app", cfg); err != nil {
		panic(err)
	}

	return &App{
		grpcServer: grpcServer,
		health:     health,
		driver:     console.NewDriver(svc, os.Stdin, os.Stdout, logger),
		addr:       cfg.Addr,
		console:    cfg.Console,
		shutdowner: shutdowner,
		logger:     logger,
	}
}

func AppLifecycle(lc fx.Lifecycle, app *App) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", app.addr)
			if err != nil {
				return err
			}

			// 启动 gRPC 服务器
			go func() {
				if serveErr := app.grpcServer.Serve(ln); serveErr != nil && !errors.Is(serveErr, grpc.ErrServerStopped) {
					app.logger.Error("[jreward] grpc server exited", zap.Error(serveErr))
				}
			}()
			app.logger.Info("[jreward] grpc server started", zap.String("addr", app.addr))

			if app.console {
				go app.runConsole()
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			app.health.Shutdown()
			// 优雅退出
			app.grpcServer.GracefulStop()
			return nil
		},
	})
}

// runConsole 输入结束后关闭整个应用。
func (app *App) runConsole() {
	if err := app.driver.Run(context.Background()); err != nil {
		app.logger.Error("[jreward] console exited", zap.Error(err))
	}
	if err := app.shutdowner.Shutdown(); err != nil {
		app.logger.Error("[jreward] failed to shutdown", zap.Error(err))
	}
}
