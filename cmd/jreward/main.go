package main

import (
	"github.com/JrMarcco/jreward/internal/ioc"
	"github.com/caarlos0/env/v11"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// bootEnv 启动参数的环境变量默认值，命令行参数优先。
type bootEnv struct {
	Config  string `env:"JREWARD_CONFIG" envDefault:"etc/config.yaml"`
	Profile string `env:"JREWARD_PROFILE"`
}

func main() {
	initViper()

	fx.New(
		// 初始化 zap.Logger
		ioc.LoggerFxOpt,

		// 初始化 Repo
		ioc.RepoFxOpt,

		// 初始化 Service
		ioc.ServiceFxOpt,

		// 初始化 grpc.Server
		ioc.GrpcFxOpt,

		// 初始化 ioc.App
		ioc.AppFxOpt,

		fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: logger}
		}),

		// 实际运行方法，即调用 ioc.AppLifecycle 方法
		ioc.AppFxInvoke,
		// 确保日志缓冲区被刷新
		ioc.LoggerFxInvoke,
	).Run()
}

// initViper 初始化 viper
func initViper() {
	var be bootEnv
	if err := env.Parse(&be); err != nil {
		panic(err)
	}

	configFile := pflag.String("config", be.Config, "配置文件路径")
	pflag.Parse()

	viper.SetConfigFile(*configFile)
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		panic(err)
	}

	// 环境变量覆盖配置文件中的 profile
	if be.Profile != "" {
		viper.Set("profile.env", be.Profile)
	}
}
