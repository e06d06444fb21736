package retry

import (
	"fmt"
	"time"

	"github.com/JrMarcco/easy-kit/retry"
	"github.com/JrMarcco/jreward/internal/errs"
)

const (
	TypeFixedInterval      = "fixed_interval"
	TypeExponentialBackoff = "exponential_backoff"
)

type Config struct {
	Type               string                    `json:"type" mapstructure:"type"`
	FixedInterval      *FixedIntervalConfig      `json:"fixed_interval" mapstructure:"fixed_interval"`
	ExponentialBackoff *ExponentialBackoffConfig `json:"exponential_backoff" mapstructure:"exponential_backoff"`
}

type ExponentialBackoffConfig struct {
	InitInterval time.Duration `json:"init_interval" mapstructure:"init_interval"`
	MaxInterval  time.Duration `json:"max_interval" mapstructure:"max_interval"`
	MaxTimes     int32         `json:"max_times" mapstructure:"max_times"`
}

type FixedIntervalConfig struct {
	Interval time.Duration `json:"interval" mapstructure:"interval"`
	MaxTimes int32         `json:"max_times" mapstructure:"max_times"`
}

// NewRetryStrategy 根据配置创建重试策略，类型与参数不匹配时返回错误。
//
// max_times 必须为正数，不允许无限重试。
// 出错时返回的 Strategy 一定是 nil 接口。
func NewRetryStrategy(cfg Config) (retry.Strategy, error) {
	switch cfg.Type {
	case TypeFixedInterval:
		if cfg.FixedInterval == nil {
			return nil, fmt.Errorf("%w: missing fixed interval config", errs.ErrInvalidParam)
		}
		if cfg.FixedInterval.MaxTimes <= 0 {
			return nil, fmt.Errorf("%w: max_times must be positive", errs.ErrInvalidParam)
		}
		s, err := retry.NewFixedIntervalStrategy(cfg.FixedInterval.Interval, cfg.FixedInterval.MaxTimes)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errs.ErrInvalidParam, err)
		}
		return s, nil
	case TypeExponentialBackoff:
		if cfg.ExponentialBackoff == nil {
			return nil, fmt.Errorf("%w: missing exponential backoff config", errs.ErrInvalidParam)
		}
		if cfg.ExponentialBackoff.MaxTimes <= 0 {
			return nil, fmt.Errorf("%w: max_times must be positive", errs.ErrInvalidParam)
		}
		s, err := retry.NewExponentialBackoffStrategy(
			cfg.ExponentialBackoff.InitInterval,
			cfg.ExponentialBackoff.MaxInterval,
			cfg.ExponentialBackoff.MaxTimes,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errs.ErrInvalidParam, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: unknown retry strategy type: %s", errs.ErrInvalidParam, cfg.Type)
	}
}
