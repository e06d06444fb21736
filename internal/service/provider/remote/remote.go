package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	easyretry "github.com/JrMarcco/easy-kit/retry"
	"github.com/JrMarcco/jreward/internal/domain"
	"github.com/JrMarcco/jreward/internal/errs"
	"github.com/JrMarcco/jreward/internal/pkg/bitring"
	"github.com/JrMarcco/jreward/internal/pkg/retry"
	"github.com/JrMarcco/jreward/internal/service/provider"
	"github.com/JrMarcco/jreward/internal/service/provider/stub"
	"go.uber.org/zap"
)

const (
	Name = "remote"

	initPath    = "/v1/init"
	fulfillPath = "/v1/fulfill"

	defaultTimeout     = 5 * time.Second
	defaultOpenTimeout = 30 * time.Second
)

type Config struct {
	Endpoint string        `mapstructure:"endpoint"`
	AppId    string        `mapstructure:"app_id"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Retry    retry.Config  `mapstructure:"retry"`
	Breaker  BreakerConfig `mapstructure:"breaker"`
}

// BreakerConfig 履约失败熔断配置，熔断期间所有类别报告未就绪。
type BreakerConfig struct {
	WindowSize  int           `mapstructure:"window_size"`
	Consecutive int           `mapstructure:"consecutive"`
	Rate        float64       `mapstructure:"rate"`
	OpenTimeout time.Duration `mapstructure:"open_timeout"`
}

type initReq struct {
	AppId    string `json:"app_id"`
	TestMode bool   `json:"test_mode"`
}

type initResp struct {
	Inventory []domain.Category `json:"inventory"`
}

type fulfillReq struct {
	AppId      string          `json:"app_id"`
	RequestId  string          `json:"request_id"`
	Category   domain.Category `json:"category"`
	ContextKey string          `json:"context"`
}

type fulfillResp struct {
	Result string `json:"result"`
	Reason string `json:"reason"`
}

var _ provider.Provider = (*Provider)(nil)

// Provider 通过 http 调用聚合网关完成履约。
//
// 初始化按重试策略重试，重试耗尽后降级为 stub 行为，同样发出 Ready。
// 履约请求各自在后台 goroutine 中发送，结果可能乱序返回，以 request id 区分。
// 网络错误以 Rejected 返回。
// 失败过多时熔断，熔断期间 IsReady 返回 false，超时后清空窗口重新探测。
type Provider struct {
	mu sync.Mutex

	cfg    Config
	client *http.Client

	ctx       context.Context
	sink      provider.Sink
	inventory map[domain.Category]bool
	degraded  bool
	fallback  *stub.Provider

	failures  *bitring.BitRing
	openUntil time.Time

	logger *zap.Logger
}

func (p *Provider) Name() string {
	return Name
}

func (p *Provider) Initialize(ctx context.Context, testMode bool, sink provider.Sink) {
	p.mu.Lock()
	if p.sink != nil {
		p.mu.Unlock()
		p.logger.Warn("[jreward] remote provider already initialized")
		return
	}
	p.ctx = context.WithoutCancel(ctx)
	p.sink = sink
	p.mu.Unlock()

	go p.initialize(p.ctx, testMode, sink)
}

func (p *Provider) initialize(ctx context.Context, testMode bool, sink provider.Sink) {
	strategy, err := retry.NewRetryStrategy(p.cfg.Retry)
	if err != nil {
		p.logger.Warn("[jreward] invalid retry config for remote provider, retry disabled", zap.Error(err))
	}

	retried := int32(0)
	for {
		inventory, initErr := p.postInit(ctx, testMode)
		if initErr == nil {
			p.mu.Lock()
			for _, c := range inventory {
				p.inventory[c] = true
			}
			p.mu.Unlock()

			p.logger.Info("[jreward] remote provider initialized", zap.Any("inventory", inventory))
			sink.Emit(domain.Ready())
			return
		}

		p.logger.Warn("[jreward] remote provider init failed", zap.Int32("retried", retried), zap.Error(initErr))
		// easy-kit 的重试次数从 1 开始计
		interval, ok := p.nextInterval(strategy, retried+1)
		if !ok || !p.wait(ctx, interval) {
			p.degrade(ctx, testMode, sink)
			return
		}
		retried++
	}
}

func (p *Provider) nextInterval(strategy easyretry.Strategy, retried int32) (time.Duration, bool) {
	if strategy == nil {
		return 0, false
	}
	return strategy.NextWithRetried(retried)
}

func (p *Provider) wait(ctx context.Context, interval time.Duration) bool {
	timer := time.NewTimer(interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// degrade 降级为 stub 行为，由 stub 发出 Ready。
func (p *Provider) degrade(ctx context.Context, testMode bool, sink provider.Sink) {
	p.mu.Lock()
	p.degraded = true
	p.mu.Unlock()

	p.logger.Error("[jreward] remote provider unavailable, degrade to stub", zap.Error(errs.ErrProviderInitFailed))
	p.fallback.Initialize(ctx, testMode, sink)
}

func (p *Provider) IsReady(c domain.Category) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.degraded {
		return p.fallback.IsReady(c)
	}
	if !p.openUntil.IsZero() {
		if time.Now().Before(p.openUntil) {
			return false
		}
		p.openUntil = time.Time{}
		p.failures.Reset()
		p.logger.Info("[jreward] remote provider breaker half open")
	}
	return p.inventory[c]
}

// Open 是否处于熔断中。
func (p *Provider) Open() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.openUntil.IsZero() && time.Now().Before(p.openUntil)
}

func (p *Provider) record(failed bool) {
	p.failures.Record(failed)
	if !failed || !p.failures.Tripped() {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.openUntil.IsZero() {
		return
	}
	p.openUntil = time.Now().Add(p.cfg.Breaker.OpenTimeout)
	p.logger.Warn(
		"[jreward] remote provider breaker open",
		zap.Int("failures", p.failures.Failures()),
		zap.Duration("open_timeout", p.cfg.Breaker.OpenTimeout),
	)
}

func (p *Provider) RequestFulfillment(c domain.Category, contextKey string, requestId string) {
	p.mu.Lock()
	degraded := p.degraded
	ctx := p.ctx
	sink := p.sink
	p.mu.Unlock()

	if degraded {
		p.fallback.RequestFulfillment(c, contextKey, requestId)
		return
	}
	if sink == nil {
		p.logger.Warn("[jreward] request before initialization dropped", zap.String("category", c.String()))
		return
	}

	go func() {
		sink.Emit(p.fulfill(ctx, c, contextKey, requestId).WithRequest(requestId))
	}()
}

func (p *Provider) Degraded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.degraded
}

func (p *Provider) fulfill(ctx context.Context, c domain.Category, contextKey string, requestId string) domain.Outcome {
	var resp fulfillResp
	err := p.post(ctx, fulfillPath, fulfillReq{
		AppId:      p.cfg.AppId,
		RequestId:  requestId,
		Category:   c,
		ContextKey: contextKey,
	}, &resp)
	p.record(err != nil)
	if err != nil {
		p.logger.Error(
			"[jreward] remote fulfillment failed",
			zap.String("category", c.String()),
			zap.String("request_id", requestId),
			zap.Error(err),
		)
		return domain.Rejected(c, err.Error())
	}

	switch strings.ToLower(resp.Result) {
	case domain.OutcomeFulfilled.String():
		return domain.Fulfilled(c)
	case domain.OutcomeDismissed.String():
		return domain.Dismissed(c)
	default:
		reason := resp.Reason
		if reason == "" {
			reason = fmt.Sprintf("unexpected result %q", resp.Result)
		}
		return domain.Rejected(c, reason)
	}
}

func (p *Provider) postInit(ctx context.Context, testMode bool) ([]domain.Category, error) {
	var resp initResp
	if err := p.post(ctx, initPath, initReq{AppId: p.cfg.AppId, TestMode: testMode}, &resp); err != nil {
		return nil, err
	}

	inventory := make([]domain.Category, 0, len(resp.Inventory))
	for _, c := range resp.Inventory {
		if c.Validate() {
			inventory = append(inventory, c)
		}
	}
	return inventory, nil
}

func (p *Provider) post(ctx context.Context, path string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrProviderRequestFail, err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, strings.TrimRight(p.cfg.Endpoint, "/")+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrProviderRequestFail, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrProviderRequestFail, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status code = %d", errs.ErrProviderRequestFail, resp.StatusCode)
	}
	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %w", errs.ErrProviderRequestFail, err)
	}
	return nil
}

func NewProvider(cfg Config, logger *zap.Logger) *Provider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Breaker.OpenTimeout <= 0 {
		cfg.Breaker.OpenTimeout = defaultOpenTimeout
	}
	return &Provider{
		cfg:       cfg,
		client:    &http.Client{},
		inventory: make(map[domain.Category]bool),
		fallback:  stub.NewProvider(logger, stub.WithName(Name+"_fallback")),
		failures:  bitring.NewBitRing(cfg.Breaker.WindowSize, cfg.Breaker.Consecutive, cfg.Breaker.Rate),
		logger:    logger,
	}
}
