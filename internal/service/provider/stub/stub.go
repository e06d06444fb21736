package stub

import (
	"context"
	"slices"
	"sync"

	"github.com/JrMarcco/jreward/internal/domain"
	"github.com/JrMarcco/jreward/internal/service/provider"
	"go.uber.org/zap"
)

const Name = "noop"

// Mode 模拟的履约结果。
type Mode string

const (
	ModeFulfill Mode = "fulfill"
	ModeDismiss Mode = "dismiss"
	ModeReject  Mode = "reject"
	// ModeHold 不立即返回结果，等待 Release。
	ModeHold Mode = "hold"
)

const rejectReason = "simulated rejection"

var _ provider.Provider = (*Provider)(nil)

// Provider 内置的空实现 / 模拟实现，任何情况下都满足 provider 约定，是默认兜底。
//
// Initialize 同步发出 Ready，默认所有类别就绪并立即履约成功。
type Provider struct {
	mu sync.Mutex

	name     string
	mode     Mode
	sink     provider.Sink
	notReady map[domain.Category]bool
	held     map[domain.Category][]string

	logger *zap.Logger
}

func (p *Provider) Name() string {
	return p.name
}

func (p *Provider) Initialize(_ context.Context, testMode bool, sink provider.Sink) {
	p.mu.Lock()
	if p.sink != nil {
		p.mu.Unlock()
		p.logger.Warn("[jreward] stub provider already initialized", zap.String("provider", p.name))
		return
	}
	p.sink = sink
	p.mu.Unlock()

	p.logger.Info("[jreward] stub provider initialized", zap.String("provider", p.name), zap.Bool("test_mode", testMode))
	sink.Emit(domain.Ready())
}

func (p *Provider) IsReady(c domain.Category) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sink != nil && !p.notReady[c]
}

func (p *Provider) RequestFulfillment(c domain.Category, contextKey string, requestId string) {
	p.mu.Lock()
	sink := p.sink
	mode := p.mode
	if sink != nil && mode == ModeHold {
		p.held[c] = append(p.held[c], requestId)
	}
	p.mu.Unlock()

	if sink == nil {
		p.logger.Warn("[jreward] request before initialization dropped", zap.String("category", c.String()))
		return
	}

	p.logger.Debug(
		"[jreward] stub fulfillment requested",
		zap.String("category", c.String()),
		zap.String("context", contextKey),
		zap.String("request_id", requestId),
		zap.String("mode", string(mode)),
	)
	if mode == ModeHold {
		return
	}
	sink.Emit(outcomeOf(c, mode).WithRequest(requestId))
}

// Release 按请求顺序释放最早挂起的请求并发出指定结果，没有挂起请求时返回 false。
func (p *Provider) Release(c domain.Category, kind domain.OutcomeKind) bool {
	p.mu.Lock()
	if len(p.held[c]) == 0 || p.sink == nil {
		p.mu.Unlock()
		return false
	}
	requestId := p.held[c][0]
	p.held[c] = p.held[c][1:]
	sink := p.sink
	p.mu.Unlock()

	sink.Emit(outcomeOf(c, modeOf(kind)).WithRequest(requestId))
	return true
}

// ReleaseRequest 释放指定 id 的挂起请求，用于模拟乱序返回。
func (p *Provider) ReleaseRequest(c domain.Category, requestId string, kind domain.OutcomeKind) bool {
	p.mu.Lock()
	idx := slices.Index(p.held[c], requestId)
	if idx < 0 || p.sink == nil {
		p.mu.Unlock()
		return false
	}
	p.held[c] = slices.Delete(p.held[c], idx, idx+1)
	sink := p.sink
	p.mu.Unlock()

	sink.Emit(outcomeOf(c, modeOf(kind)).WithRequest(requestId))
	return true
}

func modeOf(kind domain.OutcomeKind) Mode {
	switch kind {
	case domain.OutcomeDismissed:
		return ModeDismiss
	case domain.OutcomeRejected:
		return ModeReject
	default:
		return ModeFulfill
	}
}

func outcomeOf(c domain.Category, mode Mode) domain.Outcome {
	switch mode {
	case ModeDismiss:
		return domain.Dismissed(c)
	case ModeReject:
		return domain.Rejected(c, rejectReason)
	default:
		return domain.Fulfilled(c)
	}
}

// Emit 直接发出一个结果，用于模拟厂商的迟到回调。
func (p *Provider) Emit(o domain.Outcome) {
	p.mu.Lock()
	sink := p.sink
	p.mu.Unlock()
	if sink != nil {
		sink.Emit(o)
	}
}

func (p *Provider) Held(c domain.Category) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.held[c])
}

func (p *Provider) SetReady(c domain.Category, ready bool) {
	p.mu.Lock()
	p.notReady[c] = !ready
	p.mu.Unlock()
}

type Option func(p *Provider)

func WithMode(m Mode) Option {
	return func(p *Provider) {
		p.mode = m
	}
}

func WithName(name string) Option {
	return func(p *Provider) {
		p.name = name
	}
}

func NewProvider(logger *zap.Logger, opts ...Option) *Provider {
	p := &Provider{
		name:     Name,
		mode:     ModeFulfill,
		notReady: make(map[domain.Category]bool),
		held:     make(map[domain.Category][]string),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}
