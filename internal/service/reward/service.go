package reward

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JrMarcco/jreward/internal/domain"
	"github.com/JrMarcco/jreward/internal/errs"
	"github.com/JrMarcco/jreward/internal/service/limiter"
	"github.com/JrMarcco/jreward/internal/service/provider"
	"github.com/JrMarcco/jreward/internal/service/stats"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultQueueSize      = 64
	DefaultPersistTimeout = 3 * time.Second
)

type Config struct {
	QueueSize      int           `mapstructure:"queue_size"`
	PersistTimeout time.Duration `mapstructure:"persist_timeout"`
}

// Listener 订阅奖励服务的通知。
//
// 同步拒绝在调用方 goroutine 中回调，provider 结果在 loop goroutine 中回调，
// 因此同一个 Listener 可能被并发调用，实现方需要自行保证并发安全。
type Listener func(ev domain.Event)

type pendingReq struct {
	category   domain.Category
	contextKey string
}

type subscriber struct {
	id       uint64
	listener Listener
}

// Service 对外唯一入口，组合 provider、限流器、持久化与奖励解析。
//
// 不可用时的拒绝在调用方 goroutine 中同步发布；
// provider 的结果进入队列，由 loop goroutine 处理后发布。
// 进程内只允许存在一个实例，由 ioc 保证。
type Service struct {
	provider provider.Provider
	limiter  *limiter.Limiter
	store    *stats.Store
	resolver *Resolver

	ready    atomic.Bool
	initOnce sync.Once

	mu      sync.Mutex
	pending map[string]pendingReq

	// 保证写入存储的计数不会比已写入的旧
	persistMu sync.Mutex

	subMu       sync.RWMutex
	subscribers []subscriber
	nextSubId   uint64

	outcomes       chan domain.Outcome
	stopCh         chan struct{}
	doneCh         chan struct{}
	startOnce      sync.Once
	stopOnce       sync.Once
	persistTimeout time.Duration

	logger *zap.Logger
}

// Start 启动结果处理循环。
func (s *Service) Start() {
	s.startOnce.Do(func() {
		go s.loop()
	})
}

// Stop 停止结果处理循环并保存当日计数，可重复调用。
func (s *Service) Stop(ctx context.Context) {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	// 未启动过时不存在 loop，直接关闭 doneCh
	s.startOnce.Do(func() {
		close(s.doneCh)
	})

	select {
	case <-s.doneCh:
	case <-ctx.Done():
		s.logger.Warn("[jreward] wait outcome loop exit timeout", zap.Error(ctx.Err()))
	}
	s.Suspend(ctx)
}

// Initialize 初始化 provider，Ready 被处理之前所有类别都不可用。
func (s *Service) Initialize(ctx context.Context, testMode bool) {
	s.initOnce.Do(func() {
		s.logger.Info(
			"[jreward] initialize provider",
			zap.String("provider", s.provider.Name()),
			zap.Bool("test_mode", testMode),
		)
		s.provider.Initialize(ctx, testMode, provider.SinkFunc(s.emit))
	})
}

func (s *Service) IsAvailable(c domain.Category) bool {
	return s.Status(c).IsAvailable()
}

func (s *Service) Status(c domain.Category) domain.Status {
	if !c.Validate() {
		return domain.StatusDisabled
	}
	return s.limiter.Status(c, s.probe())
}

// RequestFulfillment 请求履约并返回请求 id。
//
// 不可用时同步发布 rejected 通知并返回空字符串，不消耗额度。
// 可用时先计数并持久化，再交给 provider。
func (s *Service) RequestFulfillment(c domain.Category, contextKey string) string {
	if !c.Validate() {
		s.logger.Warn(
			"[jreward] fulfillment refused",
			zap.String("category", c.String()),
			zap.Error(errs.ErrInvalidCategory),
		)
		s.reject(c)
		return ""
	}

	status, ok := s.limiter.Acquire(c, s.probe())
	if !ok {
		s.logger.Debug(
			"[jreward] fulfillment refused",
			zap.String("category", c.String()),
			zap.String("status", status.String()),
		)
		s.reject(c)
		return ""
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.pending[id] = pendingReq{category: c, contextKey: contextKey}
	s.mu.Unlock()

	s.persist(context.Background())

	s.logger.Debug(
		"[jreward] fulfillment requested",
		zap.String("request_id", id),
		zap.String("category", c.String()),
		zap.String("context", contextKey),
	)
	s.provider.RequestFulfillment(c, contextKey, id)
	return id
}

func (s *Service) TimeUntilAvailable(c domain.Category) time.Duration {
	return s.limiter.TimeUntilAvailable(c)
}

func (s *Service) UsedToday(c domain.Category) int {
	return s.limiter.UsedToday(c)
}

// RemainingToday 当日剩余次数，不限时返回 domain.Unlimited。
func (s *Service) RemainingToday(c domain.Category) int {
	return s.limiter.RemainingToday(c)
}

// Preview 预览奖励，不影响限流状态。
func (s *Service) Preview(c domain.Category, contextKey string) domain.RewardSpec {
	return s.resolver.Resolve(c, contextKey)
}

// Pending 尚未收到 provider 结果的请求数。
func (s *Service) Pending(c domain.Category) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cnt := 0
	for _, req := range s.pending {
		if req.category == c {
			cnt++
		}
	}
	return cnt
}

func (s *Service) Ready() bool {
	return s.ready.Load()
}

// Subscribe 注册监听，返回取消函数，调用时机见 Listener。
func (s *Service) Subscribe(l Listener) func() {
	s.subMu.Lock()
	s.nextSubId++
	id := s.nextSubId
	s.subscribers = append(s.subscribers, subscriber{id: id, listener: l})
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			for i, sub := range s.subscribers {
				if sub.id == id {
					s.subscribers = append(s.subscribers[:i:i], s.subscribers[i+1:]...)
					return
				}
			}
		})
	}
}

// Suspend 宿主进入后台时调用，保存当日计数。
func (s *Service) Suspend(ctx context.Context) {
	s.persist(ctx)
}

func (s *Service) probe() limiter.Probe {
	return limiter.ProbeFunc(func(c domain.Category) bool {
		return s.ready.Load() && s.provider.IsReady(c)
	})
}

func (s *Service) reject(c domain.Category) {
	s.publish(domain.Event{
		Kind:     domain.EventRejected,
		Category: c,
		Reason:   errs.ErrNotAvailable.Error(),
	})
}

// persist 串行写入，快照在锁内获取，后写入的一定不旧于先写入的。
func (s *Service) persist(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.persistTimeout)
	defer cancel()

	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	s.store.SaveStats(ctx, s.limiter.Snapshot())
}

// emit provider 结果入队，服务停止后丢弃。
func (s *Service) emit(o domain.Outcome) {
	select {
	case s.outcomes <- o:
	case <-s.stopCh:
		s.logger.Warn("[jreward] service stopped, drop outcome", zap.String("kind", o.Kind.String()))
	}
}

func (s *Service) loop() {
	defer close(s.doneCh)

	for {
		select {
		case o := <-s.outcomes:
			s.handle(o)
		case <-s.stopCh:
			return
		}
	}
}

func (s *Service) handle(o domain.Outcome) {
	if o.Kind == domain.OutcomeReady {
		if s.ready.Swap(true) {
			s.logger.Warn("[jreward] duplicated provider ready ignored", zap.String("provider", s.provider.Name()))
			return
		}
		s.logger.Info("[jreward] provider ready", zap.String("provider", s.provider.Name()))
		s.publish(domain.Event{Kind: domain.EventProviderReady})
		return
	}

	switch o.Kind {
	case domain.OutcomeFulfilled, domain.OutcomeRejected, domain.OutcomeDismissed:
	default:
		s.logger.Error("[jreward] unknown provider outcome", zap.String("kind", o.Kind.String()))
		return
	}

	req, ok := s.popPending(o)
	if !ok {
		// 没有对应请求的结果一律忽略
		s.logger.Warn(
			"[jreward] ignore unmatched provider outcome",
			zap.String("kind", o.Kind.String()),
			zap.String("category", o.Category.String()),
			zap.String("request_id", o.RequestId),
		)
		return
	}

	ev := domain.Event{
		Category:  o.Category,
		RequestId: o.RequestId,
	}
	switch o.Kind {
	case domain.OutcomeFulfilled:
		// 只在确认履约后解析奖励
		reward := s.resolver.Resolve(o.Category, req.contextKey)
		ev.Kind = domain.EventFulfilled
		ev.Reward = &reward
	case domain.OutcomeRejected:
		ev.Kind = domain.EventRejected
		ev.Reason = o.Reason
	case domain.OutcomeDismissed:
		ev.Kind = domain.EventDismissed
	}

	s.logger.Debug(
		"[jreward] provider outcome",
		zap.String("request_id", o.RequestId),
		zap.String("kind", o.Kind.String()),
		zap.String("category", o.Category.String()),
	)
	s.publish(ev)
}

// popPending 按 request id 取出请求，类别不一致的结果视为不匹配。
func (s *Service) popPending(o domain.Outcome) (pendingReq, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.pending[o.RequestId]
	if !ok || req.category != o.Category {
		return pendingReq{}, false
	}
	delete(s.pending, o.RequestId)
	return req, true
}

func (s *Service) publish(ev domain.Event) {
	s.subMu.RLock()
	subs := make([]subscriber, len(s.subscribers))
	copy(subs, s.subscribers)
	s.subMu.RUnlock()

	for _, sub := range subs {
		sub.listener(ev)
	}
}

// NewService 创建时从持久化存储恢复当日计数。
func NewService(
	cfg Config,
	p provider.Provider,
	lim *limiter.Limiter,
	store *stats.Store,
	resolver *Resolver,
	logger *zap.Logger,
) *Service {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = DefaultPersistTimeout
	}

	s := &Service{
		provider:       p,
		limiter:        lim,
		store:          store,
		resolver:       resolver,
		pending:        make(map[string]pendingReq),
		outcomes:       make(chan domain.Outcome, cfg.QueueSize),
		stopCh:         make(chan struct{}),
		doneCh:         make(chan struct{}),
		persistTimeout: cfg.PersistTimeout,
		logger:         logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.PersistTimeout)
	defer cancel()
	lim.Restore(store.LoadStats(ctx))
	return s
}
