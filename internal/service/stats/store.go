package stats

import (
	"context"
	"maps"

	"github.com/JrMarcco/jreward/internal/domain"
	"github.com/JrMarcco/jreward/internal/pkg/clock"
	"github.com/JrMarcco/jreward/internal/repository"
	"go.uber.org/zap"
)

const DefaultKey = "default"

// Store 当日计数的持久化入口。
//
// 只保存当日计数与日期，session 计数与最近履约时间不落盘。
// 读写失败都不向上返回错误，读失败视为没有历史数据。
type Store struct {
	key    string
	repo   repository.DailyStatsRepo
	clock  clock.Clock
	logger *zap.Logger
}

// Load 读取当日计数。
//
// 存储的日期不是今天时丢弃旧数据并立即写回清零后的结果，
// 避免在下一次保存前进程崩溃导致旧计数复活。
func (s *Store) Load(ctx context.Context) map[domain.Category]int {
	today := s.today()

	stats, err := s.repo.Get(ctx, s.key)
	if err != nil {
		if !repository.IsNotFound(err) {
			s.logger.Warn("[jreward] failed to load daily stats, reset to zero", zap.String("key", s.key), zap.Error(err))
		}
		return map[domain.Category]int{}
	}

	if !stats.IsDate(today) {
		s.logger.Info(
			"[jreward] daily stats expired, reset to zero",
			zap.String("key", s.key),
			zap.String("stored_date", stats.Date),
			zap.String("today", today),
		)
		s.Save(ctx, map[domain.Category]int{}, today)
		return map[domain.Category]int{}
	}

	counts := make(map[domain.Category]int, len(stats.Counts))
	for c, cnt := range stats.Counts {
		if !c.Validate() || cnt < 0 {
			s.logger.Warn("[jreward] drop invalid daily stats entry", zap.String("category", c.String()), zap.Int("count", cnt))
			continue
		}
		counts[c] = cnt
	}
	return counts
}

// Save 覆盖写入当日计数。
func (s *Store) Save(ctx context.Context, counts map[domain.Category]int, today string) {
	snapshot := make(map[domain.Category]int, len(counts))
	maps.Copy(snapshot, counts)

	err := s.repo.Set(ctx, s.key, domain.DailyStats{
		Date:   today,
		Counts: snapshot,
	})
	if err != nil {
		s.logger.Error("[jreward] failed to save daily stats", zap.String("key", s.key), zap.String("date", today), zap.Error(err))
	}
}

// LoadStats 以 domain.DailyStats 形式返回今天的计数。
func (s *Store) LoadStats(ctx context.Context) domain.DailyStats {
	return domain.DailyStats{
		Date:   s.today(),
		Counts: s.Load(ctx),
	}
}

// SaveStats 保存 domain.DailyStats 快照。
func (s *Store) SaveStats(ctx context.Context, stats domain.DailyStats) {
	s.Save(ctx, stats.Counts, stats.Date)
}

func (s *Store) today() string {
	return domain.DateOf(s.clock.Now())
}

func NewStore(key string, repo repository.DailyStatsRepo, clk clock.Clock, logger *zap.Logger) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{
		key:    key,
		repo:   repo,
		clock:  clk,
		logger: logger,
	}
}
