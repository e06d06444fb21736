package reward

import (
	"github.com/JrMarcco/jreward/internal/domain"
	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
)

// Resolver 根据 (Category, contextKey) 确定发放的奖励。
//
// 规则按配置顺序匹配，第一条命中的规则生效；无命中时返回默认奖励。
// 纯函数，可以用于界面预览，不影响限流状态。
type Resolver struct {
	rules    []domain.RewardRule
	index    map[uint64][]int
	fallback domain.RewardSpec
}

func (r *Resolver) Resolve(c domain.Category, contextKey string) domain.RewardSpec {
	for _, i := range r.index[ruleHash(c, contextKey)] {
		// 哈希冲突时以规则本身为准
		if r.rules[i].Matches(c, contextKey) {
			return r.rules[i].Reward
		}
	}
	return r.fallback
}

// Rules 返回规则副本。
func (r *Resolver) Rules() []domain.RewardRule {
	return append([]domain.RewardRule(nil), r.rules...)
}

func ruleHash(c domain.Category, contextKey string) uint64 {
	return xxhash.Sum64String(c.String() + "\x00" + contextKey)
}

// NewResolver 非法规则记录日志后跳过，非法默认奖励替换为 domain.DefaultReward()。
func NewResolver(rules []domain.RewardRule, fallback *domain.RewardSpec, logger *zap.Logger) *Resolver {
	r := &Resolver{
		rules:    make([]domain.RewardRule, 0, len(rules)),
		index:    make(map[uint64][]int, len(rules)),
		fallback: domain.DefaultReward(),
	}

	if fallback != nil {
		if err := fallback.Validate(); err != nil {
			logger.Warn("[jreward] invalid default reward, use built-in default", zap.Error(err))
		} else {
			r.fallback = *fallback
		}
	}

	for i, rule := range rules {
		if err := rule.Validate(); err != nil {
			logger.Warn("[jreward] skip invalid reward rule", zap.Int("index", i), zap.Error(err))
			continue
		}
		h := ruleHash(rule.Category, rule.ContextKey)
		r.index[h] = append(r.index[h], len(r.rules))
		r.rules = append(r.rules, rule)
	}
	return r
}
