package domain

import (
	"fmt"

	"github.com/JrMarcco/jreward/internal/errs"
)

// RewardKind 奖励类型
type RewardKind string

const (
	RewardKindGold   RewardKind = "gold"
	RewardKindGems   RewardKind = "gems"
	RewardKindEnergy RewardKind = "energy"
	RewardKindItem   RewardKind = "item"
)

func (k RewardKind) String() string {
	return string(k)
}

func (k RewardKind) Validate() bool {
	return k == RewardKindGold || k == RewardKindGems || k == RewardKindEnergy || k == RewardKindItem
}

// RewardSpec 奖励内容，返回后不可修改。
type RewardSpec struct {
	Kind        RewardKind `json:"kind" mapstructure:"kind"`
	Quantity    int        `json:"quantity" mapstructure:"quantity"`
	ItemId      string     `json:"item_id" mapstructure:"item_id"`
	Description string     `json:"description" mapstructure:"description"`
}

func (r RewardSpec) Validate() error {
	if !r.Kind.Validate() {
		return fmt.Errorf("%w: invalid reward kind %q", errs.ErrInvalidParam, r.Kind)
	}
	if r.Quantity <= 0 {
		return fmt.Errorf("%w: reward quantity should be greater than 0", errs.ErrInvalidParam)
	}
	if r.Kind == RewardKindItem && r.ItemId == "" {
		return fmt.Errorf("%w: item reward requires item id", errs.ErrInvalidParam)
	}
	return nil
}

// DefaultReward 无规则命中时发放的通用奖励。
func DefaultReward() RewardSpec {
	return RewardSpec{
		Kind:        RewardKindGold,
		Quantity:    10,
		Description: "Thanks for watching!",
	}
}

// RewardRule (Category, ContextKey) -> RewardSpec 的映射规则，按顺序匹配，先到先得。
type RewardRule struct {
	Category   Category   `mapstructure:"category"`
	ContextKey string     `mapstructure:"context"`
	Reward     RewardSpec `mapstructure:",squash"`
}

func (r RewardRule) Validate() error {
	if !r.Category.Validate() {
		return fmt.Errorf("%w: invalid category %q", errs.ErrInvalidParam, r.Category)
	}
	return r.Reward.Validate()
}

func (r RewardRule) Matches(c Category, contextKey string) bool {
	return r.Category == c && r.ContextKey == contextKey
}
