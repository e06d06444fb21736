package domain

// EventKind 对外通知类型
type EventKind string

const (
	EventProviderReady EventKind = "provider_ready"
	EventFulfilled     EventKind = "fulfilled"
	EventRejected      EventKind = "rejected"
	EventDismissed     EventKind = "dismissed"
)

func (k EventKind) String() string {
	return string(k)
}

// Event 奖励服务对外发布的通知。
//
// Reward 仅在 EventFulfilled 时非空，RequestId 为空表示同步拒绝或 provider 就绪。
type Event struct {
	Kind      EventKind
	Category  Category
	Reward    *RewardSpec
	Reason    string
	RequestId string
}
